package httpx

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/splitsub/pkg/apperr"
	"github.com/aussiebroadwan/splitsub/pkg/slogx"
)

// Responder turns any error into the canonical error envelope. It is the
// only place error responses are written.
type Responder struct {
	// Production hides unsafe details from clients.
	Production bool
	TrustProxy bool
}

// Respond logs err with request context and writes the envelope. Method,
// path, request id and user id come from the request logger.
func (rs *Responder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr == nil {
		appErr = apperr.Internal("")
	}
	status := appErr.Status()

	attrs := []any{
		"code", appErr.Code,
		"status", status,
		"ip", ClientIP(r, rs.TrustProxy),
	}
	if appErr.Cause != "" {
		attrs = append(attrs, "cause", appErr.Cause)
	}
	if appErr.Err != nil {
		attrs = append(attrs, "err", appErr.Err)
	}

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slogx.FromContext(r.Context()).Log(r.Context(), level, appErr.Message, attrs...)

	body := ErrorBody{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Timestamp: timestamp(),
	}
	if appErr.Details != nil && (!rs.Production || appErr.Safe) {
		body.Details = appErr.Details
	}
	if appErr.Kind == apperr.KindRateLimit && appErr.RetryAfter > 0 {
		secs := int64(appErr.RetryAfter.Seconds())
		body.RetryAfter = secs
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	if appErr.Kind == apperr.KindAuth {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}

	WriteJSON(w, status, ErrorEnvelope{Success: false, Error: body})
}
