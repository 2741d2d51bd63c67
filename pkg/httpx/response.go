package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Used on responses that carry tokens or personal data.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// SuccessEnvelope is the body of every 2xx response.
type SuccessEnvelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ErrorEnvelope is the body of every failed response.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	// RetryAfter is in whole seconds and only set on 429.
	RetryAfter int64  `json:"retryAfter,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// PageInfo describes the page returned by a list endpoint.
type PageInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPageInfo computes the page count for total rows.
func NewPageInfo(page, limit, total int) PageInfo {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return PageInfo{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// Page is the data payload of a paginated response.
type Page[T any] struct {
	Items      []T      `json:"items"`
	Pagination PageInfo `json:"pagination"`
}

func timestamp() string { return time.Now().UTC().Format(time.RFC3339) }

// WriteSuccess writes the success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, SuccessEnvelope{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: timestamp(),
	})
}

// WritePaginated writes a 200 success envelope wrapping items and page info.
func WritePaginated[T any](w http.ResponseWriter, items []T, info PageInfo, message string) {
	if items == nil {
		items = []T{}
	}
	WriteSuccess(w, http.StatusOK, Page[T]{Items: items, Pagination: info}, message)
}
