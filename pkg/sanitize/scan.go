package sanitize

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"regexp"

	"github.com/aussiebroadwan/splitsub/pkg/apperr"
	"github.com/aussiebroadwan/splitsub/pkg/slogx"
)

// CodeSuspiciousInput is the wire code for a strict-mode rejection.
const CodeSuspiciousInput = "SUSPICIOUS_INPUT_DETECTED"

type pattern struct {
	name string
	re   *regexp.Regexp
}

// High-signal attack markers. A hit means intent, so nothing is cleaned.
var suspiciousPatterns = []pattern{
	{"script_tag", regexp.MustCompile(`(?i)<script`)},
	{"javascript_url", regexp.MustCompile(`(?i)javascript:`)},
	{"vbscript_url", regexp.MustCompile(`(?i)vbscript:`)},
	{"event_handler", regexp.MustCompile(`(?i)on\w+\s*=`)},
	{"eval_call", regexp.MustCompile(`(?i)eval\s*\(`)},
	{"css_expression", regexp.MustCompile(`(?i)expression\s*\(`)},
	{"html_data_url", regexp.MustCompile(`(?i)data:text/html`)},
}

// Scan serializes v and rejects it with a SUSPICIOUS_INPUT_DETECTED
// validation error when any attack marker is present.
func (s *Sanitizer) Scan(ctx context.Context, v any) error {
	if v == nil {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // keep '<' literal so the patterns can see it
	if err := enc.Encode(v); err != nil {
		return apperr.Validation("Unable to process input").
			WithCode("INPUT_PROCESSING_ERROR").
			Wrap(err)
	}

	serialized := buf.Bytes()
	for _, p := range suspiciousPatterns {
		if !p.re.Match(serialized) {
			continue
		}

		slogx.FromContext(ctx).Warn("sanitize: suspicious input detected",
			slog.String("pattern", p.name),
			slog.String("severity", "HIGH"),
		)
		return apperr.Validation("Input contains potentially malicious content").
			WithCode(CodeSuspiciousInput).
			WithDetails(map[string]string{"pattern": p.name})
	}

	return nil
}
