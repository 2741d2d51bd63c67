package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/splitsub/pkg/apperr"
	"github.com/aussiebroadwan/splitsub/pkg/sanitize"
	"github.com/aussiebroadwan/splitsub/pkg/slogx"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 10 << 20

// removedBytesLogThreshold is how much a payload must shrink before the
// cleaning is logged.
const removedBytesLogThreshold = 100

// SanitizeStage cleans body, query and the named path values. In strict
// mode body and query are first scanned and rejected on attack markers.
type SanitizeStage struct {
	sanitizer *sanitize.Sanitizer
	strict    bool
	params    []string
}

// Sanitize cleans input without rejecting it.
func Sanitize(s *sanitize.Sanitizer, params ...string) *SanitizeStage {
	return &SanitizeStage{sanitizer: s, params: params}
}

// StrictSanitize rejects suspicious input before cleaning it.
func StrictSanitize(s *sanitize.Sanitizer, params ...string) *SanitizeStage {
	return &SanitizeStage{sanitizer: s, strict: true, params: params}
}

func (s *SanitizeStage) Run(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
	ctx := r.Context()

	body, raw, err := readJSONBody(w, r)
	if err != nil {
		return nil, err
	}
	query := queryToMap(r.URL.Query())

	if s.strict {
		if err := s.sanitizer.Scan(ctx, body); err != nil {
			return nil, err
		}
		if err := s.sanitizer.Scan(ctx, query); err != nil {
			return nil, err
		}
	}

	if body != nil {
		cleaned, err := json.Marshal(s.sanitizer.Clean(ctx, body))
		if err != nil {
			return nil, apperr.Validation("Unable to process request data").WithCode("INPUT_PROCESSING_ERROR").Wrap(err)
		}
		if removed := len(raw) - len(cleaned); removed > removedBytesLogThreshold {
			slogx.FromContext(ctx).Info("input sanitized", "removed_bytes", removed)
		}
		r.Body = io.NopCloser(bytes.NewReader(cleaned))
		r.ContentLength = int64(len(cleaned))
	}

	if len(query) > 0 {
		if cleaned, ok := s.sanitizer.Clean(ctx, query).(map[string]any); ok {
			r.URL.RawQuery = mapToQuery(cleaned).Encode()
		}
	}

	for _, name := range s.params {
		v := r.PathValue(name)
		if v == "" {
			continue
		}
		if cleaned, ok := s.sanitizer.Clean(ctx, map[string]any{name: v}).(map[string]any); ok {
			str, _ := cleaned[name].(string)
			r.SetPathValue(name, str)
		}
	}

	return r, nil
}

// readJSONBody decodes the body into the generic JSON shape. A missing or
// empty body yields nil.
func readJSONBody(w http.ResponseWriter, r *http.Request) (any, []byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil, nil
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, apperr.Validation("Request body too large").WithCode("PAYLOAD_TOO_LARGE")
		}
		return nil, nil, apperr.Validation("Unable to process request data").WithCode("INPUT_PROCESSING_ERROR").Wrap(err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		r.Body = http.NoBody
		return nil, raw, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, nil, apperr.Validation("Request data format is invalid").WithCode("INVALID_INPUT_FORMAT").Wrap(err)
	}
	return body, raw, nil
}

func queryToMap(q url.Values) map[string]any {
	if len(q) == 0 {
		return nil
	}
	m := make(map[string]any, len(q))
	for k, vs := range q {
		arr := make([]any, len(vs))
		for i, v := range vs {
			arr[i] = v
		}
		m[k] = arr
	}
	return m
}

func mapToQuery(m map[string]any) url.Values {
	q := make(url.Values, len(m))
	for k, v := range m {
		arr, _ := v.([]any)
		for _, item := range arr {
			if s, ok := item.(string); ok {
				q.Add(k, s)
			}
		}
	}
	return q
}
