// Package sanitize cleans untrusted, JSON-shaped request payloads.
//
// Values are the shapes encoding/json produces when decoding into any:
// map[string]any, []any, string, float64, json.Number, bool and nil.
package sanitize

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/aussiebroadwan/splitsub/pkg/slogx"
)

// DefaultMaxDepth bounds how deep Clean will recurse into containers.
const DefaultMaxDepth = 10

// Policy decides which transform a string value receives.
type Policy int

const (
	PolicyGeneric Policy = iota
	PolicyEmail
	PolicyPassword
)

var forbiddenKeys = []string{"__proto__", "constructor", "prototype"}

// Sanitizer holds the tunables for Clean and Scan. The zero value is usable.
type Sanitizer struct {
	MaxDepth int
}

// New returns a Sanitizer with the default depth cap.
func New() *Sanitizer {
	return &Sanitizer{MaxDepth: DefaultMaxDepth}
}

func (s *Sanitizer) maxDepth() int {
	if s == nil || s.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return s.MaxDepth
}

// Clean returns a structurally equivalent copy of v with every string
// cleaned according to its key's policy, forbidden keys dropped and
// anything nested past the depth cap replaced by an empty object.
func (s *Sanitizer) Clean(ctx context.Context, v any) any {
	return s.clean(ctx, v, 0, PolicyGeneric)
}

func (s *Sanitizer) clean(ctx context.Context, v any, depth int, policy Policy) any {
	switch val := v.(type) {
	case string:
		return applyPolicy(val, policy)

	case map[string]any:
		if depth > s.maxDepth() {
			slogx.FromContext(ctx).Warn("sanitize: max depth exceeded, dropping object",
				slog.Int("depth", depth),
			)
			return map[string]any{}
		}
		return s.cleanMap(ctx, val, depth)

	case []any:
		if depth > s.maxDepth() {
			slogx.FromContext(ctx).Warn("sanitize: max depth exceeded, dropping array",
				slog.Int("depth", depth),
			)
			return map[string]any{}
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = s.clean(ctx, item, depth+1, policy)
		}
		return out

	default:
		return v
	}
}

func (s *Sanitizer) cleanMap(ctx context.Context, m map[string]any, depth int) map[string]any {
	// Sorted so a collision between two keys that clean to the same string
	// always resolves the same way: the first one wins.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(m))
	for _, rawKey := range keys {
		key := String(rawKey)
		if isForbiddenKey(rawKey) || isForbiddenKey(key) {
			slogx.FromContext(ctx).Warn("sanitize: dropped dangerous key", slog.String("key", key))
			continue
		}
		if _, taken := out[key]; taken {
			continue
		}
		out[key] = s.clean(ctx, m[rawKey], depth+1, PolicyFor(key))
	}
	return out
}

// PolicyFor classifies a field by its key. Password wins over email so a
// key like "emailPassword" is never lossily transformed.
func PolicyFor(key string) Policy {
	lower := strings.ToLower(key)
	switch {
	case strings.Contains(lower, "password"):
		return PolicyPassword
	case strings.Contains(lower, "email"):
		return PolicyEmail
	default:
		return PolicyGeneric
	}
}

func applyPolicy(s string, p Policy) string {
	switch p {
	case PolicyPassword:
		return Password(s)
	case PolicyEmail:
		return Email(s)
	default:
		return String(s)
	}
}

func isForbiddenKey(key string) bool {
	lower := strings.ToLower(key)
	for _, f := range forbiddenKeys {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
