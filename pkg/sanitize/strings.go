package sanitize

import (
	"regexp"
	"strings"
)

var (
	scriptBlock  = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	htmlTag      = regexp.MustCompile(`<[^>]*>`)
	eventHandler = regexp.MustCompile(`(?i)\son\w+\s*=\s*["'][^"']*["']`)
	jsScheme     = regexp.MustCompile(`(?i)javascript:`)
	dataScheme   = regexp.MustCompile(`(?i)data:`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// String cleans a generic untrusted string. It repeats its passes until the
// output stops changing, so String(String(s)) == String(s).
func String(s string) string {
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = strings.TrimSpace(s)
	s = scriptBlock.ReplaceAllString(s, "")
	s = htmlTag.ReplaceAllString(s, "")
	s = eventHandler.ReplaceAllString(s, "")
	s = jsScheme.ReplaceAllString(s, "")
	s = stripDataURLs(s)
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripDataURLs removes every "data:" scheme that is not followed by
// "image/". RE2 has no lookahead so the check is done by hand.
func stripDataURLs(s string) string {
	locs := dataScheme.FindAllStringIndex(s, -1)
	if locs == nil {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, loc := range locs {
		rest := s[loc[1]:]
		if len(rest) >= len("image/") && strings.EqualFold(rest[:len("image/")], "image/") {
			continue
		}
		b.WriteString(s[last:loc[0]])
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// Email trims, lower-cases and drops angle brackets, leaving everything a
// format check downstream needs.
func Email(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	return strings.TrimSpace(s)
}

// Password only trims surrounding whitespace. Password content is never
// altered.
func Password(s string) string {
	return strings.TrimSpace(s)
}
