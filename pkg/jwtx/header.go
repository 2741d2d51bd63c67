package jwtx

import "strings"

const bearerPrefix = "Bearer "

// ExtractFromHeader pulls the token out of an Authorization header value.
// Only the exact form "Bearer <token>" is accepted; anything else (wrong
// case, extra spaces, other schemes, empty token) reports false so callers
// can decide whether a missing credential is an error.
func ExtractFromHeader(raw string) (string, bool) {
	if !strings.HasPrefix(raw, bearerPrefix) {
		return "", false
	}

	token := raw[len(bearerPrefix):]
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return "", false
	}

	return token, true
}
