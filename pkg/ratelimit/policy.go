package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Class names a group of endpoints that share one limit.
type Class string

const (
	ClassLogin         Class = "login"
	ClassRegistration  Class = "registration"
	ClassPasswordReset Class = "password_reset"
	ClassSensitive     Class = "sensitive"
)

// Policy is a fixed window limit for one class.
type Policy struct {
	// Limit is the number of requests admitted per window.
	Limit int
	// Window is the length of one counting window.
	Window time.Duration
	// Code and Message are what a denied client sees.
	Code    string
	Message string
}

// DefaultPolicies returns the per class limits. Non-production builds are
// looser so local testing does not trip them constantly.
//
// Login is the tightest because it is the cheapest target to automate.
func DefaultPolicies(production bool) map[Class]Policy {
	pick := func(prod, dev int) int {
		if production {
			return prod
		}
		return dev
	}

	return map[Class]Policy{
		ClassLogin: {
			Limit:   pick(5, 20),
			Window:  15 * time.Minute,
			Code:    "LOGIN_RATE_LIMIT_EXCEEDED",
			Message: "Too many login attempts from this IP. Please try again in 15 minutes.",
		},
		ClassRegistration: {
			Limit:   pick(3, 10),
			Window:  time.Hour,
			Code:    "REGISTRATION_RATE_LIMIT_EXCEEDED",
			Message: "Too many registration attempts from this IP. Please try again in 1 hour.",
		},
		ClassPasswordReset: {
			Limit:   pick(3, 10),
			Window:  time.Hour,
			Code:    "PASSWORD_RESET_RATE_LIMIT_EXCEEDED",
			Message: "Too many password reset attempts from this IP. Please try again in 1 hour.",
		},
		ClassSensitive: {
			Limit:   pick(10, 50),
			Window:  5 * time.Minute,
			Code:    "SENSITIVE_OPERATION_RATE_LIMIT_EXCEEDED",
			Message: "Too many sensitive operations. Please wait 5 minutes before trying again.",
		},
	}
}

// PoliciesFromEnv overlays RATELIMIT_{CLASS}_REQUESTS and
// RATELIMIT_{CLASS}_WINDOW_SEC onto policies, e.g. RATELIMIT_LOGIN_REQUESTS.
// Invalid or non-positive values are ignored.
func PoliciesFromEnv(policies map[Class]Policy) map[Class]Policy {
	out := make(map[Class]Policy, len(policies))
	for class, p := range policies {
		prefix := "RATELIMIT_" + strings.ToUpper(string(class))

		if val := os.Getenv(prefix + "_REQUESTS"); val != "" {
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				p.Limit = n
			}
		}
		if val := os.Getenv(prefix + "_WINDOW_SEC"); val != "" {
			if sec, err := strconv.Atoi(val); err == nil && sec > 0 {
				p.Window = time.Duration(sec) * time.Second
			}
		}

		out[class] = p
	}
	return out
}
