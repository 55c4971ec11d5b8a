package hubclient

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IsTokenUsable reports whether a bearer credential is currently usable for
// a hub connection. A usable token is structurally a JWT (three dot-separated
// segments) whose exp claim, when present, lies in the future.
//
// A token without an exp claim is treated as valid indefinitely. That mirrors
// how the issuing side behaves for long-lived service credentials and is a
// documented trust assumption, not an oversight to be fixed here.
//
// Malformed input of any kind yields false, never an error. Callers gate
// connection attempts on this, so it must be safe to feed it whatever
// happens to be in storage.
func IsTokenUsable(token string) bool {
	return IsTokenUsableAt(token, time.Now())
}

// IsTokenUsableAt is IsTokenUsable evaluated against an explicit clock,
// which keeps expiry logic deterministic under test.
func IsTokenUsableAt(token string, now time.Time) bool {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return false
	}
	if strings.Count(token, ".") != 2 {
		return false
	}

	// Signature verification happens server side; the client only needs to
	// know whether sending this token is worth a round-trip.
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp == nil {
		return true
	}
	return exp.Time.After(now)
}
