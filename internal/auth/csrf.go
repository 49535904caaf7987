package auth

import "crypto/subtle"

// ValidCSRF compares a submitted token with the session's token in constant time.
func ValidCSRF(session Session, submitted string) bool {
	if session.CSRFToken == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(session.CSRFToken), []byte(submitted)) == 1
}
