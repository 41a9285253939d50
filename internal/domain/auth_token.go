package domain

import "errors"

var (
	// ErrNoAuthToken is returned when an authentication token is required but not provided.
	ErrNoAuthToken = errors.New("no auth token")
	// ErrInvalidAuthToken is returned when a token's signature is invalid or it has expired.
	ErrInvalidAuthToken = errors.New("invalid auth token")
)

// AuthToken is the payload of a token in the auth service's native signed format.
type AuthToken struct {
	Username  string `json:"username"`  // Identifier of the authenticated user
	IssuedAt  int64  `json:"issuedAt"`  // Unix timestamp when the token was created
	ExpiresAt int64  `json:"expiresAt"` // Unix timestamp when the token expires
}

// User returns the identity carried by the token.
func (t AuthToken) User() User {
	return User{
		Username:  t.Username,
		IssuedAt:  t.IssuedAt,
		ExpiresAt: t.ExpiresAt,
	}
}

// AuthTokenResponse represents a response containing an authentication token.
type AuthTokenResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is the body the auth service sends along with a non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
