package domain

// User is the identity derived from an accepted bearer token.
type User struct {
	Username  string // Login username, never empty for an authenticated session
	IssuedAt  int64  // Unix timestamp the token was issued, 0 if unknown
	ExpiresAt int64  // Unix timestamp the token expires, 0 if unknown
}

// Registration is the payload sent to create a new account.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Credentials is the payload sent to obtain a bearer token.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
