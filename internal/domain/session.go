package domain

// Session is the client's record of whether and who is logged in.
// It is either Anonymous or Authenticated; no other implementations exist.
type Session interface {
	// IsLoggedIn reports whether the session holds an accepted token.
	IsLoggedIn() bool

	session()
}

// Anonymous is the session state without token or user.
type Anonymous struct{}

// IsLoggedIn implements Session.IsLoggedIn.
func (Anonymous) IsLoggedIn() bool { return false }

func (Anonymous) session() {}

// Authenticated is the session state holding an accepted token and the user
// derived from it.
type Authenticated struct {
	token string
	user  User
}

// NewAuthenticated pairs a token with the user decoded from it.
// Returns a SessionDecodeError if either half is missing.
func NewAuthenticated(token string, user User) (Authenticated, error) {
	if token == "" {
		return Authenticated{}, &SessionDecodeError{Err: ErrNoAuthToken}
	}

	if user.Username == "" {
		return Authenticated{}, &SessionDecodeError{Err: ErrNoUsername}
	}

	return Authenticated{token: token, user: user}, nil
}

// IsLoggedIn implements Session.IsLoggedIn.
func (Authenticated) IsLoggedIn() bool { return true }

func (Authenticated) session() {}

// Token returns the bearer token.
func (a Authenticated) Token() string { return a.token }

// User returns the identity derived from the token.
func (a Authenticated) User() User { return a.user }

// SessionUser returns the user of an authenticated session.
func SessionUser(s Session) (User, bool) {
	if a, ok := s.(Authenticated); ok {
		return a.user, true
	}

	return User{}, false
}

// SessionToken returns the token of an authenticated session.
func SessionToken(s Session) (string, bool) {
	if a, ok := s.(Authenticated); ok {
		return a.token, true
	}

	return "", false
}
