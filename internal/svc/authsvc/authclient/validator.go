package authclient

import (
	"regexp"
	"unicode/utf8"

	"github.com/mkrupp/homecase-authshell/internal/domain"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 20
	PasswordMinLength = 8
)

// Messages shown to the user for rejected payloads.
const (
	MsgFieldsRequired  = "All fields are required"
	MsgUsernameLength  = "Username must be between 3 and 20 characters"
	MsgInvalidEmail    = "Invalid email address"
	MsgPasswordTooWeak = "Password must be at least 8 characters"
)

//nolint:gochecknoglobals
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateRegistration applies the registration policy in order and returns
// the first violation as a *domain.ValidationError.
func ValidateRegistration(r domain.Registration) error {
	switch {
	case r.Username == "":
		return &domain.ValidationError{Field: "username", Message: MsgFieldsRequired}
	case r.Email == "":
		return &domain.ValidationError{Field: "email", Message: MsgFieldsRequired}
	case r.Password == "":
		return &domain.ValidationError{Field: "password", Message: MsgFieldsRequired}
	}

	if n := utf8.RuneCountInString(r.Username); n < UsernameMinLength || n > UsernameMaxLength {
		return &domain.ValidationError{Field: "username", Message: MsgUsernameLength}
	}

	if !emailPattern.MatchString(r.Email) {
		return &domain.ValidationError{Field: "email", Message: MsgInvalidEmail}
	}

	if utf8.RuneCountInString(r.Password) < PasswordMinLength {
		return &domain.ValidationError{Field: "password", Message: MsgPasswordTooWeak}
	}

	return nil
}

// ValidateCredentials only checks that both fields are present; length rules
// apply at registration time.
func ValidateCredentials(c domain.Credentials) error {
	switch {
	case c.Username == "":
		return &domain.ValidationError{Field: "username", Message: MsgFieldsRequired}
	case c.Password == "":
		return &domain.ValidationError{Field: "password", Message: MsgFieldsRequired}
	}

	return nil
}
