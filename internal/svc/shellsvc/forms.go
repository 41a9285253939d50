package shellsvc

import "github.com/mkrupp/homecase-authshell/internal/domain"

// RegisterForm is a snapshot of the registration form.
type RegisterForm struct {
	Values  domain.Registration
	Loading bool
}

// LoginForm is a snapshot of the login form.
type LoginForm struct {
	Values  domain.Credentials
	Loading bool
}

// formState tracks one form's values and whether a submission is pending.
// Guarded by the Shell's mutex.
type formState[T any] struct {
	values  T
	loading bool
}
