// Package authclient talks to the external auth service: it validates
// credential payloads before they leave the process and maps the service's
// responses onto domain errors.
package authclient

import (
	"context"

	"github.com/mkrupp/homecase-authshell/internal/domain"
)

// AuthClient defines the operations the shell needs from the auth service.
type AuthClient interface {
	// Register creates an account. The registration is validated first;
	// a *domain.ValidationError means no request was sent.
	Register(ctx context.Context, registration domain.Registration) error

	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, credentials domain.Credentials) (string, error)

	// Logout tells the service the token is no longer in use. Best effort:
	// services without a logout endpoint are treated as success.
	Logout(ctx context.Context, token string) error

	// Validate checks if the given token is valid.
	// Returns the username associated with the token, whether the token is valid,
	// and any error encountered during validation.
	Validate(ctx context.Context, token string) (string, bool, error)
}
