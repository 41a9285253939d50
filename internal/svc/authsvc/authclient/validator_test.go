package authclient_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/homecase-authshell/internal/domain"
	"github.com/mkrupp/homecase-authshell/internal/svc/authsvc/authclient"
)

func validRegistration() domain.Registration {
	return domain.Registration{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	}
}

func TestValidateRegistration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(r *domain.Registration)
		wantField string
		wantMsg   string
	}{
		{
			name:   "valid",
			mutate: func(*domain.Registration) {},
		},
		{
			name:      "missing username",
			mutate:    func(r *domain.Registration) { r.Username = "" },
			wantField: "username",
			wantMsg:   authclient.MsgFieldsRequired,
		},
		{
			name:      "missing email",
			mutate:    func(r *domain.Registration) { r.Email = "" },
			wantField: "email",
			wantMsg:   authclient.MsgFieldsRequired,
		},
		{
			name:      "missing password",
			mutate:    func(r *domain.Registration) { r.Password = "" },
			wantField: "password",
			wantMsg:   authclient.MsgFieldsRequired,
		},
		{
			name:      "username too short",
			mutate:    func(r *domain.Registration) { r.Username = "ab" },
			wantField: "username",
			wantMsg:   "Username must be between 3 and 20 characters",
		},
		{
			name:   "username at lower bound",
			mutate: func(r *domain.Registration) { r.Username = "abc" },
		},
		{
			name:   "username at upper bound",
			mutate: func(r *domain.Registration) { r.Username = "abcdefghijklmnopqrst" },
		},
		{
			name:      "username too long",
			mutate:    func(r *domain.Registration) { r.Username = "abcdefghijklmnopqrstu" },
			wantField: "username",
			wantMsg:   authclient.MsgUsernameLength,
		},
		{
			name:   "username counted in characters",
			mutate: func(r *domain.Registration) { r.Username = "jürgen" },
		},
		{
			name:      "email without at",
			mutate:    func(r *domain.Registration) { r.Email = "alice.example.com" },
			wantField: "email",
			wantMsg:   authclient.MsgInvalidEmail,
		},
		{
			name:      "email without tld",
			mutate:    func(r *domain.Registration) { r.Email = "alice@example" },
			wantField: "email",
			wantMsg:   authclient.MsgInvalidEmail,
		},
		{
			name:      "email with whitespace",
			mutate:    func(r *domain.Registration) { r.Email = "alice smith@example.com" },
			wantField: "email",
			wantMsg:   authclient.MsgInvalidEmail,
		},
		{
			name:      "email with two ats",
			mutate:    func(r *domain.Registration) { r.Email = "alice@@example.com" },
			wantField: "email",
			wantMsg:   authclient.MsgInvalidEmail,
		},
		{
			name:   "email with subdomain",
			mutate: func(r *domain.Registration) { r.Email = "alice@mail.example.co.uk" },
		},
		{
			name:      "password too short",
			mutate:    func(r *domain.Registration) { r.Password = "1234567" },
			wantField: "password",
			wantMsg:   "Password must be at least 8 characters",
		},
		{
			name:   "password at lower bound",
			mutate: func(r *domain.Registration) { r.Password = "12345678" },
		},
		{
			name: "first violation wins",
			mutate: func(r *domain.Registration) {
				r.Username = "ab"
				r.Email = "broken"
				r.Password = "short"
			},
			wantField: "username",
			wantMsg:   authclient.MsgUsernameLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			registration := validRegistration()
			tt.mutate(&registration)

			err := authclient.ValidateRegistration(registration)
			if tt.wantMsg == "" {
				require.NoError(t, err)

				return
			}

			var validationErr *domain.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.wantField, validationErr.Field)
			assert.Equal(t, tt.wantMsg, validationErr.Message)
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	t.Parallel()

	require.NoError(t, authclient.ValidateCredentials(domain.Credentials{Username: "al", Password: "x"}))

	err := authclient.ValidateCredentials(domain.Credentials{Username: "alice"})
	assert.Equal(t, authclient.MsgFieldsRequired, domain.UserMessage(err, "fallback"))

	err = authclient.ValidateCredentials(domain.Credentials{Password: "secret"})
	assert.Equal(t, authclient.MsgFieldsRequired, domain.UserMessage(err, "fallback"))
}
