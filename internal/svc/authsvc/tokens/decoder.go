// Package tokens derives the user identity from a bearer token returned by
// the auth service. Which format the service issues is a deployment choice:
// JWTs, the service's own RSA-PSS signed tokens, or opaque tokens that only
// the service itself can resolve.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkrupp/homecase-authshell/internal/domain"
	"github.com/mkrupp/homecase-authshell/internal/svc/authsvc/authclient"
)

// Supported token formats.
const (
	FormatJWT    = "jwt"
	FormatSigned = "signed"
	FormatRemote = "remote"
)

// ErrUnknownFormat is returned for an unsupported DecoderConfig.Format.
var ErrUnknownFormat = errors.New("unknown token format")

// Decoder turns a token into the user it was issued for.
type Decoder interface {
	// Decode returns the token's user. Failures to derive a user are
	// *domain.SessionDecodeError; transport failures stay *domain.NetworkError.
	Decode(ctx context.Context, token string) (domain.User, error)
}

// DecoderConfig selects and configures the token format.
type DecoderConfig struct {
	// Format is one of "jwt", "signed" or "remote"
	Format string `env:"FORMAT" default:"jwt"`

	// Secret is the HMAC secret for HS256 JWTs
	Secret string `env:"SECRET" default:""`

	// PublicKeyFile is a PEM public key (RSA or Ed25519) verifying JWTs or
	// signed tokens
	PublicKeyFile string `env:"PUBLIC_KEY_FILE" default:""`

	// Issuer, if set, must match the JWT "iss" claim
	Issuer string `env:"ISSUER" default:""`

	// Leeway tolerates clock skew when checking expiry
	Leeway time.Duration `env:"LEEWAY" default:"30s"`
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, token string) (domain.User, error)

// Decode implements Decoder.
func (f DecoderFunc) Decode(ctx context.Context, token string) (domain.User, error) {
	return f(ctx, token)
}

// NewDecoder builds the decoder selected by cfg. The remote format resolves
// tokens through client.
func NewDecoder(cfg DecoderConfig, client authclient.AuthClient) (Decoder, error) {
	switch cfg.Format {
	case FormatJWT, "":
		decoder, err := NewJWTDecoder(cfg)
		if err != nil {
			return nil, fmt.Errorf("new jwt decoder: %w", err)
		}

		return decoder, nil
	case FormatSigned:
		decoder, err := NewSignedDecoder(cfg)
		if err != nil {
			return nil, fmt.Errorf("new signed decoder: %w", err)
		}

		return decoder, nil
	case FormatRemote:
		return NewRemoteDecoder(client), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Format)
	}
}

func decodeError(err error) error {
	return &domain.SessionDecodeError{Err: err}
}
