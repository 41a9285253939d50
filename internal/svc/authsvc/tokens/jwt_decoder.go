package tokens

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/homecase-authshell/internal/domain"
	"github.com/mkrupp/homecase-authshell/internal/infra/logging"
)

// ErrAmbiguousKey is returned when both an HMAC secret and a public key are configured.
var ErrAmbiguousKey = errors.New("configure either a secret or a public key, not both")

// userClaims are the claims read from a JWT. The username comes from the
// "username" claim, falling back to "sub".
type userClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// JWTDecoder decodes JWTs. With a secret or public key configured the
// signature is verified; without one only the registered claims (exp, nbf,
// iss) are checked, which is enough for a client that merely needs to know
// who it is and relies on the service to reject forged tokens.
type JWTDecoder struct {
	key       any
	parser    *jwt.Parser
	validator *jwt.Validator
	log       logging.Logger
}

var _ Decoder = (*JWTDecoder)(nil)

// NewJWTDecoder creates a JWTDecoder from cfg.
func NewJWTDecoder(cfg DecoderConfig) (*JWTDecoder, error) {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithIssuedAt(),
	}

	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	key, methods, err := loadJWTKey(cfg)
	if err != nil {
		return nil, err
	}

	if len(methods) > 0 {
		opts = append(opts, jwt.WithValidMethods(methods))
	}

	return &JWTDecoder{
		key:       key,
		parser:    jwt.NewParser(opts...),
		validator: jwt.NewValidator(opts...),
		log:       logging.GetLogger("svc.authsvc.tokens.jwt_decoder"),
	}, nil
}

func loadJWTKey(cfg DecoderConfig) (any, []string, error) {
	switch {
	case cfg.Secret != "" && cfg.PublicKeyFile != "":
		return nil, nil, ErrAmbiguousKey
	case cfg.Secret != "":
		return []byte(cfg.Secret), []string{"HS256", "HS384", "HS512"}, nil
	case cfg.PublicKeyFile != "":
		pemBytes, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read public key: %w", err)
		}

		if rsaKey, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes); err == nil {
			return rsaKey, []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512"}, nil
		}

		edKey, err := jwt.ParseEdPublicKeyFromPEM(pemBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("parse public key: %w", err)
		}

		return edKey, []string{"EdDSA"}, nil
	default:
		return nil, nil, nil
	}
}

// Decode implements Decoder.
func (d *JWTDecoder) Decode(ctx context.Context, token string) (user domain.User, err error) {
	defer func() {
		if err != nil {
			d.log.DebugContext(ctx, "decode token failed", logging.Token("token", token), "error", err)
		}
	}()

	if token == "" {
		return domain.User{}, decodeError(domain.ErrNoAuthToken)
	}

	claims := new(userClaims)

	if d.key == nil {
		if _, _, err := d.parser.ParseUnverified(token, claims); err != nil {
			return domain.User{}, decodeError(errors.Join(domain.ErrInvalidAuthToken, err))
		}

		if err := d.validator.Validate(claims); err != nil {
			return domain.User{}, decodeError(errors.Join(domain.ErrInvalidAuthToken, err))
		}
	} else {
		if _, err := d.parser.ParseWithClaims(token, claims, d.keyFunc); err != nil {
			return domain.User{}, decodeError(errors.Join(domain.ErrInvalidAuthToken, err))
		}
	}

	return claims.user()
}

func (d *JWTDecoder) keyFunc(*jwt.Token) (any, error) {
	return d.key, nil
}

func (c *userClaims) user() (domain.User, error) {
	username := c.Username
	if username == "" {
		username = c.Subject
	}

	if username == "" {
		return domain.User{}, decodeError(domain.ErrNoUsername)
	}

	user := domain.User{Username: username}

	if c.IssuedAt != nil {
		user.IssuedAt = c.IssuedAt.Unix()
	}

	if c.ExpiresAt != nil {
		user.ExpiresAt = c.ExpiresAt.Unix()
	}

	return user, nil
}
