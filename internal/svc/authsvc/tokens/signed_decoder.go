package tokens

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/homecase-authshell/internal/domain"
	"github.com/mkrupp/homecase-authshell/internal/infra/logging"
)

// ErrNoPublicKey is returned when the signed format is selected without a key.
var ErrNoPublicKey = errors.New("signed tokens need a public key file")

// SignedDecoder decodes the auth service's native tokens:
// base64url(JSON payload ‖ RSA-PSS-SHA256 signature).
type SignedDecoder struct {
	publicKey *rsa.PublicKey
	leeway    time.Duration
	now       func() time.Time
	log       logging.Logger
}

var _ Decoder = (*SignedDecoder)(nil)

// NewSignedDecoder loads the service's public key from cfg.PublicKeyFile.
// The file may also hold the service's RSA private key, in which case its
// public half is used.
func NewSignedDecoder(cfg DecoderConfig) (*SignedDecoder, error) {
	if cfg.PublicKeyFile == "" {
		return nil, ErrNoPublicKey
	}

	pemBytes, err := os.ReadFile(cfg.PublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}

	publicKey, err := ParseRSAPublicKey(pemBytes)
	if err != nil {
		return nil, err
	}

	return NewSignedDecoderWithKey(publicKey, cfg.Leeway), nil
}

// NewSignedDecoderWithKey creates a SignedDecoder verifying with publicKey.
func NewSignedDecoderWithKey(publicKey *rsa.PublicKey, leeway time.Duration) *SignedDecoder {
	return &SignedDecoder{
		publicKey: publicKey,
		leeway:    leeway,
		now:       time.Now,
		log:       logging.GetLogger("svc.authsvc.tokens.signed_decoder"),
	}
}

// ParseRSAPublicKey reads a PEM encoded RSA public key, or derives it from a
// PEM encoded RSA private key.
func ParseRSAPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	publicKey, pubErr := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if pubErr == nil {
		return publicKey, nil
	}

	privateKey, privErr := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if privErr == nil {
		return &privateKey.PublicKey, nil
	}

	return nil, fmt.Errorf("parse rsa key: %w", errors.Join(pubErr, privErr))
}

// Decode implements Decoder. It verifies the signature, parses the JSON
// payload and checks that the token has not expired.
func (d *SignedDecoder) Decode(ctx context.Context, token string) (user domain.User, err error) {
	defer func() {
		if err != nil {
			d.log.DebugContext(ctx, "decode token failed", logging.Token("token", token), "error", err)
		}
	}()

	authToken, err := d.verify(token)
	if err != nil {
		return domain.User{}, decodeError(err)
	}

	if authToken.Username == "" {
		return domain.User{}, decodeError(domain.ErrNoUsername)
	}

	return authToken.User(), nil
}

func (d *SignedDecoder) verify(tokenString string) (domain.AuthToken, error) {
	if tokenString == "" {
		return domain.AuthToken{}, domain.ErrNoAuthToken
	}

	tokenData, err := base64.URLEncoding.DecodeString(tokenString)
	if err != nil {
		return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, fmt.Errorf("decode token: %w", err))
	}

	signatureStart := len(tokenData) - d.publicKey.Size()
	if signatureStart <= 0 {
		return domain.AuthToken{}, domain.ErrInvalidAuthToken
	}

	payload, signature := tokenData[:signatureStart], tokenData[signatureStart:]

	hashed := sha256.Sum256(payload)
	if err := rsa.VerifyPSS(d.publicKey, crypto.SHA256, hashed[:], signature, nil); err != nil {
		return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, fmt.Errorf("verify signature: %w", err))
	}

	var token domain.AuthToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, fmt.Errorf("unmarshal token: %w", err))
	}

	if token.ExpiresAt != 0 && d.now().Add(-d.leeway).Unix() > token.ExpiresAt {
		return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, errors.New("token expired"))
	}

	return token, nil
}
