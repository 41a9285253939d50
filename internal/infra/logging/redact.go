package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

const tokenFingerprintLength = 12

// Token returns an attribute identifying a bearer token without revealing it:
// a short hex prefix of its SHA-256.
func Token(key, token string) slog.Attr {
	if token == "" {
		return slog.String(key, "")
	}

	sum := sha256.Sum256([]byte(token))

	return slog.String(key, "sha256:"+hex.EncodeToString(sum[:])[:tokenFingerprintLength])
}
