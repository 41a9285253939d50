package tokens

import (
	"context"
	"fmt"

	"github.com/mkrupp/homecase-authshell/internal/domain"
	"github.com/mkrupp/homecase-authshell/internal/svc/authsvc/authclient"
)

// RemoteDecoder treats tokens as opaque and asks the auth service who they
// belong to.
type RemoteDecoder struct {
	client authclient.AuthClient
}

var _ Decoder = (*RemoteDecoder)(nil)

// NewRemoteDecoder creates a RemoteDecoder backed by client.
func NewRemoteDecoder(client authclient.AuthClient) *RemoteDecoder {
	return &RemoteDecoder{client: client}
}

// Decode implements Decoder. Transport failures are returned unchanged so a
// temporarily unreachable service is not mistaken for a rejected token.
func (d *RemoteDecoder) Decode(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, decodeError(domain.ErrNoAuthToken)
	}

	username, ok, err := d.client.Validate(ctx, token)
	if err != nil {
		return domain.User{}, fmt.Errorf("validate token: %w", err)
	}

	if !ok {
		return domain.User{}, decodeError(domain.ErrInvalidAuthToken)
	}

	if username == "" {
		return domain.User{}, decodeError(domain.ErrNoUsername)
	}

	return domain.User{Username: username}, nil
}
