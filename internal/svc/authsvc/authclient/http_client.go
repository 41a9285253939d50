package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mkrupp/homecase-authshell/internal/domain"
	"github.com/mkrupp/homecase-authshell/internal/infra/logging"
	http_ "github.com/mkrupp/homecase-authshell/internal/infra/transport/http"
)

const (
	AuthorizationHeader = "Authorization"
	ContentTypeHeader   = "Content-Type"
	ContentTypeJSON     = "application/json"

	maxBodySize = 1 << 20
)

// Endpoint paths relative to HTTPClientConfig.BaseURL.
const (
	RegisterPath = "/auth/register"
	LoginPath    = "/auth/login"
	LogoutPath   = "/auth/logout"
	ValidatePath = "/auth/validate"
)

// HTTPClientConfig holds configuration for the HTTP auth client.
type HTTPClientConfig struct {
	http_.HTTPClientConfig

	// BaseURL is the scheme and host of the auth service
	BaseURL string `env:"BASE_URL" default:"http://localhost:8080"`
}

// HTTPClient implements AuthClient against the auth service's JSON HTTP API.
type HTTPClient struct {
	httpClient *http.Client
	log        logging.Logger
	cfg        HTTPClientConfig
}

var _ AuthClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTPClient with the given configuration.
// If httpClient is nil, a client with tracing and logging transports is built
// from cfg.
func NewHTTPClient(
	cfg HTTPClientConfig,
	httpClient *http.Client,
) *HTTPClient {
	if httpClient == nil {
		httpClient = http_.NewHTTPClient(cfg.HTTPClientConfig, nil)
	}

	return &HTTPClient{
		httpClient: httpClient,
		log:        logging.GetLogger("svc.authsvc.authclient.http_client"),
		cfg:        cfg,
	}
}

// Register implements AuthClient.Register.
func (hc *HTTPClient) Register(ctx context.Context, registration domain.Registration) (err error) {
	log := hc.log.With(logging.Group("user", "username", registration.Username))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}()

	if err := ValidateRegistration(registration); err != nil {
		return err
	}

	resp, err := hc.post(ctx, RegisterPath, registration, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	return nil
}

// Login implements AuthClient.Login.
func (hc *HTTPClient) Login(ctx context.Context, credentials domain.Credentials) (_ string, err error) {
	log := hc.log.With(logging.Group("user", "username", credentials.Username))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}()

	if err := ValidateCredentials(credentials); err != nil {
		return "", err
	}

	resp, err := hc.post(ctx, LoginPath, credentials, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var tokenResp domain.AuthTokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&tokenResp); err != nil {
		return "", errors.Join(
			&domain.ServerError{StatusCode: resp.StatusCode},
			fmt.Errorf("decode token response: %w", err),
		)
	}

	if tokenResp.Token == "" {
		return "", errors.Join(&domain.ServerError{StatusCode: resp.StatusCode}, domain.ErrNoAuthToken)
	}

	return tokenResp.Token, nil
}

// Logout implements AuthClient.Logout.
func (hc *HTTPClient) Logout(ctx context.Context, token string) (err error) {
	defer func() {
		if err != nil {
			hc.log.WarnContext(ctx, "server logout failed", "error", err)
		} else {
			hc.log.DebugContext(ctx, "server logout done")
		}
	}()

	if token == "" {
		return nil
	}

	resp, err := hc.post(ctx, LogoutPath, nil, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusUnauthorized:
		// no logout endpoint, or the token is already gone server-side
		return nil
	}

	return checkStatus(resp)
}

// Validate implements AuthClient.Validate by asking the service's validate
// endpoint. The token is sent in the Authorization header. 401 and 403 mean
// the token is not valid; other non-2xx statuses are a *domain.ServerError.
func (hc *HTTPClient) Validate(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}

	resp, err := hc.post(ctx, ValidatePath, nil, token)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", false, nil
	}

	if err := checkStatus(resp); err != nil {
		return "", false, err
	}

	username, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", false, &domain.NetworkError{Op: "read validate response", Err: err}
	}

	return strings.TrimSpace(string(username)), true, nil
}

func (hc *HTTPClient) endpoint(path string) (string, error) {
	base, err := url.Parse(hc.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	return base.JoinPath(path).String(), nil
}

// post sends payload as JSON (or an empty body if payload is nil) and returns
// the response. Transport failures are reported as *domain.NetworkError.
func (hc *HTTPClient) post(ctx context.Context, path string, payload any, token string) (*http.Response, error) {
	endpoint, err := hc.endpoint(path)
	if err != nil {
		return nil, err
	}

	var body io.Reader = http.NoBody

	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}

		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	if payload != nil {
		req.Header.Set(ContentTypeHeader, ContentTypeJSON)
	}

	if token != "" {
		req.Header.Set(AuthorizationHeader, "Bearer "+token)
	}

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Op: "post " + path, Err: err}
	}

	return resp, nil
}

// checkStatus turns a non-2xx response into a *domain.ServerError carrying the
// service's {"error": "..."} message when the body has one.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	serverErr := &domain.ServerError{StatusCode: resp.StatusCode}

	var errResp domain.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&errResp); err == nil {
		serverErr.Message = strings.TrimSpace(errResp.Error)
	}

	return serverErr
}
