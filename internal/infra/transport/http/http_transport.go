package http

import (
	"net/http"
	"time"

	"github.com/mkrupp/homecase-authshell/internal/infra/logging"
)

// HTTPClientConfig contains configuration parameters for outgoing HTTP requests.
type HTTPClientConfig struct {
	// Timeout bounds a whole request including reading the response body
	Timeout time.Duration `env:"TIMEOUT" default:"10s"`
}

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// NewHTTPClient returns an *http.Client whose transport adds tracing, logging
// and panic recovery around base. If base is nil, http.DefaultTransport is used.
func NewHTTPClient(cfg HTTPClientConfig, base http.RoundTripper) *http.Client {
	log := logging.GetLogger("infra.transport.http")

	if base == nil {
		base = http.DefaultTransport
	}

	transport := RescueingTransport(base, log)
	transport = LoggingTransport(transport, log)
	transport = TracingTransport(transport)

	//nolint:exhaustruct
	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}
