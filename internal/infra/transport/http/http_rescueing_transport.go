package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mkrupp/homecase-authshell/internal/infra/logging"
)

// ErrTransportPanic is returned when a transport panicked during a round trip.
var ErrTransportPanic = errors.New("transport panic")

// RescueingTransport recovers from panics in the wrapped transport, logs the
// panic with its stack trace and turns it into an error.
func RescueingTransport(next http.RoundTripper, log logging.Logger) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (resp *http.Response, err error) {
		defer func() {
			if p := recover(); p != nil {
				log.ErrorContext(r.Context(), "transport panic", slog.Group("http",
					"url", r.URL.Redacted(),
					"method", r.Method,
				), slog.Group("error",
					"panic", p,
					"stack", string(debug.Stack()),
				))

				resp, err = nil, fmt.Errorf("%w: %v", ErrTransportPanic, p)
			}
		}()

		return next.RoundTrip(r)
	})
}
