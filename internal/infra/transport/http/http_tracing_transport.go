package http

import (
	"net/http"

	"github.com/google/uuid"

	context_ "github.com/mkrupp/homecase-authshell/internal/infra/context"
)

const TraceIDHeader = "X-Request-ID"

// TracingTransport sets the X-Request-ID header of every outgoing request.
// It uses the trace ID from the request context if present, otherwise a new
// UUIDv7. The trace ID is also stored in the request context so downstream
// transports log it.
func TracingTransport(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		traceID := getTraceID(r)
		if traceID == "" {
			return next.RoundTrip(r)
		}

		r = r.Clone(context_.WithTraceID(r.Context(), traceID))
		r.Header.Set(TraceIDHeader, traceID)

		return next.RoundTrip(r)
	})
}

func getTraceID(r *http.Request) string {
	if traceID, ok := context_.TraceIDFromContext(r.Context()); ok {
		return traceID
	}

	if traceID := r.Header.Get(TraceIDHeader); traceID != "" {
		return traceID
	}

	id, err := uuid.NewV7()
	if err != nil {
		return ""
	}

	return id.String()
}
