package logging

import (
	"log/slog"
)

// NewNopLogger returns a logger that discards everything.
// Tests and the "discard" output use it.
func NewNopLogger() Logger {
	return slog.New(slog.DiscardHandler)
}
