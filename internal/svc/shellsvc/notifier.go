package shellsvc

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	Level   Level
	Message string
}

// Notifier presents notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// WriterNotifier prints one line per notification.
type WriterNotifier struct {
	w io.Writer
	m sync.Mutex
}

var _ Notifier = (*WriterNotifier)(nil)

// NewWriterNotifier creates a notifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify implements Notifier. Write errors are dropped.
func (n *WriterNotifier) Notify(_ context.Context, notification Notification) {
	n.m.Lock()
	defer n.m.Unlock()

	_, _ = fmt.Fprintf(n.w, "%s: %s\n", notification.Level, notification.Message)
}
