// Package context carries request-scoped values shared by logging and the
// auth client: the trace id of the current operation and the session user.
package context

type contextKey string
