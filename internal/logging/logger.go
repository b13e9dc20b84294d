// Package logging decouples the services from a concrete logging backend.
// Every component receives a Logger through its constructor, so tests can
// run against a discarded sink and the backend can change in one place.
package logging

import "context"

// Logger is a context-aware structured logger. The variadic args are
// alternating key-value pairs:
//
//	log.Info(ctx, "account verified", "email", email)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)

	Warn(ctx context.Context, msg string, args ...any)

	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always carries the given pairs.
	With(args ...any) Logger
}
