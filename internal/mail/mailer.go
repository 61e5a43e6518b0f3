// Package mail provides the outbound email capability consumed by the
// delivery service. The transport is deliberately opaque: recipient,
// subject, body in; success or error out.
package mail

import "context"

// Transport sends a single message. Implementations must be safe for
// concurrent use; the worker pool delivers from multiple goroutines.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
}
