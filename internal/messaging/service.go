// Package messaging provides the delivery channel for digests and reports.
package messaging

import (
	"context"
)

// Service defines a pluggable message delivery abstraction.
// Digest parts are plain markdown strings; the service owns formatting
// quirks of its channel (parse mode, escaping, rate limits).
type Service interface {
	// SendMessage delivers a single message to the configured chat.
	SendMessage(ctx context.Context, text string) error

	// Stop cleans up resources held by the service.
	Stop() error
}
