package ports

import (
	"context"

	"github.com/layer-3/anchorkit/core"
)

// EventPublisher publishes protocol lifecycle events to notify other instances
type EventPublisher interface {
	// PublishAuthenticated announces a completed handshake for an account
	PublishAuthenticated(ctx context.Context, account, originDomain string) error

	// PublishTransferStatus announces an observed transfer status change
	PublishTransferStatus(ctx context.Context, session core.TransferSession) error
}
