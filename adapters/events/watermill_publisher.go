// Package events publishes protocol lifecycle events so other instances
// (dashboards, audit consumers) can observe handshakes and transfers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/anchorkit/core"
	"github.com/layer-3/anchorkit/ports"
)

const (
	// AuthenticatedTopic carries completed-handshake events
	AuthenticatedTopic = "auth.authenticated"

	// TransferStatusTopic carries observed transfer status changes
	TransferStatusTopic = "transfer.status"
)

// AuthenticatedEvent is the payload published after a successful handshake.
type AuthenticatedEvent struct {
	EventID      string    `json:"event_id"`
	Account      string    `json:"account"`
	OriginDomain string    `json:"origin_domain"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// TransferStatusEvent is the payload published when a poll observes a new
// transfer status.
type TransferStatusEvent struct {
	EventID    string    `json:"event_id"`
	TransferID string    `json:"transfer_id"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill-based event publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// PublishAuthenticated announces a completed handshake for an account
func (p *WatermillPublisher) PublishAuthenticated(ctx context.Context, account, originDomain string) error {
	event := AuthenticatedEvent{
		EventID:      uuid.New().String(),
		Account:      account,
		OriginDomain: originDomain,
		OccurredAt:   time.Now().UTC(),
	}
	return p.publish(AuthenticatedTopic, event.EventID, event)
}

// PublishTransferStatus announces an observed transfer status change
func (p *WatermillPublisher) PublishTransferStatus(ctx context.Context, session core.TransferSession) error {
	event := TransferStatusEvent{
		EventID:    uuid.New().String(),
		TransferID: session.ID,
		Mode:       session.Mode,
		Status:     string(session.Status),
		Message:    session.Message,
		OccurredAt: time.Now().UTC(),
	}
	return p.publish(TransferStatusTopic, event.EventID, event)
}

func (p *WatermillPublisher) publish(topic, id string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, data)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// NopPublisher is an EventPublisher that discards every event. Used where no
// message broker is wired.
type NopPublisher struct{}

// PublishAuthenticated implements the EventPublisher interface.
func (NopPublisher) PublishAuthenticated(ctx context.Context, account, originDomain string) error {
	return nil
}

// PublishTransferStatus implements the EventPublisher interface.
func (NopPublisher) PublishTransferStatus(ctx context.Context, session core.TransferSession) error {
	return nil
}
