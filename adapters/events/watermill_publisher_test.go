package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/anchorkit/core"
)

func TestPublishAuthenticated(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubsub.Subscribe(ctx, AuthenticatedTopic)
	require.NoError(t, err)

	p := NewWatermillPublisher(pubsub)
	require.NoError(t, p.PublishAuthenticated(ctx, "GACCOUNT", "origin.example.com"))

	select {
	case msg := <-messages:
		var event AuthenticatedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "GACCOUNT", event.Account)
		assert.Equal(t, "origin.example.com", event.OriginDomain)
		assert.NotEmpty(t, event.EventID)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no authenticated event received")
	}
}

func TestPublishTransferStatus(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubsub.Subscribe(ctx, TransferStatusTopic)
	require.NoError(t, err)

	p := NewWatermillPublisher(pubsub)
	session := core.TransferSession{ID: "tx-1", Mode: "deposit", Status: core.StatusPendingAnchor}
	require.NoError(t, p.PublishTransferStatus(ctx, session))

	select {
	case msg := <-messages:
		var event TransferStatusEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "tx-1", event.TransferID)
		assert.Equal(t, string(core.StatusPendingAnchor), event.Status)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no transfer status event received")
	}
}
