package service

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/anchorkit/adapters/resolver"
	"github.com/layer-3/anchorkit/adapters/store"
	"github.com/layer-3/anchorkit/core"
)

const testToken = core.AccessToken("header.payload.signature")

func newTrackerFixture(t *testing.T) (*testAnchor, *SessionTracker, *store.MemoryStore) {
	t.Helper()

	anchor := newTestAnchor(t)
	memStore := store.NewMemoryStore()
	tracker := NewSessionTracker(
		anchor.domain(),
		resolver.NewTOMLResolver(http.DefaultClient, "http"),
		http.DefaultClient,
		memStore,
		nil,
		slog.Default(),
	)
	return anchor, tracker, memStore
}

func TestInitiateDeposit(t *testing.T) {
	_, tracker, _ := newTrackerFixture(t)

	session, err := tracker.Initiate(context.Background(), ModeDeposit, InitiateRequest{
		AssetCode: "USDC",
		Account:   "GACCOUNT",
		Amount:    "100",
	}, testToken)
	require.NoError(t, err)

	assert.Equal(t, TransferAwaitingInteraction, session.State())
	assert.NotEmpty(t, session.Data().ID)
	assert.NotEmpty(t, session.Data().InteractiveURL)
	assert.Equal(t, "deposit", session.Data().Mode)
}

func TestInitiateMissingFieldsMakeNoCall(t *testing.T) {
	anchor, tracker, _ := newTrackerFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		mode TransferMode
		req  InitiateRequest
		want error
	}{
		{"missing asset code", ModeDeposit, InitiateRequest{Account: "G"}, core.ErrMissingField},
		{"missing account", ModeWithdraw, InitiateRequest{AssetCode: "USDC"}, core.ErrMissingField},
		{"bad mode", TransferMode("sideways"), InitiateRequest{AssetCode: "USDC", Account: "G"}, core.ErrMissingField},
		{"negative amount", ModeDeposit, InitiateRequest{AssetCode: "USDC", Account: "G", Amount: "-5"}, core.ErrInvalidAmount},
		{"zero amount", ModeDeposit, InitiateRequest{AssetCode: "USDC", Account: "G", Amount: "0"}, core.ErrInvalidAmount},
		{"non-decimal amount", ModeDeposit, InitiateRequest{AssetCode: "USDC", Account: "G", Amount: "lots"}, core.ErrInvalidAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tracker.Initiate(ctx, tc.mode, tc.req, testToken)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Equal(t, int32(0), anchor.transferCalls.Load(), "local validation failures must produce zero network calls")
}

func TestInitiateTransferEndpointNotAdvertised(t *testing.T) {
	anchor, tracker, _ := newTrackerFixture(t)
	anchor.advertiseTransfer = false

	_, err := tracker.Initiate(context.Background(), ModeDeposit, InitiateRequest{
		AssetCode: "USDC",
		Account:   "GACCOUNT",
	}, testToken)

	assert.ErrorIs(t, err, core.ErrEndpointNotAdvertised)
	assert.Equal(t, int32(0), anchor.transferCalls.Load(), "no transfer call without an advertised endpoint")
}

func TestInitiateAmountPassedThrough(t *testing.T) {
	_, tracker, _ := newTrackerFixture(t)

	// Amount is optional; absence is fine.
	_, err := tracker.Initiate(context.Background(), ModeWithdraw, InitiateRequest{
		AssetCode: "USDC",
		Account:   "GACCOUNT",
	}, testToken)
	require.NoError(t, err)
}

func TestPollNonTerminalStaysPolling(t *testing.T) {
	anchor, tracker, _ := newTrackerFixture(t)
	ctx := context.Background()

	session, err := tracker.Initiate(ctx, ModeDeposit, InitiateRequest{AssetCode: "USDC", Account: "G"}, testToken)
	require.NoError(t, err)

	for _, status := range []string{"incomplete", "pending_user_transfer_start", "pending_anchor", "pending_external"} {
		anchor.transferStatus = status

		got, err := tracker.Poll(ctx, session, testToken)
		require.NoError(t, err)
		assert.Equal(t, core.TransferStatus(status), got)
		assert.Equal(t, TransferPolling, session.State(), "status %q must keep the session polling", status)
	}
}

func TestPollTerminalDetection(t *testing.T) {
	for _, status := range []core.TransferStatus{core.StatusCompleted, core.StatusError} {
		t.Run(string(status), func(t *testing.T) {
			anchor, tracker, _ := newTrackerFixture(t)
			ctx := context.Background()

			session, err := tracker.Initiate(ctx, ModeDeposit, InitiateRequest{AssetCode: "USDC", Account: "G"}, testToken)
			require.NoError(t, err)

			anchor.transferStatus = string(status)
			got, err := tracker.Poll(ctx, session, testToken)
			require.NoError(t, err)
			assert.Equal(t, status, got)
			assert.Equal(t, TransferTerminal, session.State())
		})
	}
}

func TestPollRecordsLastObservedStatus(t *testing.T) {
	anchor, tracker, _ := newTrackerFixture(t)
	ctx := context.Background()

	session, err := tracker.Initiate(ctx, ModeDeposit, InitiateRequest{AssetCode: "USDC", Account: "G"}, testToken)
	require.NoError(t, err)

	anchor.transferStatus = string(core.StatusPendingAnchor)
	_, err = tracker.Poll(ctx, session, testToken)
	require.NoError(t, err)

	last, err := tracker.LastObserved(ctx, session.Data().ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPendingAnchor, last)
}

func TestPollTransportFailureLeavesSessionPollable(t *testing.T) {
	anchor, tracker, _ := newTrackerFixture(t)
	ctx := context.Background()

	session, err := tracker.Initiate(ctx, ModeDeposit, InitiateRequest{AssetCode: "USDC", Account: "G"}, testToken)
	require.NoError(t, err)
	id := session.Data().ID

	// First poll succeeds, then the anchor goes away.
	_, err = tracker.Poll(ctx, session, testToken)
	require.NoError(t, err)

	anchor.srv.Close()

	// Resolution is cached, so the failure surfaces as a poll transport error.
	_, err = tracker.Poll(ctx, session, testToken)
	assert.ErrorIs(t, err, core.ErrPollTransport)

	assert.Equal(t, id, session.Data().ID, "a failed poll must not invalidate the session")
	assert.NotEqual(t, TransferTerminal, session.State())
}

func TestSessionReset(t *testing.T) {
	_, tracker, _ := newTrackerFixture(t)

	session, err := tracker.Initiate(context.Background(), ModeDeposit, InitiateRequest{AssetCode: "USDC", Account: "G"}, testToken)
	require.NoError(t, err)

	session.Reset()
	assert.Equal(t, TransferNotStarted, session.State())
	assert.Empty(t, session.Data().ID)
}
