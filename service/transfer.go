package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/layer-3/anchorkit/core"
	"github.com/layer-3/anchorkit/ports"
)

// TransferMode selects the direction of an interactive transfer.
type TransferMode string

const (
	// ModeDeposit moves value from the outside world onto the network
	ModeDeposit TransferMode = "deposit"

	// ModeWithdraw moves value off the network
	ModeWithdraw TransferMode = "withdraw"
)

func (m TransferMode) valid() bool {
	return m == ModeDeposit || m == ModeWithdraw
}

// TransferState tracks where a transfer session is in its lifecycle.
type TransferState int

const (
	// TransferNotStarted is the state before initiation
	TransferNotStarted TransferState = iota

	// TransferInitiating means the initiation call is in flight
	TransferInitiating

	// TransferAwaitingInteraction means the interactive URL was issued and the
	// user has not completed the out-of-band flow yet
	TransferAwaitingInteraction

	// TransferPolling means at least one status poll has run and the status is
	// still non-terminal
	TransferPolling

	// TransferTerminal means the status reached completed or error
	TransferTerminal
)

var transferStateNames = map[TransferState]string{
	TransferNotStarted:          "not_started",
	TransferInitiating:          "initiating",
	TransferAwaitingInteraction: "awaiting_interaction",
	TransferPolling:             "polling",
	TransferTerminal:            "terminal",
}

// String implements fmt.Stringer.
func (s TransferState) String() string {
	if name, ok := transferStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Session is one interactive transfer flow. Its status is only ever advanced
// by re-fetching from the verifier; a failed poll leaves it pollable.
type Session struct {
	state TransferState
	data  core.TransferSession
}

// State returns the session's lifecycle state.
func (s *Session) State() TransferState { return s.state }

// Data returns the last verifier-reported view of the session.
func (s *Session) Data() core.TransferSession { return s.data }

// Reset discards the session state so a new flow can be started.
func (s *Session) Reset() {
	*s = Session{}
}

// InitiateRequest is the caller-supplied input for starting a transfer.
type InitiateRequest struct {
	AssetCode string
	Account   string
	Amount    string // optional; passed through unmodified when present
}

// statusTTL bounds how long a last-observed status is kept in the store.
const statusTTL = 24 * time.Hour

// SessionTracker drives interactive transfer sessions against a verifier's
// transfer endpoint, authenticated by the access token the handshake
// produced. Polling cadence is the caller's decision; the tracker never
// schedules its own retries.
type SessionTracker struct {
	anchorDomain string
	resolver     ports.Resolver
	client       ports.Doer
	store        ports.Store
	events       ports.EventPublisher
	log          *slog.Logger
}

// NewSessionTracker creates a tracker for the given verifier domain.
func NewSessionTracker(
	anchorDomain string,
	resolver ports.Resolver,
	client ports.Doer,
	store ports.Store,
	events ports.EventPublisher,
	log *slog.Logger,
) *SessionTracker {
	if log == nil {
		log = slog.Default()
	}
	return &SessionTracker{
		anchorDomain: anchorDomain,
		resolver:     resolver,
		client:       client,
		store:        store,
		events:       events,
		log:          log,
	}
}

// Initiate starts an interactive deposit or withdraw. Local validation runs
// before any network call: required fields, mode, and the optional amount,
// which must parse as a positive decimal when present.
func (t *SessionTracker) Initiate(ctx context.Context, mode TransferMode, req InitiateRequest, token core.AccessToken) (*Session, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("%w: mode must be deposit or withdraw", core.ErrMissingField)
	}
	if req.AssetCode == "" {
		return nil, fmt.Errorf("%w: asset_code", core.ErrMissingField)
	}
	if req.Account == "" {
		return nil, fmt.Errorf("%w: account", core.ErrMissingField)
	}
	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || !amount.IsPositive() {
			return nil, fmt.Errorf("%w: %q", core.ErrInvalidAmount, req.Amount)
		}
	}

	endpoints, err := t.resolver.Resolve(ctx, t.anchorDomain)
	if err != nil {
		return nil, err
	}
	if endpoints.Transfer == "" {
		return nil, fmt.Errorf("%w: TRANSFER_SERVER", core.ErrEndpointNotAdvertised)
	}

	session := &Session{state: TransferInitiating}

	body := map[string]string{
		"asset_code": req.AssetCode,
		"account":    req.Account,
	}
	if req.Amount != "" {
		body["amount"] = req.Amount
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInitiationFailed, err)
	}

	initURL := fmt.Sprintf("%s/transactions/%s/interactive", endpoints.Transfer, mode)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, initURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInitiationFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+string(token))

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInitiationFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInitiationFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &core.RejectionError{Kind: core.ErrInitiationFailed, Status: resp.StatusCode, Body: respBody}
	}

	var initResp struct {
		ID   string `json:"id"`
		URL  string `json:"url"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(respBody, &initResp); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInitiationFailed, err)
	}
	if initResp.ID == "" || initResp.URL == "" {
		return nil, &core.RejectionError{Kind: core.ErrInitiationFailed, Status: resp.StatusCode, Body: respBody}
	}

	session.data = core.TransferSession{
		ID:             initResp.ID,
		Mode:           string(mode),
		InteractiveURL: initResp.URL,
		AssetCode:      req.AssetCode,
	}
	session.state = TransferAwaitingInteraction

	t.log.Info("transfer initiated", "mode", mode, "id", initResp.ID, "asset", req.AssetCode)

	return session, nil
}

// Status fetches the verifier's current view of a transfer by id. Each call
// is independent; nothing is cached or derived locally.
func (t *SessionTracker) Status(ctx context.Context, id string, token core.AccessToken) (core.TransferSession, error) {
	if id == "" {
		return core.TransferSession{}, fmt.Errorf("%w: id", core.ErrMissingField)
	}

	endpoints, err := t.resolver.Resolve(ctx, t.anchorDomain)
	if err != nil {
		return core.TransferSession{}, err
	}
	if endpoints.Transfer == "" {
		return core.TransferSession{}, fmt.Errorf("%w: TRANSFER_SERVER", core.ErrEndpointNotAdvertised)
	}

	statusURL := fmt.Sprintf("%s/transaction?%s", endpoints.Transfer, url.Values{"id": {id}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return core.TransferSession{}, fmt.Errorf("%w: %v", core.ErrPollTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+string(token))

	resp, err := t.client.Do(req)
	if err != nil {
		return core.TransferSession{}, fmt.Errorf("%w: %v", core.ErrPollTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.TransferSession{}, fmt.Errorf("%w: %v", core.ErrPollTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return core.TransferSession{}, &core.RejectionError{Kind: core.ErrPollTransport, Status: resp.StatusCode, Body: body}
	}

	var statusResp struct {
		Transaction struct {
			ID        string    `json:"id"`
			Status    string    `json:"status"`
			Message   string    `json:"message"`
			AmountIn  string    `json:"amount_in"`
			AssetCode string    `json:"asset_code"`
			StartedAt time.Time `json:"started_at"`
		} `json:"transaction"`
	}
	if err := json.Unmarshal(body, &statusResp); err != nil {
		return core.TransferSession{}, fmt.Errorf("%w: %v", core.ErrPollTransport, err)
	}

	return core.TransferSession{
		ID:        statusResp.Transaction.ID,
		Status:    core.TransferStatus(statusResp.Transaction.Status),
		Message:   statusResp.Transaction.Message,
		AmountIn:  statusResp.Transaction.AmountIn,
		AssetCode: statusResp.Transaction.AssetCode,
		StartedAt: statusResp.Transaction.StartedAt,
	}, nil
}

// Poll refreshes the session from the verifier and advances its lifecycle
// state: Terminal when the status is completed or error, Polling otherwise.
// A transport failure leaves the session exactly as it was.
func (t *SessionTracker) Poll(ctx context.Context, session *Session, token core.AccessToken) (core.TransferStatus, error) {
	fetched, err := t.Status(ctx, session.data.ID, token)
	if err != nil {
		return "", err
	}

	previous := session.data.Status
	session.data.Status = fetched.Status
	session.data.Message = fetched.Message
	if fetched.AmountIn != "" {
		session.data.AmountIn = fetched.AmountIn
	}
	if !fetched.StartedAt.IsZero() {
		session.data.StartedAt = fetched.StartedAt
	}

	if fetched.Status.Terminal() {
		session.state = TransferTerminal
	} else {
		session.state = TransferPolling
	}

	if fetched.Status != previous {
		t.recordStatus(ctx, session.data)
	}

	return fetched.Status, nil
}

// recordStatus persists the last observed status and announces the change.
// Both are best effort; observation never fails a poll.
func (t *SessionTracker) recordStatus(ctx context.Context, data core.TransferSession) {
	if t.store != nil {
		if err := t.store.Set(ctx, "transfer:"+data.ID, string(data.Status), statusTTL); err != nil {
			t.log.Warn("failed to record transfer status", "id", data.ID, "error", err)
		}
	}
	if t.events != nil {
		if err := t.events.PublishTransferStatus(ctx, data); err != nil {
			t.log.Warn("failed to publish transfer status event", "id", data.ID, "error", err)
		}
	}
}

// LastObserved returns the most recent status recorded for a transfer id,
// from this or any other instance sharing the store.
func (t *SessionTracker) LastObserved(ctx context.Context, id string) (core.TransferStatus, error) {
	if t.store == nil {
		return "", ports.ErrNotFound
	}
	value, err := t.store.Get(ctx, "transfer:"+id)
	if err != nil {
		return "", err
	}
	return core.TransferStatus(value), nil
}
