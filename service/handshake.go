package service

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/layer-3/anchorkit/core"
	"github.com/layer-3/anchorkit/internal/strkey"
	"github.com/layer-3/anchorkit/ports"
)

// HandshakeState tracks where a handshake is in the protocol.
type HandshakeState int

const (
	// StateIdle is the initial state before any request is made
	StateIdle HandshakeState = iota

	// StateChallengeRequested means the challenge request is in flight
	StateChallengeRequested

	// StateChallengeReceived means a validated challenge is held, awaiting the subject
	StateChallengeReceived

	// StateSubjectSigned means the subject's signature arrived from its own trust boundary
	StateSubjectSigned

	// StateOriginSigned means the origin co-signature has been appended
	StateOriginSigned

	// StateSubmitted means the fully signed envelope is in flight to the verifier
	StateSubmitted

	// StateAuthenticated means the verifier issued an access token
	StateAuthenticated

	// StateFailed means the handshake is dead; see Handshake.Err
	StateFailed
)

var handshakeStateNames = map[HandshakeState]string{
	StateIdle:               "idle",
	StateChallengeRequested: "challenge_requested",
	StateChallengeReceived:  "challenge_received",
	StateSubjectSigned:      "subject_signed",
	StateOriginSigned:       "origin_signed",
	StateSubmitted:          "submitted",
	StateAuthenticated:      "authenticated",
	StateFailed:             "failed",
}

// String implements fmt.Stringer.
func (s HandshakeState) String() string {
	if name, ok := handshakeStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Handshake is the state of one challenge-response flow for one account.
// A handshake holds no shared resources: concurrent handshakes for different
// accounts are fully independent, and the wait for the subject's signature
// (which may take arbitrarily long) blocks nothing but the handshake itself.
type Handshake struct {
	state     HandshakeState
	subject   string
	challenge core.Challenge
	envelope  string // latest envelope: challenge, then subject-signed, then fully signed
	endpoints ports.Endpoints
	token     core.AccessToken
	err       error
}

// State returns the handshake's current protocol state.
func (h *Handshake) State() HandshakeState { return h.state }

// Challenge returns the challenge held by the handshake.
func (h *Handshake) Challenge() core.Challenge { return h.challenge }

// Token returns the access token once the handshake is authenticated.
func (h *Handshake) Token() core.AccessToken { return h.token }

// Err returns the error that moved the handshake to StateFailed, if any.
func (h *Handshake) Err() error { return h.err }

func (h *Handshake) fail(err error) error {
	h.state = StateFailed
	h.err = err
	return err
}

// ChallengePolicy controls the structural validation applied to a challenge
// before the subject is ever asked to sign it. The exact rules are
// verifier-specific, so they are configuration rather than hard-coded.
type ChallengePolicy struct {
	// RequireSourceMatch rejects challenges issued for a different account
	// than the one that requested them.
	RequireSourceMatch bool

	// MaxValidity caps the challenge validity window; zero means no cap.
	MaxValidity time.Duration

	// ValidateOperations, when set, inspects the challenge's operation list.
	ValidateOperations func(env *core.Envelope) error
}

// DefaultChallengePolicy returns the validation applied out of the box.
func DefaultChallengePolicy() ChallengePolicy {
	return ChallengePolicy{
		RequireSourceMatch: true,
		MaxValidity:        time.Hour,
	}
}

// HandshakeEngine orchestrates the challenge-response handshake against a
// verifier: challenge request, structural validation, origin co-signing and
// submission. The subject's signature is produced outside the engine, in the
// subject's own trust boundary; the engine only ever sees its result.
type HandshakeEngine struct {
	anchorDomain string
	resolver     ports.Resolver
	codec        ports.Codec
	signer       ports.OriginSigner
	client       ports.Doer
	events       ports.EventPublisher
	policy       ChallengePolicy
	log          *slog.Logger

	now func() time.Time
}

// NewHandshakeEngine creates a handshake engine for the given verifier domain.
func NewHandshakeEngine(
	anchorDomain string,
	resolver ports.Resolver,
	codec ports.Codec,
	signer ports.OriginSigner,
	client ports.Doer,
	events ports.EventPublisher,
	log *slog.Logger,
) *HandshakeEngine {
	if log == nil {
		log = slog.Default()
	}
	return &HandshakeEngine{
		anchorDomain: anchorDomain,
		resolver:     resolver,
		codec:        codec,
		signer:       signer,
		client:       client,
		events:       events,
		policy:       DefaultChallengePolicy(),
		log:          log,
		now:          time.Now,
	}
}

// SetChallengePolicy replaces the challenge validation policy.
func (e *HandshakeEngine) SetChallengePolicy(policy ChallengePolicy) {
	e.policy = policy
}

// RequestChallenge resolves the verifier's auth endpoint and requests a
// challenge for the subject account, carrying the origin's domain identity.
// The returned handshake holds a validated challenge awaiting the subject's
// signature.
func (e *HandshakeEngine) RequestChallenge(ctx context.Context, subjectAccount string) (*Handshake, error) {
	h := &Handshake{state: StateIdle, subject: subjectAccount}

	endpoints, err := e.resolver.Resolve(ctx, e.anchorDomain)
	if err != nil {
		return h, h.fail(err)
	}
	if endpoints.WebAuth == "" {
		return h, h.fail(fmt.Errorf("%w: WEB_AUTH_ENDPOINT", core.ErrEndpointNotAdvertised))
	}
	h.endpoints = endpoints
	h.state = StateChallengeRequested

	query := url.Values{}
	query.Set("account", subjectAccount)
	query.Set("client_domain", e.signer.Domain())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoints.WebAuth+"?"+query.Encode(), nil)
	if err != nil {
		return h, h.fail(fmt.Errorf("%w: %v", core.ErrChallengeRequestFailed, err))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return h, h.fail(fmt.Errorf("%w: %v", core.ErrChallengeRequestFailed, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return h, h.fail(fmt.Errorf("%w: %v", core.ErrChallengeRequestFailed, err))
	}
	if resp.StatusCode != http.StatusOK {
		return h, h.fail(&core.RejectionError{Kind: core.ErrChallengeRequestFailed, Status: resp.StatusCode, Body: body})
	}

	var challengeResp struct {
		Transaction       string `json:"transaction"`
		NetworkPassphrase string `json:"network_passphrase"`
	}
	if err := json.Unmarshal(body, &challengeResp); err != nil {
		return h, h.fail(fmt.Errorf("%w: %v", core.ErrChallengeRequestFailed, err))
	}

	env, err := e.codec.Decode(challengeResp.Transaction, challengeResp.NetworkPassphrase)
	if err != nil {
		return h, h.fail(err)
	}

	if err := e.validateChallenge(env, subjectAccount); err != nil {
		return h, h.fail(err)
	}

	h.challenge = core.Challenge{
		Envelope:   challengeResp.Transaction,
		NetworkID:  challengeResp.NetworkPassphrase,
		Source:     env.Source,
		TimeBounds: env.TimeBounds,
	}
	h.envelope = challengeResp.Transaction
	h.state = StateChallengeReceived

	e.log.Debug("challenge received",
		"account", subjectAccount,
		"network", challengeResp.NetworkPassphrase,
		"not_after", env.TimeBounds.Max)

	return h, nil
}

// Resume reconstructs a handshake from a subject-signed envelope, for callers
// that did not keep the handshake across the signing suspension (a stateless
// origin backend serving browser clients, typically).
func (e *HandshakeEngine) Resume(subjectSignedEnvelope, networkID string) (*Handshake, error) {
	env, err := e.codec.Decode(subjectSignedEnvelope, networkID)
	if err != nil {
		return nil, err
	}

	return &Handshake{
		state:   StateSubjectSigned,
		subject: env.Source,
		challenge: core.Challenge{
			Envelope:   subjectSignedEnvelope,
			NetworkID:  networkID,
			Source:     env.Source,
			TimeBounds: env.TimeBounds,
		},
		envelope: subjectSignedEnvelope,
	}, nil
}

// CoSign validates the subject-signed envelope and appends the origin's
// signature. The expiry is re-checked here: the subject's signing step may
// have taken arbitrarily long, and an expired challenge must never gain the
// origin's signature.
func (e *HandshakeEngine) CoSign(ctx context.Context, h *Handshake, subjectSignedEnvelope string) error {
	networkID := h.challenge.NetworkID

	env, err := e.codec.Decode(subjectSignedEnvelope, networkID)
	if err != nil {
		return h.fail(err)
	}
	h.state = StateSubjectSigned

	if env.TimeBounds.Expired(e.now()) {
		return h.fail(fmt.Errorf("%w: not valid after %d", core.ErrChallengeExpired, env.TimeBounds.Max))
	}

	if h.subject != "" && e.policy.RequireSourceMatch && env.Source != h.subject {
		return h.fail(fmt.Errorf("%w: envelope is for %s", core.ErrSourceAccountMismatch, env.Source))
	}

	if e.signedByAccount(env, networkID, e.signer.PublicKey()) {
		return h.fail(fmt.Errorf("%w: origin %s", core.ErrDuplicateSignature, e.signer.PublicKey()))
	}

	if !e.signedByAccount(env, networkID, env.Source) {
		return h.fail(core.ErrSubjectSignatureMissing)
	}

	sig, err := e.signer.Sign(ctx, subjectSignedEnvelope, networkID)
	if err != nil {
		return h.fail(err)
	}

	fullEnvelope, err := e.codec.AppendSignature(env, sig)
	if err != nil {
		return h.fail(err)
	}

	h.envelope = fullEnvelope
	h.state = StateOriginSigned
	return nil
}

// Submit posts the fully co-signed envelope to the verifier and returns the
// issued access token. Expiry and the dual-signature invariant are checked
// locally first; a stale or half-signed envelope produces zero network calls.
func (e *HandshakeEngine) Submit(ctx context.Context, h *Handshake) (core.AccessToken, error) {
	networkID := h.challenge.NetworkID

	env, err := e.codec.Decode(h.envelope, networkID)
	if err != nil {
		return "", h.fail(err)
	}

	if env.TimeBounds.Expired(e.now()) {
		return "", h.fail(fmt.Errorf("%w: not valid after %d", core.ErrChallengeExpired, env.TimeBounds.Max))
	}

	if !e.signedByAccount(env, networkID, env.Source) {
		return "", h.fail(core.ErrSubjectSignatureMissing)
	}
	if !e.signedByAccount(env, networkID, e.signer.PublicKey()) {
		return "", h.fail(fmt.Errorf("%w: origin signature missing", core.ErrChallengeInvalid))
	}

	endpoints := h.endpoints
	if endpoints.WebAuth == "" {
		endpoints, err = e.resolver.Resolve(ctx, e.anchorDomain)
		if err != nil {
			return "", h.fail(err)
		}
		if endpoints.WebAuth == "" {
			return "", h.fail(fmt.Errorf("%w: WEB_AUTH_ENDPOINT", core.ErrEndpointNotAdvertised))
		}
	}

	payload, err := json.Marshal(map[string]string{"transaction": h.envelope})
	if err != nil {
		return "", h.fail(fmt.Errorf("%w: %v", core.ErrSubmissionTransport, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoints.WebAuth, bytes.NewReader(payload))
	if err != nil {
		return "", h.fail(fmt.Errorf("%w: %v", core.ErrSubmissionTransport, err))
	}
	req.Header.Set("Content-Type", "application/json")
	h.state = StateSubmitted

	resp, err := e.client.Do(req)
	if err != nil {
		return "", h.fail(fmt.Errorf("%w: %v", core.ErrSubmissionTransport, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", h.fail(fmt.Errorf("%w: %v", core.ErrSubmissionTransport, err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", h.fail(&core.RejectionError{Kind: core.ErrSubmissionRejected, Status: resp.StatusCode, Body: body})
	}

	var tokenResp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", h.fail(&core.RejectionError{Kind: core.ErrSubmissionRejected, Status: resp.StatusCode, Body: body})
	}
	if tokenResp.Token == "" {
		return "", h.fail(&core.RejectionError{Kind: core.ErrSubmissionRejected, Status: resp.StatusCode, Body: body})
	}

	h.token = core.AccessToken(tokenResp.Token)
	h.state = StateAuthenticated

	e.log.Info("handshake authenticated", "account", h.subject, "origin", e.signer.Domain())

	if e.events != nil {
		if err := e.events.PublishAuthenticated(ctx, h.subject, e.signer.Domain()); err != nil {
			// The token is already issued; event delivery is best effort.
			e.log.Warn("failed to publish authenticated event", "error", err)
		}
	}

	return h.token, nil
}

// Authenticate is the resume-and-complete convenience: co-sign a
// subject-signed envelope and submit it in one call.
func (e *HandshakeEngine) Authenticate(ctx context.Context, subjectSignedEnvelope, networkID string) (core.AccessToken, error) {
	h, err := e.Resume(subjectSignedEnvelope, networkID)
	if err != nil {
		return "", err
	}
	if err := e.CoSign(ctx, h, subjectSignedEnvelope); err != nil {
		return "", err
	}
	return e.Submit(ctx, h)
}

// validateChallenge applies the challenge policy before the subject is asked
// to sign anything.
func (e *HandshakeEngine) validateChallenge(env *core.Envelope, subjectAccount string) error {
	if e.policy.RequireSourceMatch && env.Source != subjectAccount {
		return fmt.Errorf("%w: challenge is for %s", core.ErrSourceAccountMismatch, env.Source)
	}

	if env.TimeBounds.Expired(e.now()) {
		return fmt.Errorf("%w: not valid after %d", core.ErrChallengeExpired, env.TimeBounds.Max)
	}

	if e.policy.MaxValidity > 0 {
		window := time.Duration(env.TimeBounds.Max-env.TimeBounds.Min) * time.Second
		if env.TimeBounds.Max != 0 && window > e.policy.MaxValidity {
			return fmt.Errorf("%w: validity window %s exceeds cap %s", core.ErrChallengeInvalid, window, e.policy.MaxValidity)
		}
	}

	if e.policy.ValidateOperations != nil {
		if err := e.policy.ValidateOperations(env); err != nil {
			return fmt.Errorf("%w: %v", core.ErrChallengeInvalid, err)
		}
	}

	return nil
}

// signedByAccount reports whether the envelope carries a signature verifiable
// by the given account's public key.
func (e *HandshakeEngine) signedByAccount(env *core.Envelope, networkID, account string) bool {
	pub, err := strkey.Decode(strkey.VersionAccount, account)
	if err != nil {
		return false
	}

	base := env.SigningBase(networkID)
	var hint [4]byte
	copy(hint[:], pub[len(pub)-4:])

	for _, sig := range env.Signatures {
		if sig.Hint != hint {
			continue
		}
		if ed25519.Verify(ed25519.PublicKey(pub), base, sig.Signature) {
			return true
		}
	}
	return false
}
