package service

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/anchorkit/adapters/codec"
	"github.com/layer-3/anchorkit/core"
)

const testNetwork = "Test Anchor Network ; 2025"

// testAnchor is an in-process verifier: it serves the directory document,
// issues challenges, verifies submissions and runs the transfer endpoints.
type testAnchor struct {
	t     *testing.T
	codec *codec.CBORCodec
	srv   *httptest.Server

	// knobs
	advertiseAuth     bool
	advertiseTransfer bool
	issueFor          string        // issue challenges for this account instead of the requested one
	challengeTTL      time.Duration // validity window of issued challenges
	rejectSubmission  string        // when set, submissions fail 400 with this raw body
	transferStatus    string        // status reported by the transaction endpoint

	authCalls     atomic.Int32
	submitCalls   atomic.Int32
	transferCalls atomic.Int32
}

func newTestAnchor(t *testing.T) *testAnchor {
	t.Helper()

	a := &testAnchor{
		t:                 t,
		codec:             codec.NewCBORCodec(),
		advertiseAuth:     true,
		advertiseTransfer: true,
		challengeTTL:      5 * time.Minute,
		transferStatus:    string(core.StatusIncomplete),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/anchor.toml", a.handleDirectory)
	mux.HandleFunc("/auth", a.handleAuth)
	mux.HandleFunc("/sep/transactions/deposit/interactive", a.handleInteractive("deposit"))
	mux.HandleFunc("/sep/transactions/withdraw/interactive", a.handleInteractive("withdraw"))
	mux.HandleFunc("/sep/transaction", a.handleTransaction)

	a.srv = httptest.NewServer(mux)
	t.Cleanup(a.srv.Close)
	return a
}

// domain returns the anchor's host:port, usable as a resolver domain with the
// http scheme.
func (a *testAnchor) domain() string {
	return a.srv.Listener.Addr().String()
}

func (a *testAnchor) handleDirectory(w http.ResponseWriter, r *http.Request) {
	if a.advertiseAuth {
		fmt.Fprintf(w, "WEB_AUTH_ENDPOINT = %q\n", a.srv.URL+"/auth")
	}
	if a.advertiseTransfer {
		fmt.Fprintf(w, "TRANSFER_SERVER = %q\n", a.srv.URL+"/sep")
	}
}

func (a *testAnchor) handleAuth(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.issueChallenge(w, r)
	case http.MethodPost:
		a.acceptSubmission(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *testAnchor) issueChallenge(w http.ResponseWriter, r *http.Request) {
	a.authCalls.Add(1)

	account := r.URL.Query().Get("account")
	if a.issueFor != "" {
		account = a.issueFor
	}

	nonce := make([]byte, 32)
	_, err := rand.Read(nonce)
	require.NoError(a.t, err)

	now := time.Now()
	env := &core.Envelope{
		Source:     account,
		TimeBounds: core.TimeBounds{Min: now.Add(-5 * time.Second).Unix(), Max: now.Add(a.challengeTTL).Unix()},
		Nonce:      nonce,
		Operations: []core.Operation{
			{Name: a.domain() + " auth", Value: nonce},
			{Name: "client_domain", Value: []byte(r.URL.Query().Get("client_domain"))},
		},
	}
	envelope, err := a.codec.Encode(env)
	require.NoError(a.t, err)

	a.writeJSON(w, map[string]string{
		"transaction":        envelope,
		"network_passphrase": testNetwork,
	})
}

func (a *testAnchor) acceptSubmission(w http.ResponseWriter, r *http.Request) {
	a.submitCalls.Add(1)

	if a.rejectSubmission != "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, a.rejectSubmission)
		return
	}

	var req struct {
		Transaction string `json:"transaction"`
	}
	require.NoError(a.t, json.NewDecoder(r.Body).Decode(&req))

	env, err := a.codec.Decode(req.Transaction, testNetwork)
	require.NoError(a.t, err)
	require.Len(a.t, env.Signatures, 2, "submission must carry subject and origin signatures")

	claims := jwt.RegisteredClaims{
		Subject:   env.Source,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("anchor-secret"))
	require.NoError(a.t, err)

	a.writeJSON(w, map[string]string{"token": token})
}

func (a *testAnchor) handleInteractive(mode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.transferCalls.Add(1)

		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			http.Error(w, `{"error": "missing bearer token"}`, http.StatusForbidden)
			return
		}

		var req struct {
			AssetCode string `json:"asset_code"`
			Account   string `json:"account"`
			Amount    string `json:"amount"`
		}
		require.NoError(a.t, json.NewDecoder(r.Body).Decode(&req))
		if req.AssetCode == "" || req.Account == "" {
			http.Error(w, `{"error": "missing field"}`, http.StatusBadRequest)
			return
		}

		a.writeJSON(w, map[string]string{
			"id":   uuid.New().String(),
			"url":  a.srv.URL + "/interactive/" + mode,
			"type": "interactive_customer_info_needed",
		})
	}
}

func (a *testAnchor) handleTransaction(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, `{"error": "missing bearer token"}`, http.StatusForbidden)
		return
	}

	a.writeJSON(w, map[string]any{
		"transaction": map[string]any{
			"id":         r.URL.Query().Get("id"),
			"status":     a.transferStatus,
			"message":    "status from test anchor",
			"started_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (a *testAnchor) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(a.t, json.NewEncoder(w).Encode(payload))
}
