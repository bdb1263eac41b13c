package signer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/anchorkit/adapters/codec"
	"github.com/layer-3/anchorkit/core"
)

const testNetwork = "Test Anchor Network ; 2025"

func testEnvelope(t *testing.T, source string) string {
	t.Helper()

	now := time.Now()
	env := &core.Envelope{
		Source:     source,
		TimeBounds: core.TimeBounds{Min: now.Unix(), Max: now.Add(5 * time.Minute).Unix()},
		Nonce:      []byte("0123456789abcdef0123456789abcdef"),
		Operations: []core.Operation{{Name: "example.com auth", Value: []byte("nonce")}},
	}
	encoded, err := codec.NewCBORCodec().Encode(env)
	require.NoError(t, err)
	return encoded
}

func TestSignDeterministic(t *testing.T) {
	seed, account, err := GenerateSeed()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(seed, "S"))
	assert.True(t, strings.HasPrefix(account, "G"))

	c := codec.NewCBORCodec()
	s, err := NewEd25519Signer(seed, c)
	require.NoError(t, err)
	assert.Equal(t, account, s.PublicKey())

	envelope := testEnvelope(t, account)

	sigA, err := s.Sign(context.Background(), envelope, testNetwork)
	require.NoError(t, err)
	sigB, err := s.Sign(context.Background(), envelope, testNetwork)
	require.NoError(t, err)
	assert.Equal(t, sigA, sigB, "ed25519 signing is deterministic for a fixed key")
	assert.Equal(t, s.Hint(), sigA.Hint)

	view, err := c.Decode(envelope, testNetwork)
	require.NoError(t, err)
	assert.True(t, s.Verify(view, testNetwork, sigA.Signature))
	assert.False(t, s.Verify(view, "other network", sigA.Signature),
		"a signature must not verify under a different network passphrase")
}

func TestSignerRequiresSeed(t *testing.T) {
	_, err := NewEd25519Signer("", codec.NewCBORCodec())
	assert.ErrorIs(t, err, core.ErrSigningKeyUnavailable)

	_, err = NewEd25519Signer("not-a-seed", codec.NewCBORCodec())
	assert.ErrorIs(t, err, core.ErrSigningKeyUnavailable)
}

func TestSignRejectsMalformedEnvelope(t *testing.T) {
	seed, _, err := GenerateSeed()
	require.NoError(t, err)
	s, err := NewEd25519Signer(seed, codec.NewCBORCodec())
	require.NoError(t, err)

	_, err = s.Sign(context.Background(), "garbage", testNetwork)
	assert.ErrorIs(t, err, core.ErrSigningFailed)
}

func TestOriginSignerDomain(t *testing.T) {
	seed, _, err := GenerateSeed()
	require.NoError(t, err)

	s, err := NewOriginSigner(seed, "origin.example.com", codec.NewCBORCodec())
	require.NoError(t, err)
	assert.Equal(t, "origin.example.com", s.Domain())
}
