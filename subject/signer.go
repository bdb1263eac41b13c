// Package subject holds the subject-side signing helper. It runs in the
// account holder's own trust boundary, such as a wallet process or a browser
// sandbox bridge, never the origin backend. The type deliberately does
// not implement ports.OriginSigner, so it cannot be wired into the handshake
// engine: the subject's private key never crosses into the origin's context.
package subject

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/layer-3/anchorkit/core"
	"github.com/layer-3/anchorkit/internal/strkey"
	"github.com/layer-3/anchorkit/ports"
)

// Signer signs challenges with the subject's own key.
type Signer struct {
	priv    ed25519.PrivateKey
	account string
	codec   ports.Codec
}

// NewSigner creates a subject signer from a strkey seed ("S...").
func NewSigner(seed string, codec ports.Codec) (*Signer, error) {
	if seed == "" {
		return nil, core.ErrSigningKeyUnavailable
	}
	raw, err := strkey.Decode(strkey.VersionSeed, seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSigningKeyUnavailable, err)
	}

	priv := ed25519.NewKeyFromSeed(raw)
	account, err := strkey.Encode(strkey.VersionAccount, priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSigningKeyUnavailable, err)
	}

	return &Signer{priv: priv, account: account, codec: codec}, nil
}

// Account returns the subject's public account identifier.
func (s *Signer) Account() string {
	return s.account
}

// SignChallenge verifies the challenge was issued for this account, signs its
// payload and returns the envelope with the subject's signature appended.
// This is the externally-performed step of the handshake: the engine hands
// out the challenge, the subject signs here, and the engine resumes with the
// result.
func (s *Signer) SignChallenge(ctx context.Context, challenge core.Challenge) (string, error) {
	env, err := s.codec.Decode(challenge.Envelope, challenge.NetworkID)
	if err != nil {
		return "", err
	}

	if env.Source != s.account {
		return "", fmt.Errorf("%w: challenge is for %s", core.ErrSourceAccountMismatch, env.Source)
	}

	sig := ed25519.Sign(s.priv, env.SigningBase(challenge.NetworkID))

	pub := s.priv.Public().(ed25519.PublicKey)
	var hint [4]byte
	copy(hint[:], pub[len(pub)-4:])

	return s.codec.AppendSignature(env, core.DecoratedSignature{Hint: hint, Signature: sig})
}
