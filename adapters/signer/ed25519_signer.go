// Package signer implements the origin-side signature provider. The origin
// key is long-lived process configuration: loaded once at startup, held
// immutably and never logged or surfaced in errors.
package signer

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/layer-3/anchorkit/core"
	"github.com/layer-3/anchorkit/internal/strkey"
	"github.com/layer-3/anchorkit/ports"
)

// Ed25519Signer signs envelope payloads with an ed25519 key.
type Ed25519Signer struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	account string
	codec   ports.Codec
}

// NewEd25519Signer creates a signer from a strkey seed ("S...").
func NewEd25519Signer(seed string, codec ports.Codec) (*Ed25519Signer, error) {
	if seed == "" {
		return nil, core.ErrSigningKeyUnavailable
	}

	raw, err := strkey.Decode(strkey.VersionSeed, seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSigningKeyUnavailable, err)
	}

	priv := ed25519.NewKeyFromSeed(raw)
	pub := priv.Public().(ed25519.PublicKey)

	account, err := strkey.Encode(strkey.VersionAccount, pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSigningKeyUnavailable, err)
	}

	return &Ed25519Signer{priv: priv, pub: pub, account: account, codec: codec}, nil
}

var _ ports.Signer = (*Ed25519Signer)(nil)

// Sign signs the envelope's payload under the given network passphrase.
func (s *Ed25519Signer) Sign(ctx context.Context, envelope string, networkID string) (core.DecoratedSignature, error) {
	if s.priv == nil {
		return core.DecoratedSignature{}, core.ErrSigningKeyUnavailable
	}

	env, err := s.codec.Decode(envelope, networkID)
	if err != nil {
		return core.DecoratedSignature{}, fmt.Errorf("%w: %v", core.ErrSigningFailed, err)
	}

	sig := ed25519.Sign(s.priv, env.SigningBase(networkID))
	return core.DecoratedSignature{Hint: s.Hint(), Signature: sig}, nil
}

// PublicKey returns the signer's public account identifier.
func (s *Ed25519Signer) PublicKey() string {
	return s.account
}

// Hint returns the trailing four bytes of the public key.
func (s *Ed25519Signer) Hint() [4]byte {
	var hint [4]byte
	copy(hint[:], s.pub[len(s.pub)-4:])
	return hint
}

// Verify reports whether the given signature over the envelope's signing base
// was produced by this signer's key.
func (s *Ed25519Signer) Verify(env *core.Envelope, networkID string, sig []byte) bool {
	return ed25519.Verify(s.pub, env.SigningBase(networkID), sig)
}

// OriginSigner binds an Ed25519Signer to the origin's domain identity.
type OriginSigner struct {
	*Ed25519Signer
	domain string
}

// NewOriginSigner creates the origin's signature provider.
func NewOriginSigner(seed, domain string, codec ports.Codec) (*OriginSigner, error) {
	inner, err := NewEd25519Signer(seed, codec)
	if err != nil {
		return nil, err
	}
	return &OriginSigner{Ed25519Signer: inner, domain: domain}, nil
}

var _ ports.OriginSigner = (*OriginSigner)(nil)

// Domain returns the origin's domain identity.
func (s *OriginSigner) Domain() string {
	return s.domain
}
