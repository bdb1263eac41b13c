package ports

import (
	"context"

	"github.com/layer-3/anchorkit/core"
)

// Signer produces a signature over an envelope scoped to a network
// passphrase. Signing is deterministic for a fixed key.
type Signer interface {
	// Sign signs the envelope's payload under the given network passphrase.
	Sign(ctx context.Context, envelope string, networkID string) (core.DecoratedSignature, error)

	// PublicKey returns the signer's public account identifier.
	PublicKey() string

	// Hint returns the signature hint derived from the public key.
	Hint() [4]byte
}

// OriginSigner is the signer variant held by the origin backend. It is a
// distinct type on purpose: the handshake engine accepts only an
// OriginSigner, and the subject-side signer does not implement it, so the
// subject's private key cannot be wired into the engine by mistake.
type OriginSigner interface {
	Signer

	// Domain returns the origin's domain identity bound into challenges.
	Domain() string
}
