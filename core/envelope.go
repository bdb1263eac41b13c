package core

import "crypto/sha256"

// DecoratedSignature is one entry of the ordered signature list embedded in
// an envelope. The hint is the trailing four bytes of the signing public key
// and lets a verifier pick the right key without trying all of them.
type DecoratedSignature struct {
	Hint      [4]byte
	Signature []byte
}

// Operation is one entry of the challenge payload's operation list. Challenge
// transactions carry opaque name/value pairs (nonce material, origin domain
// binding); this kit validates their shape but never executes them.
type Operation struct {
	Name  string
	Value []byte
}

// Envelope is the structural view of a decoded transaction envelope. The raw
// payload bytes are carried alongside the parsed fields so that re-encoding an
// unchanged envelope is byte-identical and the signing base stays stable no
// matter how many signatures are appended.
type Envelope struct {
	Source     string
	TimeBounds TimeBounds
	Nonce      []byte
	Operations []Operation
	Signatures []DecoratedSignature

	// PayloadBytes is the exact serialized payload as received. Signatures
	// are computed over these bytes, never over a re-serialization.
	PayloadBytes []byte

	// NetworkID is the network passphrase the envelope was decoded under.
	NetworkID string
}

// SigningBase returns the 32-byte digest a signature for this envelope must
// cover: the hash of the network passphrase concatenated with the payload
// bytes. Scoping the digest to the network prevents replay of a signature
// across networks.
func (e *Envelope) SigningBase(networkID string) []byte {
	netHash := sha256.Sum256([]byte(networkID))
	h := sha256.New()
	h.Write(netHash[:])
	h.Write(e.PayloadBytes)
	return h.Sum(nil)
}

// HasSignatureHint reports whether the envelope already carries a signature
// whose hint matches the given one.
func (e *Envelope) HasSignatureHint(hint [4]byte) bool {
	for _, sig := range e.Signatures {
		if sig.Hint == hint {
			return true
		}
	}
	return false
}
