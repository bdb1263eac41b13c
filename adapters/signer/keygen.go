package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/layer-3/anchorkit/internal/strkey"
)

// GenerateSeed creates a fresh ed25519 keypair and returns the strkey seed
// and the matching public account identifier.
func GenerateSeed() (seed, account string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate keypair: %w", err)
	}

	seed, err = strkey.Encode(strkey.VersionSeed, priv.Seed())
	if err != nil {
		return "", "", err
	}
	account, err = strkey.Encode(strkey.VersionAccount, pub)
	if err != nil {
		return "", "", err
	}
	return seed, account, nil
}
