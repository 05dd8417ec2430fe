package sigtest

import (
	"github.com/thresh-one/quorumsig/crypto"
)

// NewKey returns a random key. Use this and not the crypto package directly
// so that tests do not break when the default algorithm changes.
func NewKey() *crypto.PrivateKey {
	return crypto.GenPrivKeyEd25519()
}

// KeyFromByte returns a deterministic key built from a single byte seed.
// Handy when a test needs stable addresses across runs.
func KeyFromByte(b byte) *crypto.PrivateKey {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = b
	}
	key, err := crypto.PrivKeyEd25519FromSeed(seed)
	if err != nil {
		panic(err)
	}
	return key
}
