package crypto

import (
	"encoding/hex"

	"github.com/stellar/go/exp/crypto/derivation"
	"github.com/thresh-one/quorumsig/errors"
	"golang.org/x/crypto/ed25519"
)

// DecodePrivateKeyFromSeed reads a hex encoded 64 byte value that holds the
// raw ed25519 private key (seed followed by the public key).
func DecodePrivateKeyFromSeed(hexSeed string) (*PrivateKey, error) {
	data, err := hex.DecodeString(hexSeed)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidArg, "malformed hex seed")
	}
	if len(data) != ed25519.PrivateKeySize {
		return nil, errors.Wrapf(errors.ErrInvalidArg, "seed must decode to %d bytes", ed25519.PrivateKeySize)
	}
	return &PrivateKey{Ed25519: data}, nil
}

// DerivePrivateKey derives an ed25519 private key from a root seed and a
// BIP44 path, for example "m/44'/234'/0'". An empty path uses the first 32
// bytes of the seed unchanged.
func DerivePrivateKey(seed []byte, path string) (*PrivateKey, error) {
	if path == "" {
		if len(seed) < ed25519.SeedSize {
			return nil, errors.Wrapf(errors.ErrInvalidArg, "seed must hold at least %d bytes", ed25519.SeedSize)
		}
		return PrivKeyEd25519FromSeed(seed[:ed25519.SeedSize])
	}
	k, err := derivation.DeriveForPath(path, seed)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidArg, "derive path %q: %s", path, err)
	}
	return PrivKeyEd25519FromSeed(k.Key)
}
