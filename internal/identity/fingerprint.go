package identity

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

// Fingerprint builds a short display handle for a public key. It is not an
// identity: the authoritative identity is the base64 public key carried in
// session claims.
func Fingerprint(publicKey []byte) (string, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: invalid public key size %d", ErrValidation, len(publicKey))
	}
	h := blake2b.Sum256(publicKey)
	return "mlb1" + base58.Encode(h[:8]), nil
}
