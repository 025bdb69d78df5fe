// Package identity derives deterministic ed25519 keypairs from user
// credentials. Two derivation paths exist: password secrets are stretched
// with Argon2id salted by the username hash, mnemonic secrets feed the
// signing seed directly. Private keys live only in the call stack of the
// derivation and signing helpers; nothing here retains them.
package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/argon2"
)

// Derivation constants are versioned: changing any of them changes every
// derived identity. Bump derivationVersion if they ever move.
const (
	derivationVersion = 1

	argonTime      = 2
	argonMemoryKiB = 19 * 1024
	argonThreads   = 1
	saltSize       = 16
	seedSize       = 32
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrDerivationUnavailable = errors.New("key derivation is not initialized")
)

type KeyPair struct {
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
}

// Deriver gates all key derivation behind an explicit readiness check so
// callers fail fast instead of hanging when the hashing primitive was never
// initialized.
type Deriver struct {
	mu    sync.RWMutex
	ready bool
}

func NewDeriver() *Deriver {
	return &Deriver{}
}

// Init warms up the hashing primitive with a throwaway derivation and marks
// the deriver ready. It must complete before any derivation call.
func (d *Deriver) Init() error {
	probe := argon2.IDKey([]byte("probe"), make([]byte, saltSize), argonTime, argonMemoryKiB, argonThreads, seedSize)
	if len(probe) != seedSize {
		return ErrDerivationUnavailable
	}
	d.mu.Lock()
	d.ready = true
	d.mu.Unlock()
	return nil
}

func (d *Deriver) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready
}

// DerivePrivateKey is the password path: salt = SHA-256(username)[:16],
// seed = Argon2id(secret, salt). Deterministic for a fixed (username, secret).
func (d *Deriver) DerivePrivateKey(username, secret string) (KeyPair, error) {
	if !d.Ready() {
		return KeyPair{}, ErrDerivationUnavailable
	}
	if username == "" {
		return KeyPair{}, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if secret == "" {
		return KeyPair{}, fmt.Errorf("%w: secret is required", ErrValidation)
	}
	usernameHash := sha256.Sum256([]byte(username))
	seed := argon2.IDKey([]byte(secret), usernameHash[:saltSize], argonTime, argonMemoryKiB, argonThreads, seedSize)
	return keyPairFromSeed(seed), nil
}

func keyPairFromSeed(seed []byte) KeyPair {
	priv := ed25519.NewKeyFromSeed(seed)
	return KeyPair{
		PrivateKey: priv,
		PublicKey:  priv.Public().(ed25519.PublicKey),
	}
}
