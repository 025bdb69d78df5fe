package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidRecoveryPhrase = errors.New("invalid recovery phrase")

// SecretSource tags which derivation path produced a credential. Recovery
// must always reuse the path that created the identity.
type SecretSource int

const (
	SourcePassword SecretSource = iota
	SourceMnemonic
)

// Credential is consumed by a single authentication attempt and then
// discarded. Secret and Mnemonic never leave the client.
type Credential struct {
	Username string
	Secret   string
	Source   SecretSource

	// Mnemonic is set only for system-generated credentials, as the
	// recovery backup for Secret.
	Mnemonic string
}

// CreateAccount generates a fresh identity: 256-bit entropy, a BIP-39
// mnemonic over it, and a secret equal to the first 32 bytes of the standard
// mnemonic seed, hex encoded.
func CreateAccount(username string) (Credential, error) {
	if strings.TrimSpace(username) == "" {
		return Credential{}, fmt.Errorf("%w: username is required", ErrValidation)
	}
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return Credential{}, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return Credential{}, err
	}
	return credentialFromMnemonic(username, mnemonic)
}

// RecoverAccount rebuilds the credential of a generated account from its
// recovery phrase. The same phrase always reproduces the same secret and
// therefore the same keypair.
func RecoverAccount(username, mnemonic string) (Credential, error) {
	if strings.TrimSpace(username) == "" {
		return Credential{}, fmt.Errorf("%w: username is required", ErrValidation)
	}
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return Credential{}, fmt.Errorf("%w: recovery phrase is required", ErrValidation)
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return Credential{}, ErrInvalidRecoveryPhrase
	}
	return credentialFromMnemonic(username, mnemonic)
}

func credentialFromMnemonic(username, mnemonic string) (Credential, error) {
	seed := bip39.NewSeed(mnemonic, "")
	return Credential{
		Username: username,
		Secret:   hex.EncodeToString(seed[:seedSize]),
		Source:   SourceMnemonic,
		Mnemonic: mnemonic,
	}, nil
}

// Keys derives the keypair for a credential along its tagged path.
// Mnemonic-derived secrets become the signing seed directly; running them
// through Argon2id again would produce a different identity than creation.
func (d *Deriver) Keys(cred Credential) (KeyPair, error) {
	switch cred.Source {
	case SourceMnemonic:
		if !d.Ready() {
			return KeyPair{}, ErrDerivationUnavailable
		}
		seed, err := hex.DecodeString(cred.Secret)
		if err != nil || len(seed) != seedSize {
			return KeyPair{}, fmt.Errorf("%w: malformed generated secret", ErrValidation)
		}
		return keyPairFromSeed(seed), nil
	default:
		return d.DerivePrivateKey(cred.Username, cred.Secret)
	}
}
