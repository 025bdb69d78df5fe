package kvstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"matchlobby/go-client/internal/securestore"
)

// EncryptedFile persists the whole key space as one encrypted JSON snapshot.
// Single writer, single reader, scoped to one client instance.
type EncryptedFile struct {
	mu         sync.Mutex
	path       string
	passphrase string
	values     map[string]string
}

type persistedState struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values"`
}

// OpenEncryptedFile loads the snapshot at path, bootstrapping an empty store
// when the file does not exist yet.
func OpenEncryptedFile(path, passphrase string) (*EncryptedFile, error) {
	s := &EncryptedFile{
		path:       path,
		passphrase: passphrase,
		values:     make(map[string]string),
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	plaintext, err := securestore.Open(passphrase, raw)
	if err != nil {
		return nil, err
	}
	var state persistedState
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return nil, err
	}
	if state.Version != 1 {
		return nil, errors.New("kvstore persistence payload is invalid")
	}
	if state.Values != nil {
		s.values = state.Values
	}
	return s, nil
}

func (s *EncryptedFile) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *EncryptedFile) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.persistLocked()
}

func (s *EncryptedFile) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return s.persistLocked()
}

func (s *EncryptedFile) persistLocked() error {
	payload, err := json.Marshal(persistedState{Version: 1, Values: s.values})
	if err != nil {
		return err
	}
	sealed, err := securestore.Seal(s.passphrase, payload)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, sealed, 0o600)
}
