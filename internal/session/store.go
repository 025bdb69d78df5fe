// Package session holds the current session token and the identity claims
// derived from it. The store is observable: subscribers are notified
// synchronously on every transition, on the mutating caller's goroutine.
// Snapshot is safe to call from other goroutines (the lobby refresher reads
// it off the main goroutine); mutation stays single-writer.
package session

import (
	"log/slog"
	"sync"

	"matchlobby/go-client/internal/kvstore"
)

const (
	tokenKey    = "session.token"
	walletKey   = "session.is_wallet"
	recoveryKey = "session.recovery_phrase"
)

// Snapshot is an immutable view of the session state.
type Snapshot struct {
	Token    string
	Claims   *Claims
	IsWallet bool
}

// IsLoggedIn holds exactly when a token is present; claims may still be nil
// when the token's payload segment did not decode.
func (s Snapshot) IsLoggedIn() bool {
	return s.Token != ""
}

type Store struct {
	storage kvstore.Store
	log     *slog.Logger

	mu       sync.Mutex
	token    string
	claims   *Claims
	isWallet bool

	nextSubID int
	subs      map[int]func(Snapshot)
}

func NewStore(storage kvstore.Store, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		storage: storage,
		log:     log,
		subs:    make(map[int]func(Snapshot)),
	}
}

// Bootstrap seeds the store from durable storage. Absent keys leave the
// zero state in place.
func (s *Store) Bootstrap() error {
	token, ok, err := s.storage.Get(tokenKey)
	if err != nil {
		return err
	}
	wallet, walletOK, err := s.storage.Get(walletKey)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if ok {
		s.token = token
		s.claims = DecodeClaims(token)
	}
	s.isWallet = walletOK && wallet == "1"
	s.mu.Unlock()
	return nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Token: s.token, Claims: s.claims, IsWallet: s.isWallet}
}

// Subscribe registers a callback invoked synchronously after every state
// transition. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// SetToken installs a new token, recomputes claims from scratch, and
// persists. Claims are never cached across a token change; a token whose
// payload does not decode keeps the session logged in with nil claims.
func (s *Store) SetToken(token string, wallet bool) error {
	claims := DecodeClaims(token)
	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.isWallet = wallet
	s.mu.Unlock()
	if claims == nil {
		s.log.Warn("session token payload did not decode; claims unavailable")
	}
	if err := s.storage.Set(tokenKey, token); err != nil {
		return err
	}
	walletValue := "0"
	if wallet {
		walletValue = "1"
	}
	if err := s.storage.Set(walletKey, walletValue); err != nil {
		return err
	}
	s.notify()
	return nil
}

// Clear is the explicit logout: drops token, claims, and the wallet tag.
// The recovery phrase survives logout.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.claims = nil
	s.isWallet = false
	s.mu.Unlock()
	if err := s.storage.Remove(tokenKey); err != nil {
		return err
	}
	if err := s.storage.Remove(walletKey); err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Store) RecoveryPhrase() (string, error) {
	phrase, _, err := s.storage.Get(recoveryKey)
	return phrase, err
}

func (s *Store) SetRecoveryPhrase(phrase string) error {
	if phrase == "" {
		return s.storage.Remove(recoveryKey)
	}
	return s.storage.Set(recoveryKey, phrase)
}

// notify runs subscribers outside the lock so a callback may read Snapshot.
func (s *Store) notify() {
	snap := s.Snapshot()
	s.mu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
