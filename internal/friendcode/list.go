package friendcode

import (
	"encoding/json"
	"log/slog"

	"matchlobby/go-client/internal/kvstore"
)

const friendsKey = "friends.list"

// List is the friend collection: a set keyed by public key with insertion
// order preserved for display. Friends persist across sessions.
type List struct {
	storage kvstore.Store
	log     *slog.Logger
	friends []Friend
}

func NewList(storage kvstore.Store, log *slog.Logger) *List {
	if log == nil {
		log = slog.Default()
	}
	return &List{storage: storage, log: log}
}

// Bootstrap seeds the collection from durable storage; an absent key means
// an empty collection, a corrupt payload is dropped rather than fatal.
func (l *List) Bootstrap() error {
	raw, ok, err := l.storage.Get(friendsKey)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	var friends []Friend
	if err := json.Unmarshal([]byte(raw), &friends); err != nil {
		l.log.Warn("stored friend list did not decode; starting empty")
		return nil
	}
	l.friends = friends
	return nil
}

// Add decodes a friend code and appends the friend. A friend with the same
// public key already present fails with ErrDuplicateFriend and leaves the
// collection unchanged.
func (l *List) Add(code string) (Friend, error) {
	friend, err := Decode(code)
	if err != nil {
		return Friend{}, err
	}
	for _, existing := range l.friends {
		if existing.PublicKey == friend.PublicKey {
			return Friend{}, ErrDuplicateFriend
		}
	}
	l.friends = append(l.friends, friend)
	if err := l.persist(); err != nil {
		return Friend{}, err
	}
	return friend, nil
}

// Remove drops the friend with the given public key; absent keys are a no-op.
func (l *List) Remove(publicKey string) error {
	kept := l.friends[:0]
	removed := false
	for _, friend := range l.friends {
		if friend.PublicKey == publicKey {
			removed = true
			continue
		}
		kept = append(kept, friend)
	}
	l.friends = kept
	if !removed {
		return nil
	}
	return l.persist()
}

// Friends returns the collection in insertion order.
func (l *List) Friends() []Friend {
	return append([]Friend(nil), l.friends...)
}

func (l *List) Has(publicKey string) bool {
	for _, friend := range l.friends {
		if friend.PublicKey == publicKey {
			return true
		}
	}
	return false
}

func (l *List) persist() error {
	payload, err := json.Marshal(l.friends)
	if err != nil {
		return err
	}
	return l.storage.Set(friendsKey, string(payload))
}
