package friendcode

import (
	"errors"
	"testing"

	"matchlobby/go-client/internal/kvstore"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	code, err := Encode("alice", "pk-alice")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	friend, err := Decode(code)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if friend.Username != "alice" || friend.PublicKey != "pk-alice" {
		t.Fatalf("round trip mismatch: %#v", friend)
	}
}

func TestDecodeMalformedCodes(t *testing.T) {
	cases := map[string]string{
		"not base64":     "!!!",
		"not json":       "bm90IGpzb24=",
		"missing fields": "eyJ1c2VybmFtZSI6ImFsaWNlIn0=",
		"empty":          "",
	}
	for name, code := range cases {
		if _, err := Decode(code); !errors.Is(err, ErrMalformedFriendCode) {
			t.Fatalf("%s: expected ErrMalformedFriendCode, got %v", name, err)
		}
	}
}

func TestEncodeRequiresBothFields(t *testing.T) {
	if _, err := Encode("", "pk"); !errors.Is(err, ErrMalformedFriendCode) {
		t.Fatalf("expected ErrMalformedFriendCode, got %v", err)
	}
	if _, err := Encode("alice", ""); !errors.Is(err, ErrMalformedFriendCode) {
		t.Fatalf("expected ErrMalformedFriendCode, got %v", err)
	}
}

func mustCode(t *testing.T, username, publicKey string) string {
	t.Helper()
	code, err := Encode(username, publicKey)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return code
}

func TestAddRejectsDuplicatePublicKey(t *testing.T) {
	list := NewList(kvstore.NewMemory(), nil)
	if _, err := list.Add(mustCode(t, "alice", "pk-1")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	// Same key under a different display name is still the same friend.
	if _, err := list.Add(mustCode(t, "alice-2", "pk-1")); !errors.Is(err, ErrDuplicateFriend) {
		t.Fatalf("expected ErrDuplicateFriend, got %v", err)
	}
	friends := list.Friends()
	if len(friends) != 1 || friends[0].Username != "alice" {
		t.Fatalf("duplicate add must leave the collection unchanged: %#v", friends)
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	list := NewList(kvstore.NewMemory(), nil)
	for _, name := range []string{"c", "a", "b"} {
		if _, err := list.Add(mustCode(t, name, "pk-"+name)); err != nil {
			t.Fatalf("add %s failed: %v", name, err)
		}
	}
	friends := list.Friends()
	if friends[0].Username != "c" || friends[1].Username != "a" || friends[2].Username != "b" {
		t.Fatalf("insertion order lost: %#v", friends)
	}
}

func TestRemoveIsNoOpWhenAbsent(t *testing.T) {
	list := NewList(kvstore.NewMemory(), nil)
	if _, err := list.Add(mustCode(t, "alice", "pk-1")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := list.Remove("pk-unknown"); err != nil {
		t.Fatalf("removing absent friend must be a no-op: %v", err)
	}
	if err := list.Remove("pk-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(list.Friends()) != 0 {
		t.Fatal("friend should be removed")
	}
}

func TestListPersistsAcrossBootstrap(t *testing.T) {
	storage := kvstore.NewMemory()
	first := NewList(storage, nil)
	if _, err := first.Add(mustCode(t, "alice", "pk-1")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := first.Add(mustCode(t, "bob", "pk-2")); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	second := NewList(storage, nil)
	if err := second.Bootstrap(); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	friends := second.Friends()
	if len(friends) != 2 || friends[0].PublicKey != "pk-1" || friends[1].PublicKey != "pk-2" {
		t.Fatalf("bootstrap lost friends: %#v", friends)
	}
}

func TestBootstrapToleratesCorruptPayload(t *testing.T) {
	storage := kvstore.NewMemory()
	if err := storage.Set("friends.list", "{corrupt"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	list := NewList(storage, nil)
	if err := list.Bootstrap(); err != nil {
		t.Fatalf("bootstrap must not fail on corrupt payload: %v", err)
	}
	if len(list.Friends()) != 0 {
		t.Fatal("corrupt payload should yield an empty collection")
	}
}
