package kvstore

import (
	"errors"
	"path/filepath"
	"testing"

	"matchlobby/go-client/internal/securestore"
)

func TestMemoryAbsentKey(t *testing.T) {
	m := NewMemory()
	if _, ok, err := m.Get("session.token"); err != nil || ok {
		t.Fatalf("absent key should be (\"\", false, nil), got ok=%v err=%v", ok, err)
	}
	if err := m.Remove("session.token"); err != nil {
		t.Fatalf("removing absent key must be a no-op: %v", err)
	}
}

func TestEncryptedFilePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "client.kv")

	s, err := OpenEncryptedFile(path, "pass")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := s.Set("session.token", "tok-1"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Set("friends.list", `[{"username":"bob"}]`); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Remove("session.token"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	reopened, err := OpenEncryptedFile(path, "pass")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, ok, _ := reopened.Get("session.token"); ok {
		t.Fatal("removed key should not survive reopen")
	}
	v, ok, err := reopened.Get("friends.list")
	if err != nil || !ok || v != `[{"username":"bob"}]` {
		t.Fatalf("unexpected persisted value: %q ok=%v err=%v", v, ok, err)
	}
}

func TestEncryptedFileWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.kv")
	s, err := OpenEncryptedFile(path, "right")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := OpenEncryptedFile(path, "wrong"); !errors.Is(err, securestore.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}
