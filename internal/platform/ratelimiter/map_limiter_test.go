package ratelimiter

import (
	"testing"
	"time"
)

func TestAllowPerKeyBurst(t *testing.T) {
	l := New(1, 2, time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if !l.Allow("alice", now) || !l.Allow("alice", now) {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("alice", now) {
		t.Fatal("third immediate attempt should be limited")
	}
	if !l.Allow("bob", now) {
		t.Fatal("keys must be limited independently")
	}
	if !l.Allow("alice", now.Add(2*time.Second)) {
		t.Fatal("tokens should refill over time")
	}
}

func TestNilAndBlankKeysAlwaysAllow(t *testing.T) {
	var l *MapLimiter
	if !l.Allow("any", time.Now()) {
		t.Fatal("nil limiter must allow")
	}
	if !New(1, 1, 0).Allow("  ", time.Now()) {
		t.Fatal("blank keys must allow")
	}
	if New(0, 1, 0) != nil || New(1, 0, 0) != nil {
		t.Fatal("invalid args must yield nil limiter")
	}
}
