package lobbyclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"matchlobby/go-client/internal/config"
	"matchlobby/go-client/internal/kvstore"
	"matchlobby/go-client/internal/session"
)

func newCountingServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/lobbies", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode([]Lobby{})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func waitFor(t *testing.T, deadline time.Duration, cond func() bool) {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRefresherPollsImmediatelyThenOnInterval(t *testing.T) {
	srv, calls := newCountingServer(t)

	sessions := session.NewStore(kvstore.NewMemory(), nil)
	if err := sessions.SetToken("opaque-token", false); err != nil {
		t.Fatalf("set token: %v", err)
	}
	client := New(config.NewEndpoint(srv.URL), sessions, nil, nil)
	refresher := NewRefresher(client, 20*time.Millisecond, nil)

	refresher.Start(context.Background())
	defer refresher.Stop()

	waitFor(t, time.Second, func() bool { return calls.Load() >= 1 })
	waitFor(t, time.Second, func() bool { return calls.Load() >= 3 })
}

func TestRefresherRestartReplacesLoopAndStopHalts(t *testing.T) {
	srv, calls := newCountingServer(t)

	sessions := session.NewStore(kvstore.NewMemory(), nil)
	if err := sessions.SetToken("opaque-token", false); err != nil {
		t.Fatalf("set token: %v", err)
	}
	client := New(config.NewEndpoint(srv.URL), sessions, nil, nil)
	refresher := NewRefresher(client, 10*time.Millisecond, nil)

	ctx := context.Background()
	refresher.Start(ctx)
	refresher.Start(ctx)
	refresher.Start(ctx)
	waitFor(t, time.Second, func() bool { return calls.Load() >= 4 })

	refresher.Stop()
	settled := calls.Load()
	time.Sleep(60 * time.Millisecond)
	if calls.Load() != settled {
		t.Fatalf("polling continued after Stop: %d -> %d", settled, calls.Load())
	}

	// Stop again is a no-op.
	refresher.Stop()
}

func TestFailingTickKeepsPreviousCache(t *testing.T) {
	snapshot := []Lobby{{ID: uuid.New(), Owner: "owner-key", Status: StatusWaiting}}

	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/lobbies", func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			json.NewEncoder(w).Encode(snapshot)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sessions := session.NewStore(kvstore.NewMemory(), nil)
	if err := sessions.SetToken("opaque-token", false); err != nil {
		t.Fatalf("set token: %v", err)
	}
	client := New(config.NewEndpoint(srv.URL), sessions, nil, nil)
	refresher := NewRefresher(client, 10*time.Millisecond, nil)

	refresher.Start(context.Background())
	waitFor(t, time.Second, func() bool { return calls.Load() >= 3 })
	refresher.Stop()

	cached := client.Cached()
	if len(cached) != 1 || cached[0].ID != snapshot[0].ID {
		t.Fatalf("failing ticks must leave the last good snapshot in place, got %+v", cached)
	}
}

func TestRefresherToleratesLoggedOutSession(t *testing.T) {
	srv, calls := newCountingServer(t)

	sessions := session.NewStore(kvstore.NewMemory(), nil)
	client := New(config.NewEndpoint(srv.URL), sessions, nil, nil)
	refresher := NewRefresher(client, 10*time.Millisecond, nil)

	refresher.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	refresher.Stop()

	if calls.Load() != 0 {
		t.Fatal("logged-out refreshes must not reach the network")
	}
}
