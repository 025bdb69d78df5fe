// Package lobbyclient drives the registry's lobby endpoints on behalf of a
// logged-in session. Every call requires a token; the local lobby cache is
// replaced wholesale by each successful list response, so concurrent
// refreshes resolve to whichever response arrived last.
package lobbyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"matchlobby/go-client/internal/config"
	"matchlobby/go-client/internal/friendcode"
	"matchlobby/go-client/internal/platform/metrics"
	"matchlobby/go-client/internal/session"
)

var (
	ErrUnauthenticated = errors.New("not logged in")
	ErrNetwork         = errors.New("network failure")
	ErrLobbyNotFound   = errors.New("lobby not found")
	ErrLobbyConflict   = errors.New("lobby conflict")
	ErrForbidden       = errors.New("operation forbidden")
	ErrRequestFailed   = errors.New("lobby request failed")
)

type Client struct {
	endpoint *config.Endpoint
	sessions *session.Store
	http     *http.Client
	log      *slog.Logger

	mu      sync.Mutex
	lobbies []Lobby
}

func New(endpoint *config.Endpoint, sessions *session.Store, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		sessions: sessions,
		http:     httpClient,
		log:      log,
	}
}

// List fetches the visible lobbies and installs the response as the new
// cache. The cache is never merged: a response replaces it entirely.
func (c *Client) List(ctx context.Context) ([]Lobby, error) {
	lobbies, err := c.list(ctx)
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}
	metrics.LobbyRefreshes.WithLabelValues(result).Inc()
	return lobbies, err
}

func (c *Client) list(ctx context.Context) ([]Lobby, error) {
	resp, err := c.do(ctx, http.MethodGet, "/lobbies", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp); err != nil {
		return nil, err
	}
	var lobbies []Lobby
	if err := json.NewDecoder(resp.Body).Decode(&lobbies); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	c.mu.Lock()
	c.lobbies = lobbies
	c.mu.Unlock()
	return copyLobbies(lobbies), nil
}

// Cached returns the last installed lobby snapshot without a network call.
func (c *Client) Cached() []Lobby {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyLobbies(c.lobbies)
}

func (c *Client) cached(id uuid.UUID) (Lobby, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.lobbies {
		if l.ID == id {
			return l, true
		}
	}
	return Lobby{}, false
}

type createRequest struct {
	IsPrivate bool     `json:"is_private"`
	Whitelist []string `json:"whitelist,omitempty"`
}

type createResponse struct {
	ID uuid.UUID `json:"id"`
}

// Create opens a new lobby. A whitelist is only meaningful for private
// lobbies and is dropped otherwise.
func (c *Client) Create(ctx context.Context, isPrivate bool, whitelist []string) (uuid.UUID, error) {
	payload := createRequest{IsPrivate: isPrivate}
	if isPrivate {
		payload.Whitelist = whitelist
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/lobbies", body)
	if err != nil {
		metrics.LobbyOperations.WithLabelValues("create", metrics.ResultError).Inc()
		return uuid.Nil, err
	}
	defer resp.Body.Close()
	if err := statusError(resp); err != nil {
		metrics.LobbyOperations.WithLabelValues("create", metrics.ResultError).Inc()
		return uuid.Nil, err
	}
	var parsed createResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.LobbyOperations.WithLabelValues("create", metrics.ResultError).Inc()
		return uuid.Nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	metrics.LobbyOperations.WithLabelValues("create", metrics.ResultOK).Inc()
	c.log.Info("lobby created", "lobby_id", parsed.ID.String(), "private", isPrivate)
	return parsed.ID, nil
}

// Join enters a lobby. Rejoining the current lobby succeeds idempotently;
// the registry rejects joining a second one.
func (c *Client) Join(ctx context.Context, id uuid.UUID) error {
	err := c.simpleOperation(ctx, http.MethodPost, "/lobbies/"+id.String()+"/join", nil, "join")
	if err == nil {
		c.log.Info("lobby joined", "lobby_id", id.String())
	}
	return err
}

// LeaveOrDelete issues the departure call for a lobby. The registry decides
// the effect by ownership; the client mirrors that decision from its cache so
// callers learn whether the lobby was torn down. Reports deleted=true when
// the session's subject owns the cached lobby.
func (c *Client) LeaveOrDelete(ctx context.Context, id uuid.UUID) (deleted bool, err error) {
	operation := "leave"
	if lobby, ok := c.cached(id); ok {
		if claims := c.sessions.Snapshot().Claims; claims != nil && lobby.Owner == claims.Subject {
			operation = "delete"
			deleted = true
		}
	}
	if err := c.simpleOperation(ctx, http.MethodDelete, "/lobbies/"+id.String(), nil, operation); err != nil {
		return false, err
	}
	c.log.Info("lobby departed", "lobby_id", id.String(), "deleted", deleted)
	return deleted, nil
}

type inviteRequest struct {
	PublicKeys []string `json:"publicKeys"`
}

// Invite whitelists players into a private lobby. Keys that are already
// playing or already whitelisted (per the cache) are filtered out first; an
// invite that filters down to nothing is a local no-op.
func (c *Client) Invite(ctx context.Context, id uuid.UUID, publicKeys []string) error {
	filtered := publicKeys
	if lobby, ok := c.cached(id); ok {
		filtered = filtered[:0:0]
		for _, key := range publicKeys {
			if !lobby.HasPlayer(key) && !lobby.IsWhitelisted(key) {
				filtered = append(filtered, key)
			}
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	body, err := json.Marshal(inviteRequest{PublicKeys: filtered})
	if err != nil {
		return err
	}
	if err := c.simpleOperation(ctx, http.MethodPost, "/lobbies/"+id.String()+"/invite", body, "invite"); err != nil {
		return err
	}
	c.log.Info("players invited", "lobby_id", id.String(), "count", len(filtered))
	return nil
}

// InvitableFriends filters a friend list down to the friends a lobby invite
// could still affect, using the cached lobby state.
func (c *Client) InvitableFriends(id uuid.UUID, friends []friendcode.Friend) []friendcode.Friend {
	lobby, ok := c.cached(id)
	if !ok {
		return append([]friendcode.Friend(nil), friends...)
	}
	out := make([]friendcode.Friend, 0, len(friends))
	for _, f := range friends {
		if !lobby.HasPlayer(f.PublicKey) && !lobby.IsWhitelisted(f.PublicKey) {
			out = append(out, f)
		}
	}
	return out
}

func (c *Client) simpleOperation(ctx context.Context, method, path string, body []byte, operation string) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		metrics.LobbyOperations.WithLabelValues(operation, metrics.ResultError).Inc()
		return err
	}
	defer resp.Body.Close()
	if err := statusError(resp); err != nil {
		metrics.LobbyOperations.WithLabelValues(operation, metrics.ResultError).Inc()
		return err
	}
	metrics.LobbyOperations.WithLabelValues(operation, metrics.ResultOK).Inc()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	snap := c.sessions.Snapshot()
	if !snap.IsLoggedIn() {
		return nil, ErrUnauthenticated
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint.Resolve(path), reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+snap.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return resp, nil
}

// statusError maps a non-2xx response to the matching sentinel, preserving
// the server's message.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		sentinel = ErrUnauthenticated
	case http.StatusForbidden:
		sentinel = ErrForbidden
	case http.StatusNotFound:
		sentinel = ErrLobbyNotFound
	case http.StatusConflict:
		sentinel = ErrLobbyConflict
	default:
		sentinel = ErrRequestFailed
	}
	return fmt.Errorf("%w: %s", sentinel, responseMessage(resp))
}

func responseMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var structured struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil && structured.Error != "" {
		return structured.Error
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return fmt.Sprintf("status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
