// Package registrytest is an in-process stand-in for the remote lobby
// registry, faithful to its observable behavior: single-use challenges,
// signature-verified login minting HS256 tokens, and lobby membership rules
// (idempotent rejoin, one lobby per player, whitelist enforcement). It backs
// the client test suites and the local development stub; the production
// registry itself stays out of scope.
package registrytest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	challengeTTL  = 60 * time.Second
	challengeLen  = 32
	tokenLifetime = 24 * time.Hour
)

const (
	StatusWaiting    = "Waiting"
	StatusInProgress = "InProgress"
)

type Lobby struct {
	ID        uuid.UUID `json:"id"`
	Owner     string    `json:"owner"`
	Players   []string  `json:"players"`
	Status    string    `json:"status"`
	IsPrivate bool      `json:"is_private"`
	Whitelist []string  `json:"whitelist,omitempty"`
}

type Registry struct {
	secret []byte
	log    *slog.Logger
	now    func() time.Time

	mu              sync.Mutex
	challenges      map[string]time.Time
	lobbies         map[uuid.UUID]*Lobby
	playersInLobby map[string]uuid.UUID
}

func New(secret string, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		secret:          []byte(secret),
		log:             log,
		now:             time.Now,
		challenges:      make(map[string]time.Time),
		lobbies:         make(map[uuid.UUID]*Lobby),
		playersInLobby: make(map[string]uuid.UUID),
	}
}

func (r *Registry) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	router.HandleFunc("/auth/challenge", r.handleChallenge).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", r.handleLogin).Methods(http.MethodPost)
	router.HandleFunc("/lobbies", r.handleListLobbies).Methods(http.MethodGet)
	router.HandleFunc("/lobbies", r.handleCreateLobby).Methods(http.MethodPost)
	router.HandleFunc("/lobbies/{id}/join", r.handleJoinLobby).Methods(http.MethodPost)
	router.HandleFunc("/lobbies/{id}", r.handleDeleteLobby).Methods(http.MethodDelete)
	router.HandleFunc("/lobbies/{id}/invite", r.handleInvite).Methods(http.MethodPost)
	return router
}

// Lobby returns a copy of a lobby for test assertions.
func (r *Registry) Lobby(id uuid.UUID) (Lobby, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lobby, ok := r.lobbies[id]
	if !ok {
		return Lobby{}, false
	}
	return copyLobby(lobby), true
}

func (r *Registry) handleChallenge(w http.ResponseWriter, _ *http.Request) {
	challenge := randomChallenge()
	r.mu.Lock()
	r.challenges[challenge] = r.now()
	r.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"challenge": challenge})
}

type loginRequest struct {
	PublicKeyB64 string `json:"public_key_b64"`
	Username     string `json:"username"`
	Challenge    string `json:"challenge"`
	SignatureB64 string `json:"signature_b64"`
}

func (r *Registry) handleLogin(w http.ResponseWriter, req *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed login request")
		return
	}
	if !r.consumeChallenge(payload.Challenge) {
		writeError(w, http.StatusUnauthorized, "Invalid challenge")
		return
	}

	publicKey, err := base64.StdEncoding.DecodeString(payload.PublicKeyB64)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		writeError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}
	signature, err := base64.StdEncoding.DecodeString(payload.SignatureB64)
	if err != nil || !ed25519.Verify(publicKey, []byte(payload.Challenge), signature) {
		writeError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	token, err := r.issueToken(payload.PublicKeyB64, payload.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (r *Registry) consumeChallenge(challenge string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	issued, ok := r.challenges[challenge]
	if !ok {
		return false
	}
	delete(r.challenges, challenge)
	return r.now().Sub(issued) < challengeTTL
}

func (r *Registry) handleListLobbies(w http.ResponseWriter, req *http.Request) {
	claims, ok := r.authorize(w, req)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	visible := make([]Lobby, 0, len(r.lobbies))
	for _, lobby := range r.lobbies {
		if r.visibleTo(lobby, claims.Subject) {
			visible = append(visible, copyLobby(lobby))
		}
	}
	writeJSON(w, http.StatusOK, visible)
}

// visibleTo mirrors the registry's listing filter: public waiting lobbies,
// lobbies the viewer already plays in, and private lobbies whitelisting the
// viewer.
func (r *Registry) visibleTo(lobby *Lobby, viewer string) bool {
	if !lobby.IsPrivate && lobby.Status == StatusWaiting {
		return true
	}
	if contains(lobby.Players, viewer) {
		return true
	}
	return lobby.IsPrivate && contains(lobby.Whitelist, viewer)
}

type createLobbyRequest struct {
	IsPrivate bool     `json:"is_private"`
	Whitelist []string `json:"whitelist,omitempty"`
}

func (r *Registry) handleCreateLobby(w http.ResponseWriter, req *http.Request) {
	claims, ok := r.authorize(w, req)
	if !ok {
		return
	}
	var payload createLobbyRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed create request")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.playersInLobby[claims.Subject]; busy {
		writeError(w, http.StatusConflict, "Already in a lobby")
		return
	}
	lobby := &Lobby{
		ID:        uuid.New(),
		Owner:     claims.Subject,
		Players:   []string{claims.Subject},
		Status:    StatusWaiting,
		IsPrivate: payload.IsPrivate,
	}
	if payload.IsPrivate {
		lobby.Whitelist = append([]string(nil), payload.Whitelist...)
	}
	r.lobbies[lobby.ID] = lobby
	r.playersInLobby[claims.Subject] = lobby.ID
	writeJSON(w, http.StatusOK, map[string]string{"id": lobby.ID.String()})
}

func (r *Registry) handleJoinLobby(w http.ResponseWriter, req *http.Request) {
	claims, ok := r.authorize(w, req)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(req)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Lobby not found")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, busy := r.playersInLobby[claims.Subject]; busy {
		if existing == id {
			w.WriteHeader(http.StatusOK)
			return
		}
		writeError(w, http.StatusConflict, "Already in a lobby")
		return
	}
	lobby, found := r.lobbies[id]
	if !found {
		writeError(w, http.StatusNotFound, "Lobby not found")
		return
	}
	if lobby.IsPrivate && !contains(lobby.Whitelist, claims.Subject) {
		writeError(w, http.StatusForbidden, "Not in whitelist")
		return
	}
	if !contains(lobby.Players, claims.Subject) {
		lobby.Players = append(lobby.Players, claims.Subject)
	}
	r.playersInLobby[claims.Subject] = id
	w.WriteHeader(http.StatusOK)
}

func (r *Registry) handleDeleteLobby(w http.ResponseWriter, req *http.Request) {
	claims, ok := r.authorize(w, req)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(req)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Lobby not found")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	lobby, found := r.lobbies[id]
	if !found {
		writeError(w, http.StatusNotFound, "Lobby not found")
		return
	}
	if lobby.Owner == claims.Subject {
		delete(r.lobbies, id)
		for player, lid := range r.playersInLobby {
			if lid == id {
				delete(r.playersInLobby, player)
			}
		}
	} else {
		lobby.Players = remove(lobby.Players, claims.Subject)
		delete(r.playersInLobby, claims.Subject)
	}
	w.WriteHeader(http.StatusOK)
}

type inviteRequest struct {
	PublicKeys []string `json:"publicKeys"`
}

func (r *Registry) handleInvite(w http.ResponseWriter, req *http.Request) {
	claims, ok := r.authorize(w, req)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(req)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Lobby not found")
		return
	}
	var payload inviteRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed invite request")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	lobby, found := r.lobbies[id]
	if !found {
		writeError(w, http.StatusNotFound, "Lobby not found")
		return
	}
	if lobby.Owner != claims.Subject {
		writeError(w, http.StatusForbidden, "Only lobby owner can invite players")
		return
	}
	for _, key := range payload.PublicKeys {
		if !contains(lobby.Whitelist, key) {
			lobby.Whitelist = append(lobby.Whitelist, key)
		}
	}
	w.WriteHeader(http.StatusOK)
}

func randomChallenge() string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, challengeLen)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}

func copyLobby(lobby *Lobby) Lobby {
	out := *lobby
	out.Players = append([]string(nil), lobby.Players...)
	out.Whitelist = append([]string(nil), lobby.Whitelist...)
	return out
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func remove(list []string, value string) []string {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
