package lobbyclient

import "github.com/google/uuid"

// Status mirrors the registry's lifecycle values verbatim.
type Status string

const (
	StatusWaiting    Status = "Waiting"
	StatusInProgress Status = "InProgress"
)

// Lobby is the registry's wire representation. Players and Whitelist hold
// base64 public keys, the same identifiers that appear in token subjects.
type Lobby struct {
	ID        uuid.UUID `json:"id"`
	Owner     string    `json:"owner"`
	Players   []string  `json:"players"`
	Status    Status    `json:"status"`
	IsPrivate bool      `json:"is_private"`
	Whitelist []string  `json:"whitelist,omitempty"`
}

func (l Lobby) HasPlayer(publicKey string) bool {
	for _, p := range l.Players {
		if p == publicKey {
			return true
		}
	}
	return false
}

func (l Lobby) IsWhitelisted(publicKey string) bool {
	for _, w := range l.Whitelist {
		if w == publicKey {
			return true
		}
	}
	return false
}

func copyLobbies(in []Lobby) []Lobby {
	out := make([]Lobby, len(in))
	for i, l := range in {
		out[i] = l
		out[i].Players = append([]string(nil), l.Players...)
		out[i].Whitelist = append([]string(nil), l.Whitelist...)
	}
	return out
}
