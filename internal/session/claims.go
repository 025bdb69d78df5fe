package session

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Claims is the best-effort decode of a bearer token's payload segment.
// The client never verifies the signature segment; the remote service is the
// authority and rejects invalid tokens on the next call.
type Claims struct {
	Subject  string `json:"sub"`
	Username string `json:"username"`
	Expiry   int64  `json:"exp"`
}

// DecodeClaims splits the token on its three dot-separated segments and
// decodes the middle one. Any structural failure yields nil.
func DecodeClaims(token string) *Claims {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}
	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	return &claims
}

func decodeSegment(segment string) ([]byte, error) {
	if raw, err := base64.RawURLEncoding.DecodeString(segment); err == nil {
		return raw, nil
	}
	return base64.URLEncoding.DecodeString(segment)
}
