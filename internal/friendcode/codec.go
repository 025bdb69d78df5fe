// Package friendcode implements the offline-shareable friend code and the
// persistent friend collection. A code is self-contained: base64 over a
// UTF-8 JSON record, no server-side representation.
package friendcode

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedFriendCode = errors.New("malformed friend code")
	ErrDuplicateFriend     = errors.New("friend already exists")
)

// Friend pairs a display name with the public key that identifies it.
// The collection is keyed by PublicKey.
type Friend struct {
	Username  string `json:"username"`
	PublicKey string `json:"public_key"`
}

func Encode(username, publicKey string) (string, error) {
	if username == "" || publicKey == "" {
		return "", fmt.Errorf("%w: username and public key are required", ErrMalformedFriendCode)
	}
	payload, err := json.Marshal(Friend{Username: username, PublicKey: publicKey})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

func Decode(code string) (Friend, error) {
	payload, err := base64.StdEncoding.DecodeString(code)
	if err != nil {
		return Friend{}, fmt.Errorf("%w: not base64", ErrMalformedFriendCode)
	}
	var friend Friend
	if err := json.Unmarshal(payload, &friend); err != nil {
		return Friend{}, fmt.Errorf("%w: not a friend record", ErrMalformedFriendCode)
	}
	if friend.Username == "" || friend.PublicKey == "" {
		return Friend{}, fmt.Errorf("%w: missing username or public key", ErrMalformedFriendCode)
	}
	return friend, nil
}
