package registrytest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type tokenClaims struct {
	Subject  string `json:"sub"`
	Username string `json:"username"`
	Expiry   int64  `json:"exp"`
}

// issueToken mints a three-segment HS256 token over {sub, username, exp}.
func (r *Registry) issueToken(subject, username string) (string, error) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body, err := json.Marshal(tokenClaims{
		Subject:  subject,
		Username: username,
		Expiry:   r.now().Add(tokenLifetime).Unix(),
	})
	if err != nil {
		return "", err
	}
	payload := header + "." + base64.RawURLEncoding.EncodeToString(body)
	return payload + "." + r.sign(payload), nil
}

func (r *Registry) sign(payload string) string {
	mac := hmac.New(sha256.New, r.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// authorize validates the bearer token and returns its claims; on failure it
// writes a 401 and returns ok=false.
func (r *Registry) authorize(w http.ResponseWriter, req *http.Request) (tokenClaims, bool) {
	auth := req.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found {
		writeError(w, http.StatusUnauthorized, "Missing bearer token")
		return tokenClaims{}, false
	}
	claims, ok := r.verifyToken(token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return tokenClaims{}, false
	}
	return claims, true
}

func (r *Registry) verifyToken(token string) (tokenClaims, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return tokenClaims{}, false
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(r.sign(payload)), []byte(parts[2])) {
		return tokenClaims{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return tokenClaims{}, false
	}
	var claims tokenClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return tokenClaims{}, false
	}
	if time.Unix(claims.Expiry, 0).Before(r.now()) {
		return tokenClaims{}, false
	}
	return claims, true
}
