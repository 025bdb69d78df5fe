// Package authclient executes the challenge-response exchange against the
// registry: request a nonce, sign it with the derived ed25519 key, submit,
// and install the returned session token. The private key never leaves the
// signing call; no step is retried automatically.
package authclient

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"matchlobby/go-client/internal/config"
	"matchlobby/go-client/internal/identity"
	"matchlobby/go-client/internal/platform/metrics"
	"matchlobby/go-client/internal/platform/ratelimiter"
	"matchlobby/go-client/internal/session"
)

var (
	ErrChallengeUnavailable = errors.New("challenge request failed")
	ErrLoginRejected        = errors.New("login rejected")
	ErrNetwork              = errors.New("network failure")
	ErrTooManyAttempts      = errors.New("too many login attempts")
	ErrWalletUnavailable    = errors.New("wallet signer unavailable")
	ErrWalletLoginRejected  = errors.New("wallet login rejected")
)

// WalletSigner abstracts an externally-held key: the wallet produces the
// signature, the client never sees the private key.
type WalletSigner interface {
	PublicKeyB64() string
	Sign(ctx context.Context, message string) (signatureB64 string, err error)
}

type Authenticator struct {
	endpoint *config.Endpoint
	deriver  *identity.Deriver
	sessions *session.Store
	http     *http.Client
	limiter  *ratelimiter.MapLimiter
	log      *slog.Logger
	now      func() time.Time
}

func New(endpoint *config.Endpoint, deriver *identity.Deriver, sessions *session.Store, httpClient *http.Client, log *slog.Logger) *Authenticator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Authenticator{
		endpoint: endpoint,
		deriver:  deriver,
		sessions: sessions,
		http:     httpClient,
		limiter:  ratelimiter.New(1, 5, 10*time.Minute),
		log:      log,
		now:      time.Now,
	}
}

type challengeResponse struct {
	Challenge string `json:"challenge"`
}

type loginRequest struct {
	PublicKeyB64 string `json:"public_key_b64"`
	Username     string `json:"username"`
	Challenge    string `json:"challenge"`
	SignatureB64 string `json:"signature_b64"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login runs the full exchange for a derived-key credential and installs the
// session on success. The credential's source tag picks the derivation path,
// so recovery logins reproduce the identity created originally.
func (a *Authenticator) Login(ctx context.Context, cred identity.Credential) error {
	method := "password"
	if cred.Source == identity.SourceMnemonic {
		method = "mnemonic"
	}
	if err := a.login(ctx, cred, method); err != nil {
		metrics.LoginAttempts.WithLabelValues(method, metrics.ResultError).Inc()
		return err
	}
	metrics.LoginAttempts.WithLabelValues(method, metrics.ResultOK).Inc()
	return nil
}

func (a *Authenticator) login(ctx context.Context, cred identity.Credential, method string) error {
	if strings.TrimSpace(cred.Username) == "" {
		return fmt.Errorf("%w: username is required", identity.ErrValidation)
	}
	if cred.Secret == "" {
		return fmt.Errorf("%w: secret is required", identity.ErrValidation)
	}
	if !a.limiter.Allow(cred.Username, a.now()) {
		return ErrTooManyAttempts
	}

	keys, err := a.deriver.Keys(cred)
	if err != nil {
		return err
	}

	challenge, err := a.fetchChallenge(ctx)
	if err != nil {
		return err
	}
	signature := ed25519.Sign(keys.PrivateKey, []byte(challenge))

	token, err := a.submitLogin(ctx, loginRequest{
		PublicKeyB64: base64.StdEncoding.EncodeToString(keys.PublicKey),
		Username:     cred.Username,
		Challenge:    challenge,
		SignatureB64: base64.StdEncoding.EncodeToString(signature),
	}, ErrLoginRejected)
	if err != nil {
		return err
	}

	if err := a.sessions.SetToken(token, false); err != nil {
		return err
	}
	if cred.Mnemonic != "" {
		if err := a.sessions.SetRecoveryPhrase(cred.Mnemonic); err != nil {
			return err
		}
	}
	a.log.Info("login succeeded", "username", cred.Username, "method", method)
	return nil
}

// WalletLogin is the structurally identical exchange with an external
// signer; no local derivation happens and the session is tagged as
// wallet-sourced.
func (a *Authenticator) WalletLogin(ctx context.Context, username string, signer WalletSigner) error {
	err := a.walletLogin(ctx, username, signer)
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}
	metrics.LoginAttempts.WithLabelValues("wallet", result).Inc()
	return err
}

func (a *Authenticator) walletLogin(ctx context.Context, username string, signer WalletSigner) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", identity.ErrValidation)
	}
	if signer == nil {
		return ErrWalletUnavailable
	}
	publicKeyB64 := signer.PublicKeyB64()
	if publicKeyB64 == "" {
		return fmt.Errorf("%w: signer has no public key", ErrWalletUnavailable)
	}

	challenge, err := a.fetchChallenge(ctx)
	if err != nil {
		return err
	}
	signatureB64, err := signer.Sign(ctx, challenge)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWalletUnavailable, err)
	}

	token, err := a.submitLogin(ctx, loginRequest{
		PublicKeyB64: publicKeyB64,
		Username:     username,
		Challenge:    challenge,
		SignatureB64: signatureB64,
	}, ErrWalletLoginRejected)
	if err != nil {
		return err
	}

	if err := a.sessions.SetToken(token, true); err != nil {
		return err
	}
	a.log.Info("wallet login succeeded", "username", username)
	return nil
}

// Logout is the explicit session teardown; it never talks to the registry.
func (a *Authenticator) Logout() error {
	return a.sessions.Clear()
}

func (a *Authenticator) fetchChallenge(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint.Resolve("/auth/challenge"), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrChallengeUnavailable, resp.StatusCode)
	}
	var parsed challengeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	if parsed.Challenge == "" {
		return "", fmt.Errorf("%w: empty challenge", ErrChallengeUnavailable)
	}
	return parsed.Challenge, nil
}

func (a *Authenticator) submitLogin(ctx context.Context, payload loginRequest, rejection error) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint.Resolve("/auth/login"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s", rejection, serverMessage(resp))
	}
	var parsed loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("%w: empty token", rejection)
	}
	return parsed.Token, nil
}

// serverMessage extracts a human-readable rejection reason, always non-empty
// even when the response carried no body.
func serverMessage(resp *http.Response) string {
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
