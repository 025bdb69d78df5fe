package config

import (
	"strings"
	"sync"
)

// Endpoint is the mutable base URL all registry calls resolve against.
// SetBaseURL takes effect immediately, no restart required.
type Endpoint struct {
	mu      sync.RWMutex
	baseURL string
}

func NewEndpoint(baseURL string) *Endpoint {
	e := &Endpoint{}
	e.SetBaseURL(baseURL)
	return e
}

func (e *Endpoint) SetBaseURL(baseURL string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

func (e *Endpoint) BaseURL() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.baseURL
}

// Resolve joins a path onto the current base URL.
func (e *Endpoint) Resolve(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return e.BaseURL() + path
}
