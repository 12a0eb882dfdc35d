// Package client talks to a gotauth server from Go programs: other GotMoney
// services, command line tools and tests.  It logs in through the session
// endpoints, keeps the session cookie, and turns it into bearer tokens for
// API calls, fetching a new token shortly before the old one expires.
package client

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

// ServerCredential is the bearer token held for one server.
type ServerCredential struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	UserID      int64     `json:"iduser,omitempty"`
	UserEmail   string    `json:"email,omitempty"`
	UserName    string    `json:"name,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsExpired returns true if the access token has expired
func (c *ServerCredential) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// IsExpiringSoon returns true if the token expires within the given duration
func (c *ServerCredential) IsExpiringSoon(within time.Duration) bool {
	return time.Now().Add(within).After(c.ExpiresAt)
}

// CredentialStore keeps credentials between runs.  GetCredential returns
// nil, nil when there is nothing stored for the server.
type CredentialStore interface {
	GetCredential(serverURL string) (*ServerCredential, error)
	SetCredential(serverURL string, cred *ServerCredential) error
	RemoveCredential(serverURL string) error
	ListServers() ([]string, error)
	// Save persists pending changes
	Save() error
}

// serverKey reduces a server URL to scheme://host.
func serverKey(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: no host", serverURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// MemoryStore is a CredentialStore that forgets everything on exit.
type MemoryStore struct {
	mu      sync.RWMutex
	servers map[string]*ServerCredential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{servers: make(map[string]*ServerCredential)}
}

func (m *MemoryStore) GetCredential(serverURL string) (*ServerCredential, error) {
	key, err := serverKey(serverURL)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.servers[key], nil
}

func (m *MemoryStore) SetCredential(serverURL string, cred *ServerCredential) error {
	key, err := serverKey(serverURL)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers[key] = cred
	return nil
}

func (m *MemoryStore) RemoveCredential(serverURL string) error {
	key, err := serverKey(serverURL)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.servers, key)
	return nil
}

func (m *MemoryStore) ListServers() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.servers))
	for k := range m.servers {
		out = append(out, k)
	}
	return out, nil
}

func (m *MemoryStore) Save() error { return nil }
