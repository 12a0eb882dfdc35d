package gotauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
)

// AuthProvider verifies a provider access token and returns the identity it
// belongs to.  A token the provider rejects should be reported as an
// Unauthorized AuthError; transport failures as infrastructure failures.
type AuthProvider interface {
	Name() Provider
	Authenticate(ctx context.Context, accessToken string) (Assertion, error)
}

// ProviderRegistry is the set of providers enabled for a server.  It is built
// at startup and passed to whoever dispatches provider logins.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[Provider]AuthProvider
}

func NewProviderRegistry(providers ...AuthProvider) *ProviderRegistry {
	r := &ProviderRegistry{providers: make(map[Provider]AuthProvider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds p, replacing any provider with the same name.
func (r *ProviderRegistry) Register(p AuthProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.providers == nil {
		r.providers = make(map[Provider]AuthProvider)
	}
	r.providers[p.Name()] = p
}

// Get returns the provider registered under name.
func (r *ProviderRegistry) Get(name Provider) (AuthProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, &AuthError{Kind: KindNotFound, Message: fmt.Sprintf("provider %q not configured", name)}
	}
	return p, nil
}

// Names lists the registered providers in sorted order.
func (r *ProviderRegistry) Names() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RedirectProvider is an AuthProvider that also supports the browser
// authorization code flow.
type RedirectProvider interface {
	AuthProvider
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (accessToken string, err error)
}

// newOAuthState returns an unguessable value for the OAuth2 state parameter.
func newOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
