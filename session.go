package gotauth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
)

// SessionKeyIdentity is the session key that holds the logged in Projection.
// Nothing else about the user is ever written to the session.
const SessionKeyIdentity = "identity"

type projectionKey struct{}

// WithProjection returns a context carrying the authenticated identity.
func WithProjection(ctx context.Context, p Projection) context.Context {
	return context.WithValue(ctx, projectionKey{}, p)
}

// ProjectionFromContext returns the identity set by
// SessionGate.RequireAuthenticated.
func ProjectionFromContext(ctx context.Context) (Projection, bool) {
	p, ok := ctx.Value(projectionKey{}).(Projection)
	return p, ok && !p.IsZero()
}

// SessionGate marks requests as authenticated.  The session data lives in the
// injected scs.SessionManager, whose LoadAndSave middleware must wrap every
// route that uses the gate.
type SessionGate struct {
	// Must be passed in
	Session *scs.SessionManager

	// Optional.  When set, requests without a session may authenticate with
	// an "Authorization: Bearer <token>" header.
	Tokens *TokenIssuer

	Logger  *slog.Logger
	Metrics *Metrics
}

func NewSessionGate(session *scs.SessionManager, tokens *TokenIssuer) *SessionGate {
	return (&SessionGate{Session: session, Tokens: tokens}).EnsureDefaults()
}

func (g *SessionGate) EnsureDefaults() *SessionGate {
	if g.Logger == nil {
		g.Logger = slog.Default()
	}
	return g
}

// Login stores p as the session identity under a fresh session token.
func (g *SessionGate) Login(ctx context.Context, p Projection) error {
	if err := g.Session.RenewToken(ctx); err != nil {
		return errInfrastructure("failed to renew session", err)
	}
	g.Session.Put(ctx, SessionKeyIdentity, p)
	return nil
}

// Logout ends the current session, if any.
func (g *SessionGate) Logout(ctx context.Context) error {
	if err := g.Session.Destroy(ctx); err != nil {
		return errInfrastructure("failed to destroy session", err)
	}
	return nil
}

// Current returns the identity stored in the session.
func (g *SessionGate) Current(ctx context.Context) (Projection, bool) {
	p, ok := g.Session.Get(ctx, SessionKeyIdentity).(Projection)
	return p, ok && !p.IsZero()
}

// Authenticate ends any existing session, runs the credential check in fn and
// on success logs the returned identity in.  The old session is gone even if
// fn fails.
func (g *SessionGate) Authenticate(ctx context.Context, fn func(ctx context.Context) (Projection, error)) (Projection, error) {
	if err := g.Logout(ctx); err != nil {
		return Projection{}, err
	}
	p, err := fn(ctx)
	if err != nil {
		return Projection{}, err
	}
	if err := g.Login(ctx, p); err != nil {
		return Projection{}, err
	}
	return p, nil
}

// Identify returns the identity of the request from the session or, failing
// that, from a bearer token.
func (g *SessionGate) Identify(r *http.Request) (Projection, bool) {
	if p, ok := g.Current(r.Context()); ok {
		g.Metrics.observeGate("session")
		return p, true
	}
	if g.Tokens == nil {
		return Projection{}, false
	}
	for _, header := range r.Header.Values("Authorization") {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			continue
		}
		p, err := g.Tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			g.Logger.Debug("bearer token rejected", "err", err)
			continue
		}
		g.Metrics.observeGate("bearer")
		return p, true
	}
	return Projection{}, false
}

// RequireAuthenticated rejects requests without an identity with a 401 and
// otherwise puts the identity on the request context.
func (g *SessionGate) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := g.Identify(r)
		if !ok {
			g.Metrics.observeGate("rejected")
			WriteError(w, NewAuthError(KindUnauthorized, MsgNotLoggedIn), false)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithProjection(r.Context(), p)))
	})
}
