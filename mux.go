package gotauth

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// Server exposes the auth flows over HTTP.  Routes are mounted on a gorilla
// mux router:
//
//	POST   /session/login        local login
//	POST   /session/signup       local signup
//	GET    /session/logout       end the session
//	GET    /session/loggedin     200 if authenticated
//	PUT    /session/recovery     mail a new password
//	POST   /session/{provider}   provider login with an access token
//	GET    /session/{provider}   redirect to the provider consent page
//	GET    /session/{provider}/callback
//	                             finish the browser flow
//	GET    /session/token        bearer token for the current identity
//	GET    /user/{id}            the caller's own record
//	PUT    /user/{id}            update the caller's profile
//	DELETE /user/{id}            delete the caller's account
type Server struct {
	// Must be passed in
	Auth *Authenticator
	Gate *SessionGate

	// Optional
	Providers *ProviderRegistry
	Tokens    *TokenIssuer
	Validator *Validator
	Logger    *slog.Logger

	// Where the browser lands after a provider callback when the login
	// request named no callbackURL.  Defaults to "/"
	LoginRedirect string

	// Show internal error details in 500 responses
	DevMode bool
}

const (
	sessionKeyOAuthState  = "oauthstate"
	sessionKeyOAuthReturn = "oauthCallbackURL"
)

func NewServer(auth *Authenticator, gate *SessionGate) *Server {
	return (&Server{Auth: auth, Gate: gate}).EnsureDefaults()
}

func (s *Server) EnsureDefaults() *Server {
	if s.Providers == nil {
		s.Providers = NewProviderRegistry()
	}
	if s.Tokens == nil {
		s.Tokens = s.Gate.Tokens
	}
	if s.Validator == nil {
		s.Validator = NewValidator()
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.LoginRedirect == "" {
		s.LoginRedirect = "/"
	}
	return s
}

// Handler returns a router with every route mounted and the session
// middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.Routes(r)
	r.Use(RequestID, RequestLogger(s.Logger))
	return s.Gate.Session.LoadAndSave(r)
}

// Routes mounts the auth routes on r.  The caller must wrap r with the scs
// LoadAndSave middleware.
func (s *Server) Routes(r *mux.Router) {
	s.EnsureDefaults()
	auth := s.Gate.RequireAuthenticated

	session := r.PathPrefix("/session").Subrouter()
	session.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	session.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	session.HandleFunc("/logout", s.handleLogout).Methods(http.MethodGet)
	session.Handle("/loggedin", auth(http.HandlerFunc(s.ok))).Methods(http.MethodGet)
	session.HandleFunc("/recovery", s.handleRecovery).Methods(http.MethodPut)
	session.Handle("/token", auth(http.HandlerFunc(s.handleToken))).Methods(http.MethodGet)
	session.HandleFunc("/{provider}", s.handleProviderLogin).Methods(http.MethodPost)
	session.HandleFunc("/{provider}", s.handleProviderRedirect).Methods(http.MethodGet)
	session.HandleFunc("/{provider}/callback", s.handleProviderCallback).Methods(http.MethodGet)

	user := r.PathPrefix("/user").Subrouter()
	user.Use(auth)
	user.HandleFunc("/{id:[0-9]+}", s.ownUser(s.handleGetUser)).Methods(http.MethodGet)
	user.HandleFunc("/{id:[0-9]+}", s.ownUser(s.handleUpdateUser)).Methods(http.MethodPut)
	user.HandleFunc("/{id:[0-9]+}", s.ownUser(s.handleDeleteUser)).Methods(http.MethodDelete)
}

func (s *Server) ok(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if StatusOf(err) >= http.StatusInternalServerError {
		s.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	WriteError(w, err, s.DevMode)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, s.Validator, &req) {
		return
	}
	p, err := s.Gate.Authenticate(r.Context(), func(ctx context.Context) (Projection, error) {
		return s.Auth.LocalLogin(ctx, req.Email, req.Password)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeBody(w, r, s.Validator, &req) {
		return
	}
	p, err := s.Gate.Authenticate(r.Context(), func(ctx context.Context) (Projection, error) {
		return s.Auth.LocalSignup(ctx, req.Profile())
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Gate.Logout(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r)
}

func (s *Server) handleRecovery(w http.ResponseWriter, r *http.Request) {
	var req RecoveryRequest
	if !decodeBody(w, r, s.Validator, &req) {
		return
	}
	if err := s.Auth.PasswordRecovery(r.Context(), req.Email); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r)
}

func (s *Server) handleProviderLogin(w http.ResponseWriter, r *http.Request) {
	provider, err := s.Providers.Get(Provider(mux.Vars(r)["provider"]))
	if err != nil {
		WriteError(w, errNotFound(), s.DevMode)
		return
	}
	var req ProviderLoginRequest
	if !decodeBody(w, r, s.Validator, &req) {
		return
	}
	p, err := s.Gate.Authenticate(r.Context(), func(ctx context.Context) (Projection, error) {
		return s.Auth.LoginWithProvider(ctx, provider, req.AccessToken)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// redirectProvider returns the named provider if it supports the browser
// flow.
func (s *Server) redirectProvider(r *http.Request) (RedirectProvider, bool) {
	p, err := s.Providers.Get(Provider(mux.Vars(r)["provider"]))
	if err != nil {
		return nil, false
	}
	rp, ok := p.(RedirectProvider)
	return rp, ok
}

func (s *Server) handleProviderRedirect(w http.ResponseWriter, r *http.Request) {
	rp, ok := s.redirectProvider(r)
	if !ok {
		WriteError(w, errNotFound(), s.DevMode)
		return
	}
	state, err := newOAuthState()
	if err != nil {
		s.fail(w, r, errInfrastructure("failed to generate oauth state", err))
		return
	}
	ctx := r.Context()
	s.Gate.Session.Put(ctx, sessionKeyOAuthState, string(rp.Name())+":"+state)
	if cb := r.URL.Query().Get("callbackURL"); isLocalPath(cb) {
		s.Gate.Session.Put(ctx, sessionKeyOAuthReturn, cb)
	}
	http.Redirect(w, r, rp.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleProviderCallback(w http.ResponseWriter, r *http.Request) {
	rp, ok := s.redirectProvider(r)
	if !ok {
		WriteError(w, errNotFound(), s.DevMode)
		return
	}
	ctx := r.Context()
	// Both values are single use and must be read before the login below
	// destroys the session.
	want := s.Gate.Session.PopString(ctx, sessionKeyOAuthState)
	returnTo := s.Gate.Session.PopString(ctx, sessionKeyOAuthReturn)
	if returnTo == "" {
		returnTo = s.LoginRedirect
	}

	q := r.URL.Query()
	if q.Get("state") == "" || want != string(rp.Name())+":"+q.Get("state") {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid oauth state"})
		return
	}
	if q.Get("code") == "" {
		WriteError(w, &AuthError{Kind: KindUnauthorized, Message: MsgInvalidCredentials}, s.DevMode)
		return
	}

	_, err := s.Gate.Authenticate(ctx, func(ctx context.Context) (Projection, error) {
		token, err := rp.Exchange(ctx, q.Get("code"))
		if err != nil {
			return Projection{}, err
		}
		return s.Auth.LoginWithProvider(ctx, rp, token)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
}

// isLocalPath reports whether u is a same-origin path, so the callback
// redirect can never leave the site.
func isLocalPath(u string) bool {
	return strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//") && !strings.HasPrefix(u, "/\\")
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.Tokens == nil {
		WriteError(w, errNotFound(), s.DevMode)
		return
	}
	p, _ := ProjectionFromContext(r.Context())
	token, expiresAt, err := s.Tokens.Issue(p)
	if err != nil {
		s.fail(w, r, errInfrastructure("failed to issue token", err))
		return
	}
	WriteJSON(w, http.StatusOK, TokenResponse{Token: token, TokenType: "Bearer", ExpiresAt: expiresAt})
}

// ownUser only lets a user reach their own /user/{id}.  Anyone else gets the
// same 404 as a missing user.
func (s *Server) ownUser(next func(w http.ResponseWriter, r *http.Request, id int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		p, ok := ProjectionFromContext(r.Context())
		if err != nil || !ok || p.ID != id {
			WriteError(w, errNotFound(), s.DevMode)
			return
		}
		next(w, r, id)
	}
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, id int64) {
	u, err := s.Auth.GetUser(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]User{"User": u})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, id int64) {
	var req UpdateUserRequest
	if !decodeBody(w, r, s.Validator, &req) {
		return
	}
	if err := s.Auth.UpdateProfile(r.Context(), id, req.ProfileUpdate()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.Auth.DeleteUser(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Gate.Logout(r.Context()); err != nil {
		s.Logger.WarnContext(r.Context(), "error ending session of deleted user", "err", err)
	}
	s.ok(w, r)
}
