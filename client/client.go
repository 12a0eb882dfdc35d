package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"sync"
	"time"

	ga "github.com/gotmoney/gotauth"
)

// RefreshThreshold is how long before expiry a new token is fetched
const RefreshThreshold = 5 * time.Minute

// ErrNotLoggedIn is returned when no credential exists and the session is gone.
var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Fields)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// AuthClient logs in to a gotauth server and keeps a bearer token fresh.
// Session calls go through a cookie jar; GetToken and HTTPClient hand out
// bearer tokens for the APIs behind it.
type AuthClient struct {
	mu            sync.Mutex
	serverURL     string
	store         CredentialStore
	session       *http.Client
	baseTransport http.RoundTripper
}

// ClientOption configures an AuthClient
type ClientOption func(*AuthClient)

// WithTransport sets the base transport for every request the client makes.
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *AuthClient) {
		c.baseTransport = transport
	}
}

// WithTimeout sets the timeout of session calls.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *AuthClient) {
		c.session.Timeout = d
	}
}

// NewAuthClient creates a client for serverURL.  A nil store keeps
// credentials in memory only.
func NewAuthClient(serverURL string, store CredentialStore, opts ...ClientOption) *AuthClient {
	if store == nil {
		store = NewMemoryStore()
	}
	jar, _ := cookiejar.New(nil)
	c := &AuthClient{
		serverURL:     strings.TrimRight(serverURL, "/"),
		store:         store,
		baseTransport: http.DefaultTransport,
		session: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
			// Provider callbacks redirect into the web app.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.session.Transport = c.baseTransport
	return c
}

func (c *AuthClient) ServerURL() string { return c.serverURL }

// Signup creates a local account and logs in as it.
func (c *AuthClient) Signup(ctx context.Context, req ga.SignupRequest) (ga.Projection, error) {
	var p ga.Projection
	if err := c.call(ctx, http.MethodPost, "/session/signup", req, &p); err != nil {
		return p, err
	}
	return p, c.fetchToken(ctx, p)
}

// Login authenticates with email and password.
func (c *AuthClient) Login(ctx context.Context, email, password string) (ga.Projection, error) {
	var p ga.Projection
	if err := c.call(ctx, http.MethodPost, "/session/login", ga.LoginRequest{Email: email, Password: password}, &p); err != nil {
		return p, err
	}
	return p, c.fetchToken(ctx, p)
}

// LoginWithProvider logs in with an access token issued by provider.
func (c *AuthClient) LoginWithProvider(ctx context.Context, provider ga.Provider, accessToken string) (ga.Projection, error) {
	var p ga.Projection
	if err := c.call(ctx, http.MethodPost, "/session/"+string(provider), ga.ProviderLoginRequest{AccessToken: accessToken}, &p); err != nil {
		return p, err
	}
	return p, c.fetchToken(ctx, p)
}

// Logout ends the server session and forgets the stored credential.
func (c *AuthClient) Logout(ctx context.Context) error {
	err := c.call(ctx, http.MethodGet, "/session/logout", nil, nil)
	if rmErr := c.forget(); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

// LoggedIn asks the server whether the session is still valid.
func (c *AuthClient) LoggedIn(ctx context.Context) (bool, error) {
	err := c.call(ctx, http.MethodGet, "/session/loggedin", nil, nil)
	if IsStatus(err, http.StatusUnauthorized) {
		return false, nil
	}
	return err == nil, err
}

// Recover asks the server to mail a new password to email.
func (c *AuthClient) Recover(ctx context.Context, email string) error {
	return c.call(ctx, http.MethodPut, "/session/recovery", ga.RecoveryRequest{Email: email}, nil)
}

// Me returns the logged in user's record.
func (c *AuthClient) Me(ctx context.Context) (ga.User, error) {
	var out struct {
		User ga.User
	}
	id, err := c.userID()
	if err != nil {
		return out.User, err
	}
	err = c.call(ctx, http.MethodGet, "/user/"+strconv.FormatInt(id, 10), nil, &out)
	return out.User, err
}

// UpdateProfile changes the logged in user's profile.
func (c *AuthClient) UpdateProfile(ctx context.Context, req ga.UpdateUserRequest) error {
	id, err := c.userID()
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPut, "/user/"+strconv.FormatInt(id, 10), req, nil)
}

// DeleteAccount deletes the logged in user and forgets the credential.
func (c *AuthClient) DeleteAccount(ctx context.Context) error {
	id, err := c.userID()
	if err != nil {
		return err
	}
	if err := c.call(ctx, http.MethodDelete, "/user/"+strconv.FormatInt(id, 10), nil, nil); err != nil {
		return err
	}
	return c.forget()
}

// GetToken returns a valid access token.  A token close to expiry is replaced
// through the session; if that fails the old token is returned while it
// still works.
func (c *AuthClient) GetToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", ErrNotLoggedIn
	}
	if !cred.IsExpiringSoon(RefreshThreshold) {
		return cred.AccessToken, nil
	}
	fresh, err := c.requestToken(ctx, ga.Projection{ID: cred.UserID, Email: cred.UserEmail, DisplayName: cred.UserName})
	if err != nil {
		if !cred.IsExpired() {
			return cred.AccessToken, nil
		}
		if IsStatus(err, http.StatusUnauthorized) {
			return "", ErrNotLoggedIn
		}
		return "", err
	}
	return fresh.AccessToken, nil
}

// Credential returns the stored credential, or nil.
func (c *AuthClient) Credential() (*ServerCredential, error) {
	return c.store.GetCredential(c.serverURL)
}

// HTTPClient returns a client that adds a fresh bearer token to every
// request.
func (c *AuthClient) HTTPClient() *http.Client {
	return &http.Client{Transport: &BearerTransport{Base: c.baseTransport, Source: c}}
}

func (c *AuthClient) userID() (int64, error) {
	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil {
		return 0, err
	}
	if cred == nil || cred.UserID == 0 {
		return 0, ErrNotLoggedIn
	}
	return cred.UserID, nil
}

func (c *AuthClient) fetchToken(ctx context.Context, p ga.Projection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.requestToken(ctx, p)
	return err
}

// requestToken gets a token for the current session and stores it.  Caller
// holds c.mu.
func (c *AuthClient) requestToken(ctx context.Context, p ga.Projection) (*ServerCredential, error) {
	var tr ga.TokenResponse
	if err := c.call(ctx, http.MethodGet, "/session/token", nil, &tr); err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	cred := &ServerCredential{
		AccessToken: tr.Token,
		TokenType:   tr.TokenType,
		UserID:      p.ID,
		UserEmail:   p.Email,
		UserName:    p.DisplayName,
		ExpiresAt:   tr.ExpiresAt,
		CreatedAt:   time.Now(),
	}
	if err := c.store.SetCredential(c.serverURL, cred); err != nil {
		return nil, err
	}
	if err := c.store.Save(); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	return cred, nil
}

func (c *AuthClient) forget() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.RemoveCredential(c.serverURL); err != nil {
		return err
	}
	return c.store.Save()
}

// call sends a JSON request through the session client and decodes a JSON
// response into out when out is non nil.
func (c *AuthClient) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.session.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
