package gotauth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ga "github.com/gotmoney/gotauth"
	"github.com/gotmoney/gotauth/stores"
)

type fakeRedirectProvider struct {
	fakeProvider
}

func (f *fakeRedirectProvider) AuthCodeURL(state string) string {
	return "https://provider.example/auth?state=" + url.QueryEscape(state)
}

func (f *fakeRedirectProvider) Exchange(ctx context.Context, code string) (string, error) {
	if code != "good-code" {
		return "", ga.NewAuthError(ga.KindUnauthorized, ga.MsgInvalidCredentials)
	}
	return "access-token", nil
}

type testServer struct {
	*httptest.Server
	auth   *ga.Authenticator
	mailer *recordingMailer
}

func newTestServer(t *testing.T, store ga.CredentialStore) *testServer {
	t.Helper()
	if store == nil {
		store = stores.NewFSUserStore(t.TempDir())
	}
	auth, mailer := setupTestAuthWithStore(t, store)
	gate := ga.NewSessionGate(scs.New(), ga.NewTokenIssuer("server-test-secret-0123456789", "gotauth-test"))
	gate.Logger = discardLogger()

	providers := ga.NewProviderRegistry(
		&fakeProvider{name: ga.ProviderFacebook, assertion: ga.Assertion{ProviderID: "fb-1", Email: "fb@example.com", DisplayName: "FB User"}},
		&fakeRedirectProvider{fakeProvider{name: ga.ProviderGoogle, assertion: ga.Assertion{ProviderID: "g-1", Email: "g@example.com", DisplayName: "G User"}}},
	)
	srv := &ga.Server{Auth: auth, Gate: gate, Providers: providers, Logger: discardLogger()}
	srv.EnsureDefaults()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, auth: auth, mailer: mailer}
}

// newClient returns a browser-like client with its own cookie jar that does
// not follow redirects.
func newClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func doJSON(t *testing.T, c *http.Client, method, u string, body any, headers ...string) (*http.Response, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, u, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func signupBody(email string) map[string]any {
	return map[string]any{"name": "Web User", "email": email, "passwd": "password123", "gender": "M", "alert": true}
}

func TestServerSignupLoginLogout(t *testing.T) {
	ts := newTestServer(t, nil)
	c := newClient(t)

	resp, body := doJSON(t, c, http.MethodGet, ts.URL+"/session/loggedin", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, ga.MsgNotLoggedIn, body["error"])

	resp, body = doJSON(t, c, http.MethodPost, ts.URL+"/session/signup", signupBody("web@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "web@example.com", body["email"])
	assert.Equal(t, "Web User", body["name"])
	assert.NotContains(t, body, "passwd")
	assert.NotEmpty(t, resp.Header.Get(ga.HeaderRequestID))

	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/session/loggedin", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/session/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/session/loggedin", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = doJSON(t, c, http.MethodPost, ts.URL+"/session/login", map[string]any{"email": "web@example.com", "passwd": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, ga.MsgInvalidCredentials, body["error"])
	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/session/loggedin", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "a failed login leaves no session")

	resp, body = doJSON(t, c, http.MethodPost, ts.URL+"/session/login", map[string]any{"email": "web@example.com", "passwd": "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "web@example.com", body["email"])
	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/session/loggedin", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	c := newClient(t)

	resp, body := doJSON(t, c, http.MethodPost, ts.URL+"/session/signup", map[string]any{"name": "x", "email": "not-an-email", "passwd": "123", "gender": "X"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation error", body["error"])
	fields, _ := body["fields"].(map[string]any)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "passwd")
	assert.Contains(t, fields, "gender")

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/session/login", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	raw, err := c.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestServerSignupConflict(t *testing.T) {
	ts := newTestServer(t, nil)
	c := newClient(t)
	resp, _ := doJSON(t, c, http.MethodPost, ts.URL+"/session/signup", signupBody("taken@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, newClient(t), http.MethodPost, ts.URL+"/session/signup", signupBody("taken@example.com"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, ga.MsgEmailTaken, body["error"])
}

func TestServerUserRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	c := newClient(t)
	_, me := doJSON(t, c, http.MethodPost, ts.URL+"/session/signup", signupBody("owner@example.com"))
	id := int64(me["iduser"].(float64))
	_, other := doJSON(t, newClient(t), http.MethodPost, ts.URL+"/session/signup", signupBody("other@example.com"))
	otherID := int64(other["iduser"].(float64))

	userURL := func(id int64) string { return fmt.Sprintf("%s/user/%d", ts.URL, id) }

	resp, body := doJSON(t, c, http.MethodGet, userURL(id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user, _ := body["User"].(map[string]any)
	assert.Equal(t, "owner@example.com", user["email"])
	assert.Equal(t, "M", user["gender"])
	assert.NotContains(t, user, "passwd")
	assert.NotContains(t, user, "PasswordHash")

	resp, body = doJSON(t, c, http.MethodGet, userURL(otherID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, ga.MsgNotFound, body["error"])

	resp, _ = doJSON(t, newClient(t), http.MethodGet, userURL(id), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, c, http.MethodPut, userURL(id), map[string]any{"name": "Renamed", "alert": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, body = doJSON(t, c, http.MethodGet, userURL(id), nil)
	user, _ = body["User"].(map[string]any)
	assert.Equal(t, "Renamed", user["name"])
	assert.Equal(t, false, user["alert"])

	resp, body = doJSON(t, c, http.MethodPut, userURL(id), map[string]any{"name": "Renamed", "passwdold": "wrongpass", "passwd": "newpass123"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, ga.MsgInvalidPassword, body["error"])

	resp, _ = doJSON(t, c, http.MethodDelete, userURL(otherID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_, err := ts.auth.GetUser(context.Background(), otherID)
	assert.NoError(t, err, "other users cannot be deleted")

	resp, _ = doJSON(t, c, http.MethodDelete, userURL(id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/session/loggedin", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServerRecovery(t *testing.T) {
	ts := newTestServer(t, nil)
	c := newClient(t)
	doJSON(t, c, http.MethodPost, ts.URL+"/session/signup", signupBody("lost@example.com"))

	resp, _ := doJSON(t, c, http.MethodPut, ts.URL+"/session/recovery", map[string]any{"email": "lost@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ts.auth.WaitForMail()
	m := ts.mailer.last(t, "recovery", "lost@example.com")

	resp, _ = doJSON(t, newClient(t), http.MethodPost, ts.URL+"/session/login", map[string]any{"email": "lost@example.com", "passwd": m.Password})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, c, http.MethodPut, ts.URL+"/session/recovery", map[string]any{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, ga.MsgNotFound, body["error"])
}

func TestServerBearerToken(t *testing.T) {
	ts := newTestServer(t, nil)
	c := newClient(t)
	doJSON(t, c, http.MethodPost, ts.URL+"/session/signup", signupBody("api@example.com"))

	resp, body := doJSON(t, c, http.MethodGet, ts.URL+"/session/token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "Bearer", body["token_type"])

	api := newClient(t)
	resp, _ = doJSON(t, api, http.MethodGet, ts.URL+"/session/loggedin", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, api, http.MethodGet, ts.URL+"/session/loggedin", nil, "Authorization", "Bearer "+token+"x")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServerProviderLogin(t *testing.T) {
	ts := newTestServer(t, nil)
	c := newClient(t)

	resp, body := doJSON(t, c, http.MethodPost, ts.URL+"/session/facebook", map[string]any{"access_token": "fb-token"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fb@example.com", body["email"])
	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/session/loggedin", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, c, http.MethodPost, ts.URL+"/session/twitter", map[string]any{"access_token": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, c, http.MethodPost, ts.URL+"/session/facebook", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerProviderRedirectFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	c := newClient(t)

	resp, _ := doJSON(t, c, http.MethodGet, ts.URL+"/session/google?callbackURL=/dashboard", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "provider.example", loc.Host)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	resp, body := doJSON(t, c, http.MethodGet, ts.URL+"/session/google/callback?code=good-code&state=wrong", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid oauth state", body["error"])

	// the state is single use, so start over
	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/session/google?callbackURL=/dashboard", nil)
	loc, _ = url.Parse(resp.Header.Get("Location"))
	state = loc.Query().Get("state")

	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/session/google/callback?code=good-code&state="+url.QueryEscape(state), nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/session/loggedin", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	u, err := ts.auth.FindByGoogle(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Equal(t, "g@example.com", u.Email)
}

func TestServerProviderRedirectRejectsOffsiteCallback(t *testing.T) {
	ts := newTestServer(t, nil)
	c := newClient(t)

	resp, _ := doJSON(t, c, http.MethodGet, ts.URL+"/session/google?callbackURL=//evil.example/", nil)
	loc, _ := url.Parse(resp.Header.Get("Location"))
	state := loc.Query().Get("state")

	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/session/google/callback?code=good-code&state="+url.QueryEscape(state), nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	// facebook has no browser flow configured here
	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/session/facebook", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerHidesInternalErrors(t *testing.T) {
	store := &flakyStore{CredentialStore: stores.NewFSUserStore(t.TempDir()), failFindByEmail: true}
	ts := newTestServer(t, store)

	resp, body := doJSON(t, newClient(t), http.MethodPost, ts.URL+"/session/login", map[string]any{"email": "a@example.com", "passwd": "password123"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", body["error"])
}
