package oauth2

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"

	ga "github.com/gotmoney/gotauth"
)

// BaseProvider holds the OAuth2 client configuration shared by the providers.
// Besides verifying access tokens sent by clients, it supports the browser
// authorization code flow through AuthCodeURL and Exchange.
type BaseProvider struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string

	// HTTPClient used for token exchange and profile calls.  Defaults to
	// http.DefaultClient
	HTTPClient *http.Client

	oauthConfig oauth2.Config
}

func NewBaseProvider(clientId, clientSecret, callbackUrl string, endpoint oauth2.Endpoint, scopes ...string) *BaseProvider {
	return &BaseProvider{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
	}
}

// WithEndpoint overrides the authorization and token endpoints, mainly for
// tests.
func (b *BaseProvider) WithEndpoint(endpoint oauth2.Endpoint) {
	b.oauthConfig.Endpoint = endpoint
}

// ExchangeContext returns ctx carrying the custom HTTP client, if any, for the
// oauth2 package to use.
func (b *BaseProvider) ExchangeContext(ctx context.Context) context.Context {
	if b.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, b.HTTPClient)
	}
	return ctx
}

// client returns an HTTP client that sends accessToken as a bearer token.
func (b *BaseProvider) client(ctx context.Context, accessToken string) *http.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return oauth2.NewClient(b.ExchangeContext(ctx), ts)
}

// AuthCodeURL returns the provider consent page URL for state.
func (b *BaseProvider) AuthCodeURL(state string) string {
	return b.oauthConfig.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token.
func (b *BaseProvider) Exchange(ctx context.Context, code string) (string, error) {
	token, err := b.oauthConfig.Exchange(b.ExchangeContext(ctx), code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
			return "", unauthorized(err)
		}
		return "", infrastructure("code exchange failed", err)
	}
	return token.AccessToken, nil
}

func envOr(value, key string) string {
	if value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv(key))
}

func unauthorized(err error) error {
	return &ga.AuthError{Kind: ga.KindUnauthorized, Message: ga.MsgInvalidCredentials, Err: err}
}

func infrastructure(msg string, err error) error {
	return &ga.AuthError{Kind: ga.KindInfrastructure, Message: msg, Err: err}
}
