package oauth2

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"golang.org/x/oauth2/facebook"

	ga "github.com/gotmoney/gotauth"
)

// DefaultGraphURL is the Graph API base used for profile lookups
const DefaultGraphURL = "https://graph.facebook.com/v19.0"

// FacebookProvider verifies Facebook user access tokens against the Graph
// API.  Every call carries an appsecret_proof.
type FacebookProvider struct {
	*BaseProvider

	// GraphURL can be overridden for testing
	GraphURL string
}

// NewFacebookProvider creates the provider.  Empty arguments are read from
// FACEBOOK_APP_ID, FACEBOOK_APP_SECRET and FACEBOOK_CALLBACK_URL.
func NewFacebookProvider(appId, appSecret, callbackUrl string) *FacebookProvider {
	appId = envOr(appId, "FACEBOOK_APP_ID")
	appSecret = envOr(appSecret, "FACEBOOK_APP_SECRET")
	callbackUrl = envOr(callbackUrl, "FACEBOOK_CALLBACK_URL")
	return &FacebookProvider{
		BaseProvider: NewBaseProvider(appId, appSecret, callbackUrl, facebook.Endpoint, "email", "public_profile"),
		GraphURL:     DefaultGraphURL,
	}
}

func (f *FacebookProvider) Name() ga.Provider { return ga.ProviderFacebook }

type facebookProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Authenticate fetches /me for accessToken.  Accounts without a confirmed
// email come back with an empty Email.
func (f *FacebookProvider) Authenticate(ctx context.Context, accessToken string) (ga.Assertion, error) {
	if accessToken == "" {
		return ga.Assertion{}, unauthorized(errors.New("missing access token"))
	}
	q := url.Values{}
	q.Set("fields", "id,name,email")
	if f.ClientSecret != "" {
		q.Set("appsecret_proof", appsecretProof(accessToken, f.ClientSecret))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.GraphURL+"/me?"+q.Encode(), nil)
	if err != nil {
		return ga.Assertion{}, infrastructure("failed to build profile request", err)
	}

	resp, err := f.client(ctx, accessToken).Do(req)
	if err != nil {
		return ga.Assertion{}, infrastructure("failed getting user info", err)
	}
	defer resp.Body.Close()
	if err := checkProfileResponse(resp); err != nil {
		return ga.Assertion{}, err
	}

	var profile facebookProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return ga.Assertion{}, infrastructure("failed to decode user info", err)
	}
	if profile.ID == "" {
		return ga.Assertion{}, unauthorized(errors.New("profile has no id"))
	}
	return ga.Assertion{ProviderID: profile.ID, Email: profile.Email, DisplayName: profile.Name}, nil
}
