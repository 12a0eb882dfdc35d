package oauth2

import (
	"context"
	"errors"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	ga "github.com/gotmoney/gotauth"
)

// GoogleProvider verifies Google access tokens with the userinfo API.
type GoogleProvider struct {
	*BaseProvider

	// APIEndpoint overrides the googleapis base URL, for testing
	APIEndpoint string
}

// NewGoogleProvider creates the provider.  Empty arguments are read from
// OAUTH2_GOOGLE_CLIENT_ID, OAUTH2_GOOGLE_CLIENT_SECRET and
// OAUTH2_GOOGLE_CALLBACK_URL.
func NewGoogleProvider(clientId, clientSecret, callbackUrl string) *GoogleProvider {
	clientId = envOr(clientId, "OAUTH2_GOOGLE_CLIENT_ID")
	clientSecret = envOr(clientSecret, "OAUTH2_GOOGLE_CLIENT_SECRET")
	callbackUrl = envOr(callbackUrl, "OAUTH2_GOOGLE_CALLBACK_URL")
	return &GoogleProvider{
		BaseProvider: NewBaseProvider(clientId, clientSecret, callbackUrl, google.Endpoint,
			googleoauth2.UserinfoEmailScope,
			googleoauth2.UserinfoProfileScope,
		),
	}
}

func (g *GoogleProvider) Name() ga.Provider { return ga.ProviderGoogle }

func (g *GoogleProvider) Authenticate(ctx context.Context, accessToken string) (ga.Assertion, error) {
	if accessToken == "" {
		return ga.Assertion{}, unauthorized(errors.New("missing access token"))
	}
	opts := []option.ClientOption{option.WithHTTPClient(g.client(ctx, accessToken))}
	if g.APIEndpoint != "" {
		opts = append(opts, option.WithEndpoint(g.APIEndpoint))
	}
	svc, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return ga.Assertion{}, infrastructure("failed to create userinfo client", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 {
			return ga.Assertion{}, unauthorized(err)
		}
		return ga.Assertion{}, infrastructure("failed getting user info", err)
	}
	if info.Id == "" {
		return ga.Assertion{}, unauthorized(errors.New("profile has no id"))
	}
	return ga.Assertion{ProviderID: info.Id, Email: info.Email, DisplayName: googleDisplayName(info)}, nil
}

// googleDisplayName prefers the full name and falls back to the given and
// family names run together.
func googleDisplayName(info *googleoauth2.Userinfo) string {
	if info.Name != "" {
		return info.Name
	}
	return info.GivenName + info.FamilyName
}
