package client

import (
	"context"
	"net/http"
)

// TokenSource hands out bearer tokens.  *AuthClient is one.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// BearerTransport adds an Authorization header from Source to each request.
type BearerTransport struct {
	Base   http.RoundTripper
	Source TokenSource
}

// RoundTrip implements http.RoundTripper
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Source.GetToken(req.Context())
	if err != nil {
		return nil, err
	}
	// RoundTrippers must not modify the caller's request
	req2 := req.Clone(req.Context())
	req2.Header.Set("Authorization", "Bearer "+token)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req2)
}
