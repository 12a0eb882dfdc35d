// Package grpc carries gotauth identities across gRPC calls.  Callers send
// the bearer token issued by GET /session/token in the "authorization"
// metadata key and the server interceptors verify it and put the identity
// in the handler context.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"

	ga "github.com/gotmoney/gotauth"
)

// DefaultMetadataKeyAuthorization is the metadata key holding the bearer token
const DefaultMetadataKeyAuthorization = "authorization"

// TokenVerifier turns a bearer token into the identity it was issued for.
// *gotauth.TokenIssuer satisfies it.
type TokenVerifier interface {
	Verify(token string) (ga.Projection, error)
}

// Config holds the metadata key configuration for auth context.
type Config struct {
	// MetadataKeyAuthorization defaults to "authorization"
	MetadataKeyAuthorization string
}

func DefaultConfig() *Config {
	return &Config{MetadataKeyAuthorization: DefaultMetadataKeyAuthorization}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyAuthorization == "" {
		c.MetadataKeyAuthorization = DefaultMetadataKeyAuthorization
	}
}

// ProjectionFromContext returns the identity the interceptor verified for
// this call.
func ProjectionFromContext(ctx context.Context) (ga.Projection, bool) {
	return ga.ProjectionFromContext(ctx)
}

// UserIDFromContext returns the authenticated user id, or 0.
func UserIDFromContext(ctx context.Context) int64 {
	p, _ := ga.ProjectionFromContext(ctx)
	return p.ID
}

// IsAuthenticated returns true if there is an authenticated user in the context.
func IsAuthenticated(ctx context.Context) bool {
	_, ok := ga.ProjectionFromContext(ctx)
	return ok
}

// TokenToOutgoingContext adds token as a bearer credential to outgoing
// metadata.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return TokenToOutgoingContextWithKey(ctx, token, DefaultMetadataKeyAuthorization)
}

// TokenToOutgoingContextWithKey is TokenToOutgoingContext with a custom key.
func TokenToOutgoingContextWithKey(ctx context.Context, token string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, "Bearer "+token)
}

// bearerFromContext returns the bearer token in the incoming metadata.
func bearerFromContext(ctx context.Context, config *Config) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(config.MetadataKeyAuthorization)
	if len(values) == 0 {
		return ""
	}
	token, ok := strings.CutPrefix(values[0], "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
