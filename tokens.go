package gotauth

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default lifetime of API tokens
const TokenExpiryAccessToken = 1 * time.Hour

// TokenIssuer signs and verifies bearer tokens that carry a Projection.  It is
// the stateless alternative to the cookie session for API clients.
type TokenIssuer struct {
	SecretKey string
	Issuer    string
	// HS256 (default), HS384 or HS512
	SigningAlg string
	Expiry     time.Duration

	now func() time.Time
}

func NewTokenIssuer(secret, issuer string) *TokenIssuer {
	return (&TokenIssuer{SecretKey: secret, Issuer: issuer}).EnsureDefaults()
}

func (t *TokenIssuer) EnsureDefaults() *TokenIssuer {
	if t.SecretKey == "" {
		t.SecretKey = strings.TrimSpace(os.Getenv("GOTAUTH_JWT_SECRET_KEY"))
		if t.SecretKey == "" {
			t.SecretKey = "MyTestJWTSecretKey123456"
		}
	}
	if t.Issuer == "" {
		t.Issuer = "gotauth"
	}
	if t.Expiry <= 0 {
		t.Expiry = TokenExpiryAccessToken
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

func (t *TokenIssuer) signingMethod() jwt.SigningMethod {
	switch t.SigningAlg {
	case "HS384":
		return jwt.SigningMethodHS384
	case "HS512":
		return jwt.SigningMethodHS512
	}
	return jwt.SigningMethodHS256
}

// Issue returns a signed token for p and its expiry time.
func (t *TokenIssuer) Issue(p Projection) (string, time.Time, error) {
	t.EnsureDefaults()
	now := t.now()
	expiresAt := now.Add(t.Expiry)
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(p.ID, 10),
		"email": p.Email,
		"name":  p.DisplayName,
		"type":  "access",
		"iss":   t.Issuer,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(t.signingMethod(), claims)
	signed, err := token.SignedString([]byte(t.SecretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks a token issued by Issue and returns its projection.  Every
// failure is an Unauthorized AuthError.
func (t *TokenIssuer) Verify(tokenString string) (Projection, error) {
	t.EnsureDefaults()
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(t.SecretKey), nil
	}, jwt.WithIssuer(t.Issuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(t.now))
	if err != nil {
		return Projection{}, &AuthError{Kind: KindUnauthorized, Message: MsgNotLoggedIn, Err: err}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Projection{}, NewAuthError(KindUnauthorized, MsgNotLoggedIn)
	}
	if typ, _ := claims["type"].(string); typ != "access" {
		return Projection{}, NewAuthError(KindUnauthorized, MsgNotLoggedIn)
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id == 0 {
		return Projection{}, &AuthError{Kind: KindUnauthorized, Message: MsgNotLoggedIn, Err: fmt.Errorf("invalid subject %q", sub)}
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return Projection{ID: id, Email: email, DisplayName: name}, nil
}
