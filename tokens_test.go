package gotauth

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-key-0123456789abcdef", "gotauth-test")
	p := Projection{ID: 1700000000123, Email: "ana@example.com", DisplayName: "Ana"}

	token, expiresAt, err := issuer.Issue(p)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(TokenExpiryAccessToken), expiresAt, 5*time.Second)

	got, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestTokenSigningAlgorithms(t *testing.T) {
	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		issuer := &TokenIssuer{SecretKey: "alg-secret-0123456789", SigningAlg: alg}
		token, _, err := issuer.Issue(Projection{ID: 5, Email: "a@b.com"})
		require.NoError(t, err)
		parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
		require.NoError(t, err)
		assert.Equal(t, alg, parsed.Method.Alg())
		_, err = issuer.Verify(token)
		assert.NoError(t, err, alg)
	}
}

func TestTokenRejections(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-key-0123456789abcdef", "gotauth-test")
	p := Projection{ID: 9, Email: "x@example.com"}
	good, _, err := issuer.Issue(p)
	require.NoError(t, err)

	expiredIssuer := NewTokenIssuer(issuer.SecretKey, issuer.Issuer)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredIssuer.Issue(p)
	require.NoError(t, err)

	otherIssuer, _, err := NewTokenIssuer(issuer.SecretKey, "someone-else").Issue(p)
	require.NoError(t, err)
	otherKey, _, err := NewTokenIssuer("a-completely-different-key-000", issuer.Issuer).Issue(p)
	require.NoError(t, err)

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "9", "type": "refresh", "iss": issuer.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	refreshToken, err := refresh.SignedString([]byte(issuer.SecretKey))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "9", "type": "access", "iss": issuer.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"expired":      expired,
		"wrong issuer": otherIssuer,
		"wrong key":    otherKey,
		"refresh type": refreshToken,
		"alg none":     noneToken,
		"tampered":     tamper(good),
		"garbage":      "not.a.token",
		"empty":        "",
	}
	for name, token := range cases {
		_, err := issuer.Verify(token)
		require.Error(t, err, name)
		assert.Equal(t, KindUnauthorized, KindOf(err), name)
		assert.Equal(t, http.StatusUnauthorized, StatusOf(err), name)
	}
}

// tamper changes the first signature character.
func tamper(token string) string {
	i := strings.LastIndex(token, ".") + 1
	c := byte('A')
	if token[i] == 'A' {
		c = 'B'
	}
	return token[:i] + string(c) + token[i+1:]
}
