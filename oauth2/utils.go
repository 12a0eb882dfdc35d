package oauth2

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
)

// appsecretProof is the HMAC-SHA256 of the access token keyed with the app
// secret, required by Graph API apps that enforce it.
func appsecretProof(accessToken, appSecret string) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(accessToken))
	return hex.EncodeToString(mac.Sum(nil))
}

// checkProfileResponse classifies a profile call response.  4xx means the
// provider rejected the token, anything else non-2xx is an outage.
func checkProfileResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err := fmt.Errorf("profile request failed: %s: %s", resp.Status, body)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return unauthorized(err)
	}
	return infrastructure("provider unavailable", err)
}
