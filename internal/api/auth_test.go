package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"qroute/internal/config"
)

func hs256(secret, claims string) string {
	enc := base64.RawURLEncoding.EncodeToString
	in := enc([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." + enc([]byte(claims))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(in))
	return in + "." + enc(mac.Sum(nil))
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) {
		c.Auth.Mode = "hmac"
		c.Auth.HMACSecret = "k"
	}).Handler()

	get := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/solve-metrics", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusUnauthorized, get(""))
	assert.Equal(t, http.StatusUnauthorized, get(hs256("wrong", `{"role":"admin"}`)))
	assert.Equal(t, http.StatusForbidden, get(hs256("k", `{"role":"viewer"}`)))
	assert.Equal(t, http.StatusOK, get(hs256("k", `{"role":"admin"}`)))

	// the public API stays open
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/path/generate", "application/json", pathBody).Code)
}
