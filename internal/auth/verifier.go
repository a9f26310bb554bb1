// Package auth verifies bearer JWTs for the admin endpoints.
package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"qroute/internal/config"
)

// Modes.
const (
	ModeNone = "none"
	ModeHMAC = "hmac" // HS256 with a shared secret
	ModeJWKS = "jwks" // RS256 with keys from a JWKS URL
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrBadToken     = errors.New("invalid token")
)

// Verifier validates JWTs and extracts the role claim.
type Verifier struct {
	Mode       string
	HMACSecret []byte
	JWKSURL    string
	RoleClaim  string

	http      *http.Client
	now       func() time.Time
	mu        sync.RWMutex
	jwks      jwks
	lastFetch time.Time
	cacheTTL  time.Duration
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type Principal struct {
	Subject string
	Role    string
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

func NewVerifier(cfg config.AuthConfig) *Verifier {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeNone
	}
	role := cfg.RoleClaim
	if role == "" {
		role = "role"
	}
	return &Verifier{
		Mode:       mode,
		HMACSecret: []byte(cfg.HMACSecret),
		JWKSURL:    cfg.JWKSURL,
		RoleClaim:  role,
		http:       &http.Client{Timeout: 5 * time.Second},
		now:        time.Now,
		cacheTTL:   10 * time.Minute,
	}
}

// Enabled reports whether requests need a token at all.
func (v *Verifier) Enabled() bool { return v != nil && v.Mode != ModeNone }

// FromRequest verifies the Authorization bearer token of r.
func (v *Verifier) FromRequest(r *http.Request) (Principal, error) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return Principal{}, ErrMissingToken
	}
	return v.Verify(strings.TrimSpace(authz[len("Bearer "):]))
}

func (v *Verifier) Verify(token string) (Principal, error) {
	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return Principal{}, ErrBadToken
	}
	var hdr struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := decodeSegment(segs[0], &hdr); err != nil {
		return Principal{}, err
	}
	var claims map[string]any
	if err := decodeSegment(segs[1], &claims); err != nil {
		return Principal{}, err
	}
	sig, err := base64.RawURLEncoding.DecodeString(segs[2])
	if err != nil {
		return Principal{}, ErrBadToken
	}
	signingInput := []byte(segs[0] + "." + segs[1])
	switch v.Mode {
	case ModeHMAC:
		if hdr.Alg != "HS256" {
			return Principal{}, errors.New("unsupported alg for hmac")
		}
		mac := hmac.New(sha256.New, v.HMACSecret)
		mac.Write(signingInput)
		if !hmac.Equal(mac.Sum(nil), sig) {
			return Principal{}, errors.New("bad signature")
		}
	case ModeJWKS:
		if hdr.Alg != "RS256" {
			return Principal{}, errors.New("unsupported alg for jwks")
		}
		pub, err := v.rsaPublicKey(hdr.Kid)
		if err != nil {
			return Principal{}, err
		}
		h := sha256.Sum256(signingInput)
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, h[:], sig); err != nil {
			return Principal{}, errors.New("bad signature")
		}
	default:
		return Principal{}, errors.New("unsupported auth mode")
	}
	if exp, ok := claims["exp"].(float64); ok && v.now().Unix() >= int64(exp) {
		return Principal{}, errors.New("token expired")
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims[v.RoleClaim].(string)
	return Principal{Subject: sub, Role: strings.ToLower(role)}, nil
}

func decodeSegment(seg string, dst any) error {
	b, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return ErrBadToken
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return ErrBadToken
	}
	return nil
}

// rsaPublicKey looks kid up in the cached JWKS, refetching when stale or
// when kid is unknown.
func (v *Verifier) rsaPublicKey(kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	cached := v.jwks
	stale := time.Since(v.lastFetch) > v.cacheTTL
	v.mu.RUnlock()
	if k, ok := findKey(cached, kid); ok && !stale {
		return k.publicKey()
	}
	if err := v.fetchJWKS(); err != nil {
		return nil, err
	}
	v.mu.RLock()
	cached = v.jwks
	v.mu.RUnlock()
	if k, ok := findKey(cached, kid); ok {
		return k.publicKey()
	}
	return nil, errors.New("kid not found in JWKS")
}

func findKey(set jwks, kid string) (jwk, bool) {
	for _, k := range set.Keys {
		if k.Kid == kid && strings.EqualFold(k.Kty, "RSA") {
			return k, true
		}
	}
	return jwk{}, false
}

func (k jwk) publicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() < 3 {
		return nil, errors.New("bad RSA exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(e.Int64())}, nil
}

func (v *Verifier) fetchJWKS() error {
	if v.JWKSURL == "" {
		return errors.New("JWKS URL not set")
	}
	resp, err := v.http.Get(v.JWKSURL)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	var j jwks
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return err
	}
	v.mu.Lock()
	v.jwks = j
	v.lastFetch = time.Now()
	v.mu.Unlock()
	return nil
}
