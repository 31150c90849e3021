// Package oauth2 validates bearer tokens on the HTTP transport: JWKS-backed
// RS256 JWT validation, CEL-based scope authorization, and an in-memory
// PKCE authorization server for issuing tokens to local/dev clients.
package oauth2

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

// jwk is a single JSON Web Key as returned by a JWKS endpoint.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

// JWKSCache fetches and caches RSA public keys from a JWKS endpoint, keyed
// by "kid", refreshing the whole set once the TTL elapses.
type JWKSCache struct {
	url        string
	ttl        time.Duration
	httpClient *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewJWKSCache builds a JWKSCache for the given JWKS endpoint.
func NewJWKSCache(url string, ttl time.Duration) *JWKSCache {
	return &JWKSCache{
		url:        url,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		keys:       make(map[string]*rsa.PublicKey),
	}
}

// Key returns the RSA public key for kid, refreshing the cache if it is
// stale or the key isn't present yet.
func (c *JWKSCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	stale := time.Since(c.fetchedAt) > c.ttl
	c.mu.RUnlock()

	if ok && !stale {
		return key, nil
	}

	if err := c.refresh(ctx); err != nil {
		if ok {
			// serve the stale key rather than fail a validation outright
			return key, nil
		}
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	if !ok {
		return nil, errs.New(errs.KindJwksError, "no key found for kid %q", kid)
	}
	return key, nil
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return errs.Wrap(errs.KindJwksError, err, "build jwks request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindJwksError, err, "fetch jwks")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errs.New(errs.KindJwksError, "jwks endpoint returned status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return errs.Wrap(errs.KindJwksError, err, "decode jwks document")
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaPublicKeyFromJWK(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return nil
}

func rsaPublicKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// Claims is the subset of standard JWT claims plus the space-delimited
// "scope" claim this validator cares about.
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// Scopes splits the space-delimited scope claim.
func (c Claims) Scopes() []string {
	if c.Scope == "" {
		return nil
	}
	var scopes []string
	start := 0
	for i, r := range c.Scope {
		if r == ' ' {
			if i > start {
				scopes = append(scopes, c.Scope[start:i])
			}
			start = i + 1
		}
	}
	if start < len(c.Scope) {
		scopes = append(scopes, c.Scope[start:])
	}
	return scopes
}

// Validator validates RS256-signed bearer tokens against a JWKS endpoint,
// checking issuer and audience.
type Validator struct {
	jwks     *JWKSCache
	issuer   string
	audience string
}

// NewValidator builds a Validator. audience may be empty to skip the
// audience check.
func NewValidator(jwks *JWKSCache, issuer, audience string) *Validator {
	return &Validator{jwks: jwks, issuer: issuer, audience: audience}
}

// Validate parses and verifies rawToken, returning its claims.
func (v *Validator) Validate(ctx context.Context, rawToken string) (*Claims, error) {
	claims := &Claims{}
	keyFunc := func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != "RS256" {
			return nil, errs.New(errs.KindTokenValidation, "unexpected signing method %q", t.Method.Alg())
		}
		kid, _ := t.Header["kid"].(string)
		return v.jwks.Key(ctx, kid)
	}

	token, err := jwt.ParseWithClaims(rawToken, claims, keyFunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		switch {
		case isExpired(err):
			return nil, errs.Wrap(errs.KindTokenExpired, err, "token expired")
		default:
			return nil, errs.Wrap(errs.KindTokenValidation, err, "token validation failed")
		}
	}
	if !token.Valid {
		return nil, errs.New(errs.KindTokenValidation, "token is not valid")
	}

	if v.audience != "" && !slices.Contains(claims.Audience, v.audience) {
		return nil, errs.New(errs.KindInvalidAudience, "token audience does not include %q", v.audience)
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, errs.New(errs.KindInvalidIssuer, "token issuer %q does not match %q", claims.Issuer, v.issuer)
	}

	return claims, nil
}

func isExpired(err error) bool {
	return err != nil && (errWrapsValidationError(err, jwt.ErrTokenExpired))
}

func errWrapsValidationError(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
