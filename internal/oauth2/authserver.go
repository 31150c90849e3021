package oauth2

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

// authCodeTTL bounds how long an issued authorization code remains
// redeemable.
const authCodeTTL = 10 * time.Minute

// accessTokenTTL bounds the lifetime of an issued access token.
const accessTokenTTL = time.Hour

// defaultCodeSweepInterval is how often the authorization-code sweeper
// scans for codes past their expiry, mirroring the correlation manager's
// sweeper cadence.
const defaultCodeSweepInterval = time.Minute

// argon2idParams matches the OWASP minimum parameters used for hashing
// confidential-client secrets.
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// ConfidentialClient is a registered OAuth2 client with a hashed secret.
type ConfidentialClient struct {
	ClientID     string
	SecretHash   string
	RedirectURIs []string
	Scopes       []string
}

type authCode struct {
	clientID            string
	subject             string
	scopes              []string
	codeChallenge       string
	codeChallengeMethod string
	expiresAt           time.Time
}

// AuthorizationServer is an in-memory PKCE authorization server used for
// local/dev issuance of bearer tokens, grounded on the teacher's
// argon2id-hashed API key verification pattern generalized from static API
// keys to registered OAuth2 clients plus short-lived authorization codes.
// Authorization codes and issued-client state are not persisted — restart
// clears them, matching spec.md's decision to keep OAuth2 state in-memory.
type AuthorizationServer struct {
	signingKey *rsa.PrivateKey
	issuer     string
	kid        string

	mu      sync.Mutex
	clients map[string]*ConfidentialClient
	codes   map[string]*authCode

	sweepInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
	once          sync.Once
}

// NewAuthorizationServer builds an AuthorizationServer. signingKey signs
// the access tokens it issues; its public half is published at the JWKS
// endpoint the Validator reads from. Call StartSweeper to begin expiring
// stale authorization codes and Shutdown to stop it.
func NewAuthorizationServer(signingKey *rsa.PrivateKey, issuer string) *AuthorizationServer {
	return &AuthorizationServer{
		signingKey:    signingKey,
		issuer:        issuer,
		kid:           keyID(&signingKey.PublicKey),
		clients:       make(map[string]*ConfidentialClient),
		codes:         make(map[string]*authCode),
		sweepInterval: defaultCodeSweepInterval,
		stopChan:      make(chan struct{}),
	}
}

// keyID fingerprints an RSA public key into a stable "kid" value.
func keyID(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return hex.EncodeToString(sum[:8])
}

// RegisterClient hashes secret with argon2id and stores the client.
func (s *AuthorizationServer) RegisterClient(clientID, secret string, redirectURIs, scopes []string) error {
	hash, err := argon2id.CreateHash(secret, argon2idParams)
	if err != nil {
		return errs.Wrap(errs.KindInternal, err, "hash client secret")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[clientID] = &ConfidentialClient{
		ClientID:     clientID,
		SecretHash:   hash,
		RedirectURIs: redirectURIs,
		Scopes:       scopes,
	}
	return nil
}

func (s *AuthorizationServer) authenticateClient(clientID, secret string) (*ConfidentialClient, error) {
	s.mu.Lock()
	client, ok := s.clients[clientID]
	s.mu.Unlock()
	if !ok {
		return nil, errs.New(errs.KindTokenValidation, "unknown client_id")
	}
	match, err := argon2id.ComparePasswordAndHash(secret, client.SecretHash)
	if err != nil || !match {
		return nil, errs.New(errs.KindTokenValidation, "invalid client secret")
	}
	return client, nil
}

// IssueAuthorizationCode records a PKCE authorization code for subject
// (the authenticated resource owner) bound to a code_challenge, and
// returns the opaque code to redirect back to the client with.
func (s *AuthorizationServer) IssueAuthorizationCode(clientID, subject string, scopes []string, codeChallenge, codeChallengeMethod string) (string, error) {
	s.mu.Lock()
	_, ok := s.clients[clientID]
	s.mu.Unlock()
	if !ok {
		return "", errs.New(errs.KindTokenValidation, "unknown client_id")
	}

	code := randomToken(32)
	s.mu.Lock()
	s.codes[code] = &authCode{
		clientID:            clientID,
		subject:             subject,
		scopes:              scopes,
		codeChallenge:       codeChallenge,
		codeChallengeMethod: codeChallengeMethod,
		expiresAt:           time.Now().Add(authCodeTTL),
	}
	s.mu.Unlock()
	return code, nil
}

// ExchangeCode redeems an authorization code for an access token, verifying
// the PKCE code_verifier against the stored code_challenge (S256 or plain).
// Codes are single-use: once the client has authenticated, a successful or
// failed exchange both consume it. A wrong client_id or secret returns
// before the code is looked up and leaves it redeemable.
func (s *AuthorizationServer) ExchangeCode(clientID, clientSecret, code, codeVerifier string) (string, error) {
	if _, err := s.authenticateClient(clientID, clientSecret); err != nil {
		return "", err
	}

	s.mu.Lock()
	entry, ok := s.codes[code]
	if ok {
		delete(s.codes, code)
	}
	s.mu.Unlock()

	if !ok {
		return "", errs.New(errs.KindTokenValidation, "unknown or already-used authorization code")
	}
	if entry.clientID != clientID {
		return "", errs.New(errs.KindTokenValidation, "authorization code was issued to a different client")
	}
	if time.Now().After(entry.expiresAt) {
		return "", errs.New(errs.KindTokenExpired, "authorization code expired")
	}
	if !verifyPKCE(entry.codeChallenge, entry.codeChallengeMethod, codeVerifier) {
		return "", errs.New(errs.KindTokenValidation, "PKCE code_verifier does not match code_challenge")
	}

	return s.signAccessToken(entry.subject, entry.scopes)
}

func (s *AuthorizationServer) signAccessToken(subject string, scopes []string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
		Scope: joinScopes(scopes),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", errs.Wrap(errs.KindInternal, err, "sign access token")
	}
	return signed, nil
}

// JWKS returns the public half of the signing key as a JWKS document,
// suitable for serving directly from the /.well-known/jwks.json endpoint.
func (s *AuthorizationServer) JWKS() jwksDocument {
	return jwksDocument{Keys: []jwk{publicJWK(&s.signingKey.PublicKey, s.kid)}}
}

func publicJWK(pub *rsa.PublicKey, kid string) jwk {
	return jwk{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// StartSweeper starts the background goroutine that evicts authorization
// codes past their expiry, so an abandoned PKCE flow doesn't hold a code
// in memory until process restart. Grounded on the correlation manager's
// sweeper shape.
func (s *AuthorizationServer) StartSweeper(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.sweepExpiredCodes()
			}
		}
	}()
}

func (s *AuthorizationServer) sweepExpiredCodes() {
	now := time.Now()

	s.mu.Lock()
	var evicted int
	for code, entry := range s.codes {
		if now.After(entry.expiresAt) {
			delete(s.codes, code)
			evicted++
		}
	}
	s.mu.Unlock()

	if evicted > 0 {
		slog.Debug("authorization server swept expired codes", "count", evicted)
	}
}

// Shutdown stops the sweeper. Safe to call multiple times.
func (s *AuthorizationServer) Shutdown() {
	s.once.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

func verifyPKCE(challenge, method, verifier string) bool {
	switch method {
	case "S256", "":
		sum := sha256.Sum256([]byte(verifier))
		computed := base64.RawURLEncoding.EncodeToString(sum[:])
		return computed == challenge
	case "plain":
		return verifier == challenge
	default:
		return false
	}
}

func joinScopes(scopes []string) string {
	out := ""
	for i, s := range scopes {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

func randomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
