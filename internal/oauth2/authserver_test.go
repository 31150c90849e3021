package oauth2

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

func TestAuthorizationCodeExchangeWithS256PKCE(t *testing.T) {
	key := testSigningKey(t)
	srv := NewAuthorizationServer(key, "https://mcp-runtime.example.com")

	if err := srv.RegisterClient("client-1", "super-secret", []string{"https://app.example.com/callback"}, []string{"tools:call"}); err != nil {
		t.Fatalf("RegisterClient: %v", err)
	}

	verifier := "a-code-verifier-that-is-long-enough-to-be-valid"
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	code, err := srv.IssueAuthorizationCode("client-1", "user-42", []string{"tools:call"}, challenge, "S256")
	if err != nil {
		t.Fatalf("IssueAuthorizationCode: %v", err)
	}

	token, err := srv.ExchangeCode("client-1", "super-secret", code, verifier)
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty access token")
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &Claims{})
	if err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	claims := parsed.Claims.(*Claims)
	if claims.Subject != "user-42" {
		t.Errorf("Subject = %q, want user-42", claims.Subject)
	}
	if claims.Scope != "tools:call" {
		t.Errorf("Scope = %q, want tools:call", claims.Scope)
	}
}

func TestExchangeCodeRejectsWrongVerifier(t *testing.T) {
	key := testSigningKey(t)
	srv := NewAuthorizationServer(key, "https://mcp-runtime.example.com")
	_ = srv.RegisterClient("client-1", "super-secret", nil, nil)

	sum := sha256.Sum256([]byte("correct-verifier"))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	code, err := srv.IssueAuthorizationCode("client-1", "user-1", nil, challenge, "S256")
	if err != nil {
		t.Fatalf("IssueAuthorizationCode: %v", err)
	}

	if _, err := srv.ExchangeCode("client-1", "super-secret", code, "wrong-verifier"); err == nil {
		t.Fatal("expected an error for a mismatched code_verifier")
	}
}

func TestExchangeCodeIsSingleUse(t *testing.T) {
	key := testSigningKey(t)
	srv := NewAuthorizationServer(key, "https://mcp-runtime.example.com")
	_ = srv.RegisterClient("client-1", "super-secret", nil, nil)

	sum := sha256.Sum256([]byte("verifier"))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	code, err := srv.IssueAuthorizationCode("client-1", "user-1", nil, challenge, "S256")
	if err != nil {
		t.Fatalf("IssueAuthorizationCode: %v", err)
	}

	if _, err := srv.ExchangeCode("client-1", "super-secret", code, "verifier"); err != nil {
		t.Fatalf("first ExchangeCode: %v", err)
	}
	if _, err := srv.ExchangeCode("client-1", "super-secret", code, "verifier"); err == nil {
		t.Fatal("expected second exchange of the same code to fail")
	}
}

func TestExchangeCodeRejectsWrongClientSecret(t *testing.T) {
	key := testSigningKey(t)
	srv := NewAuthorizationServer(key, "https://mcp-runtime.example.com")
	_ = srv.RegisterClient("client-1", "super-secret", nil, nil)

	sum := sha256.Sum256([]byte("verifier"))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	code, err := srv.IssueAuthorizationCode("client-1", "user-1", nil, challenge, "S256")
	if err != nil {
		t.Fatalf("IssueAuthorizationCode: %v", err)
	}

	if _, err := srv.ExchangeCode("client-1", "wrong-secret", code, "verifier"); err == nil {
		t.Fatal("expected an error for a wrong client secret")
	}
}

func TestIssueAuthorizationCodeRejectsUnknownClient(t *testing.T) {
	key := testSigningKey(t)
	srv := NewAuthorizationServer(key, "https://mcp-runtime.example.com")

	if _, err := srv.IssueAuthorizationCode("no-such-client", "user-1", nil, "x", "S256"); err == nil {
		t.Fatal("expected an error for an unregistered client")
	}
}

func TestSignedAccessTokenCarriesKeyID(t *testing.T) {
	key := testSigningKey(t)
	srv := NewAuthorizationServer(key, "https://mcp-runtime.example.com")
	_ = srv.RegisterClient("client-1", "super-secret", nil, nil)

	sum := sha256.Sum256([]byte("verifier"))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	code, err := srv.IssueAuthorizationCode("client-1", "user-1", nil, challenge, "S256")
	if err != nil {
		t.Fatalf("IssueAuthorizationCode: %v", err)
	}

	token, err := srv.ExchangeCode("client-1", "super-secret", code, "verifier")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &Claims{})
	if err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	kid, _ := parsed.Header["kid"].(string)
	if kid == "" || kid != srv.kid {
		t.Errorf("token kid = %q, want %q", kid, srv.kid)
	}
}

func TestJWKSPublishesSigningKey(t *testing.T) {
	key := testSigningKey(t)
	srv := NewAuthorizationServer(key, "https://mcp-runtime.example.com")

	doc := srv.JWKS()
	if len(doc.Keys) != 1 {
		t.Fatalf("expected exactly one key, got %d", len(doc.Keys))
	}
	if doc.Keys[0].Kid != srv.kid {
		t.Errorf("Kid = %q, want %q", doc.Keys[0].Kid, srv.kid)
	}

	pub, err := rsaPublicKeyFromJWK(doc.Keys[0])
	if err != nil {
		t.Fatalf("rsaPublicKeyFromJWK: %v", err)
	}
	if pub.N.Cmp(key.PublicKey.N) != 0 || pub.E != key.PublicKey.E {
		t.Error("published JWKS key does not match the signing key's public half")
	}
}

func TestSweeperEvictsExpiredCodes(t *testing.T) {
	key := testSigningKey(t)
	srv := NewAuthorizationServer(key, "https://mcp-runtime.example.com")
	srv.sweepInterval = 10 * time.Millisecond
	_ = srv.RegisterClient("client-1", "super-secret", nil, nil)

	sum := sha256.Sum256([]byte("verifier"))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	code, err := srv.IssueAuthorizationCode("client-1", "user-1", nil, challenge, "S256")
	if err != nil {
		t.Fatalf("IssueAuthorizationCode: %v", err)
	}

	srv.mu.Lock()
	srv.codes[code].expiresAt = time.Now().Add(-time.Minute)
	srv.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.StartSweeper(ctx)
	defer srv.Shutdown()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		srv.mu.Lock()
		_, ok := srv.codes[code]
		srv.mu.Unlock()
		if !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected sweeper to evict the expired authorization code")
}
