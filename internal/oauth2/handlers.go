package oauth2

import (
	"encoding/json"
	"net/http"
)

// defaultSubject is the resource owner bound to authorization codes issued
// by this server. The in-memory authorization server has no login UI: it
// is meant for local/dev issuance of bearer tokens to an operator who
// already holds network access to the runtime, not for multi-user consent.
const defaultSubject = "local-user"

// tokenResponse is the RFC 6749 §5.1 access token response body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// discoveryResponse is served from /auth/info, mirroring the subset of
// RFC 8414 authorization server metadata a client needs to drive the PKCE
// flow without out-of-band configuration.
type discoveryResponse struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	JWKSURI                       string   `json:"jwks_uri"`
	ScopesSupported               []string `json:"scopes_supported"`
	ResponseTypesSupported        []string `json:"response_types_supported"`
	GrantTypesSupported           []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported"`
}

// AuthorizeHandler serves GET /authorize: it validates the client and
// redirect_uri, issues a single-use authorization code bound to the
// supplied PKCE code_challenge, and redirects back to the client with the
// code and state attached. There is no interactive consent screen; any
// caller that can reach this endpoint is treated as the resource owner.
func (s *AuthorizationServer) AuthorizeHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		clientID := q.Get("client_id")
		redirectURI := q.Get("redirect_uri")
		state := q.Get("state")
		codeChallenge := q.Get("code_challenge")
		codeChallengeMethod := q.Get("code_challenge_method")

		if q.Get("response_type") != "code" {
			http.Error(w, "unsupported response_type, want \"code\"", http.StatusBadRequest)
			return
		}
		if clientID == "" || redirectURI == "" || codeChallenge == "" {
			http.Error(w, "client_id, redirect_uri, and code_challenge are required", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		client, ok := s.clients[clientID]
		s.mu.Unlock()
		if !ok {
			http.Error(w, "unknown client_id", http.StatusBadRequest)
			return
		}
		if !redirectURIRegistered(client.RedirectURIs, redirectURI) {
			http.Error(w, "redirect_uri is not registered for this client", http.StatusBadRequest)
			return
		}

		scopes := client.Scopes
		if requested := q.Get("scope"); requested != "" {
			scopes = splitScope(requested)
		}

		code, err := s.IssueAuthorizationCode(clientID, defaultSubject, scopes, codeChallenge, codeChallengeMethod)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		redirect := redirectURI + "?code=" + code
		if state != "" {
			redirect += "&state=" + state
		}
		http.Redirect(w, r, redirect, http.StatusFound)
	})
}

// TokenHandler serves POST /token: it exchanges an authorization code and
// its matching PKCE code_verifier for a signed access token.
func (s *AuthorizationServer) TokenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeTokenError(w, http.StatusBadRequest, "invalid_request", "failed to parse form body")
			return
		}

		if r.PostForm.Get("grant_type") != "authorization_code" {
			writeTokenError(w, http.StatusBadRequest, "unsupported_grant_type", "only authorization_code is supported")
			return
		}

		clientID := r.PostForm.Get("client_id")
		clientSecret := r.PostForm.Get("client_secret")
		code := r.PostForm.Get("code")
		codeVerifier := r.PostForm.Get("code_verifier")

		accessToken, err := s.ExchangeCode(clientID, clientSecret, code, codeVerifier)
		if err != nil {
			writeTokenError(w, http.StatusBadRequest, "invalid_grant", err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   int64(accessTokenTTL.Seconds()),
		})
	})
}

// JWKSHandler serves GET /.well-known/jwks.json: the public half of the
// key this server signs access tokens with.
func (s *AuthorizationServer) JWKSHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(s.JWKS())
	})
}

// InfoHandler serves GET /auth/info: discovery metadata a client uses to
// locate the authorization, token, and JWKS endpoints without
// out-of-band configuration.
func (s *AuthorizationServer) InfoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(discoveryResponse{
			Issuer:                        s.issuer,
			AuthorizationEndpoint:         s.issuer + "/authorize",
			TokenEndpoint:                 s.issuer + "/token",
			JWKSURI:                       s.issuer + "/.well-known/jwks.json",
			ScopesSupported:               SupportedScopes(),
			ResponseTypesSupported:        []string{"code"},
			GrantTypesSupported:           []string{"authorization_code"},
			CodeChallengeMethodsSupported: []string{"S256", "plain"},
		})
	})
}

func writeTokenError(w http.ResponseWriter, status int, errCode, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errCode,
		"error_description": description,
	})
}

func redirectURIRegistered(registered []string, candidate string) bool {
	for _, uri := range registered {
		if uri == candidate {
			return true
		}
	}
	return false
}

func splitScope(scope string) []string {
	return Claims{Scope: scope}.Scopes()
}
