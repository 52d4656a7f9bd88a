// Package auth provides the pluggable authentication strategies used by the
// EAS client. A TokenSource answers one question per request: what should
// the authorization header carry right now. OAuth flows live here, not in
// the client; the client only consumes the produced header value.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource produces the value of the authorization header for a request.
// Implementations must be safe for concurrent use; the EAS client shares a
// single source across all in-flight requests.
type TokenSource interface {
	HeaderValue(ctx context.Context) (string, error)
}

// Static returns a TokenSource carrying a fixed bearer token.
func Static(token string) TokenSource {
	return staticToken(token)
}

type staticToken string

func (t staticToken) HeaderValue(context.Context) (string, error) {
	return "Bearer " + string(t), nil
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) HeaderValue(ctx context.Context) (string, error) {
	return f(ctx)
}

// ─── OAuth token fetching ─────────────────────────────────────────────────────

// Credentials holds the raw OAuth parameters accepted by the EAS client.
// Supplying Username/Password selects the password grant; otherwise the
// client-credentials grant is used.
type Credentials struct {
	ClientID      string
	ClientSecret  string
	Username      string
	Password      string
	TokenEndpoint string
	Audience      string
}

func (c Credentials) grantType() string {
	if c.Username != "" || c.Password != "" {
		return "password"
	}
	return "client_credentials"
}

// refreshSkew is subtracted from a token's expiry so a token is refreshed
// slightly before the server would reject it.
const refreshSkew = 30 * time.Second

type oauthSource struct {
	creds      Credentials
	httpClient *http.Client

	mu     sync.Mutex
	header string
	expiry time.Time
}

// NewOAuthSource returns a TokenSource that fetches bearer tokens from the
// credentials' token endpoint and caches them until shortly before expiry.
// Expiry is taken from the token response, falling back to the exp claim of
// the access token itself (parsed without signature verification — this
// client is not the token's audience validator).
func NewOAuthSource(creds Credentials, httpClient *http.Client) (TokenSource, error) {
	if creds.ClientID == "" {
		return nil, errors.New("auth: credentials require a client id")
	}
	if creds.TokenEndpoint == "" {
		return nil, errors.New("auth: credentials require a token endpoint")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &oauthSource{creds: creds, httpClient: httpClient}, nil
}

func (s *oauthSource) HeaderValue(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.header != "" && time.Now().Before(s.expiry.Add(-refreshSkew)) {
		return s.header, nil
	}

	form := url.Values{}
	form.Set("grant_type", s.creds.grantType())
	form.Set("client_id", s.creds.ClientID)
	if s.creds.ClientSecret != "" {
		form.Set("client_secret", s.creds.ClientSecret)
	}
	if s.creds.Username != "" {
		form.Set("username", s.creds.Username)
	}
	if s.creds.Password != "" {
		form.Set("password", s.creds.Password)
	}
	if s.creds.Audience != "" {
		form.Set("audience", s.creds.Audience)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.creds.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("auth: building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("auth: reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth: token endpoint returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok struct {
		AccessToken string  `json:"access_token"`
		TokenType   string  `json:"token_type"`
		ExpiresIn   float64 `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("auth: parsing token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("auth: token endpoint returned no access_token")
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}

	s.header = tok.TokenType + " " + tok.AccessToken
	s.expiry = tokenExpiry(tok.AccessToken, tok.ExpiresIn)
	return s.header, nil
}

// tokenExpiry resolves when a fetched token stops being usable.
func tokenExpiry(accessToken string, expiresIn float64) time.Time {
	if expiresIn > 0 {
		return time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	// opaque token with no stated lifetime: refresh every request
	return time.Now()
}
