package eas

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/zepben/eas-go/eas/auth"
	"github.com/zepben/eas-go/eas/graphql"
)

// Transport constants. Fixed rather than configurable: one pooled
// connection manager per client, one blanket timeout per request.
const (
	defaultTimeout  = 60 * time.Second
	maxConnsPerHost = 10
)

// ClientConfig describes how to reach and authenticate with an Evolve App
// Server. At most one of AccessToken, TokenSource and Credentials may be
// set. The zero value of every optional field means "default".
type ClientConfig struct {
	// Host and Port locate the server. Port 0 uses the protocol default.
	Host string
	Port int

	// Protocol is "https" (default) or "http". Plain http is refused when
	// any authentication is configured.
	Protocol string

	// AccessToken is a pre-issued token sent as "Bearer <token>".
	AccessToken string

	// TokenSource supplies the authorization header value per request,
	// verbatim. Use it for externally-managed token refresh.
	TokenSource auth.TokenSource

	// Credentials configures OAuth token fetching (client_credentials or
	// password grant) handled by the client.
	Credentials *auth.Credentials

	// VerifyCertificate disables TLS verification when explicitly set to
	// false. Nil means verify.
	VerifyCertificate *bool

	// CAFilename points TLS verification at a custom CA bundle.
	CAFilename string

	// HTTPClient substitutes a pre-built client for the default pooled
	// transport. TLS and timeout settings above are ignored when set.
	HTTPClient *http.Client

	// Timeout bounds each request end to end. Zero means the default.
	Timeout time.Duration

	// Logger receives debug-level request logging. Nil means slog.Default.
	Logger *slog.Logger
}

func (cfg ClientConfig) hasAuth() bool {
	return cfg.AccessToken != "" || cfg.TokenSource != nil || cfg.Credentials != nil
}

func (cfg ClientConfig) validate() error {
	if cfg.Host == "" {
		return errors.New("eas: client config requires a host")
	}
	if cfg.AccessToken != "" && (cfg.TokenSource != nil || cfg.Credentials != nil) {
		return errors.New("eas: incompatible authentication arguments: when using an access token, do not provide credentials or a token source")
	}
	if cfg.TokenSource != nil && cfg.Credentials != nil {
		return errors.New("eas: incompatible authentication arguments: you cannot provide both a token source and credentials")
	}
	if strings.EqualFold(cfg.Protocol, "http") && cfg.hasAuth() {
		return errors.New("eas: authentication requires https; refusing to send credentials over plain http")
	}
	return nil
}

// HTTPError is a transport-level reply outside the 2xx range. The body is
// carried along for diagnosis; it is not parsed.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("eas: server returned %d: %s", e.StatusCode, e.Body)
}

// Client is a connection to one Evolve App Server. It holds no mutable
// per-request state and is safe for concurrent use; the only shared state
// is the connection pool and the token source's cached credential.
type Client struct {
	baseURL    string
	http       *http.Client
	noRedirect *http.Client
	tokens     auth.TokenSource
	log        *slog.Logger
}

// NewClient validates the configuration and builds a client. Incompatible
// authentication combinations fail here, before any network activity.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		tlsConfig, err := tlsConfigFor(cfg)
		if err != nil {
			return nil, err
		}
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				MaxConnsPerHost: maxConnsPerHost,
				TLSClientConfig: tlsConfig,
			},
		}
	}

	// Same pool, redirects disabled; the download endpoint reads the
	// Location header instead of following it.
	noRedirect := *httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	tokens, err := tokenSourceFor(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURLFor(cfg),
		http:       httpClient,
		noRedirect: &noRedirect,
		tokens:     tokens,
		log:        logger,
	}, nil
}

func baseURLFor(cfg ClientConfig) string {
	protocol := cfg.Protocol
	if protocol == "" {
		protocol = "https"
	}
	if cfg.Port == 0 {
		return fmt.Sprintf("%s://%s", protocol, cfg.Host)
	}
	return fmt.Sprintf("%s://%s:%d", protocol, cfg.Host, cfg.Port)
}

func tlsConfigFor(cfg ClientConfig) (*tls.Config, error) {
	if cfg.VerifyCertificate != nil && !*cfg.VerifyCertificate {
		return &tls.Config{InsecureSkipVerify: true}, nil
	}
	if cfg.CAFilename == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(cfg.CAFilename)
	if err != nil {
		return nil, fmt.Errorf("reading CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", cfg.CAFilename)
	}
	return &tls.Config{RootCAs: pool}, nil
}

func tokenSourceFor(cfg ClientConfig, httpClient *http.Client) (auth.TokenSource, error) {
	switch {
	case cfg.AccessToken != "":
		return auth.Static(cfg.AccessToken), nil
	case cfg.TokenSource != nil:
		return cfg.TokenSource, nil
	case cfg.Credentials != nil:
		return auth.NewOAuthSource(*cfg.Credentials, httpClient)
	}
	return nil, nil
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// setAuth attaches the authorization header, if any auth is configured.
// The header value comes from the token source verbatim.
func (c *Client) setAuth(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	value, err := c.tokens.HeaderValue(ctx)
	if err != nil {
		return fmt.Errorf("fetching auth token: %w", err)
	}
	req.Header.Set("authorization", value)
	return nil
}

// post sends one GraphQL request and returns the parsed body of any 2xx
// reply. GraphQL-level errors inside a 2xx body are not inspected here.
func (c *Client) post(ctx context.Context, query string, variables map[string]any) (*graphql.Response, error) {
	body, err := json.Marshal(graphql.Request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encoding graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/graphql"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/json")
	if err := c.setAuth(ctx, req); err != nil {
		return nil, err
	}

	c.log.Debug("eas request", "operation", operationName(query), "bytes", len(body))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	c.log.Debug("eas response", "operation", operationName(query), "status", resp.StatusCode, "bytes", len(raw))
	return &graphql.Response{Raw: raw}, nil
}

// operationName extracts the operation name of a query for logging, never
// the query body itself.
func operationName(query string) string {
	fields := strings.Fields(query)
	if len(fields) < 2 || fields[1] == "{" {
		return "anonymous"
	}
	name, _, _ := strings.Cut(fields[1], "(")
	return name
}
