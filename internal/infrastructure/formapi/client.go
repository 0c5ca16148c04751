// Package formapi is a typed client for the Formpilot backend REST and
// streaming API.
package formapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultUserAgent = "formpilot-gateway/1.0"
	defaultTimeout   = 30 * time.Second
)

// Config wires the base URL, credentials and transports of a Client
type Config struct {
	BaseURL string
	Token   string

	// HTTPClient serves request/response calls. StreamHTTPClient serves the
	// message stream and should not carry a whole-request timeout.
	HTTPClient       *http.Client
	StreamHTTPClient *http.Client
	UserAgent        string

	// Clock stamps synthesized messages; defaults to time.Now
	Clock func() time.Time
}

type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	streamClient *http.Client
	userAgent    string
	now          func() time.Time

	Auth          *AuthClient
	Agents        *AgentsClient
	Sessions      *SessionsClient
	Conversations *ConversationsClient
	Webhooks      *WebhooksClient
}

// NewClient validates the configuration and returns a ready-to-use Client
func NewClient(cfg Config) (*Client, error) {
	baseURL, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:      baseURL,
		token:        strings.TrimSpace(strings.TrimPrefix(cfg.Token, "Bearer ")),
		httpClient:   cfg.HTTPClient,
		streamClient: cfg.StreamHTTPClient,
		userAgent:    cfg.UserAgent,
		now:          cfg.Clock,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.streamClient == nil {
		c.streamClient = &http.Client{}
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.bind()

	return c, nil
}

// WithToken returns a copy of the client authenticating with token
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	clone.bind()
	return &clone
}

func (c *Client) bind() {
	c.Auth = &AuthClient{client: c}
	c.Agents = &AgentsClient{client: c}
	c.Sessions = &SessionsClient{client: c}
	c.Conversations = &ConversationsClient{client: c}
	c.Webhooks = &WebhooksClient{client: c}
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("formapi: base URL required")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("formapi: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.New("formapi: base URL must use http or https")
	}
	if u.Host == "" {
		return "", errors.New("formapi: base URL missing host")
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	full := c.baseURL + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload interface{}) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out when out is non-nil
func (c *Client) do(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Backend request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, query, payload)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func pathEscape(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(escaped, "/")
}
