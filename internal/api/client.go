package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the subset of the application logger the client uses. Requests
// are logged, responses are not; bodies may hold user content.
type Logger interface {
	Info(message string, fields map[string]interface{})
	Error(message string, fields map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}

// Client talks to the agent-session backend. All calls are JSON over HTTPS
// with a bearer token from the TokenSource; a 401 is retried exactly once
// after a forced token refresh.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource sets the bearer-token provider.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the request logger.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     StaticTokenSource(""),
		logger:     nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) buildURL(path string, query url.Values) string {
	u, _ := url.Parse(c.baseURL + path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do performs one authenticated request and decodes the JSON response into
// result. The request body is re-marshalled on the 401 retry, so it must be
// a plain value, not a Reader.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	status, err := c.once(ctx, method, path, query, body, result, token)
	if status == http.StatusUnauthorized {
		token, rerr := c.tokens.Refresh(ctx)
		if rerr != nil {
			return fmt.Errorf("%w: refresh failed: %v", ErrUnauthorized, rerr)
		}
		status, err = c.once(ctx, method, path, query, body, result, token)
		if status == http.StatusUnauthorized {
			return ErrUnauthorized
		}
	}
	return err
}

func (c *Client) once(ctx context.Context, method, path string, query url.Values, body, result interface{}, token string) (int, error) {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), bodyReader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("backend request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		})
		return resp.StatusCode, decodeError(resp.StatusCode, raw)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// decodeError maps a non-2xx body to the error taxonomy. Error bodies come
// in both {"error": "..."} and {"message": "..."} shapes.
func decodeError(status int, raw []byte) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &body)

	msg := body.Error
	if msg == "" {
		msg = body.Message
	}
	if msg == balanceErrorText {
		return ErrInsufficientBalance
	}
	if status == http.StatusNotFound {
		return ErrSessionGone
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	return &Error{Status: status, Message: msg}
}
