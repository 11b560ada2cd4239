// Package statsclient fetches statistics snapshots from the EduSync stats API.
package statsclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/apiconfig"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds one fetch when no other timeout is configured.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a response body is read.
const maxBody = 1 << 20

// Response is the wire shape served by /api/stats/{category}.
type Response struct {
	Success bool                 `json:"success"`
	Stats   models.StatsCounters `json:"stats"`
	Message string               `json:"message,omitempty"`
}

// Client issues GET requests against one stats API base URL.
type Client struct {
	endpoints   apiconfig.Config
	httpClient  *http.Client
	timeout     time.Duration
	bearer      string
	tokenSource oauth2.TokenSource
	cookies     []*http.Cookie
	log         *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each fetch.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBearerToken sends a static service token.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.bearer = token }
}

// WithTokenSource authenticates with OAuth2 tokens (e.g. client credentials).
// It takes precedence over WithBearerToken.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokenSource = ts }
}

// WithCookie forwards a session cookie with every request.
func WithCookie(ck *http.Cookie) Option {
	return func(c *Client) {
		if ck != nil {
			c.cookies = append(c.cookies, ck)
		}
	}
}

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client for the stats API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		endpoints:  apiconfig.Default.WithBaseURL(baseURL),
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs one GET for cat and returns the counters and any
// message the service attached. Every failure is a *FetchError except
// ErrUnknownCategory.
func (c *Client) Fetch(ctx context.Context, cat models.StatsCategory) (models.StatsCounters, string, error) {
	target := c.endpoints.StatsURL(cat)
	if target == "" {
		return models.StatsCounters{}, "", fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return models.StatsCounters{}, "", &FetchError{Kind: KindTransport, Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if err := c.authorize(req); err != nil {
		return models.StatsCounters{}, "", &FetchError{Kind: KindUnauthorized, Err: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("stats fetch transport failure",
			zap.String("category", string(cat)),
			zap.String("request_id", reqID),
			zap.Error(err))
		return models.StatsCounters{}, "", &FetchError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return models.StatsCounters{}, "", &FetchError{Kind: KindTransport, StatusCode: resp.StatusCode, Err: err}
	}

	c.log.Debug("stats fetch",
		zap.String("category", string(cat)),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	var out Response
	decodeErr := json.Unmarshal(body, &out)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return models.StatsCounters{}, "", &FetchError{Kind: KindUnauthorized, StatusCode: resp.StatusCode, Message: messageOf(out, decodeErr)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return models.StatsCounters{}, "", &FetchError{Kind: KindServer, StatusCode: resp.StatusCode, Message: messageOf(out, decodeErr)}
	case decodeErr != nil:
		return models.StatsCounters{}, "", &FetchError{Kind: KindMalformed, StatusCode: resp.StatusCode, Err: decodeErr}
	case !out.Success:
		return models.StatsCounters{}, "", &FetchError{Kind: KindServer, StatusCode: resp.StatusCode, Message: messageOf(out, nil)}
	}

	return out.Stats, out.Message, nil
}

func (c *Client) authorize(req *http.Request) error {
	switch {
	case c.tokenSource != nil:
		tok, err := c.tokenSource.Token()
		if err != nil {
			return fmt.Errorf("obtain stats API token: %w", err)
		}
		tok.SetAuthHeader(req)
	case c.bearer != "":
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	return nil
}

func messageOf(r Response, decodeErr error) string {
	if decodeErr != nil {
		return ""
	}
	return strings.TrimSpace(r.Message)
}
