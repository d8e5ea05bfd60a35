package meroshare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ipo_applier/internal/broker"
)

const (
	DefaultBaseURL = "https://webbackend.cdsc.com.np/api/meroShare"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	webOrigin        = "https://meroshare.cdsc.com.np"
	defaultTimeout   = 30 * time.Second
	rateLimitWait    = 10 * time.Second
	sessionTTL       = 15 * time.Minute
	issuePageSize    = 10
)

// Client is an HTTP client for the MeroShare web backend. One client is
// shared by all accounts; per-account state lives in the broker.Session.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	userAgent     string
	limiter       *rate.Limiter
	rateLimitWait time.Duration
	logger        *zap.Logger

	mu       sync.Mutex
	capitals map[string]int64 // DP code -> client id
}

var _ broker.Broker = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the number of requests per second sent to MeroShare.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithRateLimitWait sets how long to back off after a 429 before retrying.
func WithRateLimitWait(d time.Duration) Option {
	return func(c *Client) { c.rateLimitWait = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a new MeroShare API client.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		baseURL:       strings.TrimRight(baseURL, "/"),
		userAgent:     defaultUserAgent,
		limiter:       rate.NewLimiter(rate.Limit(2), 1),
		rateLimitWait: rateLimitWait,
		logger:        zap.NewNop(),
		capitals:      make(map[string]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("meroshare")
	return c
}

// request describes one call to the backend.
type request struct {
	method string
	path   string
	body   any
	// noRetry disables the 429 retry; used for submissions, which are never repeated.
	noRetry bool
}

// do executes a request with rate limiting and the common headers.
func (c *Client) do(ctx context.Context, r request, session *broker.Session) (*http.Response, error) {
	var payload []byte
	if r.body != nil {
		var err error
		if payload, err = json.Marshal(r.body); err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var body io.Reader = http.NoBody
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
		if err != nil {
			return nil, err
		}

		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json, text/plain, */*")
		req.Header.Set("Origin", webOrigin)
		req.Header.Set("Referer", webOrigin+"/")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if session != nil {
			req.Header.Set("Authorization", session.Token)
			for _, cookie := range session.Cookies {
				req.AddCookie(cookie)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("Request done",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Int("status", resp.StatusCode),
		)

		// Handle rate limiting (429 Too Many Requests)
		if resp.StatusCode == http.StatusTooManyRequests && !r.noRetry && attempt == 0 {
			resp.Body.Close()
			c.logger.Warn("Rate limited, backing off", zap.Duration("wait", c.rateLimitWait))
			t := time.NewTimer(c.rateLimitWait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
			continue // Retry once
		}

		return resp, nil
	}
}

// getJSON performs an authenticated request and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, r request, session *broker.Session, out any, what string) error {
	if session != nil && (session.Token == "" || session.IsExpired()) {
		return ErrSessionExpired
	}

	resp, err := c.do(ctx, r, session)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrSessionExpired
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("failed to get %s: status %d, body: %s", what, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", what, err)
	}
	return nil
}
