// Package registry is an HTTP client for PyPI-compatible package indexes.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
)

// Read-only calls are retried on timeouts and 5xx responses. Variables so
// tests can shorten them.
var (
	retryMaxAttempts = 3
	retryBaseDelay   = 5 * time.Second
)

// Endpoint is the set of URLs of one index (production or staging).
type Endpoint struct {
	// IndexURL serves the JSON API (/pypi/<name>/json).
	IndexURL string `mapstructure:"index_url"`
	// UploadURL accepts legacy multipart uploads.
	UploadURL string `mapstructure:"upload_url"`
	// ManageURL serves release management (DELETE
	// /projects/<name>/releases/<version>).
	ManageURL string `mapstructure:"manage_url"`
}

// Client talks to the production index and its staging mirror.
type Client struct {
	endpoints  map[domain.PublishTarget]Endpoint
	httpClient *http.Client
	userAgent  string

	retryAttempts int
	retryDelay    time.Duration
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// NewClient creates a registry client.
func NewClient(production, staging Endpoint, opts ...ClientOption) *Client {
	c := &Client{
		endpoints: map[domain.PublishTarget]Endpoint{
			domain.Production: normalize(production),
			domain.Staging:    normalize(staging),
		},
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		userAgent: "shipit",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRetry overrides the retry policy of read-only calls. Zero values keep
// the defaults.
func WithRetry(attempts int, baseDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.retryAttempts = attempts
		c.retryDelay = baseDelay
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func normalize(e Endpoint) Endpoint {
	return Endpoint{
		IndexURL:  strings.TrimSuffix(e.IndexURL, "/"),
		UploadURL: e.UploadURL,
		ManageURL: strings.TrimSuffix(e.ManageURL, "/"),
	}
}

func (c *Client) endpoint(target domain.PublishTarget) (Endpoint, error) {
	e, ok := c.endpoints[target]
	if !ok || e.IndexURL == "" {
		return Endpoint{}, domain.Configuration("select registry",
			fmt.Errorf("%w: no index_url for %s registry", domain.ErrInvalidConfig, target),
			fmt.Sprintf("set registry.%s.index_url in shipit.toml", target))
	}
	return e, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// statusError is a non-success HTTP response.
type statusError struct {
	Code   int
	Status string
	Body   string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Body)
}

func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &statusError{Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(body))}
}

// transient reports whether a failed read may succeed when retried.
func transient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// retryRead runs op with bounded exponential backoff, retrying only
// transient failures.
func (c *Client) retryRead(ctx context.Context, op func() error) error {
	log := logging.FromCtx(ctx)

	attempts, delay := retryMaxAttempts, retryBaseDelay
	if c.retryAttempts > 0 {
		attempts = c.retryAttempts
	}
	if c.retryDelay > 0 {
		delay = c.retryDelay
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = delay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).
			Int(logging.FieldAttempt, attempt).
			Dur("retry_in", wait).
			Msg("registry read failed, retrying")
	}

	return backoff.RetryNotify(wrapped,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx),
		notify)
}
