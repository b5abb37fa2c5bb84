// Package ticketing files tracking issues through a GitHub-compatible
// issues API.
package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
)

// DefaultAPIURL is the public GitHub REST API.
const DefaultAPIURL = "https://api.github.com"

// Config selects the issue tracker.
type Config struct {
	APIURL     string   `mapstructure:"api_url"`
	Repository string   `mapstructure:"repository"`
	Labels     []string `mapstructure:"labels"`
}

// Client is an HTTP client for the issues API.
type Client struct {
	baseURL    string
	repository string
	labels     []string
	token      string
	httpClient *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates an issues client. An empty token disables filing.
func NewClient(cfg Config, token string, opts ...ClientOption) *Client {
	baseURL := cfg.APIURL
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		repository: strings.Trim(cfg.Repository, "/"),
		labels:     cfg.Labels,
		token:      token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type issueRequest struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
}

type issueResponse struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// CreateIssue files issue and returns its URL. The call is not retried.
func (c *Client) CreateIssue(ctx context.Context, issue domain.Issue) (string, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "ticketing",
		logging.FieldAction:  "CreateIssue",
	})
	log := logging.FromCtx(ctx)

	if c.token == "" {
		return "", fmt.Errorf("%w: SHIPIT_TICKET_TOKEN is not set", domain.ErrTicketingDisabled)
	}
	if c.repository == "" {
		return "", fmt.Errorf("%w: ticketing.repository is not set", domain.ErrTicketingDisabled)
	}

	labels := append(append([]string{}, c.labels...), issue.Labels...)
	payload, err := json.Marshal(issueRequest{Title: issue.Title, Body: issue.Body, Labels: labels})
	if err != nil {
		return "", fmt.Errorf("failed to marshal issue: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/issues", c.baseURL, c.repository)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTicketing, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w: %s: %s", domain.ErrTicketing, resp.Status, strings.TrimSpace(string(body)))
	}

	var out issueResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %w", domain.ErrTicketing, err)
	}

	log.Info().Int("issue", out.Number).Str(logging.FieldURL, out.HTMLURL).Msg("issue filed")
	return out.HTMLURL, nil
}
