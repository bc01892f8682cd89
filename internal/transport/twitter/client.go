// Package twitter implements the profile directory and embed clients against
// the Twitter v2 users API and the publish.twitter.com oEmbed endpoint.
package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/metrics"
)

const (
	// DefaultAPIBaseURL is the Twitter API root.
	DefaultAPIBaseURL = "https://api.twitter.com"
	// DefaultPublishBaseURL is the oEmbed service root.
	DefaultPublishBaseURL = "https://publish.twitter.com"

	endpointLookup = "users_lookup"
	endpointEmbed  = "oembed"
	endpointHealth = "health"

	// healthProbeID is a long-lived public account; any 200 or 404 proves the token is accepted.
	healthProbeID domain.AccountID = 12

	maxBodyBytes = 1 << 20
)

// errNotFound marks a definitive "no such account" answer from upstream.
var errNotFound = errors.New("not found")

// Config holds the client settings.
type Config struct {
	APIBaseURL     string
	PublishBaseURL string
	BearerToken    string
	UserAgent      string
	Timeout        time.Duration
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// Client resolves account ids to handles and handles to embeddable HTML.
type Client struct {
	apiBase     string
	publishBase string
	token       string
	userAgent   string
	http        *http.Client
	logger      *zap.Logger
}

// New creates a Twitter client.
func New(cfg Config) *Client {
	c := &Client{
		apiBase:     strings.TrimRight(cfg.APIBaseURL, "/"),
		publishBase: strings.TrimRight(cfg.PublishBaseURL, "/"),
		token:       cfg.BearerToken,
		userAgent:   cfg.UserAgent,
		http:        cfg.HTTPClient,
		logger:      cfg.Logger,
	}
	if c.apiBase == "" {
		c.apiBase = DefaultAPIBaseURL
	}
	if c.publishBase == "" {
		c.publishBase = DefaultPublishBaseURL
	}
	if c.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

type userLookupResponse struct {
	Data *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
}

// LookupHandle resolves an account id to its username. A response without
// a data object means the account does not exist or is not visible.
func (c *Client) LookupHandle(ctx context.Context, id domain.AccountID) (string, bool, error) {
	u := c.apiBase + "/2/users/" + id.String() + "?" + url.Values{"user.fields": {"username"}}.Encode()

	body, err := c.get(ctx, endpointLookup, u, true)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return "", false, nil
		}
		return "", false, err
	}

	var resp userLookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false, fmt.Errorf("decode user lookup: %w: %w", domain.ErrDirectoryUnavailable, err)
	}
	if resp.Data == nil || resp.Data.Username == "" {
		return "", false, nil
	}
	return resp.Data.Username, true, nil
}

type oembedResponse struct {
	HTML string `json:"html"`
}

// FetchEmbed returns the oEmbed HTML for a handle.
func (c *Client) FetchEmbed(ctx context.Context, handle string) (string, error) {
	target := "https://twitter.com/" + url.PathEscape(handle)
	u := c.publishBase + "/oembed?" + url.Values{"url": {target}}.Encode()

	body, err := c.get(ctx, endpointEmbed, u, false)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return "", fmt.Errorf("embed for %s: %w", handle, domain.ErrAccountNotFound)
		}
		return "", err
	}

	var resp oembedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode oembed: %w: %w", domain.ErrDirectoryUnavailable, err)
	}
	if resp.HTML == "" {
		return "", fmt.Errorf("oembed for %s returned no html: %w", handle, domain.ErrDirectoryUnavailable)
	}
	return resp.HTML, nil
}

// HealthCheck performs an authenticated lookup of a known account.
// A definitive answer, found or not, means the users API accepts the token.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.token == "" {
		return errors.New("twitter bearer token is not configured")
	}
	u := c.apiBase + "/2/users/" + healthProbeID.String()
	if _, err := c.get(ctx, endpointHealth, u, true); err != nil && !errors.Is(err, errNotFound) {
		return err
	}
	return nil
}

// get performs a GET and maps the response status to domain errors.
func (c *Client) get(ctx context.Context, endpoint, u string, auth bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if auth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.DirectoryRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DirectoryRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		c.logger.Warn("Directory request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("%s request: %w: %w", endpoint, domain.ErrDirectoryUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.DirectoryRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("read %s response: %w: %w", endpoint, domain.ErrDirectoryUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		metrics.DirectoryRequestsTotal.WithLabelValues(endpoint, "success").Inc()
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		metrics.DirectoryRequestsTotal.WithLabelValues(endpoint, "not_found").Inc()
		return nil, errNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.DirectoryRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		c.logger.Warn("Directory rate limited",
			zap.String("endpoint", endpoint),
			zap.String("reset", resp.Header.Get("x-rate-limit-reset")),
		)
		return nil, fmt.Errorf("%s: %w", endpoint, domain.ErrRateLimited)
	default:
		metrics.DirectoryRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		c.logger.Warn("Directory returned unexpected status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%s status %d: %w", endpoint, resp.StatusCode, domain.ErrDirectoryUnavailable)
	}
}
