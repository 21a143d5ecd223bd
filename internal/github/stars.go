// Package github reads repository statistics from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agentflow/internal/cache"
	"agentflow/internal/logging"
)

// DefaultBaseURL is the public GitHub API.
const DefaultBaseURL = "https://api.github.com"

// Stats are the counters shown for the project repository.
type Stats struct {
	Stars    int `json:"stars"`
	Forks    int `json:"forks"`
	Watchers int `json:"watchers"`
}

type repoResponse struct {
	StargazersCount int `json:"stargazers_count"`
	ForksCount      int `json:"forks_count"`
	WatchersCount   int `json:"watchers_count"`
}

// Options configures a Client.
type Options struct {
	// Repo is "owner/name". Trailing slashes are ignored.
	Repo    string
	Token   string
	BaseURL string
	// CacheTTL bounds how long fresh stats are served from cache.
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// Client fetches Stats, memoising them in a cache. A non-expiring last-good
// copy is kept so an API outage still yields the most recent numbers.
type Client struct {
	opts   Options
	cache  cache.Cache
	logger *logging.Logger
}

// NewClient creates a Client.
func NewClient(opts Options, c cache.Cache, logger *logging.Logger) *Client {
	opts.Repo = strings.TrimRight(opts.Repo, "/")
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{opts: opts, cache: c, logger: logger}
}

func (c *Client) freshKey() string    { return "github:stats:" + c.opts.Repo }
func (c *Client) lastGoodKey() string { return "github:stats:last:" + c.opts.Repo }

// Stats returns the repository counters.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := c.cache.Get(ctx, c.freshKey(), &s)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.logger.WithError(err).Warn("github stats cache read failed")
	}

	fetched, fetchErr := c.fetch(ctx)
	if fetchErr == nil {
		if err := c.cache.Set(ctx, c.freshKey(), fetched, c.opts.CacheTTL); err != nil {
			c.logger.WithError(err).Warn("github stats cache write failed")
		}
		if err := c.cache.Set(ctx, c.lastGoodKey(), fetched, -1); err != nil {
			c.logger.WithError(err).Warn("github stats cache write failed")
		}
		return fetched, nil
	}

	if err := c.cache.Get(ctx, c.lastGoodKey(), &s); err == nil {
		c.logger.WithError(fetchErr).Warn("serving last known github stats")
		return &s, nil
	}
	return nil, fetchErr
}

func (c *Client) fetch(ctx context.Context) (*Stats, error) {
	if c.opts.Repo == "" || !strings.Contains(c.opts.Repo, "/") {
		return nil, fmt.Errorf("github repo %q must be owner/name", c.opts.Repo)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/repos/"+c.opts.Repo, nil)
	if err != nil {
		return nil, fmt.Errorf("github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github request: status code %d", resp.StatusCode)
	}

	var body repoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("github response: %w", err)
	}
	return &Stats{Stars: body.StargazersCount, Forks: body.ForksCount, Watchers: body.WatchersCount}, nil
}
