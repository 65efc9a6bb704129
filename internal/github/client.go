package github

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

	"github.com/readme-readyou/readme-readyou/internal/config"
	"github.com/readme-readyou/readme-readyou/pkg/metrics"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// MaxRepos caps the recent-repository listing.
const MaxRepos = 5

// ErrNotFound is returned when the handle does not exist on GitHub.
var ErrNotFound = errors.New("github: user not found")

// User is the subset of the GitHub user document used for prompts and contact links.
type User struct {
	Login           string    `json:"login"`
	Name            string    `json:"name,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Company         string    `json:"company,omitempty"`
	Blog            string    `json:"blog,omitempty"`
	Location        string    `json:"location,omitempty"`
	Email           string    `json:"email,omitempty"`
	TwitterUsername string    `json:"twitter_username,omitempty"`
	HTMLURL         string    `json:"html_url"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	PublicRepos     int       `json:"public_repos"`
	Followers       int       `json:"followers"`
	Following       int       `json:"following"`
	CreatedAt       time.Time `json:"created_at"`
}

// Repo is one entry of the recent-repository listing.
type Repo struct {
	Name        string    `json:"name"`
	HTMLURL     string    `json:"html_url"`
	Description *string   `json:"description"`
	Language    string    `json:"language,omitempty"`
	Stars       int       `json:"stargazers_count"`
	Forks       int       `json:"forks_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const noDescription = "No description available"

// DescriptionOrDefault returns the description, or a placeholder when GitHub has none.
func (r Repo) DescriptionOrDefault() string {
	if r.Description == nil || strings.TrimSpace(*r.Description) == "" {
		return noDescription
	}
	return *r.Description
}

// Client talks to the GitHub REST API. Requests are paced by a token bucket so a
// burst of cache misses does not exhaust the API quota.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a client from cfg. A configured token is sent as a bearer token.
func NewClient(cfg config.GitHubConfig) *Client {
	hc := &http.Client{Timeout: 15 * time.Second}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		hc = oauth2.NewClient(context.Background(), ts)
		hc.Timeout = 15 * time.Second
	}
	base := cfg.APIURL
	if base == "" {
		base = "https://api.github.com"
	}
	rps, burst := cfg.RPS, cfg.Burst
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "readme-readyou")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("github", "error").Inc()
		return 0, fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues("github", fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("github API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// FetchUser returns the profile for handle, or ErrNotFound on a 404.
func (c *Client) FetchUser(ctx context.Context, handle string) (*User, error) {
	var u User
	status, err := c.get(ctx, "/users/"+url.PathEscape(handle), nil, &u)
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, handle)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FetchRepos returns up to MaxRepos repositories, most recently updated first.
func (c *Client) FetchRepos(ctx context.Context, handle string) ([]Repo, error) {
	q := url.Values{}
	q.Set("sort", "updated")
	q.Set("per_page", fmt.Sprintf("%d", MaxRepos))
	var repos []Repo
	status, err := c.get(ctx, "/users/"+url.PathEscape(handle)+"/repos", q, &repos)
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, handle)
	}
	if err != nil {
		return nil, err
	}
	if len(repos) > MaxRepos {
		repos = repos[:MaxRepos]
	}
	return repos, nil
}

// WithoutProfileRepo drops the special <handle>/<handle> profile repository.
func WithoutProfileRepo(handle string, repos []Repo) []Repo {
	out := make([]Repo, 0, len(repos))
	for _, r := range repos {
		if strings.EqualFold(r.Name, handle) {
			continue
		}
		out = append(out, r)
	}
	return out
}
