package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIURL     = "https://api.github.com"
	defaultTimeout    = 10 * time.Second
	apiVersion        = "2022-11-28"
	hookName          = "web"
	hookContentType   = "json"
	hooksPerPageQuery = "?per_page=100"
	maxHookPages      = 50
)

// Client is a minimal GitHub REST client for repository hooks and branches.
type Client struct {
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client authenticating with token. requestsPerSecond <= 0
// disables client-side throttling.
func NewClient(token string, requestsPerSecond float64) *Client {
	httpClient := &http.Client{}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = defaultTimeout

	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}

	return &Client{
		apiURL:     DefaultAPIURL,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// SetAPIURL overrides the API base URL (GitHub Enterprise, tests).
func (c *Client) SetAPIURL(url string) {
	c.apiURL = url
}

// ListHooks returns the repository's webhooks, following Link rel="next"
// across pages.
func (c *Client) ListHooks(ctx context.Context, owner, repo string) ([]Hook, error) {
	var hooks []Hook
	path := fmt.Sprintf("/repos/%s/%s/hooks%s", owner, repo, hooksPerPageQuery)
	for page := 1; path != ""; page++ {
		if page > maxHookPages {
			return nil, fmt.Errorf("github hooks for %s/%s span more than %d pages", owner, repo, maxHookPages)
		}

		var items []Hook
		header, err := c.request(ctx, http.MethodGet, path, nil, &items)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, items...)

		path, err = c.relativePath(parseLinkNext(header.Get("Link")))
		if err != nil {
			return nil, err
		}
	}
	return hooks, nil
}

// relativePath turns a next page URL into a path under the API base. URLs on
// other hosts are refused so the token is never sent there.
func (c *Client) relativePath(next string) (string, error) {
	if next == "" {
		return "", nil
	}
	if !strings.HasPrefix(next, c.apiURL+"/") {
		return "", fmt.Errorf("github next page %q is outside %s", next, c.apiURL)
	}
	return strings.TrimPrefix(next, c.apiURL), nil
}

// CreateHook creates a JSON webhook.
func (c *Client) CreateHook(ctx context.Context, owner, repo string, input HookInput) (Hook, error) {
	var hook Hook
	path := fmt.Sprintf("/repos/%s/%s/hooks", owner, repo)
	body := toRequest(input)
	body.Name = hookName
	if err := c.do(ctx, http.MethodPost, path, body, &hook); err != nil {
		return Hook{}, err
	}
	return hook, nil
}

// UpdateHook replaces the URL, secret, events and active flag of a hook.
func (c *Client) UpdateHook(ctx context.Context, owner, repo string, id int64, input HookInput) (Hook, error) {
	var hook Hook
	path := fmt.Sprintf("/repos/%s/%s/hooks/%d", owner, repo, id)
	if err := c.do(ctx, http.MethodPatch, path, toRequest(input), &hook); err != nil {
		return Hook{}, err
	}
	return hook, nil
}

// DeleteHook removes a hook.
func (c *Client) DeleteHook(ctx context.Context, owner, repo string, id int64) error {
	path := fmt.Sprintf("/repos/%s/%s/hooks/%d", owner, repo, id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// PingHook asks the provider to deliver a ping event to the hook.
func (c *Client) PingHook(ctx context.Context, owner, repo string, id int64) error {
	path := fmt.Sprintf("/repos/%s/%s/hooks/%d/pings", owner, repo, id)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// BranchHead returns the commit SHA the branch points to.
func (c *Client) BranchHead(ctx context.Context, owner, repo, branch string) (string, error) {
	var resp branchResponse
	path := fmt.Sprintf("/repos/%s/%s/branches/%s", owner, repo, branch)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	if resp.Commit.SHA == "" {
		return "", fmt.Errorf("branch %s has no commit sha in response", branch)
	}
	return resp.Commit.SHA, nil
}

func toRequest(input HookInput) hookRequest {
	return hookRequest{
		Active: input.Active,
		Events: input.Events,
		Config: HookConfig{
			URL:         input.URL,
			ContentType: hookContentType,
			Secret:      input.Secret,
			InsecureSSL: "0",
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	_, err := c.request(ctx, method, path, in, out)
	return err
}

// request performs one API call and returns the response headers.
func (c *Client) request(ctx context.Context, method, path string, in, out any) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call github %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var apiErr errorResponse
		message := string(raw)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			message = apiErr.Message
		}
		return nil, &APIError{
			Method:             method,
			Path:               path,
			StatusCode:         resp.StatusCode,
			Message:            message,
			RateLimitRemaining: resp.Header.Get("X-RateLimit-Remaining"),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("failed to decode github %s %s response: %w", method, path, err)
	}
	return resp.Header, nil
}
