package ngrok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultAPIURL = "http://127.0.0.1:4040"

	defaultAttempts = 10
	defaultInterval = 3 * time.Second
	requestTimeout  = 5 * time.Second
)

// tunnelsResponse matches the /api/tunnels response from the ngrok local API.
type tunnelsResponse struct {
	Tunnels []tunnel `json:"tunnels"`
}

type tunnel struct {
	Name      string `json:"name"`
	PublicURL string `json:"public_url"`
	Proto     string `json:"proto"`
	Config    struct {
		Addr string `json:"addr"`
	} `json:"config"`
}

// Client reads public tunnel URLs from a local ngrok agent.
type Client struct {
	apiURL     string
	httpClient *http.Client
	attempts   int
	interval   time.Duration
}

func NewClient(apiURL string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		attempts:   defaultAttempts,
		interval:   defaultInterval,
	}
}

// SetRetry overrides how often the agent is polled while it starts up.
func (c *Client) SetRetry(attempts int, interval time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	c.attempts = attempts
	c.interval = interval
}

// PublicURL returns the public URL of the tunnel forwarding to localPort.
// HTTPS tunnels whose upstream is localPort win, then any HTTPS tunnel, then
// any tunnel. It retries while the agent is unreachable or has no tunnels yet.
func (c *Client) PublicURL(ctx context.Context, localPort int) (string, error) {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.interval), uint64(c.attempts-1)), ctx)

	u, err := backoff.RetryWithData(func() (string, error) {
		tunnels, err := c.list(ctx)
		if err != nil {
			return "", err
		}
		if u := pick(tunnels, localPort); u != "" {
			return u, nil
		}
		return "", ErrNoTunnels
	}, b)
	switch {
	case err == nil:
		return u, nil
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(err, ErrNoTunnels):
		return "", fmt.Errorf("%w after %d attempts", ErrNoTunnels, c.attempts)
	default:
		return "", fmt.Errorf("ngrok API not reachable after %d attempts: %w", c.attempts, err)
	}
}

func (c *Client) list(ctx context.Context) ([]tunnel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/api/tunnels", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ngrok API request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ngrok API returned status %d", resp.StatusCode)
	}

	var out tunnelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode ngrok API response: %w", err)
	}
	return out.Tunnels, nil
}

func pick(tunnels []tunnel, localPort int) string {
	for _, t := range tunnels {
		if t.Proto == "https" && forwardsTo(t.Config.Addr, localPort) {
			return t.PublicURL
		}
	}
	for _, t := range tunnels {
		if t.Proto == "https" {
			return t.PublicURL
		}
	}
	if len(tunnels) > 0 {
		return tunnels[0].PublicURL
	}
	return ""
}

// forwardsTo accepts the addr forms the agent reports: "8080",
// "localhost:8080" and "http://localhost:8080".
func forwardsTo(addr string, port int) bool {
	if addr == "" || port <= 0 {
		return false
	}
	want := strconv.Itoa(port)
	if addr == want {
		return true
	}
	if u, err := url.Parse(addr); err == nil && u.Host != "" {
		return u.Port() == want
	}
	if _, p, err := net.SplitHostPort(addr); err == nil {
		return p == want
	}
	return false
}
