package gotify

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
)

// HeaderKey carries the client token on REST and websocket requests.
const HeaderKey = "X-Gotify-Key"

const maxResponseBytes = 4 << 20

var ErrEmptyToken = errors.New("gotify: empty client token")

// Config configures a Client.
type Config struct {
	ServerURL   string
	ClientToken string
	// HTTPClient is optional; default has a 10s timeout.
	HTTPClient *http.Client
}

// Application is one entry of GET /application.
type Application struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Message is one notification as pushed on /stream.
type Message struct {
	ID       int64     `json:"id"`
	AppID    int64     `json:"appid"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Priority int       `json:"priority"`
	Date     time.Time `json:"date"`
}

// Client is a small Gotify REST client.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.ClientToken)
	if token == "" {
		return nil, ErrEmptyToken
	}
	raw := strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("gotify: invalid server url %q", cfg.ServerURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: u, token: token, http: hc}, nil
}

// Applications lists the server's applications.
func (c *Client) Applications(ctx context.Context) ([]Application, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/application"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(HeaderKey, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gotify applications: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("gotify applications: read body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("gotify applications: http %d: %s", resp.StatusCode, snippet(body))
	}
	var apps []Application
	if err := json.Unmarshal(body, &apps); err != nil {
		return nil, fmt.Errorf("gotify applications: decode: %w", err)
	}
	return apps, nil
}

// StreamURL is the websocket endpoint (ws:// or wss://) for /stream.
func (c *Client) StreamURL() string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/stream"
	return u.String()
}

// Header returns the auth header for websocket dials.
func (c *Client) Header() http.Header {
	h := http.Header{}
	h.Set(HeaderKey, c.token)
	return h
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
