package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIURL = "https://api.telegram.org"

	MethodSendMessage  = "sendMessage"
	MethodSendDocument = "sendDocument"
	MethodGetMe        = "getMe"

	// CaptionLimit is the Bot API maximum caption length in characters.
	CaptionLimit = 1024

	// DocumentFileName is the name every forwarded attachment is sent under.
	DocumentFileName = "message.txt"

	maxResponseBytes = 1 << 20
)

// InputFile is a file part for multipart uploads.
type InputFile struct {
	Field string // form field, e.g. "document"
	Name  string // filename, e.g. "message.txt"
	Data  []byte
}

// Config configures a Client.
type Config struct {
	Token    string
	APIURL   string // default: https://api.telegram.org
	ProxyURL string // optional: http://, https://, socks5://
}

// Client is a minimal Bot API client. It is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient validates cfg and builds a client whose transport honors the
// configured proxy. Per-call deadlines come from the caller's context.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrEmptyToken
	}
	base, err := normalizeAPIURL(cfg.APIURL)
	if err != nil {
		return nil, err
	}
	hc, err := NewHTTPClient(cfg.ProxyURL, 0)
	if err != nil {
		return nil, err
	}
	return &Client{baseURL: base, token: strings.TrimSpace(cfg.Token), http: hc}, nil
}

// NewHTTPClient returns an http.Client that routes through proxyURL when set.
// A zero timeout leaves deadlines to request contexts.
func NewHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if p := strings.TrimSpace(proxyURL); p != "" {
		u, err := ParseProxyURL(p)
		if err != nil {
			return nil, err
		}
		tr.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Transport: tr, Timeout: timeout}, nil
}

// ParseProxyURL accepts http, https and socks5 proxies.
func ParseProxyURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url %q: %w", raw, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q (use http://, https:// or socks5://)", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid proxy url %q: missing host", raw)
	}
	return u, nil
}

func normalizeAPIURL(raw string) (string, error) {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	if s == "" {
		return DefaultAPIURL, nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid telegram api url %q", raw)
	}
	return s, nil
}

// BaseURL returns the API root (without the /bot<token> suffix).
func (c *Client) BaseURL() string { return c.baseURL }

// HTTPClient returns the proxy-aware client used for calls.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Token returns the bot token (do not log).
func (c *Client) Token() string { return c.token }

type envelope struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Call performs one Bot API request. With a nil file the fields are sent
// form-encoded, otherwise as multipart with the file appended last.
func (c *Client) Call(ctx context.Context, method string, fields map[string]string, file *InputFile) (json.RawMessage, error) {
	body, contentType, err := encodeBody(fields, file)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram %s: %w", method, redactToken(err, c.token))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("telegram %s: read body: %w", method, err)
	}

	var out envelope
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %s http=%d", ErrBadResponse, method, resp.StatusCode)
	}
	if !out.OK {
		code := out.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return nil, &APIError{Method: method, Code: code, Description: out.Description, RetryAfter: out.Parameters.RetryAfter}
	}
	return out.Result, nil
}

func encodeBody(fields map[string]string, file *InputFile) (io.Reader, string, error) {
	if file == nil {
		form := url.Values{}
		for k, v := range fields {
			form.Set(k, v)
		}
		return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	part, err := w.CreateFormFile(file.Field, file.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// redactToken strips the bot token from URL errors before they reach logs.
func redactToken(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	if ue, ok := err.(*url.Error); ok {
		cp := *ue
		cp.URL = strings.ReplaceAll(cp.URL, token, "<token>")
		return &cp
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}
