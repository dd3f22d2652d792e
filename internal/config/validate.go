package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"gotify2telegram/internal/bridge"
	"gotify2telegram/internal/delivery"
	"gotify2telegram/internal/transport/telegram"
)

// ErrConfig marks configuration problems that must stop startup.
var ErrConfig = errors.New("config error")

const (
	DefaultMaxLength   = delivery.DefaultMaxLength
	DefaultTitleFormat = bridge.DefaultTitleFormat
)

// ApplyDefaults fills omitted message settings.
func (c *Config) ApplyDefaults() {
	if c.Message.MaxLength <= 0 {
		c.Message.MaxLength = DefaultMaxLength
	}
	if strings.TrimSpace(c.Message.TitleFormat) == "" {
		c.Message.TitleFormat = DefaultTitleFormat
	}
}

// Validate reports every problem found, joined, each wrapping ErrConfig.
func Validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrConfig)
	}
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrConfig}, args...)...))
	}

	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		bad("telegram.bot_token is required")
	}
	if strings.TrimSpace(c.Telegram.ChatID.String()) == "" {
		bad("telegram.chat_id is required")
	}
	if s := strings.TrimSpace(c.Telegram.APIURL); s != "" && !isHTTPURL(s) {
		bad("telegram.api_url %q must be an http(s) url", s)
	}
	if p := strings.TrimSpace(c.Telegram.Proxy.URL); p != "" {
		if _, err := telegram.ParseProxyURL(p); err != nil {
			bad("telegram.proxy.url: %v", err)
		}
	}

	if s := strings.TrimSpace(c.Gotify.ServerURL); s == "" {
		bad("gotify.server_url is required")
	} else if !isHTTPURL(s) {
		bad("gotify.server_url %q must be an http(s) url", s)
	}
	if strings.TrimSpace(c.Gotify.ClientToken) == "" {
		bad("gotify.client_token is required")
	}
	for _, f := range []struct{ path, raw string }{
		{"gotify.reconnect_min", c.Gotify.ReconnectMin},
		{"gotify.reconnect_max", c.Gotify.ReconnectMax},
		{"delivery.probe_timeout", c.Delivery.ProbeTimeout},
		{"delivery.send_timeout", c.Delivery.SendTimeout},
		{"delivery.retry_base", c.Delivery.RetryBase},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			bad("%v", err)
		}
	}

	if c.Message.MaxLength < 0 {
		bad("message.max_length must be > 0")
	}
	if tf := c.Message.TitleFormat; tf != "" && !strings.Contains(tf, "{title}") && !strings.Contains(tf, "{app_name}") {
		bad("message.title_format %q uses neither {app_name} nor {title}", tf)
	}
	for _, p := range c.Message.Filter.IncludePatterns {
		if _, err := regexp.Compile(p); err != nil {
			bad("message.filter.include_patterns: %v", err)
		}
	}
	for _, p := range c.Message.Filter.ExcludePatterns {
		if _, err := regexp.Compile(p); err != nil {
			bad("message.filter.exclude_patterns: %v", err)
		}
	}

	if c.Delivery.MaxAttempts < 0 {
		bad("delivery.max_attempts must be >= 0")
	}
	if c.Delivery.RatePerSec < 0 {
		bad("delivery.rate_per_sec must be >= 0")
	}
	if _, err := delivery.ParseSchedule(c.Delivery.ProbeEvery); err != nil {
		bad("delivery.probe_every: %v", err)
	}

	if s := c.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			bad("storage.driver %q (use file, sqlite or none)", s.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
			bad("%v", err)
		}
	}

	if a := c.Admin; a != nil && a.Enabled && strings.TrimSpace(a.Addr) != "" {
		if _, _, err := net.SplitHostPort(strings.TrimSpace(a.Addr)); err != nil {
			bad("admin.addr %q: %v", a.Addr, err)
		}
	}

	return errors.Join(errs...)
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
