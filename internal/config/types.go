package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Gotify   GotifyConfig   `json:"gotify"`
	Message  MessageConfig  `json:"message"`
	Delivery DeliveryConfig `json:"delivery"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	Admin    *AdminConfig   `json:"admin,omitempty"`
}

type TelegramConfig struct {
	BotToken string `json:"bot_token"` // do not log
	ChatID   ChatID `json:"chat_id"`
	// APIURL overrides https://api.telegram.org (self-hosted Bot API server).
	APIURL string      `json:"api_url,omitempty"`
	Proxy  ProxyConfig `json:"proxy"`
}

// ProxyConfig routes Bot API traffic through http://, https:// or socks5://.
type ProxyConfig struct {
	URL string `json:"url"`
}

// GotifyConfig selects the notification source.
//
// App filters may be given either under filter: or, for older configs,
// directly as gotify.whitelist / gotify.blacklist. The filter block wins.
type GotifyConfig struct {
	ServerURL   string     `json:"server_url"`
	ClientToken string     `json:"client_token"` // do not log
	Filter      *AppFilter `json:"filter,omitempty"`

	Whitelist IDList `json:"whitelist,omitempty"`
	Blacklist IDList `json:"blacklist,omitempty"`

	// ReconnectMin/ReconnectMax bound the stream reconnect backoff (Go durations).
	ReconnectMin string `json:"reconnect_min,omitempty"`
	ReconnectMax string `json:"reconnect_max,omitempty"`
}

type AppFilter struct {
	Whitelist IDList `json:"whitelist,omitempty"`
	Blacklist IDList `json:"blacklist,omitempty"`
}

// Apps returns the effective whitelist and blacklist.
func (g GotifyConfig) Apps() (whitelist, blacklist []int64) {
	whitelist, blacklist = g.Whitelist, g.Blacklist
	if g.Filter != nil {
		if g.Filter.Whitelist != nil {
			whitelist = g.Filter.Whitelist
		}
		if g.Filter.Blacklist != nil {
			blacklist = g.Filter.Blacklist
		}
	}
	return whitelist, blacklist
}

// MessageConfig controls how notifications are rendered.
//
// Defaults:
//   - max_length: 4000 (messages at or above go out as message.txt)
//   - title_format: "[Gotify→{app_name}] - {title}"
type MessageConfig struct {
	MaxLength   int        `json:"max_length,omitempty"`
	TitleFormat string     `json:"title_format,omitempty"`
	Filter      BodyFilter `json:"filter"`
}

// BodyFilter drops notifications by regular expressions over the body.
// A non-empty include list requires at least one match; any exclude match drops.
type BodyFilter struct {
	IncludePatterns []string `json:"include_patterns,omitempty"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`
}

// DeliveryConfig tunes the delivery engine.
//
// All durations are Go duration strings. probe_every also accepts HH:MM or
// a cron expression ("*/5 * * * *", "@every 5m").
//
// Defaults (when fields are omitted/zero):
//   - probe_every: "5m"
//   - probe_timeout: "10s"
//   - send_timeout: "30s"
//   - max_attempts: 3
//   - retry_base: "1s"
//   - rate_per_sec: 0 (unlimited)
type DeliveryConfig struct {
	ProbeEvery   string  `json:"probe_every,omitempty"`
	ProbeTimeout string  `json:"probe_timeout,omitempty"`
	SendTimeout  string  `json:"send_timeout,omitempty"`
	MaxAttempts  int     `json:"max_attempts,omitempty"`
	RetryBase    string  `json:"retry_base,omitempty"`
	RatePerSec   float64 `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig enables the dead-letter journal for rejected messages.
//
// Example:
//
//	storage: { driver: sqlite, path: ./gotify2telegram.db }
type StorageConfig struct {
	Driver      string `json:"driver"` // file | sqlite | none
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// AdminConfig enables the local status endpoint.
//
// A non-loopback addr requires a token unless allow_insecure is set.
type AdminConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default 127.0.0.1:8089
	Token         string `json:"token,omitempty"` // do not log
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`
}

// ChatID accepts both numeric and string chat ids ("-100123", "@channel").
type ChatID string

func (c *ChatID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = ChatID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("chat_id: expected number or string: %w", err)
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("chat_id: %q is not an integer", n.String())
	}
	*c = ChatID(n.String())
	return nil
}

func (c ChatID) String() string { return string(c) }

// IDList is a list of Gotify application ids. Entries may be numbers or
// numeric strings.
type IDList []int64

func (l *IDList) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("app id list: %w", err)
	}
	out := make(IDList, 0, len(raw))
	for _, r := range raw {
		r = bytes.TrimSpace(r)
		s := string(r)
		if len(r) > 0 && r[0] == '"' {
			if err := json.Unmarshal(r, &s); err != nil {
				return err
			}
		}
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("app id %s is not an integer", string(r))
		}
		out = append(out, id)
	}
	*l = out
	return nil
}
