package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
telegram:
  bot_token: "123:abc"
  chat_id: -1001234567890
  proxy:
    url: "socks5://127.0.0.1:1080"
gotify:
  server_url: "https://push.example.com"
  client_token: "C-token"
  whitelist: [1, "2"]
message:
  max_length: 3500
  filter:
    exclude_patterns: ["(?i)heartbeat"]
delivery:
  probe_every: "*/5 * * * *"
  retry_base: 1s
logging:
  level: debug
  console: true
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)
	cfg, err := NewConfigManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.ChatID != "-1001234567890" {
		t.Fatalf("chat_id = %q", cfg.Telegram.ChatID)
	}
	wl, bl := cfg.Gotify.Apps()
	if len(wl) != 2 || wl[0] != 1 || wl[1] != 2 || len(bl) != 0 {
		t.Fatalf("apps = %v / %v", wl, bl)
	}
	if cfg.Message.MaxLength != 3500 {
		t.Fatalf("max_length = %d", cfg.Message.MaxLength)
	}
	if cfg.Message.TitleFormat != DefaultTitleFormat {
		t.Fatalf("title_format default not applied: %q", cfg.Message.TitleFormat)
	}
}

func TestFilterBlockWinsOverLegacyKeys(t *testing.T) {
	g := GotifyConfig{
		Whitelist: IDList{1},
		Blacklist: IDList{9},
		Filter:    &AppFilter{Whitelist: IDList{}},
	}
	wl, bl := g.Apps()
	if wl == nil || len(wl) != 0 {
		t.Fatalf("whitelist = %v, want explicit empty list", wl)
	}
	if len(bl) != 1 || bl[0] != 9 {
		t.Fatalf("blacklist = %v, want legacy fallback", bl)
	}
}

func TestUnknownKeyRejected(t *testing.T) {
	body := strings.Replace(sampleYAML, "logging:", "loging:", 1)
	p := writeFile(t, t.TempDir(), "config.yaml", body)
	_, err := NewConfigManager(p).Load()
	if err == nil || !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}

func TestJSONConfigAccepted(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.json", `{
		"telegram": {"bot_token": "1:x", "chat_id": "@alerts", "proxy": {"url": ""}},
		"gotify": {"server_url": "http://gotify.lan", "client_token": "c"},
		"message": {"filter": {}}, "delivery": {}, "logging": {"level": "info", "console": true, "file": {"enabled": false, "path": ""}}
	}`)
	cfg, err := NewConfigManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.ChatID != "@alerts" || cfg.Message.MaxLength != DefaultMaxLength {
		t.Fatalf("cfg = %+v", cfg.Telegram)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Proxy: ProxyConfig{URL: "ftp://x"}},
		Gotify:   GotifyConfig{ServerURL: "push.example.com"},
		Message:  MessageConfig{Filter: BodyFilter{IncludePatterns: []string{"("}}},
		Delivery: DeliveryConfig{ProbeEvery: "soon", SendTimeout: "fast"},
		Storage:  &StorageConfig{Driver: "redis"},
	}
	err := Validate(cfg)
	if err == nil || !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v", err)
	}
	for _, want := range []string{
		"telegram.bot_token", "telegram.chat_id", "telegram.proxy.url",
		"gotify.server_url", "gotify.client_token", "include_patterns",
		"delivery.probe_every", "delivery.send_timeout", "storage.driver",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error missing %q:\n%v", want, err)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{BotToken: "file-token", ChatID: "1"}}
	env := map[string]string{
		EnvBotToken:    "env-token",
		EnvChatID:      " 42 ",
		EnvClientToken: "env-client",
	}
	applyEnv(cfg, func(k string) string { return env[k] })
	if cfg.Telegram.BotToken != "env-token" || cfg.Telegram.ChatID != "42" || cfg.Gotify.ClientToken != "env-client" {
		t.Fatalf("cfg = %+v %+v", cfg.Telegram, cfg.Gotify)
	}
	if cfg.Telegram.Proxy.URL != "" {
		t.Fatalf("proxy unexpectedly set: %q", cfg.Telegram.Proxy.URL)
	}
}

func TestLoadEnvFile(t *testing.T) {
	const key = "GOTIFY2TG_TEST_DOTENV_VALUE"
	_ = os.Unsetenv(key)
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dir := t.TempDir()
	p := writeFile(t, dir, ".env", key+"=from-dotenv\n")
	if err := LoadEnv(filepath.Join(dir, "missing.env"), p); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv(key); got != "from-dotenv" {
		t.Fatalf("%s = %q", key, got)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)
	oldCfg, err := NewConfigManager(p).Load()
	if err != nil {
		t.Fatal(err)
	}
	newCfg := *oldCfg
	newCfg.Message.MaxLength = 4000
	newCfg.Telegram.BotToken = "999:zzz"

	ch := SummarizeConfigChange(oldCfg, &newCfg)
	if strings.Join(ch.Changed, ",") != "message,telegram" {
		t.Fatalf("changed = %v", ch.Changed)
	}
	if strings.Join(ch.RestartRequired, ",") != "telegram" {
		t.Fatalf("restart required = %v", ch.RestartRequired)
	}
}

func TestWatchPublishesValidReloads(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", sampleYAML)
	m := NewConfigManager(p)
	m.debounce = 20 * time.Millisecond
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	sub := m.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	// An invalid edit is never published.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "config.yaml", strings.Replace(sampleYAML, `client_token: "C-token"`, `client_token: ""`, 1))
	select {
	case cfg := <-sub:
		t.Fatalf("invalid config published: %+v", cfg.Gotify)
	case <-time.After(300 * time.Millisecond):
	}

	writeFile(t, dir, "config.yaml", strings.Replace(sampleYAML, "max_length: 3500", "max_length: 1234", 1))
	select {
	case cfg := <-sub:
		if cfg.Message.MaxLength != 1234 {
			t.Fatalf("max_length = %d", cfg.Message.MaxLength)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("reload not published")
	}
	if m.Get().Message.MaxLength != 1234 {
		t.Fatal("reload not committed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return")
	}
}

func TestPublishKeepsNewest(t *testing.T) {
	m := NewConfigManager("unused.yaml")
	sub := m.Subscribe(1)
	other := m.Subscribe(1)
	m.Unsubscribe(other)
	if _, ok := <-other; ok {
		t.Fatal("unsubscribed channel not closed")
	}

	first, second := &Config{}, &Config{}
	m.publish(first)
	m.publish(second)
	if got := <-sub; got != second {
		t.Fatal("slow subscriber did not receive the newest config")
	}
	m.Unsubscribe(sub)
	m.publish(first)
}
