package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides. Secrets are usually supplied this way instead of
// being written into config.yaml.
const (
	EnvBotToken    = "GOTIFY2TG_TELEGRAM_BOT_TOKEN"
	EnvChatID      = "GOTIFY2TG_TELEGRAM_CHAT_ID"
	EnvClientToken = "GOTIFY2TG_GOTIFY_CLIENT_TOKEN"
	EnvProxyURL    = "GOTIFY2TG_PROXY_URL"
)

// LoadEnv reads dotenv files into the process environment. Missing files are
// ignored; variables already set are kept.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ApplyEnv overlays non-empty environment overrides on cfg.
func ApplyEnv(cfg *Config) {
	applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Telegram.BotToken, EnvBotToken)
	set(&cfg.Gotify.ClientToken, EnvClientToken)
	set(&cfg.Telegram.Proxy.URL, EnvProxyURL)
	if v := strings.TrimSpace(getenv(EnvChatID)); v != "" {
		cfg.Telegram.ChatID = ChatID(v)
	}
}
