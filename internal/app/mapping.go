package app

import (
	"gotify2telegram/internal/bridge"
	"gotify2telegram/internal/config"
	"gotify2telegram/internal/delivery"
	logx "gotify2telegram/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapBridgeRules(cfg *config.Config) bridge.Rules {
	wl, bl := cfg.Gotify.Apps()
	return bridge.Rules{
		TitleFormat: cfg.Message.TitleFormat,
		Whitelist:   wl,
		Blacklist:   bl,
		Include:     cfg.Message.Filter.IncludePatterns,
		Exclude:     cfg.Message.Filter.ExcludePatterns,
	}
}

func mapDeliveryConfig(cfg *config.Config) (delivery.Config, error) {
	t, err := cfg.Delivery.Timings()
	if err != nil {
		return delivery.Config{}, err
	}
	ps, err := delivery.ParseSchedule(cfg.Delivery.ProbeEvery)
	if err != nil {
		return delivery.Config{}, err
	}
	sched, err := ps.Schedule()
	if err != nil {
		return delivery.Config{}, err
	}
	return delivery.Config{
		ChatID:        cfg.Telegram.ChatID.String(),
		MaxLength:     cfg.Message.MaxLength,
		ProbeSchedule: sched,
		ProbeTimeout:  t.ProbeTimeout,
		Executor: delivery.ExecutorConfig{
			MaxAttempts: cfg.Delivery.MaxAttempts,
			RetryBase:   t.RetryBase,
			SendTimeout: t.SendTimeout,
			RatePerSec:  cfg.Delivery.RatePerSec,
		},
		StartConnected: true,
	}, nil
}
