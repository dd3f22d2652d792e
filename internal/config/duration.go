package config

import (
	"fmt"
	"strings"
	"time"
)

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// DeliveryTimings are the resolved delivery durations.
type DeliveryTimings struct {
	ProbeTimeout time.Duration
	SendTimeout  time.Duration
	RetryBase    time.Duration
}

func (d DeliveryConfig) Timings() (DeliveryTimings, error) {
	var (
		t   DeliveryTimings
		err error
	)
	if t.ProbeTimeout, err = ParseDurationOrDefault("delivery.probe_timeout", d.ProbeTimeout, 10*time.Second); err != nil {
		return t, err
	}
	if t.SendTimeout, err = ParseDurationOrDefault("delivery.send_timeout", d.SendTimeout, 30*time.Second); err != nil {
		return t, err
	}
	if t.RetryBase, err = ParseDurationOrDefault("delivery.retry_base", d.RetryBase, time.Second); err != nil {
		return t, err
	}
	return t, nil
}

// Reconnect returns the stream reconnect backoff bounds (default 1s..60s).
func (g GotifyConfig) Reconnect() (lo, hi time.Duration, err error) {
	if lo, err = ParseDurationOrDefault("gotify.reconnect_min", g.ReconnectMin, time.Second); err != nil {
		return 0, 0, err
	}
	if hi, err = ParseDurationOrDefault("gotify.reconnect_max", g.ReconnectMax, time.Minute); err != nil {
		return 0, 0, err
	}
	return lo, max(lo, hi), nil
}
