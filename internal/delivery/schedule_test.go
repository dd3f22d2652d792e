package delivery

import (
	"testing"
	"time"
)

func TestParseScheduleVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     SpecKind
		source   string
		duration time.Duration
	}{
		{name: "empty", raw: "", kind: SpecInterval, source: "duration", duration: 5 * time.Minute},
		{name: "duration", raw: "300s", kind: SpecInterval, source: "duration", duration: 5 * time.Minute},
		{name: "prefixed interval", raw: "every:90s", kind: SpecInterval, source: "duration", duration: 90 * time.Second},
		{name: "hhmm", raw: "00:05", kind: SpecInterval, source: "hhmm", duration: 5 * time.Minute},
		{name: "cron", raw: "*/5 * * * *", kind: SpecCron, source: "cron"},
		{name: "descriptor", raw: "@every 5m", kind: SpecCron, source: "cron"},
		{name: "prefixed cron", raw: "cron:0 * * * *", kind: SpecCron, source: "cron"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind || got.Source != tt.source {
				t.Fatalf("got %+v, want kind=%v source=%s", got, tt.kind, tt.source)
			}
			if tt.kind == SpecInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
			if _, err := got.Schedule(); err != nil {
				t.Fatalf("Schedule(): %v", err)
			}
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"soon", "-5m", "00:00", "01:75", "cron:", "* * *"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("ParseSchedule(%q): expected error", raw)
		}
	}
}

func TestIntervalScheduleNext(t *testing.T) {
	p, err := ParseSchedule("5m")
	if err != nil {
		t.Fatal(err)
	}
	sched, err := p.Schedule()
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if next := sched.Next(now); next.Sub(now) != 5*time.Minute {
		t.Fatalf("next = %v", next)
	}
}
