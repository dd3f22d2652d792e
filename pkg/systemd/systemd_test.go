package systemd

import (
	"context"
	"testing"
	"time"
)

func TestNoopOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")
	if err := Ready(); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if err := Status("ok"); err != nil {
		t.Fatalf("Status: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	if err := Watchdog(ctx); err != nil {
		t.Fatalf("Watchdog: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("Watchdog blocked without WATCHDOG_USEC")
	}
}
