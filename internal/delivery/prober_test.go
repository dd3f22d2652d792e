package delivery

import (
	"context"
	"testing"
	"time"
)

type everySchedule time.Duration

func (e everySchedule) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

func TestProbeSkippedWhenIdle(t *testing.T) {
	h := newHarness(4000)
	res := h.svc.Prober().RunOnce(context.Background())
	if !res.Skipped {
		t.Fatalf("probe = %+v, want skipped", res)
	}
	if h.id.count() != 0 {
		t.Fatalf("identify calls = %d, want 0", h.id.count())
	}
}

func TestProbeRunsWhenDisconnectedWithEmptyBuffer(t *testing.T) {
	h := newHarness(4000)
	h.svc.MarkConnected(false, "startup probe failed")

	res := h.svc.Prober().RunOnce(context.Background())
	if res.Skipped || !res.Reachable {
		t.Fatalf("probe = %+v", res)
	}
	if !h.svc.IsConnected() {
		t.Fatal("successful probe should mark connected")
	}
	if len(h.caller.sent()) != 0 {
		t.Fatal("nothing pending, no replay calls expected")
	}
}

func TestProbeFailureLeavesBuffer(t *testing.T) {
	h := newHarness(4000)
	bufferMessages(t, h, time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local), "A", "B")
	h.id.setErr(errNet)

	res := h.svc.Prober().RunOnce(context.Background())
	if res.Reachable || res.Err == nil {
		t.Fatalf("probe = %+v", res)
	}
	if h.svc.IsConnected() {
		t.Fatal("failed probe must not mark connected")
	}
	if h.svc.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", h.svc.Pending())
	}
	if len(h.caller.sent()) != 0 {
		t.Fatal("failed probe must not replay")
	}
}

func TestProberRunFollowsSchedule(t *testing.T) {
	probed := make(chan struct{}, 8)
	id := &fakeIdentifier{err: errNet, hook: func() {
		select {
		case probed <- struct{}{}:
		default:
		}
	}}
	svc := New(&fakeCaller{}, id, Config{
		ChatID:        "1",
		ProbeSchedule: everySchedule(5 * time.Millisecond),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Prober().Run(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-probed:
		case <-time.After(2 * time.Second):
			t.Fatalf("probe %d did not run", i+1)
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
