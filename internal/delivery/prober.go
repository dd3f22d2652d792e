package delivery

import (
	"context"
	"time"

	"gotify2telegram/internal/transport/telegram"
	logx "gotify2telegram/pkg/logx"

	"github.com/robfig/cron/v3"
)

// Identifier is the lightweight reachability check. *telegram.Identifier
// satisfies it.
type Identifier interface {
	Identify(ctx context.Context) (telegram.Identity, error)
}

// ProbeResult describes one probe cycle.
type ProbeResult struct {
	Skipped   bool
	Reachable bool
	Drain     DrainResult
	Err       error
}

// Prober checks the destination on a schedule and triggers replay once it
// answers again. It is the only caller of Replayer.Drain.
type Prober struct {
	state    *State
	id       Identifier
	replay   *Replayer
	schedule cron.Schedule
	timeout  time.Duration
	now      func() time.Time
	log      logx.Logger
}

func newProber(state *State, id Identifier, replay *Replayer, schedule cron.Schedule, timeout time.Duration, now func() time.Time, log logx.Logger) *Prober {
	if schedule == nil {
		schedule = cron.Every(DefaultProbeEvery)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{state: state, id: id, replay: replay, schedule: schedule, timeout: timeout, now: now, log: log}
}

// RunOnce performs one cycle. Nothing is checked when the destination is
// connected and nothing is pending.
func (p *Prober) RunOnce(ctx context.Context) ProbeResult {
	if p.state.Idle() {
		return ProbeResult{Skipped: true}
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	me, err := p.id.Identify(cctx)
	cancel()
	if err != nil {
		p.log.Debug("probe failed", logx.Int("pending", p.state.Len()), logx.Err(err))
		return ProbeResult{Err: err}
	}

	if p.state.SetConnected(true, "probe ok") {
		p.log.Info("telegram reachable again", logx.String("bot", me.Username), logx.Int("pending", p.state.Len()))
	}
	return ProbeResult{Reachable: true, Drain: p.replay.Drain(ctx)}
}

// Run calls RunOnce at every schedule activation until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	for {
		now := p.now()
		wait := p.schedule.Next(now).Sub(now)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		p.RunOnce(ctx)
	}
}
