package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gotify2telegram/internal/transport/telegram"
	logx "gotify2telegram/pkg/logx"

	"golang.org/x/time/rate"
)

// Caller performs one Bot API request. *telegram.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, method string, fields map[string]string, file *telegram.InputFile) (json.RawMessage, error)
}

// ExecutorConfig bounds a single Execute call.
type ExecutorConfig struct {
	MaxAttempts int           // total attempts, default 3
	RetryBase   time.Duration // wait after attempt n is RetryBase * 2^n, default 1s
	MaxBackoff  time.Duration // default 30s
	SendTimeout time.Duration // per attempt, default 30s
	RatePerSec  float64       // outbound pacing; <= 0 disables
}

func (c ExecutorConfig) withDefaults() ExecutorConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBase <= 0 {
		c.RetryBase = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
	return c
}

// Result is what Execute reports. Err is the last failure, for logs only.
type Result struct {
	Outcome  Outcome
	Attempts int
	Err      error
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Executor sends one request with bounded retries and updates State from the
// outcome. It is safe for concurrent use.
type Executor struct {
	caller  Caller
	state   *State
	cfg     ExecutorConfig
	limiter *rate.Limiter
	sleep   Sleeper
	log     logx.Logger
}

func NewExecutor(caller Caller, state *State, cfg ExecutorConfig, sleep Sleeper, log logx.Logger) *Executor {
	cfg = cfg.withDefaults()
	if sleep == nil {
		sleep = sleepCtx
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Executor{
		caller:  caller,
		state:   state,
		cfg:     cfg,
		limiter: newLimiter(cfg.RatePerSec),
		sleep:   sleep,
		log:     log,
	}
}

func newLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := max(int(perSec), 1)
	return rate.NewLimiter(rate.Limit(perSec), burst)
}

// Execute never returns without an Outcome. A rejection is returned at once;
// transport failures are retried until the attempt budget is spent, which
// marks the destination unreachable. Cancellation of ctx ends the call as a
// NetworkError without touching State.
func (e *Executor) Execute(ctx context.Context, m Method, p Payload) Result {
	method := m.APIMethod()
	var (
		lastErr error
		wait    time.Duration
	)

	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return Result{Outcome: NetworkError, Attempts: attempt, Err: err}
		}

		err := e.call(ctx, method, p)
		if err == nil {
			e.state.SetConnected(true, "send ok")
			if attempt > 0 {
				e.log.Info("sent after retry", logx.String("method", method), logx.Int("attempt", attempt+1))
			}
			return Result{Outcome: OK, Attempts: attempt + 1}
		}
		if telegram.IsRejection(err) {
			e.state.SetConnected(true, "api answered")
			e.log.Error("telegram rejected message", logx.String("method", method), logx.Err(err))
			return Result{Outcome: APIError, Attempts: attempt + 1, Err: err}
		}
		if ctx.Err() != nil {
			return Result{Outcome: NetworkError, Attempts: attempt + 1, Err: ctx.Err()}
		}

		lastErr = err
		if attempt+1 >= e.cfg.MaxAttempts {
			break
		}
		wait = max(wait, e.backoff(attempt, err))
		e.log.Warn("send failed, retrying",
			logx.String("method", method),
			logx.Int("attempt", attempt+1),
			logx.Int("max", e.cfg.MaxAttempts),
			logx.Duration("wait", wait),
			logx.Err(err),
		)
		if err := e.sleep(ctx, wait); err != nil {
			return Result{Outcome: NetworkError, Attempts: attempt + 1, Err: err}
		}
	}

	e.state.SetConnected(false, "send failed")
	e.log.Error("send failed, attempts exhausted",
		logx.String("method", method),
		logx.Int("max", e.cfg.MaxAttempts),
		logx.Err(lastErr),
	)
	return Result{Outcome: NetworkError, Attempts: e.cfg.MaxAttempts, Err: lastErr}
}

func (e *Executor) call(ctx context.Context, method string, p Payload) error {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.SendTimeout)
	defer cancel()
	_, err := e.caller.Call(cctx, method, p.Fields, p.File)
	return err
}

// backoff doubles from RetryBase, honors a flood-control retry_after and
// never exceeds MaxBackoff.
func (e *Executor) backoff(attempt int, err error) time.Duration {
	if attempt >= 30 {
		return e.cfg.MaxBackoff
	}
	d := e.cfg.RetryBase << attempt
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		d = max(d, time.Duration(apiErr.RetryAfter)*time.Second)
	}
	return min(d, e.cfg.MaxBackoff)
}
