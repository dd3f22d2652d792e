package bridge

import (
	"context"
	"sync/atomic"

	"gotify2telegram/internal/gotify"
	logx "gotify2telegram/pkg/logx"
)

// Deliverer is the delivery engine entry point.
type Deliverer interface {
	Deliver(ctx context.Context, title, message string) bool
}

// Namer resolves a Gotify application id to a display name.
type Namer interface {
	Name(ctx context.Context, appID int64) string
}

type Result int

const (
	Delivered Result = iota
	// NotDelivered means the engine buffered or dropped the message.
	NotDelivered
	Filtered
)

func (r Result) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case NotDelivered:
		return "not_delivered"
	case Filtered:
		return "filtered"
	default:
		return "unknown"
	}
}

type Bridge struct {
	out   Deliverer
	names Namer
	log   logx.Logger

	rules atomic.Pointer[compiled]
}

func New(out Deliverer, names Namer, rules Rules, log logx.Logger) (*Bridge, error) {
	b := &Bridge{out: out, names: names, log: log}
	if err := b.Apply(rules); err != nil {
		return nil, err
	}
	return b, nil
}

// Apply swaps the filter and title rules. Messages already being handled
// finish under the old rules.
func (b *Bridge) Apply(r Rules) error {
	c, err := r.compile()
	if err != nil {
		return err
	}
	b.rules.Store(c)
	return nil
}

// Handle forwards one notification. Failures are logged and reported through
// the result; they never stop the caller's intake loop.
func (b *Bridge) Handle(ctx context.Context, m gotify.Message) Result {
	rules := b.rules.Load()

	if reason := rules.appReason(m.AppID); reason != "" {
		b.log.Info("skipping message", logx.Int64("appid", m.AppID), logx.String("reason", reason))
		return Filtered
	}

	appName := b.names.Name(ctx, m.AppID)
	b.log.Info("received from "+appName, logx.Int64("appid", m.AppID), logx.Int64("id", m.ID), logx.String("title", m.Title))

	if reason := rules.bodyReason(m.Message); reason != "" {
		b.log.Info("skipping message", logx.Int64("appid", m.AppID), logx.String("reason", reason))
		return Filtered
	}

	title, full := Compose(rules.titleFormat, appName, m.Title, m.Message)
	if !b.out.Deliver(ctx, title, full) {
		b.log.Warn("message not delivered, still listening", logx.Int64("appid", m.AppID), logx.Int64("id", m.ID))
		return NotDelivered
	}
	return Delivered
}
