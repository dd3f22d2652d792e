package delivery

import (
	"context"
	"sync/atomic"
	"time"

	"gotify2telegram/internal/eventbus"
	logx "gotify2telegram/pkg/logx"
)

// DrainResult summarizes one drain.
type DrainResult struct {
	Delivered int
	Rejected  int
	Requeued  int
	// Busy is set when another drain was already running.
	Busy bool
}

// Replayer re-sends buffered requests in receipt order.
type Replayer struct {
	state *State
	exec  *Executor
	frame *framer
	bus   eventbus.Bus
	log   logx.Logger

	running atomic.Bool
}

func newReplayer(state *State, exec *Executor, frame *framer, bus eventbus.Bus, log logx.Logger) *Replayer {
	return &Replayer{state: state, exec: exec, frame: frame, bus: bus, log: log}
}

// Drain empties the buffer and replays each item. Delivered and rejected
// items are gone afterwards; the first network failure stops the drain and
// returns that item and everything after it to the front of the buffer.
// A second concurrent Drain returns immediately with Busy set.
func (r *Replayer) Drain(ctx context.Context) DrainResult {
	if !r.running.CompareAndSwap(false, true) {
		return DrainResult{Busy: true}
	}
	defer r.running.Store(false)

	items := r.state.DrainAll()
	if len(items) == 0 {
		return DrainResult{}
	}
	sortByReceipt(items)

	r.log.Info("replaying pending messages", logx.Int("pending", len(items)))

	var res DrainResult
	for i, item := range items {
		m, p := r.frame.replay(item)
		out := r.exec.Execute(ctx, m, p)

		rec := Record{
			Method:     m.String(),
			Title:      item.Title,
			ReceivedAt: item.ReceivedAt,
			Replay:     true,
			Attempts:   out.Attempts,
		}
		switch out.Outcome {
		case OK:
			res.Delivered++
			r.publish(EventSent, rec)
		case APIError:
			res.Rejected++
			rec.Content = p.Content()
			rec.Reason = errString(out.Err)
			r.log.Warn("replayed message rejected, dropping",
				logx.String("title", item.Title),
				logx.Time("received_at", item.ReceivedAt),
				logx.Err(out.Err),
			)
			r.publish(EventRejected, rec)
		default:
			rest := items[i:]
			r.state.PushFront(rest)
			res.Requeued = len(rest)
			rec.Reason = errString(out.Err)
			rec.Pending = r.state.Len()
			r.log.Warn("replay interrupted, requeued remainder",
				logx.Int("requeued", res.Requeued),
				logx.Int("pending", rec.Pending),
				logx.Err(out.Err),
			)
			r.publish(EventRequeued, rec)
			return res
		}
	}

	r.log.Info("replay finished", logx.Int("delivered", res.Delivered), logx.Int("rejected", res.Rejected))
	return res
}

func (r *Replayer) publish(typ string, rec Record) {
	r.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: rec})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
