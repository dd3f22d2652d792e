package app

import (
	"context"
	"time"

	"gotify2telegram/internal/delivery"
	"gotify2telegram/internal/eventbus"
	"gotify2telegram/internal/storage"
	logx "gotify2telegram/pkg/logx"
)

// recordDeadLetters journals every rejected message until ctx is done.
func recordDeadLetters(ctx context.Context, events <-chan eventbus.Event, store storage.Store, log logx.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Type != delivery.EventRejected {
				continue
			}
			rec, ok := e.Data.(delivery.Record)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := store.AppendDeadLetter(wctx, deadLetterFromRecord(e.Time, rec))
			cancel()
			if err != nil {
				log.Warn("dead-letter write failed", logx.String("title", rec.Title), logx.Err(err))
			}
		}
	}
}

func deadLetterFromRecord(at time.Time, rec delivery.Record) storage.DeadLetter {
	return storage.DeadLetter{
		At:         at,
		ReceivedAt: rec.ReceivedAt,
		Method:     rec.Method,
		Title:      rec.Title,
		Content:    rec.Content,
		Reason:     rec.Reason,
		Replay:     rec.Replay,
	}
}
