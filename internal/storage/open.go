package storage

import (
	"context"
	"errors"
	"strings"

	logx "gotify2telegram/pkg/logx"
)

// Store is the dead-letter journal.
type Store interface {
	AppendDeadLetter(ctx context.Context, d DeadLetter) error
	// RecentDeadLetters returns up to limit records, newest first.
	RecentDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "storage"), logx.String("driver", driver))

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
