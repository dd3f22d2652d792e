package storage

import (
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrClosed   = errors.New("storage closed")
)

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines journal next to Path
//   - "sqlite": SQLite database at Path
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	// MaxEntries caps the sqlite journal; older rows are pruned. 0 means 10000.
	MaxEntries int
}

// DeadLetter is one message Telegram rejected.
type DeadLetter struct {
	At         time.Time `json:"at"`
	ReceivedAt time.Time `json:"received_at"`
	Method     string    `json:"method"`
	Title      string    `json:"title"`
	Content    string    `json:"content,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Replay     bool      `json:"replay"`
}
