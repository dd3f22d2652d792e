// Package storage keeps a durable journal of messages Telegram refused.
//
// The delivery engine drops a message once the Bot API rejects it; a
// recorder writes each drop here so it can still be inspected later. The
// pending replay buffer itself is never stored.
//
// Drivers:
//   - file: JSON Lines, one record per line
//   - sqlite: a single database file (modernc.org/sqlite, no cgo)
package storage
