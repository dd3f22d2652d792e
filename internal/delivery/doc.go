// Package delivery forwards composed notifications to Telegram without losing
// them when the Bot API is unreachable.
//
// # Flow
//
// Service.Deliver frames a message as text or as a document, then calls the
// Executor once. The Executor retries transport failures a bounded number of
// times and reduces every call to an Outcome. A send that fails while the
// destination is judged unreachable is kept in the pending buffer.
//
// The Prober runs on a schedule. When something is pending, or the API was
// last seen down, it checks getMe and on success hands off to the Replayer,
// which drains the buffer in receipt order. The first network failure during
// a drain puts the unsent remainder back at the front of the buffer.
//
// # Concurrency
//
// State keeps the connectivity flag and the pending buffer under one mutex.
// No lock is held while a request is in flight.
//
// # Events
//
// Lifecycle events are published on the event bus: delivery.sent,
// delivery.buffered, delivery.rejected, delivery.requeued and
// connectivity.changed. Payloads are Record or Connectivity values.
package delivery
