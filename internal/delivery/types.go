package delivery

import (
	"maps"
	"time"

	"gotify2telegram/internal/transport/telegram"
)

// Outcome is the result of one Executor call.
type Outcome int

const (
	OK Outcome = iota
	// APIError means the API answered and refused the content.
	APIError
	// NetworkError means the API could not be used; the content may be fine.
	NetworkError
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case APIError:
		return "api_error"
	case NetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Method is the Bot API operation a request maps to.
type Method int

const (
	SendText Method = iota
	SendDocument
)

// APIMethod returns the Bot API method name.
func (m Method) APIMethod() string {
	if m == SendDocument {
		return telegram.MethodSendDocument
	}
	return telegram.MethodSendMessage
}

func (m Method) String() string {
	if m == SendDocument {
		return "document"
	}
	return "text"
}

// Payload is the field set sent to the API, plus an optional file part.
// File data is never written after construction.
type Payload struct {
	Fields map[string]string
	File   *telegram.InputFile
}

func (p Payload) clone() Payload {
	return Payload{Fields: maps.Clone(p.Fields), File: p.File}
}

// Content returns the human-readable part of the payload: the message text,
// or the attachment body for documents.
func (p Payload) Content() string {
	if p.File != nil {
		return string(p.File.Data)
	}
	return p.Fields[fieldText]
}

// PendingRequest is an undelivered send waiting for replay. It is never
// modified once created; replay derives a new payload from it.
type PendingRequest struct {
	Method     Method
	Payload    Payload
	Title      string
	ReceivedAt time.Time
	EnqueuedAt time.Time
}

// Record is the event payload for delivery lifecycle events.
type Record struct {
	Method     string    `json:"method"`
	Title      string    `json:"title"`
	Content    string    `json:"content,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	Replay     bool      `json:"replay"`
	Attempts   int       `json:"attempts,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Pending    int       `json:"pending,omitempty"`
}

// Connectivity is the payload of connectivity.changed.
type Connectivity struct {
	Connected bool   `json:"connected"`
	Cause     string `json:"cause"`
}

const (
	EventSent         = "delivery.sent"
	EventBuffered     = "delivery.buffered"
	EventRejected     = "delivery.rejected"
	EventRequeued     = "delivery.requeued"
	EventConnectivity = "connectivity.changed"
)
