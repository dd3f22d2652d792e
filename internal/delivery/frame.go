package delivery

import (
	"sync/atomic"
	"time"
	"unicode/utf8"

	"gotify2telegram/internal/transport/telegram"
)

const (
	DefaultMaxLength = 4000

	fieldChatID  = "chat_id"
	fieldText    = "text"
	fieldCaption = "caption"
	fieldMarkup  = "reply_markup"
	fieldFile    = "document"

	documentSuffix   = " [message too long, sent as file]"
	receivedAtLayout = "2006-01-02 15:04:05 -0700"
)

// framer turns composed messages into payloads. The length threshold can be
// changed while deliveries are running.
type framer struct {
	chatID string
	maxLen atomic.Int64
}

func newFramer(chatID string, maxLen int) *framer {
	f := &framer{chatID: chatID}
	f.setMaxLength(maxLen)
	return f
}

func (f *framer) setMaxLength(n int) {
	if n <= 0 {
		n = DefaultMaxLength
	}
	f.maxLen.Store(int64(n))
}

func (f *framer) maxLength() int { return int(f.maxLen.Load()) }

// tooLong reports whether text must go out as an attachment.
func (f *framer) tooLong(text string) bool {
	return utf8.RuneCountInString(text) >= f.maxLength()
}

// frame picks text or document for a composed message.
func (f *framer) frame(title, message, markup string) (Method, Payload) {
	if f.tooLong(message) {
		return SendDocument, f.document(title, message, markup, "")
	}
	return SendText, f.text(message, markup)
}

func (f *framer) text(message, markup string) Payload {
	fields := map[string]string{fieldChatID: f.chatID, fieldText: message}
	if markup != "" {
		fields[fieldMarkup] = markup
	}
	return Payload{Fields: fields}
}

func (f *framer) document(title, content, markup, annotation string) Payload {
	fields := map[string]string{fieldChatID: f.chatID, fieldCaption: caption(title+documentSuffix, annotation)}
	if markup != "" {
		fields[fieldMarkup] = markup
	}
	return Payload{
		Fields: fields,
		File:   &telegram.InputFile{Field: fieldFile, Name: telegram.DocumentFileName, Data: []byte(content)},
	}
}

// replay derives the payload re-sent for a buffered request. Text gets the
// receipt annotation and becomes a document if that pushes it over the
// threshold; documents get the annotation on their caption.
func (f *framer) replay(req PendingRequest) (Method, Payload) {
	note := annotation(req.ReceivedAt)
	markup := req.Payload.Fields[fieldMarkup]

	if req.Method == SendDocument {
		p := req.Payload.clone()
		p.Fields[fieldCaption] = caption(req.Payload.Fields[fieldCaption], note)
		return SendDocument, p
	}

	text := req.Payload.Fields[fieldText] + note
	if f.tooLong(text) {
		return SendDocument, f.document(req.Title, text, markup, note)
	}
	p := req.Payload.clone()
	p.Fields[fieldText] = text
	return SendText, p
}

func annotation(receivedAt time.Time) string {
	return "\n\n[received at " + receivedAt.Local().Format(receivedAtLayout) + "]"
}

// caption fits base plus suffix into the caption limit, shortening base.
func caption(base, suffix string) string {
	room := telegram.CaptionLimit - utf8.RuneCountInString(suffix)
	return telegram.TruncateRunes(base, room) + suffix
}
