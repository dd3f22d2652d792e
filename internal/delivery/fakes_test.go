package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"sync"
	"time"

	"gotify2telegram/internal/transport/telegram"
)

var errNet = errors.New("dial tcp 149.154.167.220:443: connect: connection refused")

func rejection() error {
	return &telegram.APIError{Method: telegram.MethodSendMessage, Code: 400, Description: "Bad Request: message is empty"}
}

type sentCall struct {
	method string
	fields map[string]string
	file   *telegram.InputFile
}

func (c sentCall) content() string {
	if c.file != nil {
		return string(c.file.Data)
	}
	return c.fields[fieldText]
}

// fakeCaller records calls and answers with respond(n, call).
type fakeCaller struct {
	mu      sync.Mutex
	calls   []sentCall
	respond func(n int, c sentCall) error
}

func (f *fakeCaller) Call(ctx context.Context, method string, fields map[string]string, file *telegram.InputFile) (json.RawMessage, error) {
	f.mu.Lock()
	c := sentCall{method: method, fields: maps.Clone(fields), file: file}
	n := len(f.calls)
	f.calls = append(f.calls, c)
	fn := f.respond
	f.mu.Unlock()

	if fn != nil {
		if err := fn(n, c); err != nil {
			return nil, err
		}
	}
	return json.RawMessage(`{"message_id":1}`), nil
}

func (f *fakeCaller) setRespond(fn func(n int, c sentCall) error) {
	f.mu.Lock()
	f.respond = fn
	f.mu.Unlock()
}

func (f *fakeCaller) reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

func (f *fakeCaller) sent() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func alwaysFail(err error) func(int, sentCall) error {
	return func(int, sentCall) error { return err }
}

type fakeIdentifier struct {
	mu    sync.Mutex
	err   error
	calls int
	hook  func()
}

func (f *fakeIdentifier) Identify(ctx context.Context) (telegram.Identity, error) {
	f.mu.Lock()
	f.calls++
	err, hook := f.err, f.hook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return telegram.Identity{}, err
	}
	return telegram.Identity{ID: 42, FirstName: "Relay", Username: "relay_bot"}, nil
}

func (f *fakeIdentifier) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeIdentifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// sleepRecorder captures backoff waits without sleeping.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.waits))
	copy(out, r.waits)
	return out
}

type harness struct {
	svc    *Service
	caller *fakeCaller
	id     *fakeIdentifier
	clock  *fakeClock
	sleeps *sleepRecorder
}

func newHarness(maxLen int, opts ...Option) *harness {
	h := &harness{
		caller: &fakeCaller{},
		id:     &fakeIdentifier{},
		clock:  &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)},
		sleeps: &sleepRecorder{},
	}
	all := append([]Option{WithClock(h.clock.Now), WithSleeper(h.sleeps.Sleep)}, opts...)
	h.svc = New(h.caller, h.id, Config{ChatID: "1001", MaxLength: maxLen, StartConnected: true}, all...)
	return h
}
