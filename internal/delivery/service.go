package delivery

import (
	"context"
	"time"

	"gotify2telegram/internal/eventbus"
	"gotify2telegram/internal/transport/telegram"
	logx "gotify2telegram/pkg/logx"

	"github.com/robfig/cron/v3"
)

// Config wires a Service.
type Config struct {
	ChatID        string
	MaxLength     int           // messages at or over this many characters go out as documents
	ProbeSchedule cron.Schedule // default every 5m
	ProbeTimeout  time.Duration // default 10s
	Executor      ExecutorConfig
	// StartConnected is the connectivity assumed before the first call.
	StartConnected bool
}

type Option func(*Service)

func WithLogger(log logx.Logger) Option { return func(s *Service) { s.log = log } }

func WithBus(bus eventbus.Bus) Option { return func(s *Service) { s.bus = bus } }

// WithCodeExtractor sets the function that finds a verification code in a
// composed message. A non-empty code adds a copy button.
func WithCodeExtractor(fn func(string) string) Option {
	return func(s *Service) { s.extract = fn }
}

func WithSleeper(fn Sleeper) Option { return func(s *Service) { s.sleep = fn } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// Service is the delivery engine entry point.
type Service struct {
	state  *State
	frame  *framer
	exec   *Executor
	replay *Replayer
	prober *Prober

	extract func(string) string
	sleep   Sleeper
	now     func() time.Time
	bus     eventbus.Bus
	log     logx.Logger
}

func New(caller Caller, id Identifier, cfg Config, opts ...Option) *Service {
	s := &Service{now: time.Now, bus: eventbus.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	log := s.log.With(logx.String("comp", "delivery"))

	s.state = NewState(cfg.StartConnected)
	s.state.OnChange(func(connected bool, cause string) {
		if connected {
			log.Info("telegram connected", logx.String("cause", cause))
		} else {
			log.Warn("telegram unreachable, buffering", logx.String("cause", cause))
		}
		s.bus.Publish(eventbus.Event{Type: EventConnectivity, Data: Connectivity{Connected: connected, Cause: cause}})
	})

	s.frame = newFramer(cfg.ChatID, cfg.MaxLength)
	s.exec = NewExecutor(caller, s.state, cfg.Executor, s.sleep, log)
	s.replay = newReplayer(s.state, s.exec, s.frame, s.bus, s.log.With(logx.String("comp", "replay")))
	s.prober = newProber(s.state, id, s.replay, cfg.ProbeSchedule, cfg.ProbeTimeout, s.now, s.log.With(logx.String("comp", "probe")))
	s.log = log
	return s
}

// Deliver sends one composed message. It returns true only when Telegram
// accepted it. A false return is not fatal for the caller: the message is
// either buffered for replay or was rejected and logged.
func (s *Service) Deliver(ctx context.Context, title, message string) bool {
	receivedAt := s.now()

	var markup string
	if s.extract != nil {
		if code := s.extract(message); code != "" {
			markup = telegram.CopyCodeMarkup(code)
		}
	}

	m, p := s.frame.frame(title, message, markup)
	if m == SendDocument {
		s.log.Info("message too long, sending as file", logx.Int("length", len([]rune(message))))
	}

	out := s.exec.Execute(ctx, m, p)
	rec := Record{Method: m.String(), Title: title, ReceivedAt: receivedAt, Attempts: out.Attempts}

	switch out.Outcome {
	case OK:
		s.publish(EventSent, rec)
		return true
	case APIError:
		rec.Content = message
		rec.Reason = errString(out.Err)
		s.publish(EventRejected, rec)
		return false
	}

	req := PendingRequest{Method: m, Payload: p, Title: title, ReceivedAt: receivedAt, EnqueuedAt: s.now()}
	depth, ok := s.state.AppendIfDisconnected(req)
	if !ok {
		s.log.Warn("send interrupted while connected, message dropped",
			logx.String("title", title), logx.Err(out.Err))
		return false
	}
	rec.Reason = errString(out.Err)
	rec.Pending = depth
	s.log.Warn("message buffered for replay", logx.String("title", title), logx.Int("pending", depth))
	s.publish(EventBuffered, rec)
	return false
}

// IsConnected reports the last known reachability of Telegram.
func (s *Service) IsConnected() bool { return s.state.Connected() }

// MarkConnected records the outcome of an out-of-band check such as the
// startup probe.
func (s *Service) MarkConnected(v bool, cause string) { s.state.SetConnected(v, cause) }

// Pending returns the number of buffered messages.
func (s *Service) Pending() int { return s.state.Len() }

// PendingSnapshot returns the buffered messages in replay order.
func (s *Service) PendingSnapshot() []PendingRequest { return s.state.Snapshot() }

// SetMaxLength changes the text/document threshold for later sends.
func (s *Service) SetMaxLength(n int) { s.frame.setMaxLength(n) }

func (s *Service) Prober() *Prober { return s.prober }

func (s *Service) Replayer() *Replayer { return s.replay }

func (s *Service) publish(typ string, rec Record) {
	s.bus.Publish(eventbus.Event{Type: typ, Time: s.now(), Data: rec})
}
