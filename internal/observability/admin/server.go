// Package admin serves a small local HTTP endpoint with delivery status,
// recent dead letters and, optionally, pprof profiles.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strconv"
	"strings"
	"time"

	"gotify2telegram/internal/delivery"
	"gotify2telegram/internal/storage"
	logx "gotify2telegram/pkg/logx"
)

const DefaultAddr = "127.0.0.1:8089"

var ErrInsecureBind = errors.New("admin: non-loopback addr requires token or allow_insecure")

type Config struct {
	Addr          string
	Token         string
	AllowInsecure bool
	Pprof         bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Status is the part of the delivery engine the endpoint reports on.
type Status interface {
	IsConnected() bool
	PendingSnapshot() []delivery.PendingRequest
}

// DeadLetters is satisfied by storage.Store.
type DeadLetters interface {
	RecentDeadLetters(ctx context.Context, limit int) ([]storage.DeadLetter, error)
}

type Server struct {
	cfg     Config
	status  Status
	dead    DeadLetters
	log     logx.Logger
	started time.Time
}

// New builds a server. dead may be nil when no journal is configured.
func New(cfg Config, status Status, dead DeadLetters, log logx.Logger) *Server {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		// pprof profile/trace stream for up to 30s by default.
		cfg.WriteTimeout = 60 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{cfg: cfg, status: status, dead: dead, log: log, started: time.Now()}
}

// Check refuses public binds without auth.
func (s *Server) Check() error {
	if s.cfg.Token == "" && !s.cfg.AllowInsecure && !isLoopbackAddr(s.cfg.Addr) {
		return ErrInsecureBind
	}
	return nil
}

// Run serves until ctx is done. It returns nil on cancellation.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Check(); err != nil {
		return err
	}
	if s.cfg.Token == "" && !isLoopbackAddr(s.cfg.Addr) {
		s.log.Warn("admin endpoint running without token on non-loopback addr (insecure)", logx.String("addr", s.cfg.Addr))
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(cctx)
		cancel()
	}()

	s.log.Info("admin endpoint started", logx.String("addr", ln.Addr().String()),
		logx.Bool("token_set", s.cfg.Token != ""), logx.Bool("pprof", s.cfg.Pprof))

	err = srv.Serve(ln)
	if ctx.Err() != nil {
		return nil
	}
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return errors.New("admin server exited unexpectedly")
	}
	return err
}

// Handler returns the routed, authenticated handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /deadletters", s.handleDeadLetters)

	if s.cfg.Pprof {
		mux.HandleFunc("/debug/pprof/", hpprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", hpprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", hpprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", hpprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", hpprof.Trace)
	}
	return withAuth(s.cfg.Token, mux)
}

type pendingItem struct {
	Title      string    `json:"title"`
	Method     string    `json:"method"`
	ReceivedAt time.Time `json:"received_at"`
}

type statusResponse struct {
	Connected bool          `json:"connected"`
	Pending   int           `json:"pending"`
	Items     []pendingItem `json:"pending_items"`
	Uptime    string        `json:"uptime"`
	Journal   bool          `json:"dead_letter_journal"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.status.PendingSnapshot()
	resp := statusResponse{
		Connected: s.status.IsConnected(),
		Pending:   len(snap),
		Items:     make([]pendingItem, 0, len(snap)),
		Uptime:    time.Since(s.started).Truncate(time.Second).String(),
		Journal:   s.dead != nil,
	}
	for _, p := range snap {
		resp.Items = append(resp.Items, pendingItem{Title: p.Title, Method: p.Method.String(), ReceivedAt: p.ReceivedAt})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	if s.dead == nil {
		http.Error(w, "dead-letter journal disabled", http.StatusNotFound)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, 500)
	}
	items, err := s.dead.RecentDeadLetters(r.Context(), limit)
	if err != nil {
		s.log.Warn("dead-letter read failed", logx.Err(err))
		http.Error(w, "dead-letter read failed", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []storage.DeadLetter{}
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// withAuth accepts "Authorization: Bearer <token>" or ?token=<token>.
func withAuth(token string, h http.Handler) http.Handler {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.URL.Query().Get("token")
		if got == "" {
			if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
				got = strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
			}
		}
		if got != tok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func isLoopbackAddr(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	h = strings.TrimSpace(h)
	if h == "" {
		// Empty host binds all interfaces.
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
