package config

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "gotify2telegram/pkg/logx"

	"github.com/fsnotify/fsnotify"
)

// ConfigManager owns the active config and republishes it when the file
// changes on disk.
type ConfigManager struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	// subsMu also guards against sending on a channel Unsubscribe is closing.
	subsMu sync.Mutex
	subs   []chan *Config

	log       logx.Logger
	validator func(ctx context.Context, cfg *Config) error
	debounce  time.Duration

	// lastHash is the fingerprint of the last committed config. Editors often
	// emit several events for one save.
	lastHash uint64
}

func NewConfigManager(path string) *ConfigManager {
	return &ConfigManager{path: path, log: logx.Nop(), debounce: 250 * time.Millisecond}
}

func (m *ConfigManager) Path() string { return m.path }

func (m *ConfigManager) SetLogger(log logx.Logger) { m.log = log }

// SetValidator installs a hook Watch runs before committing a reload.
func (m *ConfigManager) SetValidator(fn func(ctx context.Context, cfg *Config) error) {
	m.validator = fn
}

// Parse reads the file, overlays environment overrides and fills defaults.
// It does not validate.
func (m *ConfigManager) Parse() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	cfg, err := decode(m.path, b)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	cfg.ApplyDefaults()
	return cfg, nil
}

func (m *ConfigManager) Commit(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.lastHash = hashConfig(cfg)
	m.mu.Unlock()
}

// Load parses, validates and commits the file.
func (m *ConfigManager) Load() (*Config, error) {
	cfg, err := m.Parse()
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	m.Commit(cfg)
	return cfg, nil
}

func (m *ConfigManager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Subscribe returns a channel that receives every committed reload.
func (m *ConfigManager) Subscribe(buffer int) chan *Config {
	ch := make(chan *Config, max(buffer, 1))
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

// Unsubscribe detaches and closes ch. Unknown channels are ignored.
func (m *ConfigManager) Unsubscribe(ch chan *Config) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	kept := m.subs[:0]
	for _, s := range m.subs {
		if s == ch {
			close(ch)
			continue
		}
		kept = append(kept, s)
	}
	clear(m.subs[len(kept):])
	m.subs = kept
}

// publish replaces whatever a slow subscriber has not read yet, so the
// newest config always lands.
func (m *ConfigManager) publish(cfg *Config) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		offerLatest(ch, cfg)
	}
}

// offerLatest needs the caller to be the only sender on ch.
func offerLatest(ch chan *Config, cfg *Config) {
	for {
		select {
		case ch <- cfg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// reload is the debounced body of Watch.
func (m *ConfigManager) reload(ctx context.Context) {
	cfg, err := m.Parse()
	if err != nil {
		m.log.Warn("config parse failed", logx.String("path", m.path), logx.Err(err))
		return
	}

	h := hashConfig(cfg)
	m.mu.RLock()
	same := h == m.lastHash
	m.mu.RUnlock()
	if same {
		m.log.Debug("config file touched without changes", logx.String("path", m.path))
		return
	}

	if err := m.check(ctx, cfg); err != nil {
		m.log.Warn("config rejected; keeping the running one", logx.String("path", m.path), logx.Err(err))
		return
	}
	m.Commit(cfg)
	m.publish(cfg)
	m.log.Debug("config published", logx.String("path", m.path), logx.String("hash", fmt.Sprintf("%x", h)))
}

func (m *ConfigManager) check(ctx context.Context, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if m.validator == nil {
		return nil
	}
	vctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.validator(vctx, cfg)
}

// errWatcherBroken asks Watch to build a fresh fsnotify watcher.
var errWatcherBroken = errors.New("config watcher broken")

// Watch reloads the config whenever its file changes until ctx is done.
// The directory is watched, not the file, so editors that replace the file
// on save keep working. A broken watcher is recreated after a jittered pause.
func (m *ConfigManager) Watch(ctx context.Context) error {
	d := newDebouncer(m.debounce, func() { m.reload(ctx) })
	defer d.stop()

	pause := 250 * time.Millisecond
	for {
		err := m.watchOnce(ctx, d)
		if ctx.Err() != nil {
			return nil
		}
		wait := pause + rand.N(pause/2+1)
		m.log.Warn("config watcher restarting", logx.Err(err), logx.Duration("backoff", wait))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		pause = min(pause*2, 5*time.Second)
	}
}

func (m *ConfigManager) watchOnce(ctx context.Context, d *debouncer) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir, name := filepath.Dir(m.path), filepath.Base(m.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	m.log.Debug("config watcher started", logx.String("dir", dir), logx.String("file", name))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return errWatcherBroken
			}
			if strings.EqualFold(filepath.Base(ev.Name), name) {
				d.trigger()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return errWatcherBroken
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were lost; the file may have changed.
				m.log.Warn("config watch overflow; forcing reload", logx.Err(err))
				d.trigger()
				continue
			}
			if err != nil {
				return err
			}
		}
	}
}

// debouncer runs fn once after calls to trigger stop arriving for delay.
type debouncer struct {
	delay time.Duration
	fn    func()

	mu sync.Mutex
	t  *time.Timer
}

func newDebouncer(delay time.Duration, fn func()) *debouncer {
	return &debouncer{delay: delay, fn: fn}
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t == nil {
		d.t = time.AfterFunc(d.delay, d.fn)
		return
	}
	d.t.Reset(d.delay)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t != nil {
		d.t.Stop()
	}
}
