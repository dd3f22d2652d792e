package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gotify2telegram/internal/bridge"
	"gotify2telegram/internal/config"
	"gotify2telegram/internal/delivery"
	"gotify2telegram/internal/eventbus"
	"gotify2telegram/internal/gotify"
	"gotify2telegram/internal/observability/admin"
	"gotify2telegram/internal/runtime/supervisor"
	"gotify2telegram/internal/storage"
	"gotify2telegram/internal/transport/telegram"
	logx "gotify2telegram/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	ident    *telegram.Identifier
	delivery *delivery.Service
	bridge   *bridge.Bridge
	names    *gotify.AppNames
	listener *gotify.Listener
	admin    *admin.Server

	reconnectMin time.Duration
	reconnectMax time.Duration
}

// New loads .env and the config file and builds every component. A config
// problem is returned wrapping config.ErrConfig.
func New(cfgPath string) (*App, error) {
	if err := config.LoadEnv(filepath.Join(filepath.Dir(cfgPath), ".env"), ".env"); err != nil {
		return nil, err
	}

	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, logSvc.Logger())
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("dead-letter journal enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	tg, err := telegram.NewClient(telegram.Config{
		Token:    cfg.Telegram.BotToken,
		APIURL:   cfg.Telegram.APIURL,
		ProxyURL: cfg.Telegram.Proxy.URL,
	})
	if err != nil {
		return nil, err
	}
	dcfg, err := mapDeliveryConfig(cfg)
	if err != nil {
		return nil, err
	}
	ident := telegram.NewIdentifier(tg, cfg.Telegram.Proxy.URL, dcfg.ProbeTimeout)
	deliv := delivery.New(tg, ident, dcfg,
		delivery.WithLogger(logSvc.Logger()),
		delivery.WithBus(bus),
		delivery.WithCodeExtractor(bridge.ExtractCode),
	)

	gc, err := gotify.NewClient(gotify.Config{ServerURL: cfg.Gotify.ServerURL, ClientToken: cfg.Gotify.ClientToken})
	if err != nil {
		return nil, err
	}
	gotifyLog := logSvc.Logger().With(logx.String("comp", "gotify"))
	names := gotify.NewAppNames(gc, gotifyLog)
	lo, hi, err := cfg.Gotify.Reconnect()
	if err != nil {
		return nil, err
	}

	br, err := bridge.New(deliv, names, mapBridgeRules(cfg), logSvc.Logger().With(logx.String("comp", "bridge")))
	if err != nil {
		return nil, err
	}

	var adm *admin.Server
	if ac := cfg.Admin; ac != nil && ac.Enabled {
		adm = admin.New(admin.Config{
			Addr:          ac.Addr,
			Token:         ac.Token,
			AllowInsecure: ac.AllowInsecure,
			Pprof:         ac.Pprof,
		}, deliv, store, logSvc.Logger().With(logx.String("comp", "admin")))
	}

	return &App{
		cfgPath:      cfgPath,
		cfgm:         cfgm,
		log:          log,
		logs:         logSvc,
		bus:          bus,
		store:        store,
		ident:        ident,
		delivery:     deliv,
		bridge:       br,
		names:        names,
		listener:     gotify.NewListener(gc, gotifyLog),
		admin:        adm,
		reconnectMin: lo,
		reconnectMax: hi,
	}, nil
}

// Delivery exposes the engine for status reporting.
func (a *App) Delivery() *delivery.Service { return a.delivery }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.logs.Logger().With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapDeliveryConfig(cfg); err != nil {
			return err
		}
		if _, _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		return mapBridgeRules(cfg).Validate()
	})

	a.startupProbe(a.sup.Context())

	a.sup.Go("delivery.probe", a.delivery.Prober().Run)

	a.sup.GoRestart("gotify.stream", func(c context.Context) error {
		return a.listener.Run(c, func(hc context.Context, m gotify.Message) {
			a.bridge.Handle(hc, m)
		})
	}, supervisor.WithRestartBackoff(a.reconnectMin, a.reconnectMax))

	if a.admin != nil {
		if err := a.admin.Check(); err != nil {
			a.log.Error("admin endpoint not started", logx.Err(err))
		} else {
			a.sup.GoRestart("admin.http", a.admin.Run, supervisor.WithRestartBackoff(500*time.Millisecond, 10*time.Second))
		}
	}

	if a.store != nil {
		events, unsub := a.bus.Subscribe(64)
		a.sup.Go0("deadletter.record", func(c context.Context) {
			defer unsub()
			recordDeadLetters(c, events, a.store, a.log)
		})
	}

	// Keep event logging at debug; sends happen for every notification.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", a.cfgm.Watch)

	a.log.Info("app started", logx.String("config", a.cfgPath))
	return nil
}

// startupProbe seeds the connectivity state before the first notification.
func (a *App) startupProbe(ctx context.Context) {
	me, err := a.ident.Identify(ctx)
	if err != nil {
		a.log.Warn("telegram connection test failed, messages will be buffered", logx.Err(err))
		a.delivery.MarkConnected(false, "startup probe: "+err.Error())
		return
	}
	a.log.Info("telegram connection OK", logx.String("bot", me.Username), logx.Int64("bot_id", me.ID))
	a.delivery.MarkConnected(true, "startup probe")
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	ch := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(ch.Changed) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	if err := a.logs.Apply(mapLogConfig(newCfg)); err != nil {
		a.log.Warn("log file unavailable", logx.Err(err))
	}
	a.names.Forget()
	a.delivery.SetMaxLength(newCfg.Message.MaxLength)
	if err := a.bridge.Apply(mapBridgeRules(newCfg)); err != nil {
		a.log.Warn("invalid filter rules; keeping previous", logx.Err(err))
	}
	if len(ch.RestartRequired) > 0 {
		a.log.Warn("config sections changed; restart required for them to take effect",
			logx.String("sections", strings.Join(ch.RestartRequired, ",")))
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(ch.Changed, ","))}, ch.Attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel first so background loops start unwinding immediately.
	a.sup.Cancel()

	// Each step is bounded so one component cannot stall the whole stop.
	step := func(name string, limit time.Duration, fn func(context.Context) error) {
		start := time.Now()
		if dl, ok := ctx.Deadline(); ok {
			limit = min(limit, max(time.Until(dl), 0))
		}
		stepCtx, cancel := context.WithTimeout(ctx, limit)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("supervisor", 5*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	if n := eventbus.Dropped(a.bus); n > 0 {
		a.log.Debug("events dropped by slow observers", logx.Int64("count", int64(n)))
	}
	if n := a.delivery.Pending(); n > 0 {
		a.log.Warn("buffered messages will be lost on exit", logx.Int("pending", n))
	}

	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
