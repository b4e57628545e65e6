// Package app wires the reminder engine, its transports and the ambient
// services, and owns startup and shutdown ordering.
package app

import (
	"context"
	"fmt"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/eventbus"
	"remindbot/internal/httpapi"
	"remindbot/internal/notifier"
	"remindbot/internal/notifier/amqpsink"
	"remindbot/internal/reminder"
	rtsup "remindbot/internal/runtime/supervisor"
	"remindbot/internal/storage"
	"remindbot/internal/task/engine"
	"remindbot/internal/task/scheduler"
	kit "remindbot/internal/transport"
	"remindbot/internal/transport/telegram/adapter"
	"remindbot/internal/transport/telegram/router"
	"remindbot/pkg/logx"
	"remindbot/pkg/systemd"
)

type App struct {
	cfgm *config.ConfigManager
	cfg  *config.Config

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	sd   *systemd.Notifier
	sup  *rtsup.Supervisor

	store     storage.Store
	engine    *engine.Service
	sched     *scheduler.Service
	notif     *notifier.Service
	reminders *reminder.Service
	recoverer *reminder.Recoverer
	amqp      *amqpsink.Publisher

	adapter kit.Adapter
	router  *router.Router
	http    *httpapi.Server
	updates chan kit.Update
	svcCtx  context.Context
}

// New loads the config at cfgPath and builds the telegram-backed app.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load(ctx)
	if err != nil {
		return nil, err
	}

	logCfg := logConfig(cfg)
	logs, log := logx.New(logCfg, nil)
	ad, err := adapter.New(adapterConfig(cfg), log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}
	logs.SetSender(ad.SendLog)

	a, err := build(cfg, ad, logs, log)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}
	a.cfgm = cfgm
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	return a, nil
}

// build assembles every component around an existing transport adapter.
func build(cfg *config.Config, ad kit.Adapter, logs *logx.Service, log logx.Logger) (*App, error) {
	comp := func(name string) logx.Logger { return log.With(logx.String("comp", name)) }
	bus := eventbus.New()

	store, err := storage.Open(storageConfig(cfg), comp("storage"))
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	eng := engine.New(engineConfig(cfg), comp("taskengine"), bus)
	sched := scheduler.New(schedulerConfig(cfg), eng, comp("scheduler"), bus)
	notif := notifier.New(notifierConfig(cfg), ad, comp("notifier"), bus)
	svc := reminder.New(reminderConfig(cfg), store, sched, comp("reminders"), reminder.WithBus(bus))
	sched.SetFireHandler(svc.Fire)

	rt := router.New(routerConfig(cfg), ad, svc, notif, comp("router"))
	sinks := reminder.MultiDispatcher{rt}
	var pub *amqpsink.Publisher
	if ac := amqpConfig(cfg); ac.Enabled {
		if pub, err = amqpsink.New(ac, comp("amqp")); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("amqp: %w", err)
		}
		sinks = append(sinks, pub)
	}
	svc.SetDispatcher(sinks)

	a := &App{
		cfg:       cfg,
		log:       comp("app"),
		logs:      logs,
		bus:       bus,
		sd:        systemd.New(comp("systemd")),
		store:     store,
		engine:    eng,
		sched:     sched,
		notif:     notif,
		reminders: svc,
		recoverer: reminder.NewRecoverer(svc),
		amqp:      pub,
		adapter:   ad,
		router:    rt,
		updates:   make(chan kit.Update, 256),
	}
	if hc := httpConfig(cfg); hc.Enabled {
		a.http = httpapi.New(hc, svc, comp("http"))
	}
	return a, nil
}

// Done is closed when the app is stopping or a supervised loop failed.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start brings components up in dependency order. Timers are recovered
// before any transport accepts requests.
func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	// Workers are stopped explicitly in Stop so queued fires and sends can
	// drain after the run context is gone.
	a.svcCtx = context.WithoutCancel(ctx)

	a.engine.Start(a.svcCtx)
	a.notif.Start(a.svcCtx)
	a.sched.Start(a.svcCtx)

	rep, err := a.recoverer.Recover(ctx)
	if err != nil {
		return err
	}
	if err := a.setReconcile(a.cfg); err != nil {
		a.log.Warn("reconcile job not scheduled", logx.Err(err))
	}

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	a.sup.Go("router", func(c context.Context) error { return a.router.Run(c, a.updates) })

	if a.http != nil {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http: %w", err)
		}
	}

	a.startEventLog()
	if a.cfgm != nil {
		a.startConfigReload()
	}
	a.sup.Go("systemd.watchdog", func(c context.Context) error {
		return a.sd.Watchdog(c, func() bool { return a.sup.Err() == nil })
	})

	a.sd.Ready()
	a.sd.Status(fmt.Sprintf("%d reminders armed", rep.Armed))
	a.log.Info("app started", logx.Int("armed", rep.Armed))
	return nil
}

func (a *App) setReconcile(cfg *config.Config) error {
	spec := reconcileSpec(cfg)
	if spec == "" {
		a.sched.Remove(reconcileJob)
		return nil
	}
	return a.sched.AddSchedule(reconcileJob, spec, 2*time.Minute, func(ctx context.Context) error {
		rep, err := a.recoverer.Reconcile(ctx)
		if err == nil && rep.Armed > 0 {
			a.log.Info("reconcile armed reminders", logx.Int("armed", rep.Armed))
		}
		return err
	})
}

// startEventLog mirrors bus events to the debug log.
func (a *App) startEventLog() {
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
			}
		}
	})
}

// Stop shuts down inbound transports first, then the fire path, then the
// outbound queue and storage.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sd.Stopping()

	a.step(ctx, "http", 3*time.Second, func(c context.Context) error {
		if a.http == nil {
			return nil
		}
		return a.http.Stop(c)
	})
	a.step(ctx, "adapter", 3*time.Second, a.adapter.Stop)
	a.step(ctx, "supervisor", 3*time.Second, a.sup.Stop)
	a.step(ctx, "scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	a.step(ctx, "taskengine", 5*time.Second, func(c context.Context) error { a.engine.Stop(c); return nil })
	a.step(ctx, "notifier", 5*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	a.step(ctx, "amqp", time.Second, func(context.Context) error {
		if a.amqp == nil {
			return nil
		}
		return a.amqp.Close()
	})
	a.step(ctx, "storage", 2*time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	if a.logs != nil {
		return a.logs.Close()
	}
	return nil
}
