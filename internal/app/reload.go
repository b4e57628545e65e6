package app

import (
	"context"
	"strings"

	"remindbot/internal/config"
	"remindbot/pkg/logx"
)

// startConfigReload watches the config file and fans accepted updates out
// to the running components.
func (a *App) startConfigReload() {
	updates := a.cfgm.Subscribe(1)
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go("config.apply", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(updates)
		for {
			select {
			case <-c.Done():
				return nil
			case cfg, ok := <-updates:
				if !ok {
					return nil
				}
				a.applyConfig(c, cfg)
			}
		}
	})
}

// applyConfig hot-applies cfg. Sections that need a restart are logged and
// left untouched.
func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	a.sd.Reloading()
	defer a.sd.Ready()

	ch := config.Diff(a.cfg, cfg)
	if ch.Empty() {
		return
	}
	if len(ch.RestartRequired) > 0 {
		a.log.Warn("config change needs a restart",
			logx.String("sections", strings.Join(ch.RestartRequired, ",")))
	}

	if a.logs != nil {
		a.logs.Apply(logConfig(cfg))
	}
	a.engine.Apply(ctx, engineConfig(cfg))
	a.sched.Apply(schedulerConfig(cfg))

	nc := notifierConfig(cfg)
	wasOn := a.notif.Enabled()
	a.notif.Apply(nc)
	switch {
	case nc.Enabled && !wasOn:
		a.notif.Start(a.svcCtx)
	case !nc.Enabled && wasOn:
		a.notif.Stop(ctx)
	}

	a.router.Apply(routerConfig(cfg))
	a.reminders.Apply(reminderConfig(cfg))
	if err := a.setReconcile(cfg); err != nil {
		a.log.Warn("reconcile job not rescheduled", logx.Err(err))
	}

	a.cfg = cfg
	a.log.Info("config applied", logx.String("sections", strings.Join(ch.Sections, ",")))
}
