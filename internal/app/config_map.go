package app

import (
	"strings"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/httpapi"
	"remindbot/internal/notifier"
	"remindbot/internal/notifier/amqpsink"
	"remindbot/internal/reminder"
	"remindbot/internal/storage"
	"remindbot/internal/task/engine"
	"remindbot/internal/task/scheduler"
	"remindbot/internal/transport/telegram/adapter"
	"remindbot/internal/transport/telegram/router"
	"remindbot/pkg/logx"
)

// Config values are validated by config.Validate before they reach these
// mappers, so unparsable durations cannot occur here.

const (
	reconcileJob     = "reminders.reconcile"
	defaultReconcile = "@every 10m"
)

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     cfg.Telegram.LogChatID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func adapterConfig(cfg *config.Config) adapter.Config {
	return adapter.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: config.Duration(cfg.Telegram.PollTimeout, 10*time.Second),
	}
}

func engineConfig(cfg *config.Config) engine.Config {
	te := cfg.TaskEngine
	return engine.Config{
		Enabled:        config.On(te.Enabled),
		Workers:        te.Workers,
		QueueSize:      te.QueueSize,
		DefaultTimeout: config.Duration(te.DefaultTimeout, 0),
		MaxQueueDelay:  config.Duration(te.MaxQueueDelay, 0),
		HistorySize:    te.HistorySize,
		RetryMax:       te.RetryMax,
	}
}

func schedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Enabled:     config.On(cfg.Scheduler.Enabled),
		Timezone:    cfg.Scheduler.Timezone,
		FireTimeout: config.Duration(cfg.Scheduler.FireTimeout, 30*time.Second),
	}
}

// reconcileSpec returns the reconcile schedule, or "" when disabled.
func reconcileSpec(cfg *config.Config) string {
	s := strings.TrimSpace(cfg.Scheduler.Reconcile)
	switch {
	case s == "":
		return defaultReconcile
	case strings.EqualFold(s, "off"):
		return ""
	}
	return s
}

func notifierConfig(cfg *config.Config) notifier.Config {
	n := cfg.Notifier
	return notifier.Config{
		Enabled:       config.On(n.Enabled),
		Workers:       n.Workers,
		QueueSize:     n.QueueSize,
		RatePerSec:    n.RatePerSec,
		RetryMax:      n.RetryMax,
		RetryBase:     config.Duration(n.RetryBase, 0),
		RetryMaxDelay: config.Duration(n.RetryMaxDelay, 0),
		SendTimeout:   config.Duration(n.SendTimeout, 0),
	}
}

func storageConfig(cfg *config.Config) storage.Config {
	s := cfg.Storage
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(s.Driver)),
		Path:        strings.TrimSpace(s.Path),
		DSN:         strings.TrimSpace(s.DSN),
		BusyTimeout: config.Duration(s.BusyTimeout, 0),
	}
}

func reminderConfig(cfg *config.Config) reminder.Config {
	return reminder.Config{UpcomingLimit: cfg.Reminders.UpcomingLimit}
}

func routerConfig(cfg *config.Config) router.Config {
	return router.Config{
		WebAppURL:       strings.TrimSpace(cfg.Telegram.WebAppURL),
		DefaultTimezone: cfg.Reminders.DefaultTimezone,
		SnoozeChoices:   cfg.Reminders.SnoozeChoices,
		UpcomingLimit:   cfg.Reminders.UpcomingLimit,
	}
}

func httpConfig(cfg *config.Config) httpapi.Config {
	return httpapi.Config{
		Enabled:        cfg.HTTP.Enabled,
		Addr:           cfg.HTTP.Addr,
		RequestTimeout: config.Duration(cfg.HTTP.RequestTimeout, 0),
		Pprof:          cfg.HTTP.Pprof,
	}
}

func amqpConfig(cfg *config.Config) amqpsink.Config {
	a := cfg.AMQP
	return amqpsink.Config{
		Enabled:        a.Enabled,
		URL:            a.URL,
		Exchange:       a.Exchange,
		ExchangeType:   a.ExchangeType,
		RoutingPrefix:  a.RoutingPrefix,
		PublishTimeout: config.Duration(a.PublishTimeout, 0),
	}
}
