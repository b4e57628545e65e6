package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"remindbot/internal/reminder"
	"remindbot/internal/task/scheduler"
	"remindbot/pkg/logx"
)

// Validate reports every problem in cfg at once.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		add("telegram.token: required (or set BOT_TOKEN)")
	}
	if !logx.ValidLevel(cfg.Logging.Level) {
		add("logging.level: unknown level %q", cfg.Logging.Level)
	}
	if !logx.ValidLevel(cfg.Logging.Telegram.MinLevel) {
		add("logging.telegram.min_level: unknown level %q", cfg.Logging.Telegram.MinLevel)
	}
	if cfg.Logging.Telegram.Enabled && cfg.Telegram.LogChatID == 0 {
		add("logging.telegram: telegram.log_chat_id is required")
	}

	paths := make([]string, 0, 16)
	fields := durationFields(cfg)
	for p := range fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if _, err := ParseDurationField(p, fields[p]); err != nil {
			errs = append(errs, err)
		}
	}

	if tz := cfg.Scheduler.Timezone; tz != "" && !reminder.ValidZone(tz) {
		add("scheduler.timezone: unknown zone %q", tz)
	}
	if r := strings.TrimSpace(cfg.Scheduler.Reconcile); r != "" && r != "off" {
		if _, err := scheduler.ParseSchedule(r); err != nil {
			add("scheduler.reconcile: %v", err)
		}
	}
	if tz := cfg.Reminders.DefaultTimezone; tz != "" && !reminder.ValidZone(tz) {
		add("reminders.default_timezone: unknown zone %q", tz)
	}
	for _, m := range cfg.Reminders.SnoozeChoices {
		if m <= 0 {
			add("reminders.snooze_choices: %d must be > 0", m)
		}
	}

	for name, n := range map[string]int{
		"task_engine.workers":      cfg.TaskEngine.Workers,
		"task_engine.queue_size":   cfg.TaskEngine.QueueSize,
		"notifier.workers":         cfg.Notifier.Workers,
		"notifier.queue_size":      cfg.Notifier.QueueSize,
		"notifier.rate_per_sec":    cfg.Notifier.RatePerSec,
		"reminders.upcoming_limit": cfg.Reminders.UpcomingLimit,
	} {
		if n < 0 {
			add("%s: must be >= 0", name)
		}
	}

	switch d := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)); d {
	case "", "memory", "file", "sqlite":
	case "postgres", "postgresql":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			add("storage.dsn: required for postgres (or set STORAGE_DSN)")
		}
	default:
		add("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}
	if cfg.AMQP.Enabled && strings.TrimSpace(cfg.AMQP.URL) == "" {
		add("amqp.url: required when amqp is enabled (or set AMQP_URL)")
	}
	return errors.Join(errs...)
}
