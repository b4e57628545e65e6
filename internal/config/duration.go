package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses a non-negative Go duration. Empty is zero. path
// names the field in errors ("notifier.retry_base").
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", path, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// Duration is ParseDurationField for values already checked by Validate;
// invalid input yields def, as does zero.
func Duration(raw string, def time.Duration) time.Duration {
	d, err := ParseDurationField("", raw)
	if err != nil || d == 0 {
		return def
	}
	return d
}

// durationFields lists every duration in cfg with its config path.
func durationFields(cfg *Config) map[string]string {
	return map[string]string{
		"telegram.poll_timeout":       cfg.Telegram.PollTimeout,
		"scheduler.fire_timeout":      cfg.Scheduler.FireTimeout,
		"task_engine.default_timeout": cfg.TaskEngine.DefaultTimeout,
		"task_engine.max_queue_delay": cfg.TaskEngine.MaxQueueDelay,
		"notifier.retry_base":         cfg.Notifier.RetryBase,
		"notifier.retry_max_delay":    cfg.Notifier.RetryMaxDelay,
		"notifier.send_timeout":       cfg.Notifier.SendTimeout,
		"storage.busy_timeout":        cfg.Storage.BusyTimeout,
		"http.request_timeout":        cfg.HTTP.RequestTimeout,
		"amqp.publish_timeout":        cfg.AMQP.PublishTimeout,
	}
}
