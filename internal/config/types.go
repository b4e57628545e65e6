package config

// Config is the on-disk configuration (JSON or YAML). Durations are Go
// duration strings ("500ms", "10s", "1m"). Secrets may be left empty and
// supplied through the environment instead (see Env).
type Config struct {
	Telegram   TelegramConfig   `json:"telegram"`
	Logging    LoggingConfig    `json:"logging"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	TaskEngine TaskEngineConfig `json:"task_engine"`
	Notifier   NotifierConfig   `json:"notifier"`
	Storage    StorageConfig    `json:"storage"`
	Reminders  RemindersConfig  `json:"reminders"`
	HTTP       HTTPConfig       `json:"http"`
	AMQP       AMQPConfig       `json:"amqp"`
}

type TelegramConfig struct {
	Token string `json:"token,omitempty"`
	// WebAppURL is the reminder mini app. The app keyboard is only shown
	// when it is set.
	WebAppURL   string `json:"web_app_url,omitempty"`
	LogChatID   int64  `json:"log_chat_id,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// SchedulerConfig controls timers and cron jobs.
//
// Defaults:
//   - enabled: true
//   - timezone: UTC (cron jobs only; reminder timers are absolute instants)
//   - fire_timeout: "30s"
//   - reconcile: "@every 10m" ("off" disables the job)
type SchedulerConfig struct {
	Enabled     *bool  `json:"enabled,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	FireTimeout string `json:"fire_timeout,omitempty"`
	Reconcile   string `json:"reconcile,omitempty"`
}

// TaskEngineConfig controls the worker pool that runs timer fires and cron
// jobs. Enabled defaults to true.
type TaskEngineConfig struct {
	Enabled        *bool  `json:"enabled,omitempty"`
	Workers        int    `json:"workers,omitempty"`
	QueueSize      int    `json:"queue_size,omitempty"`
	DefaultTimeout string `json:"default_timeout,omitempty"`
	MaxQueueDelay  string `json:"max_queue_delay,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`
	RetryMax       int    `json:"retry_max,omitempty"`
}

// NotifierConfig controls outgoing chat delivery. Enabled defaults to true.
type NotifierConfig struct {
	Enabled       *bool  `json:"enabled,omitempty"`
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
	SendTimeout   string `json:"send_timeout,omitempty"`
}

// StorageConfig selects the reminder store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./remindbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type RemindersConfig struct {
	// DefaultTimezone is used for /remind and for mini app payloads
	// without a zone.
	DefaultTimezone string `json:"default_timezone,omitempty"`
	UpcomingLimit   int    `json:"upcoming_limit,omitempty"`
	SnoozeChoices   []int  `json:"snooze_choices,omitempty"`
}

type HTTPConfig struct {
	Enabled        bool   `json:"enabled"`
	Addr           string `json:"addr,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
	Pprof          bool   `json:"pprof,omitempty"`
}

// AMQPConfig enables publishing fired reminders to a RabbitMQ exchange.
type AMQPConfig struct {
	Enabled        bool   `json:"enabled"`
	URL            string `json:"url,omitempty"`
	Exchange       string `json:"exchange,omitempty"`
	ExchangeType   string `json:"exchange_type,omitempty"`
	RoutingPrefix  string `json:"routing_prefix,omitempty"`
	PublishTimeout string `json:"publish_timeout,omitempty"`
}

// On reports a tri-state flag, defaulting to true when unset.
func On(b *bool) bool { return b == nil || *b }
