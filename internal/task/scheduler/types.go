package scheduler

import (
	"context"
	"sync"
	"time"

	"remindbot/internal/eventbus"
	"remindbot/internal/task/engine"
	"remindbot/pkg/logx"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// Enabled gates the cron side. Reminder timers always run.
	Enabled  bool
	Timezone string // IANA TZ for cron specs, e.g. "Asia/Jakarta"

	// FireTimeout bounds one reminder fire when run on the engine.
	FireTimeout time.Duration
}

// FireFunc handles an expired reminder timer.
type FireFunc func(ctx context.Context, id int64) error

type Option func(*Service)

// WithClock replaces time.Now for delay computation.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

type scheduleDef struct {
	name          string
	spec          string // cron spec or @every
	timeout       time.Duration
	job           func(ctx context.Context) error
	entryID       cron.EntryID
	startupSpread time.Duration
	opt           engine.TaskOptions
	state         *engine.RunState
}

type armedTimer struct {
	id     int64
	chatID int64
	at     time.Time
	ver    uint64
	timer  *time.Timer // nil while the scheduler is stopped
}

type Service struct {
	mu sync.Mutex

	log    logx.Logger
	cfg    Config
	loc    *time.Location
	bus    eventbus.Bus
	engine *engine.Service
	now    func() time.Time

	parser  cron.Parser
	c       *cron.Cron
	defs    []scheduleDef
	running bool

	enqMu       sync.Mutex
	lastEnqWarn map[string]time.Time

	tmu     sync.Mutex
	timers  map[string]*armedTimer
	firing  map[int64]uint64 // expired, fire not finished; value is the timer version
	verSeq  uint64
	stopped bool
	fire    FireFunc
}

type ScheduleInfo struct {
	Name    string        `json:"name"`
	Spec    string        `json:"spec"`
	Timeout time.Duration `json:"timeout"`
	Next    time.Time     `json:"next"`
	Prev    time.Time     `json:"prev"`
}

type TimerInfo struct {
	Name   string    `json:"name"`
	ChatID int64     `json:"chat_id"`
	At     time.Time `json:"at"`
}

type Snapshot struct {
	Enabled   bool            `json:"enabled"`
	Timezone  string          `json:"timezone"`
	Armed     int             `json:"armed"`
	Timers    []TimerInfo     `json:"timers"`
	Schedules []ScheduleInfo  `json:"schedules"`
	Engine    engine.Snapshot `json:"engine"`
}
