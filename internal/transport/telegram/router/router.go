package router

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"remindbot/internal/reminder"
	rtsup "remindbot/internal/runtime/supervisor"
	kit "remindbot/internal/transport"
	"remindbot/pkg/logx"
)

// Reminders is the slice of reminder.Service the router drives.
type Reminders interface {
	Create(ctx context.Context, req reminder.CreateRequest) (reminder.Reminder, error)
	Get(ctx context.Context, id int64) (reminder.Reminder, error)
	Snooze(ctx context.Context, id int64, minutes int) (reminder.Reminder, error)
	Cancel(ctx context.Context, id int64) (reminder.Reminder, error)
	Upcoming(ctx context.Context, chatID int64, limit int) ([]reminder.Reminder, error)
}

// Notifier queues outgoing notifications.
type Notifier interface {
	Notify(ctx context.Context, n kit.Notification) error
}

type Config struct {
	WebAppURL       string
	DefaultTimezone string
	SnoozeChoices   []int
	UpcomingLimit   int
	HandlerTimeout  time.Duration
	Workers         int
	QueueSize       int
}

func (c Config) withDefaults() Config {
	if len(c.SnoozeChoices) == 0 {
		c.SnoozeChoices = []int{5, 15, 60}
	}
	if c.UpcomingLimit <= 0 {
		c.UpcomingLimit = 10
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 15 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 128
	}
	return c
}

// Request is one update travelling through the middleware chain.
type Request struct {
	ID     string
	Update kit.Update
	Logger logx.Logger
}

type Router struct {
	mu  sync.RWMutex
	cfg Config

	adapter kit.Adapter
	rem     Reminders
	notif   Notifier
	log     logx.Logger
	handler HandlerFunc
}

var _ reminder.Dispatcher = (*Router)(nil)

func New(cfg Config, adapter kit.Adapter, rem Reminders, notif Notifier, log logx.Logger) *Router {
	r := &Router{
		cfg:     cfg.withDefaults(),
		adapter: adapter,
		rem:     rem,
		notif:   notif,
		log:     log,
	}
	r.handler = Chain(r.handle, MWPanicRecover(), MWRequestLog())
	return r
}

func (r *Router) Apply(cfg Config) {
	r.mu.Lock()
	r.cfg = cfg.withDefaults()
	r.mu.Unlock()
}

func (r *Router) config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.cfg
	c.SnoozeChoices = slices.Clone(c.SnoozeChoices)
	return c
}

type job struct {
	req *Request
}

// Run publishes the command menu, then dispatches updates from in to a
// worker pool until ctx is cancelled or in is closed.
func (r *Router) Run(ctx context.Context, in <-chan kit.Update) error {
	cfg := r.config()
	if mu, ok := r.adapter.(kit.CommandMenuUpdater); ok {
		if err := mu.UpdateMenuCommands(ctx, Commands()); err != nil {
			r.log.Warn("menu update failed", logx.Err(err))
		}
	}

	sup := rtsup.New(ctx, rtsup.WithLogger(r.log))
	jobs := make(chan job, cfg.QueueSize)
	for i := range cfg.Workers {
		sup.GoRestart(fmt.Sprintf("router.worker.%d", i), func(ctx context.Context) error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case j := <-jobs:
					r.exec(ctx, j.req)
				}
			}
		})
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = sup.Stop(sctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-in:
			if !ok {
				return nil
			}
			req := r.newRequest(u)
			select {
			case jobs <- job{req: req}:
			default:
				req.Logger.Warn("router queue full")
				r.replyBusy(ctx, u)
			}
		}
	}
}

func (r *Router) newRequest(u kit.Update) *Request {
	id := uuid.NewString()[:8]
	fields := []logx.Field{logx.String("req", id)}
	switch {
	case u.Message != nil:
		fields = append(fields, logx.Int64("chat", u.Message.ChatID))
	case u.Callback != nil:
		fields = append(fields, logx.Int64("chat", u.Callback.ChatID))
	}
	return &Request{ID: id, Update: u, Logger: r.log.With(fields...)}
}

func (r *Router) exec(ctx context.Context, req *Request) {
	h := Chain(r.handler, MWTimeout(r.config().HandlerTimeout))
	_ = h(ctx, req)
}

func (r *Router) handle(ctx context.Context, req *Request) error {
	u := req.Update
	switch u.Kind {
	case kit.UpdateMessage:
		if u.Message == nil {
			return nil
		}
		return r.routeMessage(ctx, req, u.Message)
	case kit.UpdateCallback:
		if u.Callback == nil {
			return nil
		}
		return r.routeCallback(ctx, req, u.Callback)
	case kit.UpdateWebApp:
		if u.Message == nil {
			return nil
		}
		return r.routeWebApp(ctx, req, u.Message)
	}
	return nil
}

func (r *Router) replyBusy(ctx context.Context, u kit.Update) {
	const text = "Busy right now, please try again."
	switch {
	case u.Callback != nil:
		_ = r.adapter.AnswerCallback(ctx, u.Callback.ID, text)
	case u.Message != nil:
		_, _ = r.adapter.SendText(ctx, kit.ChatTarget{ChatID: u.Message.ChatID, ThreadID: u.Message.ThreadID}, text, nil)
	}
}
