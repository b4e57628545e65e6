package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"remindbot/internal/eventbus"
	"remindbot/pkg/logx"
)

// Event types published on the bus. Data is a LifecycleEvent.
const (
	EventCreated   = "reminder.created"
	EventFired     = "reminder.fired"
	EventSnoozed   = "reminder.snoozed"
	EventCancelled = "reminder.cancelled"
	EventDone      = "reminder.done"
	EventAdvanced  = "reminder.advanced"
)

const (
	defaultUpcomingLimit = 10
	maxSnoozeMinutes     = 366 * 24 * 60
	maxLeadMinutes       = 366 * 24 * 60
)

// ErrLeadTooEarly is returned by Create when the event is in the future but
// the lead time puts the notification in the past.
var ErrLeadTooEarly = fmt.Errorf("%w: lead time too early", ErrTimeInPast)

// Store is the persistence contract the controller depends on.
type Store interface {
	Insert(ctx context.Context, r Reminder) (int64, error)
	Get(ctx context.Context, id int64) (Reminder, error)
	SetStatus(ctx context.Context, id int64, st Status) error
	SetEventInstant(ctx context.Context, id int64, at time.Time) error
	ListUpcoming(ctx context.Context, chatID int64, from time.Time, limit int) ([]Reminder, error)
	ListPendingFuture(ctx context.Context, from time.Time) ([]Reminder, error)
}

// Timers arms one-shot fire timers. Arm returns false when at is not in the
// future; nothing is armed in that case.
type Timers interface {
	Arm(id, chatID int64, at time.Time) bool
	Disarm(id int64) bool
	Rearm(id, chatID int64, at time.Time) bool
	Armed(id int64) bool
}

// FireTracker is implemented by Timers that can report an expired timer
// whose fire has not finished. Reconcile leaves such reminders alone.
type FireTracker interface {
	Firing(id int64) bool
}

type Config struct {
	UpcomingLimit int
}

type LifecycleEvent struct {
	ID      int64     `json:"id"`
	ChatID  int64     `json:"chat_id"`
	EventAt time.Time `json:"event_at"`
	Status  Status    `json:"status"`
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithBus(bus eventbus.Bus) Option { return func(s *Service) { s.bus = bus } }

func WithDispatcher(d Dispatcher) Option { return func(s *Service) { s.dispatcher = d } }

// Service is the reminder lifecycle controller. Fire, Snooze and Cancel on
// the same id are mutually exclusive; different ids proceed in parallel.
type Service struct {
	store  Store
	timers Timers
	log    logx.Logger
	bus    eventbus.Bus
	now    func() time.Time
	locks  *keyedMutex

	mu         sync.RWMutex
	cfg        Config
	dispatcher Dispatcher
}

func New(cfg Config, store Store, timers Timers, log logx.Logger, opts ...Option) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		store:  store,
		timers: timers,
		log:    log,
		now:    time.Now,
		locks:  newKeyedMutex(),
		cfg:    cfg,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetDispatcher installs the notification sink once transports exist.
func (s *Service) SetDispatcher(d Dispatcher) {
	s.mu.Lock()
	s.dispatcher = d
	s.mu.Unlock()
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// CreateRequest is the client-facing creation input.
type CreateRequest struct {
	ChatID      int64  `json:"chat_id"`
	Title       string `json:"title"`
	DateTime    string `json:"datetime"`
	Timezone    string `json:"timezone"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	Repeat      string `json:"repeat"`
	LeadMinutes int    `json:"remind_before_minutes"`
}

// Create validates req, persists a pending reminder and arms its timer at
// EventAt minus the lead time.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Reminder, error) {
	if req.ChatID == 0 {
		return Reminder{}, fmt.Errorf("%w: chat id required", ErrInvalidRequest)
	}
	if req.LeadMinutes < 0 {
		return Reminder{}, fmt.Errorf("%w: negative lead time", ErrInvalidRequest)
	}
	if req.LeadMinutes > maxLeadMinutes {
		return Reminder{}, fmt.Errorf("%w: lead time over %d minutes", ErrInvalidRequest, maxLeadMinutes)
	}
	norm, err := Normalize(req.DateTime, req.Timezone)
	if err != nil {
		return Reminder{}, err
	}
	tz := strings.TrimSpace(req.Timezone)
	if norm.ZoneFallback {
		s.log.Warn("timezone unresolvable; using UTC", logx.Int64("chat_id", req.ChatID), logx.String("tz", tz))
		tz = ""
	}
	rec, err := recurrenceFromRequest(req.Repeat)
	if err != nil {
		return Reminder{}, err
	}
	prio, err := priorityFromRequest(req.Priority)
	if err != nil {
		return Reminder{}, err
	}

	now := s.now()
	notifyAt := norm.Instant.Add(-time.Duration(req.LeadMinutes) * time.Minute)
	if !notifyAt.After(now) {
		if req.LeadMinutes > 0 && norm.Instant.After(now) {
			return Reminder{}, ErrLeadTooEarly
		}
		return Reminder{}, ErrTimeInPast
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTitle
	}
	r := Reminder{
		ChatID:     req.ChatID,
		Title:      title,
		EventAt:    norm.Instant,
		Timezone:   tz,
		Priority:   prio,
		Category:   strings.TrimSpace(req.Category),
		Recurrence: rec,
		Status:     StatusPending,
	}
	id, err := s.store.Insert(ctx, r)
	if err != nil {
		return Reminder{}, fmt.Errorf("create reminder: %w", err)
	}
	r.ID = id

	unlock := s.locks.Lock(id)
	defer unlock()
	// A cancel may have landed between Insert and Lock.
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return Reminder{}, fmt.Errorf("create reminder %d: %w", id, err)
	}
	if cur.Status == StatusPending && !s.timers.Arm(id, r.ChatID, notifyAt) {
		s.log.Warn("notify instant passed before arming", logx.Int64("id", id), logx.Time("notify_at", notifyAt))
	}
	s.log.Info("reminder created",
		logx.Int64("id", id),
		logx.Int64("chat_id", r.ChatID),
		logx.Time("event_at", r.EventAt),
		logx.Time("notify_at", notifyAt),
		logx.String("recurrence", string(r.Recurrence)),
		logx.String("shape", norm.Shape.String()),
	)
	s.publish(EventCreated, cur)
	return cur, nil
}

// Fire handles a timer expiry. It re-reads the record and does nothing when
// the reminder is gone, no longer pending, or has been re-armed since.
// Dispatch failures are logged and never block the state transition.
func (s *Service) Fire(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	r, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.log.Debug("fire for missing reminder", logx.Int64("id", id))
		return nil
	}
	if err != nil {
		return fmt.Errorf("fire %d: %w", id, err)
	}
	if r.Status != StatusPending {
		s.log.Debug("fire for finalized reminder", logx.Int64("id", id), logx.String("status", string(r.Status)))
		return nil
	}
	if s.timers.Armed(id) {
		// Snoozed (or reconciled) after this timer expired; the newer timer owns it.
		s.log.Debug("stale fire ignored", logx.Int64("id", id))
		return nil
	}

	s.dispatch(ctx, r)
	s.publish(EventFired, r)

	period := r.Recurrence.Period()
	if period == 0 {
		if err := s.store.SetStatus(ctx, id, StatusDone); err != nil {
			return fmt.Errorf("fire %d: mark done: %w", id, err)
		}
		s.timers.Disarm(id)
		r.Status = StatusDone
		s.publish(EventDone, r)
		return nil
	}

	next := r.EventAt.Add(period)
	if err := s.store.SetEventInstant(ctx, id, next); err != nil {
		return fmt.Errorf("fire %d: advance: %w", id, err)
	}
	r.EventAt = next
	if !s.timers.Rearm(id, r.ChatID, next) {
		s.log.Debug("next occurrence already past; not re-armed", logx.Int64("id", id), logx.Time("next", next))
	}
	s.publish(EventAdvanced, r)
	return nil
}

func (s *Service) dispatch(ctx context.Context, r Reminder) {
	s.mu.RLock()
	d := s.dispatcher
	s.mu.RUnlock()
	if d == nil {
		s.log.Warn("no dispatcher; reminder not delivered", logx.Int64("id", r.ID))
		return
	}
	kinds := []NoticeKind{NoticeReminder}
	if r.Priority == PriorityUrgent {
		kinds = append(kinds, NoticeEmphasis)
	}
	for _, k := range kinds {
		if err := d.Dispatch(ctx, Notice{Kind: k, Reminder: r}); err != nil {
			s.log.Warn("dispatch failed", logx.Int64("id", r.ID), logx.String("kind", string(k)), logx.Err(err))
		}
	}
}

// Snooze moves a pending reminder to now+minutes and re-arms it.
func (s *Service) Snooze(ctx context.Context, id int64, minutes int) (Reminder, error) {
	if minutes <= 0 || minutes > maxSnoozeMinutes {
		return Reminder{}, fmt.Errorf("%w: snooze minutes out of range", ErrInvalidRequest)
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Reminder{}, fmt.Errorf("snooze %d: %w", id, err)
	}
	if r.Status != StatusPending {
		return r, fmt.Errorf("snooze %d: %w", id, ErrAlreadyFinalized)
	}

	s.timers.Disarm(id)
	at := s.now().UTC().Add(time.Duration(minutes) * time.Minute)
	if err := s.store.SetEventInstant(ctx, id, at); err != nil {
		s.timers.Arm(id, r.ChatID, r.EventAt)
		return Reminder{}, fmt.Errorf("snooze %d: %w", id, err)
	}
	r.EventAt = at
	s.timers.Rearm(id, r.ChatID, at)
	s.log.Info("reminder snoozed", logx.Int64("id", id), logx.Int("minutes", minutes), logx.Time("event_at", at))
	s.publish(EventSnoozed, r)
	return r, nil
}

// Cancel disarms the reminder and marks it cancelled. Cancelling a finalized
// reminder succeeds and returns it unchanged.
func (s *Service) Cancel(ctx context.Context, id int64) (Reminder, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Reminder{}, fmt.Errorf("cancel %d: %w", id, err)
	}
	s.timers.Disarm(id)
	if r.Status.Terminal() {
		return r, nil
	}
	if err := s.store.SetStatus(ctx, id, StatusCancelled); err != nil {
		s.timers.Arm(id, r.ChatID, r.EventAt)
		return Reminder{}, fmt.Errorf("cancel %d: %w", id, err)
	}
	r.Status = StatusCancelled
	s.log.Info("reminder cancelled", logx.Int64("id", id))
	s.publish(EventCancelled, r)
	return r, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Reminder, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Reminder{}, fmt.Errorf("get %d: %w", id, err)
	}
	return r, nil
}

// Upcoming lists a chat's pending reminders from now on, soonest first.
func (s *Service) Upcoming(ctx context.Context, chatID int64, limit int) ([]Reminder, error) {
	if limit <= 0 {
		s.mu.RLock()
		limit = s.cfg.UpcomingLimit
		s.mu.RUnlock()
	}
	if limit <= 0 {
		limit = defaultUpcomingLimit
	}
	out, err := s.store.ListUpcoming(ctx, chatID, s.now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("upcoming for chat %d: %w", chatID, err)
	}
	return out, nil
}

func (s *Service) publish(typ string, r Reminder) {
	eventbus.Emit(s.bus, typ, LifecycleEvent{ID: r.ID, ChatID: r.ChatID, EventAt: r.EventAt, Status: r.Status})
}
