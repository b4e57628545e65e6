package reminder

import (
	"context"
	"errors"
	"fmt"

	"remindbot/pkg/logx"
)

// RecoveryReport summarizes one recovery or reconcile pass.
type RecoveryReport struct {
	Listed  int `json:"listed"`
	Armed   int `json:"armed"`
	Skipped int `json:"skipped"`
}

// Recoverer rebuilds armed timers from persisted state.
type Recoverer struct {
	svc *Service
	log logx.Logger
}

func NewRecoverer(svc *Service) *Recoverer {
	return &Recoverer{svc: svc, log: svc.log.With(logx.String("phase", "recovery"))}
}

// Recover arms every pending reminder whose event instant is still ahead,
// firing exactly at EventAt. It must run before inbound traffic starts.
// Bad records are skipped; only the listing error is returned.
func (rc *Recoverer) Recover(ctx context.Context) (RecoveryReport, error) {
	s := rc.svc
	list, err := s.store.ListPendingFuture(ctx, s.now().UTC())
	if err != nil {
		return RecoveryReport{}, fmt.Errorf("recover: %w", err)
	}
	rep := RecoveryReport{Listed: len(list)}
	for _, r := range list {
		if err := recoverable(r); err != nil {
			rep.Skipped++
			rc.log.Warn("reminder skipped", logx.Int64("id", r.ID), logx.Err(err))
			continue
		}
		if !s.timers.Arm(r.ID, r.ChatID, r.EventAt) {
			rep.Skipped++
			rc.log.Debug("reminder slipped into the past", logx.Int64("id", r.ID), logx.Time("event_at", r.EventAt))
			continue
		}
		rep.Armed++
	}
	rc.log.Info("timers recovered", logx.Int("listed", rep.Listed), logx.Int("armed", rep.Armed), logx.Int("skipped", rep.Skipped))
	return rep, nil
}

// Reconcile arms pending future reminders that have no live timer, such as
// rows written by another process sharing the database. Each candidate is
// re-read under its lock.
func (rc *Recoverer) Reconcile(ctx context.Context) (RecoveryReport, error) {
	s := rc.svc
	list, err := s.store.ListPendingFuture(ctx, s.now().UTC())
	if err != nil {
		return RecoveryReport{}, fmt.Errorf("reconcile: %w", err)
	}
	rep := RecoveryReport{Listed: len(list)}
	for _, r := range list {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		if rc.live(r.ID) {
			continue
		}
		armed, err := rc.reconcileOne(ctx, r.ID)
		switch {
		case err != nil:
			rep.Skipped++
			rc.log.Warn("reconcile skipped reminder", logx.Int64("id", r.ID), logx.Err(err))
		case armed:
			rep.Armed++
		}
	}
	if rep.Armed > 0 || rep.Skipped > 0 {
		rc.log.Info("timers reconciled", logx.Int("listed", rep.Listed), logx.Int("armed", rep.Armed), logx.Int("skipped", rep.Skipped))
	}
	return rep, nil
}

func (rc *Recoverer) reconcileOne(ctx context.Context, id int64) (bool, error) {
	s := rc.svc
	unlock := s.locks.Lock(id)
	defer unlock()

	r, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if r.Status != StatusPending {
		return false, nil
	}
	if err := recoverable(r); err != nil {
		return false, err
	}
	if rc.live(id) {
		return false, nil
	}
	return s.timers.Arm(r.ID, r.ChatID, r.EventAt), nil
}

// live reports an armed timer or a fire still in progress for id.
func (rc *Recoverer) live(id int64) bool {
	t := rc.svc.timers
	if t.Armed(id) {
		return true
	}
	ft, ok := t.(FireTracker)
	return ok && ft.Firing(id)
}

func recoverable(r Reminder) error {
	if r.ChatID == 0 {
		return errors.New("missing chat id")
	}
	if r.Status != StatusPending {
		return fmt.Errorf("status %s", r.Status)
	}
	return nil
}
