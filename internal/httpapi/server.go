// Package httpapi exposes the reminder operations over a small JSON API.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"remindbot/internal/reminder"
	"remindbot/pkg/logx"
)

// Reminders is the slice of reminder.Service served over HTTP.
type Reminders interface {
	Create(ctx context.Context, req reminder.CreateRequest) (reminder.Reminder, error)
	Get(ctx context.Context, id int64) (reminder.Reminder, error)
	Snooze(ctx context.Context, id int64, minutes int) (reminder.Reminder, error)
	Cancel(ctx context.Context, id int64) (reminder.Reminder, error)
	Upcoming(ctx context.Context, chatID int64, limit int) ([]reminder.Reminder, error)
}

type Config struct {
	Enabled        bool
	Addr           string
	RequestTimeout time.Duration
	// Pprof mounts the runtime profiler under /debug. Keep Addr on
	// loopback when it is on.
	Pprof bool
}

type Server struct {
	cfg Config
	rem Reminders
	log logx.Logger

	srv  *http.Server
	done chan error
}

func New(cfg Config, rem Reminders, log logx.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{cfg: cfg, rem: rem, log: log}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(correlate)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		r.Post("/reminders", s.createReminder)
		r.Get("/reminders/{id}", s.getReminder)
		r.Post("/reminders/{id}/snooze", s.snoozeReminder)
		r.Post("/reminders/{id}/cancel", s.cancelReminder)
		r.Get("/chats/{chatID}/reminders", s.listUpcoming)
	})
	if s.cfg.Pprof {
		r.Mount("/debug", middleware.Profiler())
	}
	return r
}

// Start binds the listener and serves in the background. Bind errors are
// returned directly.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan error, 1)
	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			s.log.Error("http server stopped", logx.Err(err))
		}
		s.done <- err
	}()
	s.log.Info("http api listening", logx.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	select {
	case err := <-s.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// correlate makes sure every request carries an X-Request-Id before chi's
// RequestID middleware reads it, and echoes it back.
func correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(middleware.RequestIDHeader, id)
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		fields := []logx.Field{
			logx.String("req", middleware.GetReqID(r.Context())),
			logx.String("method", r.Method),
			logx.String("path", r.URL.Path),
			logx.Int("status", ww.Status()),
			logx.Duration("dur", time.Since(start)),
		}
		if ww.Status() >= http.StatusInternalServerError {
			s.log.Warn("http request", fields...)
			return
		}
		s.log.Debug("http request", fields...)
	})
}
