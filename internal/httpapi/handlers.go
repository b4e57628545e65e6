package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"remindbot/internal/reminder"
	"remindbot/pkg/logx"
)

const maxBody = 64 << 10

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type snoozeBody struct {
	Minutes int `json:"minutes"`
}

func (s *Server) createReminder(w http.ResponseWriter, r *http.Request) {
	var req reminder.CreateRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rem, err := s.rem.Create(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

func (s *Server) getReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rem, err := s.rem.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

func (s *Server) snoozeReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body snoozeBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	rem, err := s.rem.Snooze(r.Context(), id, body.Minutes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

func (s *Server) cancelReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rem, err := s.rem.Cancel(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

func (s *Server) listUpcoming(w http.ResponseWriter, r *http.Request) {
	chatID, err := pathInt(r, "chatID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.fail(w, r, fmt.Errorf("%w: bad limit %q", reminder.ErrInvalidRequest, v))
			return
		}
	}
	list, err := s.rem.Upcoming(r.Context(), chatID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []reminder.Reminder{}
	}
	writeJSON(w, http.StatusOK, list)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", reminder.ErrInvalidRequest, err)
	}
	return nil
}

func pathInt(r *http.Request, name string) (int64, error) {
	v := chi.URLParam(r, name)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s %q", reminder.ErrInvalidRequest, name, v)
	}
	return n, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, reminder.ErrInvalidTimeFormat), errors.Is(err, reminder.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, reminder.ErrTimeInPast):
		return http.StatusUnprocessableEntity
	case errors.Is(err, reminder.ErrAlreadyFinalized):
		return http.StatusConflict
	case errors.Is(err, reminder.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	reqID := middleware.GetReqID(r.Context())
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.log.Error("request failed", logx.String("req", reqID), logx.Err(err))
		msg = http.StatusText(code)
	}
	writeJSON(w, code, errorBody{Error: msg, RequestID: reqID})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
