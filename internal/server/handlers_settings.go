package server

import (
	"net/http"

	"github.com/claude/gymcoach/internal/models"
	"github.com/claude/gymcoach/internal/restimer"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	p, err := s.db.GetProfile(r.Context(), user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type profileRequest struct {
	Goal         models.Goal       `json:"goal"`
	Level        models.Level      `json:"level"`
	PersonalInfo string            `json:"personal_info"`
	Language     models.Language   `json:"language"`
	Permission   models.Permission `json:"notification_permission"`
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Goal.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown goal"})
		return
	}
	if !req.Level.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown level"})
		return
	}
	if req.Language != "" && !req.Language.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported language"})
		return
	}
	if req.Permission != "" && !req.Permission.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown notification permission"})
		return
	}

	p, err := s.db.UpsertProfile(r.Context(), models.Profile{
		UserID:                 user.ID,
		Goal:                   req.Goal,
		Level:                  req.Level,
		PersonalInfo:           req.PersonalInfo,
		Language:               req.Language,
		NotificationPermission: req.Permission,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Language models.Language `json:"language"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Language.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported language"})
		return
	}
	if err := s.db.SetLanguage(r.Context(), user.ID, req.Language); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"language": string(req.Language)})
}

func (s *Server) handleSetPermission(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Permission models.Permission `json:"permission"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Permission.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "permission must be default, granted or denied"})
		return
	}
	if err := s.db.SetNotificationPermission(r.Context(), user.ID, req.Permission); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"permission": string(req.Permission)})
}

// handleNotifications drains the caller's queued notifications.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	if s.notifier == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, s.notifier.Drain(user.ID))
}

func (s *Server) handleGetTimer(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.timers.Snapshot(user.ID))
}

func (s *Server) handleCancelTimer(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	unlock := s.locks.lock(user.ID)
	s.cancelTimer(user.ID)
	unlock()
	writeJSON(w, http.StatusOK, s.timers.Snapshot(user.ID))
}

func (s *Server) handleGetTimerPreference(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	enabled := s.sessions.Slot(user.ID).TimerPreference(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

func (s *Server) handleSetTimerPreference(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "enabled is required"})
		return
	}
	unlock := s.locks.lock(user.ID)
	defer unlock()
	if err := s.sessions.Slot(user.ID).SetTimerPreference(r.Context(), *req.Enabled); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !*req.Enabled {
		s.cancelTimer(user.ID)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}

// startTimer restarts the caller's rest countdown. Callers hold the user lock.
func (s *Server) startTimer(userID string) restimer.Snapshot {
	snap := s.timers.Start(userID)
	if s.metrics != nil {
		s.metrics.CounterTimers.WithLabelValues("started").Inc()
	}
	return snap
}

// cancelTimer stops a running countdown. Callers hold the user lock.
func (s *Server) cancelTimer(userID string) {
	if !s.timers.Cancel(userID) {
		return
	}
	if s.metrics != nil {
		s.metrics.CounterTimers.WithLabelValues("cancelled").Inc()
	}
}
