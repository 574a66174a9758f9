package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/claude/gymcoach/internal/events"
	"github.com/claude/gymcoach/internal/models"
	"github.com/claude/gymcoach/internal/prompt"
	"github.com/claude/gymcoach/internal/restimer"
	"github.com/claude/gymcoach/internal/storage"
	"github.com/claude/gymcoach/internal/workout"
)

// draftView is the response shape for every endpoint that returns the draft.
type draftView struct {
	Workout  models.Workout `json:"workout"`
	Progress progress       `json:"progress"`
	Volume   float64        `json:"volume"`
}

type progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

func newDraftView(w models.Workout) draftView {
	done, total := workout.Progress(w)
	return draftView{
		Workout:  w,
		Progress: progress{Done: done, Total: total},
		Volume:   workout.Volume(w),
	}
}

type menuRequest struct {
	TrainingTime int    `json:"training_time"`
	UserRequest  string `json:"user_request"`
}

// handleGenerateMenu asks the model for a new workout and stores it as the
// caller's draft. A failed generation leaves the existing draft untouched.
func (s *Server) handleGenerateMenu(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var body menuRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.TrainingTime <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "training_time must be a positive number of minutes"})
		return
	}

	ctx := r.Context()
	profile, err := s.db.GetProfile(ctx, user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	history, err := s.db.RecentHistory(ctx, user.ID, prompt.MaxHistory)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	req := prompt.MenuRequest{
		TrainingTime: body.TrainingTime,
		History:      history,
		Goal:         profile.Goal,
		Level:        profile.Level,
		UserRequest:  body.UserRequest,
		PersonalInfo: profile.PersonalInfo,
		Language:     profile.Language,
		Today:        models.Today(s.now()),
	}

	start := time.Now()
	menu, err := s.coach.Menu(ctx, req)
	s.logGeneration(user.ID, "menu", s.models.Menu, start, err)
	if errors.Is(err, prompt.ErrInvalidRequest) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.log.Warn("menu generation failed", "user", user.ID, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "generating menu: " + err.Error()})
		return
	}

	unlock := s.locks.lock(user.ID)
	defer unlock()
	if err := s.sessions.Slot(user.ID).Save(ctx, menu); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.cancelTimer(user.ID)
	writeJSON(w, http.StatusCreated, newDraftView(menu))
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	draft, found := s.sessions.Slot(user.ID).Load(r.Context())
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no draft"})
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(draft))
}

func (s *Server) handleDraftExists(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": s.sessions.Slot(user.ID).HasDraft(r.Context())})
}

func (s *Server) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	unlock := s.locks.lock(user.ID)
	defer unlock()
	if err := s.sessions.Slot(user.ID).Clear(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.cancelTimer(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// mutateDraft loads the caller's draft, applies fn and saves the result under
// the per-user lock. saved, when non-nil, runs after the save with the lock
// still held. It writes the error response itself and reports false on
// failure.
func (s *Server) mutateDraft(w http.ResponseWriter, r *http.Request, userID string, fn func(models.Workout) models.Workout, saved func(models.Workout)) (models.Workout, bool) {
	unlock := s.locks.lock(userID)
	defer unlock()

	slot := s.sessions.Slot(userID)
	draft, found := slot.Load(r.Context())
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no draft"})
		return models.Workout{}, false
	}
	next := fn(draft)
	if err := slot.Save(r.Context(), next); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return models.Workout{}, false
	}
	if saved != nil {
		saved(next)
	}
	return next, true
}

type setFieldRequest struct {
	Field workout.Field `json:"field"`
	Value string        `json:"value"`
}

// handleSetField stores a weight or rep value. Values that do not parse are
// ignored and the unchanged draft is returned.
func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req setFieldRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Field.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field must be weight or reps"})
		return
	}
	exID, setID := chi.URLParam(r, "exerciseID"), chi.URLParam(r, "setID")

	draft, ok := s.mutateDraft(w, r, user.ID, func(d models.Workout) models.Workout {
		return workout.SetField(d, exID, setID, req.Field, req.Value)
	}, nil)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(draft))
}

type toggleResponse struct {
	draftView
	Transition string            `json:"transition"`
	Timer      restimer.Snapshot `json:"timer"`
}

// handleToggleSet flips a set's completion. Completing a set restarts the
// rest timer when the caller has it enabled; reopening one cancels it. The
// timer follows the draft inside the user lock, so concurrent toggles leave
// it matching the last saved state.
func (s *Server) handleToggleSet(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	exID, setID := chi.URLParam(r, "exerciseID"), chi.URLParam(r, "setID")

	transition := workout.TransitionNone
	var timer restimer.Snapshot
	draft, ok := s.mutateDraft(w, r, user.ID, func(d models.Workout) models.Workout {
		var next models.Workout
		next, transition = workout.ToggleCompletion(d, exID, setID)
		return next
	}, func(models.Workout) {
		switch transition {
		case workout.TransitionCompleted:
			if s.sessions.Slot(user.ID).TimerPreference(r.Context()) {
				s.startTimer(user.ID)
			}
		case workout.TransitionReopened:
			s.cancelTimer(user.ID)
		}
		timer = s.timers.Snapshot(user.ID)
	})
	if !ok {
		return
	}
	if s.metrics != nil {
		s.metrics.CounterSetsToggled.WithLabelValues(transition.String()).Inc()
	}

	writeJSON(w, http.StatusOK, toggleResponse{
		draftView:  newDraftView(draft),
		Transition: transition.String(),
		Timer:      timer,
	})
}

// draftExercise returns the named exercise of the caller's draft, writing a
// 404 when either is missing.
func (s *Server) draftExercise(w http.ResponseWriter, r *http.Request, userID string) (models.Exercise, bool) {
	draft, found := s.sessions.Slot(userID).Load(r.Context())
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no draft"})
		return models.Exercise{}, false
	}
	ex, found := workout.FindExercise(draft, chi.URLParam(r, "exerciseID"))
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "exercise not found"})
		return models.Exercise{}, false
	}
	return ex, true
}

func (s *Server) handleAlternatives(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	ex, ok := s.draftExercise(w, r, user.ID)
	if !ok {
		return
	}
	lang := s.language(r.Context(), user.ID)

	start := time.Now()
	names, err := s.coach.Alternatives(r.Context(), ex.Name, lang)
	s.logGeneration(user.ID, "alternatives", s.models.Alternatives, start, err)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "generating alternatives: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"alternatives": names})
}

// handleSubstitute renames an exercise, keeping its sets.
func (s *Server) handleSubstitute(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	exID := chi.URLParam(r, "exerciseID")

	draft, ok := s.mutateDraft(w, r, user.ID, func(d models.Workout) models.Workout {
		return workout.SubstituteExercise(d, exID, name)
	}, nil)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(draft))
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Question string `json:"question"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	ex, ok := s.draftExercise(w, r, user.ID)
	if !ok {
		return
	}
	lang := s.language(r.Context(), user.ID)

	start := time.Now()
	answer, err := s.coach.Answer(r.Context(), ex.Name, req.Question, lang)
	s.logGeneration(user.ID, "question", s.models.Question, start, err)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "answering question: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

// handleCompleteDraft submits the draft to history and clears it. The draft
// is kept when the insert fails so the user can retry.
func (s *Server) handleCompleteDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	unlock := s.locks.lock(user.ID)
	defer unlock()

	slot := s.sessions.Slot(user.ID)
	draft, found := slot.Load(r.Context())
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no draft"})
		return
	}

	rec, err := s.db.InsertWorkout(r.Context(), user.ID, draft)
	if err != nil {
		s.log.Error("saving workout", "user", user.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "saving workout: " + err.Error()})
		return
	}
	if err := slot.Clear(r.Context()); err != nil {
		s.log.Warn("clearing draft after completion", "user", user.ID, "error", err)
	}
	s.cancelTimer(user.ID)

	if s.metrics != nil {
		s.metrics.CounterWorkoutsCompleted.Inc()
	}
	done, _ := workout.Progress(draft)
	s.publish(events.Event{
		Type:      events.TypeWorkoutCompleted,
		UserID:    user.ID,
		WorkoutID: rec.ID.String(),
		Date:      rec.Date,
		Theme:     rec.Theme,
		Volume:    workout.Volume(draft),
		Sets:      done,
	})
	writeJSON(w, http.StatusCreated, rec)
}

// language returns the caller's output language, falling back to the default
// when the profile cannot be read.
func (s *Server) language(ctx context.Context, userID string) models.Language {
	p, err := s.db.GetProfile(ctx, userID)
	if err != nil {
		s.log.Warn("reading profile language", "user", userID, "error", err)
		return models.Language("").OrDefault()
	}
	return p.Language.OrDefault()
}

// logGeneration records a model call in generation_logs and metrics.
func (s *Server) logGeneration(userID, kind, model string, start time.Time, genErr error) {
	elapsed := time.Since(start)
	status := "success"
	var errMsg *string
	if genErr != nil {
		status = "error"
		msg := genErr.Error()
		errMsg = &msg
	}
	if s.metrics != nil {
		s.metrics.CounterGenerations.WithLabelValues(kind, status).Inc()
		s.metrics.HistGeneration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}

	durationMs := int(elapsed.Milliseconds())
	ctx, cancel := contextWithTimeout()
	defer cancel()
	if _, err := s.db.InsertGenerationLog(ctx, storage.GenerationLog{
		UserID:       userID,
		Kind:         kind,
		Model:        model,
		Status:       status,
		DurationMs:   &durationMs,
		ErrorMessage: errMsg,
	}); err != nil {
		s.log.Error("failed to log generation", "kind", kind, "error", err)
	}
}
