// Package session persists each user's in-progress workout (the draft) and
// their timer preference so both survive restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/gymcoach/internal/models"
)

const (
	draftKey     = "currentWorkout"
	timerPrefKey = "timerPreference"
)

// Store hands out per-user session slots over a shared backend.
type Store struct {
	backend Backend
	log     *slog.Logger
}

// NewStore creates a Store over backend.
func NewStore(backend Backend, log *slog.Logger) *Store {
	return &Store{backend: backend, log: log}
}

// Slot returns the session slot of userID.
func (s *Store) Slot(userID string) *Slot {
	return &Slot{store: s, userID: userID}
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Slot is one user's session: at most one draft plus a timer preference.
type Slot struct {
	store  *Store
	userID string
}

func (sl *Slot) key(name string) string {
	return sl.userID + ":" + name
}

// Load returns the stored draft. A missing or malformed value reads as absent;
// malformed values are logged and never surfaced as errors.
func (sl *Slot) Load(ctx context.Context) (models.Workout, bool) {
	data, err := sl.store.backend.Get(ctx, sl.key(draftKey))
	if errors.Is(err, ErrNotFound) {
		return models.Workout{}, false
	}
	if err != nil {
		sl.store.log.Warn("reading draft", "user", sl.userID, "error", err)
		return models.Workout{}, false
	}

	w, err := models.DecodeWorkout(data)
	if err != nil {
		sl.store.log.Warn("discarding malformed draft", "user", sl.userID, "error", err)
		return models.Workout{}, false
	}
	return w, true
}

// Save overwrites the stored draft with w.
func (sl *Slot) Save(ctx context.Context, w models.Workout) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	return sl.store.backend.Put(ctx, sl.key(draftKey), data)
}

// Clear removes the stored draft.
func (sl *Slot) Clear(ctx context.Context) error {
	return sl.store.backend.Delete(ctx, sl.key(draftKey))
}

// HasDraft reports whether a draft value exists, without decoding it.
func (sl *Slot) HasDraft(ctx context.Context) bool {
	ok, err := sl.store.backend.Exists(ctx, sl.key(draftKey))
	if err != nil {
		sl.store.log.Warn("checking draft", "user", sl.userID, "error", err)
		return false
	}
	return ok
}

// TimerPreference reports whether the server runs the rest timer for this
// user. It defaults to true when unset.
func (sl *Slot) TimerPreference(ctx context.Context) bool {
	data, err := sl.store.backend.Get(ctx, sl.key(timerPrefKey))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			sl.store.log.Warn("reading timer preference", "user", sl.userID, "error", err)
		}
		return true
	}
	return string(data) != "0"
}

// SetTimerPreference stores the timer preference.
func (sl *Slot) SetTimerPreference(ctx context.Context, enabled bool) error {
	v := "0"
	if enabled {
		v = "1"
	}
	return sl.store.backend.Put(ctx, sl.key(timerPrefKey), []byte(v))
}
