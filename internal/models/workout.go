package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar date format used for Workout.Date.
const DateLayout = "2006-01-02"

// Set is a single set of an exercise. IDs are unique within the owning exercise.
type Set struct {
	ID          string   `json:"id"`
	Weight      Quantity `json:"weight"`
	Reps        Quantity `json:"reps"`
	IsCompleted bool     `json:"isCompleted"`
}

// Exercise is a named exercise with ordered sets. IDs are unique within the owning section.
type Exercise struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Sets []Set  `json:"sets"`
}

// Section groups exercises under a title (warm-up, chest, cool-down, ...).
// Sections have no identifier and are addressed by position.
type Section struct {
	Title     string     `json:"title"`
	Exercises []Exercise `json:"exercises"`
}

// Workout is a full training plan for one day.
type Workout struct {
	ID       string    `json:"id"`
	Date     string    `json:"date"`
	Theme    string    `json:"theme"`
	Reason   string    `json:"reason"`
	Sections []Section `json:"sections"`
}

// HistoryEntry is the date/theme pair describing a past workout.
type HistoryEntry struct {
	Date  string `json:"date"`
	Theme string `json:"theme"`
}

// WorkoutRecord is a workout persisted in the remote store. The record ID is
// issued by the store; the draft's local ID is not reused.
type WorkoutRecord struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"`
	Theme     string    `json:"theme"`
	Reason    string    `json:"reason"`
	Sections  []Section `json:"sections"`
	CreatedAt time.Time `json:"created_at"`
}

// Workout returns the record's payload as a Workout carrying the record ID.
func (r WorkoutRecord) Workout() Workout {
	return Workout{
		ID:       r.ID.String(),
		Date:     r.Date,
		Theme:    r.Theme,
		Reason:   r.Reason,
		Sections: r.Sections,
	}
}

// NewID returns a fresh identifier for workouts, exercises and sets.
func NewID() string {
	return uuid.NewString()
}

// Today returns today's date in DateLayout.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}
