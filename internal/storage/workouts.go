package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/gymcoach/internal/models"
)

const workoutColumns = `id, user_id, to_char(date, 'YYYY-MM-DD'), theme, reason, sections, created_at`

// InsertWorkout persists w for userID. The store issues the record ID; w.ID is not reused.
func (db *DB) InsertWorkout(ctx context.Context, userID string, w models.Workout) (models.WorkoutRecord, error) {
	sections := w.Sections
	if sections == nil {
		sections = []models.Section{}
	}
	raw, err := json.Marshal(sections)
	if err != nil {
		return models.WorkoutRecord{}, fmt.Errorf("encoding sections: %w", err)
	}

	row := db.Pool.QueryRow(ctx,
		`INSERT INTO workouts (user_id, date, theme, reason, sections)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+workoutColumns,
		userID, w.Date, w.Theme, w.Reason, json.RawMessage(raw))
	rec, err := scanWorkout(row)
	if err != nil {
		return models.WorkoutRecord{}, fmt.Errorf("inserting workout: %w", err)
	}
	return rec, nil
}

// GetWorkout retrieves one of userID's workouts.
func (db *DB) GetWorkout(ctx context.Context, id uuid.UUID, userID string) (*models.WorkoutRecord, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = $1 AND user_id = $2`,
		id, userID)
	rec, err := scanWorkout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting workout %s: %w", id, err)
	}
	return &rec, nil
}

// DeleteWorkout removes one of userID's workouts.
func (db *DB) DeleteWorkout(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workouts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting workout %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWorkouts returns userID's workouts, newest date first.
func (db *DB) ListWorkouts(ctx context.Context, userID string, limit int) ([]models.WorkoutRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT `+workoutColumns+`
		 FROM workouts
		 WHERE user_id = $1
		 ORDER BY date DESC, created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	result := []models.WorkoutRecord{}
	for rows.Next() {
		rec, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// RecentHistory returns the date and theme of userID's n most recent workouts,
// newest first. n is capped at 5.
func (db *DB) RecentHistory(ctx context.Context, userID string, n int) ([]models.HistoryEntry, error) {
	if n <= 0 || n > 5 {
		n = 5
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT to_char(date, 'YYYY-MM-DD'), theme
		 FROM workouts
		 WHERE user_id = $1
		 ORDER BY date DESC, created_at DESC
		 LIMIT $2`,
		userID, n)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	history := make([]models.HistoryEntry, 0, n)
	for rows.Next() {
		var h models.HistoryEntry
		if err := rows.Scan(&h.Date, &h.Theme); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// HasWorkout reports whether userID already has a workout with this date and theme.
func (db *DB) HasWorkout(ctx context.Context, userID, date, theme string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM workouts WHERE user_id = $1 AND date = $2 AND theme = $3)`,
		userID, date, theme,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking workout: %w", err)
	}
	return exists, nil
}

func scanWorkout(row pgx.Row) (models.WorkoutRecord, error) {
	var (
		rec       models.WorkoutRecord
		sections  []byte
		createdAt time.Time
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.Theme, &rec.Reason, &sections, &createdAt); err != nil {
		return models.WorkoutRecord{}, err
	}
	if err := json.Unmarshal(sections, &rec.Sections); err != nil {
		return models.WorkoutRecord{}, fmt.Errorf("decoding sections of %s: %w", rec.ID, err)
	}
	rec.CreatedAt = createdAt
	return rec, nil
}
