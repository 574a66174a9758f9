package storage

import (
	"context"
	"fmt"
	"time"
)

// GenerationLog records the outcome of one call to the generative model.
type GenerationLog struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	Kind         string    `json:"kind"` // menu, alternatives, question
	Model        string    `json:"model"`
	Status       string    `json:"status"` // success, error
	DurationMs   *int      `json:"duration_ms"`
	ErrorMessage *string   `json:"error_message"`
}

// InsertGenerationLog creates a log entry and returns its ID.
func (db *DB) InsertGenerationLog(ctx context.Context, log GenerationLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO generation_logs (user_id, kind, model, status, duration_ms, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		log.UserID, log.Kind, log.Model, log.Status, log.DurationMs, log.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting generation log: %w", err)
	}
	return id, nil
}

// QueryGenerationLogs returns the most recent generation logs for a user.
func (db *DB) QueryGenerationLogs(ctx context.Context, userID string, limit int) ([]GenerationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, created_at, kind, model, status, duration_ms, error_message
		 FROM generation_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying generation logs: %w", err)
	}
	defer rows.Close()

	result := []GenerationLog{}
	for rows.Next() {
		var l GenerationLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.CreatedAt, &l.Kind, &l.Model, &l.Status,
			&l.DurationMs, &l.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning generation log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
