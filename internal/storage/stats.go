package storage

import (
	"context"
	"fmt"
)

// DataStats holds aggregate statistics about a user's workout history.
type DataStats struct {
	TotalWorkouts   int64       `json:"total_workouts"`
	TotalSets       int64       `json:"total_sets"`
	CompletedSets   int64       `json:"completed_sets"`
	EarliestWorkout *string     `json:"earliest_workout"`
	LatestWorkout   *string     `json:"latest_workout"`
	WorkoutsByTheme []ThemeStat `json:"workouts_by_theme"`
}

// ThemeStat counts workouts sharing a theme.
type ThemeStat struct {
	Theme string `json:"theme"`
	Count int64  `json:"count"`
}

// GetDataStats returns aggregate statistics for a user's stored workouts.
func (db *DB) GetDataStats(ctx context.Context, userID string) (*DataStats, error) {
	stats := &DataStats{WorkoutsByTheme: []ThemeStat{}}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), to_char(MIN(date), 'YYYY-MM-DD'), to_char(MAX(date), 'YYYY-MM-DD')
		 FROM workouts WHERE user_id = $1`, userID,
	).Scan(&stats.TotalWorkouts, &stats.EarliestWorkout, &stats.LatestWorkout)
	if err != nil {
		return nil, fmt.Errorf("counting workouts: %w", err)
	}

	// sets live inside the sections document
	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE (s->>'isCompleted')::boolean)
		 FROM workouts w,
		      jsonb_array_elements(w.sections) sec,
		      jsonb_array_elements(sec->'exercises') ex,
		      jsonb_array_elements(ex->'sets') s
		 WHERE w.user_id = $1`, userID,
	).Scan(&stats.TotalSets, &stats.CompletedSets)
	if err != nil {
		return nil, fmt.Errorf("counting sets: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT theme, COUNT(*)
		 FROM workouts
		 WHERE user_id = $1
		 GROUP BY theme
		 ORDER BY COUNT(*) DESC, theme
		 LIMIT 10`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts by theme: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s ThemeStat
		if err := rows.Scan(&s.Theme, &s.Count); err != nil {
			return nil, fmt.Errorf("scanning theme stat: %w", err)
		}
		stats.WorkoutsByTheme = append(stats.WorkoutsByTheme, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
