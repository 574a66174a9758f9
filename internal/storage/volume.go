package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/gymcoach/internal/models"
	"github.com/claude/gymcoach/internal/workout"
)

// VolumePoint is the training volume (Σ weight × reps) of one period.
type VolumePoint struct {
	Period   string  `json:"date"`
	Volume   float64 `json:"volume"`
	Workouts int     `json:"workouts"`
}

// VolumeSeries returns userID's training volume per bucket ("day", "week" or
// "month"), oldest first. Only periods with at least one workout appear.
func (db *DB) VolumeSeries(ctx context.Context, userID, bucket string) ([]VolumePoint, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT to_char(date, 'YYYY-MM-DD'), sections
		 FROM workouts
		 WHERE user_id = $1
		 ORDER BY date ASC, created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying volume: %w", err)
	}
	defer rows.Close()

	var days []datedSections
	for rows.Next() {
		var (
			d   datedSections
			raw []byte
		)
		if err := rows.Scan(&d.date, &raw); err != nil {
			return nil, fmt.Errorf("scanning volume row: %w", err)
		}
		if err := json.Unmarshal(raw, &d.sections); err != nil {
			return nil, fmt.Errorf("decoding sections: %w", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return aggregateVolume(days, bucket), nil
}

type datedSections struct {
	date     string
	sections []models.Section
}

// aggregateVolume sums volume per bucket. Input must be sorted by date ascending.
func aggregateVolume(days []datedSections, bucket string) []VolumePoint {
	points := []VolumePoint{}
	for _, d := range days {
		key := bucketStart(d.date, bucket)
		v := workout.SectionsVolume(d.sections)
		if n := len(points); n > 0 && points[n-1].Period == key {
			points[n-1].Volume += v
			points[n-1].Workouts++
			continue
		}
		points = append(points, VolumePoint{Period: key, Volume: v, Workouts: 1})
	}
	return points
}

// bucketStart maps a date to the first day of its bucket. Weeks start on Monday.
func bucketStart(date, bucket string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	switch bucket {
	case "week":
		offset := (int(t.Weekday()) + 6) % 7
		t = t.AddDate(0, 0, -offset)
	case "month":
		t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return t.Format(models.DateLayout)
}
