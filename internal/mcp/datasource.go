package mcp

import (
	"context"

	"github.com/google/uuid"

	"github.com/claude/gymcoach/internal/models"
	"github.com/claude/gymcoach/internal/session"
	"github.com/claude/gymcoach/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both LocalSource and
// HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListWorkouts(ctx context.Context, userID string, limit int) ([]models.WorkoutRecord, error)
	GetWorkout(ctx context.Context, id uuid.UUID, userID string) (*models.WorkoutRecord, error)
	VolumeSeries(ctx context.Context, userID, bucket string) ([]storage.VolumePoint, error)
	GetDataStats(ctx context.Context, userID string) (*storage.DataStats, error)
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	CurrentDraft(ctx context.Context, userID string) (models.Workout, bool, error)
}

// LocalSource serves history from the database and drafts from the session store.
type LocalSource struct {
	*storage.DB
	Sessions *session.Store
}

// CurrentDraft returns the user's in-progress workout, if any.
func (s LocalSource) CurrentDraft(ctx context.Context, userID string) (models.Workout, bool, error) {
	w, ok := s.Sessions.Slot(userID).Load(ctx)
	return w, ok, nil
}

// Compile-time check: LocalSource satisfies DataSource.
var _ DataSource = LocalSource{}
