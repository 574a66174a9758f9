package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/gymcoach/internal/models"
)

// recentWindow is how far back the recent_workouts resource looks.
const recentWindow = 14 * 24 * time.Hour

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	records, err := h.ds.ListWorkouts(ctx, uid, 50)
	if err != nil {
		return nil, err
	}
	cutoff := models.Today(time.Now().Add(-recentWindow))
	recent := make([]models.WorkoutRecord, 0, len(records))
	for _, r := range records {
		if r.Date >= cutoff {
			recent = append(recent, r)
		}
	}

	return jsonContents(req.Params.URI, recent)
}

func (h *handlers) profile(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	p, err := h.ds.GetProfile(ctx, UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, p)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
