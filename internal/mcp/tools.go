package mcp

import (
	"context"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/gymcoach/internal/workout"
)

// --- Tool definitions ---

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("List completed workouts, newest first. Returns date, theme, the coach's reasoning and every section with exercises and sets (weight in kg, reps, completion)."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of workouts to return. Defaults to 10.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one completed workout by ID, including its total volume (sum of weight × reps over all sets)."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout ID (UUID) as returned by get_workouts")),
)

var toolGetVolumeSeries = mcp.NewTool("get_volume_series",
	mcp.WithDescription("Training volume over time. Each point is the summed weight × reps of the workouts in one period."),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to 'day'."), mcp.Enum("day", "week", "month")),
)

var toolGetStats = mcp.NewTool("get_stats",
	mcp.WithDescription("Totals across the user's history: workouts, sets, completed sets, first and latest dates, and workout counts per theme."),
)

var toolGetProfile = mcp.NewTool("get_profile",
	mcp.WithDescription("The user's training goal, experience level, personal notes (injuries, constraints) and preferred language."),
)

var toolGetCurrentDraft = mcp.NewTool("get_current_draft",
	mcp.WithDescription("The workout the user is currently doing, with progress (completed sets / total sets) and volume so far. Returns an empty result when no workout is in progress."),
)

// --- Tool handlers ---

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	records, err := h.ds.ListWorkouts(ctx, UserIDFromContext(ctx), limit)
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(records)
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("invalid workout ID: " + raw), nil
	}

	rec, err := h.ds.GetWorkout(ctx, id, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	return jsonResult(map[string]any{
		"workout": rec,
		"volume":  workout.SectionsVolume(rec.Sections),
	})
}

func (h *handlers) getVolumeSeries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bucket := req.GetString("bucket", "day")
	switch bucket {
	case "day", "week", "month":
	default:
		return mcp.NewToolResultError("bucket must be day, week or month"), nil
	}

	points, err := h.ds.VolumeSeries(ctx, UserIDFromContext(ctx), bucket)
	if err != nil {
		h.log.Error("mcp get_volume_series", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(points)
}

func (h *handlers) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.ds.GetDataStats(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(stats)
}

func (h *handlers) getProfile(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := h.ds.GetProfile(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_profile", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(p)
}

func (h *handlers) getCurrentDraft(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	draft, ok, err := h.ds.CurrentDraft(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_current_draft", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultText("No workout in progress."), nil
	}

	done, total := workout.Progress(draft)
	return jsonResult(map[string]any{
		"workout":  draft,
		"progress": map[string]int{"done": done, "total": total},
		"volume":   workout.Volume(draft),
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
