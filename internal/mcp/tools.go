package mcp

import (
	"context"
	"strconv"

	"github.com/claude/liftlog/internal/pr"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultBaselineWindow is the fallback session window for PR baselines
// when no configured value is supplied.
const defaultBaselineWindow = 30

// --- Tool definitions ---

var toolGetFinishedWorkouts = mcp.NewTool("get_finished_workouts",
	mcp.WithDescription("List recently finished training sessions, newest first. Each includes routine name, duration, total volume (kg), effort label, and completed set count."),
	mcp.WithNumber("limit", mcp.Description("Maximum sessions to return. Defaults to 20.")),
)

var toolGetMonthlyKPIs = mcp.NewTool("get_monthly_kpis",
	mcp.WithDescription("Aggregated training KPIs per calendar month: session count, total volume (kg), and total training time in seconds."),
	mcp.WithNumber("months", mcp.Description("How many months back to include. Defaults to 12.")),
)

var toolGetExerciseBaseline = mcp.NewTool("get_exercise_baseline",
	mcp.WithDescription("Personal record baseline for one exercise: the max weight ever lifted and the max estimated one-rep max across recent completed sets."),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Numeric exercise id")),
)

var toolGetRoutine = mcp.NewTool("get_routine",
	mcp.WithDescription("A routine definition with its planned exercises in order, including set counts and suggested weights."),
	mcp.WithString("routine_id", mcp.Required(), mcp.Description("Numeric routine id")),
)

// --- Tool handlers ---

func (h *handlers) getFinishedWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}

	workouts, err := h.ds.ListFinishedWorkouts(ctx, limit)
	if err != nil {
		h.log.Error("mcp get_finished_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *handlers) getMonthlyKPIs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	months := req.GetInt("months", 12)
	if months <= 0 {
		months = 12
	}

	kpis, err := h.ds.MonthlyKPIs(ctx, months)
	if err != nil {
		h.log.Error("mcp get_monthly_kpis", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(kpis)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *handlers) getExerciseBaseline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	exerciseID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return mcp.NewToolResultError("exercise_id must be numeric"), nil
	}

	history, err := h.ds.ExerciseHistory(ctx, exerciseID, h.historyWindow)
	if err != nil {
		h.log.Error("mcp get_exercise_baseline", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	var baseline pr.Baseline
	for _, set := range history {
		if set.Weight <= 0 || set.Reps <= 0 {
			continue
		}
		if set.Weight > baseline.MaxWeight {
			baseline.MaxWeight = set.Weight
		}
		if est := pr.Estimated1RM(set.Weight, set.Reps); est > baseline.MaxEstimated1RM {
			baseline.MaxEstimated1RM = est
		}
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"exercise_id":       exerciseID,
		"max_weight":        baseline.MaxWeight,
		"max_estimated_1rm": baseline.MaxEstimated1RM,
		"sets_considered":   len(history),
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *handlers) getRoutine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("routine_id")
	if err != nil {
		return mcp.NewToolResultError("routine_id parameter is required"), nil
	}
	routineID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return mcp.NewToolResultError("routine_id must be numeric"), nil
	}

	routine, err := h.ds.GetRoutine(ctx, routineID)
	if err != nil {
		h.log.Error("mcp get_routine", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(routine)
	if err != nil {
		return nil, err
	}
	return result, nil
}
