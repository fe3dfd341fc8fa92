package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// --- Resource definitions ---

var resRecentWorkouts = mcp.NewResource(
	"liftlog://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("The 10 most recently finished training sessions"),
	mcp.WithMIMEType("application/json"),
)

var resTrainingKPIs = mcp.NewResource(
	"liftlog://training_kpis",
	"Training KPIs",
	mcp.WithResourceDescription("Monthly session count, volume, and training time for the last 6 months"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	workouts, err := h.ds.ListFinishedWorkouts(ctx, 10)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(workouts)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) trainingKPIs(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	kpis, err := h.ds.MonthlyKPIs(ctx, 6)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(kpis)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
