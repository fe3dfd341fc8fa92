package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/mark3labs/mcp-go/server"
)

// DataSource abstracts the data layer for MCP tools. *storage.DB satisfies
// this interface.
type DataSource interface {
	ListFinishedWorkouts(ctx context.Context, limit int) ([]models.FinishedWorkout, error)
	MonthlyKPIs(ctx context.Context, months int) ([]models.MonthlyKPIs, error)
	ExerciseHistory(ctx context.Context, exerciseID int64, sessionWindow int) ([]models.HistoricalSet, error)
	GetRoutine(ctx context.Context, id int64) (*models.RoutineDefinition, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)

// New creates an MCP server with all tools and resources registered.
// historyWindow bounds how many recent sessions feed the PR baseline tool,
// matching the configured window the live detector uses.
func New(ds DataSource, historyWindow int, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftLog strength training server. Query finished workouts, monthly training KPIs, exercise history, and personal record baselines."),
	)

	if historyWindow <= 0 {
		historyWindow = defaultBaselineWindow
	}
	h := &handlers{ds: ds, historyWindow: historyWindow, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetFinishedWorkouts, Handler: h.getFinishedWorkouts},
		server.ServerTool{Tool: toolGetMonthlyKPIs, Handler: h.getMonthlyKPIs},
		server.ServerTool{Tool: toolGetExerciseBaseline, Handler: h.getExerciseBaseline},
		server.ServerTool{Tool: toolGetRoutine, Handler: h.getRoutine},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
		server.ServerResource{Resource: resTrainingKPIs, Handler: h.trainingKPIs},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds            DataSource
	historyWindow int
	log           *slog.Logger
}
