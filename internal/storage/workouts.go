package storage

import (
	"context"
	"fmt"

	"github.com/claude/liftlog/internal/models"
)

// ListFinishedWorkouts retrieves the most recent finished sessions, newest
// first.
func (db *DB) ListFinishedWorkouts(ctx context.Context, limit int) ([]models.FinishedWorkout, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT ts.id, ts.routine_id, COALESCE(r.name, ''), ts.started_at, ts.ended_at,
		 ts.duration_seconds, ts.total_volume, COALESCE(ts.effort_label, ''), COALESCE(ts.notes, ''),
		 (SELECT COUNT(*) FROM session_sets ss WHERE ss.session_id = ts.id AND ss.completed)
		 FROM training_sessions ts
		 LEFT JOIN routines r ON r.id = ts.routine_id
		 ORDER BY ts.ended_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying finished workouts: %w", err)
	}
	defer rows.Close()

	var result []models.FinishedWorkout
	for rows.Next() {
		var w models.FinishedWorkout
		var effort string
		if err := rows.Scan(&w.SessionID, &w.RoutineID, &w.RoutineName, &w.StartedAt, &w.EndedAt,
			&w.DurationSeconds, &w.TotalVolume, &effort, &w.Notes, &w.CompletedSets); err != nil {
			return nil, fmt.Errorf("scanning finished workout: %w", err)
		}
		w.EffortLabel = models.ParseEffort(effort)
		result = append(result, w)
	}
	return result, rows.Err()
}

// MonthlyKPIs aggregates finished sessions by calendar month over the last
// `months` months, newest first.
func (db *DB) MonthlyKPIs(ctx context.Context, months int) ([]models.MonthlyKPIs, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT to_char(ended_at, 'YYYY-MM') AS month,
		 COUNT(*), COALESCE(SUM(total_volume), 0), COALESCE(SUM(duration_seconds), 0)
		 FROM training_sessions
		 WHERE ended_at >= date_trunc('month', now()) - ($1 || ' months')::interval
		 GROUP BY month
		 ORDER BY month DESC`,
		months)
	if err != nil {
		return nil, fmt.Errorf("querying monthly KPIs: %w", err)
	}
	defer rows.Close()

	var result []models.MonthlyKPIs
	for rows.Next() {
		var k models.MonthlyKPIs
		if err := rows.Scan(&k.Month, &k.Sessions, &k.TotalVolume, &k.TotalSeconds); err != nil {
			return nil, fmt.Errorf("scanning monthly KPIs: %w", err)
		}
		result = append(result, k)
	}
	return result, rows.Err()
}
