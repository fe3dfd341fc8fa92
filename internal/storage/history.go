package storage

import (
	"context"
	"fmt"

	"github.com/claude/liftlog/internal/models"
)

// ExerciseHistory returns the completed sets recorded for an exercise in
// the most recent finished sessions, bounded by sessionWindow sessions.
// Incomplete sets never contribute to PR baselines.
func (db *DB) ExerciseHistory(ctx context.Context, exerciseID int64, sessionWindow int) ([]models.HistoricalSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT ss.weight, ss.reps
		 FROM session_sets ss
		 WHERE ss.exercise_id = $1 AND ss.completed
		   AND ss.session_id IN (
		     SELECT id FROM training_sessions ORDER BY ended_at DESC LIMIT $2
		   )
		 ORDER BY ss.session_id DESC, ss.set_index ASC`,
		exerciseID, sessionWindow)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	defer rows.Close()

	var result []models.HistoricalSet
	for rows.Next() {
		var h models.HistoricalSet
		if err := rows.Scan(&h.Weight, &h.Reps); err != nil {
			return nil, fmt.Errorf("scanning historical set: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// HistoryReader adapts DB to the baseline provider contract with a fixed
// session window.
type HistoryReader struct {
	DB     *DB
	Window int
}

// ExerciseHistory returns the exercise's completed sets within the
// configured window.
func (r *HistoryReader) ExerciseHistory(ctx context.Context, exerciseID int64) ([]models.HistoricalSet, error) {
	return r.DB.ExerciseHistory(ctx, exerciseID, r.Window)
}
