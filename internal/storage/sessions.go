package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/liftlog/internal/models"
)

// CreateSession persists a finalized session and all of its sets in a
// single transaction. Either the whole session lands or nothing does.
// Returns the new session id.
func (db *DB) CreateSession(ctx context.Context, payload *models.SessionPayload) (int64, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var sessionID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO training_sessions (routine_id, started_at, ended_at, duration_seconds, total_volume, effort_label, notes)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING id`,
		payload.RoutineID, payload.StartedAt, payload.EndedAt, payload.DurationSeconds,
		payload.TotalVolume, nullableEffort(payload.EffortLabel), nullableString(payload.Notes),
	).Scan(&sessionID)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}

	if len(payload.Sets) > 0 {
		query := `INSERT INTO session_sets (session_id, exercise_id, set_index, weight, reps, effort_rating, completed, completed_at) VALUES `
		args := make([]any, 0, len(payload.Sets)*8)
		valueStrings := make([]string, 0, len(payload.Sets))

		for i, s := range payload.Sets {
			base := i * 8
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
			))
			args = append(args, sessionID, s.ExerciseID, s.Index, s.Weight, s.Reps,
				nullableEffort(s.Effort), s.Completed, s.CompletedAt)
		}

		query += strings.Join(valueStrings, ",")
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("inserting session sets: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing session: %w", err)
	}
	return sessionID, nil
}

func nullableEffort(e models.EffortRating) any {
	if e == "" || e == models.EffortNone {
		return nil
	}
	return string(e)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
