package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/liftlog/internal/models"
	"github.com/jackc/pgx/v5"
)

// ErrRoutineNotFound reports a routine id with no row.
var ErrRoutineNotFound = errors.New("routine not found")

// GetRoutine retrieves a routine definition with its exercises in planned
// order.
func (db *DB) GetRoutine(ctx context.Context, id int64) (*models.RoutineDefinition, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(description, '') FROM routines WHERE id = $1`, id)

	var def models.RoutineDefinition
	if err := row.Scan(&def.ID, &def.Name, &def.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrRoutineNotFound, id)
		}
		return nil, fmt.Errorf("querying routine: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_id, name, COALESCE(image, ''), series, reps, suggested_weight, position
		 FROM routine_exercises
		 WHERE routine_id = $1
		 ORDER BY position ASC`,
		id)
	if err != nil {
		return nil, fmt.Errorf("querying routine exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ex models.RoutineExercise
		if err := rows.Scan(&ex.ExerciseID, &ex.Name, &ex.Image, &ex.Series, &ex.Reps, &ex.SuggestedWeight, &ex.Order); err != nil {
			return nil, fmt.Errorf("scanning routine exercise: %w", err)
		}
		def.Exercises = append(def.Exercises, ex)
	}
	return &def, rows.Err()
}

// GetCatalogExercise retrieves one exercise from the catalog for ad-hoc
// addition to a live session.
func (db *DB) GetCatalogExercise(ctx context.Context, id int64) (*models.CatalogExercise, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(image, '') FROM exercises WHERE id = $1`, id)

	var ex models.CatalogExercise
	if err := row.Scan(&ex.ID, &ex.Name, &ex.Image); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("exercise not found: %d", id)
		}
		return nil, fmt.Errorf("querying exercise: %w", err)
	}
	return &ex, nil
}
