// Package finalize validates, aggregates, and atomically submits a finished
// session, then signals cache invalidation.
package finalize

import (
	"errors"
	"sort"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// ErrNoValidSets reports a finalize attempt on a session with no set that
// has both a parseable weight and reps. Raised and resolved entirely
// client-side; no network call is made.
var ErrNoValidSets = errors.New("no valid sets to save")

// BuildPayload assembles the single aggregate payload submitted to the
// gateway. Every set with parseable numeric weight and reps is included,
// completed or not; total volume counts completed sets only. Sets are
// ordered by exercise order, then index.
func BuildPayload(session models.WorkoutSession, endedAt time.Time, durationSeconds int, notes string, effort models.EffortRating) (*models.SessionPayload, error) {
	order := make(map[int64]int, len(session.Exercises))
	for _, ex := range session.Exercises {
		order[ex.ExerciseID] = ex.Order
	}

	var sets []models.SetPayload
	var totalVolume float64
	for _, ex := range session.Exercises {
		for _, set := range ex.Sets {
			weight, reps, ok := models.ParseSetNumbers(set)
			if !ok {
				continue
			}
			sp := models.SetPayload{
				ExerciseID: ex.ExerciseID,
				Index:      set.Index,
				Weight:     weight,
				Reps:       reps,
				Effort:     set.Effort,
				Completed:  set.Completed,
			}
			if set.Completed {
				totalVolume += weight * float64(reps)
				if set.CompletedAt != nil {
					t := *set.CompletedAt
					sp.CompletedAt = &t
				} else {
					t := endedAt
					sp.CompletedAt = &t
				}
			}
			sets = append(sets, sp)
		}
	}
	if len(sets) == 0 {
		return nil, ErrNoValidSets
	}

	sort.SliceStable(sets, func(i, j int) bool {
		if order[sets[i].ExerciseID] != order[sets[j].ExerciseID] {
			return order[sets[i].ExerciseID] < order[sets[j].ExerciseID]
		}
		return sets[i].Index < sets[j].Index
	})

	return &models.SessionPayload{
		RoutineID:       session.RoutineID,
		StartedAt:       session.StartedAt,
		EndedAt:         endedAt,
		DurationSeconds: durationSeconds,
		TotalVolume:     totalVolume,
		EffortLabel:     effort,
		Notes:           notes,
		Sets:            sets,
	}, nil
}
