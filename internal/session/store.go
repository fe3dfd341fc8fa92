// Package session owns the live workout session aggregate: the mutation
// engine that keeps it consistent, the stopwatch, and the manager that hosts
// active editors.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
)

var (
	// ErrDuplicateExercise reports an ad-hoc add of an exercise already in
	// the session. Surfaced to the user as a conflict.
	ErrDuplicateExercise = errors.New("exercise already in session")

	// ErrNotFound reports a mutation addressed at an exercise or set that
	// does not exist in the current state.
	ErrNotFound = errors.New("no such exercise or set")

	// ErrInvalidField reports an UpdateSetField call with an unknown field
	// name.
	ErrInvalidField = errors.New("unknown set field")
)

// Field names accepted by UpdateSetField.
const (
	FieldWeight = "weight"
	FieldReps   = "reps"
	FieldEffort = "effort_rating"
)

// Store holds one in-progress session and applies mutations to it. All
// operations are synchronous and run to completion; the store has exactly
// one writer at a time (the Manager serializes access), so it carries no
// locking of its own.
type Store struct {
	session models.WorkoutSession
	now     func() time.Time
}

// Seed builds a session from a routine definition. Each routine exercise
// yields Series sets (or one if unspecified) pre-filled with the suggested
// weight and reps; exercise order comes from the routine.
func Seed(routine *models.RoutineDefinition, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}

	exercises := make([]models.RoutineExercise, len(routine.Exercises))
	copy(exercises, routine.Exercises)
	sort.SliceStable(exercises, func(i, j int) bool {
		if exercises[i].Order != exercises[j].Order {
			return exercises[i].Order < exercises[j].Order
		}
		return exercises[i].ExerciseID < exercises[j].ExerciseID
	})

	session := models.WorkoutSession{
		ID:          uuid.NewString(),
		RoutineID:   routine.ID,
		RoutineName: routine.Name,
		StartedAt:   now(),
	}

	for i, ex := range exercises {
		count := ex.Series
		if count < 1 {
			count = 1
		}
		var weight, reps string
		if ex.SuggestedWeight != nil {
			weight = strconv.FormatFloat(*ex.SuggestedWeight, 'f', -1, 64)
		}
		if ex.Reps != nil {
			reps = strconv.Itoa(*ex.Reps)
		}

		sets := make([]models.SessionSet, count)
		for j := range sets {
			sets[j] = models.SessionSet{Index: j + 1, Weight: weight, Reps: reps, Effort: models.EffortNone}
		}
		session.Exercises = append(session.Exercises, models.SessionExercise{
			ExerciseID: ex.ExerciseID,
			Name:       ex.Name,
			Image:      ex.Image,
			Order:      i + 1,
			Sets:       sets,
		})
	}

	return &Store{session: session, now: now}
}

// Restore rebuilds a store around a previously snapshotted session.
func Restore(session models.WorkoutSession, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{session: session.Clone(), now: now}
}

// Session returns a deep copy of the current state.
func (s *Store) Session() models.WorkoutSession {
	return s.session.Clone()
}

// ID returns the session id.
func (s *Store) ID() string { return s.session.ID }

// StartedAt returns the seed timestamp.
func (s *Store) StartedAt() time.Time { return s.session.StartedAt }

// ToggleSetCompletion flips a set's completed flag. The completion timestamp
// is written only on the transition to completed; un-toggling keeps the
// prior timestamp so re-checking restores the original completion time. The
// stale value never reaches a persisted session: finalize emits it only for
// completed sets.
func (s *Store) ToggleSetCompletion(exerciseIdx, setIdx int) error {
	set, err := s.set(exerciseIdx, setIdx)
	if err != nil {
		return err
	}
	set.Completed = !set.Completed
	if set.Completed {
		t := s.now()
		set.CompletedAt = &t
	}
	return nil
}

// UpdateSetField replaces the raw text value of weight, reps, or the effort
// rating. No numeric coercion happens here; parsing is deferred to
// aggregation and finalize.
func (s *Store) UpdateSetField(exerciseIdx, setIdx int, field, value string) error {
	set, err := s.set(exerciseIdx, setIdx)
	if err != nil {
		return err
	}
	switch field {
	case FieldWeight:
		set.Weight = value
	case FieldReps:
		set.Reps = value
	case FieldEffort:
		set.Effort = models.ParseEffort(value)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	return nil
}

// AddSet appends a set to an exercise, carrying forward the previous set's
// weight and reps as a convenience. Index is the previous maximum plus one.
func (s *Store) AddSet(exerciseIdx int) error {
	ex, err := s.exercise(exerciseIdx)
	if err != nil {
		return err
	}
	next := models.SessionSet{Index: 1, Effort: models.EffortNone}
	if n := len(ex.Sets); n > 0 {
		last := ex.Sets[n-1]
		next.Index = last.Index + 1
		next.Weight = last.Weight
		next.Reps = last.Reps
	}
	ex.Sets = append(ex.Sets, next)
	return nil
}

// RemoveSet deletes a set and reindexes the remainder to a contiguous 1..N.
func (s *Store) RemoveSet(exerciseIdx, setIdx int) error {
	ex, err := s.exercise(exerciseIdx)
	if err != nil {
		return err
	}
	if setIdx < 0 || setIdx >= len(ex.Sets) {
		return fmt.Errorf("%w: set %d", ErrNotFound, setIdx)
	}
	ex.Sets = append(ex.Sets[:setIdx], ex.Sets[setIdx+1:]...)
	for i := range ex.Sets {
		ex.Sets[i].Index = i + 1
	}
	return nil
}

// RemoveExercise deletes an exercise and renumbers the remaining exercises'
// order to a contiguous 1..N.
func (s *Store) RemoveExercise(exerciseIdx int) error {
	if exerciseIdx < 0 || exerciseIdx >= len(s.session.Exercises) {
		return fmt.Errorf("%w: exercise %d", ErrNotFound, exerciseIdx)
	}
	s.session.Exercises = append(s.session.Exercises[:exerciseIdx], s.session.Exercises[exerciseIdx+1:]...)
	for i := range s.session.Exercises {
		s.session.Exercises[i].Order = i + 1
	}
	return nil
}

// Reorder applies a drag-and-drop commit atomically: orderedIDs lists every
// exercise id in its new position, and order values are rewritten 1..N.
// Set data is untouched. The id list must be a permutation of the current
// exercises.
func (s *Store) Reorder(orderedIDs []int64) error {
	if len(orderedIDs) != len(s.session.Exercises) {
		return fmt.Errorf("reorder: got %d ids, have %d exercises", len(orderedIDs), len(s.session.Exercises))
	}
	byID := make(map[int64]*models.SessionExercise, len(s.session.Exercises))
	for i := range s.session.Exercises {
		byID[s.session.Exercises[i].ExerciseID] = &s.session.Exercises[i]
	}

	next := make([]models.SessionExercise, 0, len(orderedIDs))
	for pos, id := range orderedIDs {
		ex, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: exercise id %d", ErrNotFound, id)
		}
		delete(byID, id)
		cp := *ex
		cp.Order = pos + 1
		next = append(next, cp)
	}
	s.session.Exercises = next
	return nil
}

// AddAdHocExercise appends a catalog exercise mid-session at order
// max(order)+1. A duplicate exercise id is rejected with
// ErrDuplicateExercise. With a config, the exercise gets the configured set
// count pre-filled with the configured weight/reps; otherwise one empty set.
func (s *Store) AddAdHocExercise(ex models.CatalogExercise, cfg *models.AdHocConfig) error {
	for _, existing := range s.session.Exercises {
		if existing.ExerciseID == ex.ID {
			return fmt.Errorf("%w: id %d", ErrDuplicateExercise, ex.ID)
		}
	}

	maxOrder := 0
	for _, existing := range s.session.Exercises {
		if existing.Order > maxOrder {
			maxOrder = existing.Order
		}
	}

	var sets []models.SessionSet
	if cfg != nil {
		count := cfg.Series
		if count < 1 {
			count = 1
		}
		weight := strconv.FormatFloat(cfg.Weight, 'f', -1, 64)
		reps := strconv.Itoa(cfg.Reps)
		sets = make([]models.SessionSet, count)
		for i := range sets {
			sets[i] = models.SessionSet{Index: i + 1, Weight: weight, Reps: reps, Effort: models.EffortNone}
		}
	} else {
		sets = []models.SessionSet{{Index: 1, Effort: models.EffortNone}}
	}

	s.session.Exercises = append(s.session.Exercises, models.SessionExercise{
		ExerciseID: ex.ID,
		Name:       ex.Name,
		Image:      ex.Image,
		Order:      maxOrder + 1,
		Sets:       sets,
	})
	return nil
}

// Aggregates recomputes the derived counters from scratch. Set counts are
// bounded (tens, not thousands), so a full scan after every mutation is
// cheaper to reason about than incremental maintenance.
func (s *Store) Aggregates() models.Aggregates {
	var agg models.Aggregates
	for _, ex := range s.session.Exercises {
		agg.TotalSets += len(ex.Sets)
		for _, set := range ex.Sets {
			if !set.Completed {
				continue
			}
			agg.CompletedSets++
			weight, reps, ok := models.ParseSetNumbers(set)
			if ok {
				agg.TotalVolume += weight * float64(reps)
			}
		}
	}
	return agg
}

func (s *Store) exercise(idx int) (*models.SessionExercise, error) {
	if idx < 0 || idx >= len(s.session.Exercises) {
		return nil, fmt.Errorf("%w: exercise %d", ErrNotFound, idx)
	}
	return &s.session.Exercises[idx], nil
}

func (s *Store) set(exerciseIdx, setIdx int) (*models.SessionSet, error) {
	ex, err := s.exercise(exerciseIdx)
	if err != nil {
		return nil, err
	}
	if setIdx < 0 || setIdx >= len(ex.Sets) {
		return nil, fmt.Errorf("%w: set %d", ErrNotFound, setIdx)
	}
	return &ex.Sets[setIdx], nil
}
