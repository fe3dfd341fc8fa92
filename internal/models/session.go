package models

import "time"

// WorkoutSession is the in-progress session aggregate. It exists only while
// a session is being edited; a finished session lives in the database.
type WorkoutSession struct {
	ID          string            `json:"id"`
	RoutineID   int64             `json:"routine_id"`
	RoutineName string            `json:"routine_name"`
	StartedAt   time.Time         `json:"started_at"`
	Exercises   []SessionExercise `json:"exercises"`
}

// SessionExercise is one exercise within a session. Order is 1-based and
// stays contiguous across all exercises after removals and reorders.
type SessionExercise struct {
	ExerciseID int64        `json:"exercise_id"`
	Name       string       `json:"name"`
	Image      string       `json:"image,omitempty"`
	Order      int          `json:"order"`
	Sets       []SessionSet `json:"sets"`
}

// SessionSet is one recorded attempt within an exercise. Weight and reps are
// held as raw editable text; numeric coercion is deferred to aggregation and
// finalize. Index is 1-based and contiguous within its exercise.
type SessionSet struct {
	Index       int          `json:"index"`
	Weight      string       `json:"weight"`
	Reps        string       `json:"reps"`
	Effort      EffortRating `json:"effort_rating"`
	Completed   bool         `json:"completed"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// Snapshot is the durable serialization of an in-progress session, keyed by
// session id in local storage.
type Snapshot struct {
	Session WorkoutSession `json:"session"`
	Active  bool           `json:"active"`
}

// Aggregates are the derived counters recomputed after every mutation.
type Aggregates struct {
	CompletedSets int     `json:"completed_sets"`
	TotalSets     int     `json:"total_sets"`
	TotalVolume   float64 `json:"total_volume"`
}

// Clone returns a deep copy of the session. Snapshot writers hold copies so
// a pending debounce never observes a half-applied mutation.
func (s *WorkoutSession) Clone() WorkoutSession {
	out := *s
	out.Exercises = make([]SessionExercise, len(s.Exercises))
	for i, ex := range s.Exercises {
		cp := ex
		cp.Sets = make([]SessionSet, len(ex.Sets))
		copy(cp.Sets, ex.Sets)
		for j, set := range ex.Sets {
			if set.CompletedAt != nil {
				t := *set.CompletedAt
				cp.Sets[j].CompletedAt = &t
			}
		}
		out.Exercises[i] = cp
	}
	return out
}
