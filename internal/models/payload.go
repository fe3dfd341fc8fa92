package models

import "time"

// SessionPayload is the single aggregate submitted to the persistence
// gateway at finalize. The remote create is atomic: it succeeds or fails as
// a whole, so the client never reconciles a partially created session.
type SessionPayload struct {
	RoutineID       int64        `json:"routine_id"`
	StartedAt       time.Time    `json:"started_at"`
	EndedAt         time.Time    `json:"ended_at"`
	DurationSeconds int          `json:"duration_seconds"`
	TotalVolume     float64      `json:"total_volume"`
	EffortLabel     EffortRating `json:"effort_label,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	Sets            []SetPayload `json:"sets"`
}

// SetPayload is one valid set within a SessionPayload. Only sets whose
// weight and reps parsed as numbers are included.
type SetPayload struct {
	ExerciseID  int64        `json:"exercise_id"`
	Index       int          `json:"index"`
	Weight      float64      `json:"weight"`
	Reps        int          `json:"reps"`
	Effort      EffortRating `json:"effort_rating,omitempty"`
	Completed   bool         `json:"completed"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// FinishedWorkout is one persisted session as listed by the history API.
type FinishedWorkout struct {
	SessionID       int64        `json:"session_id"`
	RoutineID       int64        `json:"routine_id"`
	RoutineName     string       `json:"routine_name"`
	StartedAt       time.Time    `json:"started_at"`
	EndedAt         time.Time    `json:"ended_at"`
	DurationSeconds int          `json:"duration_seconds"`
	TotalVolume     float64      `json:"total_volume"`
	EffortLabel     EffortRating `json:"effort_label,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	CompletedSets   int          `json:"completed_sets"`
}

// HistoricalSet is a prior completed weight/reps pair used to build a PR
// baseline for an exercise.
type HistoricalSet struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

// MonthlyKPIs summarizes a calendar month of finished sessions.
type MonthlyKPIs struct {
	Month        string  `json:"month"` // YYYY-MM
	Sessions     int     `json:"sessions"`
	TotalVolume  float64 `json:"total_volume"`
	TotalSeconds int     `json:"total_seconds"`
}
