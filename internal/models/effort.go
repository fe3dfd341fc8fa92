package models

import "strings"

// EffortRating is the perceived-effort label for a set. The keys are stable
// internal identifiers; display text is a presentation concern.
type EffortRating string

const (
	EffortNone     EffortRating = "none"
	EffortEasy     EffortRating = "easy"
	EffortModerate EffortRating = "moderate"
	EffortHard     EffortRating = "hard"
	EffortVeryHard EffortRating = "very_hard"
	EffortFailure  EffortRating = "failure"
)

// EffortRatings lists all ratings in ascending intensity.
var EffortRatings = []EffortRating{
	EffortNone, EffortEasy, EffortModerate, EffortHard, EffortVeryHard, EffortFailure,
}

// effortAliases maps normalized input, including the legacy localized labels
// stored by older clients, to stable keys.
var effortAliases = map[string]EffortRating{
	"none":            EffortNone,
	"easy":            EffortEasy,
	"moderate":        EffortModerate,
	"hard":            EffortHard,
	"very_hard":       EffortVeryHard,
	"very hard":       EffortVeryHard,
	"failure":         EffortFailure,
	"facil":           EffortEasy,
	"fácil":           EffortEasy,
	"moderado":        EffortModerate,
	"dificil":         EffortHard,
	"difícil":         EffortHard,
	"muy dificil":     EffortVeryHard,
	"muy difícil":     EffortVeryHard,
	"al fallo":        EffortFailure,
	"sin sensaciones": EffortNone,
}

// ParseEffort normalizes free-form effort input to a stable rating.
// Unrecognized or empty input maps to EffortNone.
func ParseEffort(v string) EffortRating {
	key := strings.ToLower(strings.TrimSpace(v))
	if r, ok := effortAliases[key]; ok {
		return r
	}
	return EffortNone
}

// Valid reports whether e is one of the closed set of ratings.
func (e EffortRating) Valid() bool {
	for _, r := range EffortRatings {
		if e == r {
			return true
		}
	}
	return false
}

// Label returns the English display label for the rating.
func (e EffortRating) Label() string {
	switch e {
	case EffortEasy:
		return "Easy"
	case EffortModerate:
		return "Moderate"
	case EffortHard:
		return "Hard"
	case EffortVeryHard:
		return "Very hard"
	case EffortFailure:
		return "To failure"
	default:
		return "No rating"
	}
}
