package models

// RoutineDefinition is the seed input consumed once when a session starts.
// The wire format (field names included) is owned by the routine service.
type RoutineDefinition struct {
	ID          int64             `json:"id_rutina"`
	Name        string            `json:"nombre"`
	Description string            `json:"descripcion"`
	Exercises   []RoutineExercise `json:"ejercicios"`
}

// RoutineExercise is one planned exercise within a routine, carrying the
// denormalized catalog fields the editor renders.
type RoutineExercise struct {
	ExerciseID      int64    `json:"id_ejercicio"`
	Name            string   `json:"nombre"`
	Image           string   `json:"imagen"`
	Series          int      `json:"series"`
	Reps            *int     `json:"repeticiones"`
	SuggestedWeight *float64 `json:"peso_sugerido"`
	Order           int      `json:"orden"`
}

// CatalogExercise is the minimal catalog record needed to add an ad-hoc
// exercise mid-session.
type CatalogExercise struct {
	ID    int64  `json:"id"`
	Name  string `json:"nombre"`
	Image string `json:"imagen,omitempty"`
}

// AdHocConfig optionally pre-configures an ad-hoc exercise's sets.
type AdHocConfig struct {
	Series int     `json:"series"`
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
}
