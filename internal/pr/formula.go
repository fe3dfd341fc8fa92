// Package pr detects personal records by comparing live sets against
// historical per-exercise baselines.
package pr

// Estimated1RM estimates the one-rep max for a sub-maximal weight/reps pair
// using the Epley formula: weight * (1 + reps/30).
func Estimated1RM(weight float64, reps int) float64 {
	return weight * (1 + float64(reps)/30)
}
