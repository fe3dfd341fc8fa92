package models

import "strconv"

// ParseSetNumbers coerces a set's raw weight/reps text. ok is false when
// either value is not numeric or is negative. Editing keeps the raw text;
// aggregation, PR classification, and finalize all coerce through here.
func ParseSetNumbers(set SessionSet) (weight float64, reps int, ok bool) {
	weight, err := strconv.ParseFloat(set.Weight, 64)
	if err != nil || weight < 0 {
		return 0, 0, false
	}
	reps, err = strconv.Atoi(set.Reps)
	if err != nil || reps < 0 {
		return 0, 0, false
	}
	return weight, reps, true
}
