package repo

import (
	"strings"
	"time"
)

// Filter narrows a set of workout entries, both in SQL listing and
// in memory. Zero valued criteria impose no constraint, supplied
// criteria are ANDed together. The date range is inclusive on both
// ends, a range with From after To simply matches nothing. The
// exercise name is expected to be alias resolved already.
type Filter struct {
	ExerciseName    string
	ExerciseType    ExerciseType
	From            *time.Time
	To              *time.Time
	MuscleSubstring string
}

func (f Filter) IsZero() bool {
	return f.ExerciseName == "" &&
		f.ExerciseType == "" &&
		f.From == nil &&
		f.To == nil &&
		f.MuscleSubstring == ""
}

// Matches reports whether the entry passes the filter. The muscles
// of the entry's exercise are supplied by the caller since entries
// do not carry them, they are only consulted for the muscle
// substring criterion.
func (f Filter) Matches(w Workout, muscles []string) bool {
	if f.ExerciseName != "" && !strings.EqualFold(f.ExerciseName, w.ExerciseName) {
		return false
	}
	if f.ExerciseType != "" && f.ExerciseType != w.ExerciseType {
		return false
	}
	if f.From != nil && w.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && w.Timestamp.After(*f.To) {
		return false
	}
	if f.MuscleSubstring != "" && !muscleMatch(muscles, f.MuscleSubstring) {
		return false
	}
	return true
}

// Apply filters the given entries in memory, musclesOf maps exercise
// names to their muscle groups
func (f Filter) Apply(workouts []Workout, musclesOf map[string][]string) []Workout {
	if f.IsZero() {
		return workouts
	}
	var filtered []Workout
	for _, w := range workouts {
		if f.Matches(w, musclesOf[w.ExerciseName]) {
			filtered = append(filtered, w)
		}
	}
	return filtered
}

func muscleMatch(muscles []string, substring string) bool {
	substring = strings.ToLower(substring)
	for _, m := range muscles {
		if strings.Contains(strings.ToLower(m), substring) {
			return true
		}
	}
	return false
}
