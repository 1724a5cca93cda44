package repo

import (
	"time"
)

type ExerciseType string

const (
	ExerciseTypeResistance ExerciseType = "resistance"
	ExerciseTypeCardio     ExerciseType = "cardio"
	ExerciseTypeBodyWeight ExerciseType = "body-weight"
)

func (t ExerciseType) IsValid() bool {
	switch t {
	case ExerciseTypeResistance, ExerciseTypeCardio, ExerciseTypeBodyWeight:
		return true
	default:
		return false
	}
}

// Exercise is a definition of a single exercise, e.g. "Bench Press".
// The name is unique, case-insensitive. Log flags say which metrics
// make sense to log (and thus which personal bests apply).
type Exercise struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Type        ExerciseType `json:"type"`
	Muscles     []string     `json:"muscles,omitempty"`
	LogWeight   bool         `json:"logWeight"`
	LogReps     bool         `json:"logReps"`
	LogDuration bool         `json:"logDuration"`
	LogDistance bool         `json:"logDistance"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Alias is an alternative, also unique, name for an exercise, e.g. "bp" for "Bench Press"
type Alias struct {
	Name         string    `json:"name"`
	ExerciseName string    `json:"exerciseName"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Workout is a single logged exercise session entry.
// Metric fields are optional, weight and distance are stored in
// canonical units (kilograms / kilometers). For body-weight type
// exercises, Bodyweight carries the bodyweight snapshot taken when
// the entry was logged, and the weight field holds only the
// additional weight.
type Workout struct {
	ID           int          `json:"id"`
	ExerciseName string       `json:"exerciseName"`
	ExerciseType ExerciseType `json:"exerciseType"`
	Timestamp    time.Time    `json:"timestamp"`
	Sets         *int         `json:"sets,omitempty"`
	Reps         *int         `json:"reps,omitempty"`
	Weight       *float64     `json:"weight,omitempty"`
	DurationMin  *int         `json:"durationMin,omitempty"`
	DistanceKm   *float64     `json:"distanceKm,omitempty"`
	Bodyweight   *float64     `json:"bodyweight,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// BodyweightEntry is a single bodyweight measurement
type BodyweightEntry struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"createdAt"`
}
