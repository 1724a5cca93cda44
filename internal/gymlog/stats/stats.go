package stats

import (
	"errors"
	"sort"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/repo"
)

var ErrNoWorkoutData = errors.New("no workout data for exercise")

// ExerciseStats is the all-time summary for a single exercise.
// All values are in canonical units, display conversion is up to
// the caller.
type ExerciseStats struct {
	ExerciseName    string    `json:"exerciseName"`
	TotalWorkouts   int       `json:"totalWorkouts"`
	FirstWorkout    time.Time `json:"firstWorkout"`
	LastWorkout     time.Time `json:"lastWorkout"`
	TotalVolume     float64   `json:"totalVolume"`
	WorkoutsPerWeek float64   `json:"workoutsPerWeek"`
	Streaks         Streaks   `json:"streaks"`
	Bests           Bests     `json:"bests"`
}

// ComputeStats summarizes all entries of one exercise. An empty
// entry set is an error, not a zero valued summary, since first and
// last workout dates make no sense without data. Bodyweight history
// is used to fill in missing bodyweight snapshots on body-weight
// type entries before computing volumes and bests.
func ComputeStats(
	exerciseName string,
	workouts []repo.Workout,
	bodyweights []repo.BodyweightEntry,
	streakIntervalDays int,
	now time.Time,
) (ExerciseStats, error) {
	if len(workouts) == 0 {
		return ExerciseStats{}, ErrNoWorkoutData
	}

	workouts = WithBodyweightSnapshots(workouts, bodyweights)
	sort.Slice(workouts, func(i, j int) bool {
		return workouts[i].Timestamp.Before(workouts[j].Timestamp)
	})

	streaks, err := ComputeStreaks(workouts, streakIntervalDays, now)
	if err != nil {
		return ExerciseStats{}, err
	}

	first := workouts[0].Timestamp
	last := workouts[len(workouts)-1].Timestamp

	// span clamped to one week so a brand new exercise does not
	// report an absurd workouts per week figure
	weeks := last.Sub(first).Hours() / (24 * 7)
	if weeks < 1 {
		weeks = 1
	}

	return ExerciseStats{
		ExerciseName:    exerciseName,
		TotalWorkouts:   len(workouts),
		FirstWorkout:    first,
		LastWorkout:     last,
		TotalVolume:     TotalVolume(workouts),
		WorkoutsPerWeek: float64(len(workouts)) / weeks,
		Streaks:         streaks,
		Bests:           BestsOf(workouts),
	}, nil
}

// WithBodyweightSnapshots returns a copy of the given workouts where
// body-weight type entries missing a snapshot get the latest
// bodyweight measured at or before the entry timestamp. Entries that
// already carry a snapshot keep it.
func WithBodyweightSnapshots(workouts []repo.Workout, bodyweights []repo.BodyweightEntry) []repo.Workout {
	if len(bodyweights) == 0 {
		return workouts
	}

	sorted := make([]repo.BodyweightEntry, len(bodyweights))
	copy(sorted, bodyweights)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	filled := make([]repo.Workout, len(workouts))
	copy(filled, workouts)
	for i, w := range filled {
		if w.ExerciseType != repo.ExerciseTypeBodyWeight || w.Bodyweight != nil {
			continue
		}
		if bw, ok := bodyweightAt(sorted, w.Timestamp); ok {
			filled[i].Bodyweight = &bw
		}
	}
	return filled
}

// bodyweightAt finds the most recent bodyweight measured at or
// before the given timestamp, expects entries sorted ascending
func bodyweightAt(sorted []repo.BodyweightEntry, ts time.Time) (float64, bool) {
	found := false
	var weight float64
	for _, bw := range sorted {
		if bw.Timestamp.After(ts) {
			break
		}
		weight = bw.Weight
		found = true
	}
	return weight, found
}
