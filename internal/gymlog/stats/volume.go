package stats

import (
	"sort"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/repo"
)

// EffectiveWeight is the weight actually moved in a workout entry.
// For body-weight type exercises that is the logged (additional)
// weight plus the bodyweight snapshot taken at log time, for
// everything else just the logged weight. Missing values count as 0.
func EffectiveWeight(w repo.Workout) float64 {
	var weight float64
	if w.Weight != nil {
		weight = *w.Weight
	}
	if w.ExerciseType == repo.ExerciseTypeBodyWeight && w.Bodyweight != nil {
		weight += *w.Bodyweight
	}
	return weight
}

// Volume of a single entry: sets x reps x effective weight.
// Missing sets or reps count as 1, so a cardio entry without
// a weight simply contributes 0.
func Volume(w repo.Workout) float64 {
	sets := 1
	if w.Sets != nil {
		sets = *w.Sets
	}
	reps := 1
	if w.Reps != nil {
		reps = *w.Reps
	}
	return float64(sets) * float64(reps) * EffectiveWeight(w)
}

// DayOf truncates a timestamp to its UTC calendar day
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type DayVolume struct {
	Day          time.Time `json:"day"`
	ExerciseName string    `json:"exerciseName"`
	Volume       float64   `json:"volume"`
}

// DailyVolumes aggregates entry volumes per (day, exercise) pair.
// Result is ordered by day descending, then exercise name ascending.
func DailyVolumes(workouts []repo.Workout) []DayVolume {
	type key struct {
		day  time.Time
		name string
	}
	byDayExercise := make(map[key]float64)
	for _, w := range workouts {
		k := key{day: DayOf(w.Timestamp), name: w.ExerciseName}
		byDayExercise[k] += Volume(w)
	}

	volumes := make([]DayVolume, 0, len(byDayExercise))
	for k, v := range byDayExercise {
		volumes = append(volumes, DayVolume{
			Day:          k.day,
			ExerciseName: k.name,
			Volume:       v,
		})
	}

	sort.Slice(volumes, func(i, j int) bool {
		if !volumes[i].Day.Equal(volumes[j].Day) {
			return volumes[i].Day.After(volumes[j].Day)
		}
		return volumes[i].ExerciseName < volumes[j].ExerciseName
	})

	return volumes
}

// TotalVolume sums entry volumes over all given workouts
func TotalVolume(workouts []repo.Workout) float64 {
	var total float64
	for _, w := range workouts {
		total += Volume(w)
	}
	return total
}
