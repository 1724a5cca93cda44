package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/repo"
)

type GraphType string

const (
	GraphTypeEstimated1RM    GraphType = "estimated-1rm"
	GraphTypeMaxWeight       GraphType = "max-weight"
	GraphTypeMaxReps         GraphType = "max-reps"
	GraphTypeWorkoutVolume   GraphType = "workout-volume"
	GraphTypeWorkoutReps     GraphType = "workout-reps"
	GraphTypeWorkoutDuration GraphType = "workout-duration"
	GraphTypeWorkoutDistance GraphType = "workout-distance"
)

func ParseGraphType(raw string) (GraphType, error) {
	t := GraphType(raw)
	switch t {
	case GraphTypeEstimated1RM, GraphTypeMaxWeight, GraphTypeMaxReps,
		GraphTypeWorkoutVolume, GraphTypeWorkoutReps,
		GraphTypeWorkoutDuration, GraphTypeWorkoutDistance:
		return t, nil
	default:
		return "", fmt.Errorf("invalid graph type [%s]", raw)
	}
}

type GraphPoint struct {
	Day   time.Time `json:"day"`
	Value float64   `json:"value"`
}

// GraphSeries produces one point per workout day for the given graph
// type, ordered by day ascending. Max based series skip days where no
// entry logged the metric, sum based series include every workout day.
func GraphSeries(workouts []repo.Workout, graphType GraphType) ([]GraphPoint, error) {
	switch graphType {
	case GraphTypeEstimated1RM:
		return maxSeries(workouts, estimated1RMOf), nil
	case GraphTypeMaxWeight:
		return maxSeries(workouts, weightOf), nil
	case GraphTypeMaxReps:
		return maxSeries(workouts, repsOf), nil
	case GraphTypeWorkoutVolume:
		return sumSeries(workouts, func(w repo.Workout) float64 { return Volume(w) }), nil
	case GraphTypeWorkoutReps:
		return sumSeries(workouts, totalRepsOf), nil
	case GraphTypeWorkoutDuration:
		return sumSeries(workouts, func(w repo.Workout) float64 {
			v, _ := durationOf(w)
			return v
		}), nil
	case GraphTypeWorkoutDistance:
		return sumSeries(workouts, func(w repo.Workout) float64 {
			v, _ := distanceOf(w)
			return v
		}), nil
	default:
		return nil, fmt.Errorf("invalid graph type [%s]", graphType)
	}
}

// estimated1RMOf estimates the one rep max via the Epley formula,
// weight x (1 + reps/30). Entries without a weight yield no estimate,
// missing reps count as a single rep.
func estimated1RMOf(w repo.Workout) (float64, bool) {
	weight, ok := weightOf(w)
	if !ok {
		return 0, false
	}
	reps := 1
	if w.Reps != nil {
		reps = *w.Reps
	}
	return weight * (1 + float64(reps)/30), true
}

func totalRepsOf(w repo.Workout) float64 {
	if w.Reps == nil {
		return 0
	}
	sets := 1
	if w.Sets != nil {
		sets = *w.Sets
	}
	return float64(sets * *w.Reps)
}

func maxSeries(workouts []repo.Workout, metricOf func(repo.Workout) (float64, bool)) []GraphPoint {
	byDay := make(map[time.Time]float64)
	for _, w := range workouts {
		v, ok := metricOf(w)
		if !ok {
			continue
		}
		day := DayOf(w.Timestamp)
		if current, found := byDay[day]; !found || v > current {
			byDay[day] = v
		}
	}
	return sortedPoints(byDay)
}

func sumSeries(workouts []repo.Workout, valueOf func(repo.Workout) float64) []GraphPoint {
	byDay := make(map[time.Time]float64)
	for _, w := range workouts {
		byDay[DayOf(w.Timestamp)] += valueOf(w)
	}
	return sortedPoints(byDay)
}

func sortedPoints(byDay map[time.Time]float64) []GraphPoint {
	points := make([]GraphPoint, 0, len(byDay))
	for day, value := range byDay {
		points = append(points, GraphPoint{Day: day, Value: value})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Day.Before(points[j].Day)
	})
	return points
}
