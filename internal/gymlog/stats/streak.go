package stats

import (
	"errors"
	"sort"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/repo"
)

var ErrInvalidStreakInterval = errors.New("streak interval must be at least 1 day")

// Streaks describes workout regularity. A streak is a run of workout
// days where the gap between consecutive days never exceeds the
// configured interval. Multiple workouts on the same day count once.
type Streaks struct {
	Current        int `json:"current"`
	Longest        int `json:"longest"`
	LongestGapDays int `json:"longestGapDays"`
	WorkoutDays    int `json:"workoutDays"`
}

// ComputeStreaks calculates streaks over all given workouts, with
// intervalDays being the max allowed gap between two consecutive
// workout days for the streak to continue. The current streak drops
// to 0 when more than intervalDays have passed between the last
// workout day and now.
func ComputeStreaks(workouts []repo.Workout, intervalDays int, now time.Time) (Streaks, error) {
	if intervalDays < 1 {
		return Streaks{}, ErrInvalidStreakInterval
	}

	days := distinctDays(workouts)
	if len(days) == 0 {
		return Streaks{}, nil
	}

	current, longest, longestGap := 1, 1, 0
	for i := 1; i < len(days); i++ {
		gap := daysBetween(days[i-1], days[i])
		if gap > longestGap {
			longestGap = gap
		}
		if gap <= intervalDays {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
	}

	if daysBetween(days[len(days)-1], DayOf(now)) > intervalDays {
		current = 0
	}

	return Streaks{
		Current:        current,
		Longest:        longest,
		LongestGapDays: longestGap,
		WorkoutDays:    len(days),
	}, nil
}

func distinctDays(workouts []repo.Workout) []time.Time {
	daysSet := make(map[time.Time]struct{})
	for _, w := range workouts {
		daysSet[DayOf(w.Timestamp)] = struct{}{}
	}
	days := make([]time.Time, 0, len(daysSet))
	for d := range daysSet {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Before(days[j])
	})
	return days
}

// daysBetween counts calendar days from a to b, both UTC midnights
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
