package stats

import (
	"github.com/2beens/ironlog/internal/gymlog/repo"
)

type PBMetric string

const (
	PBMetricWeight   PBMetric = "weight"
	PBMetricReps     PBMetric = "reps"
	PBMetricDuration PBMetric = "duration"
	PBMetricDistance PBMetric = "distance"
)

// Bests holds the best recorded value per metric, nil meaning the
// metric was never logged. Weight is the effective weight, duration
// in minutes, distance in kilometers.
type Bests struct {
	Weight      *float64 `json:"weight,omitempty"`
	Reps        *float64 `json:"reps,omitempty"`
	DurationMin *float64 `json:"durationMin,omitempty"`
	DistanceKm  *float64 `json:"distanceKm,omitempty"`
}

// BestsOf scans the given workouts and takes the max of each logged
// metric. Used both for all-time bests in exercise stats and for the
// prior bests fed to DetectPBs.
func BestsOf(workouts []repo.Workout) Bests {
	var bests Bests
	for _, w := range workouts {
		if v, ok := weightOf(w); ok {
			bests.Weight = maxVal(bests.Weight, v)
		}
		if v, ok := repsOf(w); ok {
			bests.Reps = maxVal(bests.Reps, v)
		}
		if v, ok := durationOf(w); ok {
			bests.DurationMin = maxVal(bests.DurationMin, v)
		}
		if v, ok := distanceOf(w); ok {
			bests.DistanceKm = maxVal(bests.DistanceKm, v)
		}
	}
	return bests
}

// PBCheck is the outcome of a personal best check for one metric of
// a newly logged entry. Previous is nil when the metric was never
// logged before, in which case the new value counts as a personal
// best.
type PBCheck struct {
	Metric   PBMetric `json:"metric"`
	Value    float64  `json:"value"`
	Previous *float64 `json:"previous,omitempty"`
	IsPB     bool     `json:"isPB"`
}

type PBInfo struct {
	Checks []PBCheck `json:"checks"`
}

func (i PBInfo) AnyPB() bool {
	for _, c := range i.Checks {
		if c.IsPB {
			return true
		}
	}
	return false
}

// PBs returns only the checks that are personal bests
func (i PBInfo) PBs() []PBCheck {
	var pbs []PBCheck
	for _, c := range i.Checks {
		if c.IsPB {
			pbs = append(pbs, c)
		}
	}
	return pbs
}

// DetectPBs checks a new entry against the supplied prior bests, one
// check per metric that the exercise logs and the entry carries. The
// caller queries the priors from history and persists the entry
// afterwards, the detector itself never touches storage. A personal
// best means strictly greater than the prior best, so matching a
// record is never a new record.
func DetectPBs(entry repo.Workout, priors Bests, exercise repo.Exercise) PBInfo {
	var info PBInfo
	if exercise.LogWeight {
		if v, ok := weightOf(entry); ok {
			info.Checks = append(info.Checks, checkMetric(PBMetricWeight, v, priors.Weight))
		}
	}
	if exercise.LogReps {
		if v, ok := repsOf(entry); ok {
			info.Checks = append(info.Checks, checkMetric(PBMetricReps, v, priors.Reps))
		}
	}
	if exercise.LogDuration {
		if v, ok := durationOf(entry); ok {
			info.Checks = append(info.Checks, checkMetric(PBMetricDuration, v, priors.DurationMin))
		}
	}
	if exercise.LogDistance {
		if v, ok := distanceOf(entry); ok {
			info.Checks = append(info.Checks, checkMetric(PBMetricDistance, v, priors.DistanceKm))
		}
	}
	return info
}

func checkMetric(metric PBMetric, value float64, prior *float64) PBCheck {
	return PBCheck{
		Metric:   metric,
		Value:    value,
		Previous: prior,
		IsPB:     prior == nil || value > *prior,
	}
}

func maxVal(current *float64, v float64) *float64 {
	if current == nil || v > *current {
		return &v
	}
	return current
}

func hasWeight(w repo.Workout) bool {
	if w.Weight != nil {
		return true
	}
	return w.ExerciseType == repo.ExerciseTypeBodyWeight && w.Bodyweight != nil
}

func weightOf(w repo.Workout) (float64, bool) {
	if !hasWeight(w) {
		return 0, false
	}
	return EffectiveWeight(w), true
}

func repsOf(w repo.Workout) (float64, bool) {
	if w.Reps == nil {
		return 0, false
	}
	return float64(*w.Reps), true
}

func durationOf(w repo.Workout) (float64, bool) {
	if w.DurationMin == nil {
		return 0, false
	}
	return float64(*w.DurationMin), true
}

func distanceOf(w repo.Workout) (float64, bool) {
	if w.DistanceKm == nil {
		return 0, false
	}
	return *w.DistanceKm, true
}
