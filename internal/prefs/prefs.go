package prefs

import (
	"errors"
	"fmt"

	"github.com/2beens/ironlog/internal/gymlog/stats"
)

var ErrBadPatch = errors.New("bad preferences patch")

// Preferences drive the display edge and the engine knobs. They are
// a single user document, persisted as a TOML file next to the
// server, not a database table.
type Preferences struct {
	Units              stats.Units     `toml:"units" json:"units"`
	TargetBodyweight   float64         `toml:"target_bodyweight" json:"targetBodyweight"`
	PromptBodyweight   bool            `toml:"prompt_bodyweight" json:"promptBodyweight"`
	StreakIntervalDays int             `toml:"streak_interval_days" json:"streakIntervalDays"`
	PBNotifications    PBNotifications `toml:"pb_notifications" json:"pbNotifications"`
}

type PBNotifications struct {
	Enabled  bool `toml:"enabled" json:"enabled"`
	Weight   bool `toml:"weight" json:"weight"`
	Reps     bool `toml:"reps" json:"reps"`
	Duration bool `toml:"duration" json:"duration"`
	Distance bool `toml:"distance" json:"distance"`
}

func Defaults() Preferences {
	return Preferences{
		Units:              stats.UnitsMetric,
		StreakIntervalDays: 1,
		PBNotifications: PBNotifications{
			Enabled:  true,
			Weight:   true,
			Reps:     true,
			Duration: true,
			Distance: true,
		},
	}
}

func (p Preferences) Validate() error {
	if !p.Units.IsValid() {
		return fmt.Errorf("invalid units [%s]", p.Units)
	}
	if p.StreakIntervalDays < 1 {
		return stats.ErrInvalidStreakInterval
	}
	return nil
}

// NotifyFor tells whether a personal best on the given metric should
// be surfaced to the user. Detection itself always runs, these
// toggles only mute the announcement.
func (p Preferences) NotifyFor(metric stats.PBMetric) bool {
	if !p.PBNotifications.Enabled {
		return false
	}
	switch metric {
	case stats.PBMetricWeight:
		return p.PBNotifications.Weight
	case stats.PBMetricReps:
		return p.PBNotifications.Reps
	case stats.PBMetricDuration:
		return p.PBNotifications.Duration
	case stats.PBMetricDistance:
		return p.PBNotifications.Distance
	default:
		return false
	}
}

// NotifyPBs filters the detected personal bests down to the ones the
// user wants announced
func (p Preferences) NotifyPBs(info stats.PBInfo) []stats.PBCheck {
	var notify []stats.PBCheck
	for _, check := range info.PBs() {
		if p.NotifyFor(check.Metric) {
			notify = append(notify, check)
		}
	}
	return notify
}

// Patch holds partial preference changes, nil fields stay untouched
type Patch struct {
	Units              *string  `json:"units,omitempty"`
	TargetBodyweight   *float64 `json:"targetBodyweight,omitempty"`
	PromptBodyweight   *bool    `json:"promptBodyweight,omitempty"`
	StreakIntervalDays *int     `json:"streakIntervalDays,omitempty"`
	PBNotifications    *struct {
		Enabled  *bool `json:"enabled,omitempty"`
		Weight   *bool `json:"weight,omitempty"`
		Reps     *bool `json:"reps,omitempty"`
		Duration *bool `json:"duration,omitempty"`
		Distance *bool `json:"distance,omitempty"`
	} `json:"pbNotifications,omitempty"`
}

func (p Preferences) withPatch(patch Patch) (Preferences, error) {
	if patch.Units != nil {
		units, err := stats.ParseUnits(*patch.Units)
		if err != nil {
			return p, fmt.Errorf("%w: %w", ErrBadPatch, err)
		}
		p.Units = units
	}
	if patch.TargetBodyweight != nil {
		if *patch.TargetBodyweight < 0 {
			return p, fmt.Errorf("%w: target bodyweight must not be negative", ErrBadPatch)
		}
		p.TargetBodyweight = *patch.TargetBodyweight
	}
	if patch.PromptBodyweight != nil {
		p.PromptBodyweight = *patch.PromptBodyweight
	}
	if patch.StreakIntervalDays != nil {
		if *patch.StreakIntervalDays < 1 {
			return p, fmt.Errorf("%w: %w", ErrBadPatch, stats.ErrInvalidStreakInterval)
		}
		p.StreakIntervalDays = *patch.StreakIntervalDays
	}
	if patch.PBNotifications != nil {
		if patch.PBNotifications.Enabled != nil {
			p.PBNotifications.Enabled = *patch.PBNotifications.Enabled
		}
		if patch.PBNotifications.Weight != nil {
			p.PBNotifications.Weight = *patch.PBNotifications.Weight
		}
		if patch.PBNotifications.Reps != nil {
			p.PBNotifications.Reps = *patch.PBNotifications.Reps
		}
		if patch.PBNotifications.Duration != nil {
			p.PBNotifications.Duration = *patch.PBNotifications.Duration
		}
		if patch.PBNotifications.Distance != nil {
			p.PBNotifications.Distance = *patch.PBNotifications.Distance
		}
	}
	return p, nil
}
