package stats

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/repo"
	"github.com/2beens/ironlog/internal/telemetry/tracing"
	"github.com/2beens/ironlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=stats_test

type exercisesResolver interface {
	Resolve(ctx context.Context, identifier string) (*repo.Exercise, error)
}

// prefsProvider hands the handler the two preferences the stats
// rendering depends on
type prefsProvider interface {
	DisplayUnits() Units
	StreakIntervalDays() int
}

// DisplayBests is Bests converted to the display units, field names
// unit-neutral since the values can be either system.
type DisplayBests struct {
	Weight      *float64 `json:"weight,omitempty"`
	Reps        *float64 `json:"reps,omitempty"`
	DurationMin *float64 `json:"durationMin,omitempty"`
	Distance    *float64 `json:"distance,omitempty"`
}

type ExerciseStatsResponse struct {
	ExerciseName    string       `json:"exerciseName"`
	TotalWorkouts   int          `json:"totalWorkouts"`
	FirstWorkout    time.Time    `json:"firstWorkout"`
	LastWorkout     time.Time    `json:"lastWorkout"`
	TotalVolume     float64      `json:"totalVolume"`
	WorkoutsPerWeek float64      `json:"workoutsPerWeek"`
	Streaks         Streaks      `json:"streaks"`
	Bests           DisplayBests `json:"bests"`
	Units           Units        `json:"units"`
	WeightUnit      string       `json:"weightUnit"`
	DistanceUnit    string       `json:"distanceUnit"`
}

type VolumeResponse struct {
	Volumes    []DayVolume `json:"volumes"`
	Units      Units       `json:"units"`
	WeightUnit string      `json:"weightUnit"`
}

type GraphResponse struct {
	Exercise  string       `json:"exercise"`
	GraphType GraphType    `json:"graphType"`
	Unit      string       `json:"unit"`
	Points    []GraphPoint `json:"points"`
}

type Handler struct {
	analyzer *Analyzer
	resolver exercisesResolver
	prefs    prefsProvider
}

func NewHandler(analyzer *Analyzer, resolver exercisesResolver, prefs prefsProvider) *Handler {
	return &Handler{
		analyzer: analyzer,
		resolver: resolver,
		prefs:    prefs,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/exercise/{identifier}", handler.HandleExerciseStats).Methods("GET", "OPTIONS").Name("exercise-stats")
	router.HandleFunc("/volume", handler.HandleDailyVolume).Methods("GET", "OPTIONS").Name("daily-volume")
	router.HandleFunc("/graph/{type}/exercise/{identifier}", handler.HandleGraph).Methods("GET", "OPTIONS").Name("exercise-graph")
}

func (handler *Handler) HandleExerciseStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.exercise")
	defer span.End()

	identifier := mux.Vars(r)["identifier"]
	exercise, err := handler.resolver.Resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, repo.ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to resolve exercise [%s]: %s", identifier, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	exerciseStats, err := handler.analyzer.ExerciseStats(
		ctx, exercise.Name,
		handler.prefs.StreakIntervalDays(),
		time.Now(),
	)
	if err != nil {
		if errors.Is(err, ErrNoWorkoutData) {
			http.Error(w, "no workouts logged for this exercise yet", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get exercise stats [%s]: %s", exercise.Name, err)
		http.Error(w, "failed to get exercise stats", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, statsInUnits(*exerciseStats, handler.prefs.DisplayUnits()))
}

func (handler *Handler) HandleDailyVolume(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.volume")
	defer span.End()

	filter, err := handler.filterFromQuery(ctx, r)
	if err != nil {
		if errors.Is(err, repo.ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	volumes, err := handler.analyzer.DailyVolume(ctx, filter)
	if err != nil {
		log.Errorf("failed to get daily volumes: %s", err)
		http.Error(w, "failed to get daily volumes", http.StatusInternalServerError)
		return
	}

	units := handler.prefs.DisplayUnits()
	for i := range volumes {
		volumes[i].Volume = units.WeightToDisplay(volumes[i].Volume)
	}

	pkg.SendJsonResponse(w, http.StatusOK, VolumeResponse{
		Volumes:    volumes,
		Units:      units,
		WeightUnit: units.WeightAbbr(),
	})
}

func (handler *Handler) HandleGraph(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.graph")
	defer span.End()

	vars := mux.Vars(r)
	graphType, err := ParseGraphType(vars["type"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	identifier := vars["identifier"]
	exercise, err := handler.resolver.Resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, repo.ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to resolve exercise [%s]: %s", identifier, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	points, err := handler.analyzer.Graph(ctx, exercise.Name, graphType)
	if err != nil {
		log.Errorf("failed to get graph [%s] for [%s]: %s", graphType, exercise.Name, err)
		http.Error(w, "failed to get graph", http.StatusInternalServerError)
		return
	}

	units := handler.prefs.DisplayUnits()
	convert, unit := graphValueConversion(graphType, units)
	for i := range points {
		points[i].Value = convert(points[i].Value)
	}

	pkg.SendJsonResponse(w, http.StatusOK, GraphResponse{
		Exercise:  exercise.Name,
		GraphType: graphType,
		Unit:      unit,
		Points:    points,
	})
}

func (handler *Handler) filterFromQuery(ctx context.Context, r *http.Request) (repo.Filter, error) {
	var filter repo.Filter

	if exercise := r.URL.Query().Get("exercise"); exercise != "" {
		resolved, err := handler.resolver.Resolve(ctx, exercise)
		if err != nil {
			return repo.Filter{}, err
		}
		filter.ExerciseName = resolved.Name
	}

	if exerciseType := r.URL.Query().Get("type"); exerciseType != "" {
		t := repo.ExerciseType(exerciseType)
		if !t.IsValid() {
			return repo.Filter{}, fmt.Errorf("invalid exercise type [%s]", exerciseType)
		}
		filter.ExerciseType = t
	}

	if from := r.URL.Query().Get("from"); from != "" {
		fromTs, err := parseDateBound(from, false)
		if err != nil {
			return repo.Filter{}, fmt.Errorf("invalid from timestamp [%s]", from)
		}
		filter.From = &fromTs
	}

	if to := r.URL.Query().Get("to"); to != "" {
		toTs, err := parseDateBound(to, true)
		if err != nil {
			return repo.Filter{}, fmt.Errorf("invalid to timestamp [%s]", to)
		}
		filter.To = &toTs
	}

	filter.MuscleSubstring = r.URL.Query().Get("muscle")

	return filter, nil
}

// parseDateBound accepts RFC3339 or a plain date, a plain date as the
// upper bound covers the whole day
func parseDateBound(raw string, endOfDay bool) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	ts := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	if endOfDay {
		ts = ts.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return ts, nil
}

func statsInUnits(s ExerciseStats, units Units) ExerciseStatsResponse {
	bests := DisplayBests{
		Reps:        s.Bests.Reps,
		DurationMin: s.Bests.DurationMin,
	}
	if s.Bests.Weight != nil {
		weight := units.WeightToDisplay(*s.Bests.Weight)
		bests.Weight = &weight
	}
	if s.Bests.DistanceKm != nil {
		distance := units.DistanceToDisplay(*s.Bests.DistanceKm)
		bests.Distance = &distance
	}

	return ExerciseStatsResponse{
		ExerciseName:    s.ExerciseName,
		TotalWorkouts:   s.TotalWorkouts,
		FirstWorkout:    s.FirstWorkout,
		LastWorkout:     s.LastWorkout,
		TotalVolume:     units.WeightToDisplay(s.TotalVolume),
		WorkoutsPerWeek: s.WorkoutsPerWeek,
		Streaks:         s.Streaks,
		Bests:           bests,
		Units:           units,
		WeightUnit:      units.WeightAbbr(),
		DistanceUnit:    units.DistanceAbbr(),
	}
}

// graphValueConversion picks how a graph value translates to the
// display units, weight driven series scale, reps and minutes do not
func graphValueConversion(graphType GraphType, units Units) (func(float64) float64, string) {
	switch graphType {
	case GraphTypeEstimated1RM, GraphTypeMaxWeight, GraphTypeWorkoutVolume:
		return units.WeightToDisplay, units.WeightAbbr()
	case GraphTypeWorkoutDistance:
		return units.DistanceToDisplay, units.DistanceAbbr()
	case GraphTypeWorkoutDuration:
		return func(v float64) float64 { return v }, "min"
	default:
		return func(v float64) float64 { return v }, "reps"
	}
}
