package workouts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/repo"
	"github.com/2beens/ironlog/internal/gymlog/stats"
	"github.com/2beens/ironlog/internal/telemetry/metrics"
	"github.com/2beens/ironlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=workouts_test

type workoutsRepo interface {
	Add(ctx context.Context, workout repo.Workout) (*repo.Workout, error)
	Get(ctx context.Context, id int) (*repo.Workout, error)
	Update(ctx context.Context, workout *repo.Workout) error
	Delete(ctx context.Context, id int) error
	ListAll(ctx context.Context, f repo.Filter) (_ []repo.Workout, err error)
	List(ctx context.Context, params repo.ListParams) (_ []repo.Workout, total int, err error)
	ListNthLastDay(ctx context.Context, exerciseName string, n int) (_ []repo.Workout, err error)
}

type exercisesRepo interface {
	Add(ctx context.Context, exercise repo.Exercise) (*repo.Exercise, error)
}

type exercisesResolver interface {
	Resolve(ctx context.Context, identifier string) (*repo.Exercise, error)
	Invalidate()
}

type bodyweightsRepo interface {
	LatestAt(ctx context.Context, at time.Time) (*repo.BodyweightEntry, error)
}

// Service runs the workout logging flow, resolving the exercise,
// snapshotting the bodyweight, detecting personal bests, storing the
// entry. Weights and distances are converted to canonical units here,
// so everything below the service only ever sees kilograms and
// kilometers.
type Service struct {
	workouts    workoutsRepo
	exercises   exercisesRepo
	resolver    exercisesResolver
	bodyweights bodyweightsRepo
	metrics     *metrics.Manager
	now         func() time.Time
}

func NewService(
	workouts workoutsRepo,
	exercises exercisesRepo,
	resolver exercisesResolver,
	bodyweights bodyweightsRepo,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		workouts:    workouts,
		exercises:   exercises,
		resolver:    resolver,
		bodyweights: bodyweights,
		metrics:     metricsManager,
		now:         time.Now,
	}
}

// AddParams describes a new workout entry as the user sent it.
// Weight and distance are in the given display units. A zero
// timestamp means now.
type AddParams struct {
	ExerciseIdentifier string
	Timestamp          time.Time
	Units              stats.Units
	Sets               *int
	Reps               *int
	Weight             *float64
	DurationMin        *int
	Distance           *float64
	Notes              string
}

type AddResult struct {
	Workout  *repo.Workout
	Exercise *repo.Exercise
	PBInfo   stats.PBInfo
}

// Add logs a workout entry. An identifier that matches no definition
// and is not numeric implicitly creates one, so logging "Face Pulls"
// for the first time just works. Personal bests are detected against
// the history as it was before this entry.
func (s *Service) Add(ctx context.Context, params AddParams) (_ *AddResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.identifier", params.ExerciseIdentifier))

	exercise, err := s.resolveOrCreate(ctx, params.ExerciseIdentifier)
	if err != nil {
		return nil, err
	}

	ts := params.Timestamp
	if ts.IsZero() {
		ts = s.now().UTC()
	}

	units := params.Units
	if !units.IsValid() {
		units = stats.UnitsMetric
	}

	workout := repo.Workout{
		ExerciseName: exercise.Name,
		ExerciseType: exercise.Type,
		Timestamp:    ts,
		Sets:         params.Sets,
		Reps:         params.Reps,
		DurationMin:  params.DurationMin,
		Notes:        params.Notes,
		CreatedAt:    s.now().UTC(),
	}
	if params.Weight != nil {
		weight := units.WeightToCanonical(*params.Weight)
		workout.Weight = &weight
	}
	if params.Distance != nil {
		distance := units.DistanceToCanonical(*params.Distance)
		workout.DistanceKm = &distance
	}

	if exercise.Type == repo.ExerciseTypeBodyWeight {
		bodyweight, err := s.bodyweights.LatestAt(ctx, ts)
		if err != nil {
			return nil, fmt.Errorf("bodyweight snapshot: %w", err)
		}
		workout.Bodyweight = &bodyweight.Weight
	}

	history, err := s.workouts.ListAll(ctx, repo.Filter{ExerciseName: exercise.Name})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	pbInfo := stats.DetectPBs(workout, stats.BestsOf(history), *exercise)

	added, err := s.workouts.Add(ctx, workout)
	if err != nil {
		return nil, fmt.Errorf("add workout: %w", err)
	}

	s.metrics.CounterWorkoutsAdded.Inc()
	for _, pb := range pbInfo.PBs() {
		s.metrics.CounterPersonalBests.WithLabelValues(string(pb.Metric)).Inc()
		log.Debugf("new personal best for [%s] %s: %.2f", exercise.Name, pb.Metric, pb.Value)
	}

	return &AddResult{
		Workout:  added,
		Exercise: exercise,
		PBInfo:   pbInfo,
	}, nil
}

func (s *Service) resolveOrCreate(ctx context.Context, identifier string) (*repo.Exercise, error) {
	exercise, err := s.resolver.Resolve(ctx, identifier)
	if err == nil {
		return exercise, nil
	}
	if !errors.Is(err, repo.ErrExerciseNotFound) {
		return nil, fmt.Errorf("resolve exercise: %w", err)
	}

	name := strings.TrimSpace(identifier)
	if name == "" {
		return nil, repo.ErrExerciseNotFound
	}
	// a numeric identifier is an ID, a typo rather than a new exercise
	if _, numErr := strconv.Atoi(name); numErr == nil {
		return nil, repo.ErrExerciseNotFound
	}

	created, err := s.exercises.Add(ctx, repo.Exercise{
		Name:      name,
		Type:      repo.ExerciseTypeResistance,
		LogWeight: true,
		LogReps:   true,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("implicitly create exercise [%s]: %w", name, err)
	}
	s.resolver.Invalidate()
	log.Debugf("exercise [%s] implicitly created with id %d", name, created.ID)
	return created, nil
}

// UpdateParams describes changes to an existing entry, same unit
// semantics as AddParams. The exercise identifier must resolve, an
// update never implicitly creates a definition.
type UpdateParams struct {
	ID                 int
	ExerciseIdentifier string
	Timestamp          time.Time
	Units              stats.Units
	Sets               *int
	Reps               *int
	Weight             *float64
	DurationMin        *int
	Distance           *float64
	Notes              string
}

func (s *Service) Update(ctx context.Context, params UpdateParams) (_ *repo.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", params.ID))

	exercise, err := s.resolver.Resolve(ctx, params.ExerciseIdentifier)
	if err != nil {
		return nil, fmt.Errorf("resolve exercise: %w", err)
	}

	ts := params.Timestamp
	if ts.IsZero() {
		ts = s.now().UTC()
	}

	units := params.Units
	if !units.IsValid() {
		units = stats.UnitsMetric
	}

	workout := &repo.Workout{
		ID:           params.ID,
		ExerciseName: exercise.Name,
		ExerciseType: exercise.Type,
		Timestamp:    ts,
		Sets:         params.Sets,
		Reps:         params.Reps,
		DurationMin:  params.DurationMin,
		Notes:        params.Notes,
	}
	if params.Weight != nil {
		weight := units.WeightToCanonical(*params.Weight)
		workout.Weight = &weight
	}
	if params.Distance != nil {
		distance := units.DistanceToCanonical(*params.Distance)
		workout.DistanceKm = &distance
	}

	if exercise.Type == repo.ExerciseTypeBodyWeight {
		bodyweight, err := s.bodyweights.LatestAt(ctx, ts)
		if err != nil {
			return nil, fmt.Errorf("bodyweight snapshot: %w", err)
		}
		workout.Bodyweight = &bodyweight.Weight
	}

	if err := s.workouts.Update(ctx, workout); err != nil {
		return nil, err
	}
	return workout, nil
}

func (s *Service) Get(ctx context.Context, id int) (_ *repo.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	return s.workouts.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	return s.workouts.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, params repo.ListParams) (_ []repo.Workout, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	return s.workouts.List(ctx, params)
}

// ListNthLastDay lists what was logged for the exercise on its nth
// last training day, "show me my previous squat session".
func (s *Service) ListNthLastDay(ctx context.Context, exerciseIdentifier string, n int) (_ []repo.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.listNthLastDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	exercise, err := s.resolver.Resolve(ctx, exerciseIdentifier)
	if err != nil {
		return nil, fmt.Errorf("resolve exercise: %w", err)
	}

	return s.workouts.ListNthLastDay(ctx, exercise.Name, n)
}
