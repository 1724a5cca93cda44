package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/repo"
	"github.com/2beens/ironlog/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=stats_test

type workoutsRepo interface {
	ListAll(ctx context.Context, f repo.Filter) (_ []repo.Workout, err error)
}

type bodyweightsRepo interface {
	ListAll(ctx context.Context) (_ []repo.BodyweightEntry, err error)
}

// Analyzer runs the engine computations over entries pulled from
// storage. It holds no state between calls, every call gets a fresh
// snapshot of the history.
type Analyzer struct {
	workouts    workoutsRepo
	bodyweights bodyweightsRepo
}

func NewAnalyzer(workouts workoutsRepo, bodyweights bodyweightsRepo) *Analyzer {
	return &Analyzer{
		workouts:    workouts,
		bodyweights: bodyweights,
	}
}

// ExerciseStats summarizes the complete history of one exercise.
// Returns ErrNoWorkoutData when nothing was ever logged for it.
func (a *Analyzer) ExerciseStats(
	ctx context.Context,
	exerciseName string,
	streakIntervalDays int,
	now time.Time,
) (_ *ExerciseStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.gymlog.exerciseStats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workouts, err := a.workouts.ListAll(ctx, repo.Filter{ExerciseName: exerciseName})
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}

	bodyweights, err := a.bodyweights.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bodyweights: %w", err)
	}

	exerciseStats, err := ComputeStats(exerciseName, workouts, bodyweights, streakIntervalDays, now)
	if err != nil {
		return nil, err
	}
	return &exerciseStats, nil
}

// DailyVolume aggregates the volume of all entries matching the
// filter, per day and exercise
func (a *Analyzer) DailyVolume(ctx context.Context, f repo.Filter) (_ []DayVolume, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.gymlog.dailyVolume")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workouts, err := a.workouts.ListAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}

	bodyweights, err := a.bodyweights.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bodyweights: %w", err)
	}

	return DailyVolumes(WithBodyweightSnapshots(workouts, bodyweights)), nil
}

// Graph produces a per day series of the given type for one exercise
func (a *Analyzer) Graph(
	ctx context.Context,
	exerciseName string,
	graphType GraphType,
) (_ []GraphPoint, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.gymlog.graph")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workouts, err := a.workouts.ListAll(ctx, repo.Filter{ExerciseName: exerciseName})
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}

	bodyweights, err := a.bodyweights.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bodyweights: %w", err)
	}

	return GraphSeries(WithBodyweightSnapshots(workouts, bodyweights), graphType)
}
