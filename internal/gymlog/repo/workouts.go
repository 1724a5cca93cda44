package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/ironlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrWorkoutNotFound = errors.New("workout not found")

type ListParams struct {
	Filter
	Page int
	Size int
}

type WorkoutsRepo struct {
	db *pgxpool.Pool
}

func NewWorkoutsRepo(db *pgxpool.Pool) *WorkoutsRepo {
	return &WorkoutsRepo{
		db: db,
	}
}

func (r *WorkoutsRepo) Add(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.exercise", workout.ExerciseName))

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout
				(exercise_name, exercise_type, ts, sets, reps, weight, duration_min, distance_km, bodyweight, notes, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id;`,
		workout.ExerciseName, workout.ExerciseType, workout.Timestamp,
		workout.Sets, workout.Reps, workout.Weight,
		workout.DurationMin, workout.DistanceKm, workout.Bodyweight,
		workout.Notes, workout.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("workout.id", id))

	workout.ID = id
	return &workout, nil
}

func (r *WorkoutsRepo) Get(ctx context.Context, id int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	var workout Workout
	err = r.db.QueryRow(
		ctx,
		`SELECT id, exercise_name, exercise_type, ts, sets, reps, weight, duration_min, distance_km, bodyweight, notes, created_at
			FROM workout
			WHERE id = $1;`,
		id,
	).Scan(
		&workout.ID, &workout.ExerciseName, &workout.ExerciseType, &workout.Timestamp,
		&workout.Sets, &workout.Reps, &workout.Weight,
		&workout.DurationMin, &workout.DistanceKm, &workout.Bodyweight,
		&workout.Notes, &workout.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("get workout: %w", err)
	}
	return &workout, nil
}

func (r *WorkoutsRepo) Update(ctx context.Context, workout *Workout) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", workout.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout
			SET exercise_name = $1, exercise_type = $2, ts = $3, sets = $4, reps = $5,
				weight = $6, duration_min = $7, distance_km = $8, bodyweight = $9, notes = $10
			WHERE id = $11;`,
		workout.ExerciseName, workout.ExerciseType, workout.Timestamp,
		workout.Sets, workout.Reps, workout.Weight,
		workout.DurationMin, workout.DistanceKm, workout.Bodyweight,
		workout.Notes, workout.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *WorkoutsRepo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

// ListAll returns all workout entries matching the filter, newest
// first. The muscle criterion matches entries whose exercise has a
// muscle group containing the substring.
func (r *WorkoutsRepo) ListAll(ctx context.Context, f Filter) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	setFilterSpanAttributes(span, f)

	rows, err := r.db.Query(
		ctx,
		`SELECT id, exercise_name, exercise_type, ts, sets, reps, weight, duration_min, distance_km, bodyweight, notes, created_at
			FROM workout w
			WHERE ($1::text = '' OR LOWER(w.exercise_name) = LOWER($1))
				AND ($2::text = '' OR w.exercise_type = $2)
				AND ($3::timestamptz IS NULL OR w.ts >= $3)
				AND ($4::timestamptz IS NULL OR w.ts <= $4)
				AND ($5::text = '' OR EXISTS (
					SELECT 1 FROM exercise e, unnest(e.muscles) AS muscle
					WHERE LOWER(e.name) = LOWER(w.exercise_name)
						AND muscle ILIKE '%' || $5 || '%'
				))
			ORDER BY w.ts DESC;`,
		f.ExerciseName, f.ExerciseType, f.From, f.To, f.MuscleSubstring,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	workouts, err := rows2workouts(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2workouts: %w", err)
	}
	return workouts, nil
}

// List is like ListAll but returns the specific page, i.e. is used
// for pagination.
func (r *WorkoutsRepo) List(ctx context.Context, params ListParams) (_ []Workout, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))
	setFilterSpanAttributes(span, params.Filter)

	if params.Page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if params.Size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	limit := params.Size
	offset := (params.Page - 1) * params.Size
	countAll, err := r.Count(ctx, params.Filter)
	if err != nil {
		return nil, -1, err
	}

	if countAll <= limit {
		limit = countAll
		offset = 0
	}

	if countAll-offset < limit {
		offset = countAll - limit
	}

	span.SetAttributes(attribute.Int("count_all", countAll))
	span.SetAttributes(attribute.Int("limit", limit))
	span.SetAttributes(attribute.Int("offset", offset))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, exercise_name, exercise_type, ts, sets, reps, weight, duration_min, distance_km, bodyweight, notes, created_at
			FROM workout w
			WHERE ($1::text = '' OR LOWER(w.exercise_name) = LOWER($1))
				AND ($2::text = '' OR w.exercise_type = $2)
				AND ($3::timestamptz IS NULL OR w.ts >= $3)
				AND ($4::timestamptz IS NULL OR w.ts <= $4)
				AND ($5::text = '' OR EXISTS (
					SELECT 1 FROM exercise e, unnest(e.muscles) AS muscle
					WHERE LOWER(e.name) = LOWER(w.exercise_name)
						AND muscle ILIKE '%' || $5 || '%'
				))
			ORDER BY w.ts DESC
			LIMIT $6
			OFFSET $7;`,
		params.ExerciseName, params.ExerciseType, params.From, params.To, params.MuscleSubstring,
		limit, offset,
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, -1, err
	}

	workouts, err := rows2workouts(rows)
	if err != nil {
		return nil, -1, err
	}
	return workouts, countAll, nil
}

func (r *WorkoutsRepo) Count(ctx context.Context, f Filter) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(*)
			FROM workout w
			WHERE ($1::text = '' OR LOWER(w.exercise_name) = LOWER($1))
				AND ($2::text = '' OR w.exercise_type = $2)
				AND ($3::timestamptz IS NULL OR w.ts >= $3)
				AND ($4::timestamptz IS NULL OR w.ts <= $4)
				AND ($5::text = '' OR EXISTS (
					SELECT 1 FROM exercise e, unnest(e.muscles) AS muscle
					WHERE LOWER(e.name) = LOWER(w.exercise_name)
						AND muscle ILIKE '%' || $5 || '%'
				));`,
		f.ExerciseName, f.ExerciseType, f.From, f.To, f.MuscleSubstring,
	).Scan(&count)
	if err != nil {
		return -1, err
	}
	return count, nil
}

// ListNthLastDay returns the entries logged for the given exercise on
// its nth last training day, 0 being the most recent day it was
// trained. Returns an empty slice when the exercise does not have that
// many training days yet.
func (r *WorkoutsRepo) ListNthLastDay(ctx context.Context, exerciseName string, n int) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listNthLastDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("exercise.name", exerciseName),
		attribute.Int("n", n),
	)

	if n < 0 {
		return nil, errors.New("n must not be negative")
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, exercise_name, exercise_type, ts, sets, reps, weight, duration_min, distance_km, bodyweight, notes, created_at
			FROM workout
			WHERE LOWER(exercise_name) = LOWER($1)
			AND DATE(ts AT TIME ZONE 'UTC') = (
				SELECT DATE(ts AT TIME ZONE 'UTC') AS day
					FROM workout
					WHERE LOWER(exercise_name) = LOWER($1)
					GROUP BY day
					ORDER BY day DESC
					OFFSET $2 LIMIT 1
			)
			ORDER BY ts;`,
		exerciseName,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	workouts, err := rows2workouts(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2workouts: %w", err)
	}
	return workouts, nil
}

// ListCreatedAfter returns entries created at or after the given time,
// in creation order. Nil returns everything. Used by the backup tool.
func (r *WorkoutsRepo) ListCreatedAfter(ctx context.Context, createdAfter *time.Time) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listCreatedAfter")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	if createdAfter != nil {
		span.SetAttributes(attribute.String("created-after", createdAfter.String()))
	} else {
		span.SetAttributes(attribute.String("created-after", "nil"))
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, exercise_name, exercise_type, ts, sets, reps, weight, duration_min, distance_km, bodyweight, notes, created_at
			FROM workout
			WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			ORDER BY created_at;`,
		createdAfter,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	workouts, err := rows2workouts(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2workouts: %w", err)
	}
	return workouts, nil
}

func rows2workouts(rows pgx.Rows) ([]Workout, error) {
	var workouts []Workout
	for rows.Next() {
		var workout Workout
		if err := rows.Scan(
			&workout.ID, &workout.ExerciseName, &workout.ExerciseType, &workout.Timestamp,
			&workout.Sets, &workout.Reps, &workout.Weight,
			&workout.DurationMin, &workout.DistanceKm, &workout.Bodyweight,
			&workout.Notes, &workout.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		workouts = append(workouts, workout)
	}
	return workouts, nil
}

func setFilterSpanAttributes(span trace.Span, f Filter) {
	span.SetAttributes(attribute.String("filter.exercise", f.ExerciseName))
	span.SetAttributes(attribute.String("filter.type", string(f.ExerciseType)))
	span.SetAttributes(attribute.String("filter.muscle", f.MuscleSubstring))
	if f.From != nil {
		span.SetAttributes(attribute.String("filter.from", f.From.String()))
	}
	if f.To != nil {
		span.SetAttributes(attribute.String("filter.to", f.To.String()))
	}
}
