package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/ironlog/internal/telemetry/tracing"
	"github.com/2beens/ironlog/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrExerciseExists   = errors.New("exercise already exists")
)

type ExercisesRepo struct {
	db *pgxpool.Pool
}

func NewExercisesRepo(db *pgxpool.Pool) *ExercisesRepo {
	return &ExercisesRepo{
		db: db,
	}
}

func (r *ExercisesRepo) Add(ctx context.Context, exercise Exercise) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.name", exercise.Name))

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO exercise
				(name, exercise_type, muscles, log_weight, log_reps, log_duration, log_distance, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id;`,
		exercise.Name, exercise.Type, exercise.Muscles,
		exercise.LogWeight, exercise.LogReps, exercise.LogDuration, exercise.LogDistance,
		exercise.CreatedAt,
	).Scan(&exercise.ID)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrExerciseExists
		}
		return nil, fmt.Errorf("insert exercise: %w", err)
	}

	span.SetAttributes(attribute.Int("exercise.id", exercise.ID))
	return &exercise, nil
}

func (r *ExercisesRepo) Get(ctx context.Context, id int) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	var exercise Exercise
	err = r.db.QueryRow(
		ctx,
		`SELECT id, name, exercise_type, muscles, log_weight, log_reps, log_duration, log_distance, created_at
			FROM exercise
			WHERE id = $1;`,
		id,
	).Scan(
		&exercise.ID, &exercise.Name, &exercise.Type, &exercise.Muscles,
		&exercise.LogWeight, &exercise.LogReps, &exercise.LogDuration, &exercise.LogDistance,
		&exercise.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExerciseNotFound
		}
		return nil, fmt.Errorf("get exercise: %w", err)
	}
	return &exercise, nil
}

// GetByName finds an exercise by its name, case insensitive
func (r *ExercisesRepo) GetByName(ctx context.Context, name string) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.getByName")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.name", name))

	var exercise Exercise
	err = r.db.QueryRow(
		ctx,
		`SELECT id, name, exercise_type, muscles, log_weight, log_reps, log_duration, log_distance, created_at
			FROM exercise
			WHERE LOWER(name) = LOWER($1);`,
		name,
	).Scan(
		&exercise.ID, &exercise.Name, &exercise.Type, &exercise.Muscles,
		&exercise.LogWeight, &exercise.LogReps, &exercise.LogDuration, &exercise.LogDistance,
		&exercise.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExerciseNotFound
		}
		return nil, fmt.Errorf("get exercise by name: %w", err)
	}
	return &exercise, nil
}

func (r *ExercisesRepo) List(ctx context.Context) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, exercise_type, muscles, log_weight, log_reps, log_duration, log_distance, created_at
			FROM exercise
			ORDER BY name;`,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var exercises []Exercise
	for rows.Next() {
		var exercise Exercise
		if err := rows.Scan(
			&exercise.ID, &exercise.Name, &exercise.Type, &exercise.Muscles,
			&exercise.LogWeight, &exercise.LogReps, &exercise.LogDuration, &exercise.LogDistance,
			&exercise.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		exercises = append(exercises, exercise)
	}
	return exercises, nil
}

// ListCreatedAfter returns definitions created at or after the given
// time, in creation order. Nil returns everything. Used by the backup
// tool.
func (r *ExercisesRepo) ListCreatedAfter(ctx context.Context, createdAfter *time.Time) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.listCreatedAfter")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, exercise_type, muscles, log_weight, log_reps, log_duration, log_distance, created_at
			FROM exercise
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

	var exercises []Exercise
	for rows.Next() {
		var exercise Exercise
		if err := rows.Scan(
			&exercise.ID, &exercise.Name, &exercise.Type, &exercise.Muscles,
			&exercise.LogWeight, &exercise.LogReps, &exercise.LogDuration, &exercise.LogDistance,
			&exercise.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		exercises = append(exercises, exercise)
	}
	return exercises, nil
}

// ListMuscles returns all distinct muscle groups appearing in any
// exercise definition
func (r *ExercisesRepo) ListMuscles(ctx context.Context) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.listMuscles")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT DISTINCT unnest(muscles) AS muscle FROM exercise ORDER BY muscle;`,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var muscles []string
	for rows.Next() {
		var muscle string
		if err := rows.Scan(&muscle); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		muscles = append(muscles, muscle)
	}
	return muscles, nil
}

// Update changes an exercise definition. A rename or a type change
// cascades to logged workouts and aliases in the same transaction so
// the history stays attached to the definition.
func (r *ExercisesRepo) Update(ctx context.Context, exercise *Exercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", exercise.ID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var prevName string
	var prevType ExerciseType
	err = tx.QueryRow(
		ctx,
		`SELECT name, exercise_type FROM exercise WHERE id = $1 FOR UPDATE;`,
		exercise.ID,
	).Scan(&prevName, &prevType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrExerciseNotFound
		}
		return fmt.Errorf("get current exercise: %w", err)
	}

	_, err = tx.Exec(
		ctx,
		`UPDATE exercise
			SET name = $1, exercise_type = $2, muscles = $3,
				log_weight = $4, log_reps = $5, log_duration = $6, log_distance = $7
			WHERE id = $8;`,
		exercise.Name, exercise.Type, exercise.Muscles,
		exercise.LogWeight, exercise.LogReps, exercise.LogDuration, exercise.LogDistance,
		exercise.ID,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrExerciseExists
		}
		return fmt.Errorf("update exercise: %w", err)
	}

	if prevName != exercise.Name {
		if _, err = tx.Exec(
			ctx,
			`UPDATE workout SET exercise_name = $1 WHERE exercise_name = $2;`,
			exercise.Name, prevName,
		); err != nil {
			return fmt.Errorf("cascade rename to workouts: %w", err)
		}
		if _, err = tx.Exec(
			ctx,
			`UPDATE alias SET exercise_name = $1 WHERE exercise_name = $2;`,
			exercise.Name, prevName,
		); err != nil {
			return fmt.Errorf("cascade rename to aliases: %w", err)
		}
	}

	if prevType != exercise.Type {
		if _, err = tx.Exec(
			ctx,
			`UPDATE workout SET exercise_type = $1 WHERE exercise_name = $2;`,
			exercise.Type, exercise.Name,
		); err != nil {
			return fmt.Errorf("cascade type change to workouts: %w", err)
		}
	}

	return nil
}

// Delete removes the definition and its aliases. Logged workouts are
// kept, the history outlives the definition.
func (r *ExercisesRepo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var name string
	err = tx.QueryRow(
		ctx,
		`SELECT name FROM exercise WHERE id = $1 FOR UPDATE;`,
		id,
	).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrExerciseNotFound
		}
		return fmt.Errorf("get exercise: %w", err)
	}

	if _, err = tx.Exec(
		ctx,
		`DELETE FROM alias WHERE exercise_name = $1;`,
		name,
	); err != nil {
		return fmt.Errorf("delete aliases: %w", err)
	}

	if _, err = tx.Exec(
		ctx,
		`DELETE FROM exercise WHERE id = $1;`,
		id,
	); err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}

	return nil
}
