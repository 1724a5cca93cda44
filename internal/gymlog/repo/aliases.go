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
	ErrAliasNotFound = errors.New("alias not found")
	ErrAliasExists   = errors.New("alias already exists")
)

type AliasesRepo struct {
	db *pgxpool.Pool
}

func NewAliasesRepo(db *pgxpool.Pool) *AliasesRepo {
	return &AliasesRepo{
		db: db,
	}
}

func (r *AliasesRepo) Add(ctx context.Context, alias Alias) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.aliases.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("alias.name", alias.Name))
	span.SetAttributes(attribute.String("alias.exercise", alias.ExerciseName))

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO alias (name, exercise_name, created_at) VALUES ($1, $2, $3);`,
		alias.Name, alias.ExerciseName, alias.CreatedAt,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrAliasExists
		}
		return fmt.Errorf("insert alias: %w", err)
	}
	return nil
}

// Get finds an alias by its name, case insensitive
func (r *AliasesRepo) Get(ctx context.Context, name string) (_ *Alias, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.aliases.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("alias.name", name))

	var alias Alias
	err = r.db.QueryRow(
		ctx,
		`SELECT name, exercise_name, created_at FROM alias WHERE LOWER(name) = LOWER($1);`,
		name,
	).Scan(&alias.Name, &alias.ExerciseName, &alias.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAliasNotFound
		}
		return nil, fmt.Errorf("get alias: %w", err)
	}
	return &alias, nil
}

// List returns all aliases, optionally only those of one exercise
func (r *AliasesRepo) List(ctx context.Context, exerciseName string) (_ []Alias, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.aliases.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT name, exercise_name, created_at
			FROM alias
			WHERE ($1::text = '' OR LOWER(exercise_name) = LOWER($1))
			ORDER BY name;`,
		exerciseName,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var aliases []Alias
	for rows.Next() {
		var alias Alias
		if err := rows.Scan(&alias.Name, &alias.ExerciseName, &alias.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		aliases = append(aliases, alias)
	}
	return aliases, nil
}

// ListCreatedAfter returns aliases created at or after the given time,
// in creation order. Nil returns everything. Used by the backup tool.
func (r *AliasesRepo) ListCreatedAfter(ctx context.Context, createdAfter *time.Time) (_ []Alias, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.aliases.listCreatedAfter")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT name, exercise_name, created_at
			FROM alias
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

	var aliases []Alias
	for rows.Next() {
		var alias Alias
		if err := rows.Scan(&alias.Name, &alias.ExerciseName, &alias.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		aliases = append(aliases, alias)
	}
	return aliases, nil
}

func (r *AliasesRepo) Delete(ctx context.Context, name string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.aliases.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("alias.name", name))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM alias WHERE LOWER(name) = LOWER($1);`,
		name,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAliasNotFound
	}
	return nil
}
