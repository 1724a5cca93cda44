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
	ErrBodyweightEntryNotFound = errors.New("bodyweight entry not found")
	ErrBodyweightEntryExists   = errors.New("bodyweight entry already exists for that timestamp")
	ErrBodyweightNotSet        = errors.New("no bodyweight measured yet")
)

type BodyweightsRepo struct {
	db *pgxpool.Pool
}

func NewBodyweightsRepo(db *pgxpool.Pool) *BodyweightsRepo {
	return &BodyweightsRepo{
		db: db,
	}
}

func (r *BodyweightsRepo) Add(ctx context.Context, entry BodyweightEntry) (_ *BodyweightEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodyweights.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO bodyweight (ts, weight, created_at) VALUES ($1, $2, $3) RETURNING id;`,
		entry.Timestamp, entry.Weight, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrBodyweightEntryExists
		}
		return nil, fmt.Errorf("insert bodyweight: %w", err)
	}

	span.SetAttributes(attribute.Int("bodyweight.id", entry.ID))
	return &entry, nil
}

func (r *BodyweightsRepo) Get(ctx context.Context, id int) (_ *BodyweightEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodyweights.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	var entry BodyweightEntry
	err = r.db.QueryRow(
		ctx,
		`SELECT id, ts, weight, created_at FROM bodyweight WHERE id = $1;`,
		id,
	).Scan(&entry.ID, &entry.Timestamp, &entry.Weight, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBodyweightEntryNotFound
		}
		return nil, fmt.Errorf("get bodyweight: %w", err)
	}
	return &entry, nil
}

// ListAll returns all bodyweight measurements, newest first
func (r *BodyweightsRepo) ListAll(ctx context.Context) (_ []BodyweightEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodyweights.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, ts, weight, created_at FROM bodyweight ORDER BY ts DESC;`,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var entries []BodyweightEntry
	for rows.Next() {
		var entry BodyweightEntry
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Weight, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ListCreatedAfter returns measurements created at or after the given
// time, in creation order. Nil returns everything. Used by the backup
// tool.
func (r *BodyweightsRepo) ListCreatedAfter(ctx context.Context, createdAfter *time.Time) (_ []BodyweightEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodyweights.listCreatedAfter")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, ts, weight, created_at
			FROM bodyweight
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

	var entries []BodyweightEntry
	for rows.Next() {
		var entry BodyweightEntry
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Weight, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LatestAt returns the most recent measurement taken at or before
// the given time. ErrBodyweightNotSet means there is none yet.
func (r *BodyweightsRepo) LatestAt(ctx context.Context, at time.Time) (_ *BodyweightEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodyweights.latestAt")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var entry BodyweightEntry
	err = r.db.QueryRow(
		ctx,
		`SELECT id, ts, weight, created_at
			FROM bodyweight
			WHERE ts <= $1
			ORDER BY ts DESC
			LIMIT 1;`,
		at,
	).Scan(&entry.ID, &entry.Timestamp, &entry.Weight, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBodyweightNotSet
		}
		return nil, fmt.Errorf("latest bodyweight: %w", err)
	}
	return &entry, nil
}

func (r *BodyweightsRepo) Update(ctx context.Context, entry *BodyweightEntry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodyweights.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", entry.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE bodyweight SET ts = $1, weight = $2 WHERE id = $3;`,
		entry.Timestamp, entry.Weight, entry.ID,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrBodyweightEntryExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBodyweightEntryNotFound
	}
	return nil
}

func (r *BodyweightsRepo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.bodyweights.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM bodyweight WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBodyweightEntryNotFound
	}
	return nil
}
