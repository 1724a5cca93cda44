package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/2beens/ironlog/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	oneMinute                  = 60
	resolvedExerciseExpire     = 5 * oneMinute // cache expire in seconds
	resolvedExerciseCachePref  = "exercise::"
	resolvedExerciseCacheBytes = 50 * 1024 * 1024
)

// Resolver maps an exercise identifier, a numeric ID, an alias or a
// name, to its definition. Tried in that order, all case insensitive.
// Resolved definitions are cached, writes to definitions or aliases
// must call Invalidate.
type Resolver struct {
	exercises *ExercisesRepo
	aliases   *AliasesRepo
	cache     *freecache.Cache
}

func NewResolver(exercises *ExercisesRepo, aliases *AliasesRepo) *Resolver {
	return &Resolver{
		exercises: exercises,
		aliases:   aliases,
		cache:     freecache.NewCache(resolvedExerciseCacheBytes),
	}
}

func (r *Resolver) Resolve(ctx context.Context, identifier string) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "resolver.exercises.resolve")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("identifier", identifier))

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrExerciseNotFound
	}

	cacheKey := []byte(resolvedExerciseCachePref + strings.ToLower(identifier))
	if cachedBytes, cacheErr := r.cache.Get(cacheKey); cacheErr == nil {
		var exercise Exercise
		if err := json.Unmarshal(cachedBytes, &exercise); err == nil {
			log.Tracef("exercise [%s] resolved from cache", identifier)
			return &exercise, nil
		}
		log.Errorf("failed to unmarshal cached exercise [%s], resolving again", identifier)
	}

	exercise, err := r.resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if exerciseBytes, err := json.Marshal(exercise); err == nil {
		if err := r.cache.Set(cacheKey, exerciseBytes, resolvedExerciseExpire); err != nil {
			log.Debugf("failed to cache resolved exercise [%s]: %s", identifier, err)
		}
	}

	return exercise, nil
}

func (r *Resolver) resolve(ctx context.Context, identifier string) (*Exercise, error) {
	if id, err := strconv.Atoi(identifier); err == nil {
		exercise, err := r.exercises.Get(ctx, id)
		if err == nil {
			return exercise, nil
		}
		if !errors.Is(err, ErrExerciseNotFound) {
			return nil, fmt.Errorf("resolve by id: %w", err)
		}
	}

	alias, err := r.aliases.Get(ctx, identifier)
	switch {
	case err == nil:
		exercise, err := r.exercises.GetByName(ctx, alias.ExerciseName)
		if err != nil {
			return nil, fmt.Errorf("resolve alias target [%s]: %w", alias.ExerciseName, err)
		}
		return exercise, nil
	case !errors.Is(err, ErrAliasNotFound):
		return nil, fmt.Errorf("resolve by alias: %w", err)
	}

	exercise, err := r.exercises.GetByName(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, fmt.Errorf("resolve by name: %w", err)
	}
	return exercise, nil
}

// Invalidate drops all cached resolutions, called after any write to
// exercise definitions or aliases
func (r *Resolver) Invalidate() {
	r.cache.Clear()
}
