package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/repo"
	"github.com/2beens/ironlog/internal/gymlog/stats"
	"github.com/2beens/ironlog/internal/prefs"
	"github.com/2beens/ironlog/internal/telemetry/tracing"
	"github.com/2beens/ironlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=workouts_test

type service interface {
	Add(ctx context.Context, params AddParams) (*AddResult, error)
	Update(ctx context.Context, params UpdateParams) (*repo.Workout, error)
	Get(ctx context.Context, id int) (*repo.Workout, error)
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, params repo.ListParams) (_ []repo.Workout, total int, err error)
	ListNthLastDay(ctx context.Context, exerciseIdentifier string, n int) (_ []repo.Workout, err error)
}

type identifierResolver interface {
	Resolve(ctx context.Context, identifier string) (*repo.Exercise, error)
}

type prefsStore interface {
	Get() prefs.Preferences
}

type pbNotifier interface {
	SendPersonalBests(ctx context.Context, exerciseName string, pbs []stats.PBCheck) error
}

type Handler struct {
	service  service
	resolver identifierResolver
	prefs    prefsStore
	notifier pbNotifier
}

func NewHandler(service service, resolver identifierResolver, prefsStore prefsStore, notifier pbNotifier) *Handler {
	return &Handler{
		service:  service,
		resolver: resolver,
		prefs:    prefsStore,
		notifier: notifier,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-workout")
	router.HandleFunc("/workout/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-workout")
	router.HandleFunc("/workout/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-workout")
	router.HandleFunc("/workout/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout")
	router.HandleFunc("/list/page/{page}/size/{size}", handler.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	router.HandleFunc("/exercise/{identifier}/day/{n}", handler.HandleListNthLastDay).Methods("GET", "OPTIONS").Name("nth-last-day")
}

// AddWorkoutRequest is a new entry as sent by the client. Weight and
// distance are in the user's display units. The timestamp is RFC3339,
// or just a date, or absent for "right now".
type AddWorkoutRequest struct {
	Exercise    string   `json:"exercise"`
	Timestamp   string   `json:"timestamp,omitempty"`
	Sets        *int     `json:"sets,omitempty"`
	Reps        *int     `json:"reps,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	DurationMin *int     `json:"durationMin,omitempty"`
	Distance    *float64 `json:"distance,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

type AddWorkoutResponse struct {
	Workout  repo.Workout    `json:"workout"`
	Exercise repo.Exercise   `json:"exercise"`
	PBInfo   stats.PBInfo    `json:"pbInfo"`
	Notify   []stats.PBCheck `json:"notify,omitempty"`
}

type UpdateWorkoutResponse struct {
	UpdatedID int `json:"updatedId"`
}

type DeleteWorkoutResponse struct {
	DeletedID int `json:"deletedId"`
}

type ListResponse struct {
	Workouts []repo.Workout `json:"workouts"`
	Total    int            `json:"total"`
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.add")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req AddWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}

	if req.Exercise == "" {
		http.Error(w, "error, exercise empty", http.StatusBadRequest)
		return
	}

	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		http.Error(w, "invalid timestamp", http.StatusBadRequest)
		return
	}

	userPrefs := h.prefs.Get()
	result, err := h.service.Add(ctx, AddParams{
		ExerciseIdentifier: req.Exercise,
		Timestamp:          ts,
		Units:              userPrefs.Units,
		Sets:               req.Sets,
		Reps:               req.Reps,
		Weight:             req.Weight,
		DurationMin:        req.DurationMin,
		Distance:           req.Distance,
		Notes:              req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrExerciseNotFound):
			http.Error(w, "exercise not found", http.StatusNotFound)
		case errors.Is(err, repo.ErrBodyweightNotSet):
			http.Error(w, "no bodyweight measured yet, add one first", http.StatusBadRequest)
		default:
			log.Errorf("new workout: %s", err)
			http.Error(w, "add workout failed", http.StatusInternalServerError)
		}
		return
	}

	// push only the personal bests the notification toggles let through,
	// a failed push never fails the add, the workout is stored already
	notifyPBs := userPrefs.NotifyPBs(result.PBInfo)
	if len(notifyPBs) > 0 {
		if err := h.notifier.SendPersonalBests(ctx, result.Exercise.Name, notifyPBs); err != nil {
			log.Errorf("send pb notification: %s", err)
		}
	}

	pkg.SendJsonResponse(w, http.StatusCreated, AddWorkoutResponse{
		Workout:  *result.Workout,
		Exercise: *result.Exercise,
		PBInfo:   result.PBInfo,
		Notify:   notifyPBs,
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}

	workout, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrWorkoutNotFound) {
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("get workout %d: %s", id, err)
		http.Error(w, "get workout failed", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, workout)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}

	var req AddWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("update workout, unmarshal json params: %s", err)
		http.Error(w, "update workout failed", http.StatusBadRequest)
		return
	}

	if req.Exercise == "" {
		http.Error(w, "error, exercise empty", http.StatusBadRequest)
		return
	}

	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		http.Error(w, "invalid timestamp", http.StatusBadRequest)
		return
	}

	_, err = h.service.Update(ctx, UpdateParams{
		ID:                 id,
		ExerciseIdentifier: req.Exercise,
		Timestamp:          ts,
		Units:              h.prefs.Get().Units,
		Sets:               req.Sets,
		Reps:               req.Reps,
		Weight:             req.Weight,
		DurationMin:        req.DurationMin,
		Distance:           req.Distance,
		Notes:              req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrWorkoutNotFound):
			http.Error(w, "workout not found", http.StatusNotFound)
		case errors.Is(err, repo.ErrExerciseNotFound):
			http.Error(w, "exercise not found", http.StatusNotFound)
		case errors.Is(err, repo.ErrBodyweightNotSet):
			http.Error(w, "no bodyweight measured yet, add one first", http.StatusBadRequest)
		default:
			log.Errorf("update workout %d: %s", id, err)
			http.Error(w, "update workout failed", http.StatusInternalServerError)
		}
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, UpdateWorkoutResponse{UpdatedID: id})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrWorkoutNotFound) {
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete workout %d: %s", id, err)
		http.Error(w, "delete workout failed", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, DeleteWorkoutResponse{DeletedID: id})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil {
		http.Error(w, fmt.Sprintf("error, page: %s", vars["page"]), http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil {
		http.Error(w, fmt.Sprintf("error, size: %s", vars["size"]), http.StatusBadRequest)
		return
	}
	if page < 1 {
		http.Error(w, "invalid page size (has to be greater than 0)", http.StatusBadRequest)
		return
	}
	if size < 1 {
		http.Error(w, "invalid size (has to be greater than 0)", http.StatusBadRequest)
		return
	}

	filter, err := h.filterFromQuery(ctx, r)
	if err != nil {
		if errors.Is(err, repo.ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	workouts, total, err := h.service.List(ctx, repo.ListParams{
		Filter: filter,
		Page:   page,
		Size:   size,
	})
	if err != nil {
		log.Errorf("list workouts: %s", err)
		http.Error(w, "list workouts failed", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, ListResponse{
		Workouts: workouts,
		Total:    total,
	})
}

// HandleListNthLastDay returns what was logged for an exercise on its
// nth last training day, 0 being the most recent one
func (h *Handler) HandleListNthLastDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.nthLastDay")
	defer span.End()

	vars := mux.Vars(r)
	n, err := strconv.Atoi(vars["n"])
	if err != nil || n < 0 {
		http.Error(w, "invalid day index", http.StatusBadRequest)
		return
	}

	workouts, err := h.service.ListNthLastDay(ctx, vars["identifier"], n)
	if err != nil {
		if errors.Is(err, repo.ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("list workouts of %d-th last day: %s", n, err)
		http.Error(w, "list workouts failed", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, ListResponse{
		Workouts: workouts,
		Total:    len(workouts),
	})
}

func (h *Handler) filterFromQuery(ctx context.Context, r *http.Request) (repo.Filter, error) {
	var filter repo.Filter

	if exercise := r.URL.Query().Get("exercise"); exercise != "" {
		resolved, err := h.resolver.Resolve(ctx, exercise)
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
		fromTs, err := parseDateOrTimestamp(from, false)
		if err != nil {
			return repo.Filter{}, fmt.Errorf("invalid from timestamp [%s]", from)
		}
		filter.From = &fromTs
	}

	if to := r.URL.Query().Get("to"); to != "" {
		toTs, err := parseDateOrTimestamp(to, true)
		if err != nil {
			return repo.Filter{}, fmt.Errorf("invalid to timestamp [%s]", to)
		}
		filter.To = &toTs
	}

	filter.MuscleSubstring = r.URL.Query().Get("muscle")

	return filter, nil
}

// parseTimestamp accepts RFC3339 or a plain date. A plain date lands
// on noon UTC so it stays on that calendar day in any timezone close
// to UTC. Empty means "now", signalled by a zero time.
func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, time.UTC), nil
}

// parseDateOrTimestamp is like parseTimestamp but for range bounds,
// a plain date as the upper bound covers the whole day
func parseDateOrTimestamp(raw string, endOfDay bool) (time.Time, error) {
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
