package exercises

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/repo"
	"github.com/2beens/ironlog/internal/telemetry/tracing"
	"github.com/2beens/ironlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=exercises_test

type exercisesRepo interface {
	Add(ctx context.Context, exercise repo.Exercise) (*repo.Exercise, error)
	Get(ctx context.Context, id int) (*repo.Exercise, error)
	List(ctx context.Context) (_ []repo.Exercise, err error)
	ListMuscles(ctx context.Context) (_ []string, err error)
	Update(ctx context.Context, exercise *repo.Exercise) error
	Delete(ctx context.Context, id int) error
}

type exercisesResolver interface {
	Resolve(ctx context.Context, identifier string) (*repo.Exercise, error)
	Invalidate()
}

// AddExerciseRequest is a new exercise definition. The log flags are
// optional, when left out they follow from the exercise type.
type AddExerciseRequest struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Muscles     []string `json:"muscles,omitempty"`
	LogWeight   *bool    `json:"logWeight,omitempty"`
	LogReps     *bool    `json:"logReps,omitempty"`
	LogDuration *bool    `json:"logDuration,omitempty"`
	LogDistance *bool    `json:"logDistance,omitempty"`
}

type DeleteExerciseResponse struct {
	DeletedID int `json:"deletedId"`
}

type UpdateExerciseResponse struct {
	UpdatedID int `json:"updatedId"`
}

type ListResponse struct {
	Exercises []repo.Exercise `json:"exercises"`
	Total     int             `json:"total"`
}

type MusclesResponse struct {
	Muscles []string `json:"muscles"`
}

type Handler struct {
	repo     exercisesRepo
	resolver exercisesResolver
}

func NewHandler(exercises exercisesRepo, resolver exercisesResolver) *Handler {
	return &Handler{
		repo:     exercises,
		resolver: resolver,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-exercise")
	router.HandleFunc("", handler.HandleList).Methods("GET", "OPTIONS").Name("list-exercises")
	router.HandleFunc("/muscles", handler.HandleListMuscles).Methods("GET", "OPTIONS").Name("list-muscles")
	router.HandleFunc("/resolve/{identifier}", handler.HandleResolve).Methods("GET", "OPTIONS").Name("resolve-exercise")
	router.HandleFunc("/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-exercise")
	router.HandleFunc("/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-exercise")
	router.HandleFunc("/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-exercise")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req AddExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new exercise, unmarshal json params: %s", err)
		http.Error(w, "add exercise failed", http.StatusBadRequest)
		return
	}

	exercise, err := exerciseFromRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	exercise.CreatedAt = time.Now()

	addedExercise, err := handler.repo.Add(ctx, *exercise)
	if err != nil {
		if errors.Is(err, repo.ErrExerciseExists) {
			http.Error(w, "exercise already exists", http.StatusConflict)
			return
		}
		log.Errorf("failed to add new exercise [%s]: %s", exercise.Name, err)
		http.Error(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}

	handler.resolver.Invalidate()

	addedExJson, err := json.Marshal(addedExercise)
	if err != nil {
		log.Errorf("failed to marshal new exercise: %s", err)
		http.Error(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}

	log.Debugf("new exercise added: %s", addedExJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedExJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.get")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	exercise, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get exercise %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, exercise)
}

// HandleResolve finds a definition by id, name or alias, whatever the
// client has at hand
func (handler *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.resolve")
	defer span.End()

	identifier := mux.Vars(r)["identifier"]
	if identifier == "" {
		http.Error(w, "error, identifier empty", http.StatusBadRequest)
		return
	}

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

	pkg.SendJsonResponse(w, http.StatusOK, exercise)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	exercises, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("list exercises error: %s", err)
		http.Error(w, "failed to get exercises", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, ListResponse{
		Exercises: exercises,
		Total:     len(exercises),
	})
}

func (handler *Handler) HandleListMuscles(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.muscles")
	defer span.End()

	muscles, err := handler.repo.ListMuscles(ctx)
	if err != nil {
		log.Errorf("list muscles error: %s", err)
		http.Error(w, "failed to get muscles", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, MusclesResponse{Muscles: muscles})
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	var req AddExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update exercise, unmarshal json params: %s", err)
		http.Error(w, "update exercise failed", http.StatusBadRequest)
		return
	}

	exercise, err := exerciseFromRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	exercise.ID = id

	currentExercise, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrExerciseNotFound) {
			log.Debugf("exercise %d not found", id)
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get exercise %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	log.Debugf("update exercise %+v -> %+v", currentExercise, exercise)

	if err := handler.repo.Update(ctx, exercise); err != nil {
		if errors.Is(err, repo.ErrExerciseExists) {
			http.Error(w, "exercise name already taken", http.StatusConflict)
			return
		}
		log.Errorf("failed to update exercise [%d] [%s]: %s", exercise.ID, exercise.Name, err)
		http.Error(w, "error, failed to update exercise", http.StatusInternalServerError)
		return
	}

	handler.resolver.Invalidate()

	pkg.SendJsonResponse(w, http.StatusOK, UpdateExerciseResponse{UpdatedID: id})
}

// HandleDelete removes a definition together with its aliases. The
// logged workouts of that exercise stay untouched.
func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.delete")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	exercise, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrExerciseNotFound) {
			log.Debugf("exercise %d not found", id)
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get exercise %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	log.Debugf("deleting exercise %+v", exercise)

	if err := handler.repo.Delete(ctx, id); err != nil {
		log.Errorf("failed to delete exercise %d: %s", id, err)
		http.Error(w, "exercise not deleted", http.StatusInternalServerError)
		return
	}

	handler.resolver.Invalidate()

	pkg.SendJsonResponse(w, http.StatusOK, DeleteExerciseResponse{DeletedID: id})
}

func exerciseFromRequest(req AddExerciseRequest) (*repo.Exercise, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.New("error, exercise name empty")
	}
	exerciseType := repo.ExerciseType(req.Type)
	if !exerciseType.IsValid() {
		return nil, errors.New("error, invalid exercise type")
	}

	var muscles []string
	for _, muscle := range req.Muscles {
		muscle = strings.ToLower(strings.TrimSpace(muscle))
		if muscle != "" {
			muscles = append(muscles, muscle)
		}
	}

	exercise := &repo.Exercise{
		Name:    name,
		Type:    exerciseType,
		Muscles: muscles,
	}

	// each type comes with its natural set of logged metrics
	switch exerciseType {
	case repo.ExerciseTypeResistance:
		exercise.LogWeight = true
		exercise.LogReps = true
	case repo.ExerciseTypeBodyWeight:
		exercise.LogReps = true
	case repo.ExerciseTypeCardio:
		exercise.LogDuration = true
		exercise.LogDistance = true
	}
	if req.LogWeight != nil {
		exercise.LogWeight = *req.LogWeight
	}
	if req.LogReps != nil {
		exercise.LogReps = *req.LogReps
	}
	if req.LogDuration != nil {
		exercise.LogDuration = *req.LogDuration
	}
	if req.LogDistance != nil {
		exercise.LogDistance = *req.LogDistance
	}

	return exercise, nil
}
