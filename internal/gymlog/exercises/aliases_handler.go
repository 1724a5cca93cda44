package exercises

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/repo"
	"github.com/2beens/ironlog/internal/telemetry/tracing"
	"github.com/2beens/ironlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=aliases_mocks_test.go -package=exercises_test

type aliasesRepo interface {
	Add(ctx context.Context, alias repo.Alias) error
	List(ctx context.Context, exerciseName string) (_ []repo.Alias, err error)
	Delete(ctx context.Context, name string) error
}

type AddAliasRequest struct {
	Alias    string `json:"alias"`
	Exercise string `json:"exercise"`
}

type AliasesResponse struct {
	Aliases []repo.Alias `json:"aliases"`
}

type DeleteAliasResponse struct {
	DeletedAlias string `json:"deletedAlias"`
}

// AliasesHandler manages the shorthand names, so "bp" can stand in
// for "Bench Press" when logging from the phone.
type AliasesHandler struct {
	repo     aliasesRepo
	resolver exercisesResolver
}

func NewAliasesHandler(aliases aliasesRepo, resolver exercisesResolver) *AliasesHandler {
	return &AliasesHandler{
		repo:     aliases,
		resolver: resolver,
	}
}

func (handler *AliasesHandler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/alias", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-alias")
	router.HandleFunc("/alias", handler.HandleList).Methods("GET", "OPTIONS").Name("list-aliases")
	router.HandleFunc("/alias/{name}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-alias")
}

func (handler *AliasesHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.aliases.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req AddAliasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new alias, unmarshal json params: %s", err)
		http.Error(w, "add alias failed", http.StatusBadRequest)
		return
	}

	aliasName := strings.TrimSpace(req.Alias)
	if aliasName == "" || req.Exercise == "" {
		http.Error(w, "error, alias or exercise empty", http.StatusBadRequest)
		return
	}

	// the target can be given by id, name or even another alias
	exercise, err := handler.resolver.Resolve(ctx, req.Exercise)
	if err != nil {
		if errors.Is(err, repo.ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to resolve exercise [%s]: %s", req.Exercise, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	alias := repo.Alias{
		Name:         aliasName,
		ExerciseName: exercise.Name,
		CreatedAt:    time.Now(),
	}
	if err := handler.repo.Add(ctx, alias); err != nil {
		if errors.Is(err, repo.ErrAliasExists) {
			http.Error(w, "alias already exists", http.StatusConflict)
			return
		}
		log.Errorf("failed to add alias [%s] -> [%s]: %s", aliasName, exercise.Name, err)
		http.Error(w, "error, failed to add alias", http.StatusInternalServerError)
		return
	}

	handler.resolver.Invalidate()

	log.Debugf("new alias added: [%s] -> [%s]", aliasName, exercise.Name)
	pkg.SendJsonResponse(w, http.StatusCreated, alias)
}

func (handler *AliasesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.aliases.list")
	defer span.End()

	exerciseName := r.URL.Query().Get("exercise")

	aliases, err := handler.repo.List(ctx, exerciseName)
	if err != nil {
		log.Errorf("list aliases error: %s", err)
		http.Error(w, "failed to get aliases", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, AliasesResponse{Aliases: aliases})
}

func (handler *AliasesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.aliases.delete")
	defer span.End()

	name := mux.Vars(r)["name"]
	if name == "" {
		http.Error(w, "error, alias name empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, name); err != nil {
		if errors.Is(err, repo.ErrAliasNotFound) {
			http.Error(w, "alias not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete alias [%s]: %s", name, err)
		http.Error(w, "error, failed to delete alias", http.StatusInternalServerError)
		return
	}

	handler.resolver.Invalidate()

	pkg.SendJsonResponse(w, http.StatusOK, DeleteAliasResponse{DeletedAlias: name})
}
