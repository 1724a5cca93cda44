package bodyweight

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/repo"
	"github.com/2beens/ironlog/internal/prefs"
	"github.com/2beens/ironlog/internal/telemetry/metrics"
	"github.com/2beens/ironlog/internal/telemetry/tracing"
	"github.com/2beens/ironlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=bodyweight_test

type bodyweightsRepo interface {
	Add(ctx context.Context, entry repo.BodyweightEntry) (*repo.BodyweightEntry, error)
	Get(ctx context.Context, id int) (*repo.BodyweightEntry, error)
	ListAll(ctx context.Context) (_ []repo.BodyweightEntry, err error)
	Update(ctx context.Context, entry *repo.BodyweightEntry) error
	Delete(ctx context.Context, id int) error
}

type prefsStore interface {
	Get() prefs.Preferences
}

// AddBodyweightRequest carries a scale reading, in the user's display
// units. The timestamp is RFC3339, or just a date, or absent for
// "right now".
type AddBodyweightRequest struct {
	Timestamp string  `json:"timestamp,omitempty"`
	Weight    float64 `json:"weight"`
}

type ListResponse struct {
	Bodyweights []repo.BodyweightEntry `json:"bodyweights"`
	Total       int                    `json:"total"`
}

type UpdateBodyweightResponse struct {
	UpdatedID int `json:"updatedId"`
}

type DeleteBodyweightResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	repo    bodyweightsRepo
	prefs   prefsStore
	metrics *metrics.Manager
}

func NewHandler(bodyweights bodyweightsRepo, prefsStore prefsStore, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:    bodyweights,
		prefs:   prefsStore,
		metrics: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-bodyweight")
	router.HandleFunc("", handler.HandleList).Methods("GET", "OPTIONS").Name("list-bodyweights")
	router.HandleFunc("/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-bodyweight")
	router.HandleFunc("/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-bodyweight")
	router.HandleFunc("/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-bodyweight")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.bodyweight.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req AddBodyweightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new bodyweight, unmarshal json params: %s", err)
		http.Error(w, "add bodyweight failed", http.StatusBadRequest)
		return
	}

	entry, err := handler.entryFromRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entry.CreatedAt = time.Now()

	addedEntry, err := handler.repo.Add(ctx, *entry)
	if err != nil {
		if errors.Is(err, repo.ErrBodyweightEntryExists) {
			http.Error(w, "bodyweight for that time already logged", http.StatusConflict)
			return
		}
		log.Errorf("failed to add bodyweight entry: %s", err)
		http.Error(w, "error, failed to add bodyweight", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterBodyweightsAdded.Inc()

	log.Debugf("new bodyweight added: %.2f at %s", addedEntry.Weight, addedEntry.Timestamp)
	pkg.SendJsonResponse(w, http.StatusCreated, addedEntry)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.bodyweight.get")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	entry, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrBodyweightEntryNotFound) {
			http.Error(w, "bodyweight entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get bodyweight entry %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, entry)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.bodyweight.list")
	defer span.End()

	entries, err := handler.repo.ListAll(ctx)
	if err != nil {
		log.Errorf("list bodyweight entries: %s", err)
		http.Error(w, "failed to get bodyweight entries", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, ListResponse{
		Bodyweights: entries,
		Total:       len(entries),
	})
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.bodyweight.update")
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

	var req AddBodyweightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update bodyweight, unmarshal json params: %s", err)
		http.Error(w, "update bodyweight failed", http.StatusBadRequest)
		return
	}

	entry, err := handler.entryFromRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entry.ID = id

	if err := handler.repo.Update(ctx, entry); err != nil {
		switch {
		case errors.Is(err, repo.ErrBodyweightEntryNotFound):
			http.Error(w, "bodyweight entry not found", http.StatusNotFound)
		case errors.Is(err, repo.ErrBodyweightEntryExists):
			http.Error(w, "bodyweight for that time already logged", http.StatusConflict)
		default:
			log.Errorf("failed to update bodyweight entry %d: %s", id, err)
			http.Error(w, "error, failed to update bodyweight", http.StatusInternalServerError)
		}
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, UpdateBodyweightResponse{UpdatedID: id})
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.bodyweight.delete")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrBodyweightEntryNotFound) {
			http.Error(w, "bodyweight entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete bodyweight entry %d: %s", id, err)
		http.Error(w, "error, failed to delete bodyweight", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, DeleteBodyweightResponse{DeletedID: id})
}

func (handler *Handler) entryFromRequest(req AddBodyweightRequest) (*repo.BodyweightEntry, error) {
	if req.Weight <= 0 {
		return nil, errors.New("error, weight must be positive")
	}

	ts := time.Now().UTC()
	if req.Timestamp != "" {
		parsed, err := parseTimestamp(req.Timestamp)
		if err != nil {
			return nil, errors.New("invalid timestamp")
		}
		ts = parsed
	}

	units := handler.prefs.Get().Units
	return &repo.BodyweightEntry{
		Timestamp: ts,
		Weight:    units.WeightToCanonical(req.Weight),
	}, nil
}

// parseTimestamp accepts RFC3339 or a plain date, a plain date lands
// on noon UTC
func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, time.UTC), nil
}
