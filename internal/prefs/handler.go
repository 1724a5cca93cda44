package prefs

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2beens/ironlog/internal/telemetry/tracing"
	"github.com/2beens/ironlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{
		store: store,
	}
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", h.HandleGet).Methods("GET")
	router.HandleFunc("", h.HandleUpdate).Methods("PATCH", "OPTIONS")
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.prefs.get")
	defer span.End()

	pkg.SendJsonResponse(w, http.StatusOK, h.store.Get())
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.prefs.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var patch Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		log.Tracef("update prefs, unmarshal json params: %s", err)
		http.Error(w, "update prefs failed", http.StatusBadRequest)
		return
	}

	updated, err := h.store.Update(patch)
	if err != nil {
		if errors.Is(err, ErrBadPatch) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("update prefs: %s", err)
		http.Error(w, "update prefs failed", http.StatusInternalServerError)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, updated)
}
