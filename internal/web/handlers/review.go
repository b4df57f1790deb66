package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/brandsync/reconciler/internal/artifact"
	"github.com/brandsync/reconciler/internal/review"
)

// ReviewHandler serves the manual review queue
type ReviewHandler struct {
	Book   *review.Book
	Logger zerolog.Logger
}

// DecisionRequest records a reviewer's verdict
type DecisionRequest struct {
	Decision artifact.Decision `json:"decision"`
	EntityID string            `json:"entity_id"`
}

// ListEntries returns review entries filtered by decision, kind and dataset
func (h *ReviewHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kind := artifact.Kind(query.Get("kind"))
	dataset := query.Get("dataset")

	var entries []artifact.ReviewEntry
	for _, e := range h.Book.Entries(artifact.Decision(query.Get("decision"))) {
		if kind != "" && e.Kind != kind {
			continue
		}
		if dataset != "" && e.Row.Dataset != dataset {
			continue
		}
		entries = append(entries, e)
	}

	writeJSON(w, http.StatusOK, paginate(r, entries))
}

// GetEntry returns a single review entry
func (h *ReviewHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Book.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Decide records a decision and saves the review file when there is one
func (h *ReviewHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	entry, err := h.Book.Decide(id, req.Decision, req.EntityID)
	switch {
	case errors.Is(err, review.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, review.ErrInvalidDecision):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.Book.Path() != "" {
		if err := h.Book.Save(""); err != nil {
			h.Logger.Error().Err(err).Str("entry", id).Msg("Failed to save review decision")
			writeError(w, http.StatusInternalServerError, "failed to save decision")
			return
		}
	}

	h.Logger.Info().
		Str("entry", id).
		Str("decision", string(entry.Decision)).
		Str("entity_id", entry.ChosenEntityID).
		Msg("Review decision recorded")

	writeJSON(w, http.StatusOK, entry)
}
