package handlers

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/brandsync/reconciler/internal/artifact"
	"github.com/brandsync/reconciler/internal/review"
)

// APIHandler serves run artifacts and statistics
type APIHandler struct {
	Book      *review.Book
	Artifacts *artifact.Writer
}

// StatsResponse combines the run summary with review progress
type StatsResponse struct {
	RunID   string                    `json:"run_id"`
	Review  map[artifact.Decision]int `json:"review"`
	Summary *artifact.Summary         `json:"summary,omitempty"`
}

// Health reports that the server is up
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"run_id": h.Book.RunID(),
	})
}

// GetStats returns review decision counts and the run summary, when written
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := StatsResponse{
		RunID:  h.Book.RunID(),
		Review: h.Book.Counts(),
	}

	file, err := artifact.ReadFile[artifact.Summary](h.Artifacts.Path(artifact.NameSummary))
	switch {
	case err == nil && len(file.Entries) > 0:
		stats.Summary = &file.Entries[0]
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ListUnmatched returns the unmatched companies artifact
func (h *APIHandler) ListUnmatched(w http.ResponseWriter, r *http.Request) {
	serveArtifact[artifact.UnmatchedEntry](w, r, h.Artifacts.Path(artifact.NameUnmatched))
}

// ListRejected returns the rejected rows artifact
func (h *APIHandler) ListRejected(w http.ResponseWriter, r *http.Request) {
	serveArtifact[artifact.RejectedEntry](w, r, h.Artifacts.Path(artifact.NameRejected))
}

// ListPlan returns the write plan artifact
func (h *APIHandler) ListPlan(w http.ResponseWriter, r *http.Request) {
	serveArtifact[artifact.PlanEntry](w, r, h.Artifacts.Path(artifact.NamePlan))
}

func serveArtifact[T any](w http.ResponseWriter, r *http.Request, path string) {
	file, err := artifact.ReadFile[T](path)
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, paginate(r, file.Entries))
}
