package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandsync/reconciler/internal/artifact"
	"github.com/brandsync/reconciler/internal/review"
	"github.com/brandsync/reconciler/internal/validation"
	"github.com/brandsync/reconciler/internal/web/handlers"
)

func setupServer(t *testing.T, apiKey string) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	score := 42.0
	summary := &artifact.Summary{RunID: "run-1", Entities: 3}
	summary.Dataset("contacts").Processed = 4

	w := artifact.NewWriter(dir, artifact.FormatJSON)
	_, err := w.WriteAll(artifact.Set{
		RunID: "run-1",
		Review: []artifact.ReviewEntry{
			{
				ID:       "contacts:2:0",
				Row:      artifact.RowRef{Dataset: "contacts", Line: 2, Name: "Acme Holdings"},
				Kind:     artifact.KindContact,
				Best:     artifact.CandidateRef{EntityID: "e2", EntityName: "Acme Corp", Score: 85},
				Decision: artifact.DecisionPending,
				Alternatives: []artifact.CandidateRef{
					{EntityID: "e5", EntityName: "Acme Holdings Group", Score: 82},
				},
			},
			{
				ID:       "subsidiaries:3:1",
				Row:      artifact.RowRef{Dataset: "subsidiaries", Line: 3, Name: "Zeta Labs"},
				Kind:     artifact.KindSubsidiary,
				Best:     artifact.CandidateRef{EntityID: "z2", EntityName: "Zeta Labs", Score: 81},
				Decision: artifact.DecisionPending,
			},
		},
		Unmatched: []artifact.UnmatchedEntry{
			{Row: artifact.RowRef{Dataset: "contacts", Line: 5, Name: "Nowhere Ltd"}, Kind: artifact.KindContact, BestScoreSeen: &score},
		},
		Rejected: []artifact.RejectedEntry{
			{Row: artifact.RowRef{Dataset: "contacts", Line: 6, Name: "N/A"}, Reason: string(validation.ReasonNotACompanyName)},
		},
		Plan:    []artifact.PlanEntry{},
		Summary: summary,
	})
	require.NoError(t, err)

	path := w.Path(artifact.NameReview)
	book, err := review.Open(path)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.ArtifactDir = dir
	cfg.APIKey = apiKey

	server, err := NewServer(cfg, book, zerolog.Nop())
	require.NoError(t, err)
	return server, path
}

func do(t *testing.T, s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestReviewEndpoints(t *testing.T) {
	s, path := setupServer(t, "")

	rec := do(t, s, "GET", "/api/review?decision=pending&kind=contact", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list handlers.ListResponse[artifact.ReviewEntry]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "contacts:2:0", list.Entries[0].ID)

	rec = do(t, s, "GET", "/api/review/subsidiaries:3:1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name   string
		id     string
		body   string
		status int
	}{
		{name: "Pick alternative", id: "contacts:2:0", body: `{"decision":"alternative","entity_id":"e5"}`, status: http.StatusOK},
		{name: "Alternative not listed", id: "contacts:2:0", body: `{"decision":"alternative","entity_id":"e9"}`, status: http.StatusBadRequest},
		{name: "Bad JSON", id: "contacts:2:0", body: `{`, status: http.StatusBadRequest},
		{name: "Unknown entry", id: "contacts:9:0", body: `{"decision":"rejected"}`, status: http.StatusNotFound},
		{name: "Reject", id: "subsidiaries:3:1", body: `{"decision":"rejected"}`, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, "POST", "/api/review/"+tt.id+"/decision", tt.body, nil)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	// decisions are written back to the review file
	reopened, err := review.Open(path)
	require.NoError(t, err)
	entry, err := reopened.Get("contacts:2:0")
	require.NoError(t, err)
	assert.Equal(t, artifact.DecisionAlternative, entry.Decision)
	assert.Equal(t, "e5", entry.ChosenEntityID)
	assert.Len(t, reopened.Entries(artifact.DecisionPending), 0)
}

func TestArtifactEndpoints(t *testing.T) {
	s, _ := setupServer(t, "")

	rec := do(t, s, "GET", "/api/unmatched", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var unmatched handlers.ListResponse[artifact.UnmatchedEntry]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&unmatched))
	require.Len(t, unmatched.Entries, 1)
	assert.Equal(t, "Nowhere Ltd", unmatched.Entries[0].Row.Name)

	rec = do(t, s, "GET", "/api/rejected", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(validation.ReasonNotACompanyName))

	rec = do(t, s, "GET", "/api/plan?page=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"page":2`)

	for _, page := range []string{"2", "184467440737095518", "9223372036854775807"} {
		rec = do(t, s, "GET", "/api/unmatched?per_page=50&page="+page, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, "page %s", page)
		var past handlers.ListResponse[artifact.UnmatchedEntry]
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&past))
		assert.Empty(t, past.Entries, "page %s", page)
		assert.Equal(t, 1, past.Total)
	}

	rec = do(t, s, "GET", "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats handlers.StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, "run-1", stats.RunID)
	assert.Equal(t, 2, stats.Review[artifact.DecisionPending])
	require.NotNil(t, stats.Summary)
	assert.Equal(t, 3, stats.Summary.Entities)
	assert.Equal(t, 4, stats.Summary.Datasets["contacts"].Processed)
}

func TestAuthentication(t *testing.T) {
	s, _ := setupServer(t, "secret")

	assert.Equal(t, http.StatusOK, do(t, s, "GET", "/health", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, "GET", "/api/review", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, "GET", "/api/review", "", map[string]string{"X-API-Key": "wrong"}).Code)
	assert.Equal(t, http.StatusOK, do(t, s, "GET", "/api/review", "", map[string]string{"X-API-Key": "secret"}).Code)
	assert.Equal(t, http.StatusOK, do(t, s, "GET", "/api/stats", "", map[string]string{"Authorization": "Bearer secret"}).Code)
}

func TestNewServerRequiresBook(t *testing.T) {
	_, err := NewServer(DefaultConfig(), nil, zerolog.Nop())
	assert.Error(t, err)
}
