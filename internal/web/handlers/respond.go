package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListResponse is a page of entries
type ListResponse[T any] struct {
	Entries []T `json:"entries"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func parseIntParam(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// paginate slices entries by the page and per_page query parameters
func paginate[T any](r *http.Request, entries []T) ListResponse[T] {
	query := r.URL.Query()
	page := parseIntParam(query.Get("page"), 1)
	perPage := parseIntParam(query.Get("per_page"), 50)
	if perPage > 1000 {
		perPage = 1000
	}

	// compare page counts so a huge page number cannot overflow the offset
	start := len(entries)
	if page-1 < (len(entries)+perPage-1)/perPage {
		start = (page - 1) * perPage
	}
	end := len(entries)
	if perPage < end-start {
		end = start + perPage
	}

	out := make([]T, end-start)
	copy(out, entries[start:end])
	return ListResponse[T]{Entries: out, Total: len(entries), Page: page, PerPage: perPage}
}
