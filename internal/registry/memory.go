package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/brandsync/reconciler/internal/plan"
)

// MemoryStore keeps registry documents in memory, optionally backed by a
// JSON or YAML file
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]map[string]any
	path  string
	dirty bool
}

// NewMemoryStore seeds a store with documents
func NewMemoryStore(docs ...Document) *MemoryStore {
	s := &MemoryStore{docs: make(map[string]map[string]any, len(docs))}
	for _, d := range docs {
		s.docs[d.ID] = copyFields(d.Fields)
	}
	return s
}

// LoadFile reads a list of documents from a .json, .yaml or .yml file.
// The file must exist; a mistyped path is an error, not an empty registry.
func LoadFile(path string) (*MemoryStore, error) {
	s := NewMemoryStore()
	s.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file %s: %w", path, err)
	}

	var docs []Document
	if isYAML(path) {
		err = yaml.Unmarshal(data, &docs)
	} else {
		err = json.Unmarshal(data, &docs)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry file %s: %w", path, err)
	}

	for _, d := range docs {
		if d.ID == "" {
			continue
		}
		s.docs[d.ID] = copyFields(d.Fields)
	}
	return s, nil
}

// Save writes the documents back to the file the store was loaded from
func (s *MemoryStore) Save() error {
	if s.path == "" {
		return nil
	}

	docs, _ := s.ListDocuments(context.Background())

	var (
		data []byte
		err  error
	)
	if isYAML(s.path) {
		data, err = yaml.Marshal(docs)
	} else {
		data, err = json.MarshalIndent(docs, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace registry file: %w", err)
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// ListDocuments returns copies of every document ordered by ID
func (s *MemoryStore) ListDocuments(ctx context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, Document{ID: id, Fields: copyFields(s.docs[id])})
	}
	return docs, nil
}

// Document returns a copy of one document
func (s *MemoryStore) Document(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.docs[id]
	if !ok {
		return Document{}, false
	}
	return Document{ID: id, Fields: copyFields(fields)}, true
}

// ApplyEntity swaps in an updated copy of the document, so readers never see a partial write
func (s *MemoryStore) ApplyEntity(ctx context.Context, entityID string, mutations []plan.Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fields, ok := s.docs[entityID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}
	s.docs[entityID] = plan.ApplyTo(fields, mutations)
	s.dirty = true
	return nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close writes a file-backed store back if anything changed
func (s *MemoryStore) Close() error {
	s.mu.RLock()
	dirty := s.dirty
	s.mu.RUnlock()

	if !dirty {
		return nil
	}
	return s.Save()
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if nested, ok := v.(map[string]any); ok {
			out[k] = copyFields(nested)
			continue
		}
		out[k] = v
	}
	return out
}
