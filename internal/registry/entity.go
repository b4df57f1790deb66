package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brandsync/reconciler/internal/normalize"
	"github.com/brandsync/reconciler/internal/plan"
)

// DefaultNameFields are the document keys that may carry an entity's name, in lookup order
var DefaultNameFields = []string{"name", "company_name", "brand_name", "title"}

// Document is a raw registry record addressed by ID
type Document struct {
	ID     string         `json:"id" yaml:"id"`
	Fields map[string]any `json:"fields" yaml:"fields"`
}

// Entity is a known company drawn from the registry
type Entity struct {
	ID         string
	Names      []string // non-empty name field values, in name-field order
	normalized []string
}

// DisplayName returns the first name the entity carries
func (e Entity) DisplayName() string {
	if len(e.Names) == 0 {
		return ""
	}
	return e.Names[0]
}

// NormalizedNames returns the comparable form of every name
func (e Entity) NormalizedNames() []string {
	return e.normalized
}

// NewEntity builds an entity from a document using the given name fields.
// Names are de-duplicated on their normalized form; the first spelling wins.
func NewEntity(doc Document, nameFields []string) Entity {
	e := Entity{ID: doc.ID}
	seen := make(map[string]bool)

	for _, field := range nameFields {
		raw, ok := doc.Fields[field].(string)
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		n := normalize.CompanyName(raw)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		e.Names = append(e.Names, raw)
		e.normalized = append(e.normalized, n)
	}

	return e
}

// Snapshot is the read-only set of known entities for a single run
type Snapshot struct {
	entities   []Entity
	byID       map[string]int
	nameFields []string
	socialKeys []string
	unnamed    int
}

// NewSnapshot indexes documents. Documents without any usable name are counted but not matchable.
func NewSnapshot(docs []Document, nameFields []string) *Snapshot {
	if len(nameFields) == 0 {
		nameFields = DefaultNameFields
	}

	s := &Snapshot{
		byID:       make(map[string]int, len(docs)),
		nameFields: append([]string(nil), nameFields...),
	}

	socialKeys := make(map[string]bool)
	for _, doc := range docs {
		if social, ok := doc.Fields[plan.FieldSocial].(map[string]any); ok {
			for k := range social {
				socialKeys[k] = true
			}
		}

		e := NewEntity(doc, nameFields)
		if len(e.Names) == 0 {
			s.unnamed++
			continue
		}
		if _, dup := s.byID[e.ID]; dup {
			continue
		}
		s.byID[e.ID] = len(s.entities)
		s.entities = append(s.entities, e)
	}

	sort.Slice(s.entities, func(i, j int) bool {
		return s.entities[i].ID < s.entities[j].ID
	})
	for i, e := range s.entities {
		s.byID[e.ID] = i
	}

	for k := range socialKeys {
		s.socialKeys = append(s.socialKeys, k)
	}
	sort.Strings(s.socialKeys)

	return s
}

// Entities returns every matchable entity ordered by ID. Callers must not modify the slice.
func (s *Snapshot) Entities() []Entity {
	return s.entities
}

// Get looks up an entity by ID
func (s *Snapshot) Get(id string) (Entity, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Entity{}, false
	}
	return s.entities[i], true
}

// Len returns the number of matchable entities
func (s *Snapshot) Len() int {
	return len(s.entities)
}

// Unnamed returns how many documents had no usable name field
func (s *Snapshot) Unnamed() int {
	return s.unnamed
}

// NameFields returns the name fields the snapshot was built with
func (s *Snapshot) NameFields() []string {
	return s.nameFields
}

// SocialKeys returns the social keys already present in the registry
func (s *Snapshot) SocialKeys() []string {
	return s.socialKeys
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("snapshot(%d entities, %d unnamed)", len(s.entities), s.unnamed)
}
