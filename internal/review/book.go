package review

import (
	"errors"
	"fmt"
	"sync"

	"github.com/brandsync/reconciler/internal/artifact"
)

var (
	// ErrEntryNotFound is returned for an unknown review entry ID
	ErrEntryNotFound = errors.New("review entry not found")

	// ErrInvalidDecision is returned for a decision that cannot be recorded
	ErrInvalidDecision = errors.New("invalid review decision")
)

// Book holds a manual review artifact and records decisions against it.
// It is safe for concurrent use.
type Book struct {
	mu    sync.RWMutex
	path  string
	file  artifact.File[artifact.ReviewEntry]
	index map[string]int
}

// Open loads a review artifact
func Open(path string) (*Book, error) {
	file, err := artifact.ReadFile[artifact.ReviewEntry](path)
	if err != nil {
		return nil, err
	}
	b := &Book{path: path}
	b.reset(file)
	return b, nil
}

// NewBook wraps entries that are not backed by a file
func NewBook(runID string, entries []artifact.ReviewEntry) *Book {
	b := &Book{}
	b.reset(artifact.NewFile(runID, entries))
	return b
}

func (b *Book) reset(file artifact.File[artifact.ReviewEntry]) {
	b.file = file
	b.file.Count = len(file.Entries)
	b.index = make(map[string]int, len(file.Entries))
	for i, e := range file.Entries {
		if e.Decision == "" {
			b.file.Entries[i].Decision = artifact.DecisionPending
		}
		b.index[e.ID] = i
	}
}

// RunID returns the run that produced the entries
func (b *Book) RunID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.file.RunID
}

// Path is the file the book was opened from, empty for an in-memory book
func (b *Book) Path() string {
	return b.path
}

// Entries returns a copy of the entries, optionally only those with the given decision
func (b *Book) Entries(decision artifact.Decision) []artifact.ReviewEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]artifact.ReviewEntry, 0, len(b.file.Entries))
	for _, e := range b.file.Entries {
		if decision == "" || e.Decision == decision {
			out = append(out, e)
		}
	}
	return out
}

// Get returns one entry
func (b *Book) Get(id string) (artifact.ReviewEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i, ok := b.index[id]
	if !ok {
		return artifact.ReviewEntry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return b.file.Entries[i], nil
}

// Decide records a decision. Accepting without a chosen entity picks the best
// candidate; picking an alternative requires one of the listed alternatives.
func (b *Book) Decide(id string, decision artifact.Decision, chosenEntityID string) (artifact.ReviewEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i, ok := b.index[id]
	if !ok {
		return artifact.ReviewEntry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	entry := b.file.Entries[i]
	if err := record(&entry, decision, chosenEntityID); err != nil {
		return artifact.ReviewEntry{}, err
	}
	b.file.Entries[i] = entry
	return entry, nil
}

// record applies a decision to an entry in place
func record(entry *artifact.ReviewEntry, decision artifact.Decision, chosenEntityID string) error {
	switch decision {
	case artifact.DecisionPending, artifact.DecisionRejected:
		entry.ChosenEntityID = ""

	case artifact.DecisionAccepted:
		if chosenEntityID == "" {
			chosenEntityID = entry.Best.EntityID
		}
		entry.ChosenEntityID = chosenEntityID

	case artifact.DecisionAlternative:
		entry.ChosenEntityID = chosenEntityID

	default:
		return fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
	entry.Decision = decision

	if decision == artifact.DecisionAccepted || decision == artifact.DecisionAlternative {
		if _, ok := entry.Chosen(); !ok {
			return fmt.Errorf("%w: %s is not a candidate of %s", ErrInvalidDecision, chosenEntityID, entry.ID)
		}
	}
	return nil
}

// Replace swaps in updated entries, matched by ID
func (b *Book) Replace(entries []artifact.ReviewEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range entries {
		if i, ok := b.index[e.ID]; ok {
			b.file.Entries[i] = e
		}
	}
}

// Counts returns how many entries carry each decision
func (b *Book) Counts() map[artifact.Decision]int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	counts := make(map[artifact.Decision]int)
	for _, e := range b.file.Entries {
		counts[e.Decision]++
	}
	return counts
}

// Save writes the entries back to the file they were loaded from, or to path when given
func (b *Book) Save(path string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if path == "" {
		path = b.path
	}
	if path == "" {
		return fmt.Errorf("review book has no file to save to")
	}
	return artifact.WriteFile(path, b.file)
}
