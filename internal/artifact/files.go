package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format is the encoding artifacts are written in
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown artifact format %q", s)
}

// Ext returns the file extension, dot included
func (f Format) Ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// FormatOf picks the format from a file extension
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Encode marshals v in the given format
func Encode(format Format, v any) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Decode unmarshals data in the given format
func Decode(format Format, data []byte, v any) error {
	if format == FormatYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// WriteFile writes an artifact, replacing any existing file atomically
func WriteFile[T any](path string, file File[T]) error {
	data, err := Encode(FormatOf(path), file)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// ReadFile loads an artifact written by WriteFile
func ReadFile[T any](path string) (File[T], error) {
	var file File[T]

	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := Decode(FormatOf(path), data, &file); err != nil {
		return file, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if file.Entries == nil {
		file.Entries = []T{}
	}
	return file, nil
}

// Set is every artifact a run produces
type Set struct {
	RunID     string
	Review    []ReviewEntry
	Unmatched []UnmatchedEntry
	Rejected  []RejectedEntry
	Plan      []PlanEntry
	Summary   *Summary
}

// Writer places artifacts in one directory
type Writer struct {
	dir    string
	format Format
}

// NewWriter creates a writer for dir
func NewWriter(dir string, format Format) *Writer {
	if dir == "" {
		dir = "."
	}
	if format == "" {
		format = FormatJSON
	}
	return &Writer{dir: dir, format: format}
}

// Path returns where the named artifact lives
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name+w.format.Ext())
}

// WriteAll writes the review, unmatched, rejection and plan artifacts and the
// summary, returning the paths written
func (w *Writer) WriteAll(set Set) ([]string, error) {
	type step struct {
		name  string
		write func(path string) error
	}

	steps := []step{
		{NameReview, func(p string) error { return WriteFile(p, NewFile(set.RunID, set.Review)) }},
		{NameUnmatched, func(p string) error { return WriteFile(p, NewFile(set.RunID, set.Unmatched)) }},
		{NameRejected, func(p string) error { return WriteFile(p, NewFile(set.RunID, set.Rejected)) }},
		{NamePlan, func(p string) error { return WriteFile(p, NewFile(set.RunID, set.Plan)) }},
	}
	if set.Summary != nil {
		steps = append(steps, step{NameSummary, func(p string) error {
			return WriteFile(p, NewFile(set.RunID, []Summary{*set.Summary}))
		}})
	}

	var paths []string
	for _, s := range steps {
		path := w.Path(s.name)
		if err := s.write(path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteSummary rewrites only the summary, used once write results are known
func (w *Writer) WriteSummary(runID string, summary *Summary) (string, error) {
	path := w.Path(NameSummary)
	if summary == nil {
		return path, nil
	}
	return path, WriteFile(path, NewFile(runID, []Summary{*summary}))
}
