package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source yields rows in source order and returns io.EOF when exhausted
type Source interface {
	Next() (Row, error)
}

// CSVSource reads rows lazily from a CSV file with a header line
type CSVSource struct {
	dataset string
	reader  *csv.Reader
	header  []string
	closer  io.Closer
}

// OpenCSV opens a CSV file as a row source
func OpenCSV(path, dataset string) (*CSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	src, err := NewCSVSource(file, dataset)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src.closer = file
	return src, nil
}

// NewCSVSource reads the header line and prepares to stream records
func NewCSVSource(r io.Reader, dataset string) (*CSVSource, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty CSV: missing header")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	return &CSVSource{dataset: dataset, reader: reader, header: header}, nil
}

// Header returns the normalized column names
func (s *CSVSource) Header() []string {
	return s.header
}

// Next returns the next record. Missing trailing fields read as empty strings.
func (s *CSVSource) Next() (Row, error) {
	record, err := s.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		return Row{}, fmt.Errorf("%s: failed to read CSV record: %w", s.dataset, err)
	}

	line, _ := s.reader.FieldPos(0)
	row := Row{
		Dataset: s.dataset,
		Line:    line,
		Columns: s.header,
		Values:  make(map[string]string, len(s.header)),
	}
	for i, col := range s.header {
		if i < len(record) {
			row.Values[col] = record[i]
		} else {
			row.Values[col] = ""
		}
	}

	return row, nil
}

// Close releases the underlying file, if any
func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// SliceSource serves rows from memory
type SliceSource struct {
	rows []Row
	pos  int
}

// NewSliceSource wraps rows as a source
func NewSliceSource(rows ...Row) *SliceSource {
	return &SliceSource{rows: rows}
}

// Next implements Source
func (s *SliceSource) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return Row{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// Collect drains a source. A nil source yields no rows.
func Collect(src Source) ([]Row, error) {
	if src == nil {
		return nil, nil
	}

	var rows []Row
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}
