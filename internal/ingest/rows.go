package ingest

import (
	"strconv"
	"strings"
)

// Dataset names
const (
	DatasetContacts     = "contacts"
	DatasetSubsidiaries = "subsidiaries"
)

// Column names read from the contact and subsidiary CSV files
var (
	ContactNameColumns       = []string{"company_clean", "company_name", "company"}
	ParentNameColumns        = []string{"company_name", "parent_name", "parent"}
	SubsidiaryNameColumns    = []string{"subsidiary_name_clean", "subsidiary_name_raw", "subsidiary_name"}
	SubsidiaryListColumn     = "subsidiaries"
	SubsidiaryCountColumn    = "subsidiary_count"
	SubsidiaryMarkerColumn   = "has_subsidiaries"
	subsidiaryListSeparators = ";|"
)

// Row is one record from a tabular source
type Row struct {
	Dataset string
	Line    int
	Columns []string // header order
	Values  map[string]string
}

// Get returns the first non-empty value among the given columns, trimmed
func (r Row) Get(columns ...string) string {
	for _, c := range columns {
		if v := strings.TrimSpace(r.Values[c]); v != "" {
			return v
		}
	}
	return ""
}

// ContactRow is a company plus its contact columns
type ContactRow struct {
	Row
	Company string
}

// AsContact reads the contact shape out of a row
func AsContact(r Row) ContactRow {
	return ContactRow{Row: r, Company: r.Get(ContactNameColumns...)}
}

// Contact returns the non-empty values of the given columns
func (c ContactRow) Contact(columns []string) map[string]string {
	out := make(map[string]string)
	for _, col := range columns {
		if v := c.Get(col); v != "" {
			out[col] = v
		}
	}
	return out
}

// SubsidiaryRow is a parent company and the subsidiaries listed for it
type SubsidiaryRow struct {
	Row
	Parent        string
	Subsidiaries  []string
	DeclaredCount int
	Marked        bool
}

// AsSubsidiary reads the subsidiary shape out of a row. A delimited
// "subsidiaries" column takes precedence over the single-name columns.
func AsSubsidiary(r Row) SubsidiaryRow {
	s := SubsidiaryRow{
		Row:           r,
		Parent:        r.Get(ParentNameColumns...),
		DeclaredCount: parseCount(r.Get(SubsidiaryCountColumn)),
		Marked:        parseBool(r.Get(SubsidiaryMarkerColumn)),
	}

	if list := r.Get(SubsidiaryListColumn); list != "" {
		for _, name := range strings.FieldsFunc(list, func(c rune) bool {
			return strings.ContainsRune(subsidiaryListSeparators, c)
		}) {
			if name = strings.TrimSpace(name); name != "" {
				s.Subsidiaries = append(s.Subsidiaries, name)
			}
		}
	} else if name := r.Get(SubsidiaryNameColumns...); name != "" {
		s.Subsidiaries = []string{name}
	}

	return s
}

// parseCount treats anything unparseable as zero
func parseCount(v string) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0
		}
		n = int(f)
	}
	if n < 0 {
		return 0
	}
	return n
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}
