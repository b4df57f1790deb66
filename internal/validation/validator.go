package validation

import (
	"regexp"
	"strings"

	"github.com/brandsync/reconciler/internal/ingest"
	"github.com/brandsync/reconciler/internal/normalize"
)

// Narrative text that leaks into name columns when subsidiary lists are
// extracted from filings
var defaultDenylist = []string{
	`the following is a list`,
	`omitting subsidiaries`,
	`considered in the aggregate`,
	`company name`,
	`^name$`,
	`subsidiaries? of`,
	`as of \w+ \d+`,
}

// Column headers that show up as values
var defaultLabels = []string{"name", "company", "subsidiary", "subsidiaries", "company name"}

// Validator rejects rows that cannot be matched meaningfully
type Validator struct {
	denylist []*regexp.Regexp
	labels   map[string]bool
}

// NewValidator creates a validator with the built-in denylist
func NewValidator() *Validator {
	v, _ := NewValidatorWith(nil)
	return v
}

// NewValidatorWith adds extra case-insensitive patterns to the built-in denylist
func NewValidatorWith(extra []string) (*Validator, error) {
	v := &Validator{labels: make(map[string]bool, len(defaultLabels))}

	for _, p := range append(append([]string{}, defaultDenylist...), extra...) {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		v.denylist = append(v.denylist, re)
	}
	for _, l := range defaultLabels {
		v.labels[l] = true
	}

	return v, nil
}

// IsBoilerplate reports whether text matches a denylist pattern or a bare label
func (v *Validator) IsBoilerplate(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if v.labels[strings.ToLower(text)] {
		return true
	}
	for _, re := range v.denylist {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// IsCompanyName reports whether text survives the denylist and normalizes to something
func (v *Validator) IsCompanyName(text string) bool {
	return !v.IsBoilerplate(text) && normalize.CompanyName(text) != ""
}

// ValidateContact checks the company name of a contact row
func (v *Validator) ValidateContact(row ingest.ContactRow) Verdict {
	if !v.IsCompanyName(row.Company) {
		return reject(ReasonNotACompanyName, "company name %q", row.Company)
	}
	return Accept()
}

// ValidateSubsidiary checks the parent first, then the listed names, then
// whether a declared list is actually present. A listed name that is not a
// company name is excluded on its own; the row is rejected only when no
// listed name survives.
func (v *Validator) ValidateSubsidiary(row ingest.SubsidiaryRow) Verdict {
	asserts := row.DeclaredCount > 0 || row.Marked || len(row.Subsidiaries) > 0

	if v.IsBoilerplate(row.Parent) {
		return reject(ReasonWrongParentAssignment, "parent %q is boilerplate", row.Parent)
	}
	if asserts && normalize.CompanyName(row.Parent) == "" {
		return reject(ReasonWrongParentAssignment, "parent %q is empty after normalization", row.Parent)
	}

	// raw extraction columns are checked even when a cleaned name was used
	for _, col := range ingest.SubsidiaryNameColumns {
		if text := row.Get(col); text != "" && v.IsBoilerplate(text) {
			return reject(ReasonNotACompanyName, "%s %q", col, text)
		}
	}
	var excluded []Exclusion
	for i, name := range row.Subsidiaries {
		if !v.IsCompanyName(name) {
			excluded = append(excluded, Exclusion{Index: i, Name: name, Reason: ReasonNotACompanyName})
		}
	}
	if len(excluded) > 0 && len(excluded) == len(row.Subsidiaries) {
		return reject(ReasonNotACompanyName, "subsidiary %q", excluded[0].Name)
	}

	if (row.DeclaredCount > 0 || row.Marked) && len(row.Subsidiaries) == 0 {
		return reject(ReasonIncompleteSubsidiaryList, "declared %d subsidiaries, none listed", row.DeclaredCount)
	}

	verdict := Accept()
	verdict.Excluded = excluded
	return verdict
}
