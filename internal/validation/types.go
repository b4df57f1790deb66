package validation

import (
	"errors"
	"fmt"
)

// Reason identifies why a row was rejected before matching
type Reason string

const (
	ReasonNone                     Reason = ""
	ReasonWrongParentAssignment    Reason = "wrong_parent_assignment"
	ReasonNotACompanyName          Reason = "not_a_company_name"
	ReasonIncompleteSubsidiaryList Reason = "incomplete_subsidiary_list"
)

// Reasons lists every rejection reason in check order
var Reasons = []Reason{
	ReasonWrongParentAssignment,
	ReasonNotACompanyName,
	ReasonIncompleteSubsidiaryList,
}

// ErrRowRejected is the sentinel wrapped by every RejectedError
var ErrRowRejected = errors.New("row rejected by validation")

// Exclusion is one listed subsidiary dropped from an otherwise accepted row
type Exclusion struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason Reason `json:"reason"`
}

// Verdict is the outcome of validating one row
type Verdict struct {
	Accepted bool        `json:"accepted"`
	Reason   Reason      `json:"reason,omitempty"`
	Detail   string      `json:"detail,omitempty"`
	Excluded []Exclusion `json:"excluded,omitempty"`
}

// Excludes reports whether the i-th listed subsidiary was dropped
func (v Verdict) Excludes(i int) bool {
	for _, x := range v.Excluded {
		if x.Index == i {
			return true
		}
	}
	return false
}

// Accept is the verdict for a row that may proceed to scoring
func Accept() Verdict {
	return Verdict{Accepted: true}
}

func reject(reason Reason, format string, args ...any) Verdict {
	return Verdict{Accepted: false, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Err returns nil for an accepted verdict and a *RejectedError otherwise
func (v Verdict) Err() error {
	if v.Accepted {
		return nil
	}
	return &RejectedError{Reason: v.Reason, Detail: v.Detail}
}

// RejectedError carries the rejection reason of a row
type RejectedError struct {
	Reason Reason
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("row rejected: %s", e.Reason)
	}
	return fmt.Sprintf("row rejected: %s: %s", e.Reason, e.Detail)
}

func (e *RejectedError) Unwrap() error {
	return ErrRowRejected
}

// ReasonOf extracts the rejection reason from an error chain
func ReasonOf(err error) (Reason, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Reason, true
	}
	return ReasonNone, false
}
