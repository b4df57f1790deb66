package review

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/brandsync/reconciler/internal/artifact"
)

// Summary counts the decisions taken in one session
type Summary struct {
	Accepted    int
	Alternative int
	Rejected    int
	Skipped     int
	Remaining   int
	Quit        bool
}

// Session walks pending review entries and asks for a decision on each
type Session struct {
	in  *bufio.Reader
	out io.Writer
}

// NewSession reads answers from in and prints prompts to out
func NewSession(in io.Reader, out io.Writer) *Session {
	return &Session{in: bufio.NewReader(in), out: out}
}

// Run asks about every pending entry in order and returns the updated
// entries. Quitting, or running out of input, leaves the rest pending.
func (s *Session) Run(entries []artifact.ReviewEntry) ([]artifact.ReviewEntry, Summary, error) {
	out := append([]artifact.ReviewEntry(nil), entries...)

	var pending []int
	for i, e := range out {
		if !e.Decision.Decided() {
			pending = append(pending, i)
		}
	}

	var summary Summary
	for n, i := range pending {
		if summary.Quit {
			summary.Remaining++
			continue
		}

		s.display(out[i], n, len(pending))

		action, err := s.ask(out[i])
		if err != nil {
			return out, summary, err
		}

		var decision artifact.Decision
		switch action.kind {
		case actionQuit:
			summary.Quit = true
			summary.Remaining++
			continue
		case actionSkip:
			summary.Skipped++
			summary.Remaining++
			continue
		case actionAccept:
			decision = artifact.DecisionAccepted
			summary.Accepted++
		case actionAlternative:
			decision = artifact.DecisionAlternative
			summary.Alternative++
		case actionReject:
			decision = artifact.DecisionRejected
			summary.Rejected++
		}

		if err := record(&out[i], decision, action.entityID); err != nil {
			return out, summary, err
		}
	}

	fmt.Fprintf(s.out, "\nReview session complete: %d accepted, %d alternatives, %d rejected, %d skipped, %d remaining\n",
		summary.Accepted, summary.Alternative, summary.Rejected, summary.Skipped, summary.Remaining)
	return out, summary, nil
}

func (s *Session) display(e artifact.ReviewEntry, index, total int) {
	fmt.Fprintf(s.out, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(s.out, "Item %d of %d (%s)\n", index+1, total, e.ID)
	fmt.Fprintf(s.out, "%s\n", strings.Repeat("=", 60))

	switch e.Kind {
	case artifact.KindSubsidiary:
		fmt.Fprintf(s.out, "Type: Subsidiary\n")
		if e.Parent != nil {
			fmt.Fprintf(s.out, "Parent: %s (%s)\n", e.Parent.Name, e.Parent.Tier)
			if e.Parent.Best != nil {
				fmt.Fprintf(s.out, "Parent Match: %s (ID: %s) %.1f%%\n", e.Parent.Best.EntityName, e.Parent.Best.EntityID, e.Parent.Best.Score)
			}
		}
		fmt.Fprintf(s.out, "Subsidiary: %s\n", e.Row.Name)
	case artifact.KindParent:
		fmt.Fprintf(s.out, "Type: Subsidiary Parent\nParent: %s\n", e.Row.Name)
	default:
		fmt.Fprintf(s.out, "Type: Contact\nCompany: %s\n", e.Row.Name)
	}

	fmt.Fprintf(s.out, "Match: %s (ID: %s)\n", e.Best.EntityName, e.Best.EntityID)
	fmt.Fprintf(s.out, "Similarity Score: %.1f%% (%s)\n", e.Best.Score, e.Best.Algorithm)
	if e.Note != "" {
		fmt.Fprintf(s.out, "Note: %s\n", e.Note)
	}

	if len(e.ContactData) > 0 {
		fmt.Fprintf(s.out, "\nContact Data:\n")
		keys := make([]string, 0, len(e.ContactData))
		for k := range e.ContactData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(s.out, "  %s: %s\n", k, e.ContactData[k])
		}
	}

	if len(e.Alternatives) > 0 {
		fmt.Fprintf(s.out, "\nAlternative Matches:\n")
		for i, alt := range e.Alternatives {
			fmt.Fprintf(s.out, "  [%d] %s (ID: %s) - %.1f%%\n", i+1, alt.EntityName, alt.EntityID, alt.Score)
		}
	}

	fmt.Fprintf(s.out, "\nOptions: [a] accept  [1-%d] pick alternative  [r] reject  [s] skip  [q] quit and save\n", len(e.Alternatives))
}

type actionKind int

const (
	actionAccept actionKind = iota
	actionAlternative
	actionReject
	actionSkip
	actionQuit
)

type action struct {
	kind     actionKind
	entityID string
}

func (s *Session) ask(e artifact.ReviewEntry) (action, error) {
	for {
		fmt.Fprint(s.out, "Choice: ")

		line, err := s.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return action{}, fmt.Errorf("failed to read choice: %w", err)
		}
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) == "" {
			return action{kind: actionQuit}, nil
		}

		if a, ok := parseChoice(strings.TrimSpace(line), e); ok {
			return a, nil
		}
		fmt.Fprintf(s.out, "Invalid choice %q\n", strings.TrimSpace(line))
		if errors.Is(err, io.EOF) {
			return action{kind: actionQuit}, nil
		}
	}
}

func parseChoice(choice string, e artifact.ReviewEntry) (action, bool) {
	switch strings.ToLower(choice) {
	case "a", "accept":
		return action{kind: actionAccept}, true
	case "r", "reject":
		return action{kind: actionReject}, true
	case "s", "skip":
		return action{kind: actionSkip}, true
	case "q", "quit":
		return action{kind: actionQuit}, true
	}

	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(e.Alternatives) {
		return action{}, false
	}
	return action{kind: actionAlternative, entityID: e.Alternatives[n-1].EntityID}, true
}
