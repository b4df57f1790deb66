package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/brandsync/reconciler/internal/artifact"
	"github.com/brandsync/reconciler/internal/ingest"
	"github.com/brandsync/reconciler/internal/match"
	"github.com/brandsync/reconciler/internal/registry"
)

func printSummary(w io.Writer, s *artifact.Summary, paths []string) {
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 60))
	mode := "live"
	if s.Simulate {
		mode = "simulate only"
	}
	fmt.Fprintf(w, "Reconciliation run %s (%s)\n", s.RunID, mode)
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(w, "Registry entities: %d\n", s.Entities)

	for _, name := range []string{ingest.DatasetContacts, ingest.DatasetSubsidiaries} {
		d, ok := s.Datasets[name]
		if !ok || d.Rows == 0 {
			continue
		}

		fmt.Fprintf(w, "\n%s: %d rows\n", name, d.Rows)
		fmt.Fprintf(w, "  Processed:     %d\n", d.Processed)
		fmt.Fprintf(w, "  Auto-accepted: %d\n", d.Auto)
		fmt.Fprintf(w, "  Manual review: %d\n", d.Review)
		fmt.Fprintf(w, "  Unmatched:     %d\n", d.Unmatched)
		if d.Filtered > 0 {
			fmt.Fprintf(w, "  Filtered:      %d\n", d.Filtered)
		}
		if d.Skipped > 0 {
			fmt.Fprintf(w, "  Skipped:       %d\n", d.Skipped)
		}

		if total := d.RejectedTotal(); total > 0 {
			fmt.Fprintf(w, "  Rejected:      %d\n", total)
			reasons := make([]string, 0, len(d.Rejected))
			for r := range d.Rejected {
				reasons = append(reasons, r)
			}
			sort.Strings(reasons)
			for _, r := range reasons {
				fmt.Fprintf(w, "    %s: %d\n", r, d.Rejected[r])
			}
		}

		if len(d.ParentTiers) > 0 {
			fmt.Fprintf(w, "  Parents: %d auto, %d review, %d unmatched\n",
				d.ParentTiers[match.TierAuto], d.ParentTiers[match.TierReview], d.ParentTiers[match.TierUnmatched])
		}
	}

	fmt.Fprintf(w, "\nWrite plan: %d entities, %d mutations", s.PlanEntities, s.PlanMutations)
	if s.Conflicts > 0 {
		fmt.Fprintf(w, " (%d conflicts)", s.Conflicts)
	}
	fmt.Fprintln(w)
	if !s.Simulate {
		fmt.Fprintf(w, "Entities written: %d\n", s.Applied)
	}
	if len(s.WriteErrors) > 0 {
		fmt.Fprintf(w, "Write errors: %d\n", len(s.WriteErrors))
		for _, e := range s.WriteErrors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	if len(paths) > 0 {
		fmt.Fprintf(w, "\nArtifacts:\n")
		for _, p := range paths {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
}

func printEntities(w io.Writer, s *registry.Snapshot) {
	fmt.Fprintf(w, "Matchable entities: %d\n", s.Len())
	fmt.Fprintf(w, "Entities without a name: %d\n", s.Unnamed())
	fmt.Fprintf(w, "Name fields: %s\n", strings.Join(s.NameFields(), ", "))

	keys := s.SocialKeys()
	if len(keys) == 0 {
		fmt.Fprintln(w, "Social keys in use: none")
		return
	}
	fmt.Fprintf(w, "Social keys in use: %s\n", strings.Join(keys, ", "))
}
