package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/brandsync/reconciler/internal/artifact"
	"github.com/brandsync/reconciler/internal/engine"
	"github.com/brandsync/reconciler/internal/registry"
	"github.com/brandsync/reconciler/internal/review"
	"github.com/brandsync/reconciler/internal/web"
)

// reviewPath is the review artifact given on the command line, or the one in the output dir
func (a *app) reviewPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	writer, err := a.artifacts()
	if err != nil {
		return "", err
	}
	return writer.Path(artifact.NameReview), nil
}

// createReviewCmd creates the interactive review command
func createReviewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review [manual_review file]",
		Short: "Decide pending manual review entries interactively",
		Long: `Walk the pending entries of the manual review artifact. Each entry can be
accepted, switched to one of its alternatives, rejected or skipped. Quitting
saves every decision taken so far.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.reviewPath(args)
			if err != nil {
				return err
			}

			book, err := review.Open(path)
			if err != nil {
				return err
			}

			pending := book.Entries(artifact.DecisionPending)
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending review entries.")
				return nil
			}

			entries, summary, err := review.NewSession(cmd.InOrStdin(), cmd.OutOrStdout()).Run(pending)
			book.Replace(entries)
			if saveErr := book.Save(""); saveErr != nil {
				return errors.Join(err, saveErr)
			}
			if err != nil {
				return err
			}

			a.logger.Info().
				Str("file", path).
				Int("accepted", summary.Accepted).
				Int("alternative", summary.Alternative).
				Int("rejected", summary.Rejected).
				Int("remaining", summary.Remaining).
				Msg("Review decisions saved")
			return nil
		},
	}

	cmd.AddCommand(createReviewApplyCmd(a))
	return cmd
}

// createReviewApplyCmd creates the second pass that applies review decisions
func createReviewApplyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [manual_review file]",
		Short: "Apply accepted review decisions to the registry",
		Long: `Turn accepted and alternative decisions into a write plan using the same
staging as an automatic match, and apply it unless --dry-run is set. Rejected
entries are appended to the unmatched companies artifact.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			path, err := a.reviewPath(args)
			if err != nil {
				return err
			}
			book, err := review.Open(path)
			if err != nil {
				return err
			}

			store, snapshot, err := a.openRegistry(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			out := review.Resolve(book.Entries(""), a.cfg.Matching.SocialFields, snapshot)
			for _, e := range out.Unresolved {
				a.logger.Warn().Str("entry", e.ID).Str("note", e.Note).Msg("Review decision could not be applied")
			}

			if err := a.appendUnmatched(book.RunID(), out.Unmatched); err != nil {
				return err
			}

			var report registry.ApplyReport
			if a.cfg.Matching.SimulateOnly {
				engine.LogPlan(a.logger, out.Plan)
			} else {
				report = registry.Apply(ctx, store, out.Plan)
				for _, f := range report.Failed {
					a.logger.Error().Err(f.Err).Str("entity_id", f.EntityID).Msg("Failed to write entity")
				}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Review decisions applied: %d\n", len(out.Applied))
			fmt.Fprintf(w, "Plan: %d entities, %d mutations\n", out.Plan.Len(), out.Plan.MutationCount())
			if a.cfg.Matching.SimulateOnly {
				fmt.Fprintln(w, "Simulate only: nothing written")
			} else {
				fmt.Fprintf(w, "Entities written: %d, write errors: %d\n", len(report.Applied), len(report.Failed))
			}
			fmt.Fprintf(w, "Rejected in review: %d\n", len(out.Unmatched))
			fmt.Fprintf(w, "Unresolved: %d\n", len(out.Unresolved))
			fmt.Fprintf(w, "Still pending: %d\n", out.Pending)
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "log the write plan instead of applying it")
	return cmd
}

// appendUnmatched adds entries to the unmatched artifact, creating it if needed
func (a *app) appendUnmatched(runID string, entries []artifact.UnmatchedEntry) error {
	if len(entries) == 0 {
		return nil
	}

	writer, err := a.artifacts()
	if err != nil {
		return err
	}
	path := writer.Path(artifact.NameUnmatched)

	file, err := artifact.ReadFile[artifact.UnmatchedEntry](path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if file.RunID == "" {
		file.RunID = runID
	}

	return artifact.WriteFile(path, artifact.NewFile(file.RunID, append(file.Entries, entries...)))
}

// serve runs the review API until ctx is cancelled
func serve(ctx context.Context, a *app) error {
	path, err := a.reviewPath(nil)
	if err != nil {
		return err
	}
	book, err := review.Open(path)
	if err != nil {
		return err
	}

	format, err := a.cfg.ArtifactFormat()
	if err != nil {
		return err
	}

	cfg := web.DefaultConfig()
	cfg.Addr = a.cfg.Server.Addr
	cfg.APIKey = a.cfg.Server.APIKey
	cfg.ArtifactDir = a.cfg.Output.Dir
	cfg.Format = format
	if cfg.APIKey == "" {
		a.logger.Warn().Msg("server.api_key is not set, the review API is unauthenticated")
	}

	server, err := web.NewServer(cfg, book, a.logger)
	if err != nil {
		return err
	}
	return server.Start(ctx)
}
