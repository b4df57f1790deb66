package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/brandsync/reconciler/internal/artifact"
	"github.com/brandsync/reconciler/internal/config"
	"github.com/brandsync/reconciler/internal/engine"
	"github.com/brandsync/reconciler/internal/ingest"
	"github.com/brandsync/reconciler/internal/logging"
	"github.com/brandsync/reconciler/internal/registry"
	"github.com/brandsync/reconciler/internal/validation"
)

// flagKeys maps config keys to the flags that override them
var flagKeys = map[string]string{
	"matching.auto_accept_threshold":   "auto-threshold",
	"matching.manual_review_threshold": "review-threshold",
	"matching.top_k":                   "top-k",
	"matching.workers":                 "workers",
	"matching.single_company":          "single-company",
	"matching.simulate_only":           "dry-run",
	"input.contacts":                   "contacts",
	"input.subsidiaries":               "subsidiaries",
	"output.dir":                       "output-dir",
	"output.format":                    "format",
	"registry.driver":                  "registry-driver",
	"registry.file":                    "registry-file",
	"registry.fail_on_empty":           "fail-on-empty",
	"log.level":                        "log-level",
	"log.format":                       "log-format",
	"server.addr":                      "addr",
}

// app carries what every command needs once flags are parsed
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	logger     zerolog.Logger
	logCloser  io.Closer
}

func main() {
	a := &app{v: config.New(), logger: zerolog.Nop()}

	// Create root command
	rootCmd := &cobra.Command{
		Use:           "reconciler",
		Short:         "Company name reconciliation against the brand registry",
		Long:          `Match contact and subsidiary company names against known registry entities and stage enrichment writes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./reconciler.yaml when present)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.String("registry-driver", registry.DriverMemory, "registry driver (memory, postgres, sqlite)")
	flags.String("registry-file", "", "JSON or YAML entity file for the memory driver")
	flags.String("output-dir", ".", "directory artifacts are written to and read from")
	flags.String("format", string(artifact.FormatJSON), "artifact format (json, yaml)")

	// Add subcommands
	rootCmd.AddCommand(createRunCmd(a))
	rootCmd.AddCommand(createReviewCmd(a))
	rootCmd.AddCommand(createServeCmd(a))
	rootCmd.AddCommand(createEntitiesCmd(a))
	rootCmd.AddCommand(createPingCmd(a))

	err := rootCmd.Execute()
	if a.logCloser != nil {
		a.logCloser.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads .env files and configuration, then builds the logger
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	if err := config.BindFlags(a.v, cmd.Flags(), flagKeys); err != nil {
		return err
	}

	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.logger = logger
	a.logCloser = closer
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// openRegistry opens the configured store and takes its snapshot
func (a *app) openRegistry(ctx context.Context) (registry.Store, *registry.Snapshot, error) {
	store, err := registry.Open(ctx, a.cfg.Registry)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open registry: %w", err)
	}

	snapshot, err := registry.LoadSnapshot(ctx, store, a.cfg.Registry.NameFields)
	if err != nil && !errors.Is(err, registry.ErrEmptyRegistry) {
		store.Close()
		return nil, nil, err
	}

	a.logger.Info().
		Str("driver", a.cfg.Registry.Driver).
		Int("entities", snapshot.Len()).
		Int("unnamed", snapshot.Unnamed()).
		Msg("Registry snapshot loaded")
	return store, snapshot, nil
}

func (a *app) artifacts() (*artifact.Writer, error) {
	format, err := a.cfg.ArtifactFormat()
	if err != nil {
		return nil, err
	}
	return artifact.NewWriter(a.cfg.Output.Dir, format), nil
}

// persist writes every artifact before the plan touches the registry, then
// refreshes the summary with the write results
func persist(ctx context.Context, driver *engine.Driver, outcome *engine.Outcome, store registry.Writer, writer *artifact.Writer) ([]string, error) {
	paths, err := writer.WriteAll(outcome.Artifacts())
	if err != nil {
		return paths, err
	}

	report, err := driver.Dispatch(ctx, outcome, store)
	if err != nil {
		return paths, err
	}
	if len(report.Applied) > 0 || len(report.Failed) > 0 {
		if _, err := writer.WriteSummary(outcome.RunID, outcome.Summary); err != nil {
			return paths, err
		}
	}
	return paths, nil
}

// openSource returns a nil Source when path is empty
func openSource(path, dataset string) (ingest.Source, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	src, err := ingest.OpenCSV(path, dataset)
	if err != nil {
		return nil, nil, err
	}
	return src, func() { src.Close() }, nil
}

// createRunCmd creates the reconciliation command
func createRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile contact and subsidiary CSVs against the registry",
		Long: `Validate, score and classify every input row, write the manual review,
unmatched, rejected rows, write plan and summary artifacts, and apply the
write plan to the registry unless --dry-run is set`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			cfg := a.cfg
			if cfg.Input.Contacts == "" && cfg.Input.Subsidiaries == "" {
				return fmt.Errorf("nothing to reconcile: set --contacts and/or --subsidiaries")
			}

			store, snapshot, err := a.openRegistry(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			validator, err := validation.NewValidatorWith(cfg.Matching.Denylist)
			if err != nil {
				return err
			}
			thresholds, err := cfg.Thresholds()
			if err != nil {
				return err
			}

			driver, err := engine.NewDriver(snapshot, validator, engine.Config{
				Thresholds:   thresholds,
				TopK:         cfg.Matching.TopK,
				Workers:      cfg.Matching.Workers,
				SocialFields: cfg.Matching.SocialFields,
				Filter:       engine.SingleCompanyFilter(cfg.Matching.SingleCompany),
				SimulateOnly: cfg.Matching.SimulateOnly,
				FailOnEmpty:  cfg.Registry.FailOnEmpty,
			}, a.logger)
			if err != nil {
				return err
			}

			contacts, closeContacts, err := openSource(cfg.Input.Contacts, ingest.DatasetContacts)
			if err != nil {
				return err
			}
			defer closeContacts()
			subsidiaries, closeSubsidiaries, err := openSource(cfg.Input.Subsidiaries, ingest.DatasetSubsidiaries)
			if err != nil {
				return err
			}
			defer closeSubsidiaries()

			outcome, err := driver.Reconcile(ctx, contacts, subsidiaries)
			if err != nil {
				return err
			}

			writer, err := a.artifacts()
			if err != nil {
				return err
			}
			paths, err := persist(ctx, driver, outcome, store, writer)
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), outcome.Summary, paths)
			return nil
		},
	}

	cmd.Flags().String("contacts", "", "contacts CSV")
	cmd.Flags().String("subsidiaries", "", "subsidiaries CSV")
	cmd.Flags().Bool("dry-run", false, "log the write plan instead of applying it")
	cmd.Flags().String("single-company", "", "only process rows for this company name")
	cmd.Flags().Float64("auto-threshold", 90, "minimum score for automatic acceptance")
	cmd.Flags().Float64("review-threshold", 80, "minimum score for manual review")
	cmd.Flags().Int("top-k", 5, "alternatives kept per review entry")
	cmd.Flags().Int("workers", 1, "rows evaluated in parallel")
	cmd.Flags().Bool("fail-on-empty", false, "fail when the registry has no matchable entities")

	return cmd
}

// createServeCmd creates the review API command
func createServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the review queue and run artifacts over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			return serve(ctx, a)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	return cmd
}

// createEntitiesCmd creates the registry inspection command
func createEntitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "Show what the registry snapshot contains",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, snapshot, err := a.openRegistry(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			printEntities(cmd.OutOrStdout(), snapshot)
			return nil
		},
	}
}

// createPingCmd creates a command to test registry connectivity
func createPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test registry connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := registry.Open(cmd.Context(), a.cfg.Registry)
			if err != nil {
				return fmt.Errorf("failed to open registry: %w", err)
			}
			defer store.Close()

			if err := store.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("registry ping failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Registry connection successful!")

			docs, err := store.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry documents: %d\n", len(docs))
			return nil
		},
	}
}
