package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/brandsync/reconciler/internal/artifact"
	"github.com/brandsync/reconciler/internal/ingest"
	"github.com/brandsync/reconciler/internal/match"
	"github.com/brandsync/reconciler/internal/plan"
	"github.com/brandsync/reconciler/internal/registry"
	"github.com/brandsync/reconciler/internal/validation"
)

// Filter restricts a run to rows whose company or parent name it accepts
type Filter func(name string) bool

// SingleCompanyFilter matches one company name, ignoring case and surrounding
// space. An empty target disables filtering.
func SingleCompanyFilter(target string) Filter {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil
	}
	return func(name string) bool {
		return strings.EqualFold(strings.TrimSpace(name), target)
	}
}

// Config holds the settings of one reconciliation run
type Config struct {
	Thresholds   match.Thresholds
	TopK         int
	Workers      int
	SocialFields map[string]string
	Filter       Filter
	SimulateOnly bool
	FailOnEmpty  bool
}

// DefaultConfig uses the default thresholds, top-K and social field map
func DefaultConfig() Config {
	return Config{
		Thresholds:   match.DefaultThresholds(),
		TopK:         match.DefaultTopK,
		Workers:      1,
		SocialFields: plan.DefaultSocialFields,
	}
}

// Driver runs validation, scoring and classification over input rows and
// assembles the write plan and review artifacts
type Driver struct {
	cfg        Config
	snapshot   *registry.Snapshot
	scorer     *match.Scorer
	classifier *match.Classifier
	validator  *validation.Validator
	parents    *parentMemo
	logger     zerolog.Logger
}

// NewDriver checks the configuration before any row is read. An empty
// snapshot is a warning unless FailOnEmpty is set.
func NewDriver(snapshot *registry.Snapshot, validator *validation.Validator, cfg Config, logger zerolog.Logger) (*Driver, error) {
	classifier, err := match.NewClassifier(cfg.Thresholds, cfg.TopK)
	if err != nil {
		return nil, err
	}

	if snapshot == nil {
		snapshot = registry.NewSnapshot(nil, nil)
	}
	if snapshot.Len() == 0 {
		if cfg.FailOnEmpty {
			return nil, registry.ErrEmptyRegistry
		}
		logger.Warn().Msg("registry has no matchable entities, every row will be unmatched")
	}

	if validator == nil {
		validator = validation.NewValidator()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SocialFields == nil {
		cfg.SocialFields = plan.DefaultSocialFields
	}

	return &Driver{
		cfg:        cfg,
		snapshot:   snapshot,
		scorer:     match.NewScorer(snapshot),
		classifier: classifier,
		validator:  validator,
		parents:    newParentMemo(),
		logger:     logger,
	}, nil
}

// Config returns the driver's effective configuration
func (d *Driver) Config() Config {
	return d.cfg
}

// Outcome is everything a run produced
type Outcome struct {
	RunID     string
	Plan      *plan.WritePlan
	Review    []artifact.ReviewEntry
	Unmatched []artifact.UnmatchedEntry
	Rejected  []artifact.RejectedEntry
	Summary   *artifact.Summary
}

// Artifacts bundles the outcome for the artifact writer
func (o *Outcome) Artifacts() artifact.Set {
	return artifact.Set{
		RunID:     o.RunID,
		Review:    o.Review,
		Unmatched: o.Unmatched,
		Rejected:  o.Rejected,
		Plan:      artifact.PlanEntries(o.Plan),
		Summary:   o.Summary,
	}
}

// Reconcile reads both sources to the end and classifies every row. Either
// source may be nil. Source read errors and cancellation abort the run;
// row-level problems never do.
func (d *Driver) Reconcile(ctx context.Context, contacts, subsidiaries ingest.Source) (*Outcome, error) {
	contactRows, err := ingest.Collect(contacts)
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts: %w", err)
	}
	subsidiaryRows, err := ingest.Collect(subsidiaries)
	if err != nil {
		return nil, fmt.Errorf("failed to read subsidiaries: %w", err)
	}

	runID := uuid.NewString()
	d.logger.Info().
		Str("run_id", runID).
		Int("entities", d.snapshot.Len()).
		Int("contacts", len(contactRows)).
		Int("subsidiaries", len(subsidiaryRows)).
		Bool("simulate", d.cfg.SimulateOnly).
		Msg("Starting reconciliation")

	contactEvals, err := d.evaluateAll(ctx, contactRows, d.evaluateContact)
	if err != nil {
		return nil, err
	}
	subsidiaryEvals, err := d.evaluateAll(ctx, subsidiaryRows, d.evaluateSubsidiary)
	if err != nil {
		return nil, err
	}

	agg := newAggregator(runID, d)
	agg.summary.Dataset(ingest.DatasetContacts).Rows = len(contactRows)
	agg.summary.Dataset(ingest.DatasetSubsidiaries).Rows = len(subsidiaryRows)
	for _, ev := range contactEvals {
		agg.addContact(ev)
	}
	for _, ev := range subsidiaryEvals {
		agg.addSubsidiary(ev)
	}

	outcome := agg.finish()
	d.logger.Info().
		Str("run_id", runID).
		Int("plan_entities", outcome.Summary.PlanEntities).
		Int("review", len(outcome.Review)).
		Int("unmatched", len(outcome.Unmatched)).
		Int("rejected", len(outcome.Rejected)).
		Msg("Reconciliation complete")

	return outcome, nil
}

// evaluateAll evaluates rows into per-row slots so results keep input order
// whatever the worker count
func (d *Driver) evaluateAll(ctx context.Context, rows []ingest.Row, eval func(ingest.Row) evaluation) ([]evaluation, error) {
	out := make([]evaluation, len(rows))

	if d.cfg.Workers <= 1 {
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("reconciliation interrupted at %s line %d: %w", row.Dataset, row.Line, err)
			}
			out[i] = eval(row)
		}
		return out, nil
	}

	p := pool.New().WithContext(ctx).WithMaxGoroutines(d.cfg.Workers)
	for i, row := range rows {
		i, row := i, row
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("reconciliation interrupted at %s line %d: %w", row.Dataset, row.Line, err)
			}
			out[i] = eval(row)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Dispatch hands the plan to the registry writer. In simulate-only mode the
// plan is logged entity by entity and nothing is written.
func (d *Driver) Dispatch(ctx context.Context, outcome *Outcome, w registry.Writer) (registry.ApplyReport, error) {
	if d.cfg.SimulateOnly {
		LogPlan(d.logger, outcome.Plan)
		return registry.ApplyReport{}, nil
	}
	if w == nil {
		return registry.ApplyReport{}, fmt.Errorf("no registry writer configured")
	}

	report := registry.Apply(ctx, w, outcome.Plan)
	for _, f := range report.Failed {
		d.logger.Error().Err(f.Err).Str("entity_id", f.EntityID).Msg("Failed to write entity")
	}

	if outcome.Summary != nil {
		outcome.Summary.Applied = len(report.Applied)
		for _, f := range report.Failed {
			outcome.Summary.WriteErrors = append(outcome.Summary.WriteErrors, f.Error())
		}
	}

	d.logger.Info().Int("applied", len(report.Applied)).Int("failed", len(report.Failed)).Msg("Write plan dispatched")
	return report, nil
}

// LogPlan prints every staged mutation, used in place of writing
func LogPlan(logger zerolog.Logger, p *plan.WritePlan) {
	for _, id := range p.Entities() {
		for _, m := range p.Mutations(id) {
			logger.Info().
				Str("entity_id", id).
				Str("mutation", m.String()).
				Str("dataset", m.Origin.Dataset).
				Int("line", m.Origin.Line).
				Float64("score", m.Origin.Score).
				Msg("[SIMULATE] would write")
		}
	}
}
