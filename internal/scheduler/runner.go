package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/logging"
	"github.com/example/meeting-scheduler/internal/persistence"
)

// Materializer is the part of application.MaterializeService driven by the runner.
type Materializer interface {
	ActiveRules(ctx context.Context) ([]persistence.RecurringRule, error)
	Materialize(ctx context.Context, rule persistence.RecurringRule, opts application.MaterializeOptions) ([]persistence.Event, []application.AgendaWarning, error)
}

// Config controls how often and how far the runner expands rules.
type Config struct {
	// Spec is a standard five-field cron expression or descriptor such as "@hourly".
	Spec           string
	Location       *time.Location
	MaxOccurrences int
	// RunTimeout bounds the materialization of a single rule.
	RunTimeout time.Duration
	Now        func() time.Time
}

// Summary reports the outcome of one pass over the active rules.
type Summary struct {
	Rules          int
	Created        int
	AgendaWarnings int
	Failed         int
}

// Runner periodically materializes every active rule.
type Runner struct {
	cron         *cron.Cron
	materializer Materializer
	cfg          Config
	logger       *slog.Logger

	mu   sync.Mutex
	base context.Context
}

// NewRunner validates cfg and registers the expansion job. The job does not
// fire until Start is called.
func NewRunner(materializer Materializer, cfg Config, logger *slog.Logger) (*Runner, error) {
	if materializer == nil {
		return nil, errors.New("scheduler: materializer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}

	cronLogger := cron.PrintfLogger(logging.StdLogger(logger, "cron", slog.LevelDebug))
	r := &Runner{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		materializer: materializer,
		cfg:          cfg,
		logger:       logger.With("component", "scheduler"),
		base:         context.Background(),
	}
	if _, err := r.cron.AddFunc(cfg.Spec, r.tick); err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron spec %q: %w", cfg.Spec, err)
	}
	return r, nil
}

// Start begins firing the job in the background. Runs triggered after ctx is
// done return immediately.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.base = ctx
	r.mu.Unlock()

	r.cron.Start()
	r.logger.InfoContext(ctx, "scheduler started", "spec", r.cfg.Spec, "location", r.cfg.Location.String())
}

// Stop halts the trigger and waits for a running pass to finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("scheduler stopped")
}

func (r *Runner) tick() {
	r.mu.Lock()
	ctx := r.base
	r.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.ErrorContext(ctx, "scheduled run failed", "error", err, "error_kind", application.ErrorKind(err))
	}
}

// RunOnce materializes every active rule once, one rule at a time. A failing
// rule is logged and counted; the pass continues with the next rule. The
// returned error is non-nil only when the rules could not be listed or ctx
// ended.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	started := time.Now()
	defer func() {
		runDurationSeconds.Observe(time.Since(started).Seconds())
	}()

	rules, err := r.materializer.ActiveRules(ctx)
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		return Summary{}, fmt.Errorf("scheduler: list active rules: %w", err)
	}

	summary := Summary{Rules: len(rules)}
	from := r.cfg.Now().In(r.cfg.Location)

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			runsTotal.WithLabelValues("canceled").Inc()
			return summary, err
		}

		ruleCtx, cancel := context.WithTimeout(ctx, r.cfg.RunTimeout)
		created, warnings, err := r.materializer.Materialize(ruleCtx, rule, application.MaterializeOptions{
			From:           from,
			MaxOccurrences: r.cfg.MaxOccurrences,
		})
		cancel()

		summary.Created += len(created)
		summary.AgendaWarnings += len(warnings)
		if err != nil {
			summary.Failed++
			r.logger.ErrorContext(ctx, "rule materialization failed",
				"rule_id", rule.ID,
				"org_id", rule.OrgID,
				"created", len(created),
				"error", err,
				"error_kind", application.ErrorKind(err),
			)
		}
	}

	outcome := "ok"
	if summary.Failed > 0 {
		outcome = "partial"
	}
	runsTotal.WithLabelValues(outcome).Inc()
	r.logger.InfoContext(ctx, "expansion pass finished",
		"rules", summary.Rules,
		"created", summary.Created,
		"agenda_warnings", summary.AgendaWarnings,
		"failed", summary.Failed,
		"duration", time.Since(started),
	)
	return summary, nil
}
