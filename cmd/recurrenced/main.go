package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/calendarexport"
	"github.com/example/meeting-scheduler/internal/config"
	"github.com/example/meeting-scheduler/internal/logging"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/meeting-scheduler/internal/recurrence"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	once      bool
	exportOrg string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("recurrenced", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.once, "once", false, "run one expansion pass over all active rules and exit")
	fs.StringVar(&opts.exportOrg, "export", "", "write the live events of the given organization as iCalendar to stdout and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// run wires configuration, storage, the materializer and the trigger, then
// blocks until ctx is done unless a one-shot mode was requested.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(stderr, cfg.LogLevel)
	ctx = logging.ContextWithLogger(ctx, logger)

	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLiteDSN))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	// A shutdown signal during startup must not leave the schema half applied.
	if err := storage.Migrate(context.WithoutCancel(ctx), logger); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		return err
	}

	if opts.exportOrg != "" {
		return exportEvents(ctx, storage, opts.exportOrg, stdout)
	}

	service := application.NewMaterializeServiceWithLogger(
		storage,
		storage,
		storage,
		storage,
		recurrence.NewEngine(cfg.Location),
		uuid.NewString,
		time.Now,
		logger,
	)
	runner, err := scheduler.NewRunner(service, scheduler.Config{
		Spec:           cfg.CronSpec,
		Location:       cfg.Location,
		MaxOccurrences: cfg.MaxOccurrences,
		RunTimeout:     cfg.RunTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to configure scheduler", "error", err)
		return err
	}

	if opts.once {
		summary, err := runner.RunOnce(ctx)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d rules failed to materialize", summary.Failed, summary.Rules)
		}
		return nil
	}

	var server *http.Server
	if cfg.MetricsPort > 0 {
		server = newMetricsServer(cfg.MetricsPort)
		go func() {
			logger.Info("metrics listening", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server encountered error", "error", err)
			}
		}()
	}

	runner.Start(ctx)
	<-ctx.Done()
	runner.Stop()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}
	return nil
}

func newMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func exportEvents(ctx context.Context, events persistence.EventRepository, orgID string, w io.Writer) error {
	list, err := events.ListEvents(ctx, persistence.EventFilter{OrgID: orgID})
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	return calendarexport.Encode(w, list, time.Now())
}
