package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/engine"
	"github.com/IshaanNene/NewsGoat/internal/fetcher"
	"github.com/IshaanNene/NewsGoat/internal/observability"
	"github.com/IshaanNene/NewsGoat/internal/report"
	"github.com/IshaanNene/NewsGoat/internal/storage"
)

// runFlags are the overrides shared by "run" and "schedule".
type runFlags struct {
	sourcesFile string
	only        []string
	outputPath  string
	outputType  string
	reportPath  string
}

func (f *runFlags) apply(cfg *config.Config) {
	if f.sourcesFile != "" {
		cfg.SourcesFile = f.sourcesFile
	}
	if f.outputPath != "" {
		cfg.Storage.OutputPath = f.outputPath
		cfg.Storage.SQLitePath = filepath.Join(f.outputPath, "news.db")
	}
	if f.outputType != "" {
		cfg.Storage.Type = strings.ToLower(f.outputType)
	}
	if f.reportPath != "" {
		cfg.Storage.ReportPath = f.reportPath
	}
}

// app holds everything a scrape run needs. It is built once and can run
// many times.
type app struct {
	cfg     *config.Config
	sources []config.SourceConfig
	logger  *slog.Logger
	logOut  io.Closer
	metrics *observability.Metrics
	fetcher *fetcher.HTTPFetcher
	orch    *engine.Orchestrator
}

func newApp(flags *runFlags) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	flags.apply(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, logOut, err := observability.NewLogger(cfg.Logging, verbose)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	catalog, err := config.ResolveSources(cfg)
	if err != nil {
		logOut.Close()
		return nil, fmt.Errorf("load sources: %w", err)
	}
	sources, err := config.Select(config.Enabled(catalog), flags.only)
	if err != nil {
		logOut.Close()
		return nil, err
	}

	a := &app{cfg: cfg, sources: sources, logger: logger, logOut: logOut}

	if cfg.Metrics.Enabled {
		a.metrics = observability.NewMetrics(logger)
		if err := a.metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	a.fetcher, err = fetcher.NewHTTPFetcher(cfg, a.metrics, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	a.orch, err = engine.New(cfg, a.fetcher, a.metrics, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}
	return a, nil
}

// scrape performs one run and persists its results.
func (a *app) scrape(ctx context.Context, out io.Writer) error {
	res, err := a.orch.Run(ctx, a.sources)
	if err != nil {
		return err
	}

	store, err := storage.New(a.cfg.Storage, a.logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	storeErr := store.Store(res.Articles)
	if err := store.Close(); storeErr == nil {
		storeErr = err
	}
	if storeErr != nil {
		return fmt.Errorf("store articles: %w", storeErr)
	}

	if a.cfg.Storage.ReportPath != "" {
		if err := report.WriteFile(a.cfg.Storage.ReportPath, res.RunID, res.Stats); err != nil {
			a.logger.Error("report failed", "path", a.cfg.Storage.ReportPath, "error", err)
		}
	}

	printSummary(out, res, a.cfg.Storage)
	return nil
}

func (a *app) Close() {
	if a.fetcher != nil {
		a.fetcher.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.metrics.Shutdown(ctx); err != nil {
		a.logger.Warn("metrics shutdown", "error", err)
	}
	a.logOut.Close()
}

func printSummary(w io.Writer, res *engine.Result, sc config.StorageConfig) {
	t := res.Stats.Totals
	fmt.Fprintf(w, "\nRun %s complete in %s\n", res.RunID, t.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "   Articles:   %d (%d cross-source duplicates removed)\n", t.Articles, t.DuplicatesRemoved)
	fmt.Fprintf(w, "   Sources:    %d completed, %d failed, %d timed out\n", t.Completed, t.Failed, t.TimedOut)
	fmt.Fprintf(w, "   Rejected:   %d\n", t.Rejected)
	fmt.Fprintf(w, "   Per article: %s\n", report.AveragePerArticle(t))
	fmt.Fprintf(w, "   Output:     %s -> %s\n", sc.Type, sc.OutputPath)
	if sc.ReportPath != "" {
		fmt.Fprintf(w, "   Report:     %s\n", sc.ReportPath)
	}
}
