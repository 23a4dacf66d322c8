// Package engine runs one scrape: a bounded pool of per-source tasks whose
// results are merged, deduplicated and tallied by a single aggregator.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/dedup"
	"github.com/IshaanNene/NewsGoat/internal/observability"
	"github.com/IshaanNene/NewsGoat/internal/parser"
	"github.com/IshaanNene/NewsGoat/internal/types"
	"github.com/IshaanNene/NewsGoat/internal/validate"
)

// Fetcher is the interface for all fetcher implementations.
type Fetcher interface {
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)
	Close() error
}

// SourceResult is the self-contained outcome of one source task. Tasks hand
// it to the aggregator and never touch it again.
type SourceResult struct {
	SourceID string
	// Index is the source's position in declaration order.
	Index  int
	State  TaskState
	Reason string
	// Articles survived validation and intra-source dedup, in listing order.
	// Always empty for a task that timed out.
	Articles        []*types.Article
	Elapsed         time.Duration
	Errors          int
	Rejected        map[string]int
	IntraDuplicates int
	PagesSkipped    int
	Discovered      int
}

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Articles []*types.Article
	Stats    Snapshot
	Sources  []SourceResult
}

// Orchestrator fetches every configured source concurrently.
type Orchestrator struct {
	cfg       *config.Config
	fetcher   Fetcher
	adapter   *parser.Adapter
	links     *parser.LinkFinder
	feeds     *parser.FeedFinder
	validator *validate.Validator
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates an Orchestrator. metrics may be nil.
func New(cfg *config.Config, fetcher Fetcher, metrics *observability.Metrics, logger *slog.Logger) (*Orchestrator, error) {
	v, err := validate.New(cfg.Validation)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:       cfg,
		fetcher:   fetcher,
		adapter:   parser.NewAdapter(cfg.Validation, logger),
		links:     parser.NewLinkFinder(cfg.Discovery, logger),
		feeds:     parser.NewFeedFinder(logger),
		validator: v,
		metrics:   metrics,
		logger:    logger.With("component", "orchestrator"),
	}, nil
}

// Run scrapes sources and returns the merged, deduplicated articles with the
// run's statistics. Invalid source configuration is the only error: it is
// reported before anything is fetched. Failures of individual sources end up
// in the statistics.
func (o *Orchestrator) Run(ctx context.Context, sources []config.SourceConfig) (*Result, error) {
	if err := config.ValidateSources(sources); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID)

	ids := make([]string, len(sources))
	for i := range sources {
		ids[i] = sources[i].ID
	}
	stats := NewStatsCollector(ids)
	requests := semaphore.NewWeighted(int64(o.cfg.Engine.MaxConcurrentRequests))

	logger.Info("run starting",
		"sources", len(sources),
		"source_concurrency", o.cfg.Engine.SourceConcurrency,
		"max_requests", o.cfg.Engine.MaxConcurrentRequests,
	)

	results := make(chan *SourceResult, len(sources))
	go func() {
		var g errgroup.Group
		g.SetLimit(o.cfg.Engine.SourceConcurrency)
		for i := range sources {
			src := &sources[i]
			g.Go(func() error {
				results <- o.runSource(ctx, i, src, requests, logger)
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	// Single aggregator: nothing below is shared with the tasks.
	bySource := make([]SourceResult, len(sources))
	for r := range results {
		bySource[r.Index] = *r
		stats.Record(r)
		o.metrics.RecordSource(r.SourceID, r.State.String(), r.Elapsed)
		o.metrics.RecordArticles(r.SourceID, len(r.Articles))
		o.metrics.RecordDuplicates("intra", r.IntraDuplicates)

		logger.Info("source finished",
			"source", r.SourceID,
			"state", r.State.String(),
			"articles", len(r.Articles),
			"errors", r.Errors,
			"elapsed", r.Elapsed.Round(time.Millisecond),
		)
	}

	var merged []*types.Article
	for i := range bySource {
		merged = append(merged, bySource[i].Articles...)
	}
	final, removed := dedup.New(len(merged)).Dedupe(merged)
	o.metrics.RecordDuplicates("cross", removed)
	o.metrics.RecordRun()

	stats.Freeze(len(final), removed)
	snap := stats.Snapshot()

	logger.Info("run complete",
		"articles", snap.Totals.Articles,
		"duplicates_removed", snap.Totals.DuplicatesRemoved,
		"failed", snap.Totals.Failed,
		"timed_out", snap.Totals.TimedOut,
		"elapsed", snap.Totals.Elapsed.Round(time.Millisecond),
	)

	return &Result{
		RunID:    runID,
		Articles: final,
		Stats:    snap,
		Sources:  bySource,
	}, nil
}

// runSource runs one source under its own deadline. When the deadline
// passes the task is abandoned and whatever it collected is discarded.
func (o *Orchestrator) runSource(ctx context.Context, index int, src *config.SourceConfig, requests *semaphore.Weighted, logger *slog.Logger) *SourceResult {
	start := time.Now()
	logger = logger.With("source", src.ID)

	tctx, cancel := context.WithTimeout(ctx, o.cfg.Engine.SourceTimeout)
	defer cancel()

	task := o.newTask(src, requests, logger)
	done := make(chan *SourceResult, 1)
	go func() {
		done <- task.run(tctx)
	}()

	res := awaitTask(tctx, done)
	if res == nil || !res.State.Terminal() {
		res = &SourceResult{State: TaskTimedOut, Reason: types.ErrSourceTimeout.Error()}
		if ctx.Err() != nil || !errors.Is(tctx.Err(), context.DeadlineExceeded) {
			res.State = TaskFailed
			res.Reason = "run canceled"
		}
		logger.Warn("source abandoned", "state", res.State.String(), "timeout", o.cfg.Engine.SourceTimeout)
	}

	res.SourceID = src.ID
	res.Index = index
	res.Elapsed = time.Since(start)
	if res.Rejected == nil {
		res.Rejected = map[string]int{}
	}
	return res
}

// awaitTask waits for the task's result until ctx is done. A result that is
// ready when the deadline fires still wins; nil means the task was abandoned.
func awaitTask(ctx context.Context, done <-chan *SourceResult) *SourceResult {
	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		select {
		case res := <-done:
			return res
		default:
			return nil
		}
	}
}
