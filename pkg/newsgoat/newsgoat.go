// Package newsgoat provides a public SDK for embedding NewsGoat as a library.
//
// Example usage:
//
//	s, err := newsgoat.New(
//	    newsgoat.WithOnly("sanjuan8", "tiempodesanjuan"),
//	    newsgoat.WithSourceTimeout(90*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	res, err := s.Scrape(ctx)
//	for _, a := range res.Articles {
//	    fmt.Println(a.SourceID, a.Title)
//	}
package newsgoat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/engine"
	"github.com/IshaanNene/NewsGoat/internal/fetcher"
	"github.com/IshaanNene/NewsGoat/internal/types"
)

type (
	// Article is one scraped news article.
	Article = types.Article
	// Source describes one news site.
	Source = config.SourceConfig
	// Result is the outcome of a scrape.
	Result = engine.Result
	// Fetcher retrieves pages. The default is an HTTP fetcher.
	Fetcher = engine.Fetcher
)

// Sources returns the built-in catalog.
func Sources() []Source {
	return config.DefaultSources()
}

// Scraper is the high-level API for using NewsGoat as a library.
type Scraper struct {
	cfg     *config.Config
	sources []Source
	only    []string
	fetcher Fetcher
	logger  *slog.Logger
	orch    *engine.Orchestrator
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithSources replaces the built-in catalog.
func WithSources(sources ...Source) Option {
	return func(s *Scraper) { s.sources = append([]Source(nil), sources...) }
}

// WithOnly restricts the run to the given source ids.
func WithOnly(ids ...string) Option {
	return func(s *Scraper) { s.only = ids }
}

// WithConcurrency sets how many sources run at once and the global bound on
// in-flight requests.
func WithConcurrency(sources, requests int) Option {
	return func(s *Scraper) {
		s.cfg.Engine.SourceConcurrency = sources
		s.cfg.Engine.MaxConcurrentRequests = requests
	}
}

// WithSourceTimeout bounds each source's task.
func WithSourceTimeout(d time.Duration) Option {
	return func(s *Scraper) { s.cfg.Engine.SourceTimeout = d }
}

// WithMaxArticles caps the articles fetched per source.
func WithMaxArticles(n int) Option {
	return func(s *Scraper) { s.cfg.Engine.MaxArticlesPerSource = n }
}

// WithKeywords keeps only articles mentioning one of the keywords.
func WithKeywords(keywords ...string) Option {
	return func(s *Scraper) { s.cfg.Validation.Keywords = keywords }
}

// WithFetcher replaces the HTTP fetcher, e.g. with a cache or a test double.
func WithFetcher(f Fetcher) Option {
	return func(s *Scraper) { s.fetcher = f }
}

// WithLogger sets the logger. The default logs warnings to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) { s.logger = logger }
}

// WithConfig starts from a full configuration instead of the defaults.
// Options given after it still apply.
func WithConfig(cfg *config.Config) Option {
	return func(s *Scraper) {
		c := *cfg
		s.cfg = &c
	}
}

// New creates a Scraper with the given options.
func New(opts ...Option) (*Scraper, error) {
	s := &Scraper{cfg: config.DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	if err := config.Validate(s.cfg); err != nil {
		return nil, err
	}

	if s.sources == nil {
		s.sources = config.Enabled(config.DefaultSources())
	}
	for i := range s.sources {
		s.sources[i].ApplyDefaults()
	}
	sources, err := config.Select(s.sources, s.only)
	if err != nil {
		return nil, err
	}
	s.sources = sources

	if s.fetcher == nil {
		hf, err := fetcher.NewHTTPFetcher(s.cfg, nil, s.logger)
		if err != nil {
			return nil, fmt.Errorf("create fetcher: %w", err)
		}
		s.fetcher = hf
	}

	s.orch, err = engine.New(s.cfg, s.fetcher, nil, s.logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Scrape runs every selected source once. Only invalid source
// configuration is an error; failing sources show up in the result's stats.
func (s *Scraper) Scrape(ctx context.Context) (*Result, error) {
	return s.orch.Run(ctx, s.sources)
}

// Close releases the fetcher.
func (s *Scraper) Close() error {
	return s.fetcher.Close()
}
