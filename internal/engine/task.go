package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/dedup"
	"github.com/IshaanNene/NewsGoat/internal/pipeline"
	"github.com/IshaanNene/NewsGoat/internal/types"
	"github.com/IshaanNene/NewsGoat/internal/urlnorm"
)

// sourceTask scrapes one source. Everything it writes is its own until the
// result is handed to the aggregator.
type sourceTask struct {
	o        *Orchestrator
	src      *config.SourceConfig
	requests *semaphore.Weighted
	logger   *slog.Logger
	res      *SourceResult
}

func (o *Orchestrator) newTask(src *config.SourceConfig, requests *semaphore.Weighted, logger *slog.Logger) *sourceTask {
	return &sourceTask{
		o:        o,
		src:      src,
		requests: requests,
		logger:   logger,
		res:      &SourceResult{SourceID: src.ID, State: TaskPending, Rejected: map[string]int{}},
	}
}

// run drives the task through fetching and extracting. It returns with a
// non-terminal state when ctx ends first.
func (t *sourceTask) run(ctx context.Context) *SourceResult {
	res := t.res

	base, err := t.src.Base()
	if err != nil {
		return t.fail(fmt.Errorf("%w: %v", types.ErrInvalidURL, err))
	}
	norm, err := urlnorm.New(base.String(), t.src.DomainAliases, t.o.cfg.Normalize.TrackingParams)
	if err != nil {
		return t.fail(err)
	}
	proc := pipeline.ForSource(t.src, norm, t.o.validator, t.o.cfg.Normalize, t.logger)

	res.State = TaskFetching
	links, err := t.discover(ctx, norm)
	if ctx.Err() != nil {
		return res
	}
	if err != nil {
		return t.fail(err)
	}
	res.Discovered = len(links)

	if limit := t.maxArticles(); limit > 0 && len(links) > limit {
		links = links[:limit]
	}

	if t.o.cfg.Engine.RespectRobots {
		links = t.filterRobots(ctx, base.String(), links)
	}

	pages := t.fetchArticles(ctx, links)
	if ctx.Err() != nil {
		return res
	}

	res.State = TaskExtracting
	var candidates []*types.Article
	for i, resp := range pages {
		if resp == nil {
			continue
		}
		if !resp.IsHTML() {
			res.PagesSkipped++
			continue
		}

		arts, err := t.o.adapter.Extract(resp, t.src)
		if err != nil {
			res.Errors++
			t.logger.Warn("extraction failed", "url", links[i], "error", err)
			continue
		}
		if len(arts) == 0 {
			res.PagesSkipped++
			continue
		}

		for _, a := range arts {
			out, err := proc.Process(a)
			if reason, ok := types.RejectionReason(err); ok {
				res.Rejected[reason]++
				t.o.metrics.RecordRejection(t.src.ID, reason)
				t.logger.Debug("article rejected", "url", a.URL, "reason", reason)
				continue
			}
			if err != nil {
				res.Errors++
				t.logger.Warn("pipeline failed", "url", a.URL, "error", err)
				continue
			}
			if out != nil {
				candidates = append(candidates, out)
			}
		}
	}

	if ctx.Err() != nil {
		return res
	}

	res.Articles, res.IntraDuplicates = dedup.New(len(candidates)).Dedupe(candidates)
	res.State = TaskCompleted
	return res
}

func (t *sourceTask) fail(err error) *SourceResult {
	t.res.State = TaskFailed
	t.res.Reason = err.Error()
	t.res.Articles = nil
	t.logger.Warn("source failed", "error", err)
	return t.res
}

func (t *sourceTask) maxArticles() int {
	if t.src.MaxArticles > 0 {
		return t.src.MaxArticles
	}
	return t.o.cfg.Engine.MaxArticlesPerSource
}

// discover collects article links: from the feed when the source has one,
// otherwise (or when the feed yields nothing) from the listing pages. Links
// are unique by canonical URL and keep discovery order.
func (t *sourceTask) discover(ctx context.Context, norm *urlnorm.Normalizer) ([]string, error) {
	seen := make(map[string]bool)
	var links []string
	add := func(found []string) {
		for _, link := range found {
			key := norm.MustNormalize(link)
			if !seen[key] {
				seen[key] = true
				links = append(links, link)
			}
		}
	}

	if t.src.FeedURL != "" {
		resp, err := t.fetch(ctx, types.TagFeed, t.src.FeedURL, "")
		if err == nil {
			var found []string
			found, err = t.o.feeds.Find(resp, norm)
			add(found)
		}
		if err != nil {
			t.res.Errors++
			t.logger.Warn("feed discovery failed", "url", t.src.FeedURL, "error", err)
		}
		if len(links) > 0 {
			return links, nil
		}
	}

	var lastErr error
	failures := 0
	for _, listing := range t.src.ListingURLs {
		resp, err := t.fetch(ctx, types.TagListing, listing, "")
		if err == nil {
			var found []string
			found, err = t.o.links.Find(resp, t.src, norm)
			add(found)
			t.logger.Debug("listing scanned", "url", listing, "links", len(found))
		}
		if err != nil {
			failures++
			lastErr = err
			t.res.Errors++
			t.logger.Warn("listing failed", "url", listing, "error", err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if len(t.src.ListingURLs) > 0 && failures == len(t.src.ListingURLs) && len(links) == 0 {
		return nil, fmt.Errorf("%w: %w", types.ErrNoListing, lastErr)
	}
	if len(t.src.ListingURLs) == 0 && len(links) == 0 {
		return nil, types.ErrNoListing
	}
	return links, nil
}

// fetchArticles downloads article pages concurrently into index slots so
// listing order survives. Failed slots stay nil.
func (t *sourceTask) fetchArticles(ctx context.Context, links []string) []*types.Response {
	pages := make([]*types.Response, len(links))
	failed := make([]bool, len(links))

	parent := t.src.FeedURL
	if len(t.src.ListingURLs) > 0 {
		parent = t.src.ListingURLs[0]
	}

	var g errgroup.Group
	g.SetLimit(t.o.cfg.Engine.ArticleConcurrency)
	for i, link := range links {
		g.Go(func() error {
			resp, err := t.fetch(ctx, types.TagArticle, link, parent)
			if err != nil {
				failed[i] = true
				if ctx.Err() == nil {
					t.logger.Debug("article fetch failed", "url", link, "error", err)
				}
				return nil
			}
			pages[i] = resp
			return nil
		})
	}
	g.Wait()

	for _, f := range failed {
		if f {
			t.res.Errors++
		}
	}
	return pages
}

// fetch performs one request under the run-wide request bound.
func (t *sourceTask) fetch(ctx context.Context, tag, rawURL, parent string) (*types.Response, error) {
	req, err := types.NewSourceRequest(t.src.ID, tag, rawURL)
	if err != nil {
		return nil, err
	}
	req.ParentURL = parent

	if err := t.requests.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer t.requests.Release(1)

	resp, err := t.o.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, &types.FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: types.ErrEmptyResponse}
	}
	return resp, nil
}

// filterRobots drops links the site's robots.txt disallows. A missing or
// unreadable robots.txt allows everything.
func (t *sourceTask) filterRobots(ctx context.Context, base string, links []string) []string {
	var rules *robotsRules
	resp, err := t.fetch(ctx, types.TagRobots, base+"robots.txt", "")
	if err == nil {
		rules = parseRobotsTxt(string(resp.Body))
	} else if !errors.Is(err, context.Canceled) {
		t.logger.Debug("robots.txt unavailable", "error", err)
	}

	kept := links[:0:0]
	for _, link := range links {
		if rules.allows(link) {
			kept = append(kept, link)
		} else {
			t.res.PagesSkipped++
		}
	}
	return kept
}
