package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeFetcher serves in-memory pages. Unknown URLs answer 404.
type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	delays map[string]time.Duration // by host

	calls    atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{}, delays: map[string]time.Duration{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	f.calls.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	delay := f.delays[req.URL.Host]
	body, ok := f.pages[req.URLString()]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if !ok {
		return nil, &types.FetchError{URL: req.URLString(), StatusCode: http.StatusNotFound, Err: errors.New("HTTP 404")}
	}
	resp, err := types.NewHTMLResponse(req.URLString(), body)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

func (f *fakeFetcher) Close() error { return nil }

// site adds a listing page with n articles at https://<host>/nota/<i> and
// returns a source for it. body customizes article i's paragraph.
func (f *fakeFetcher) site(id, host string, n int, body func(i int) string) config.SourceConfig {
	var listing strings.Builder
	listing.WriteString("<html><body>")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&listing, `<article><a href="/nota/%d">Nota %d</a></article>`, i, i)
	}
	listing.WriteString("</body></html>")

	if body == nil {
		body = func(i int) string {
			return fmt.Sprintf("Cuerpo de la nota %d publicada por %s con texto suficiente para validar.", i, id)
		}
	}

	f.mu.Lock()
	f.pages["https://"+host+"/"] = listing.String()
	for i := 1; i <= n; i++ {
		f.pages[fmt.Sprintf("https://%s/nota/%d", host, i)] = fmt.Sprintf(
			`<html><body><h1>Nota %d de %s</h1><div class="nota"><p>%s</p></div></body></html>`, i, id, body(i))
	}
	f.mu.Unlock()

	return config.SourceConfig{
		ID:          id,
		Name:        id,
		ListingURLs: []string{"https://" + host + "/"},
		TitleRules:  config.DefaultTitleRules,
		BodyRules:   []config.ExtractRule{{Kind: config.RuleSingleBest, Selector: "div.nota"}},
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Engine.SourceTimeout = 5 * time.Second
	cfg.Validation.MinBodyLength = 40
	cfg.Validation.MinParagraphs = 1
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, f Fetcher) *Orchestrator {
	t.Helper()
	o, err := New(cfg, f, nil, testLogger)
	require.NoError(t, err)
	return o
}

func TestRunIsolatesSlowSource(t *testing.T) {
	f := newFakeFetcher()
	sources := []config.SourceConfig{
		f.site("diez", "diez.example", 10, nil),
		f.site("lento", "lento.example", 5, nil),
		f.site("quince", "quince.example", 15, nil),
	}
	f.delays["lento.example"] = 10 * time.Second

	cfg := testConfig()
	cfg.Engine.SourceTimeout = time.Second
	o := newTestOrchestrator(t, cfg, f)

	start := time.Now()
	res, err := o.Run(context.Background(), sources)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Len(t, res.Articles, 25)
	assert.NotEmpty(t, res.RunID)

	slow, ok := res.Stats.Source("lento")
	require.True(t, ok)
	assert.Equal(t, TaskTimedOut, slow.State)
	assert.Equal(t, types.ErrSourceTimeout.Error(), slow.Reason)
	assert.Zero(t, slow.Articles)

	assert.Equal(t, 2, res.Stats.Totals.Completed)
	assert.Equal(t, 1, res.Stats.Totals.TimedOut)
	assert.Equal(t, 3, res.Stats.Totals.Sources)
	for _, a := range res.Articles {
		assert.NotEqual(t, "lento", a.SourceID)
	}
}

func TestRunDeduplicatesAndKeepsStatsConsistent(t *testing.T) {
	f := newFakeFetcher()
	shared := "Texto idéntico publicado por dos medios distintos el mismo día sin cambios."

	a := f.site("uno", "uno.example", 4, func(i int) string {
		if i >= 3 {
			return "Nota repetida dentro del mismo sitio bajo dos direcciones distintas."
		}
		if i == 1 {
			return shared
		}
		return fmt.Sprintf("Cuerpo propio de la nota %d del primer medio con largo suficiente.", i)
	})
	b := f.site("dos", "dos.example", 4, func(i int) string {
		if i == 2 {
			return shared
		}
		return fmt.Sprintf("Cuerpo propio de la nota %d del segundo medio con largo suficiente.", i)
	})

	res, err := newTestOrchestrator(t, testConfig(), f).Run(context.Background(), []config.SourceConfig{a, b})
	require.NoError(t, err)

	uno, _ := res.Stats.Source("uno")
	dos, _ := res.Stats.Source("dos")
	assert.Equal(t, 3, uno.Articles)
	assert.Equal(t, 1, uno.IntraDuplicates)
	assert.Equal(t, 4, dos.Articles)

	assert.Equal(t, 1, res.Stats.Totals.DuplicatesRemoved)
	assert.Len(t, res.Articles, 6)
	assert.Equal(t, uno.Articles+dos.Articles, res.Stats.Totals.Articles+res.Stats.Totals.DuplicatesRemoved)

	var urls []string
	for _, art := range res.Articles {
		urls = append(urls, art.URL)
	}
	assert.Contains(t, urls, "https://uno.example/nota/1")
	assert.NotContains(t, urls, "https://dos.example/nota/2")
}

func TestRunPreservesSourceAndListingOrder(t *testing.T) {
	f := newFakeFetcher()
	first := f.site("primero", "primero.example", 4, nil)
	second := f.site("segundo", "segundo.example", 3, nil)
	f.delays["primero.example"] = 30 * time.Millisecond

	res, err := newTestOrchestrator(t, testConfig(), f).Run(context.Background(), []config.SourceConfig{first, second})
	require.NoError(t, err)
	require.Len(t, res.Articles, 7)

	want := []string{
		"https://primero.example/nota/1",
		"https://primero.example/nota/2",
		"https://primero.example/nota/3",
		"https://primero.example/nota/4",
		"https://segundo.example/nota/1",
		"https://segundo.example/nota/2",
		"https://segundo.example/nota/3",
	}
	for i, a := range res.Articles {
		assert.Equal(t, want[i], a.URL)
	}
	assert.Equal(t, "primero", res.Sources[0].SourceID)
	assert.Equal(t, "segundo", res.Sources[1].SourceID)
}

func TestRunRejectsInvalidConfigBeforeFetching(t *testing.T) {
	f := newFakeFetcher()
	good := f.site("bueno", "bueno.example", 3, nil)
	bad := config.SourceConfig{ID: "Con Espacios", ListingURLs: []string{"ftp://x"}}

	res, err := newTestOrchestrator(t, testConfig(), f).Run(context.Background(), []config.SourceConfig{good, bad})
	require.Error(t, err)
	assert.Nil(t, res)

	var cerr *types.ConfigError
	assert.ErrorAs(t, err, &cerr)
	assert.Zero(t, f.calls.Load())
}

func TestRunMarksSourceFailedWhenListingMissing(t *testing.T) {
	f := newFakeFetcher()
	ok := f.site("vivo", "vivo.example", 3, nil)
	dead := config.SourceConfig{
		ID:          "caido",
		ListingURLs: []string{"https://caido.example/", "https://caido.example/ultimas"},
		TitleRules:  config.DefaultTitleRules,
		BodyRules:   config.DefaultBodyRules,
	}

	res, err := newTestOrchestrator(t, testConfig(), f).Run(context.Background(), []config.SourceConfig{dead, ok})
	require.NoError(t, err)

	st, _ := res.Stats.Source("caido")
	assert.Equal(t, TaskFailed, st.State)
	assert.Contains(t, st.Reason, types.ErrNoListing.Error())
	assert.Equal(t, 2, st.Errors)
	assert.Len(t, res.Articles, 3)
	assert.Equal(t, 1, res.Stats.Totals.Failed)
}

func TestRunCountsRejections(t *testing.T) {
	f := newFakeFetcher()
	src := f.site("corto", "corto.example", 4, func(i int) string {
		if i == 2 {
			return "Apenas veinte y pico letras."
		}
		return fmt.Sprintf("Cuerpo de la nota %d con texto suficiente para pasar la validación.", i)
	})

	res, err := newTestOrchestrator(t, testConfig(), f).Run(context.Background(), []config.SourceConfig{src})
	require.NoError(t, err)

	st, _ := res.Stats.Source("corto")
	assert.Equal(t, TaskCompleted, st.State)
	assert.Equal(t, 3, st.Articles)
	assert.Equal(t, map[string]int{types.ReasonTooShort: 1}, st.Rejected)
	assert.Equal(t, 1, res.Stats.Totals.Rejected)
}

func TestRunCapsArticlesPerSource(t *testing.T) {
	f := newFakeFetcher()
	src := f.site("largo", "largo.example", 8, nil)
	src.MaxArticles = 5

	res, err := newTestOrchestrator(t, testConfig(), f).Run(context.Background(), []config.SourceConfig{src})
	require.NoError(t, err)

	st, _ := res.Stats.Source("largo")
	assert.Equal(t, 8, st.Discovered)
	assert.Equal(t, 5, st.Articles)
}

func TestRunHonorsGlobalRequestBound(t *testing.T) {
	f := newFakeFetcher()
	var sources []config.SourceConfig
	for _, id := range []string{"a", "b", "c", "d"} {
		host := id + ".example"
		sources = append(sources, f.site("medio-"+id, host, 5, nil))
		f.delays[host] = 15 * time.Millisecond
	}

	cfg := testConfig()
	cfg.Engine.SourceConcurrency = 4
	cfg.Engine.ArticleConcurrency = 5
	cfg.Engine.MaxConcurrentRequests = 2

	res, err := newTestOrchestrator(t, cfg, f).Run(context.Background(), sources)
	require.NoError(t, err)
	assert.Len(t, res.Articles, 20)
	assert.LessOrEqual(t, f.peak.Load(), int32(2))
}

func TestRunSkipsRobotsDisallowedArticles(t *testing.T) {
	f := newFakeFetcher()
	src := f.site("robots", "robots.example", 4, nil)
	f.pages["https://robots.example/robots.txt"] = "User-agent: *\nDisallow: /nota/2\n"

	cfg := testConfig()
	cfg.Engine.RespectRobots = true

	res, err := newTestOrchestrator(t, cfg, f).Run(context.Background(), []config.SourceConfig{src})
	require.NoError(t, err)

	st, _ := res.Stats.Source("robots")
	assert.Equal(t, 3, st.Articles)
	assert.Equal(t, 1, st.PagesSkipped)
}

func TestRunWithCanceledContext(t *testing.T) {
	f := newFakeFetcher()
	src := f.site("cancelado", "cancelado.example", 3, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestOrchestrator(t, testConfig(), f).Run(ctx, []config.SourceConfig{src})
	require.NoError(t, err)
	assert.Empty(t, res.Articles)

	st, _ := res.Stats.Source("cancelado")
	assert.Equal(t, TaskFailed, st.State)
}

func TestStatsCollectorFreezeAndCopy(t *testing.T) {
	c := NewStatsCollector([]string{"a", "b"})

	c.Record(&SourceResult{
		SourceID: "a",
		State:    TaskCompleted,
		Articles: make([]*types.Article, 3),
		Errors:   1,
		Rejected: map[string]int{types.ReasonTooShort: 2},
	})
	c.Record(&SourceResult{SourceID: "b", State: TaskTimedOut, Reason: "source timed out"})
	c.Freeze(2, 1)

	// ignored once frozen
	c.Record(&SourceResult{SourceID: "a", State: TaskFailed})

	snap := c.Snapshot()
	require.Len(t, snap.Sources, 2)
	assert.Equal(t, "a", snap.Sources[0].SourceID)
	assert.Equal(t, TaskCompleted, snap.Sources[0].State)
	assert.Equal(t, 3, snap.Sources[0].Articles)
	assert.Equal(t, Totals{
		Articles:          2,
		Elapsed:           snap.Totals.Elapsed,
		DuplicatesRemoved: 1,
		Sources:           2,
		Completed:         1,
		TimedOut:          1,
		Errors:            1,
		Rejected:          2,
	}, snap.Totals)

	snap.Sources[0].Rejected[types.ReasonTooShort] = 99
	again := c.Snapshot()
	assert.Equal(t, 2, again.Sources[0].Rejected[types.ReasonTooShort])
	assert.Equal(t, snap.Totals.Elapsed, again.Totals.Elapsed)
}

func TestAwaitTaskKeepsResultReadyAtDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Both the deadline and the result are ready; the result must win every time.
	for i := 0; i < 100; i++ {
		done := make(chan *SourceResult, 1)
		done <- &SourceResult{State: TaskCompleted}
		res := awaitTask(ctx, done)
		require.NotNil(t, res)
		assert.Equal(t, TaskCompleted, res.State)
	}

	assert.Nil(t, awaitTask(ctx, make(chan *SourceResult, 1)))
}

func TestTaskState(t *testing.T) {
	assert.Equal(t, "timed_out", TaskTimedOut.String())
	assert.True(t, TaskFailed.Terminal())
	assert.False(t, TaskExtracting.Terminal())

	text, err := TaskCompleted.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "completed", string(text))
}

func TestRobotsRules(t *testing.T) {
	rules := parseRobotsTxt(`
# comment
User-agent: otherbot
Disallow: /

User-agent: *
User-agent: NewsGoat
Disallow: /privado/
Disallow: /*.pdf$
Allow: /privado/publico
`)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://a.com/nota/1", true},
		{"https://a.com/privado/x", false},
		{"https://a.com/privado/publico/1", true},
		{"https://a.com/docs/informe.pdf", false},
		{"https://a.com/docs/informe.pdf?v=2", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rules.allows(tt.url), tt.url)
	}

	var none *robotsRules
	assert.True(t, none.allows("https://a.com/privado/x"))
}
