package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/observability"
	"github.com/IshaanNene/NewsGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestFetcher(t *testing.T, mutate func(*config.Config)) *HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Fetcher.RetryDelay = 10 * time.Millisecond
	cfg.Fetcher.RequestTimeout = 5 * time.Second
	cfg.Fetcher.HostRate = 0
	if mutate != nil {
		mutate(cfg)
	}
	f, err := NewHTTPFetcher(cfg, observability.NewMetrics(testLogger), testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func get(t *testing.T, f *HTTPFetcher, url string) (*types.Response, error) {
	t.Helper()
	req, err := types.NewSourceRequest("test", types.TagArticle, url)
	require.NoError(t, err)
	return f.Fetch(context.Background(), req)
}

func TestFetchSendsHeaders(t *testing.T) {
	var lang, ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang.Store(r.Header.Get("Accept-Language"))
		ua.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>Hola</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	resp, err := get(t, f, srv.URL+"/nota")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html><body>Hola</body></html>", string(resp.Body))
	assert.Equal(t, "es-AR,es;q=0.9,en;q=0.8", lang.Load())
	assert.Contains(t, ua.Load(), "Mozilla/5.0")
}

func TestFetchDecompresses(t *testing.T) {
	const page = "<html><body>Noticias de San Juan</body></html>"

	var gz, br bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write([]byte(page))
	zw.Close()
	bw := brotli.NewWriter(&br)
	bw.Write([]byte(page))
	bw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			w.Write(gz.Bytes())
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			w.Write(br.Bytes())
		}
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	for _, path := range []string{"/gzip", "/br"} {
		resp, err := get(t, f, srv.URL+path)
		require.NoError(t, err, path)
		assert.Equal(t, page, string(resp.Body), path)
	}
}

func TestFetchDecodesLatin1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<p>Jach\xe1l y Ca\xf1ada</p>"))
	}))
	defer srv.Close()

	resp, err := get(t, newTestFetcher(t, nil), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>Jachál y Cañada</p>", string(resp.Body))
}

func TestFetchRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	resp, err := get(t, newTestFetcher(t, nil), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, resp.Request.Attempt)
}

func TestFetchGivesUpAfterOneRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := get(t, newTestFetcher(t, nil), srv.URL)
	var ferr *types.FetchError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, http.StatusBadGateway, ferr.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := get(t, newTestFetcher(t, nil), srv.URL)
	var ferr *types.FetchError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, http.StatusNotFound, ferr.StatusCode)
	assert.False(t, ferr.IsRetryable())
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := get(t, newTestFetcher(t, nil), srv.URL)
	assert.True(t, errors.Is(err, types.ErrEmptyResponse))
}

func TestCircuitBreakerOpensPerHost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher(t, func(cfg *config.Config) {
		cfg.Fetcher.BreakerFailures = 2
		cfg.Fetcher.BreakerTimeout = time.Minute
	})

	_, err := get(t, f, srv.URL+"/uno")
	require.Error(t, err)
	require.Equal(t, int32(2), calls.Load(), "first fetch plus its retry")

	_, err = get(t, f, srv.URL+"/dos")
	assert.True(t, errors.Is(err, types.ErrCircuitOpen), "got %v", err)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not hit the host")
}

func TestFetchHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newTestFetcher(t, func(cfg *config.Config) {
		cfg.Fetcher.RetryDelay = time.Minute
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := types.NewRequest(srv.URL)
	require.NoError(t, err)

	start := time.Now()
	_, err = f.Fetch(ctx, req)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, 30*time.Second, parseRetryAfter("600"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("pronto"))
}
