// Package fetcher downloads listing, feed and article pages over HTTP.
package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/sony/gobreaker"
	"golang.org/x/net/html/charset"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/observability"
	"github.com/IshaanNene/NewsGoat/internal/types"
)

// HTTPFetcher implements engine.Fetcher using net/http. Each host gets its
// own rate limiter, in-flight cap and circuit breaker. A retryable failure
// is retried exactly once.
type HTTPFetcher struct {
	client     *http.Client
	cfg        *config.FetcherConfig
	hosts      *hostRegistry
	metrics    *observability.Metrics
	logger     *slog.Logger
	userAgents []string
	uaIndex    atomic.Int64
}

// NewHTTPFetcher creates a new HTTP fetcher. metrics may be nil.
func NewHTTPFetcher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.Fetcher.MaxIdleConns,
		MaxIdleConnsPerHost: max(cfg.Fetcher.LimitPerHost, 2),
		IdleConnTimeout:     cfg.Fetcher.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Fetcher.TLSInsecure,
		},
		DisableCompression: true, // decoded below, including brotli
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !cfg.Fetcher.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= cfg.Fetcher.MaxRedirects {
			return fmt.Errorf("max redirects (%d) reached", cfg.Fetcher.MaxRedirects)
		}
		return nil
	}

	client := &http.Client{
		Transport:     transport,
		Jar:           jar,
		Timeout:       cfg.Fetcher.RequestTimeout,
		CheckRedirect: redirectPolicy,
	}

	logger = logger.With("component", "http_fetcher")
	return &HTTPFetcher{
		client:     client,
		cfg:        &cfg.Fetcher,
		hosts:      newHostRegistry(&cfg.Fetcher, logger),
		metrics:    metrics,
		logger:     logger,
		userAgents: cfg.Fetcher.UserAgents,
	}, nil
}

// Fetch retrieves req, retrying once after RetryDelay (or the server's
// Retry-After) when the first failure is retryable. Non-2xx responses are
// returned as *types.FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	guard := f.hosts.get(req.URL.Host)

	resp, err := f.attempt(ctx, guard, req)
	if err == nil {
		return resp, nil
	}

	var ferr *types.FetchError
	if !errors.As(err, &ferr) || !ferr.IsRetryable() || req.Attempt > 0 {
		return nil, err
	}

	delay := f.cfg.RetryDelay
	if ferr.RetryAfter > delay {
		delay = ferr.RetryAfter
	}
	f.logger.Debug("retrying fetch", "url", req.URLString(), "delay", delay, "error", err)
	f.metrics.RecordFetch(req.Tag, observability.OutcomeRetry, 0, 0)

	timer := time.NewTimer(delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil, &types.FetchError{URL: req.URLString(), Err: ctx.Err()}
	case <-timer.C:
	}

	retry := req.Clone()
	retry.Attempt++
	return f.attempt(ctx, guard, retry)
}

// attempt performs one guarded request.
func (f *HTTPFetcher) attempt(ctx context.Context, guard *hostGuard, req *types.Request) (*types.Response, error) {
	if err := guard.acquire(ctx); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}
	defer guard.release()

	out, err := guard.breaker.Execute(func() (interface{}, error) {
		return f.do(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		f.metrics.RecordFetch(req.Tag, observability.OutcomeCircuitOpen, 0, 0)
		return nil, &types.FetchError{URL: req.URLString(), Err: fmt.Errorf("%w: %s", types.ErrCircuitOpen, req.URL.Host)}
	}
	if err != nil {
		f.metrics.RecordFetch(req.Tag, observability.OutcomeError, 0, 0)
		return nil, err
	}

	resp := out.(*types.Response)
	f.metrics.RecordFetch(req.Tag, observability.OutcomeOK, resp.FetchDuration, len(resp.Body))
	return resp, nil
}

// do executes an HTTP request and returns the decoded response.
func (f *HTTPFetcher) do(ctx context.Context, req *types.Request) (*types.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URLString(), nil)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: false}
	}

	httpReq.Header.Set("User-Agent", f.nextUserAgent())
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", f.cfg.AcceptLanguage)
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if req.ParentURL != "" {
		httpReq.Header.Set("Referer", req.ParentURL)
	}

	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		return nil, &types.FetchError{
			URL:       req.URLString(),
			Err:       err,
			Retryable: isRetryableError(err),
		}
	}
	defer httpResp.Body.Close()

	// 429: respect Retry-After if present
	if httpResp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(httpResp.Header.Get("Retry-After"))
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP 429: rate limited (retry after %s)", retryAfter),
			Retryable:  true,
			RetryAfter: retryAfter,
		}
	}

	if httpResp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body))),
			Retryable:  true,
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", httpResp.StatusCode),
		}
	}

	var reader io.Reader = httpResp.Body
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}

	reader, err = decompressReader(httpResp, reader)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: isRetryableError(err)}
	}
	body, err = toUTF8(body, httpResp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: fmt.Errorf("decode charset: %w", err)}
	}
	if len(body) == 0 {
		return nil, &types.FetchError{URL: req.URLString(), StatusCode: httpResp.StatusCode, Err: types.ErrEmptyResponse}
	}

	resp := types.NewResponse(req, httpResp, body, duration)

	f.logger.Debug("fetch complete",
		"url", req.URLString(),
		"status", resp.StatusCode,
		"size", len(body),
		"duration", duration,
		"attempt", req.Attempt,
	)

	return resp, nil
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// nextUserAgent returns the next User-Agent in rotation.
func (f *HTTPFetcher) nextUserAgent() string {
	if len(f.userAgents) == 0 {
		return "NewsGoat/" + config.Version
	}
	idx := f.uaIndex.Add(1) % int64(len(f.userAgents))
	return f.userAgents[idx]
}

// decompressReader wraps a reader with the appropriate decompressor.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// toUTF8 decodes body when it is not already UTF-8. Regional sites still
// serve ISO-8859-1 and windows-1252.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	if utf8.Valid(body) {
		return body, nil
	}
	enc, _, _ := charset.DetermineEncoding(body, contentType)
	return enc.NewDecoder().Bytes(body)
}

// isRetryableError reports whether a network error warrants the one retry:
// timeouts, connection resets and refusals, and truncated bodies.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	// The caller gave up; retrying would outlive it.
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return false
}

// parseRetryAfter parses the Retry-After header value.
// Supports both integer seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	const ceiling = 30 * time.Second
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
		return min(time.Duration(secs)*time.Second, ceiling)
	}
	if t, err := http.ParseTime(header); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0
		}
		return min(d, ceiling)
	}
	return 0
}
