package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"

	"github.com/IshaanNene/NewsGoat/internal/types"
)

var sourceIDRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

func fieldErr(field, format string, args ...any) error {
	return &types.ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// Validate checks the application configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Engine.SourceConcurrency < 1 {
		return fieldErr("engine.source_concurrency", "must be >= 1, got %d", cfg.Engine.SourceConcurrency)
	}
	if cfg.Engine.MaxConcurrentRequests < 1 {
		return fieldErr("engine.max_concurrent_requests", "must be >= 1, got %d", cfg.Engine.MaxConcurrentRequests)
	}
	if cfg.Engine.ArticleConcurrency < 1 {
		return fieldErr("engine.article_concurrency", "must be >= 1, got %d", cfg.Engine.ArticleConcurrency)
	}
	if cfg.Engine.SourceTimeout <= 0 {
		return fieldErr("engine.source_timeout", "must be > 0")
	}
	if cfg.Engine.MaxArticlesPerSource < 0 {
		return fieldErr("engine.max_articles_per_source", "must be >= 0, got %d", cfg.Engine.MaxArticlesPerSource)
	}

	if cfg.Fetcher.RequestTimeout <= 0 {
		return fieldErr("fetcher.request_timeout", "must be > 0")
	}
	if cfg.Fetcher.RetryDelay < 0 {
		return fieldErr("fetcher.retry_delay", "must be >= 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fieldErr("fetcher.max_body_size", "must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fieldErr("fetcher.max_redirects", "must be >= 0")
	}
	if cfg.Fetcher.HostRate < 0 {
		return fieldErr("fetcher.host_rate", "must be >= 0")
	}

	if cfg.Validation.MinBodyLength < 0 {
		return fieldErr("validation.min_body_length", "must be >= 0")
	}
	if cfg.Validation.MinParagraphs < 1 {
		return fieldErr("validation.min_paragraphs", "must be >= 1")
	}
	for _, p := range cfg.Validation.BoilerplatePatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fieldErr("validation.boilerplate_patterns", "invalid pattern %q: %w", p, err)
		}
	}

	validStorageTypes := map[string]bool{
		"json": true, "jsonl": true, "csv": true, "sqlite": true, "mongo": true,
	}
	for _, t := range strings.Split(cfg.Storage.Type, ",") {
		if !validStorageTypes[strings.TrimSpace(t)] {
			return fieldErr("storage.type", "%q is not supported (valid: json, jsonl, csv, sqlite, mongo)", t)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fieldErr("logging.level", "must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fieldErr("logging.format", "must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fieldErr("metrics.port", "must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is valid for fetching.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateSources checks every source up front. It returns all problems
// joined together; each one is a *types.ConfigError.
func ValidateSources(sources []SourceConfig) error {
	if len(sources) == 0 {
		return &types.ConfigError{Field: "sources", Err: errors.New("no sources configured")}
	}

	var errs []error
	seen := make(map[string]bool, len(sources))

	for i := range sources {
		src := &sources[i]
		fail := func(field, format string, args ...any) {
			errs = append(errs, &types.ConfigError{Source: src.ID, Field: field, Err: fmt.Errorf(format, args...)})
		}

		if !sourceIDRe.MatchString(src.ID) {
			fail("id", "must match %s, got %q", sourceIDRe, src.ID)
		}
		if seen[src.ID] {
			fail("id", "duplicate source id")
		}
		seen[src.ID] = true

		if len(src.ListingURLs) == 0 && src.FeedURL == "" {
			fail("listing_urls", "at least one listing URL or a feed URL is required")
		}
		for _, u := range src.ListingURLs {
			if err := ValidateURL(u); err != nil {
				fail("listing_urls", "%q: %w", u, err)
			}
		}
		if src.FeedURL != "" {
			if err := ValidateURL(src.FeedURL); err != nil {
				fail("feed_url", "%q: %w", src.FeedURL, err)
			}
		}
		for _, alias := range src.DomainAliases {
			if alias == "" || strings.ContainsAny(alias, "/:?# ") {
				fail("domain_aliases", "%q is not a bare host name", alias)
			}
		}
		if src.MinContentLength < 0 {
			fail("min_content_length", "must be >= 0, got %d", src.MinContentLength)
		}
		if src.MaxArticles < 0 {
			fail("max_articles", "must be >= 0, got %d", src.MaxArticles)
		}

		for _, sel := range src.ListingSelectors {
			if _, err := cascadia.Compile(sel); err != nil {
				fail("listing_selectors", "%q: %w", sel, err)
			}
		}
		for _, sel := range src.DateSelectors {
			if _, err := cascadia.Compile(sel); err != nil {
				fail("date_selectors", "%q: %w", sel, err)
			}
		}

		if len(src.TitleRules) == 0 {
			fail("title_rules", "at least one rule is required")
		}
		if len(src.BodyRules) == 0 {
			fail("body_rules", "at least one rule is required")
		}
		for _, group := range []struct {
			field string
			rules []ExtractRule
		}{
			{"title_rules", src.TitleRules},
			{"subtitle_rules", src.SubtitleRules},
			{"body_rules", src.BodyRules},
		} {
			for j, rule := range group.rules {
				if err := validateRule(rule); err != nil {
					fail(fmt.Sprintf("%s[%d]", group.field, j), "%w", err)
				}
			}
		}
	}

	return errors.Join(errs...)
}

// validateRule compiles every selector a rule carries with its engine.
func validateRule(rule ExtractRule) error {
	switch rule.Kind {
	case RuleSingleBest, RuleCombineAll, RuleStructuralFallback:
	case RuleReadability:
		return nil
	default:
		return fmt.Errorf("unknown rule kind %q", rule.Kind)
	}

	if rule.Selector == "" {
		return errors.New("selector is required")
	}

	compile := func(expr string) error {
		switch rule.SelectorEngine() {
		case EngineCSS:
			_, err := cascadia.Compile(expr)
			return err
		case EngineXPath:
			_, err := xpath.Compile(expr)
			return err
		default:
			return fmt.Errorf("unknown selector engine %q", rule.Engine)
		}
	}

	if err := compile(rule.Selector); err != nil {
		return fmt.Errorf("selector %q: %w", rule.Selector, err)
	}
	if rule.Fallback != "" {
		if err := compile(rule.Fallback); err != nil {
			return fmt.Errorf("fallback %q: %w", rule.Fallback, err)
		}
	}
	// Paragraph selectors always run through goquery on the matched node.
	if rule.Paragraphs != "" {
		if _, err := cascadia.Compile(rule.Paragraphs); err != nil {
			return fmt.Errorf("paragraphs %q: %w", rule.Paragraphs, err)
		}
	}
	return nil
}
