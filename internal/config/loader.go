package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("NEWSGOAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("newsgoat")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".newsgoat"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides apply to every key.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("sources_file", cfg.SourcesFile)

	v.SetDefault("engine.source_concurrency", cfg.Engine.SourceConcurrency)
	v.SetDefault("engine.max_concurrent_requests", cfg.Engine.MaxConcurrentRequests)
	v.SetDefault("engine.article_concurrency", cfg.Engine.ArticleConcurrency)
	v.SetDefault("engine.source_timeout", cfg.Engine.SourceTimeout)
	v.SetDefault("engine.max_articles_per_source", cfg.Engine.MaxArticlesPerSource)
	v.SetDefault("engine.respect_robots", cfg.Engine.RespectRobots)

	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.retry_delay", cfg.Fetcher.RetryDelay)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)
	v.SetDefault("fetcher.accept_language", cfg.Fetcher.AcceptLanguage)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.limit_per_host", cfg.Fetcher.LimitPerHost)
	v.SetDefault("fetcher.host_rate", cfg.Fetcher.HostRate)
	v.SetDefault("fetcher.host_burst", cfg.Fetcher.HostBurst)
	v.SetDefault("fetcher.breaker_failures", cfg.Fetcher.BreakerFailures)
	v.SetDefault("fetcher.breaker_timeout", cfg.Fetcher.BreakerTimeout)

	v.SetDefault("discovery.min_listing_matches", cfg.Discovery.MinListingMatches)
	v.SetDefault("discovery.url_patterns", cfg.Discovery.URLPatterns)

	v.SetDefault("validation.min_body_length", cfg.Validation.MinBodyLength)
	v.SetDefault("validation.min_paragraph_length", cfg.Validation.MinParagraphLength)
	v.SetDefault("validation.min_paragraphs", cfg.Validation.MinParagraphs)
	v.SetDefault("validation.boilerplate_patterns", cfg.Validation.BoilerplatePatterns)
	v.SetDefault("validation.keywords", cfg.Validation.Keywords)

	v.SetDefault("normalize.tracking_params", cfg.Normalize.TrackingParams)
	v.SetDefault("normalize.strip_accents", cfg.Normalize.StripAccents)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.sqlite_path", cfg.Storage.SQLitePath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)
	v.SetDefault("storage.report_path", cfg.Storage.ReportPath)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)

	v.SetDefault("schedule.cron", cfg.Schedule.Cron)
	v.SetDefault("schedule.timezone", cfg.Schedule.Timezone)
}
