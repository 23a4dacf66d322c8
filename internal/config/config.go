package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for NewsGoat.
type Config struct {
	Engine     EngineConfig     `mapstructure:"engine"     yaml:"engine"`
	Fetcher    FetcherConfig    `mapstructure:"fetcher"    yaml:"fetcher"`
	Discovery  DiscoveryConfig  `mapstructure:"discovery"  yaml:"discovery"`
	Validation ValidationConfig `mapstructure:"validation" yaml:"validation"`
	Normalize  NormalizeConfig  `mapstructure:"normalize"  yaml:"normalize"`
	Storage    StorageConfig    `mapstructure:"storage"    yaml:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    yaml:"metrics"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"   yaml:"schedule"`

	// SourcesFile points at a YAML source catalog. Empty means the built-in catalog.
	SourcesFile string `mapstructure:"sources_file" yaml:"sources_file"`
}

// EngineConfig controls the fetch orchestrator.
type EngineConfig struct {
	SourceConcurrency     int           `mapstructure:"source_concurrency"      yaml:"source_concurrency"`
	MaxConcurrentRequests int           `mapstructure:"max_concurrent_requests" yaml:"max_concurrent_requests"`
	ArticleConcurrency    int           `mapstructure:"article_concurrency"     yaml:"article_concurrency"`
	SourceTimeout         time.Duration `mapstructure:"source_timeout"          yaml:"source_timeout"`
	MaxArticlesPerSource  int           `mapstructure:"max_articles_per_source" yaml:"max_articles_per_source"`
	// RespectRobots skips article URLs disallowed by the site's robots.txt.
	RespectRobots bool `mapstructure:"respect_robots" yaml:"respect_robots"`
}

// FetcherConfig controls the HTTP fetcher.
type FetcherConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"       yaml:"retry_delay"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	AcceptLanguage  string        `mapstructure:"accept_language"   yaml:"accept_language"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	LimitPerHost    int           `mapstructure:"limit_per_host"    yaml:"limit_per_host"`
	HostRate        float64       `mapstructure:"host_rate"         yaml:"host_rate"`
	HostBurst       int           `mapstructure:"host_burst"        yaml:"host_burst"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"  yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"   yaml:"breaker_timeout"`
}

// DiscoveryConfig controls how article links are found on listing pages.
type DiscoveryConfig struct {
	// MinListingMatches is how many cards a listing selector must match
	// before it is trusted over the fallbacks.
	MinListingMatches int      `mapstructure:"min_listing_matches" yaml:"min_listing_matches"`
	URLPatterns       []string `mapstructure:"url_patterns"        yaml:"url_patterns"`
}

// ValidationConfig holds the thresholds applied uniformly to every source.
// A body container is accepted only when at least MinParagraphs of its
// paragraphs reach MinParagraphLength runes.
type ValidationConfig struct {
	MinBodyLength       int      `mapstructure:"min_body_length"      yaml:"min_body_length"`
	MinParagraphLength  int      `mapstructure:"min_paragraph_length" yaml:"min_paragraph_length"`
	MinParagraphs       int      `mapstructure:"min_paragraphs"       yaml:"min_paragraphs"`
	BoilerplatePatterns []string `mapstructure:"boilerplate_patterns" yaml:"boilerplate_patterns"`
	Keywords            []string `mapstructure:"keywords"             yaml:"keywords"`
}

// NormalizeConfig controls URL and text normalization.
type NormalizeConfig struct {
	// TrackingParams are query parameters removed from article URLs.
	// A trailing '*' matches by prefix, e.g. "utm_*".
	TrackingParams []string `mapstructure:"tracking_params" yaml:"tracking_params"`
	StripAccents   bool     `mapstructure:"strip_accents"   yaml:"strip_accents"`
}

// StorageConfig controls output/storage.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"`
	OutputPath      string `mapstructure:"output_path"      yaml:"output_path"`
	SQLitePath      string `mapstructure:"sqlite_path"      yaml:"sqlite_path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
	ReportPath      string `mapstructure:"report_path"      yaml:"report_path"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// ScheduleConfig controls periodic runs.
type ScheduleConfig struct {
	Cron     string `mapstructure:"cron"     yaml:"cron"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// DefaultURLPatterns are path fragments that usually identify article links.
var DefaultURLPatterns = []string{
	"/noticia", "/nota", "/post", "/articulo", "/news", "202",
	"/prensa", "/gobierno", "-n1", "-n2", "-n3", "-n4", "-n5",
	"/deportes", "/economia", "/salud", "/policiales", "/san-juan",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			SourceConcurrency:     4,
			MaxConcurrentRequests: 15,
			ArticleConcurrency:    5,
			SourceTimeout:         2 * time.Minute,
			MaxArticlesPerSource:  30,
		},
		Fetcher: FetcherConfig{
			RequestTimeout: 15 * time.Second,
			RetryDelay:     500 * time.Millisecond,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			},
			AcceptLanguage:  "es-AR,es;q=0.9,en;q=0.8",
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
			LimitPerHost:    5,
			HostRate:        5,
			HostBurst:       5,
			BreakerFailures: 5,
			BreakerTimeout:  60 * time.Second,
		},
		Discovery: DiscoveryConfig{
			MinListingMatches: 3,
			URLPatterns:       append([]string(nil), DefaultURLPatterns...),
		},
		Validation: ValidationConfig{
			MinBodyLength:      100,
			MinParagraphLength: 20,
			MinParagraphs:      2,
		},
		Storage: StorageConfig{
			Type:            "json",
			OutputPath:      "./output",
			SQLitePath:      "./output/news.db",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "newsgoat",
			MongoCollection: "articles",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
		Schedule: ScheduleConfig{
			Cron:     "0 */2 * * *",
			Timezone: "America/Argentina/San_Juan",
		},
	}
}
