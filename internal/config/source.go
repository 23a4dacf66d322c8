package config

import (
	"fmt"
	"net/url"
	"strings"
)

// RuleKind selects how an extraction rule combines the nodes it matches.
type RuleKind string

const (
	// RuleSingleBest takes the first node the selector matches.
	RuleSingleBest RuleKind = "single_best"
	// RuleCombineAll joins the text of every matched node in document order.
	RuleCombineAll RuleKind = "combine_all"
	// RuleStructuralFallback takes the first match, and when it is empty
	// looks at its siblings and then its parent for Fallback.
	RuleStructuralFallback RuleKind = "structural_fallback"
	// RuleReadability runs generic readability extraction over the page.
	RuleReadability RuleKind = "readability"
)

// Selector engines.
const (
	EngineCSS   = "css"
	EngineXPath = "xpath"
)

// ExtractRule is one declarative extraction step. Rules are tried in order.
type ExtractRule struct {
	Kind     RuleKind `mapstructure:"kind"     yaml:"kind"`
	Engine   string   `mapstructure:"engine"   yaml:"engine,omitempty"`
	Selector string   `mapstructure:"selector" yaml:"selector,omitempty"`
	// Fallback is the container searched around an empty structural match.
	Fallback string `mapstructure:"fallback" yaml:"fallback,omitempty"`
	// Paragraphs selects the text blocks inside a matched node. Defaults to "p".
	Paragraphs string `mapstructure:"paragraphs" yaml:"paragraphs,omitempty"`
	// Attr reads an attribute instead of text, e.g. "content" on a meta tag.
	Attr string `mapstructure:"attr" yaml:"attr,omitempty"`
}

// SelectorEngine returns the rule's engine, defaulting to CSS.
func (r ExtractRule) SelectorEngine() string {
	if r.Engine == "" {
		return EngineCSS
	}
	return r.Engine
}

// ParagraphSelector returns the paragraph selector, defaulting to "p".
func (r ExtractRule) ParagraphSelector() string {
	if r.Paragraphs == "" {
		return "p"
	}
	return r.Paragraphs
}

func (r ExtractRule) String() string {
	if r.Kind == RuleReadability {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s(%s:%s)", r.Kind, r.SelectorEngine(), r.Selector)
}

// SourceConfig describes one news site as data interpreted by the rule engine.
type SourceConfig struct {
	ID          string   `mapstructure:"id"           yaml:"id"`
	Name        string   `mapstructure:"name"         yaml:"name"`
	ListingURLs []string `mapstructure:"listing_urls" yaml:"listing_urls"`
	FeedURL     string   `mapstructure:"feed_url"     yaml:"feed_url,omitempty"`

	// ListingSelectors are tried in order to find article cards on listing pages.
	ListingSelectors []string `mapstructure:"listing_selectors" yaml:"listing_selectors,omitempty"`
	// URLPatterns override the discovery URL patterns for this source.
	URLPatterns []string `mapstructure:"url_patterns" yaml:"url_patterns,omitempty"`

	TitleRules    []ExtractRule `mapstructure:"title_rules"    yaml:"title_rules,omitempty"`
	SubtitleRules []ExtractRule `mapstructure:"subtitle_rules" yaml:"subtitle_rules,omitempty"`
	BodyRules     []ExtractRule `mapstructure:"body_rules"     yaml:"body_rules,omitempty"`
	// DateSelectors are checked before the generic date classes.
	DateSelectors []string `mapstructure:"date_selectors" yaml:"date_selectors,omitempty"`

	MinContentLength int      `mapstructure:"min_content_length" yaml:"min_content_length,omitempty"`
	DomainAliases    []string `mapstructure:"domain_aliases"     yaml:"domain_aliases,omitempty"`
	MaxArticles      int      `mapstructure:"max_articles"       yaml:"max_articles,omitempty"`
	Disabled         bool     `mapstructure:"disabled"           yaml:"disabled,omitempty"`
}

// Base returns the scheme and host of the first listing URL (or the feed URL).
func (s *SourceConfig) Base() (*url.URL, error) {
	raw := s.FeedURL
	if len(s.ListingURLs) > 0 {
		raw = s.ListingURLs[0]
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("no host in %q", raw)
	}
	return &url.URL{Scheme: strings.ToLower(u.Scheme), Host: strings.ToLower(u.Host), Path: "/"}, nil
}

// Hosts returns the canonical host followed by every alias, lower-cased.
func (s *SourceConfig) Hosts() []string {
	var hosts []string
	if base, err := s.Base(); err == nil {
		hosts = append(hosts, base.Hostname())
	}
	for _, alias := range s.DomainAliases {
		hosts = append(hosts, strings.ToLower(strings.TrimSpace(alias)))
	}
	return hosts
}

// ApplyDefaults fills empty rule lists with the generic news-site rules.
func (s *SourceConfig) ApplyDefaults() {
	if s.Name == "" {
		s.Name = s.ID
	}
	if len(s.ListingSelectors) == 0 {
		s.ListingSelectors = append([]string(nil), DefaultListingSelectors...)
	}
	if len(s.TitleRules) == 0 {
		s.TitleRules = append([]ExtractRule(nil), DefaultTitleRules...)
	}
	if len(s.SubtitleRules) == 0 {
		s.SubtitleRules = append([]ExtractRule(nil), DefaultSubtitleRules...)
	}
	if len(s.BodyRules) == 0 {
		s.BodyRules = append([]ExtractRule(nil), DefaultBodyRules...)
	}
}

// Enabled filters out disabled sources, keeping declaration order.
func Enabled(sources []SourceConfig) []SourceConfig {
	out := make([]SourceConfig, 0, len(sources))
	for _, s := range sources {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}

// Select keeps the sources whose IDs are listed, in declaration order.
func Select(sources []SourceConfig, ids []string) ([]SourceConfig, error) {
	if len(ids) == 0 {
		return sources, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[strings.TrimSpace(id)] = true
	}
	var out []SourceConfig
	for _, s := range sources {
		if want[s.ID] {
			out = append(out, s)
			delete(want, s.ID)
		}
	}
	for id := range want {
		return nil, fmt.Errorf("unknown source %q", id)
	}
	return out, nil
}
