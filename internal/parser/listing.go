package parser

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/types"
	"github.com/IshaanNene/NewsGoat/internal/urlnorm"
)

// LinkFinder discovers article links on a source's listing pages.
type LinkFinder struct {
	minMatches int
	patterns   []string
	logger     *slog.Logger
}

// NewLinkFinder creates a LinkFinder.
func NewLinkFinder(cfg config.DiscoveryConfig, logger *slog.Logger) *LinkFinder {
	patterns := cfg.URLPatterns
	if len(patterns) == 0 {
		patterns = config.DefaultURLPatterns
	}
	return &LinkFinder{
		minMatches: cfg.MinListingMatches,
		patterns:   patterns,
		logger:     logger.With("component", "link_finder"),
	}
}

// Find returns the article URLs on a listing page in document order, without
// duplicates, restricted to the source's own hosts. URLs are resolved but not
// canonicalized; that is the pipeline's job.
func (f *LinkFinder) Find(resp *types.Response, src *config.SourceConfig, norm *urlnorm.Normalizer) ([]string, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: resp.BaseURL(), Err: err}
	}

	cards, strategy := f.cards(doc, src)
	f.logger.Debug("listing cards found",
		"source", src.ID,
		"url", resp.BaseURL(),
		"strategy", strategy,
		"cards", cards.Length(),
	)

	base, err := url.Parse(resp.BaseURL())
	if err != nil {
		return nil, &types.ParseError{URL: resp.BaseURL(), Err: err}
	}

	seen := make(map[string]bool)
	var links []string
	cards.Each(func(_ int, card *goquery.Selection) {
		href, ok := cardHref(card)
		if !ok {
			return
		}
		link, ok := resolveLink(base, href)
		if !ok || !norm.SameSite(link) {
			return
		}
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})

	return links, nil
}

// cards finds article cards: the first listing selector with enough matches,
// then every <article>, then containers of links whose URL looks like a story.
func (f *LinkFinder) cards(doc *goquery.Document, src *config.SourceConfig) (*goquery.Selection, string) {
	for _, sel := range src.ListingSelectors {
		found := doc.Find(sel)
		if found.Length() > f.minMatches {
			return found, sel
		}
	}

	if articles := doc.Find("article"); articles.Length() >= f.minMatches && articles.Length() > 0 {
		return articles, "article"
	}

	patterns := src.URLPatterns
	if len(patterns) == 0 {
		patterns = f.patterns
	}

	containers := doc.Selection.Slice(0, 0)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !matchesAny(strings.ToLower(href), patterns) {
			return
		}
		if parent := a.Closest("article, div, li"); parent.Length() > 0 {
			containers = containers.AddSelection(parent)
		}
	})
	if containers.Length() > f.minMatches {
		return containers, "url_patterns"
	}

	return doc.Selection.Slice(0, 0), "none"
}

// cardHref returns the link of a card: its first <a href>, the card itself
// when it is a link, or an enclosing <a>.
func cardHref(card *goquery.Selection) (string, bool) {
	if goquery.NodeName(card) == "a" {
		if href, ok := card.Attr("href"); ok {
			return href, true
		}
	}
	if href, ok := card.Find("a[href]").First().Attr("href"); ok {
		return href, true
	}
	if href, ok := card.Parent().Filter("a[href]").Attr("href"); ok {
		return href, true
	}
	return "", false
}

// resolveLink resolves href against base, skipping unrendered templates and
// non-HTTP schemes.
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	if strings.Contains(href, "{{") || strings.Contains(strings.ToLower(href), "%7b%7b") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	resolved.Fragment = ""
	return resolved.String(), true
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
