package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/types"
)

// Adapter turns one fetched article page into candidate articles by running
// a source's declarative rules. The same Adapter serves every source.
type Adapter struct {
	minParagraph  int
	minParagraphs int
	dates        *DateExtractor
	logger       *slog.Logger
}

// NewAdapter creates the shared rule engine.
func NewAdapter(cfg config.ValidationConfig, logger *slog.Logger) *Adapter {
	return &Adapter{
		minParagraph:  cfg.MinParagraphLength,
		minParagraphs: max(cfg.MinParagraphs, 1),
		dates:         NewDateExtractor(logger),
		logger:        logger.With("component", "adapter"),
	}
}

// Extract runs src's rules over resp. It returns no articles and a nil error
// when no body rule matched. A page that cannot be parsed, or that makes the
// engine panic, yields a *types.ParseError; the caller skips that page.
func (a *Adapter) Extract(resp *types.Response, src *config.SourceConfig) (out []*types.Article, err error) {
	pageURL := resp.BaseURL()

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &types.ParseError{URL: pageURL, Err: fmt.Errorf("panic during extraction: %v", r)}
		}
	}()

	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: err}
	}

	// Dates read JSON-LD, which is stripped with the other scripts below.
	published := a.dates.Extract(doc, pageURL, src.DateSelectors)

	doc.Find("script, style, noscript, iframe, template").Remove()

	body, rule, err := a.firstMatch(doc, resp, src.BodyRules, pageURL, true)
	if err != nil {
		return nil, err
	}
	if body == "" {
		a.logger.Debug("no body rule matched", "source", src.ID, "url", pageURL)
		return nil, nil
	}

	title, _, err := a.firstMatch(doc, resp, src.TitleRules, pageURL, false)
	if err != nil {
		return nil, err
	}
	subtitle, _, err := a.firstMatch(doc, resp, src.SubtitleRules, pageURL, false)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(subtitle, title) {
		subtitle = ""
	}

	art := types.NewArticle(src.ID, pageURL)
	art.Title = title
	art.Subtitle = subtitle
	art.Body = body
	art.PublishedAt = published
	if !resp.FetchedAt.IsZero() {
		art.FetchedAt = resp.FetchedAt
	}

	a.logger.Debug("article extracted",
		"source", src.ID,
		"url", pageURL,
		"rule", rule.String(),
		"body_len", len(body),
	)

	return []*types.Article{art}, nil
}

// firstMatch tries rules in declared order and returns the text of the first
// one that yields something. Results of different rules are never merged.
func (a *Adapter) firstMatch(doc *goquery.Document, resp *types.Response, rules []config.ExtractRule, pageURL string, body bool) (string, config.ExtractRule, error) {
	for _, rule := range rules {
		text, err := a.apply(doc, resp, rule, body)
		if err != nil {
			return "", rule, &types.ParseError{URL: pageURL, Selector: rule.Selector, Err: err}
		}
		if text != "" {
			return text, rule, nil
		}
	}
	return "", config.ExtractRule{}, nil
}
