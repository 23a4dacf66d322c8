package parser

import (
	"bytes"
	"log/slog"
	"net/url"

	"github.com/mmcdole/gofeed"

	"github.com/IshaanNene/NewsGoat/internal/types"
	"github.com/IshaanNene/NewsGoat/internal/urlnorm"
)

// FeedFinder reads article links from an RSS or Atom feed. Sources that
// publish a feed use it in place of HTML listing discovery.
type FeedFinder struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewFeedFinder creates a FeedFinder.
func NewFeedFinder(logger *slog.Logger) *FeedFinder {
	return &FeedFinder{
		parser: gofeed.NewParser(),
		logger: logger.With("component", "feed_finder"),
	}
}

// Find returns item links in feed order, restricted to the source's hosts.
func (f *FeedFinder) Find(resp *types.Response, norm *urlnorm.Normalizer) ([]string, error) {
	feed, err := f.parser.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &types.ParseError{URL: resp.BaseURL(), Err: err}
	}

	base, err := url.Parse(resp.BaseURL())
	if err != nil {
		return nil, &types.ParseError{URL: resp.BaseURL(), Err: err}
	}

	seen := make(map[string]bool, len(feed.Items))
	links := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		href := item.Link
		if href == "" && len(item.Links) > 0 {
			href = item.Links[0]
		}
		link, ok := resolveLink(base, href)
		if !ok || !norm.SameSite(link) || seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}

	f.logger.Debug("feed parsed", "url", resp.BaseURL(), "title", feed.Title, "items", len(feed.Items), "links", len(links))
	return links, nil
}
