package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Article is a single news article extracted from a source.
type Article struct {
	// SourceID identifies the source that produced this article.
	SourceID string `json:"source_id" bson:"source_id"`

	// URL is the canonical article URL once it has left the pipeline.
	URL string `json:"url" bson:"url"`

	Title    string `json:"title" bson:"title"`
	Subtitle string `json:"subtitle,omitempty" bson:"subtitle,omitempty"`
	Body     string `json:"body" bson:"body"`

	// PublishedAt is nil when no publication date could be found.
	PublishedAt *time.Time `json:"published_at,omitempty" bson:"published_at,omitempty"`

	// FetchedAt is when the article page was received.
	FetchedAt time.Time `json:"fetched_at" bson:"fetched_at"`

	// ContentHash is the hex SHA-256 of the normalized body.
	ContentHash string `json:"content_hash" bson:"content_hash"`
}

// NewArticle creates an Article for the given source and page URL.
func NewArticle(sourceID, pageURL string) *Article {
	return &Article{
		SourceID:  sourceID,
		URL:       pageURL,
		FetchedAt: time.Now(),
	}
}

// ToFlatMap returns a flat map suitable for CSV export.
func (a *Article) ToFlatMap() map[string]string {
	published := ""
	if a.PublishedAt != nil {
		published = a.PublishedAt.Format(time.RFC3339)
	}
	return map[string]string{
		"source_id":    a.SourceID,
		"url":          a.URL,
		"title":        a.Title,
		"subtitle":     a.Subtitle,
		"body":         a.Body,
		"published_at": published,
		"fetched_at":   a.FetchedAt.Format(time.RFC3339),
		"content_hash": a.ContentHash,
	}
}

// NormalizeBody returns the form of body used for hashing: NFC,
// lower-cased, with whitespace runs collapsed to one space.
func NormalizeBody(body string) string {
	body = norm.NFC.String(body)
	return strings.ToLower(strings.Join(strings.Fields(body), " "))
}

// ContentHash returns the hex SHA-256 of the normalized body.
func ContentHash(body string) string {
	sum := sha256.Sum256([]byte(NormalizeBody(body)))
	return hex.EncodeToString(sum[:])
}
