// Package dedup removes repeated articles within a single run.
package dedup

import (
	"sync"

	"github.com/IshaanNene/NewsGoat/internal/types"
)

// Deduplicator tracks canonical URLs and content hashes already accepted.
// The primary key is the canonical URL; the content hash catches the same
// body republished under a different URL. The first article seen wins.
type Deduplicator struct {
	mu     sync.Mutex
	urls   map[string]struct{}
	hashes map[string]struct{}
}

// New creates a Deduplicator with the given estimated capacity.
func New(estimatedCapacity int) *Deduplicator {
	return &Deduplicator{
		urls:   make(map[string]struct{}, estimatedCapacity),
		hashes: make(map[string]struct{}, estimatedCapacity),
	}
}

// Seen reports whether a matches an article already accepted, and if not,
// records it. Articles are expected to carry a canonical URL.
func (d *Deduplicator) Seen(a *types.Article) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.urls[a.URL]; ok {
		return true
	}
	if a.ContentHash != "" {
		if _, ok := d.hashes[a.ContentHash]; ok {
			return true
		}
	}

	d.urls[a.URL] = struct{}{}
	if a.ContentHash != "" {
		d.hashes[a.ContentHash] = struct{}{}
	}
	return false
}

// Dedupe filters in, keeping input order and the first occurrence of each
// article. It returns the survivors and how many were removed.
func (d *Deduplicator) Dedupe(in []*types.Article) ([]*types.Article, int) {
	out := make([]*types.Article, 0, len(in))
	for _, a := range in {
		if d.Seen(a) {
			continue
		}
		out = append(out, a)
	}
	return out, len(in) - len(out)
}
