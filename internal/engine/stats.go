package engine

import (
	"maps"
	"sync"
	"time"
)

// SourceStats is the per-source part of a run's statistics.
type SourceStats struct {
	SourceID        string         `json:"source_id"`
	State           TaskState      `json:"state"`
	Reason          string         `json:"reason,omitempty"`
	Articles        int            `json:"articles"`
	Elapsed         time.Duration  `json:"elapsed"`
	Errors          int            `json:"errors"`
	Rejected        map[string]int `json:"rejected,omitempty"`
	IntraDuplicates int            `json:"intra_duplicates"`
	PagesSkipped    int            `json:"pages_skipped"`
	Discovered      int            `json:"discovered"`
}

// Totals aggregates a run.
type Totals struct {
	// Articles is the number of records left after cross-source dedup.
	Articles          int           `json:"articles"`
	Elapsed           time.Duration `json:"elapsed"`
	DuplicatesRemoved int           `json:"duplicates_removed"`
	Sources           int           `json:"sources"`
	Completed         int           `json:"completed"`
	Failed            int           `json:"failed"`
	TimedOut          int           `json:"timed_out"`
	Errors            int           `json:"errors"`
	Rejected          int           `json:"rejected"`
}

// Snapshot is a point-in-time copy of the collected statistics. Sources are
// in declaration order.
type Snapshot struct {
	StartedAt time.Time     `json:"started_at"`
	Sources   []SourceStats `json:"sources"`
	Totals    Totals        `json:"totals"`
}

// Source returns the stats of one source.
func (s Snapshot) Source(id string) (SourceStats, bool) {
	for _, src := range s.Sources {
		if src.SourceID == id {
			return src, true
		}
	}
	return SourceStats{}, false
}

// StatsCollector accumulates per-source results as they arrive. Once frozen
// at the end of a run it ignores further records.
type StatsCollector struct {
	mu      sync.Mutex
	order   []string
	sources map[string]*SourceStats
	totals  Totals
	started time.Time
	frozen  bool
}

// NewStatsCollector creates a collector for the given sources, in order.
func NewStatsCollector(sourceIDs []string) *StatsCollector {
	c := &StatsCollector{
		order:   append([]string(nil), sourceIDs...),
		sources: make(map[string]*SourceStats, len(sourceIDs)),
		started: time.Now(),
	}
	for _, id := range sourceIDs {
		c.sources[id] = &SourceStats{SourceID: id, State: TaskPending, Rejected: map[string]int{}}
	}
	c.totals.Sources = len(sourceIDs)
	return c
}

// Record stores the outcome of one source task.
func (c *StatsCollector) Record(r *SourceResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return
	}

	s, ok := c.sources[r.SourceID]
	if !ok {
		s = &SourceStats{SourceID: r.SourceID, Rejected: map[string]int{}}
		c.sources[r.SourceID] = s
		c.order = append(c.order, r.SourceID)
		c.totals.Sources++
	}

	s.State = r.State
	s.Reason = r.Reason
	s.Articles = len(r.Articles)
	s.Elapsed = r.Elapsed
	s.Errors = r.Errors
	s.IntraDuplicates = r.IntraDuplicates
	s.PagesSkipped = r.PagesSkipped
	s.Discovered = r.Discovered
	s.Rejected = maps.Clone(r.Rejected)
	if s.Rejected == nil {
		s.Rejected = map[string]int{}
	}

	switch r.State {
	case TaskCompleted:
		c.totals.Completed++
	case TaskFailed:
		c.totals.Failed++
	case TaskTimedOut:
		c.totals.TimedOut++
	}
	c.totals.Errors += r.Errors
	for _, n := range r.Rejected {
		c.totals.Rejected += n
	}
}

// Freeze closes the run: final is the number of records after cross-source
// dedup, removed the duplicates that step dropped.
func (c *StatsCollector) Freeze(final, removed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return
	}
	c.totals.Articles = final
	c.totals.DuplicatesRemoved = removed
	c.totals.Elapsed = time.Since(c.started)
	c.frozen = true
}

// Snapshot returns a deep copy of the current statistics.
func (c *StatsCollector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		StartedAt: c.started,
		Sources:   make([]SourceStats, 0, len(c.order)),
		Totals:    c.totals,
	}
	for _, id := range c.order {
		s := *c.sources[id]
		s.Rejected = maps.Clone(s.Rejected)
		snap.Sources = append(snap.Sources, s)
	}
	if !c.frozen {
		snap.Totals.Elapsed = time.Since(c.started)
	}
	return snap
}
