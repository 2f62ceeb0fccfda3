// Package perf keeps a bounded in-memory history of request, query and
// backend-call timings for the admin performance page.
package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// EntryKind distinguishes what was timed.
type EntryKind uint8

const (
	KindRequest EntryKind = iota // inbound HTTP request
	KindQuery                    // local SQLite statement
	KindBackend                  // outbound REST backend call
)

// String names the kind for display.
func (k EntryKind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindQuery:
		return "query"
	case KindBackend:
		return "backend"
	}
	return "unknown"
}

// Entry is a single timing record stored in the ring buffer.
type Entry struct {
	Kind       EntryKind
	Path       string // "GET /members", "QueryContext" or "GET /organizations"
	StatusCode int    // HTTP status; 0 for queries and transport failures
	Failed     bool
	DurationMs float64
	Timestamp  time.Time
}

// Collector is a fixed-size ring buffer for timing entries.
// When full, the oldest entries are overwritten. Aggregation happens only
// on read (Snapshot).
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   int64
}

// NewCollector creates a collector with the given ring buffer capacity.
// PRE: none; size <= 0 selects DefaultRingSize
// POST: returns a ready-to-use collector
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Record appends an entry to the ring buffer.
// POST: entry stored; if the buffer is full the oldest entry is overwritten
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % c.size
	c.mu.Unlock()
	atomic.AddInt64(&c.count, 1)
}

// ObserveBackendCall records an outbound backend call. It lets a Collector
// be registered directly as a backend client observer.
func (c *Collector) ObserveBackendCall(resource, method string, status int, err error, d time.Duration) {
	c.Record(Entry{
		Kind:       KindBackend,
		Path:       method + " " + resource,
		StatusCode: status,
		Failed:     err != nil,
		DurationMs: float64(d.Microseconds()) / 1000.0,
		Timestamp:  time.Now().Add(-d),
	})
}

// TotalRecorded returns the number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	return atomic.LoadInt64(&c.count)
}

// KindStats summarizes one entry kind.
type KindStats struct {
	Count   int
	Failed  int
	P50Ms   float64
	P95Ms   float64
	P99Ms   float64
	Slowest []PathStat
}

// ErrorRate returns the share of failed entries in [0, 1].
func (k KindStats) ErrorRate() float64 {
	if k.Count == 0 {
		return 0
	}
	return float64(k.Failed) / float64(k.Count)
}

// Snapshot holds aggregated performance data computed on read.
type Snapshot struct {
	TotalRecorded int64
	Requests      KindStats
	Queries       KindStats
	Backend       KindStats
}

// PathStat aggregates timing for a single path.
type PathStat struct {
	Path    string
	AvgMs   float64
	MaxMs   float64
	Count   int
	Failed  int
	TotalMs float64
}

type kindAccumulator struct {
	durations []float64
	failed    int
	paths     map[string]*PathStat
}

func (a *kindAccumulator) add(e Entry) {
	if a.paths == nil {
		a.paths = make(map[string]*PathStat)
	}
	a.durations = append(a.durations, e.DurationMs)
	s, ok := a.paths[e.Path]
	if !ok {
		s = &PathStat{Path: e.Path}
		a.paths[e.Path] = s
	}
	s.Count++
	s.TotalMs += e.DurationMs
	if e.DurationMs > s.MaxMs {
		s.MaxMs = e.DurationMs
	}
	if e.Failed || e.StatusCode >= 500 {
		s.Failed++
		a.failed++
	}
}

func (a *kindAccumulator) stats(topN int) KindStats {
	ks := KindStats{Count: len(a.durations), Failed: a.failed}
	for _, s := range a.paths {
		s.AvgMs = s.TotalMs / float64(s.Count)
	}
	ks.Slowest = topByAvg(a.paths, topN)
	if len(a.durations) > 0 {
		sort.Float64s(a.durations)
		ks.P50Ms = percentile(a.durations, 50)
		ks.P95Ms = percentile(a.durations, 95)
		ks.P99Ms = percentile(a.durations, 99)
	}
	return ks
}

// Snapshot computes aggregated stats for entries recorded at or after since.
// It sorts, so it should only run when the performance page is rendered.
// PRE: topN >= 0
// POST: each KindStats lists at most topN paths, slowest average first
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, c.size)
	copy(buf, c.entries)
	c.mu.Unlock()

	var acc [3]kindAccumulator
	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) || int(e.Kind) >= len(acc) {
			continue
		}
		acc[e.Kind].add(e)
	}

	return Snapshot{
		TotalRecorded: c.TotalRecorded(),
		Requests:      acc[KindRequest].stats(topN),
		Queries:       acc[KindQuery].stats(topN),
		Backend:       acc[KindBackend].stats(topN),
	}
}

// percentile returns the p-th percentile from a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// topByAvg returns the n paths with the highest average duration.
func topByAvg(stats map[string]*PathStat, n int) []PathStat {
	list := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs == list[j].AvgMs {
			return list[i].Path < list[j].Path
		}
		return list[i].AvgMs > list[j].AvgMs
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}
