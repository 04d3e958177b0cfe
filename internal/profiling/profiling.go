package profiling

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Recorder accumulates wall time per named stage. One recorder belongs to
// one export run; it is safe for concurrent use by the pipeline workers.
type Recorder struct {
	mu     sync.Mutex
	totals map[string]time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{totals: make(map[string]time.Duration)}
}

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer rec.Track("zone.Sequence")()
//
// A nil recorder tracks nothing.
func (r *Recorder) Track(name string) func() {
	if r == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		r.mu.Lock()
		r.totals[name] += d
		r.mu.Unlock()
	}
}

// Snapshot returns a copy of the current totals.
func (r *Recorder) Snapshot() map[string]time.Duration {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]time.Duration, len(r.totals))
	for k, v := range r.totals {
		out[k] = v
	}
	return out
}

// Stage is one named total.
type Stage struct {
	Name  string
	Total time.Duration
}

// Slowest returns up to n stages, slowest first, ties by name.
func (r *Recorder) Slowest(n int) []Stage {
	ss := r.Snapshot()
	list := make([]Stage, 0, len(ss))
	for k, v := range ss {
		list = append(list, Stage{Name: k, Total: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Total != list[j].Total {
			return list[i].Total > list[j].Total
		}
		return list[i].Name < list[j].Name
	})
	return list[:min(n, len(list))]
}

// TopN formats the n slowest stages.
// Example: "physics.Merge:4.2ms, meshing.Cancel:2.1ms"
func (r *Recorder) TopN(n int) string {
	parts := make([]string, 0, n)
	for _, s := range r.Slowest(n) {
		parts = append(parts, s.Name+":"+formatMs(s.Total))
	}
	return strings.Join(parts, ", ")
}

// formatMs prints milliseconds with one decimal, dropping a trailing ".0".
func formatMs(d time.Duration) string {
	ms := strconv.FormatFloat(float64(d.Microseconds())/1000, 'f', 1, 64)
	return strings.TrimSuffix(ms, ".0") + "ms"
}
