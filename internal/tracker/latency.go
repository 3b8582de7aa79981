package tracker

import (
	"math"
	"sort"
	"sync"
)

// latencyWindowCap bounds the sliding window of latency samples.
const latencyWindowCap = 100

// LatencyTracker keeps a fixed-capacity sliding window of task latencies in
// milliseconds. Record and the query accessors are safe to call
// concurrently.
type LatencyTracker struct {
	mu     sync.RWMutex
	window []float64
	next   int // overwrite position once the window is full
	total  uint64
}

func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{window: make([]float64, 0, latencyWindowCap)}
}

// Record adds one sample. Negative or NaN input is not recorded.
func (t *LatencyTracker) Record(ms float64) {
	if ms < 0 || math.IsNaN(ms) {
		return
	}
	t.mu.Lock()
	if len(t.window) < latencyWindowCap {
		t.window = append(t.window, ms)
	} else {
		t.window[t.next] = ms
		t.next = (t.next + 1) % latencyWindowCap
	}
	t.total++
	t.mu.Unlock()
}

// Percentile returns the p-th percentile (p in 0..100) of the current
// window, or nil when no samples have been recorded.
func (t *LatencyTracker) Percentile(p float64) *float64 {
	t.mu.RLock()
	n := len(t.window)
	if n == 0 {
		t.mu.RUnlock()
		return nil
	}
	buf := make([]float64, n)
	copy(buf, t.window)
	t.mu.RUnlock()

	sort.Float64s(buf)
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}
	idx := int(math.Round(p / 100 * float64(n-1)))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	v := buf[idx]
	return &v
}

// SampleCount returns the total number of samples ever recorded, not the
// window size. Used for warm-up gating.
func (t *LatencyTracker) SampleCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// WindowSize returns the number of samples currently retained.
func (t *LatencyTracker) WindowSize() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.window)
}
