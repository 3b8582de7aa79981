package tracker

import (
	"sync"
	"time"
)

// drainWindow bounds how far back drain-rate samples are kept.
const drainWindow = 10 * time.Minute

type batterySample struct {
	level float64 // 0..1 fraction
	at    time.Time
}

// BatteryDrainTracker computes battery drain in percentage points per ten
// minutes from periodic level samples. On platforms without a battery API
// it is constructed unavailable and every accessor returns nil; callers
// must treat nil as "unknown", never as "zero".
type BatteryDrainTracker struct {
	mu        sync.RWMutex
	available bool
	samples   []batterySample
}

func NewBatteryDrainTracker(available bool) *BatteryDrainTracker {
	return &BatteryDrainTracker{available: available}
}

// Available reports whether the platform exposes a battery level at all.
func (t *BatteryDrainTracker) Available() bool { return t.available }

// Record appends one (level, timestamp) sample and evicts samples older
// than the drain window. Input outside 0..1, or any input when
// unavailable, is not recorded.
func (t *BatteryDrainTracker) Record(level float64, at time.Time) {
	if !t.available || level < 0 || level > 1 {
		return
	}
	t.mu.Lock()
	t.samples = append(t.samples, batterySample{level: level, at: at})
	cutoff := at.Add(-drainWindow)
	keep := 0
	for keep < len(t.samples) && t.samples[keep].at.Before(cutoff) {
		keep++
	}
	if keep > 0 {
		t.samples = append(t.samples[:0], t.samples[keep:]...)
	}
	t.mu.Unlock()
}

// DrainRatePer10Min returns the observed drain in percentage points per
// ten minutes, floored at 0 (a charging device never reports negative
// drain). Nil when unavailable or fewer than two samples exist.
func (t *BatteryDrainTracker) DrainRatePer10Min() *float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.available || len(t.samples) < 2 {
		return nil
	}
	oldest := t.samples[0]
	newest := t.samples[len(t.samples)-1]
	elapsed := newest.at.Sub(oldest.at).Seconds()
	if elapsed <= 0 {
		return nil
	}
	rate := (oldest.level - newest.level) * 100 / elapsed * 600
	if rate < 0 {
		rate = 0
	}
	return &rate
}

// LatestLevel returns the most recent battery fraction, nil when
// unavailable or before any sample.
func (t *BatteryDrainTracker) LatestLevel() *float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.available || len(t.samples) == 0 {
		return nil
	}
	v := t.samples[len(t.samples)-1].level
	return &v
}
