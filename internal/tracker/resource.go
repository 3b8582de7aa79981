package tracker

import "sync"

// recentReadings is the window for the rolling memory average.
const recentReadings = 10

// ResourceMonitor records resident memory readings in MB.
type ResourceMonitor struct {
	mu      sync.RWMutex
	current float64
	peak    float64
	recent  []float64
}

func NewResourceMonitor() *ResourceMonitor {
	return &ResourceMonitor{recent: make([]float64, 0, recentReadings)}
}

// Record stores one resident-memory reading. Non-positive input is not
// recorded.
func (m *ResourceMonitor) Record(mb float64) {
	if mb <= 0 {
		return
	}
	m.mu.Lock()
	m.current = mb
	if mb > m.peak {
		m.peak = mb
	}
	if len(m.recent) == recentReadings {
		copy(m.recent, m.recent[1:])
		m.recent[recentReadings-1] = mb
	} else {
		m.recent = append(m.recent, mb)
	}
	m.mu.Unlock()
}

// CurrentMB returns the most recent reading, 0 before any reading.
func (m *ResourceMonitor) CurrentMB() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// PeakMB returns the highest reading ever recorded.
func (m *ResourceMonitor) PeakMB() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peak
}

// AverageMB returns the rolling average over the last ten readings, 0
// before any reading.
func (m *ResourceMonitor) AverageMB() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.recent) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m.recent {
		sum += v
	}
	return sum / float64(len(m.recent))
}
