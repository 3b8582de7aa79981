package tracker

import "sync"

// LevelUnknown marks a device that has not reported a thermal level.
const LevelUnknown = -1

// ThermalMonitor holds the current discrete thermal level (0=nominal ..
// 3=critical, -1 unknown) and a registry of listeners invoked on every
// level change. Registration and removal are safe to call concurrently
// with a level update.
type ThermalMonitor struct {
	mu        sync.RWMutex
	level     int
	listeners map[string]func(level int)
}

func NewThermalMonitor() *ThermalMonitor {
	return &ThermalMonitor{level: LevelUnknown, listeners: make(map[string]func(int))}
}

// Set updates the level and notifies listeners when it changed.
// Out-of-range input is not recorded.
func (m *ThermalMonitor) Set(level int) {
	if level < 0 || level > 3 {
		return
	}
	m.mu.Lock()
	if level == m.level {
		m.mu.Unlock()
		return
	}
	m.level = level
	// Copy so callbacks run outside the lock.
	cbs := make([]func(int), 0, len(m.listeners))
	for _, fn := range m.listeners {
		cbs = append(cbs, fn)
	}
	m.mu.Unlock()
	for _, fn := range cbs {
		fn(level)
	}
}

// Level returns the current thermal level, LevelUnknown before any update.
func (m *ThermalMonitor) Level() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level
}

// Subscribe registers a change listener under a caller-supplied id,
// replacing any previous listener with the same id.
func (m *ThermalMonitor) Subscribe(id string, fn func(level int)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners[id] = fn
	m.mu.Unlock()
}

// Unsubscribe removes the listener registered under id, if any.
func (m *ThermalMonitor) Unsubscribe(id string) {
	m.mu.Lock()
	delete(m.listeners, id)
	m.mu.Unlock()
}
