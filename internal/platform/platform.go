// Package platform defines the adapter interfaces through which the
// supervision core reads device signals. Per-ecosystem SDK wrappers supply
// real implementations; the defaults here cover hosts without the matching
// hardware signal.
package platform

import "time"

// Clock abstracts the wall-clock source used for task timing so tests can
// script time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ThermalSource reports the device thermal level: 0 (nominal) through
// 3 (critical), or -1 when the platform does not expose one. Push-capable
// platforms should additionally feed tracker.ThermalMonitor.Set from their
// native change callback; the pump's poll is the fallback path.
type ThermalSource interface {
	Level() int
}

// BatterySource reports battery charge as a 0..1 fraction, nil when the
// platform has no battery API, plus the OS low-power-mode flag when one
// exists.
type BatterySource interface {
	Fraction() *float64
	LowPowerMode() bool
}

// MemorySource reports the process resident set and, when the platform
// exposes it, the system's available memory (the policy's headroom input).
type MemorySource interface {
	ResidentMB() float64
	AvailableMB() *float64
}

// NoThermal is the default thermal source for hosts without a sensor.
type NoThermal struct{}

func (NoThermal) Level() int { return -1 }

// NoBattery is the default battery source for mains-powered hosts.
type NoBattery struct{}

func (NoBattery) Fraction() *float64 { return nil }
func (NoBattery) LowPowerMode() bool { return false }
