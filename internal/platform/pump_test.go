package platform

import (
	"testing"
	"time"

	"vedad/internal/policy"
	"vedad/internal/tracker"
)

type stubThermal struct{ level int }

func (s stubThermal) Level() int { return s.level }

type stubBattery struct {
	frac     *float64
	lowPower bool
}

func (s stubBattery) Fraction() *float64 { return s.frac }
func (s stubBattery) LowPowerMode() bool { return s.lowPower }

type stubMemory struct {
	resident float64
	headroom *float64
}

func (s stubMemory) ResidentMB() float64 { return s.resident }
func (s stubMemory) AvailableMB() *float64 { return s.headroom }

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

func fptr(v float64) *float64 { return &v }

func TestSampleFastFeedsSinks(t *testing.T) {
	mem := tracker.NewResourceMonitor()
	therm := tracker.NewThermalMonitor()
	p := NewPump(PumpConfig{
		Thermal:     stubThermal{level: 2},
		Memory:      stubMemory{resident: 640},
		ThermalSink: therm,
		MemorySink:  mem,
	})
	p.sampleFast()
	if mem.CurrentMB() != 640 {
		t.Fatalf("expected memory reading 640, got %v", mem.CurrentMB())
	}
	if therm.Level() != 2 {
		t.Fatalf("expected thermal level 2, got %d", therm.Level())
	}
}

func TestSampleFastSkipsUnknownThermal(t *testing.T) {
	therm := tracker.NewThermalMonitor()
	therm.Set(1)
	p := NewPump(PumpConfig{Thermal: NoThermal{}, ThermalSink: therm})
	p.sampleFast()
	// A -1 poll must not clobber a level pushed out of band.
	if therm.Level() != 1 {
		t.Fatalf("expected retained level 1, got %d", therm.Level())
	}
}

func TestSampleBatteryRecordsFraction(t *testing.T) {
	batt := tracker.NewBatteryDrainTracker(true)
	clk := stubClock{now: time.Unix(1_700_000_000, 0)}
	p := NewPump(PumpConfig{
		Battery:     stubBattery{frac: fptr(0.8)},
		BatterySink: batt,
		Clock:       clk,
	})
	p.sampleBattery()
	if lvl := batt.LatestLevel(); lvl == nil || *lvl != 0.8 {
		t.Fatalf("expected recorded level 0.8, got %v", lvl)
	}
}

func TestSignalsPreferThermalMonitor(t *testing.T) {
	therm := tracker.NewThermalMonitor()
	therm.Set(3)
	p := NewPump(PumpConfig{
		Thermal:     stubThermal{level: 1},
		Battery:     stubBattery{frac: fptr(0.5), lowPower: true},
		Memory:      stubMemory{resident: 512, headroom: fptr(900)},
		ThermalSink: therm,
	})
	sig := p.Signals()
	if sig.ThermalLevel != 3 {
		t.Fatalf("expected monitor level 3 over polled 1, got %d", sig.ThermalLevel)
	}
	if sig.BatteryFraction == nil || *sig.BatteryFraction != 0.5 || !sig.LowPowerMode {
		t.Fatalf("unexpected battery signals: %+v", sig)
	}
	if sig.MemoryHeadroomMB == nil || *sig.MemoryHeadroomMB != 900 {
		t.Fatalf("unexpected headroom: %v", sig.MemoryHeadroomMB)
	}
}

func TestEvaluateFeedsPolicy(t *testing.T) {
	pol := policy.New(policy.Config{})
	p := NewPump(PumpConfig{
		Thermal: stubThermal{level: 3},
		Policy:  pol,
		Clock:   stubClock{now: time.Unix(1_700_000_000, 0)},
	})
	p.evaluate()
	if pol.CurrentLevel() != policy.Paused {
		t.Fatalf("expected critical thermal to pause, got %v", pol.CurrentLevel())
	}
}
