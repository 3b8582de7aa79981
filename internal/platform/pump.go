package platform

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vedad/internal/policy"
	"vedad/internal/tracker"
)

// Default sampling cadences. Battery matches the one-minute sample
// contract of the drain tracker.
const (
	DefaultBatteryEvery = time.Minute
	DefaultMemoryEvery  = 5 * time.Second
)

// PumpConfig wires the pump's sources and sinks. Sources left nil take the
// inert defaults; cadences left zero take the package defaults.
type PumpConfig struct {
	Thermal      ThermalSource
	Battery      BatterySource
	Memory       MemorySource
	Clock        Clock
	ThermalSink  *tracker.ThermalMonitor
	BatterySink  *tracker.BatteryDrainTracker
	MemorySink   *tracker.ResourceMonitor
	Policy       *policy.Policy
	BatteryEvery time.Duration
	MemoryEvery  time.Duration
	Logger       zerolog.Logger
}

// Pump polls the platform signal sources on their cadences, feeds the
// trackers, and runs a policy evaluation after each sampling pass. It is
// the asynchronous writer half of the single-writer tracker discipline.
type Pump struct {
	cfg PumpConfig
}

func NewPump(cfg PumpConfig) *Pump {
	if cfg.Thermal == nil {
		cfg.Thermal = NoThermal{}
	}
	if cfg.Battery == nil {
		cfg.Battery = NoBattery{}
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.BatteryEvery <= 0 {
		cfg.BatteryEvery = DefaultBatteryEvery
	}
	if cfg.MemoryEvery <= 0 {
		cfg.MemoryEvery = DefaultMemoryEvery
	}
	return &Pump{cfg: cfg}
}

// Run blocks sampling until ctx is done.
func (p *Pump) Run(ctx context.Context) {
	batteryTick := time.NewTicker(p.cfg.BatteryEvery)
	defer batteryTick.Stop()
	memoryTick := time.NewTicker(p.cfg.MemoryEvery)
	defer memoryTick.Stop()

	p.sampleFast()
	p.sampleBattery()
	p.evaluate()
	for {
		select {
		case <-ctx.Done():
			return
		case <-memoryTick.C:
			p.sampleFast()
			p.evaluate()
		case <-batteryTick.C:
			p.sampleBattery()
			p.evaluate()
		}
	}
}

// sampleFast takes the cheap per-tick readings: memory and thermal.
func (p *Pump) sampleFast() {
	if p.cfg.Memory != nil && p.cfg.MemorySink != nil {
		p.cfg.MemorySink.Record(p.cfg.Memory.ResidentMB())
	}
	if p.cfg.ThermalSink != nil {
		if lvl := p.cfg.Thermal.Level(); lvl >= 0 {
			p.cfg.ThermalSink.Set(lvl)
		}
	}
}

func (p *Pump) sampleBattery() {
	if p.cfg.BatterySink == nil {
		return
	}
	if frac := p.cfg.Battery.Fraction(); frac != nil {
		p.cfg.BatterySink.Record(*frac, p.cfg.Clock.Now())
	}
}

// Signals assembles the policy inputs from the current sources.
func (p *Pump) Signals() policy.Signals {
	sig := policy.Signals{
		ThermalLevel:    p.cfg.Thermal.Level(),
		BatteryFraction: p.cfg.Battery.Fraction(),
		LowPowerMode:    p.cfg.Battery.LowPowerMode(),
	}
	if p.cfg.ThermalSink != nil {
		// Prefer the monitor: push-based platforms update it out of band.
		sig.ThermalLevel = p.cfg.ThermalSink.Level()
	}
	if p.cfg.Memory != nil {
		sig.MemoryHeadroomMB = p.cfg.Memory.AvailableMB()
	}
	return sig
}

func (p *Pump) evaluate() {
	if p.cfg.Policy == nil {
		return
	}
	lvl := p.cfg.Policy.Evaluate(p.Signals(), p.cfg.Clock.Now())
	p.cfg.Logger.Debug().Str("qos", lvl.String()).Msg("sampling pass")
}
