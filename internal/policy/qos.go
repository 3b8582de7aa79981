// Package policy implements the adaptive QoS state machine. Degradation is
// immediate on a trigger's onset, one level at a time; recovery is
// graduated, one level per sustained cooldown window. The asymmetry keeps the runtime from
// oscillating back to full quality under renewed pressure.
package policy

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vedad/pkg/types"
)

// Level is a discrete QoS operating tier. Lower values mean higher quality;
// degradation steps the value up.
type Level int

const (
	Full Level = iota
	Reduced
	Minimal
	Paused
)

func (l Level) String() string {
	switch l {
	case Full:
		return "full"
	case Reduced:
		return "reduced"
	case Minimal:
		return "minimal"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Signals are the external readings one evaluation acts on. Nil pointers
// mean the platform does not expose that signal.
type Signals struct {
	ThermalLevel     int // -1 unknown
	BatteryFraction  *float64
	MemoryHeadroomMB *float64
	LowPowerMode     bool
}

// Thresholds control when the state machine degrades or pauses.
type Thresholds struct {
	// DegradeThermal is the thermal level at or above which QoS steps down.
	DegradeThermal int
	// PauseThermal is the thermal level at or above which QoS jumps
	// straight to Paused regardless of current level.
	PauseThermal int
	// LowBattery is the charge fraction below which QoS steps down.
	LowBattery float64
	// MinHeadroomMB is the memory headroom below which QoS steps down.
	MinHeadroomMB float64
	// PauseHeadroomMB is the memory headroom below which QoS jumps to
	// Paused.
	PauseHeadroomMB float64
}

// DefaultCooldown is the sustained-improvement window required before one
// recovery step.
const DefaultCooldown = 60 * time.Second

func DefaultThresholds() Thresholds {
	return Thresholds{
		DegradeThermal:  1,
		PauseThermal:    3,
		LowBattery:      0.2,
		MinHeadroomMB:   500,
		PauseHeadroomMB: 100,
	}
}

// DefaultParameters is the shipped per-level operating parameter table.
func DefaultParameters() map[Level]types.QoSParameters {
	return map[Level]types.QoSParameters{
		Full:    {SamplingRateHz: 30, ResolutionPx: 1080, MaxOutputTokens: 512},
		Reduced: {SamplingRateHz: 15, ResolutionPx: 720, MaxOutputTokens: 256},
		Minimal: {SamplingRateHz: 5, ResolutionPx: 480, MaxOutputTokens: 96},
		Paused:  {},
	}
}

// Config carries construction tunables; zero values take defaults.
type Config struct {
	Cooldown   time.Duration
	Thresholds Thresholds
	Parameters map[Level]types.QoSParameters
	Logger     zerolog.Logger
	// OnTransition is invoked after every level change, outside the
	// policy lock. Optional.
	OnTransition func(from, to Level)
}

// Policy owns the QoS level. It never cancels in-flight work; it only
// changes the parameters future submissions should use.
type Policy struct {
	mu         sync.Mutex
	level      Level
	cooldown   time.Duration
	thresholds Thresholds
	params     map[Level]types.QoSParameters
	// clearSince is when triggering conditions last started holding clear;
	// zero while any trigger is active.
	clearSince time.Time
	// degraded marks a degrade step not yet paid back by a recovery step.
	// While set, a sustained or flapping trigger holds the level instead of
	// ratcheting it further down.
	degraded     bool
	onTransition func(from, to Level)
	log          zerolog.Logger
}

func New(cfg Config) *Policy {
	p := &Policy{
		level:        Full,
		cooldown:     cfg.Cooldown,
		thresholds:   cfg.Thresholds,
		params:       cfg.Parameters,
		onTransition: cfg.OnTransition,
		log:          cfg.Logger,
	}
	if p.cooldown <= 0 {
		p.cooldown = DefaultCooldown
	}
	def := DefaultThresholds()
	if p.thresholds.DegradeThermal <= 0 {
		p.thresholds.DegradeThermal = def.DegradeThermal
	}
	if p.thresholds.PauseThermal <= 0 {
		p.thresholds.PauseThermal = def.PauseThermal
	}
	if p.thresholds.LowBattery <= 0 {
		p.thresholds.LowBattery = def.LowBattery
	}
	if p.thresholds.MinHeadroomMB <= 0 {
		p.thresholds.MinHeadroomMB = def.MinHeadroomMB
	}
	if p.thresholds.PauseHeadroomMB <= 0 {
		p.thresholds.PauseHeadroomMB = def.PauseHeadroomMB
	}
	if p.params == nil {
		p.params = DefaultParameters()
	}
	return p
}

// Evaluate feeds one set of readings through the state machine and returns
// the resulting level. A pause trigger jumps straight to Paused; any other
// trigger degrades exactly one step on its onset, and a sustained or
// re-triggered condition holds the level while zeroing the recovery timer;
// recovery improves one step only after the conditions have held clear for
// a full cooldown window.
func (p *Policy) Evaluate(sig Signals, now time.Time) Level {
	p.mu.Lock()
	from := p.level
	switch {
	case p.pauseTriggered(sig):
		p.clearSince = time.Time{}
		p.degraded = true
		p.level = Paused
	case p.degradeTriggered(sig):
		p.clearSince = time.Time{}
		if !p.degraded && p.level < Paused {
			p.level++
		}
		p.degraded = true
	default:
		if p.clearSince.IsZero() {
			p.clearSince = now
		} else if p.level > Full && now.Sub(p.clearSince) >= p.cooldown {
			p.level--
			p.degraded = false
			// The next recovery step needs a fresh window.
			p.clearSince = now
		}
	}
	to := p.level
	cb := p.onTransition
	p.mu.Unlock()

	if to != from {
		p.log.Info().Str("from", from.String()).Str("to", to.String()).Msg("qos transition")
		if cb != nil {
			cb(from, to)
		}
	}
	return to
}

func (p *Policy) pauseTriggered(sig Signals) bool {
	if sig.ThermalLevel >= p.thresholds.PauseThermal {
		return true
	}
	if sig.MemoryHeadroomMB != nil && *sig.MemoryHeadroomMB < p.thresholds.PauseHeadroomMB {
		return true
	}
	return false
}

func (p *Policy) degradeTriggered(sig Signals) bool {
	if sig.ThermalLevel >= p.thresholds.DegradeThermal {
		return true
	}
	if sig.BatteryFraction != nil && *sig.BatteryFraction < p.thresholds.LowBattery {
		return true
	}
	if sig.MemoryHeadroomMB != nil && *sig.MemoryHeadroomMB < p.thresholds.MinHeadroomMB {
		return true
	}
	return sig.LowPowerMode
}

// CurrentLevel returns the active QoS level.
func (p *Policy) CurrentLevel() Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// ShouldThrottle reports whether callers should submit degraded work.
func (p *Policy) ShouldThrottle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level > Full
}

// CurrentParameters returns the operating parameters bound to the active
// level. Callers read them before building their next unit of work.
func (p *Policy) CurrentParameters() types.QoSParameters {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params[p.level]
}
