package types

import "time"

// WorkloadID identifies one of the supervised workload families.
type WorkloadID string

const (
	WorkloadText   WorkloadID = "text"
	WorkloadVision WorkloadID = "vision"
	WorkloadSpeech WorkloadID = "speech"
)

// Priority orders queued tasks. Higher values run first; within a tier,
// tasks run in enqueue order.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// AdaptiveProfile names a multiplier set applied to a MeasuredBaseline to
// resolve a concrete budget.
type AdaptiveProfile string

const (
	ProfileConservative AdaptiveProfile = "conservative"
	ProfileBalanced     AdaptiveProfile = "balanced"
	ProfilePerformance  AdaptiveProfile = "performance"
)

// ComputeBudget is a declarative resource contract. Nil fields are
// unconstrained. When AdaptiveProfile is set the numeric fields are derived
// from a MeasuredBaseline after warm-up, not supplied by the caller.
type ComputeBudget struct {
	// Ceiling on rolling p95 task latency in milliseconds.
	P95LatencyMs *float64 `json:"p95_latency_ms,omitempty"`
	// Ceiling on battery drain in percentage points per ten minutes.
	BatteryDrainPer10Min *float64 `json:"battery_drain_per_10min,omitempty"`
	// Ceiling on device thermal level (0=nominal .. 3=critical).
	MaxThermalLevel *int `json:"max_thermal_level,omitempty"`
	// Observe-only ceiling on resident memory in MB. Violations are
	// reported but never drive mitigation; the loaded model cannot shrink.
	MemoryCeilingMB *float64 `json:"memory_ceiling_mb,omitempty"`
	// Profile used to derive the numeric fields from a baseline.
	AdaptiveProfile AdaptiveProfile `json:"adaptive_profile,omitempty"`
	// Resolved reports whether adaptive derivation has already happened.
	// Set at most once per budget.
	Resolved bool `json:"resolved,omitempty"`
}

// Adaptive reports whether the budget's numeric fields are derived.
func (b ComputeBudget) Adaptive() bool { return b.AdaptiveProfile != "" }

// Clone returns a deep copy so callers cannot mutate shared pointer fields.
func (b ComputeBudget) Clone() ComputeBudget {
	out := b
	out.P95LatencyMs = cloneFloat(b.P95LatencyMs)
	out.BatteryDrainPer10Min = cloneFloat(b.BatteryDrainPer10Min)
	out.MemoryCeilingMB = cloneFloat(b.MemoryCeilingMB)
	if b.MaxThermalLevel != nil {
		v := *b.MaxThermalLevel
		out.MaxThermalLevel = &v
	}
	return out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// MeasuredBaseline is a point-in-time device performance snapshot taken
// once per scheduler lifetime, after warm-up. Immutable once produced.
type MeasuredBaseline struct {
	P95LatencyMs float64 `json:"p95_latency_ms"`
	// Nil on platforms without a battery API.
	DrainPer10Min *float64  `json:"drain_per_10min,omitempty"`
	ThermalLevel  int       `json:"thermal_level"`
	MemoryMB      float64   `json:"memory_mb"`
	SampleCount   int       `json:"sample_count"`
	MeasuredAt    time.Time `json:"measured_at"`
}

// ConstraintKind names the budget field a violation was raised against.
type ConstraintKind string

const (
	ConstraintP95Latency   ConstraintKind = "p95_latency"
	ConstraintBatteryDrain ConstraintKind = "battery_drain"
	ConstraintThermal      ConstraintKind = "thermal"
	ConstraintMemory       ConstraintKind = "memory"
)

// BudgetViolation is an event, not an error: a budget constraint was
// observed above its ceiling after a completed task.
type BudgetViolation struct {
	Constraint ConstraintKind `json:"constraint"`
	Observed   float64        `json:"observed"`
	Budget     float64        `json:"budget"`
	Mitigation string         `json:"mitigation"`
	Timestamp  time.Time      `json:"timestamp"`
	// MitigationApplied reports whether this evaluation cycle changed the
	// QoS level; the scheduler itself never cancels work.
	MitigationApplied bool `json:"mitigation_applied"`
	// ObserveOnly is true only for the memory constraint.
	ObserveOnly bool `json:"observe_only"`
}

// QoSParameters are the concrete operating parameters bound to a QoS level.
// Calling code reads them before building its next unit of work.
type QoSParameters struct {
	SamplingRateHz  int `json:"sampling_rate_hz"`
	ResolutionPx    int `json:"resolution_px"`
	MaxOutputTokens int `json:"max_output_tokens"`
}

// TaskResult is delivered on a scheduled task's result channel.
type TaskResult struct {
	TaskID   string
	Workload WorkloadID
	Duration time.Duration
	Err      error
}
