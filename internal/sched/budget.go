package sched

import "vedad/pkg/types"

// Profile is one row of the adaptive-profile table: multipliers applied to
// a MeasuredBaseline to resolve concrete budget ceilings.
type Profile struct {
	LatencyFactor  float64
	DrainFactor    float64
	ThermalCeiling int
}

// ProfileTable maps profile names to multipliers. The exact numbers are
// policy, not code: deployments override them through configuration.
type ProfileTable map[types.AdaptiveProfile]Profile

// DefaultProfiles returns the shipped multiplier table.
func DefaultProfiles() ProfileTable {
	return ProfileTable{
		types.ProfileConservative: {LatencyFactor: 2.0, DrainFactor: 0.6, ThermalCeiling: 1},
		types.ProfileBalanced:     {LatencyFactor: 1.5, DrainFactor: 1.0, ThermalCeiling: 2},
		types.ProfilePerformance:  {LatencyFactor: 1.1, DrainFactor: 1.5, ThermalCeiling: 3},
	}
}

// resolveAdaptive derives the budget's numeric ceilings from the baseline.
// Called at most once per budget; a nil baseline drain leaves the drain
// ceiling unconstrained rather than inventing one.
func resolveAdaptive(b types.ComputeBudget, prof Profile, base types.MeasuredBaseline) types.ComputeBudget {
	out := b.Clone()
	lat := base.P95LatencyMs * prof.LatencyFactor
	out.P95LatencyMs = &lat
	if base.DrainPer10Min != nil {
		drain := *base.DrainPer10Min * prof.DrainFactor
		out.BatteryDrainPer10Min = &drain
	}
	ceiling := prof.ThermalCeiling
	out.MaxThermalLevel = &ceiling
	out.Resolved = true
	return out
}

// mitigationFor returns the fixed per-constraint mitigation description.
func mitigationFor(kind types.ConstraintKind) string {
	switch kind {
	case types.ConstraintP95Latency:
		return "reduce inference frequency"
	case types.ConstraintBatteryDrain:
		return "lower sampling rate"
	case types.ConstraintThermal:
		return "pause noncritical workloads"
	case types.ConstraintMemory:
		return "observe only; model memory cannot be reduced"
	default:
		return ""
	}
}
