// Package telemetry aggregates tracker output and scheduler events into
// exportable snapshots. It owns no control logic and is advisory only:
// nothing here may fail a caller.
package telemetry

import (
	"sync"
	"time"

	"vedad/internal/tracker"
	"vedad/pkg/types"
)

// Config wires the read-only sources a Telemetry aggregates. QoSLevelFn
// is an optional projection of the policy state.
type Config struct {
	Latency    *tracker.LatencyTracker
	Memory     *tracker.ResourceMonitor
	Thermal    *tracker.ThermalMonitor
	Battery    *tracker.BatteryDrainTracker
	QoSLevelFn func() string
	Recorder   *Recorder
	Clock      func() time.Time
}

// Telemetry keeps best-effort counters alongside the trackers it reads.
type Telemetry struct {
	cfg Config

	mu             sync.Mutex
	queued         int
	running        int
	completed      uint64
	failed         uint64
	violations     map[types.ConstraintKind]uint64
	qosTransitions uint64
}

func New(cfg Config) *Telemetry {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Telemetry{cfg: cfg, violations: make(map[types.ConstraintKind]uint64)}
}

func (t *Telemetry) TaskQueued(id string, w types.WorkloadID, p types.Priority) {
	t.mu.Lock()
	t.queued++
	t.mu.Unlock()
	queueDepth.Inc()
	t.record("task_queued", map[string]any{"task": id, "workload": string(w), "priority": p.String()})
}

// TaskDropped accounts for a task that left the queue without running
// (cancellation or gate discard).
func (t *Telemetry) TaskDropped(id string) {
	t.mu.Lock()
	if t.queued > 0 {
		t.queued--
	}
	t.failed++
	t.mu.Unlock()
	queueDepth.Dec()
	t.record("task_dropped", map[string]any{"task": id})
}

func (t *Telemetry) TaskStarted(id string, w types.WorkloadID) {
	t.mu.Lock()
	if t.queued > 0 {
		t.queued--
	}
	t.running++
	t.mu.Unlock()
	queueDepth.Dec()
	t.record("task_start", map[string]any{"task": id, "workload": string(w)})
}

func (t *Telemetry) TaskFinished(id string, w types.WorkloadID, p types.Priority, dur time.Duration, err error) {
	t.mu.Lock()
	if t.running > 0 {
		t.running--
	}
	outcome := "ok"
	if err != nil {
		t.failed++
		outcome = "error"
	} else {
		t.completed++
	}
	t.mu.Unlock()

	tasksTotal.WithLabelValues(string(w), p.String(), outcome).Inc()
	taskDuration.WithLabelValues(string(w)).Observe(dur.Seconds())
	if t.cfg.Memory != nil {
		residentMemory.Set(t.cfg.Memory.CurrentMB())
	}
	fields := map[string]any{"task": id, "workload": string(w), "duration_ms": float64(dur) / float64(time.Millisecond), "outcome": outcome}
	if err != nil {
		fields["error"] = err.Error()
	}
	t.record("task_end", fields)
}

func (t *Telemetry) ViolationRaised(v types.BudgetViolation) {
	t.mu.Lock()
	t.violations[v.Constraint]++
	t.mu.Unlock()
	violationsTotal.WithLabelValues(string(v.Constraint)).Inc()
	t.record("violation", map[string]any{
		"constraint":   string(v.Constraint),
		"observed":     v.Observed,
		"budget":       v.Budget,
		"observe_only": v.ObserveOnly,
	})
}

func (t *Telemetry) QoSTransition(from, to string, ordinal int) {
	t.mu.Lock()
	t.qosTransitions++
	t.mu.Unlock()
	qosLevel.Set(float64(ordinal))
	t.record("qos_transition", map[string]any{"from": from, "to": to})
}

func (t *Telemetry) BaselineMeasured(b types.MeasuredBaseline) {
	fields := map[string]any{
		"p95_latency_ms": b.P95LatencyMs,
		"thermal_level":  b.ThermalLevel,
		"memory_mb":      b.MemoryMB,
		"sample_count":   b.SampleCount,
	}
	if b.DrainPer10Min != nil {
		fields["drain_per_10min"] = *b.DrainPer10Min
	}
	t.record("baseline_measured", fields)
}

// Counters returns the current task counters.
func (t *Telemetry) Counters() types.TaskCounters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return types.TaskCounters{Queued: t.queued, Running: t.running, Completed: t.completed, Failed: t.failed}
}

// Snapshot combines tracker readings and counters. Safe to call
// concurrently with the drain loop.
func (t *Telemetry) Snapshot() types.TelemetrySnapshot {
	snap := types.TelemetrySnapshot{
		ThermalLevel: tracker.LevelUnknown,
		TakenAt:      t.cfg.Clock(),
		Violations:   make(map[string]uint64),
	}
	if lt := t.cfg.Latency; lt != nil {
		snap.P50LatencyMs = lt.Percentile(50)
		snap.P95LatencyMs = lt.Percentile(95)
		snap.P99LatencyMs = lt.Percentile(99)
		snap.LatencySamples = lt.SampleCount()
	}
	if m := t.cfg.Memory; m != nil {
		snap.MemoryMB = m.CurrentMB()
		snap.PeakMemoryMB = m.PeakMB()
	}
	if th := t.cfg.Thermal; th != nil {
		snap.ThermalLevel = th.Level()
	}
	if bt := t.cfg.Battery; bt != nil {
		snap.DrainPer10Min = bt.DrainRatePer10Min()
	}
	if t.cfg.QoSLevelFn != nil {
		snap.QoSLevel = t.cfg.QoSLevelFn()
	}
	t.mu.Lock()
	snap.Tasks = types.TaskCounters{Queued: t.queued, Running: t.running, Completed: t.completed, Failed: t.failed}
	snap.QoSTransitions = t.qosTransitions
	for k, v := range t.violations {
		snap.Violations[string(k)] = v
	}
	t.mu.Unlock()
	return snap
}

func (t *Telemetry) record(name string, fields map[string]any) {
	if t.cfg.Recorder != nil {
		t.cfg.Recorder.Event(name, fields)
	}
}
