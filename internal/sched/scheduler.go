// Package sched owns the single inference slot: a priority queue drained
// one task at a time, the compute-budget contract, warm-up baseline
// measurement, and budget-violation detection.
package sched

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vedad/internal/engine"
	"vedad/internal/platform"
	"vedad/internal/policy"
	"vedad/internal/telemetry"
	"vedad/internal/tracker"
	"vedad/pkg/types"
)

// DefaultWarmupSamples is the completed-task count below which budget
// enforcement and adaptive resolution are suppressed. A freshly started
// runtime must not report violations against noise.
const DefaultWarmupSamples = 20

// Config carries all construction tunables. Nil components take inert or
// default implementations.
type Config struct {
	Latency   *tracker.LatencyTracker
	Memory    *tracker.ResourceMonitor
	Thermal   *tracker.ThermalMonitor
	Battery   *tracker.BatteryDrainTracker
	Policy    *policy.Policy
	Telemetry *telemetry.Telemetry
	Engine    engine.Engine
	Clock     platform.Clock
	// MemorySource feeds a resident reading into Memory after each task.
	MemorySource platform.MemorySource
	// SignalsFn overrides how policy inputs are assembled; by default they
	// come from the trackers.
	SignalsFn      func() policy.Signals
	WarmupSamples  int
	Profiles       ProfileTable
	Logger         zerolog.Logger
}

// Scheduler is a long-lived, explicitly owned object: construct once per
// process and pass by reference.
type Scheduler struct {
	mu        sync.Mutex
	queue     taskQueue
	byID      map[string]*task
	seq       uint64
	wake      chan struct{}
	budget    types.ComputeBudget
	baseline  *types.MeasuredBaseline
	listeners []func(types.BudgetViolation)
	defaults  map[types.WorkloadID]types.Priority
	runningID string
	closed    bool
	startTime time.Time

	lat       *tracker.LatencyTracker
	mem       *tracker.ResourceMonitor
	therm     *tracker.ThermalMonitor
	batt      *tracker.BatteryDrainTracker
	pol       *policy.Policy
	telem     *telemetry.Telemetry
	eng       engine.Engine
	clock     platform.Clock
	memSrc    platform.MemorySource
	signalsFn func() policy.Signals
	warmupN   uint64
	profiles  ProfileTable
	log       zerolog.Logger
}

func New(cfg Config) *Scheduler {
	s := &Scheduler{
		byID:      make(map[string]*task),
		wake:      make(chan struct{}, 1),
		defaults:  make(map[types.WorkloadID]types.Priority),
		lat:       cfg.Latency,
		mem:       cfg.Memory,
		therm:     cfg.Thermal,
		batt:      cfg.Battery,
		pol:       cfg.Policy,
		telem:     cfg.Telemetry,
		eng:       cfg.Engine,
		clock:     cfg.Clock,
		memSrc:    cfg.MemorySource,
		signalsFn: cfg.SignalsFn,
		profiles:  cfg.Profiles,
		log:       cfg.Logger,
	}
	if s.lat == nil {
		s.lat = tracker.NewLatencyTracker()
	}
	if s.mem == nil {
		s.mem = tracker.NewResourceMonitor()
	}
	if s.therm == nil {
		s.therm = tracker.NewThermalMonitor()
	}
	if s.batt == nil {
		s.batt = tracker.NewBatteryDrainTracker(false)
	}
	if s.eng == nil {
		s.eng = engine.NewLocal()
	}
	if s.clock == nil {
		s.clock = platform.SystemClock{}
	}
	if s.profiles == nil {
		s.profiles = DefaultProfiles()
	}
	if cfg.WarmupSamples > 0 {
		s.warmupN = uint64(cfg.WarmupSamples)
	} else {
		s.warmupN = DefaultWarmupSamples
	}
	s.startTime = s.clock.Now()
	return s
}

// SetComputeBudget replaces the active budget. An invalid budget is
// rejected and the prior budget stays active. An adaptive budget submitted
// after warm-up resolves immediately against the existing baseline.
func (s *Scheduler) SetComputeBudget(b types.ComputeBudget) error {
	if err := validateBudget(b, s.profiles); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	nb := b.Clone()
	nb.Resolved = false
	if nb.Adaptive() && s.baseline != nil {
		nb = resolveAdaptive(nb, s.profiles[nb.AdaptiveProfile], *s.baseline)
	}
	s.budget = nb
	return nil
}

func validateBudget(b types.ComputeBudget, profiles ProfileTable) error {
	if b.P95LatencyMs != nil && *b.P95LatencyMs <= 0 {
		return invalidBudgetError{msg: "p95 latency ceiling must be positive"}
	}
	if b.BatteryDrainPer10Min != nil && *b.BatteryDrainPer10Min < 0 {
		return invalidBudgetError{msg: "drain ceiling must not be negative"}
	}
	if b.MaxThermalLevel != nil && (*b.MaxThermalLevel < 0 || *b.MaxThermalLevel > 3) {
		return invalidBudgetError{msg: "thermal ceiling out of range"}
	}
	if b.MemoryCeilingMB != nil && *b.MemoryCeilingMB <= 0 {
		return invalidBudgetError{msg: "memory ceiling must be positive"}
	}
	if b.Adaptive() {
		if _, ok := profiles[b.AdaptiveProfile]; !ok {
			return invalidBudgetError{msg: "unknown adaptive profile " + string(b.AdaptiveProfile)}
		}
	}
	return nil
}

// GetComputeBudget returns the budget as currently known, possibly still
// adaptive and unresolved.
func (s *Scheduler) GetComputeBudget() types.ComputeBudget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget.Clone()
}

// GetMeasuredBaseline returns the warm-up baseline, nil before warm-up
// completes.
func (s *Scheduler) GetMeasuredBaseline() *types.MeasuredBaseline {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseline == nil {
		return nil
	}
	b := *s.baseline
	return &b
}

// SetRuntimePolicy installs or replaces the QoS policy consulted after
// each budget evaluation. A nil policy detaches QoS coupling; violations
// are still reported.
func (s *Scheduler) SetRuntimePolicy(p *policy.Policy) {
	s.mu.Lock()
	s.pol = p
	s.mu.Unlock()
}

// OnViolation registers a violation listener. With no listener registered
// violations are dropped, not buffered.
func (s *Scheduler) OnViolation(fn func(types.BudgetViolation)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// RegisterWorkload records the default priority consulted when a
// submission does not carry one.
func (s *Scheduler) RegisterWorkload(w types.WorkloadID, p types.Priority) {
	s.mu.Lock()
	s.defaults[w] = p
	s.mu.Unlock()
}

// DefaultPriority returns the registered priority for w, PriorityNormal
// when unregistered.
func (s *Scheduler) DefaultPriority(w types.WorkloadID) types.Priority {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.defaults[w]; ok {
		return p
	}
	return types.PriorityNormal
}

// Schedule enqueues one unit of work and returns its id and result
// channel. The channel is buffered; the result is delivered exactly once.
func (s *Scheduler) Schedule(w types.WorkloadID, p types.Priority, fn func(context.Context) error) (string, <-chan types.TaskResult, error) {
	if fn == nil {
		return "", nil, invalidTaskError{msg: "nil work"}
	}
	t := &task{
		id:       uuid.NewString(),
		workload: w,
		priority: p,
		enqueued: s.clock.Now(),
		fn:       fn,
		result:   make(chan types.TaskResult, 1),
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", nil, schedClosedError{}
	}
	s.seq++
	t.seq = s.seq
	heap.Push(&s.queue, t)
	s.byID[t.id] = t
	s.mu.Unlock()

	if s.telem != nil {
		s.telem.TaskQueued(t.id, w, p)
	}
	s.kick()
	return t.id, t.result, nil
}

// ScheduleDefault enqueues work under the workload's registered priority.
func (s *Scheduler) ScheduleDefault(w types.WorkloadID, fn func(context.Context) error) (string, <-chan types.TaskResult, error) {
	return s.Schedule(w, s.DefaultPriority(w), fn)
}

// Cancel removes a still-queued task deterministically, or delegates to
// the engine's own cancellation for an in-flight one (best-effort, not
// retried).
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	t, ok := s.byID[id]
	if ok && t.index >= 0 {
		heap.Remove(&s.queue, t.index)
		delete(s.byID, id)
		s.mu.Unlock()
		t.result <- types.TaskResult{TaskID: id, Workload: t.workload, Err: cancelledError{id: id}}
		if s.telem != nil {
			s.telem.TaskDropped(id)
		}
		return nil
	}
	running := s.runningID == id
	s.mu.Unlock()
	if running {
		s.eng.Cancel(id)
		return nil
	}
	return taskNotFoundError{id: id}
}

// pending reports whether id is still waiting in the queue.
func (s *Scheduler) pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	return ok && t.index >= 0
}

// QueueStatus returns a read-only projection of the queue.
func (s *Scheduler) QueueStatus() types.QueueStatus {
	now := s.clock.Now()
	warmed := s.lat.SampleCount() >= s.warmupN
	var counters types.TaskCounters
	if s.telem != nil {
		counters = s.telem.Counters()
	}
	s.mu.Lock()
	st := types.QueueStatus{
		Queued:         len(s.queue),
		Completed:      counters.Completed,
		Failed:         counters.Failed,
		ByPriority:     make(map[string]int, 3),
		WarmedUp:       warmed,
		UptimeSeconds:  int64(now.Sub(s.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
	if s.runningID != "" {
		st.Running = 1
	}
	for _, t := range s.queue {
		st.ByPriority[t.priority.String()]++
	}
	s.mu.Unlock()
	return st
}

// Close stops accepting work and fails every queued task.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	dropped := make([]*task, 0, len(s.queue))
	for len(s.queue) > 0 {
		t := heap.Pop(&s.queue).(*task)
		delete(s.byID, t.id)
		dropped = append(dropped, t)
	}
	s.mu.Unlock()
	for _, t := range dropped {
		t.result <- types.TaskResult{TaskID: t.id, Workload: t.workload, Err: cancelledError{id: t.id}}
		if s.telem != nil {
			s.telem.TaskDropped(t.id)
		}
	}
	s.kick()
}

// Run drains the queue until ctx is done. One logical worker: a task runs
// to completion before the next is popped, matching the single loaded
// model occupying the single compute slot.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		t := s.next()
		if t == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.wake:
				continue
			}
		}
		if ctx.Err() != nil {
			// Put the popped task's result on record before leaving.
			s.mu.Lock()
			s.runningID = ""
			s.mu.Unlock()
			t.result <- types.TaskResult{TaskID: t.id, Workload: t.workload, Err: ctx.Err()}
			return ctx.Err()
		}
		s.execute(ctx, t)
	}
}

func (s *Scheduler) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// next pops the highest-priority oldest-enqueued task, nil when idle.
func (s *Scheduler) next() *task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	t := heap.Pop(&s.queue).(*task)
	delete(s.byID, t.id)
	s.runningID = t.id
	return t
}

// execute runs one task through the engine, records its latency, and runs
// constraint evaluation.
func (s *Scheduler) execute(ctx context.Context, t *task) {
	if s.telem != nil {
		s.telem.TaskStarted(t.id, t.workload)
	}
	start := s.clock.Now()
	err := s.eng.Exec(ctx, t.id, t.fn)
	end := s.clock.Now()
	dur := end.Sub(start)

	s.lat.Record(float64(dur) / float64(time.Millisecond))
	if s.memSrc != nil {
		s.mem.Record(s.memSrc.ResidentMB())
	}
	if s.telem != nil {
		s.telem.TaskFinished(t.id, t.workload, t.priority, dur, err)
	}

	s.mu.Lock()
	s.runningID = ""
	s.mu.Unlock()
	// Engine failure belongs to the task's caller, not to the budget.
	t.result <- types.TaskResult{TaskID: t.id, Workload: t.workload, Duration: dur, Err: err}

	s.evaluate(end)
}

// evaluate runs post-task budget evaluation. During warm-up nothing is
// checked; the completion that reaches the threshold produces the
// once-per-lifetime baseline and resolves an adaptive budget, and
// enforcement starts with the following task.
func (s *Scheduler) evaluate(now time.Time) {
	count := s.lat.SampleCount()
	if count < s.warmupN {
		return
	}
	if count == s.warmupN {
		s.measureBaseline(now)
		return
	}

	b := s.GetComputeBudget()
	if b.Adaptive() && !b.Resolved {
		// Budget was swapped to adaptive after warm-up; resolve now.
		s.mu.Lock()
		if s.baseline != nil {
			s.budget = resolveAdaptive(s.budget, s.profiles[s.budget.AdaptiveProfile], *s.baseline)
			b = s.budget.Clone()
		}
		s.mu.Unlock()
	}

	violations := s.checkConstraints(b, now)
	if len(violations) == 0 {
		return
	}
	levelChanged := s.evaluatePolicy(now)
	s.mu.Lock()
	listeners := append(([]func(types.BudgetViolation))(nil), s.listeners...)
	s.mu.Unlock()
	for i := range violations {
		if levelChanged && !violations[i].ObserveOnly {
			violations[i].MitigationApplied = true
		}
		if s.telem != nil {
			s.telem.ViolationRaised(violations[i])
		}
		s.log.Warn().
			Str("constraint", string(violations[i].Constraint)).
			Float64("observed", violations[i].Observed).
			Float64("budget", violations[i].Budget).
			Msg("budget violation")
		for _, fn := range listeners {
			fn(violations[i])
		}
	}
}

func (s *Scheduler) checkConstraints(b types.ComputeBudget, now time.Time) []types.BudgetViolation {
	var out []types.BudgetViolation
	add := func(kind types.ConstraintKind, observed, budget float64, observeOnly bool) {
		out = append(out, types.BudgetViolation{
			Constraint:  kind,
			Observed:    observed,
			Budget:      budget,
			Mitigation:  mitigationFor(kind),
			Timestamp:   now,
			ObserveOnly: observeOnly,
		})
	}
	if b.P95LatencyMs != nil {
		if p95 := s.lat.Percentile(95); p95 != nil && *p95 > *b.P95LatencyMs {
			add(types.ConstraintP95Latency, *p95, *b.P95LatencyMs, false)
		}
	}
	if b.BatteryDrainPer10Min != nil {
		if drain := s.batt.DrainRatePer10Min(); drain != nil && *drain > *b.BatteryDrainPer10Min {
			add(types.ConstraintBatteryDrain, *drain, *b.BatteryDrainPer10Min, false)
		}
	}
	if b.MaxThermalLevel != nil {
		if lvl := s.therm.Level(); lvl > *b.MaxThermalLevel {
			add(types.ConstraintThermal, float64(lvl), float64(*b.MaxThermalLevel), false)
		}
	}
	if b.MemoryCeilingMB != nil {
		if cur := s.mem.CurrentMB(); cur > *b.MemoryCeilingMB {
			add(types.ConstraintMemory, cur, *b.MemoryCeilingMB, true)
		}
	}
	return out
}

// evaluatePolicy feeds current readings into the QoS policy and reports
// whether the level changed.
func (s *Scheduler) evaluatePolicy(now time.Time) bool {
	s.mu.Lock()
	pol := s.pol
	s.mu.Unlock()
	if pol == nil {
		return false
	}
	before := pol.CurrentLevel()
	after := pol.Evaluate(s.signals(), now)
	return after != before
}

func (s *Scheduler) signals() policy.Signals {
	if s.signalsFn != nil {
		return s.signalsFn()
	}
	sig := policy.Signals{
		ThermalLevel:    s.therm.Level(),
		BatteryFraction: s.batt.LatestLevel(),
	}
	if s.memSrc != nil {
		sig.MemoryHeadroomMB = s.memSrc.AvailableMB()
	}
	return sig
}

// measureBaseline produces the once-per-lifetime performance snapshot and
// resolves an adaptive budget in place.
func (s *Scheduler) measureBaseline(now time.Time) {
	p95 := s.lat.Percentile(95)
	if p95 == nil {
		return
	}
	base := types.MeasuredBaseline{
		P95LatencyMs:  *p95,
		DrainPer10Min: s.batt.DrainRatePer10Min(),
		ThermalLevel:  s.therm.Level(),
		MemoryMB:      s.mem.CurrentMB(),
		SampleCount:   int(s.lat.SampleCount()),
		MeasuredAt:    now,
	}
	s.mu.Lock()
	if s.baseline != nil {
		s.mu.Unlock()
		return
	}
	s.baseline = &base
	if s.budget.Adaptive() && !s.budget.Resolved {
		s.budget = resolveAdaptive(s.budget, s.profiles[s.budget.AdaptiveProfile], base)
	}
	s.mu.Unlock()

	s.log.Info().
		Float64("p95_ms", base.P95LatencyMs).
		Int("thermal", base.ThermalLevel).
		Float64("memory_mb", base.MemoryMB).
		Msg("baseline measured")
	if s.telem != nil {
		s.telem.BaselineMeasured(base)
	}
}
