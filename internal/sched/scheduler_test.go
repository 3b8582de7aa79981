package sched

import (
	"context"
	"sync"
	"testing"
	"time"

	"vedad/internal/policy"
	"vedad/internal/tracker"
	"vedad/pkg/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeMem struct {
	resident float64
	headroom *float64
}

func (m *fakeMem) ResidentMB() float64 { return m.resident }
func (m *fakeMem) AvailableMB() *float64 { return m.headroom }

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

// runTask schedules one unit of work taking taskDur of fake wall time and
// drains it synchronously.
func runTask(t *testing.T, s *Scheduler, clk *fakeClock, taskDur time.Duration) {
	t.Helper()
	_, res, err := s.Schedule(types.WorkloadText, types.PriorityNormal, func(context.Context) error {
		clk.advance(taskDur)
		return nil
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	tk := s.next()
	if tk == nil {
		t.Fatalf("expected a queued task")
	}
	s.execute(context.Background(), tk)
	select {
	case r := <-res:
		if r.Err != nil {
			t.Fatalf("task failed: %v", r.Err)
		}
	default:
		t.Fatalf("expected a delivered result")
	}
}

func TestWarmupSuppressesViolations(t *testing.T) {
	clk := newFakeClock()
	s := New(Config{Clock: clk})
	if err := s.SetComputeBudget(types.ComputeBudget{P95LatencyMs: fptr(100)}); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	var got []types.BudgetViolation
	s.OnViolation(func(v types.BudgetViolation) { got = append(got, v) })

	// 20 tasks of 200ms each clearly exceed the 100ms ceiling, but warm-up
	// must suppress every violation.
	for i := 0; i < 20; i++ {
		runTask(t, s, clk, 200*time.Millisecond)
	}
	if len(got) != 0 {
		t.Fatalf("expected no violations during warm-up, got %d", len(got))
	}
	base := s.GetMeasuredBaseline()
	if base == nil {
		t.Fatalf("expected baseline after warm-up threshold")
	}
	if base.P95LatencyMs != 200 || base.SampleCount != 20 {
		t.Fatalf("unexpected baseline: %+v", base)
	}
}

func TestFixedBudgetViolationAfterWarmup(t *testing.T) {
	clk := newFakeClock()
	s := New(Config{Clock: clk})
	if err := s.SetComputeBudget(types.ComputeBudget{P95LatencyMs: fptr(100)}); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	var got []types.BudgetViolation
	s.OnViolation(func(v types.BudgetViolation) { got = append(got, v) })

	for i := 0; i < 20; i++ {
		runTask(t, s, clk, 200*time.Millisecond)
	}
	// The 21st completion raises exactly one violation.
	runTask(t, s, clk, 200*time.Millisecond)
	if len(got) != 1 {
		t.Fatalf("expected exactly one violation, got %d", len(got))
	}
	v := got[0]
	if v.Constraint != types.ConstraintP95Latency {
		t.Fatalf("unexpected constraint: %s", v.Constraint)
	}
	if v.Observed != 200 || v.Budget != 100 {
		t.Fatalf("unexpected values: observed=%v budget=%v", v.Observed, v.Budget)
	}
	if v.ObserveOnly {
		t.Fatalf("latency violations must not be observe-only")
	}
	if v.Mitigation == "" {
		t.Fatalf("expected a mitigation description")
	}
}

func TestAdaptiveBudgetResolution(t *testing.T) {
	clk := newFakeClock()
	s := New(Config{Clock: clk})
	if err := s.SetComputeBudget(types.ComputeBudget{AdaptiveProfile: types.ProfileConservative}); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	if b := s.GetComputeBudget(); b.Resolved || b.P95LatencyMs != nil {
		t.Fatalf("adaptive budget must stay unresolved before warm-up: %+v", b)
	}
	for i := 0; i < 20; i++ {
		runTask(t, s, clk, 100*time.Millisecond)
	}
	b := s.GetComputeBudget()
	if !b.Resolved {
		t.Fatalf("expected resolved budget after warm-up")
	}
	// conservative: 2.0x measured p95 of 100ms.
	if b.P95LatencyMs == nil || *b.P95LatencyMs != 200 {
		t.Fatalf("unexpected resolved p95: %v", b.P95LatencyMs)
	}
	if b.MaxThermalLevel == nil || *b.MaxThermalLevel != 1 {
		t.Fatalf("unexpected thermal ceiling: %v", b.MaxThermalLevel)
	}
	// No battery on this host: drain ceiling stays unconstrained.
	if b.BatteryDrainPer10Min != nil {
		t.Fatalf("expected nil drain ceiling without baseline drain")
	}
}

func TestMemoryViolationIsObserveOnly(t *testing.T) {
	clk := newFakeClock()
	mem := &fakeMem{resident: 900}
	s := New(Config{Clock: clk, MemorySource: mem})
	if err := s.SetComputeBudget(types.ComputeBudget{MemoryCeilingMB: fptr(512)}); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	var got []types.BudgetViolation
	s.OnViolation(func(v types.BudgetViolation) { got = append(got, v) })
	for i := 0; i < 21; i++ {
		runTask(t, s, clk, 10*time.Millisecond)
	}
	if len(got) != 1 {
		t.Fatalf("expected one memory violation, got %d", len(got))
	}
	if got[0].Constraint != types.ConstraintMemory || !got[0].ObserveOnly {
		t.Fatalf("memory violation must be observe-only: %+v", got[0])
	}
	if got[0].MitigationApplied {
		t.Fatalf("observe-only violation must never report applied mitigation")
	}
}

func TestThermalViolationDrivesPolicy(t *testing.T) {
	clk := newFakeClock()
	therm := tracker.NewThermalMonitor()
	pol := policy.New(policy.Config{})
	s := New(Config{Clock: clk, Thermal: therm, Policy: pol})
	if err := s.SetComputeBudget(types.ComputeBudget{MaxThermalLevel: iptr(2)}); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	var got []types.BudgetViolation
	s.OnViolation(func(v types.BudgetViolation) { got = append(got, v) })

	for i := 0; i < 20; i++ {
		runTask(t, s, clk, 10*time.Millisecond)
	}
	therm.Set(3)
	runTask(t, s, clk, 10*time.Millisecond)
	if len(got) != 1 || got[0].Constraint != types.ConstraintThermal {
		t.Fatalf("expected one thermal violation, got %+v", got)
	}
	if pol.CurrentLevel() != policy.Paused {
		t.Fatalf("critical thermal must pause the policy, got %v", pol.CurrentLevel())
	}
	if !got[0].MitigationApplied {
		t.Fatalf("policy degradation must mark mitigation applied")
	}
}

func TestSetRuntimePolicyAfterConstruction(t *testing.T) {
	clk := newFakeClock()
	therm := tracker.NewThermalMonitor()
	s := New(Config{Clock: clk, Thermal: therm})
	if err := s.SetComputeBudget(types.ComputeBudget{MaxThermalLevel: iptr(2)}); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	for i := 0; i < 20; i++ {
		runTask(t, s, clk, 10*time.Millisecond)
	}
	// Policy attached after construction and warm-up must still be driven
	// by violation evaluation.
	pol := policy.New(policy.Config{})
	s.SetRuntimePolicy(pol)
	therm.Set(3)
	runTask(t, s, clk, 10*time.Millisecond)
	if pol.CurrentLevel() != policy.Paused {
		t.Fatalf("expected installed policy to pause, got %v", pol.CurrentLevel())
	}
}

func TestPriorityThenFIFOOrder(t *testing.T) {
	s := New(Config{Clock: newFakeClock()})
	nop := func(context.Context) error { return nil }
	low, _, _ := s.Schedule(types.WorkloadText, types.PriorityLow, nop)
	high1, _, _ := s.Schedule(types.WorkloadVision, types.PriorityHigh, nop)
	norm, _, _ := s.Schedule(types.WorkloadSpeech, types.PriorityNormal, nop)
	high2, _, _ := s.Schedule(types.WorkloadVision, types.PriorityHigh, nop)

	want := []string{high1, high2, norm, low}
	for i, id := range want {
		tk := s.next()
		if tk == nil || tk.id != id {
			t.Fatalf("pop %d: expected %s, got %+v", i, id, tk)
		}
	}
}

func TestCancelQueuedTask(t *testing.T) {
	s := New(Config{Clock: newFakeClock()})
	nop := func(context.Context) error { return nil }
	id1, res1, _ := s.Schedule(types.WorkloadText, types.PriorityNormal, nop)
	id2, _, _ := s.Schedule(types.WorkloadText, types.PriorityNormal, nop)

	if err := s.Cancel(id1); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	select {
	case r := <-res1:
		if !IsCancelled(r.Err) {
			t.Fatalf("expected cancelled result, got %v", r.Err)
		}
	default:
		t.Fatalf("expected cancellation delivered on result channel")
	}
	if tk := s.next(); tk == nil || tk.id != id2 {
		t.Fatalf("expected remaining task %s, got %+v", id2, tk)
	}
	if err := s.Cancel("unknown"); !IsTaskNotFound(err) {
		t.Fatalf("expected task-not-found, got %v", err)
	}
}

func TestBudgetValidation(t *testing.T) {
	s := New(Config{Clock: newFakeClock()})
	if err := s.SetComputeBudget(types.ComputeBudget{P95LatencyMs: fptr(100)}); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	if err := s.SetComputeBudget(types.ComputeBudget{P95LatencyMs: fptr(-5)}); !IsInvalidBudget(err) {
		t.Fatalf("expected invalid budget, got %v", err)
	}
	if err := s.SetComputeBudget(types.ComputeBudget{AdaptiveProfile: "turbo"}); !IsInvalidBudget(err) {
		t.Fatalf("expected unknown profile rejection, got %v", err)
	}
	// Prior budget unchanged after rejections.
	if b := s.GetComputeBudget(); b.P95LatencyMs == nil || *b.P95LatencyMs != 100 {
		t.Fatalf("prior budget must stay active: %+v", b)
	}
}

func TestRunLoopDrainsQueue(t *testing.T) {
	s := New(Config{Clock: newFakeClock()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	var results []<-chan types.TaskResult
	for i := 0; i < 3; i++ {
		_, res, err := s.Schedule(types.WorkloadText, types.PriorityNormal, func(context.Context) error { return nil })
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}
		results = append(results, res)
	}
	for i, res := range results {
		select {
		case r := <-res:
			if r.Err != nil {
				t.Fatalf("task %d failed: %v", i, r.Err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("task %d never completed", i)
		}
	}
}

func TestScheduleAfterCloseRejected(t *testing.T) {
	s := New(Config{Clock: newFakeClock()})
	_, res, _ := s.Schedule(types.WorkloadText, types.PriorityNormal, func(context.Context) error { return nil })
	s.Close()
	select {
	case r := <-res:
		if !IsCancelled(r.Err) {
			t.Fatalf("expected queued task cancelled on close, got %v", r.Err)
		}
	default:
		t.Fatalf("expected close to fail queued tasks")
	}
	if _, _, err := s.Schedule(types.WorkloadText, types.PriorityNormal, func(context.Context) error { return nil }); !IsClosed(err) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestRegisteredWorkloadPriority(t *testing.T) {
	s := New(Config{Clock: newFakeClock()})
	s.RegisterWorkload(types.WorkloadVision, types.PriorityHigh)
	if p := s.DefaultPriority(types.WorkloadVision); p != types.PriorityHigh {
		t.Fatalf("expected registered high priority, got %v", p)
	}
	if p := s.DefaultPriority(types.WorkloadSpeech); p != types.PriorityNormal {
		t.Fatalf("expected normal default, got %v", p)
	}
	nop := func(context.Context) error { return nil }
	if _, _, err := s.ScheduleDefault(types.WorkloadVision, nop); err != nil {
		t.Fatalf("schedule default: %v", err)
	}
	if tk := s.next(); tk == nil || tk.priority != types.PriorityHigh {
		t.Fatalf("expected registered priority on submission, got %+v", tk)
	}
}
