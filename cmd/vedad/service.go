package main

import (
	"vedad/internal/httpapi"
	"vedad/internal/policy"
	"vedad/internal/sched"
	"vedad/internal/telemetry"
	"vedad/pkg/types"
)

// service adapts the supervisor components to the HTTP layer.
type service struct {
	sched *sched.Scheduler
	pol   *policy.Policy
	telem *telemetry.Telemetry
}

func (s *service) QueueStatus() types.QueueStatus { return s.sched.QueueStatus() }

func (s *service) Snapshot() types.TelemetrySnapshot { return s.telem.Snapshot() }

func (s *service) Budget() types.ComputeBudget { return s.sched.GetComputeBudget() }

func (s *service) SetBudget(b types.ComputeBudget) error { return s.sched.SetComputeBudget(b) }

func (s *service) Baseline() *types.MeasuredBaseline { return s.sched.GetMeasuredBaseline() }

func (s *service) QoS() httpapi.QoSView {
	return httpapi.QoSView{
		Level:      s.pol.CurrentLevel().String(),
		Throttled:  s.pol.ShouldThrottle(),
		Parameters: s.pol.CurrentParameters(),
	}
}

func (s *service) Ready() bool { return true }
