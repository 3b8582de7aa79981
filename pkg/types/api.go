package types

import "time"

// TaskCounters summarizes task lifecycle counts.
type TaskCounters struct {
	Queued    int    `json:"queued"`
	Running   int    `json:"running"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
}

// TelemetrySnapshot is an on-demand projection of tracker and scheduler
// state. It is advisory: producing it never blocks the drain loop.
type TelemetrySnapshot struct {
	P50LatencyMs *float64 `json:"p50_latency_ms,omitempty"`
	P95LatencyMs *float64 `json:"p95_latency_ms,omitempty"`
	P99LatencyMs *float64 `json:"p99_latency_ms,omitempty"`
	// Latency samples recorded since start (not window size).
	LatencySamples uint64   `json:"latency_samples"`
	MemoryMB       float64  `json:"memory_mb"`
	PeakMemoryMB   float64  `json:"peak_memory_mb"`
	DrainPer10Min  *float64 `json:"drain_per_10min,omitempty"`
	// -1 when the platform has not reported a thermal level.
	ThermalLevel   int               `json:"thermal_level"`
	QoSLevel       string            `json:"qos_level"`
	QoSTransitions uint64            `json:"qos_transitions"`
	Tasks          TaskCounters      `json:"tasks"`
	Violations     map[string]uint64 `json:"violations"`
	TakenAt        time.Time         `json:"taken_at"`
}

// QueueStatus is returned by GET /status.
type QueueStatus struct {
	Queued     int            `json:"queued"`
	Running    int            `json:"running"`
	Completed  uint64         `json:"completed"`
	Failed     uint64         `json:"failed"`
	ByPriority map[string]int `json:"by_priority"`
	// WarmedUp reports whether the warm-up threshold has been reached and
	// budget enforcement is active.
	WarmedUp       bool  `json:"warmed_up"`
	UptimeSeconds  int64 `json:"uptime_seconds"`
	ServerTimeUnix int64 `json:"server_time_unix"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
