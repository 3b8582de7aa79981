package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vedad",
			Subsystem: "sched",
			Name:      "tasks_total",
			Help:      "Completed tasks by workload, priority and outcome",
		},
		[]string{"workload", "priority", "outcome"},
	)

	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vedad",
			Subsystem: "sched",
			Name:      "task_duration_seconds",
			Help:      "Wall-clock task duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"workload"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vedad",
			Subsystem: "sched",
			Name:      "queue_depth",
			Help:      "Tasks currently waiting in the priority queue",
		},
	)

	violationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vedad",
			Subsystem: "budget",
			Name:      "violations_total",
			Help:      "Budget violations by constraint kind",
		},
		[]string{"constraint"},
	)

	qosLevel = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vedad",
			Subsystem: "policy",
			Name:      "qos_level",
			Help:      "Current QoS level (0=full .. 3=paused)",
		},
	)

	residentMemory = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vedad",
			Subsystem: "runtime",
			Name:      "resident_memory_mb",
			Help:      "Last observed resident memory in MB",
		},
	)
)

func init() {
	prometheus.MustRegister(tasksTotal, taskDuration, queueDepth, violationsTotal, qosLevel, residentMemory)
}
