package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	registry     = prometheus.NewRegistry()

	captureLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "levellog",
			Subsystem: "capture",
			Name:      "lines_total",
			Help:      "Raw lines read from the transport by outcome.",
		},
		[]string{"outcome"},
	)
	captureTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "levellog",
			Subsystem: "capture",
			Name:      "read_timeouts_total",
			Help:      "Transport reads that returned without a complete line.",
		},
	)
	logRows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "levellog",
			Subsystem: "log",
			Name:      "rows_written_total",
			Help:      "Data rows appended to the capture log.",
		},
	)
	logWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "levellog",
			Subsystem: "log",
			Name:      "write_failures_total",
			Help:      "Failed appends to the capture log.",
		},
	)
	capturePhase = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "levellog",
			Subsystem: "capture",
			Name:      "phase",
			Help:      "Current ingestion loop phase (1 for the active phase).",
		},
		[]string{"phase"},
	)
)

var phases = []string{"starting", "running", "stopping", "closed"}

func RegisterMetrics() {
	registerOnce.Do(func() {
		registry.MustRegister(captureLines, captureTimeouts, logRows, logWriteFailures, capturePhase)
	})
}

// Registry returns the registry holding the capture metrics.
func Registry() *prometheus.Registry {
	RegisterMetrics()
	return registry
}

func RecordLine(outcome string) {
	RegisterMetrics()
	captureLines.WithLabelValues(outcome).Inc()
}

func RecordTimeout() {
	RegisterMetrics()
	captureTimeouts.Inc()
}

func RecordWrite(ok bool) {
	RegisterMetrics()
	if ok {
		logRows.Inc()
		return
	}
	logWriteFailures.Inc()
}

func SetPhase(phase string) {
	RegisterMetrics()
	for _, p := range phases {
		v := 0.0
		if p == phase {
			v = 1
		}
		capturePhase.WithLabelValues(p).Set(v)
	}
}

// WriteTextfile exports the registry in the node-exporter textfile format.
// The write is atomic (temp file + rename).
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry())
}
