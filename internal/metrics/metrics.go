// Package metrics records extraction run metrics.
//
// A CLI run is too short-lived to be scraped, so the Prometheus
// implementation keeps a private registry and exports it in the text
// exposition format for node_exporter's textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Status label values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Recorder receives extraction events.
type Recorder interface {
	ObserveEntry(status string, bytes int)
	ObserveScaffold(file, status string)
	ObserveRun(status string, durationSeconds float64)
}

// Noop implements Recorder without emitting anything.
type Noop struct{}

func (Noop) ObserveEntry(string, int)       {}
func (Noop) ObserveScaffold(string, string) {}
func (Noop) ObserveRun(string, float64)     {}

// Prom implements Recorder backed by Prometheus collectors.
type Prom struct {
	registry *prometheus.Registry
	entries  *prometheus.CounterVec
	bytes    prometheus.Counter
	scaffold *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewProm builds a Prom with its own registry.
func NewProm(namespace string) *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_total",
			Help:      "Archive entries processed by status",
		}, []string{"status"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_bytes_written_total",
			Help:      "Content bytes written for archive entries",
		}),
		scaffold: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scaffold_files_total",
			Help:      "Scaffold files generated by file and status",
		}, []string{"file", "status"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Extraction runs by status",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Extraction run duration",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	p.registry.MustRegister(p.entries, p.bytes, p.scaffold, p.runs, p.duration)
	return p
}

func (p *Prom) ObserveEntry(status string, bytes int) {
	p.entries.WithLabelValues(status).Inc()
	if status == StatusOK {
		p.bytes.Add(float64(bytes))
	}
}

func (p *Prom) ObserveScaffold(file, status string) {
	p.scaffold.WithLabelValues(file, status).Inc()
}

func (p *Prom) ObserveRun(status string, durationSeconds float64) {
	p.runs.WithLabelValues(status).Inc()
	p.duration.Observe(durationSeconds)
}

// Gatherer exposes the private registry.
func (p *Prom) Gatherer() prometheus.Gatherer {
	return p.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The write goes through a temp file and rename, so collectors never read a
// partial file.
func (p *Prom) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
