// Package metrics exposes the Prometheus instrumentation surface: container
// concurrency, execution duration, image pull outcomes, and reaper activity.
// Every method is nil-safe, so a disabled Recorder can be wired everywhere
// without branching at the call site.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the collectors backing the sandbox's Prometheus surface.
type Recorder struct {
	containersActive prometheus.Gauge
	execDuration      *prometheus.HistogramVec
	executions        *prometheus.CounterVec
	imagePulls        *prometheus.CounterVec
	reapedFiles       prometheus.Counter
	reapSweeps        *prometheus.CounterVec

	registry *prometheus.Registry
}

// New builds a Recorder registered against a fresh registry. Callers that
// want metrics disabled should keep a nil *Recorder — every method below
// tolerates it.
func New() *Recorder {
	reg := prometheus.NewRegistry()

	return &Recorder{
		registry: reg,
		containersActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "sandboxd_containers_active",
			Help: "Number of sandbox containers currently running",
		}),
		execDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "sandboxd_execution_duration_seconds",
				Help: "Duration of code executions in seconds",
				Buckets: []float64{
					0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120,
				},
			},
			[]string{"language", "status"},
		),
		executions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandboxd_executions_total",
				Help: "Total number of code executions by language and status",
			},
			[]string{"language", "status"},
		),
		imagePulls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandboxd_image_pulls_total",
				Help: "Total number of container image pulls by image and outcome",
			},
			[]string{"image", "status"},
		),
		reapedFiles: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sandboxd_reaped_files_total",
			Help: "Total number of files removed by the cleanup reaper",
		}),
		reapSweeps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandboxd_reap_sweeps_total",
				Help: "Total number of reaper sweeps by outcome",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ContainerStarted increments the active-container gauge.
func (r *Recorder) ContainerStarted() {
	if r == nil {
		return
	}
	r.containersActive.Inc()
}

// ContainerFinished decrements the active-container gauge.
func (r *Recorder) ContainerFinished() {
	if r == nil {
		return
	}
	r.containersActive.Dec()
}

// ObserveExecution records one completed code execution.
func (r *Recorder) ObserveExecution(language, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.execDuration.WithLabelValues(language, status).Observe(duration.Seconds())
	r.executions.WithLabelValues(language, status).Inc()
}

// RecordImagePull records the outcome of an image-pull attempt.
func (r *Recorder) RecordImagePull(image string, err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.imagePulls.WithLabelValues(image, status).Inc()
}

// RecordReapSweep records one reaper sweep, with the number of files it
// removed and whether it failed.
func (r *Recorder) RecordReapSweep(filesRemoved int, err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.reapSweeps.WithLabelValues(status).Inc()
	if filesRemoved > 0 {
		r.reapedFiles.Add(float64(filesRemoved))
	}
}
