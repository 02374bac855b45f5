// Package metrics exposes job progress as Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"walletcheckin/pkg/logger"
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder collects per-step and per-batch job metrics on its own registry
type Recorder struct {
	Registry *prometheus.Registry

	steps          *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
	items          *prometheus.CounterVec
	points         prometheus.Histogram
	batches        prometheus.Counter
	lastCheckpoint prometheus.Gauge
}

// New creates a Recorder whose metric names start with namespace
func New(namespace string) *Recorder {
	if namespace == "" {
		namespace = "walletcheckin"
	}

	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Remote steps completed, by step and outcome.",
			},
			[]string{"step", "outcome"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of remote steps including retries.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"step"},
		),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_total",
				Help:      "Addresses processed, by outcome.",
			},
			[]string{"outcome"},
		),
		points: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reported_points",
				Help:      "Point totals reported by the backend after check-in.",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
			},
		),
		batches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Batches that fully settled.",
			},
		),
		lastCheckpoint: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "checkpoint_last_index",
				Help:      "Last processed index written to the checkpoint.",
			},
		),
	}

	r.Registry.MustRegister(
		r.steps,
		r.stepDuration,
		r.items,
		r.points,
		r.batches,
		r.lastCheckpoint,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return r
}

func outcome(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// RecordStep counts one login or check-in outcome and its latency
func (r *Recorder) RecordStep(step string, success bool, duration time.Duration) {
	r.steps.WithLabelValues(step, outcome(success)).Inc()
	r.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordItem counts one finished address
func (r *Recorder) RecordItem(success bool) {
	r.items.WithLabelValues(outcome(success)).Inc()
}

// RecordPoints observes a point total returned for address
func (r *Recorder) RecordPoints(address string, points float64) {
	r.points.Observe(points)
}

// RecordBatch counts a settled batch
func (r *Recorder) RecordBatch(succeeded, failed int) {
	r.batches.Inc()
}

// RecordCheckpoint publishes the last committed index
func (r *Recorder) RecordCheckpoint(lastIndex int) {
	r.lastCheckpoint.Set(float64(lastIndex))
}

// Handler returns an HTTP handler exposing the registered metrics
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func (r *Recorder) Serve(ctx context.Context, addr string, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logger.LogComponentStart(log, "metrics", map[string]interface{}{"addr": addr})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		logger.LogComponentStop(log, "metrics", "job finished")
		return err
	}
}
