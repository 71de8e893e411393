package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// Metrics receives fuzzing progress counters.
type Metrics interface {
	ObserveExecution(purpose m.Purpose, outcome m.Outcome, elapsed time.Duration)
	SetCoverage(edges int, score float64)
	ObserveDistance(distance float64)
	SetCorpusSize(size int)
	IncCrashes()
	IncMutatorFailure(mutator string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveExecution(m.Purpose, m.Outcome, time.Duration) {}
func (NopMetrics) SetCoverage(int, float64)                           {}
func (NopMetrics) ObserveDistance(float64)                            {}
func (NopMetrics) SetCorpusSize(int)                                  {}
func (NopMetrics) IncCrashes()                                        {}
func (NopMetrics) IncMutatorFailure(string)                           {}

// PrometheusMetrics exports fuzzing progress as Prometheus collectors.
type PrometheusMetrics struct {
	executions      *prometheus.CounterVec
	execTime        prometheus.Histogram
	edges           prometheus.Gauge
	score           prometheus.Gauge
	distance        prometheus.Histogram
	corpusSize      prometheus.Gauge
	crashes         prometheus.Counter
	mutatorFailures *prometheus.CounterVec
}

// NewPrometheusMetrics registers the fuzzer collectors with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "distfuzz_executions_total",
			Help: "Program executions by purpose and outcome",
		}, []string{"purpose", "outcome"}),
		execTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "distfuzz_exec_seconds",
			Help:    "Target execution time",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		edges: factory.NewGauge(prometheus.GaugeOpts{
			Name: "distfuzz_edges",
			Help: "Edges in the global coverage ledger",
		}),
		score: factory.NewGauge(prometheus.GaugeOpts{
			Name: "distfuzz_score",
			Help: "Ledger edges divided by distance map size",
		}),
		distance: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "distfuzz_distance",
			Help:    "Mean distance to target of evaluated executions",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 1000},
		}),
		corpusSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "distfuzz_corpus_size",
			Help: "Programs in the corpus",
		}),
		crashes: factory.NewCounter(prometheus.CounterOpts{
			Name: "distfuzz_crashes_total",
			Help: "Crashing executions",
		}),
		mutatorFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "distfuzz_mutator_failures_total",
			Help: "Declined mutation attempts by mutator",
		}, []string{"mutator"}),
	}
}

func (p *PrometheusMetrics) ObserveExecution(purpose m.Purpose, outcome m.Outcome, elapsed time.Duration) {
	p.executions.WithLabelValues(purpose.String(), outcome.String()).Inc()
	p.execTime.Observe(elapsed.Seconds())
}

func (p *PrometheusMetrics) SetCoverage(edges int, score float64) {
	p.edges.Set(float64(edges))
	p.score.Set(score)
}

func (p *PrometheusMetrics) ObserveDistance(distance float64) {
	p.distance.Observe(distance)
}

func (p *PrometheusMetrics) SetCorpusSize(size int) {
	p.corpusSize.Set(float64(size))
}

func (p *PrometheusMetrics) IncCrashes() {
	p.crashes.Inc()
}

func (p *PrometheusMetrics) IncMutatorFailure(mutator string) {
	p.mutatorFailures.WithLabelValues(mutator).Inc()
}

// ServeMetrics exposes gatherer on addr under /metrics until ctx is done.
func ServeMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down metrics server", "error", err)
		}
	}()

	slog.Info("Serving metrics", "addr", addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}

	return nil
}
