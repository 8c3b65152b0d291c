// Package metrics exposes reload cycle statistics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wippyai/livid/lifecycle"
)

const namespace = "livid"

// cycleBuckets cover a fast recompile up to a slow full run.
var cycleBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Metrics holds the cycle collectors. It implements lifecycle.Observer.
type Metrics struct {
	CyclesTotal     *prometheus.CounterVec
	RowsRead        prometheus.Counter
	RowsRendered    prometheus.Counter
	StoppedTotal    prometheus.Counter
	Columns         prometheus.Gauge
	CompileDuration prometheus.Histogram
	LoadDuration    prometheus.Histogram
	RunDuration     prometheus.Histogram
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CyclesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Reload cycles by outcome",
			},
			[]string{"outcome"},
		),
		RowsRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Rows handed to loaded modules",
		}),
		RowsRendered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rendered_total",
			Help:      "Rows written to the output grid",
		}),
		StoppedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_cap_stops_total",
			Help:      "Runs that hit their row display cap",
		}),
		Columns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output_columns",
			Help:      "Columns declared by the last loaded module",
		}),
		CompileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Time spent in the compiler",
			Buckets:   cycleBuckets,
		}),
		LoadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time spent loading the compiled module",
			Buckets:   cycleBuckets,
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Time spent in the module's run entry point",
			Buckets:   cycleBuckets,
		}),
	}
}

// ObserveCycle records one finished cycle. Phases the cycle never
// reached are not observed.
func (m *Metrics) ObserveCycle(r lifecycle.Result) {
	m.CyclesTotal.WithLabelValues(r.Outcome()).Inc()
	m.CompileDuration.Observe(r.Compile.Seconds())
	if r.Load > 0 {
		m.LoadDuration.Observe(r.Load.Seconds())
	}
	if r.Columns == nil {
		return
	}
	m.Columns.Set(float64(len(r.Columns)))
	if r.Run > 0 {
		m.RunDuration.Observe(r.Run.Seconds())
	}
	m.RowsRead.Add(float64(r.RowsRead))
	m.RowsRendered.Add(float64(r.RowsRendered))
	if r.Stopped {
		m.StoppedTotal.Inc()
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes g on addr under /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("metrics listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
