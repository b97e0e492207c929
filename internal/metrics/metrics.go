// Package metrics provides Prometheus metrics for the IR player.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cwbudde/algo-irplayer/dsp/mix"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const metricsPath = "/metrics"

// PlayerMetrics records routing decisions and IR load failures. The
// per-path counters are resolved at construction, so ObserveBlock is safe
// to call from the audio goroutine.
type PlayerMetrics struct {
	blocksTotal       *prometheus.CounterVec
	samplesTotal      prometheus.Counter
	loadFailuresTotal prometheus.Counter
	mixGauge          prometheus.Gauge

	blocksByPath [3]prometheus.Counter
}

// NewPlayerMetrics creates the metrics and registers them with registry.
func NewPlayerMetrics(registry prometheus.Registerer) (*PlayerMetrics, error) {
	m := &PlayerMetrics{
		blocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irplayer_blocks_total",
				Help: "Total number of processed blocks by routing path",
			},
			[]string{"path"}, // path: dry, wet, blend
		),
		samplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irplayer_samples_total",
			Help: "Total number of processed samples per channel",
		}),
		loadFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irplayer_ir_load_failures_total",
			Help: "Total number of failed impulse response loads",
		}),
		mixGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "irplayer_mix",
			Help: "Current dry/wet mix, 0 dry to 1 wet",
		}),
	}

	for _, p := range []mix.Path{mix.PathDry, mix.PathWet, mix.PathBlend} {
		m.blocksByPath[p] = m.blocksTotal.WithLabelValues(p.String())
	}

	if err := registry.Register(m); err != nil {
		return nil, err
	}

	return m, nil
}

// ObserveBlock counts one processed block.
func (m *PlayerMetrics) ObserveBlock(path mix.Path, numSamples int) {
	if int(path) >= 0 && int(path) < len(m.blocksByPath) {
		m.blocksByPath[path].Inc()
	}
	m.samplesTotal.Add(float64(numSamples))
}

// ObserveLoadFailure counts one failed IR load.
func (m *PlayerMetrics) ObserveLoadFailure(error) {
	m.loadFailuresTotal.Inc()
}

// SetMix publishes the current mix value.
func (m *PlayerMetrics) SetMix(v float64) {
	m.mixGauge.Set(v)
}

// Describe implements prometheus.Collector.
func (m *PlayerMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.blocksTotal.Describe(ch)
	m.samplesTotal.Describe(ch)
	m.loadFailuresTotal.Describe(ch)
	m.mixGauge.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *PlayerMetrics) Collect(ch chan<- prometheus.Metric) {
	m.blocksTotal.Collect(ch)
	m.samplesTotal.Collect(ch)
	m.loadFailuresTotal.Collect(ch)
	m.mixGauge.Collect(ch)
}

// Handler returns an HTTP handler exposing gatherer at /metrics.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Serve exposes gatherer on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logrus.WithFields(logrus.Fields{
		"function": "metrics.Serve",
		"addr":     addr,
		"path":     metricsPath,
	}).Info("Serving metrics")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
