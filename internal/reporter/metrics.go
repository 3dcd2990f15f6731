package reporter

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/prometheus/client_golang/prometheus"

	"api_smoke_testing/internal/model"
)

const metricsNamespace = "api_smoke"

// Metrics writes a Prometheus textfile (node_exporter textfile collector format)
// describing one run.
type Metrics struct {
	Path string
	now  func() time.Time
}

func NewMetrics(path string) *Metrics {
	return &Metrics{Path: path, now: time.Now}
}

func (m *Metrics) Write(results []model.ResultRecord) error {
	if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
		return errors.Wrap(err, "create metrics directory")
	}

	rm := newRunMetrics()
	rm.observe(results, m.now())
	if err := prometheus.WriteToTextfile(m.Path, rm.registry); err != nil {
		return errors.Wrapf(err, "write metrics to %s", m.Path)
	}
	return nil
}

type runMetrics struct {
	registry *prometheus.Registry
	cases    *prometheus.CounterVec
	failures *prometheus.CounterVec
	caseUp   *prometheus.GaugeVec
	latency  prometheus.Histogram
	lastRun  prometheus.Gauge
}

func newRunMetrics() *runMetrics {
	rm := &runMetrics{
		registry: prometheus.NewRegistry(),
		cases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cases_total",
			Help:      "Number of evaluated cases by result.",
		}, []string{"result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "case_failures_total",
			Help:      "Number of failed cases by failure kind.",
		}, []string{"kind"}),
		caseUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "case_up",
			Help:      "1 if the case passed in the last run, 0 otherwise.",
		}, []string{"case"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "case_latency_seconds",
			Help:      "Request latency of cases that received a response.",
			Buckets:   prometheus.DefBuckets,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	rm.registry.MustRegister(rm.cases, rm.failures, rm.caseUp, rm.latency, rm.lastRun)
	rm.cases.WithLabelValues("pass")
	rm.cases.WithLabelValues("fail")
	return rm
}

func (rm *runMetrics) observe(results []model.ResultRecord, finished time.Time) {
	for _, r := range results {
		if r.Passed {
			rm.cases.WithLabelValues("pass").Inc()
			rm.caseUp.WithLabelValues(r.CaseName).Set(1)
		} else {
			rm.cases.WithLabelValues("fail").Inc()
			rm.failures.WithLabelValues(string(r.Failure)).Inc()
			rm.caseUp.WithLabelValues(r.CaseName).Set(0)
		}
		if r.ActualStatus != nil {
			rm.latency.Observe(r.LatencyMs / 1000)
		}
	}
	rm.lastRun.Set(float64(finished.Unix()))
}
