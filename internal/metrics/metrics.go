package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const jobName = "stock_checker"

// Recorder collects per-run metrics on its own registry so a one-shot job can
// push them to a Pushgateway at exit.
type Recorder struct {
	registry *prometheus.Registry

	checksTotal    *prometheus.CounterVec
	changesTotal   *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	lastRunSuccess prometheus.Gauge
	lastRunChecked prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_checks_total",
				Help: "Product checks by retailer and result.",
			},
			[]string{"retailer", "result"},
		),
		changesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_status_changes_total",
				Help: "Stock status transitions by retailer and new status.",
			},
			[]string{"retailer", "status"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stock_fetch_duration_seconds",
				Help:    "Histogram of page load durations.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"retailer"},
		),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stock_last_run_finished_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
		lastRunChecked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stock_last_run_checked_products",
			Help: "Products with a verdict in the last run.",
		}),
	}
	r.registry.MustRegister(r.checksTotal, r.changesTotal, r.fetchDuration, r.lastRunSuccess, r.lastRunChecked)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveCheck records the result of one product check. result is a status
// value or one of "skipped", "timeout", "fetch_error", "write_error".
func (r *Recorder) ObserveCheck(retailer, result string) {
	r.checksTotal.WithLabelValues(retailer, result).Inc()
}

func (r *Recorder) ObserveFetch(retailer string, d time.Duration) {
	r.fetchDuration.WithLabelValues(retailer).Observe(d.Seconds())
}

func (r *Recorder) ObserveChange(retailer, status string) {
	r.changesTotal.WithLabelValues(retailer, status).Inc()
}

func (r *Recorder) RunFinished(at time.Time, checked int) {
	r.lastRunSuccess.Set(float64(at.Unix()))
	r.lastRunChecked.Set(float64(checked))
}

// Push sends the collected metrics to a Pushgateway.
func (r *Recorder) Push(ctx context.Context, gatewayURL string) error {
	if err := push.New(gatewayURL, jobName).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
