package report

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "altea_import"

// WriteMetrics stores the run counters in Prometheus text format at path,
// for the node_exporter textfile collector. The file is replaced atomically.
func (s *Summary) WriteMetrics(path string, finished time.Time) error {
	reg := prometheus.NewRegistry()

	rows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rows",
		Help:      "Source rows seen by the last run, by outcome.",
	}, []string{"outcome"})
	customers := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "customers",
		Help:      "Customers resolved by the last run, by outcome.",
	}, []string{"outcome"})
	debts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "debts",
		Help:      "Debts written by the last run, by outcome.",
	}, []string{"outcome"})
	errs := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "errors",
		Help:      "Errors recorded by the last run.",
	})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "duration_seconds",
		Help:      "Wall time of the last run.",
	})
	last := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished.",
	})

	reg.MustRegister(rows, customers, debts, errs, duration, last)

	rows.WithLabelValues("processed").Set(float64(s.RowsProcessed))
	rows.WithLabelValues("skipped").Set(float64(s.RowsSkipped))
	customers.WithLabelValues("created").Set(float64(s.CustomersCreated))
	customers.WithLabelValues("reused").Set(float64(s.CustomersReused))
	customers.WithLabelValues("failed").Set(float64(s.CustomersFailed))
	debts.WithLabelValues("created").Set(float64(s.DebtsCreated))
	debts.WithLabelValues("failed").Set(float64(s.DebtsFailed))
	errs.Set(float64(s.ErrorCount))
	duration.Set(s.Duration.Seconds())
	last.Set(float64(finished.Unix()))

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}
