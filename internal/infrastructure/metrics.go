package infrastructure

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters of one pipeline run. Each run owns its own
// registry so the textfile output contains nothing but these series.
type Metrics struct {
	Registry *prometheus.Registry

	FilesIngested          *prometheus.CounterVec
	RowsRead               prometheus.Counter
	DuplicatesDropped      prometheus.Counter
	ValuesCoerced          prometheus.Counter
	UnknownMunicipalities  prometheus.Counter
	MunicipalitiesAnalysed *prometheus.CounterVec
	StageDuration          *prometheus.HistogramVec
}

// NewMetrics creates and registers the pipeline metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		FilesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxtrend",
			Name:      "files_ingested_total",
			Help:      "Source files processed, by outcome.",
		}, []string{"status"}),
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taxtrend",
			Name:      "rows_read_total",
			Help:      "Data rows read from source files.",
		}),
		DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taxtrend",
			Name:      "duplicates_dropped_total",
			Help:      "Long-form records removed by deduplication.",
		}),
		ValuesCoerced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taxtrend",
			Name:      "values_coerced_total",
			Help:      "Unparseable monetary values replaced by zero.",
		}),
		UnknownMunicipalities: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taxtrend",
			Name:      "unknown_municipalities_total",
			Help:      "Distinct municipality names without a code.",
		}),
		MunicipalitiesAnalysed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxtrend",
			Name:      "municipalities_analysed_total",
			Help:      "Municipality analyses, by outcome.",
		}, []string{"status"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taxtrend",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
	}

	reg.MustRegister(
		m.FilesIngested,
		m.RowsRead,
		m.DuplicatesDropped,
		m.ValuesCoerced,
		m.UnknownMunicipalities,
		m.MunicipalitiesAnalysed,
		m.StageDuration,
	)
	return m
}

// ObserveStage records the time elapsed since start for stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
