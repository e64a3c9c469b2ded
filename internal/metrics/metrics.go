// Package metrics holds the Prometheus collectors for store dispatches and
// pipeline stages. Each Metrics owns a private registry so several
// converters in one process never collide.
package metrics

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/chancegraff/curtains-sub000/internal/store"
)

// Metrics holds all collectors.
type Metrics struct {
	registry *prometheus.Registry

	DispatchDuration *prometheus.HistogramVec
	StageDuration    *prometheus.HistogramVec
	StageRetries     *prometheus.CounterVec
	StageFailures    *prometheus.CounterVec
	PipelinesTotal   *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "curtains_dispatch_duration_seconds",
				Help:    "Store dispatch duration in seconds",
				Buckets: []float64{.00001, .0001, .001, .005, .01, .05, .1},
			},
			[]string{"action"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "curtains_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"stage", "status"},
		),
		StageRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curtains_stage_retries_total",
				Help: "Total number of stage retries",
			},
			[]string{"stage"},
		),
		StageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curtains_stage_failures_total",
				Help: "Total number of stages that failed after all attempts",
			},
			[]string{"stage"},
		),
		PipelinesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curtains_pipelines_total",
				Help: "Total number of pipeline runs",
			},
			[]string{"result"},
		),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDispatch implements store.DispatchObserver.
func (m *Metrics) ObserveDispatch(action store.ActionType, d time.Duration) {
	m.DispatchDuration.WithLabelValues(string(action)).Observe(d.Seconds())
}

// ObserveStage records one finished stage.
func (m *Metrics) ObserveStage(stage string, success bool, d time.Duration) {
	status := "complete"
	if !success {
		status = "failed"
		m.StageFailures.WithLabelValues(stage).Inc()
	}
	m.StageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// IncRetry counts one retry of stage.
func (m *Metrics) IncRetry(stage string) {
	m.StageRetries.WithLabelValues(stage).Inc()
}

// IncPipeline counts one pipeline run.
func (m *Metrics) IncPipeline(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.PipelinesTotal.WithLabelValues(result).Inc()
}

// WriteSummary writes a short human-readable digest of the collected
// counters and histogram counts to w.
func (m *Metrics) WriteSummary(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			line := mf.GetName() + labelString(metric.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				line += fmt.Sprintf(" %g", metric.GetCounter().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				line += fmt.Sprintf(" count=%d sum=%.4fs", h.GetSampleCount(), h.GetSampleSum())
			default:
				continue
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func labelString(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.GetName()+"="+l.GetValue())
	}
	slices.Sort(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

var _ store.DispatchObserver = (*Metrics)(nil)
