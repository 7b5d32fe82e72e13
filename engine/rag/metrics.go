package rag

import (
	"time"

	"github.com/WessleyAI/sector-rag/engine/domain"
	"github.com/WessleyAI/sector-rag/pkg/metrics"
)

// pipelineMetrics records pipeline counters on a registry. A nil
// *pipelineMetrics is valid and records nothing.
type pipelineMetrics struct {
	reg      *metrics.Registry
	inFlight *metrics.Gauge
}

func newPipelineMetrics(reg *metrics.Registry) *pipelineMetrics {
	if reg == nil {
		return nil
	}
	return &pipelineMetrics{
		reg:      reg,
		inFlight: reg.Gauge("rag_queries_in_flight", "Queries currently being executed"),
	}
}

func (m *pipelineMetrics) begin() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

func (m *pipelineMetrics) query(t domain.ResponseType) {
	if m == nil {
		return
	}
	m.reg.Counter(metrics.WithLabels("rag_queries_total", "type", string(t)), "Queries by response type").Inc()
}

func (m *pipelineMetrics) stage(name string, start time.Time) {
	if m == nil {
		return
	}
	m.reg.Histogram(metrics.WithLabels("rag_stage_seconds", "stage", name), "Pipeline stage latency", nil).Since(start)
}

func (m *pipelineMetrics) degraded(stage string) {
	if m == nil {
		return
	}
	m.reg.Counter(metrics.WithLabels("rag_degradations_total", "stage", stage), "Stages that fell back to a degraded result").Inc()
}

func (m *pipelineMetrics) evaluated(dimension string, status domain.EvaluationStatus) {
	if m == nil {
		return
	}
	m.reg.Counter(metrics.WithLabels("rag_evaluations_total", "dimension", dimension, "status", string(status)), "Judge verdicts by dimension and status").Inc()
}
