// Package obsmetrics exposes the import pipeline's prometheus instruments.
package obsmetrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics captures import and survey throughput signals.
type Metrics struct {
	recordsImported *prometheus.CounterVec
	recordsSkipped  *prometheus.CounterVec
	importRuns      *prometheus.CounterVec
	auditEvents     *prometheus.CounterVec
	surveysSent     prometheus.Counter
	surveyResponses *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// Default returns the singleton metrics registry.
func Default() *Metrics {
	metricsOnce.Do(func() {
		metrics = New(prometheus.DefaultRegisterer)
	})
	return metrics
}

// ResetForTest resets the singleton for tests.
func ResetForTest() {
	metricsOnce = sync.Once{}
	metrics = nil
}

// New builds and registers the instruments.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	recordsImported := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "officepulse_records_imported_total",
		Help: "Activity report rows persisted, by workload.",
	}, []string{"workload"})
	recordsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "officepulse_records_skipped_total",
		Help: "Activity report rows skipped, by workload and reason.",
	}, []string{"workload", "reason"})
	importRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "officepulse_import_runs_total",
		Help: "Import runs by outcome.",
	}, []string{"outcome"})
	auditEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "officepulse_audit_events_total",
		Help: "Copilot audit events staged, by enrichment outcome.",
	}, []string{"outcome"})
	surveysSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "officepulse_surveys_sent_total",
		Help: "Survey prompts sent to users.",
	})
	surveyResponses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "officepulse_survey_responses_total",
		Help: "Survey responses recorded, by channel.",
	}, []string{"channel"})

	registerer.MustRegister(
		recordsImported,
		recordsSkipped,
		importRuns,
		auditEvents,
		surveysSent,
		surveyResponses,
	)

	return &Metrics{
		recordsImported: recordsImported,
		recordsSkipped:  recordsSkipped,
		importRuns:      importRuns,
		auditEvents:     auditEvents,
		surveysSent:     surveysSent,
		surveyResponses: surveyResponses,
	}
}

// AddRecordsImported increments persisted rows for a workload.
func (m *Metrics) AddRecordsImported(workload string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.recordsImported.WithLabelValues(workload).Add(float64(count))
}

// AddRecordsSkipped increments skipped rows for a workload and reason.
func (m *Metrics) AddRecordsSkipped(workload, reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.recordsSkipped.WithLabelValues(workload, reason).Add(float64(count))
}

// IncImportRun increments the run counter with an outcome label.
func (m *Metrics) IncImportRun(outcome string) {
	if m == nil {
		return
	}
	m.importRuns.WithLabelValues(outcome).Inc()
}

// AddAuditEvents increments staged audit events by enrichment outcome.
func (m *Metrics) AddAuditEvents(outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.auditEvents.WithLabelValues(outcome).Add(float64(count))
}

// IncSurveySent increments the sent-survey counter.
func (m *Metrics) IncSurveySent() {
	if m == nil {
		return
	}
	m.surveysSent.Inc()
}

// IncSurveyResponse increments recorded responses for a channel.
func (m *Metrics) IncSurveyResponse(channel string) {
	if m == nil {
		return
	}
	m.surveyResponses.WithLabelValues(channel).Inc()
}
