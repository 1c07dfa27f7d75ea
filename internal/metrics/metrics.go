// Package metrics owns the Prometheus collectors of the assistant. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "expense_assistant"

type Metrics struct {
	gatherer prometheus.Gatherer

	parses            *prometheus.CounterVec
	classifications   *prometheus.CounterVec
	classifierLatency *prometheus.HistogramVec
	transitions       *prometheus.CounterVec
	commits           *prometheus.CounterVec
	feedbackFailures  prometheus.Counter
	commands          *prometheus.CounterVec
}

// New registers all collectors with reg. When reg is also a Gatherer it
// backs Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_total",
			Help:      "Expense extraction attempts by outcome.",
		}, []string{"outcome"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Category predictions by strategy and result.",
		}, []string{"strategy", "result"}),
		classifierLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_duration_seconds",
			Help:      "Latency of category predictions.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"strategy"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempt_transitions_total",
			Help:      "Confirmation state machine transitions by target state.",
		}, []string{"state"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Expense persistence calls by result.",
		}, []string{"result"}),
		feedbackFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_failures_total",
			Help:      "Category feedback records that could not be stored.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_commands_total",
			Help:      "Chat interactions by command.",
		}, []string{"command"}),
	}

	reg.MustRegister(
		m.parses,
		m.classifications,
		m.classifierLatency,
		m.transitions,
		m.commits,
		m.feedbackFailures,
		m.commands,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveParse(outcome string) {
	if m == nil {
		return
	}
	m.parses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveClassification(strategy string, ok bool, took time.Duration) {
	if m == nil {
		return
	}
	result := "prediction"
	if !ok {
		result = "no_prediction"
	}
	m.classifications.WithLabelValues(strategy, result).Inc()
	m.classifierLatency.WithLabelValues(strategy).Observe(took.Seconds())
}

func (m *Metrics) ObserveTransition(state string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveCommit(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.commits.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveFeedbackFailure() {
	if m == nil {
		return
	}
	m.feedbackFailures.Inc()
}

func (m *Metrics) ObserveCommand(command string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command).Inc()
}
