package internal

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	TokenExchanges *prometheus.CounterVec
	Explanations   *prometheus.CounterVec
	Latency        *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TokenExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "explainer_token_exchanges_total", Help: "IAM token exchanges by outcome"}, []string{"outcome"}),
		Explanations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "explainer_explanations_total", Help: "Explanation requests by model and outcome"}, []string{"model", "outcome"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "explainer_explanation_latency_seconds", Help: "End-to-end explanation latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80}}, []string{"model"}),
	}
	m.registry.MustRegister(m.TokenExchanges, m.Explanations, m.Latency)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeToken(err error) {
	if m == nil {
		return
	}
	switch {
	case err == nil:
		m.TokenExchanges.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrAuthenticationFailed):
		m.TokenExchanges.WithLabelValues("auth_failed").Inc()
	default:
		m.TokenExchanges.WithLabelValues("error").Inc()
	}
}

func (m *Metrics) observeExplanation(model string, failed bool, took time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	m.Explanations.WithLabelValues(model, outcome).Inc()
	m.Latency.WithLabelValues(model).Observe(took.Seconds())
}
