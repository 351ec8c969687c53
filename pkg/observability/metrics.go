package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the dialogue engine.
type Metrics struct {
	registry *prometheus.Registry

	messages   *prometheus.CounterVec
	faults     *prometheus.CounterVec
	faqLookups *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pmguide_messages_total",
				Help: "Total number of processed messages by intent",
			},
			[]string{"intent"},
		),
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pmguide_handler_faults_total",
				Help: "Total number of handler faults converted into apology responses",
			},
			[]string{"intent"},
		),
		faqLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pmguide_faq_lookups_total",
				Help: "Total number of FAQ lookups by result",
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pmguide_message_duration_seconds",
				Help:    "Duration of message handling",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"intent"},
		),
	}
	m.registry.MustRegister(m.messages, m.faults, m.faqLookups, m.duration)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRespond: func(ctx context.Context, e *domain.MessageEvent) {
			intent := string(e.Intent)
			m.messages.WithLabelValues(intent).Inc()
			m.duration.WithLabelValues(intent).Observe(e.Duration.Seconds())
		},
		OnFault: func(ctx context.Context, e *domain.FaultEvent) {
			m.faults.WithLabelValues(string(e.Intent)).Inc()
		},
		OnFAQLookup: func(ctx context.Context, e *domain.FAQEvent) {
			result := "miss"
			if e.Hit {
				result = "hit"
			}
			m.faqLookups.WithLabelValues(result).Inc()
		},
	}
}
