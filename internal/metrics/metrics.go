package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	WebhookRejects *prometheus.CounterVec

	DispatchAttempts *prometheus.CounterVec
	DispatchResults  *prometheus.CounterVec
	Replies          *prometheus.CounterVec
	Duplicates       prometheus.Counter

	QueueDepth   prometheus.Gauge
	QueueDropped prometheus.Counter
	JobDuration  prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wa_relay_http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wa_relay_http_request_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
	webhookRejects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wa_relay_webhook_rejected_total",
		Help: "Webhooks rejected by signature or verify-token checks.",
	}, []string{"source"})
	dispatchAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wa_relay_dispatch_attempts_total",
	}, []string{"template", "language", "outcome"})
	dispatchResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wa_relay_dispatch_results_total",
	}, []string{"kind", "result"})
	replies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wa_relay_replies_total",
	}, []string{"intent"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "wa_relay_duplicate_events_total"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{Name: "wa_relay_queue_depth"})
	queueDropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "wa_relay_queue_dropped_total"})
	jobDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wa_relay_job_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(httpRequests, httpDuration, webhookRejects, dispatchAttempts, dispatchResults,
		replies, duplicates, queueDepth, queueDropped, jobDuration)
	return &Registry{
		reg:              r,
		HTTPRequests:     httpRequests,
		HTTPDuration:     httpDuration,
		WebhookRejects:   webhookRejects,
		DispatchAttempts: dispatchAttempts,
		DispatchResults:  dispatchResults,
		Replies:          replies,
		Duplicates:       duplicates,
		QueueDepth:       queueDepth,
		QueueDropped:     queueDropped,
		JobDuration:      jobDuration,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// The helpers below are nil-safe so services can run without a registry in tests.

func (r *Registry) DispatchAttempt(template, language, outcome string) {
	if r == nil {
		return
	}
	r.DispatchAttempts.WithLabelValues(template, language, outcome).Inc()
}

func (r *Registry) DispatchResult(kind, result string) {
	if r == nil {
		return
	}
	r.DispatchResults.WithLabelValues(kind, result).Inc()
}

func (r *Registry) Reply(intent string) {
	if r == nil {
		return
	}
	r.Replies.WithLabelValues(intent).Inc()
}

func (r *Registry) Duplicate() {
	if r == nil {
		return
	}
	r.Duplicates.Inc()
}

func (r *Registry) WebhookRejected(source string) {
	if r == nil {
		return
	}
	r.WebhookRejects.WithLabelValues(source).Inc()
}
