// Package metrics exposes Prometheus counters for the webhook pipeline and
// hook execution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhooksReceived counts every POST / delivery attempt.
	WebhooksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pushgate",
		Name:      "webhooks_received_total",
		Help:      "Webhook deliveries received, before any validation.",
	})

	// WebhooksRejected counts rejections by reason.
	WebhooksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pushgate",
		Name:      "webhooks_rejected_total",
		Help:      "Webhook deliveries rejected, by rejection reason.",
	}, []string{"reason"})

	// PushesAccepted counts pushes that passed the full pipeline.
	PushesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pushgate",
		Name:      "pushes_accepted_total",
		Help:      "Push events that passed origin, signature and branch checks.",
	})

	// HookExecutions counts hook runs by outcome (ok, failed, timeout, skipped).
	HookExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pushgate",
		Name:      "hook_executions_total",
		Help:      "Hook subprocess executions, by outcome.",
	}, []string{"outcome"})

	// HookDuration observes wall-clock hook run time.
	HookDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pushgate",
		Name:      "hook_duration_seconds",
		Help:      "Wall-clock duration of hook subprocess executions.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	})
)
