/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package metrics records federation metrics via Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fedipress/fedipress/internal/pkg/log"
)

var logger = log.New("metrics")

// Namespace is the metric namespace of this application.
const Namespace = "fedipress"

const (
	subsystemOutbox = "outbox"
	subsystemInbox  = "inbox"
)

// Provider records federation metrics.
type Provider interface {
	OutboxPostTime(value time.Duration)
	OutboxResolveInboxTime(value time.Duration)
	DeliveryQueueSize(value int)
	DeliverySucceeded()
	DeliveryFailed()
	InboxHandlerTime(activityType string, value time.Duration)
}

// PromMetrics records federation metrics to a Prometheus registry.
type PromMetrics struct {
	registry *prometheus.Registry

	outboxPostTime         prometheus.Histogram
	outboxResolveInboxTime prometheus.Histogram
	deliveryQueueSize      prometheus.Gauge
	deliverySucceeded      prometheus.Counter
	deliveryFailed         prometheus.Counter
	inboxHandlerTime       *prometheus.HistogramVec
}

// NewPrometheus returns a metrics provider backed by its own Prometheus
// registry.
func NewPrometheus() *PromMetrics {
	pm := &PromMetrics{
		registry: prometheus.NewRegistry(),
		outboxPostTime: newHistogram(subsystemOutbox, "post_seconds",
			"The time (in seconds) that it takes to post an activity to a recipient inbox."),
		outboxResolveInboxTime: newHistogram(subsystemOutbox, "resolve_inbox_seconds",
			"The time (in seconds) that it takes to resolve a recipient's inbox."),
		deliveryQueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: subsystemOutbox, Name: "queue_size",
			Help: "The number of pending delivery tasks.",
		}),
		deliverySucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: subsystemOutbox, Name: "delivered_total",
			Help: "The number of delivery tasks that reached all recipients.",
		}),
		deliveryFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: subsystemOutbox, Name: "failed_total",
			Help: "The number of delivery tasks that exhausted their retries.",
		}),
		inboxHandlerTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: subsystemInbox, Name: "handler_seconds",
			Help: "The time (in seconds) that it takes to handle an inbound activity.",
		}, []string{"type"}),
	}

	pm.registry.MustRegister(pm.outboxPostTime, pm.outboxResolveInboxTime, pm.deliveryQueueSize,
		pm.deliverySucceeded, pm.deliveryFailed, pm.inboxHandlerTime)

	return pm
}

// HTTPHandler returns the handler serving the metrics endpoint.
func (pm *PromMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// OutboxPostTime records the time taken to post an activity to an inbox.
func (pm *PromMetrics) OutboxPostTime(value time.Duration) {
	pm.outboxPostTime.Observe(value.Seconds())

	logger.Debug("Outbox post time", log.WithDuration(value))
}

// OutboxResolveInboxTime records the time taken to resolve a recipient inbox.
func (pm *PromMetrics) OutboxResolveInboxTime(value time.Duration) {
	pm.outboxResolveInboxTime.Observe(value.Seconds())
}

// DeliveryQueueSize sets the current number of pending delivery tasks.
func (pm *PromMetrics) DeliveryQueueSize(value int) {
	pm.deliveryQueueSize.Set(float64(value))
}

// DeliverySucceeded increments the number of fully delivered tasks.
func (pm *PromMetrics) DeliverySucceeded() {
	pm.deliverySucceeded.Inc()
}

// DeliveryFailed increments the number of terminally failed tasks.
func (pm *PromMetrics) DeliveryFailed() {
	pm.deliveryFailed.Inc()
}

// InboxHandlerTime records the time taken to handle an inbound activity of
// the given type.
func (pm *PromMetrics) InboxHandlerTime(activityType string, value time.Duration) {
	pm.inboxHandlerTime.WithLabelValues(activityType).Observe(value.Seconds())
}

func newHistogram(subsystem, name, help string) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

// NoOp is a metrics provider that records nothing.
type NoOp struct{}

// NewNoOp returns a no-op metrics provider.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// OutboxPostTime does nothing.
func (m *NoOp) OutboxPostTime(time.Duration) {}

// OutboxResolveInboxTime does nothing.
func (m *NoOp) OutboxResolveInboxTime(time.Duration) {}

// DeliveryQueueSize does nothing.
func (m *NoOp) DeliveryQueueSize(int) {}

// DeliverySucceeded does nothing.
func (m *NoOp) DeliverySucceeded() {}

// DeliveryFailed does nothing.
func (m *NoOp) DeliveryFailed() {}

// InboxHandlerTime does nothing.
func (m *NoOp) InboxHandlerTime(string, time.Duration) {}
