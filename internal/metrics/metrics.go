// Package metrics exposes broker counters and gauges through
// prometheus/client_golang, the same library aistore's stats package
// registers its counters with. Handlers and the connection server update
// these; cmd/qbusd serves them on an HTTP /metrics endpoint alongside the
// TCP listener.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qbus",
		Name:      "requests_total",
		Help:      "Requests handled, by opcode.",
	}, []string{"opcode"})

	// RedirectsTotal counts Redirect replies issued because this node
	// was not the topic's leader.
	RedirectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qbus",
		Name:      "redirects_total",
		Help:      "Redirect replies issued.",
	})

	// ProduceTotal counts successful Produce calls (regardless of how
	// many bound queues actually accepted the payload).
	ProduceTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qbus",
		Name:      "produce_total",
		Help:      "Produce calls served locally.",
	})

	// QueueFullDropsTotal counts fan-out pushes silently dropped
	// because the target queue was full.
	QueueFullDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qbus",
		Name:      "queue_full_drops_total",
		Help:      "Produce fan-out pushes dropped because the queue was full.",
	})

	// ConsumeEmptyTotal counts Consume calls that returned Empty, either
	// immediately (timeout_ms == 0) or after the wait timed out.
	ConsumeEmptyTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qbus",
		Name:      "consume_empty_total",
		Help:      "Consume calls that observed an empty queue.",
	})

	// ConnectionsActive is the number of currently open client
	// connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "qbus",
		Name:      "connections_active",
		Help:      "Open client connections.",
	})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qbus",
		Name:      "queue_depth",
		Help:      "Current occupancy of a queue.",
	}, []string{"queue"})
)

// RequestsTotal returns the counter for a given opcode label, creating it
// lazily on first use via the underlying CounterVec.
func RequestsTotal(opcode string) prometheus.Counter {
	return requestsTotal.WithLabelValues(opcode)
}

// SetQueueDepth records a queue's current occupancy, keyed by name.
// internal/registry.Queue calls this after every successful push/pop so
// the gauge tracks occupancy without the registry needing to poll it.
func SetQueueDepth(queue string, depth int) {
	queueDepth.WithLabelValues(queue).Set(float64(depth))
}
