// Package metrics holds the Prometheus collectors for ledger and HTTP activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "familybank"

var LedgerTransfers = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "transfers_total",
	Help:      "Completed transfers by sender and receiver owner kind.",
}, []string{"sender_kind", "receiver_kind"})

var LedgerTransferredMinor = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "transferred_minor_units_total",
	Help:      "Sum of transferred amounts in minor units by sender owner kind.",
}, []string{"sender_kind"})

var LedgerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "rejections_total",
	Help:      "Transfers rejected before any write, by reason.",
}, []string{"reason"})

var GoalTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "goals",
	Name:      "transitions_total",
	Help:      "Savings goal status transitions by target status.",
}, []string{"status"})

var TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "tasks",
	Name:      "transitions_total",
	Help:      "Task status transitions by target status.",
}, []string{"status"})

var LoyaltyPoints = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "loyalty",
	Name:      "points_total",
	Help:      "Loyalty points earned or spent.",
}, []string{"type"})

var TxRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "db",
	Name:      "tx_retries_total",
	Help:      "Serializable transactions retried, by SQLSTATE.",
}, []string{"code"})

var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route pattern, method and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route", "method", "status"})
