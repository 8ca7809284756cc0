// Package observability registers and exposes the process's Prometheus
// metrics. Registration happens once regardless of how many components
// import the package.
package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registerOnce sync.Once

var (
	httpDuration *prometheus.HistogramVec

	depositsSettled   *prometheus.CounterVec
	transfersTotal    *prometheus.CounterVec
	webhooksProcessed *prometheus.CounterVec
)

// Register creates all collectors on the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"})

		depositsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_deposits_settled_total",
			Help: "Deposits moved to a terminal status, by outcome.",
		}, []string{"status"})

		transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_transfers_total",
			Help: "Peer-to-peer transfer attempts, by outcome.",
		}, []string{"outcome"})

		webhooksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_webhooks_processed_total",
			Help: "Gateway webhook deliveries, by handling result.",
		}, []string{"result"})
	})
}

// ObserveHTTP records one handled HTTP request.
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if httpDuration == nil {
		return
	}
	httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// DepositSettled counts a deposit reaching a terminal status.
func DepositSettled(status string) {
	if depositsSettled == nil {
		return
	}
	depositsSettled.WithLabelValues(status).Inc()
}

// TransferObserved counts a transfer attempt outcome ("success",
// "insufficient_funds", "rejected", "error").
func TransferObserved(outcome string) {
	if transfersTotal == nil {
		return
	}
	transfersTotal.WithLabelValues(outcome).Inc()
}

// WebhookObserved counts a webhook delivery result ("settled", "duplicate",
// "ignored", "unknown_reference", "bad_signature").
func WebhookObserved(result string) {
	if webhooksProcessed == nil {
		return
	}
	webhooksProcessed.WithLabelValues(result).Inc()
}
