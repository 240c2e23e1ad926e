// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ledger operation metrics
	OperationsTotal  *prometheus.CounterVec
	OperationErrors  *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	EventsEmitted    *prometheus.CounterVec
	VersionConflicts prometheus.Counter

	// Ledger state gauges
	TotalSupply     prometheus.Gauge
	MaxSupply       prometheus.Gauge
	Paused          prometheus.Gauge
	BlacklistSize   prometheus.Gauge
	SnapshotVersion prometheus.Gauge
	VaultReserve    prometheus.Gauge

	// Oracle metrics
	OracleLatency  *prometheus.HistogramVec
	OracleErrors   *prometheus.CounterVec
	OracleQuoteAge prometheus.Gauge

	// Chain metrics
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulAttestation prometheus.Gauge
	UptimeSeconds             prometheus.Counter
}

// NewMetrics creates a new Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a new Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "diamond_token"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Ledger operation metrics
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of ledger operations by outcome",
		}, []string{"operation", "status"}),
		OperationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_errors_total",
			Help:      "Total number of rejected ledger operations by error code",
		}, []string{"operation", "code"}),
		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_latency_seconds",
			Help:      "Ledger operation latency including load and commit",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "events_emitted_total",
			Help:      "Total number of ledger records emitted by kind",
		}, []string{"kind"}),
		VersionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "version_conflicts_total",
			Help:      "Total number of commits rejected by optimistic versioning",
		}),

		// Ledger state gauges
		TotalSupply: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "total_supply_base_units",
			Help:      "Token supply in circulation",
		}),
		MaxSupply: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "max_supply_base_units",
			Help:      "Current supply ceiling",
		}),
		Paused: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "paused",
			Help:      "1 if the ledger is paused",
		}),
		BlacklistSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "blacklist_size",
			Help:      "Number of blacklisted principals",
		}),
		SnapshotVersion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "snapshot_version",
			Help:      "Version of the last committed snapshot",
		}),
		VaultReserve: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "vault_reserve_base_units",
			Help:      "Vault balance of the reserve asset",
		}),

		// Oracle metrics
		OracleLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "latency_seconds",
			Help:      "Price oracle lookup latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		OracleErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "errors_total",
			Help:      "Total number of failed oracle lookups",
		}, []string{"source"}),
		OracleQuoteAge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "quote_age_seconds",
			Help:      "Age of the most recently used quote",
		}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulAttestation: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_attestation_timestamp",
			Help:      "Unix timestamp of last successful reserve attestation",
		}),
		UptimeSeconds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// LedgerState is the subset of the snapshot exported as gauges.
type LedgerState struct {
	TotalSupply   uint64
	MaxSupply     uint64
	Paused        bool
	BlacklistSize int
	Version       uint64
	VaultReserve  uint64
}

// RecordOperation records one ledger operation outcome and latency.
func (m *Metrics) RecordOperation(operation, status string, seconds float64) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationLatency.WithLabelValues(operation).Observe(seconds)
}

// RecordOperationError records a rejected operation by error code.
func (m *Metrics) RecordOperationError(operation, code string) {
	m.OperationErrors.WithLabelValues(operation, code).Inc()
}

// RecordEvent increments the emitted records counter.
func (m *Metrics) RecordEvent(kind string) {
	m.EventsEmitted.WithLabelValues(kind).Inc()
}

// UpdateLedgerState sets the ledger gauges.
func (m *Metrics) UpdateLedgerState(s LedgerState) {
	m.TotalSupply.Set(float64(s.TotalSupply))
	m.MaxSupply.Set(float64(s.MaxSupply))
	if s.Paused {
		m.Paused.Set(1)
	} else {
		m.Paused.Set(0)
	}
	m.BlacklistSize.Set(float64(s.BlacklistSize))
	m.SnapshotVersion.Set(float64(s.Version))
	m.VaultReserve.Set(float64(s.VaultReserve))
}

// RecordOracleLookup records oracle latency, errors and quote age.
func (m *Metrics) RecordOracleLookup(source string, seconds float64, ageSeconds int64, err error) {
	m.OracleLatency.WithLabelValues(source).Observe(seconds)
	if err != nil {
		m.OracleErrors.WithLabelValues(source).Inc()
		return
	}
	m.OracleQuoteAge.Set(float64(ageSeconds))
}

// RecordRPCLatency records RPC call latency.
func (m *Metrics) RecordRPCLatency(method string, seconds float64) {
	m.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordAttestation marks a successful reserve attestation.
func (m *Metrics) RecordAttestation(timestamp int64) {
	m.LastSuccessfulAttestation.Set(float64(timestamp))
}
