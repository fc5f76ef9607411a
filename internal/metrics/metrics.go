package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal tracks completed cycles
	CyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cycler_cycles_total",
			Help: "Total number of completed cycles",
		},
	)

	// OperationsTotal tracks operation invocations by category and result
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycler_operations_total",
			Help: "Total number of operations executed",
		},
		[]string{"category", "result"},
	)

	// RetryAttemptsTotal tracks intermediate retry attempts per category
	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycler_retry_attempts_total",
			Help: "Total number of retried operation attempts",
		},
		[]string{"category"},
	)

	// IdentityFailuresTotal tracks wallets that failed at the identity level
	IdentityFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cycler_identity_failures_total",
			Help: "Total number of wallets that failed before sequencing",
		},
	)

	// ProxyScore tracks the current health score per proxy
	ProxyScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cycler_proxy_score",
			Help: "Current health score of a proxy (0-1)",
		},
		[]string{"proxy"},
	)

	// ProxiesDisabled tracks the number of disabled proxies
	ProxiesDisabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cycler_proxies_disabled",
			Help: "Number of proxies currently disabled",
		},
	)

	// Wallets tracks the number of loaded wallets
	Wallets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cycler_wallets",
			Help: "Number of wallets loaded at startup",
		},
	)

	// CycleDuration tracks how long a full cycle takes
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cycler_cycle_duration_seconds",
			Help:    "Duration of a full cycle in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	// DBConnectionPoolUsage tracks database pool utilization
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cycler_db_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
