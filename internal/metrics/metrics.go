package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "escrow",
		Name:      "settlement_processed_total",
		Help:      "Projects automatically released after review timeout.",
	})
	SettlementSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "escrow",
		Name:      "settlement_skipped_total",
		Help:      "Overdue projects the settlement job could not release.",
	})
	SettlementRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "escrow",
		Name:      "settlement_runs_total",
		Help:      "Settlement job invocations by outcome.",
	}, []string{"outcome"})

	EventsIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "escrow",
		Name:      "chain_events_indexed_total",
		Help:      "Chain events newly written to the record store.",
	})
	IndexerProjectFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "escrow",
		Name:      "indexer_project_failures_total",
		Help:      "Projects skipped by an indexing pass because of an error.",
	})

	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "escrow",
		Name:      "ledger_operations_total",
		Help:      "Escrow ledger operations by name and result.",
	}, []string{"op", "result"})

	WalletTopUpFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "escrow",
		Name:      "wallet_topup_failures_total",
		Help:      "Custodial wallet top-ups that failed.",
	})

	MfaOverrideUsed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "escrow",
		Name:      "mfa_override_used_total",
		Help:      "Verifications satisfied by the break-glass override code.",
	})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "escrow",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter by action.",
	}, []string{"action"})
)
