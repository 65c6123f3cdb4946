package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Ledger
	InvestmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "investments_submitted_total",
			Help: "Investment submissions by outcome",
		},
		[]string{"result"}, // accepted | error kind
	)
	InvestmentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "investment_transitions_total",
			Help: "Investment status transitions after creation",
		},
		[]string{"to"},
	)
	CampaignTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_transitions_total",
			Help: "Campaign status transitions",
		},
		[]string{"to"},
	)
	LedgerRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_tx_retries_total",
			Help: "Ledger transactions retried after a serialization conflict",
		},
	)

	// Worker kuyruğu
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	initOnce sync.Once
)

// /metrics endpoint'i için handler
var Handler = promhttp.Handler

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal)
		prometheus.MustRegister(InvestmentsTotal)
		prometheus.MustRegister(InvestmentTransitions)
		prometheus.MustRegister(CampaignTransitions)
		prometheus.MustRegister(LedgerRetries)
		prometheus.MustRegister(WorkerQueueDepth)
	})
}
