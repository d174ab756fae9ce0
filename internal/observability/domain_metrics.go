package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	chatRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlchat_chat_runs_total",
			Help: "Total number of completed chat runs by terminal decision type.",
		},
		[]string{"type"},
	)
	chatTurnsPerRun = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlchat_chat_turns_per_run",
			Help:    "Number of decision turns executed per chat run.",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8},
		},
	)
	chatQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlchat_chat_queries_total",
			Help: "Total number of warehouse queries executed by chat runs.",
		},
	)
	gateRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlchat_gate_rejections_total",
			Help: "Total number of generated queries rejected by the read-only gate.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		chatRunsTotal,
		chatTurnsPerRun,
		chatQueriesTotal,
		gateRejectionsTotal,
	)
}

func ObserveChatRun(terminalType string, turns int) {
	if terminalType == "" {
		terminalType = "unknown"
	}
	chatRunsTotal.WithLabelValues(terminalType).Inc()
	chatTurnsPerRun.Observe(float64(turns))
}

func IncrementChatQueries() {
	chatQueriesTotal.Inc()
}

func IncrementGateRejections() {
	gateRejectionsTotal.Inc()
}
