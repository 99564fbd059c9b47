package backend

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	connectionsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "howzat_connections_accepted_total",
		Help: "Connections accepted since startup.",
	})

	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "howzat_sessions",
		Help: "Connections currently tracked in the session directory.",
	})

	packetsIn = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "howzat_packets_in_total",
		Help: "Well-framed inbound documents.",
	})

	packetsOut = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "howzat_packets_out_total",
		Help: "Outbound documents queued for delivery.",
	})

	protocolErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "howzat_protocol_errors_total",
		Help: "Malformed frames and protocol violations reported to clients.",
	})

	gamesStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "howzat_games_started_total",
		Help: "Games formed by a completed invite/accept handshake.",
	})

	gamesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "howzat_games",
		Help: "Games currently in progress.",
	})

	waitsPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "howzat_waits_pending",
		Help: "Decision tasks suspended awaiting a participant's action.",
	})
)

func init() {
	prometheus.MustRegister(
		connectionsAccepted,
		sessionsActive,
		packetsIn,
		packetsOut,
		protocolErrors,
		gamesStarted,
		gamesActive,
		waitsPending,
	)
}
