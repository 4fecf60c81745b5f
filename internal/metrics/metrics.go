// Package metrics declares the Prometheus collectors of the messaging core.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OnlineConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dm_core_online_conns",
		Help: "Current announced websocket connections.",
	})

	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dm_core_messages_sent_total",
		Help: "Total messages appended to conversation logs.",
	})
	StatusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_core_status_transitions_total",
		Help: "Total delivery-status transitions by target status.",
	}, []string{"status"})

	PushOK = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dm_core_ws_push_ok_total",
		Help: "Total ws events queued successfully.",
	})
	PushBackpressure = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dm_core_ws_backpressure_total",
		Help: "Total times an outbound queue was full and the connection was dropped.",
	})

	SelfCPUPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dm_core_self_cpu_percent",
		Help: "Process CPU usage sampled by the telemetry worker.",
	})
	SelfRSSBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dm_core_self_rss_bytes",
		Help: "Process resident memory sampled by the telemetry worker.",
	})
)

func Register() {
	prometheus.MustRegister(
		OnlineConns,
		MessagesSent, StatusTransitions,
		PushOK, PushBackpressure,
		SelfCPUPercent, SelfRSSBytes,
	)
}
