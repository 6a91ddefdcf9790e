package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpnbot_commands_total",
		Help: "Chat commands handled, by command and outcome",
	}, []string{"command", "outcome"})

	Callbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpnbot_callbacks_total",
		Help: "Button callbacks handled, by decoded command and outcome",
	}, []string{"cmd", "outcome"})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpnbot_logins_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vpnbot_active_sessions",
		Help: "Sessions that have not yet expired",
	})

	ToolRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpnbot_tool_runs_total",
		Help: "Provisioning tool invocations by operation and outcome",
	}, []string{"op", "outcome"})

	ToolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vpnbot_tool_duration_seconds",
		Help:    "Wall time of provisioning tool invocations",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"op"})
)
