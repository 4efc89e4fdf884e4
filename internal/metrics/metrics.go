// Package metrics exposes node counters to Prometheus.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Command outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeFault   = "fault"
	OutcomeUnknown = "unknown"
)

// Metrics groups the node's collectors.
type Metrics struct {
	Sessions    prometheus.Gauge
	Connections prometheus.Gauge
	Commands    *prometheus.CounterVec
	Faults      prometheus.Counter
	Reaped      prometheus.Counter
	BusMessages *prometheus.CounterVec
	Rejected    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gamenode_sessions",
			Help: "number of live game sessions",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gamenode_connections",
			Help: "number of connections attached to a session",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamenode_commands_total",
			Help: "client game commands by outcome",
		}, []string{"outcome"}),
		Faults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gamenode_engine_faults_total",
			Help: "engine faults contained by the fault boundary",
		}),
		Reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gamenode_reaped_sessions_total",
			Help: "finished sessions closed for inactivity",
		}),
		BusMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamenode_bus_messages_total",
			Help: "message bus traffic by direction and topic",
		}, []string{"direction", "topic"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamenode_rejected_connections_total",
			Help: "connections dropped at the gateway by reason",
		}, []string{"reason"}),
	}

	if reg != nil {
		reg.MustRegister(m.Sessions, m.Connections, m.Commands, m.Faults, m.Reaped, m.BusMessages, m.Rejected)
	}
	return m
}

// Nop returns unregistered collectors, for tests and tools.
func Nop() *Metrics {
	return New(nil)
}
