// Package telemetry provides observers that record suggestion interaction events.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/uvalib/virgo4-history-suggestor-ws/suggest"
)

// Counter counts interaction events in Prometheus
type Counter struct {
	events *prometheus.CounterVec
}

// NewCounter creates a counter observer and registers it with reg when reg is not nil
func NewCounter(reg prometheus.Registerer) (*Counter, error) {
	c := &Counter{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "suggestion_interactions_total",
			Help: "Interaction events emitted by the suggestion provider.",
		}, []string{"component", "action", "item"}),
	}

	if reg != nil {
		if err := reg.Register(c.events); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// OnEvent implements suggest.Observer
func (c *Counter) OnEvent(e suggest.Event) {
	c.events.WithLabelValues(e.Component, e.Action, e.Item).Inc()
}

// Logger writes one structured log line per interaction event
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a log observer writing to the global logger
func NewLogger() *Logger {
	return &Logger{logger: log.Logger}
}

// NewLoggerTo creates a log observer writing to l
func NewLoggerTo(l zerolog.Logger) *Logger {
	return &Logger{logger: l}
}

// OnEvent implements suggest.Observer
func (l *Logger) OnEvent(e suggest.Event) {
	l.logger.Info().
		Str("component", e.Component).
		Str("action", e.Action).
		Str("item", e.Item).
		Msg("interaction")
}
