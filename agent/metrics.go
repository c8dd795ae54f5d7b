package agent

import "time"

// MetricsRecorder receives agent lifecycle observations. Implementations
// must not block the processor goroutine; the default NoopMetrics
// satisfies that trivially, and the Prometheus-backed recorder in
// package metrics only increments counters and observes histograms.
type MetricsRecorder interface {
	EventProcessed(agentName string, kind string)
	TurnStarted(agentName string)
	TurnCompleted(agentName string, duration time.Duration)
	TurnFailed(agentName string)
	TurnInterrupted(agentName string, reason string)
	PersistenceFailure(agentName string)
	MailboxDepth(agentName string, depth int)
}

// NoopMetrics discards every observation. It is the default so that
// constructing an Agent never requires a metrics backend.
type NoopMetrics struct{}

func (NoopMetrics) EventProcessed(string, string)             {}
func (NoopMetrics) TurnStarted(string)                         {}
func (NoopMetrics) TurnCompleted(string, time.Duration)        {}
func (NoopMetrics) TurnFailed(string)                          {}
func (NoopMetrics) TurnInterrupted(string, string)             {}
func (NoopMetrics) PersistenceFailure(string)                  {}
func (NoopMetrics) MailboxDepth(string, int)                   {}

var _ MetricsRecorder = NoopMetrics{}
