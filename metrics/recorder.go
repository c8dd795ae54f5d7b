package metrics

import (
	"time"

	"github.com/kairoslabs/agentrt/agent"
)

var _ agent.MetricsRecorder = (*Recorder)(nil)

// EventProcessed implements agent.MetricsRecorder.
func (r *Recorder) EventProcessed(agentName string, kind string) {
	r.eventsTotal.WithLabelValues(agentName, kind).Inc()
}

// TurnStarted implements agent.MetricsRecorder.
func (r *Recorder) TurnStarted(agentName string) {
	r.turnsStarted.WithLabelValues(agentName).Inc()
}

// TurnCompleted implements agent.MetricsRecorder.
func (r *Recorder) TurnCompleted(agentName string, duration time.Duration) {
	r.turnDuration.WithLabelValues(agentName).Observe(duration.Seconds())
}

// TurnFailed implements agent.MetricsRecorder.
func (r *Recorder) TurnFailed(agentName string) {
	r.turnsFailed.WithLabelValues(agentName).Inc()
}

// TurnInterrupted implements agent.MetricsRecorder.
func (r *Recorder) TurnInterrupted(agentName string, reason string) {
	r.turnsInterrupted.WithLabelValues(agentName, reason).Inc()
}

// PersistenceFailure implements agent.MetricsRecorder.
func (r *Recorder) PersistenceFailure(agentName string) {
	r.persistenceErrors.WithLabelValues(agentName).Inc()
}

// MailboxDepth implements agent.MetricsRecorder.
func (r *Recorder) MailboxDepth(agentName string, depth int) {
	r.mailboxDepth.WithLabelValues(agentName).Set(float64(depth))
}
