package metrics

import "time"

// Sink records distribution metrics. Implementations must not block or fail
// the run.
type Sink interface {
	RunStarted(pending, settled int)
	AttemptCompleted(outcome string, kind string, duration time.Duration)
	RunFinished(succeeded, failed int)
}

const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// NoopSink is used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

func NewNoopSink() *NoopSink { return &NoopSink{} }

func (n *NoopSink) RunStarted(pending, settled int)                               {}
func (n *NoopSink) AttemptCompleted(outcome string, kind string, d time.Duration) {}
func (n *NoopSink) RunFinished(succeeded, failed int)                             {}
