package hookbus

import (
	"sync"

	"github.com/rs/zerolog"
)

// NewLoggingSubscriber returns a Handler that mirrors every event as a
// structured log line, grounded on the teacher's CompositeObserver
// logging delegation (internal/infrastructure/monitoring/observer.go).
func NewLoggingSubscriber(logger zerolog.Logger) Handler {
	return func(ev Event) {
		e := logger.Info()
		if ev.Kind == NodeError || ev.Kind == WorkflowError || ev.Kind == ErrorExecution ||
			ev.Kind == ErrorSystem || ev.Kind == ErrorConnection || ev.Kind == ErrorValidation {
			e = logger.Error()
		}
		e.Str("kind", string(ev.Kind)).
			Str("workflow_id", ev.WorkflowID).
			Str("execution_id", ev.ExecutionID).
			Str("node_id", ev.NodeID).
			Interface("data", ev.Data).
			Msg("hook event")
	}
}

// MetricsSubscriber counts emitted events per kind, grounded on the
// teacher's MetricsCollector/CompositeObserver wiring
// (internal/infrastructure/monitoring/metrics.go).
type MetricsSubscriber struct {
	mu     sync.Mutex
	counts map[EventKind]int
}

// NewMetricsSubscriber returns an empty MetricsSubscriber.
func NewMetricsSubscriber() *MetricsSubscriber {
	return &MetricsSubscriber{counts: make(map[EventKind]int)}
}

// Handle is registered as a Handler via bus.Register(kind, m.Handle) for
// each kind of interest, or for every kind the caller cares about.
func (m *MetricsSubscriber) Handle(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[ev.Kind]++
}

// Count returns how many events of kind have been observed.
func (m *MetricsSubscriber) Count(kind EventKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[kind]
}
