package engine

import "time"

// Outcome is one of the three exit conditions of spec §6.5.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeError     Outcome = "error"
)

// NodeExecutionRecord is one entry of the ordered per-node execution log
// named in spec §4.6.2, grounded on the teacher's NodeExecutionState
// bookkeeping (internal/domain/execution.go).
type NodeExecutionRecord struct {
	NodeType string
	Path     string
	ExitEdge string
	Duration time.Duration
	Error    error
}

// Result is the terminal result object of spec §4.6.2/§7: always returned,
// even on error or cancellation, carrying whatever partial state and event
// log exist at that point.
type Result struct {
	ExecutionID    string
	WorkflowID     string
	Outcome        Outcome
	FinalState     map[string]any
	TerminalEdge   string
	Duration       time.Duration
	NodeExecutions []NodeExecutionRecord
	Err            error
}
