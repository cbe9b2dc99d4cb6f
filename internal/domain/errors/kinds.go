package errors

import "fmt"

// Kind enumerates the closed set of error kinds the engine can raise.
type Kind string

const (
	KindWorkflowValidation Kind = "WorkflowValidationError"
	KindUnknownNode        Kind = "UnknownNodeError"
	KindStateShape         Kind = "StateShapeError"
	KindStateKeyMissing    Kind = "StateKeyMissingError"
	KindResolverDepth      Kind = "ResolverDepthError"
	KindNodeExecution      Kind = "NodeExecutionError"
	KindLoopIterationLimit Kind = "LoopIterationLimitError"
	KindTimeout            Kind = "TimeoutError"
	KindCancelled          Kind = "CancelledError"
	KindDuplicateNode      Kind = "DuplicateNodeError"
)

// Severity mirrors the severities carried by hook-bus error events.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// EngineError is the common shape for every closed-set error kind the engine
// and its leaf components raise. Path is a diagnostic source path such as
// "workflow[0].success?" used for WorkflowValidationError entries and hook
// event payloads.
type EngineError struct {
	Kind     Kind
	Severity Severity
	Path     string
	Message  string
	Cause    error
}

func (e *EngineError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Cause }

func newEngineError(kind Kind, severity Severity, path, message string, cause error) *EngineError {
	return &EngineError{Kind: kind, Severity: severity, Path: path, Message: message, Cause: cause}
}

func NewUnknownNodeError(path, nodeType string) *EngineError {
	return newEngineError(KindUnknownNode, SeverityMedium, path,
		fmt.Sprintf("unknown node type %q", nodeType), nil)
}

func NewStateShapeError(path string, cause error) *EngineError {
	return newEngineError(KindStateShape, SeverityHigh, path,
		"cannot write through a non-object intermediate", cause)
}

func NewStateKeyMissingError(path string) *EngineError {
	return newEngineError(KindStateKeyMissing, SeverityMedium, path,
		fmt.Sprintf("state key %q is missing", path), nil)
}

func NewResolverDepthError(maxDepth int) *EngineError {
	return newEngineError(KindResolverDepth, SeverityHigh, "",
		fmt.Sprintf("resolver exceeded max depth %d", maxDepth), nil)
}

func NewNodeExecutionErrorKind(path, nodeID string, cause error) *EngineError {
	return newEngineError(KindNodeExecution, SeverityHigh, path,
		fmt.Sprintf("node %q execution failed", nodeID), cause)
}

func NewLoopIterationLimitError(path, nodeID string, limit int) *EngineError {
	return newEngineError(KindLoopIterationLimit, SeverityHigh, path,
		fmt.Sprintf("loop node %q exceeded %d iterations", nodeID, limit), nil)
}

func NewTimeoutErrorKind(path string) *EngineError {
	return newEngineError(KindTimeout, SeverityHigh, path, "execution deadline exceeded", nil)
}

func NewCancelledErrorKind(path string) *EngineError {
	return newEngineError(KindCancelled, SeverityMedium, path, "execution was cancelled", nil)
}

func NewDuplicateNodeError(id string) *EngineError {
	return newEngineError(KindDuplicateNode, SeverityMedium, "",
		fmt.Sprintf("node id %q is already registered", id), nil)
}

// ValidationIssue is one entry in a WorkflowValidationError's issue list.
type ValidationIssue struct {
	Path    string
	Message string
}

// WorkflowValidationError is raised by the parser/validator; it carries the
// full list of structural or semantic issues found, per spec §4.4.
type WorkflowValidationError struct {
	Issues []ValidationIssue
}

func (e *WorkflowValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "workflow validation failed"
	}
	if len(e.Issues) == 1 {
		return fmt.Sprintf("workflow validation failed at %s: %s", e.Issues[0].Path, e.Issues[0].Message)
	}
	return fmt.Sprintf("workflow validation failed with %d issues (first: %s: %s)",
		len(e.Issues), e.Issues[0].Path, e.Issues[0].Message)
}

// KindOf reports the closed error kind for WorkflowValidationError, satisfying
// callers that switch on EngineError-shaped kinds.
func (e *WorkflowValidationError) KindOf() Kind { return KindWorkflowValidation }

func NewWorkflowValidationError(issues []ValidationIssue) *WorkflowValidationError {
	return &WorkflowValidationError{Issues: issues}
}
