// Package engine implements the Execution Engine: a single-threaded
// cooperative depth-first walker over a parsed workflow tree, grounded on
// the teacher's WorkflowEngine/EngineConfig struct-of-options framing but
// replacing its DAG/parallel/join walk with the tree-walk-with-named-edges
// model spec §4.6/§5/§9 require.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainerrors "github.com/arcflow/mbflow/internal/domain/errors"
	"github.com/arcflow/mbflow/internal/hookbus"
	"github.com/arcflow/mbflow/internal/registry"
	"github.com/arcflow/mbflow/internal/resolver"
	"github.com/arcflow/mbflow/internal/state"
	"github.com/arcflow/mbflow/internal/workflow"
)

// Engine drives a parsed workflow to a terminal state while emitting
// lifecycle events, per spec §4.6. It is a caller-owned instance, not a
// process-wide singleton (spec §9 "Singletons" design note): a host wires
// the same *registry.Registry and *hookbus.Bus into each Engine it builds.
type Engine struct {
	Registry *registry.Registry
	Bus      *hookbus.Bus
	Config   Config
	Logger   zerolog.Logger
}

// New returns an Engine wired to registry and bus, using cfg (or
// DefaultConfig() if cfg is the zero value's MaxLoopIterations == 0).
func New(reg *registry.Registry, bus *hookbus.Bus, cfg Config) *Engine {
	if cfg.MaxLoopIterations == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{Registry: reg, Bus: bus, Config: cfg}
}

// run carries the mutable, per-execution state threaded through the
// recursive walk; one run exists per Execute call and is never shared
// across executions (spec §5's "each with its own State Manager instance").
type run struct {
	engine      *Engine
	resolver    *resolver.Resolver
	state       *state.Manager
	executionID string
	workflowID  string
	deadline    time.Time

	records      []NodeExecutionRecord
	terminalEdge string
}

// Execute drives doc to completion. overlay is merged atop the workflow's
// declared initial state (overlay keys win), per spec §4.6.1.
func (e *Engine) Execute(ctx context.Context, doc *workflow.Document, overlay map[string]any) *Result {
	started := time.Now()
	executionID := uuid.New().String()

	if e.Config.WorkflowDefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Config.WorkflowDefaultTimeout)
		defer cancel()
	}

	r := &run{
		engine:      e,
		resolver:    &resolver.Resolver{MaxDepth: e.Config.ResolverMaxDepth, MissingKeyPolicy: e.Config.ResolverMissingKeyPolicy},
		state:       state.Initialize(doc.InitialState, overlay),
		executionID: executionID,
		workflowID:  doc.ID,
	}

	e.emit(r, hookbus.WorkflowBeforeStart, "", nil, "")

	_, err := r.runStep(ctx, doc.Root)

	result := &Result{
		ExecutionID:    executionID,
		WorkflowID:     doc.ID,
		FinalState:     r.state.Snapshot(),
		TerminalEdge:   r.terminalEdge,
		Duration:       time.Since(started),
		NodeExecutions: r.records,
	}

	switch {
	case isCancellation(err):
		result.Outcome = OutcomeCancelled
		result.Err = err
		e.emit(r, hookbus.WorkflowCancelled, "", map[string]any{"error": err.Error()}, "")
	case err != nil:
		result.Outcome = OutcomeError
		result.Err = err
		e.emit(r, hookbus.WorkflowError, "", map[string]any{"error": err.Error()}, hookbus.SeverityHigh)
	default:
		result.Outcome = OutcomeCompleted
		e.emit(r, hookbus.WorkflowAfterEnd, "", nil, "")
	}

	return result
}

func isCancellation(err error) bool {
	if err == nil {
		return false
	}
	var ee *domainerrors.EngineError
	if errors.As(err, &ee) {
		return ee.Kind == domainerrors.KindCancelled || ee.Kind == domainerrors.KindTimeout
	}
	return false
}

func (e *Engine) emit(r *run, kind hookbus.EventKind, nodeID string, data map[string]any, severity hookbus.Severity) {
	if e.Bus == nil {
		return
	}
	e.Bus.Emit(hookbus.Event{
		Kind:        kind,
		WorkflowID:  r.workflowID,
		ExecutionID: r.executionID,
		NodeID:      nodeID,
		TimestampMS: time.Now().UnixMilli(),
		Data:        data,
		Severity:    severity,
	})
}

// checkCancelled is called at every step boundary per spec §4.6.4/§5.
func checkCancelled(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domainerrors.NewTimeoutErrorKind(path)
		}
		return domainerrors.NewCancelledErrorKind(path)
	default:
		return nil
	}
}

// runStep executes tree and reports whether this branch reached an
// explicit terminal point (a null edge target, or a returned edge with no
// matching body entry) as opposed to simply running its last step to
// completion via a non-invocation tail (e.g. a sequence ending in a
// setter). Only loop control (does the loop keep going?) and
// Result.TerminalEdge consume the returned bool.
func (r *run) runStep(ctx context.Context, tree *workflow.Tree) (bool, error) {
	if tree == nil {
		return true, nil
	}
	if err := checkCancelled(ctx, tree.SourcePath); err != nil {
		return false, err
	}

	switch tree.Kind {
	case workflow.KindTerminal:
		return true, nil

	case workflow.KindSetter:
		return false, r.applySetter(tree.SetterPath, tree.SetterExpr)

	case workflow.KindSequence:
		if len(tree.Steps) == 0 {
			return true, nil
		}
		var hitTerminal bool
		for _, step := range tree.Steps {
			var err error
			hitTerminal, err = r.runStep(ctx, step)
			if err != nil {
				return false, err
			}
		}
		return hitTerminal, nil

	case workflow.KindInvocation:
		return r.runInvocation(ctx, tree)

	default:
		return true, nil
	}
}

// applySetter resolves expr against the live state and writes it to path,
// per spec §4.6.3 step 1.
func (r *run) applySetter(path string, expr any) error {
	snapshot := r.state.Snapshot()
	val, err := r.resolver.Resolve(expr, snapshot)
	if err != nil {
		return err
	}
	return r.state.Set(path, val)
}

// runInvocation implements the invocation sub-procedure of spec §4.6.3,
// including loop re-invocation (§4.6.3 step 8) when tree.IsLoop.
func (r *run) runInvocation(ctx context.Context, tree *workflow.Tree) (bool, error) {
	maxIter := r.engine.Config.MaxLoopIterations
	if maxIter <= 0 {
		maxIter = 1
	}

	for iteration := 0; ; iteration++ {
		if tree.IsLoop && iteration >= maxIter {
			return false, domainerrors.NewLoopIterationLimitError(tree.SourcePath, tree.NodeType, maxIter)
		}
		if err := checkCancelled(ctx, tree.SourcePath); err != nil {
			return false, err
		}

		hitTerminal, err := r.runInvocationOnce(ctx, tree)
		if err != nil {
			return false, err
		}

		if !tree.IsLoop {
			return hitTerminal, nil
		}
		if hitTerminal {
			return true, nil
		}
		// Non-terminal completion of a loop's chosen branch: re-invoke.
	}
}

// runInvocationOnce runs exactly one invocation of the node (spec §4.6.3
// steps 1-7): resolve, run inline setters, invoke, apply writes, emit
// events, and route on the returned edge.
func (r *run) runInvocationOnce(ctx context.Context, tree *workflow.Tree) (bool, error) {
	node, ok := r.engine.Registry.Lookup(tree.NodeType)
	if !ok {
		return false, domainerrors.NewUnknownNodeError(tree.SourcePath, tree.NodeType)
	}
	meta := node.Metadata()

	start := time.Now()

	preSnapshot := r.state.Snapshot()
	resolvedConfig, err := r.resolver.Resolve(tree.Config, preSnapshot)
	if err != nil {
		return false, err
	}
	resolvedConfigMap, _ := resolvedConfig.(map[string]any)

	r.engine.emit(r, hookbus.NodeBeforeExecute, tree.NodeType, map[string]any{
		"path":   tree.SourcePath,
		"config": resolvedConfigMap,
	}, "")

	for _, s := range tree.InlineSetters {
		if err := r.applySetter(s.Path, s.Expr); err != nil {
			return false, err
		}
	}

	nodeCtx := ctx
	var cancelNode context.CancelFunc
	if r.engine.Config.NodeDefaultTimeout > 0 {
		nodeCtx, cancelNode = context.WithTimeout(ctx, r.engine.Config.NodeDefaultTimeout)
		defer cancelNode()
	}

	view := snapshotView{data: r.state.Snapshot()}
	edgeName, writes, result, execErr := node.Execute(nodeCtx, resolvedConfigMap, view)
	duration := time.Since(start)

	if execErr != nil {
		r.engine.emit(r, hookbus.NodeError, tree.NodeType, map[string]any{
			"path":      tree.SourcePath,
			"error":     execErr.Error(),
			"retryable": meta.Retryable,
		}, hookbus.SeverityHigh)
		r.records = append(r.records, NodeExecutionRecord{NodeType: tree.NodeType, Path: tree.SourcePath, Duration: duration, Error: execErr})
		hitTerminal, err := r.routeError(ctx, tree, execErr)
		if tree.IsLoop && err == nil {
			// A failed iteration ends the loop once its error? branch has run.
			return true, nil
		}
		return hitTerminal, err
	}

	for _, w := range writes {
		if err := r.state.Set(w.Path, w.Value); err != nil {
			r.engine.emit(r, hookbus.NodeError, tree.NodeType, map[string]any{
				"path": tree.SourcePath, "error": err.Error(),
			}, hookbus.SeverityHigh)
			return r.routeError(ctx, tree, err)
		}
	}
	// A node may return a bare result without explicit writes; when its
	// metadata declares exactly one output key, the engine assigns the
	// result there (spec §9's open question on dbRecord/dbRecords naming
	// leaves the key name to node authors; this is the "default state key"
	// assignment named in §3.3).
	if result != nil && len(meta.Outputs) == 1 {
		if err := r.state.Set(meta.Outputs[0], result); err != nil {
			return r.routeError(ctx, tree, err)
		}
	}

	r.engine.emit(r, hookbus.NodeAfterExecute, tree.NodeType, map[string]any{
		"path":     tree.SourcePath,
		"edge":     edgeName,
		"duration": duration,
	}, "")
	r.records = append(r.records, NodeExecutionRecord{NodeType: tree.NodeType, Path: tree.SourcePath, ExitEdge: edgeName, Duration: duration})

	return r.route(ctx, tree, edgeName)
}

// route looks up edgeName in the invocation's declared edges and dispatches
// per spec §4.6.3 step 7.
func (r *run) route(ctx context.Context, tree *workflow.Tree, edgeName string) (bool, error) {
	target, ok := tree.Edges[edgeName]
	if !ok {
		r.terminalEdge = edgeName
		return true, nil
	}
	if target == nil || target.Kind == workflow.KindTerminal {
		r.terminalEdge = edgeName
		return true, nil
	}
	hitTerminal, err := r.runStep(ctx, target)
	if hitTerminal {
		r.terminalEdge = edgeName
	}
	return hitTerminal, err
}

// routeError implements the local-recovery policy of spec §7/§4.6.3's node
// error handling: route into the error? edge if the body defines one,
// otherwise propagate as a workflow-level failure.
func (r *run) routeError(ctx context.Context, tree *workflow.Tree, cause error) (bool, error) {
	target, ok := tree.Edges["error"]
	if !ok {
		return false, domainerrors.NewNodeExecutionErrorKind(tree.SourcePath, tree.NodeType, cause)
	}
	if target == nil || target.Kind == workflow.KindTerminal {
		r.terminalEdge = "error"
		return true, nil
	}
	hitTerminal, err := r.runStep(ctx, target)
	if hitTerminal {
		r.terminalEdge = "error"
	}
	return hitTerminal, err
}
