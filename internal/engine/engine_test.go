package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/arcflow/mbflow/internal/domain/errors"
	"github.com/arcflow/mbflow/internal/hookbus"
	"github.com/arcflow/mbflow/internal/registry"
	"github.com/arcflow/mbflow/internal/workflow"
)

// fakeNode is a minimal, test-only registry.Node used to exercise the engine
// without depending on the (separately tested) builtin node package.
type fakeNode struct {
	meta registry.Metadata
	run  func(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error)
}

func (f fakeNode) Metadata() registry.Metadata { return f.meta }
func (f fakeNode) Execute(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
	return f.run(ctx, config, view)
}

func newRegistryWith(t *testing.T, nodes ...fakeNode) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, n := range nodes {
		require.NoError(t, reg.Register(n))
	}
	return reg
}

func passNode(id string, write registry.Write) fakeNode {
	return fakeNode{
		meta: registry.Metadata{ID: id, Name: id, Version: "1.0.0", Edges: []string{"success", "error"}},
		run: func(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
			return "success", []registry.Write{write}, nil, nil
		},
	}
}

// TestExecute_LinearSuccess covers spec §8 scenario 1: a two-node chain that
// writes state at each step and reaches an edge with no declared route.
func TestExecute_LinearSuccess(t *testing.T) {
	reg := newRegistryWith(t,
		passNode("step-one", registry.Write{Path: "counter", Value: float64(1)}),
		passNode("step-two", registry.Write{Path: "counter", Value: float64(2)}),
	)

	root := &workflow.Tree{
		Kind: workflow.KindSequence,
		Steps: []*workflow.Tree{
			{
				Kind: workflow.KindInvocation, NodeType: "step-one", Config: map[string]any{},
				Edges: map[string]*workflow.Tree{
					"success": {
						Kind: workflow.KindInvocation, NodeType: "step-two", Config: map[string]any{},
						Edges: map[string]*workflow.Tree{},
					},
				},
			},
		},
	}
	doc := &workflow.Document{ID: "wf-1", Root: root}

	e := New(reg, hookbus.New(), DefaultConfig())
	result := e.Execute(context.Background(), doc, nil)

	require.NoError(t, result.Err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, float64(2), result.FinalState["counter"])
	assert.Equal(t, "success", result.TerminalEdge)
	assert.Len(t, result.NodeExecutions, 2)
}

// TestExecute_LoopTerminatesOnFalseBranch covers spec §8 scenario 2: a
// loop-marked node whose "true?" branch is a sequence ending in a setter
// (non-terminal, so the loop continues) and whose "false?" branch is an
// explicit null (terminal, so the loop exits).
func TestExecute_LoopTerminatesOnFalseBranch(t *testing.T) {
	calls := 0
	loopNode := fakeNode{
		meta: registry.Metadata{ID: "logic", Name: "logic", Version: "1.0.0", Edges: []string{"true", "false"}},
		run: func(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
			calls++
			n, _ := view.Get("n")
			nf, _ := n.(float64)
			if nf >= 3 {
				return "false", nil, nil, nil
			}
			return "true", []registry.Write{{Path: "n", Value: nf + 1}}, nil, nil
		},
	}
	reg := newRegistryWith(t, loopNode)

	root := &workflow.Tree{
		Kind: workflow.KindInvocation, NodeType: "logic", IsLoop: true, Config: map[string]any{},
		Edges: map[string]*workflow.Tree{
			"true": {
				Kind: workflow.KindSequence,
				Steps: []*workflow.Tree{
					{Kind: workflow.KindSetter, SetterPath: "n", SetterExpr: "$.n"},
				},
			},
			"false": {Kind: workflow.KindTerminal},
		},
	}
	doc := &workflow.Document{ID: "wf-2", InitialState: map[string]any{"n": float64(0)}, Root: root}

	e := New(reg, hookbus.New(), DefaultConfig())
	result := e.Execute(context.Background(), doc, nil)

	require.NoError(t, result.Err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, "false", result.TerminalEdge)
	assert.True(t, calls >= 1)
}

// TestExecute_LoopIterationLimit covers the LoopIterationLimitError path: a
// loop node whose branch is always non-terminal never exits on its own.
func TestExecute_LoopIterationLimit(t *testing.T) {
	loopNode := fakeNode{
		meta: registry.Metadata{ID: "spin", Name: "spin", Version: "1.0.0", Edges: []string{"again"}},
		run: func(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
			return "again", nil, nil, nil
		},
	}
	reg := newRegistryWith(t, loopNode)

	root := &workflow.Tree{
		Kind: workflow.KindInvocation, NodeType: "spin", IsLoop: true, Config: map[string]any{},
		Edges: map[string]*workflow.Tree{
			"again": {Kind: workflow.KindSetter, SetterPath: "tick", SetterExpr: true},
		},
	}
	doc := &workflow.Document{ID: "wf-3", Root: root}

	cfg := DefaultConfig()
	cfg.MaxLoopIterations = 5
	e := New(reg, hookbus.New(), cfg)
	result := e.Execute(context.Background(), doc, nil)

	require.Error(t, result.Err)
	assert.Equal(t, OutcomeError, result.Outcome)
	var ee *domainerrors.EngineError
	require.True(t, errors.As(result.Err, &ee))
	assert.Equal(t, domainerrors.KindLoopIterationLimit, ee.Kind)
}

// TestExecute_MissingKeyTemplateIsSilent covers spec §8 scenario 3: a
// template reference to an absent path resolves to "" rather than erroring,
// under the default undefined missing-key policy.
func TestExecute_MissingKeyTemplateIsSilent(t *testing.T) {
	var captured string
	node := fakeNode{
		meta: registry.Metadata{ID: "capture", Name: "capture", Version: "1.0.0", Edges: []string{"success"}},
		run: func(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
			captured, _ = config["message"].(string)
			return "success", nil, nil, nil
		},
	}
	reg := newRegistryWith(t, node)

	root := &workflow.Tree{
		Kind: workflow.KindInvocation, NodeType: "capture",
		Config: map[string]any{"message": "hello {{$.user.name}}"},
		Edges:  map[string]*workflow.Tree{},
	}
	doc := &workflow.Document{ID: "wf-4", Root: root}

	e := New(reg, hookbus.New(), DefaultConfig())
	result := e.Execute(context.Background(), doc, nil)

	require.NoError(t, result.Err)
	assert.Equal(t, "hello ", captured)
}

// TestExecute_NodeErrorRoutesToErrorEdge covers spec §8 scenario 4: a node
// execution failure routes into a declared error? branch instead of failing
// the workflow.
func TestExecute_NodeErrorRoutesToErrorEdge(t *testing.T) {
	failing := fakeNode{
		meta: registry.Metadata{ID: "flaky", Name: "flaky", Version: "1.0.0", Edges: []string{"success", "error"}},
		run: func(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
			return "", nil, nil, errors.New("boom")
		},
	}
	reg := newRegistryWith(t, failing)

	root := &workflow.Tree{
		Kind: workflow.KindInvocation, NodeType: "flaky", Config: map[string]any{},
		Edges: map[string]*workflow.Tree{
			"error": {Kind: workflow.KindSetter, SetterPath: "recovered", SetterExpr: true},
		},
	}
	doc := &workflow.Document{ID: "wf-5", Root: root}

	e := New(reg, hookbus.New(), DefaultConfig())
	result := e.Execute(context.Background(), doc, nil)

	require.NoError(t, result.Err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, true, result.FinalState["recovered"])
	assert.Equal(t, "error", result.TerminalEdge)
}

// TestExecute_NodeErrorWithoutRecoveryFailsWorkflow covers the other half of
// spec §8 scenario 4: no error? edge means the failure propagates.
func TestExecute_NodeErrorWithoutRecoveryFailsWorkflow(t *testing.T) {
	failing := fakeNode{
		meta: registry.Metadata{ID: "flaky", Name: "flaky", Version: "1.0.0", Edges: []string{"success"}},
		run: func(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
			return "", nil, nil, errors.New("boom")
		},
	}
	reg := newRegistryWith(t, failing)

	root := &workflow.Tree{
		Kind: workflow.KindInvocation, NodeType: "flaky", Config: map[string]any{},
		Edges: map[string]*workflow.Tree{},
	}
	doc := &workflow.Document{ID: "wf-6", Root: root}

	e := New(reg, hookbus.New(), DefaultConfig())
	result := e.Execute(context.Background(), doc, nil)

	require.Error(t, result.Err)
	assert.Equal(t, OutcomeError, result.Outcome)
	var ee *domainerrors.EngineError
	require.True(t, errors.As(result.Err, &ee))
	assert.Equal(t, domainerrors.KindNodeExecution, ee.Kind)
}

// TestExecute_UnknownNodeRejected covers spec §8 scenario 5 at the execution
// layer (the parser rejects it earlier in normal use; the engine must also
// refuse to silently skip an unresolvable node type).
func TestExecute_UnknownNodeRejected(t *testing.T) {
	reg := registry.New()
	root := &workflow.Tree{Kind: workflow.KindInvocation, NodeType: "does-not-exist", Config: map[string]any{}, Edges: map[string]*workflow.Tree{}}
	doc := &workflow.Document{ID: "wf-7", Root: root}

	e := New(reg, hookbus.New(), DefaultConfig())
	result := e.Execute(context.Background(), doc, nil)

	require.Error(t, result.Err)
	var ee *domainerrors.EngineError
	require.True(t, errors.As(result.Err, &ee))
	assert.Equal(t, domainerrors.KindUnknownNode, ee.Kind)
}

// TestExecute_CancellationMidFlight covers spec §8 scenario 6: a context
// cancelled before a step boundary surfaces as a CancelledError outcome, not
// a generic error, and the engine still returns partial state.
func TestExecute_CancellationMidFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocked := fakeNode{
		meta: registry.Metadata{ID: "blocked", Name: "blocked", Version: "1.0.0", Edges: []string{"success"}},
		run: func(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
			cancel()
			return "success", []registry.Write{{Path: "reached", Value: true}}, nil, nil
		},
	}
	reg := newRegistryWith(t, blocked)

	root := &workflow.Tree{
		Kind: workflow.KindInvocation, NodeType: "blocked", Config: map[string]any{},
		Edges: map[string]*workflow.Tree{
			"success": {
				Kind: workflow.KindInvocation, NodeType: "blocked", Config: map[string]any{},
				Edges: map[string]*workflow.Tree{},
			},
		},
	}
	doc := &workflow.Document{ID: "wf-8", Root: root}

	e := New(reg, hookbus.New(), DefaultConfig())
	result := e.Execute(ctx, doc, nil)

	require.Error(t, result.Err)
	assert.Equal(t, OutcomeCancelled, result.Outcome)
	assert.Equal(t, true, result.FinalState["reached"])
}

// TestExecute_OverlayWinsOverInitialState covers spec §4.6.1's overlay merge.
func TestExecute_OverlayWinsOverInitialState(t *testing.T) {
	reg := registry.New()
	root := &workflow.Tree{Kind: workflow.KindTerminal}
	doc := &workflow.Document{ID: "wf-9", InitialState: map[string]any{"x": float64(1), "y": float64(2)}, Root: root}

	e := New(reg, hookbus.New(), DefaultConfig())
	result := e.Execute(context.Background(), doc, map[string]any{"x": float64(99)})

	require.NoError(t, result.Err)
	assert.Equal(t, float64(99), result.FinalState["x"])
	assert.Equal(t, float64(2), result.FinalState["y"])
}

// TestExecute_WorkflowTimeout covers the WorkflowDefaultTimeout config path.
func TestExecute_WorkflowTimeout(t *testing.T) {
	slow := fakeNode{
		meta: registry.Metadata{ID: "slow", Name: "slow", Version: "1.0.0", Edges: []string{"success"}},
		run: func(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
			}
			return "success", nil, nil, nil
		},
	}
	reg := newRegistryWith(t, slow)

	root := &workflow.Tree{
		Kind: workflow.KindSequence,
		Steps: []*workflow.Tree{
			{Kind: workflow.KindInvocation, NodeType: "slow", Config: map[string]any{}, Edges: map[string]*workflow.Tree{
				"success": {Kind: workflow.KindInvocation, NodeType: "slow", Config: map[string]any{}, Edges: map[string]*workflow.Tree{
					"success": {Kind: workflow.KindInvocation, NodeType: "slow", Config: map[string]any{}, Edges: map[string]*workflow.Tree{}},
				}},
			}},
		},
	}
	doc := &workflow.Document{ID: "wf-10", Root: root}

	cfg := DefaultConfig()
	cfg.WorkflowDefaultTimeout = 10 * time.Millisecond
	e := New(reg, hookbus.New(), cfg)
	result := e.Execute(context.Background(), doc, nil)

	require.Error(t, result.Err)
	assert.Equal(t, OutcomeCancelled, result.Outcome)
}
