package builtin

import (
	"context"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	domainerrors "github.com/arcflow/mbflow/internal/domain/errors"
	"github.com/arcflow/mbflow/internal/registry"
)

// logicConfig is the decoded config for the logic node.
type logicConfig struct {
	// Condition is an expr-lang boolean expression evaluated against the
	// node's already-resolved config values (config["vars"]), not raw state
	// — the engine's resolver owns all $.path/{{$.path}} substitution.
	Condition string         `json:"condition"`
	Vars      map[string]any `json:"vars,omitempty"`
}

// LogicNode evaluates a boolean expr-lang expression and routes on "true" or
// "false". Grounded on the teacher's ConditionEvaluator (compiled-program
// cache over github.com/expr-lang/expr), narrowed to a single node's
// contract surface instead of a shared evaluator threaded through the whole
// executor.
type LogicNode struct {
	mu    sync.Mutex
	cache map[string]*vm.Program
}

func NewLogicNode() *LogicNode {
	return &LogicNode{cache: make(map[string]*vm.Program)}
}

func (n *LogicNode) Metadata() registry.Metadata {
	return registry.Metadata{
		ID:          "logic",
		Name:        "Logic",
		Version:     "1.0.0",
		Description: "Evaluates a boolean expression and routes to true or false.",
		Inputs:      []string{"condition", "vars"},
		Edges:       []string{"true", "false", "error"},
		Category:    "control-flow",
		AIHints: &registry.AIHints{
			Purpose:   "Decide between two branches, including the loop-continuation test for a looping invocation.",
			WhenToUse: "Use as the condition node of a loop, or anywhere a workflow needs to branch on computed state.",
		},
	}
}

func (n *LogicNode) compile(condition string) (*vm.Program, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if p, ok := n.cache[condition]; ok {
		return p, nil
	}
	p, err := expr.Compile(condition, expr.AsBool())
	if err != nil {
		return nil, err
	}
	n.cache[condition] = p
	return p, nil
}

func (n *LogicNode) Execute(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
	cfg, err := decodeConfig[logicConfig]("logic", config)
	if err != nil {
		return "", nil, nil, err
	}
	if cfg.Condition == "" {
		return "", nil, nil, domainerrors.NewConfigurationError("logic", "missing 'condition' in config")
	}

	program, err := n.compile(cfg.Condition)
	if err != nil {
		return "", nil, nil, domainerrors.NewConfigurationError("logic", fmt.Sprintf("invalid condition: %v", err))
	}

	result, err := expr.Run(program, cfg.Vars)
	if err != nil {
		return "", nil, nil, domainerrors.NewConfigurationError("logic", fmt.Sprintf("condition evaluation failed: %v", err))
	}

	if b, ok := result.(bool); ok && b {
		return "true", nil, nil, nil
	}
	return "false", nil, nil, nil
}
