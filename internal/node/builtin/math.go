package builtin

import (
	"context"
	"fmt"

	domainerrors "github.com/arcflow/mbflow/internal/domain/errors"
	"github.com/arcflow/mbflow/internal/registry"
	"github.com/arcflow/mbflow/internal/utils"
)

// mathConfig is the decoded config for the math node. Operands are already
// resolved numbers by the time this node runs: the resolver performs no
// arithmetic of its own (decided in the grounding ledger's Open Question 1),
// so loop counters and similar accumulation go through this node instead.
type mathConfig struct {
	Operation string  `json:"operation"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	OutputKey string  `json:"outputKey,omitempty"`
}

// MathNode performs one arithmetic operation and writes the result.
type MathNode struct{}

func (MathNode) Metadata() registry.Metadata {
	return registry.Metadata{
		ID:          "math",
		Name:        "Math",
		Version:     "1.0.0",
		Description: "Performs add/subtract/multiply/divide on two resolved numbers.",
		Inputs:      []string{"operation", "a", "b", "outputKey"},
		Outputs:     []string{"result"},
		Edges:       []string{"success", "error"},
		Category:    "arithmetic",
		AIHints: &registry.AIHints{
			Purpose:   "Compute a new number from two existing state values, such as a loop counter increment.",
			WhenToUse: "Use inside a loop body to advance a counter, since $.path references never evaluate expressions.",
		},
	}
}

func (MathNode) Execute(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
	cfg, err := decodeConfig[mathConfig]("math", config)
	if err != nil {
		return "", nil, nil, err
	}

	var result float64
	switch cfg.Operation {
	case "add":
		result = cfg.A + cfg.B
	case "subtract":
		result = cfg.A - cfg.B
	case "multiply":
		result = cfg.A * cfg.B
	case "divide":
		if cfg.B == 0 {
			return "", nil, nil, domainerrors.NewConfigurationError("math", "division by zero")
		}
		result = cfg.A / cfg.B
	default:
		return "", nil, nil, domainerrors.NewConfigurationError("math", fmt.Sprintf("unknown operation %q", cfg.Operation))
	}

	outputKey := utils.DefaultValue(cfg.OutputKey, "result")

	return "success", []registry.Write{{Path: outputKey, Value: result}}, nil, nil
}
