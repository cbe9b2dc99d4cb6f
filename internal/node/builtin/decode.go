// Package builtin provides the reference node implementations that ship with
// the engine: log, math, logic, database, http-request, and llm-completion.
// Each is a registry.Node that keeps no per-execution state (database and
// logic hold only mutex-guarded connection/program caches) and whose config
// arrives already resolved
// ($.path / {{$.path}} substitution already applied by the engine), so these
// nodes only need to decode and act on it.
package builtin

import (
	"encoding/json"
	"fmt"

	domainerrors "github.com/arcflow/mbflow/internal/domain/errors"
)

// decodeConfig marshals a resolved config map back to JSON and unmarshals it
// into T, grounded on the teacher's generic parseConfig[T] helper.
func decodeConfig[T any](nodeID string, config map[string]any) (*T, error) {
	data, err := json.Marshal(config)
	if err != nil {
		return nil, domainerrors.NewConfigurationError(nodeID, fmt.Sprintf("failed to marshal config: %v", err))
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, domainerrors.NewConfigurationError(nodeID, fmt.Sprintf("failed to decode config: %v", err))
	}
	return &out, nil
}
