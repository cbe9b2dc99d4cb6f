package builtin

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/arcflow/mbflow/internal/registry"
)

// logConfig is the decoded config for the log node.
type logConfig struct {
	Level   string `json:"level,omitempty"`
	Message string `json:"message"`
}

// LogNode writes a message through zerolog at the configured level.
// Grounded on the teacher's pervasive use of github.com/rs/zerolog/log across
// node executors for structured diagnostic output.
type LogNode struct{}

func (LogNode) Metadata() registry.Metadata {
	return registry.Metadata{
		ID:          "log",
		Name:        "Log",
		Version:     "1.0.0",
		Description: "Writes a message to the structured log.",
		Inputs:      []string{"message", "level"},
		Edges:       []string{"success"},
		Category:    "diagnostics",
		AIHints: &registry.AIHints{
			Purpose:   "Emit a diagnostic message without affecting state.",
			WhenToUse: "Use between steps to surface intermediate values while building a workflow.",
		},
	}
}

func (LogNode) Execute(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
	cfg, err := decodeConfig[logConfig]("log", config)
	if err != nil {
		return "", nil, nil, err
	}

	event := log.Info()
	switch cfg.Level {
	case "debug":
		event = log.Debug()
	case "warn":
		event = log.Warn()
	case "error":
		event = log.Error()
	}
	event.Msg(cfg.Message)

	return "success", nil, nil, nil
}
