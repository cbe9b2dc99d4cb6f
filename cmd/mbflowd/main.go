// Command mbflowd loads one workflow document, validates it, executes it
// once, and prints the result. It is a minimal reference host: wiring the
// registry, hook bus, parser, and engine together is the whole of its job,
// grounded on the teacher's cmd/server entry point style (env-driven config,
// zerolog bootstrap) without the REST surface that command exposed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/arcflow/mbflow/internal/config"
	"github.com/arcflow/mbflow/internal/engine"
	"github.com/arcflow/mbflow/internal/hookbus"
	"github.com/arcflow/mbflow/internal/infrastructure/logger"
	"github.com/arcflow/mbflow/internal/node/builtin"
	"github.com/arcflow/mbflow/internal/registry"
	"github.com/arcflow/mbflow/internal/workflow"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel)

	if len(args) != 1 {
		return fmt.Errorf("usage: mbflowd <workflow.json>")
	}

	doc, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading workflow document: %w", err)
	}

	reg := registry.New()
	if err := builtin.RegisterAll(reg, os.Getenv("OPENAI_API_KEY")); err != nil {
		return fmt.Errorf("registering nodes: %w", err)
	}

	engineCfg := engine.DefaultConfig()

	parser := workflow.New(reg)
	parser.MaxNestingDepth = engineCfg.MaxNestingDepth
	parsed, err := parser.Parse(doc)
	if err != nil {
		return fmt.Errorf("invalid workflow document: %w", err)
	}

	bus := hookbus.New()
	bus.SetBufferCapacity(engineCfg.EventBufferCapacity)
	bus.Register(hookbus.WorkflowBeforeStart, hookbus.NewLoggingSubscriber(log))
	bus.Register(hookbus.WorkflowAfterEnd, hookbus.NewLoggingSubscriber(log))
	bus.Register(hookbus.WorkflowError, hookbus.NewLoggingSubscriber(log))
	bus.Register(hookbus.NodeError, hookbus.NewLoggingSubscriber(log))

	e := engine.New(reg, bus, engineCfg)
	result := e.Execute(context.Background(), parsed, nil)

	return printResult(os.Stdout, result)
}

func printResult(w io.Writer, result *engine.Result) error {
	payload := map[string]any{
		"executionId":  result.ExecutionID,
		"workflowId":   result.WorkflowID,
		"outcome":      result.Outcome,
		"finalState":   result.FinalState,
		"terminalEdge": result.TerminalEdge,
		"durationMs":   result.Duration.Milliseconds(),
	}
	if result.Err != nil {
		payload["error"] = result.Err.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
