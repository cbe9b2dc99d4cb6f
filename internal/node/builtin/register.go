package builtin

import "github.com/arcflow/mbflow/internal/registry"

// RegisterAll registers every reference node in a fresh *registry.Registry.
// openAIAPIKey is supplied by the host process (cmd/mbflowd); the database
// node reads its DSN from each invocation's config, so every node except
// llm-completion takes no construction arguments.
func RegisterAll(reg *registry.Registry, openAIAPIKey string) error {
	nodes := []registry.Node{
		LogNode{},
		MathNode{},
		NewLogicNode(),
		NewHTTPRequestNode(),
		NewDatabaseNode(),
		NewLLMCompletionNode(openAIAPIKey),
	}
	for _, n := range nodes {
		if err := reg.Register(n); err != nil {
			return err
		}
	}
	return nil
}
