package engine

import (
	"time"

	"github.com/arcflow/mbflow/internal/resolver"
)

// Config is the "environment-like configuration" struct of spec §6.4. The
// core itself never reads environment variables; a caller (e.g. cmd/mbflowd)
// assembles this from whatever configuration source it prefers.
type Config struct {
	MaxNestingDepth          int
	MaxLoopIterations        int
	ResolverMaxDepth         int
	ResolverMissingKeyPolicy resolver.MissingKeyPolicy
	EventBufferCapacity      int
	NodeDefaultTimeout       time.Duration
	WorkflowDefaultTimeout   time.Duration
}

// DefaultConfig returns the spec §6.4 defaults.
func DefaultConfig() Config {
	return Config{
		MaxNestingDepth:          32,
		MaxLoopIterations:        10_000,
		ResolverMaxDepth:         10,
		ResolverMissingKeyPolicy: resolver.PolicyUndefined,
		EventBufferCapacity:      1000,
	}
}
