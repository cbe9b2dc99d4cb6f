package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow/mbflow/internal/registry"
)

func TestRegisterAll(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, "sk-test"))

	for _, id := range []string{"log", "math", "logic", "http-request", "database", "llm-completion"} {
		assert.True(t, reg.Has(id), "expected %q to be registered", id)
	}
}
