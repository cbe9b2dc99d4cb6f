package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNode_Success(t *testing.T) {
	n := LogNode{}
	edge, writes, result, err := n.Execute(context.Background(), map[string]any{
		"level": "debug", "message": "hello",
	}, fakeView{})

	require.NoError(t, err)
	assert.Equal(t, "success", edge)
	assert.Nil(t, writes)
	assert.Nil(t, result)
}

func TestLogNode_DefaultLevel(t *testing.T) {
	n := LogNode{}
	edge, _, _, err := n.Execute(context.Background(), map[string]any{"message": "hi"}, fakeView{})
	require.NoError(t, err)
	assert.Equal(t, "success", edge)
}

func TestLogNode_Metadata(t *testing.T) {
	meta := LogNode{}.Metadata()
	assert.Equal(t, "log", meta.ID)
	assert.Contains(t, meta.Edges, "success")
}
