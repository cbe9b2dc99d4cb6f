package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeView struct{ data map[string]any }

func (v fakeView) Get(path string) (any, bool) {
	val, ok := v.data[path]
	return val, ok
}

func TestMathNode_Add(t *testing.T) {
	n := MathNode{}
	edge, writes, _, err := n.Execute(context.Background(), map[string]any{
		"operation": "add", "a": 2.0, "b": 3.0,
	}, fakeView{})

	require.NoError(t, err)
	assert.Equal(t, "success", edge)
	require.Len(t, writes, 1)
	assert.Equal(t, "result", writes[0].Path)
	assert.Equal(t, 5.0, writes[0].Value)
}

func TestMathNode_DivideByZero(t *testing.T) {
	n := MathNode{}
	_, _, _, err := n.Execute(context.Background(), map[string]any{
		"operation": "divide", "a": 1.0, "b": 0.0,
	}, fakeView{})
	assert.Error(t, err)
}

func TestMathNode_UnknownOperation(t *testing.T) {
	n := MathNode{}
	_, _, _, err := n.Execute(context.Background(), map[string]any{
		"operation": "modulo", "a": 1.0, "b": 2.0,
	}, fakeView{})
	assert.Error(t, err)
}

func TestMathNode_CustomOutputKey(t *testing.T) {
	n := MathNode{}
	_, writes, _, err := n.Execute(context.Background(), map[string]any{
		"operation": "multiply", "a": 3.0, "b": 4.0, "outputKey": "product",
	}, fakeView{})
	require.NoError(t, err)
	require.Len(t, writes, 1)
	assert.Equal(t, "product", writes[0].Path)
	assert.Equal(t, 12.0, writes[0].Value)
}
