package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct{ known map[string]bool }

func (f fakeRegistry) Has(id string) bool { return f.known[id] }

func reg(ids ...string) fakeRegistry {
	m := map[string]bool{}
	for _, id := range ids {
		m[id] = true
	}
	return fakeRegistry{known: m}
}

func TestParseLinearSuccessDocument(t *testing.T) {
	doc := []byte(`{
		"id":"a","name":"A","version":"1.0.0",
		"initialState":{"n":1},
		"workflow":[
			{"math":{"operation":"add","values":["$.n",2],
				"success?":{"log":{"message":"got {{$.mathResult}}"}}}}
		]
	}`)
	p := New(reg("math", "log"))
	d, err := p.Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "a", d.ID)
	require.Len(t, d.Root.Steps, 1)
	inv := d.Root.Steps[0]
	assert.Equal(t, KindInvocation, inv.Kind)
	assert.Equal(t, "math", inv.NodeType)
	assert.False(t, inv.IsLoop)
	assert.Contains(t, inv.Edges, "success")
}

func TestParseUnknownNodeRejected(t *testing.T) {
	doc := []byte(`{"id":"a","name":"A","version":"1.0.0","workflow":[{"nonexistent":{}}]}`)
	p := New(reg())
	_, err := p.Parse(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestParseRequiresVersionFormat(t *testing.T) {
	doc := []byte(`{"id":"a","name":"A","version":"bad","workflow":[]}`)
	p := New(reg())
	_, err := p.Parse(doc)
	require.Error(t, err)
}

func TestParseEmptyWorkflowSucceeds(t *testing.T) {
	doc := []byte(`{"id":"a","name":"A","version":"1.0.0","workflow":[]}`)
	p := New(reg())
	d, err := p.Parse(doc)
	require.NoError(t, err)
	assert.Empty(t, d.Root.Steps)
}

func TestParseStateSetterStep(t *testing.T) {
	doc := []byte(`{"id":"a","name":"A","version":"1.0.0","workflow":[{"$.completed":true}]}`)
	p := New(reg())
	d, err := p.Parse(doc)
	require.NoError(t, err)
	require.Len(t, d.Root.Steps, 1)
	assert.Equal(t, KindSetter, d.Root.Steps[0].Kind)
	assert.Equal(t, "completed", d.Root.Steps[0].SetterPath)
}

func TestParseDuplicateKeysRejected(t *testing.T) {
	doc := []byte(`{"id":"a","name":"A","version":"1.0.0","workflow":[
		{"math":{"operation":"add","operation":"sub"}}
	]}`)
	p := New(reg("math"))
	_, err := p.Parse(doc)
	require.Error(t, err)
}

func TestParseStepMustHaveExactlyOneKey(t *testing.T) {
	doc := []byte(`{"id":"a","name":"A","version":"1.0.0","workflow":[
		{"math":{}, "log":{}}
	]}`)
	p := New(reg("math", "log"))
	_, err := p.Parse(doc)
	require.Error(t, err)
}

func TestParseInlineSettersPreserveSourceOrder(t *testing.T) {
	doc := []byte(`{"id":"a","name":"A","version":"1.0.0","workflow":[
		{"math":{"$.first":1,"operation":"add","$.second":2}}
	]}`)
	p := New(reg("math"))
	d, err := p.Parse(doc)
	require.NoError(t, err)
	inv := d.Root.Steps[0]
	require.Len(t, inv.InlineSetters, 2)
	assert.Equal(t, "first", inv.InlineSetters[0].Path)
	assert.Equal(t, "second", inv.InlineSetters[1].Path)
}

func TestParseLoopWithoutNullExitWarns(t *testing.T) {
	doc := []byte(`{"id":"a","name":"A","version":"1.0.0","workflow":[
		{"logic...":{"condition":"$.i","true?":{"log":{}}}}
	]}`)
	p := New(reg("logic", "log"))
	res := p.Validate(doc)
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
}

func TestParseNestingDepthLimit(t *testing.T) {
	p := New(reg("log"))
	p.MaxNestingDepth = 2
	doc := []byte(`{"id":"a","name":"A","version":"1.0.0","workflow":[
		{"log":{"success?":{"log":{"success?":{"log":{}}}}}}
	]}`)
	_, err := p.Parse(doc)
	require.Error(t, err)
}

func TestValidateReturnsIssuesWithoutFailing(t *testing.T) {
	doc := []byte(`{"id":"","name":"A","version":"1.0.0","workflow":[]}`)
	p := New(reg())
	res := p.Validate(doc)
	assert.False(t, res.Valid)
	require.NotEmpty(t, res.Errors)
}

func TestParseEdgeTargetSequence(t *testing.T) {
	doc := []byte(`{"id":"a","name":"A","version":"1.0.0","workflow":[
		{"log":{"success?":[{"log":{}},{"$.done":true}]}}
	]}`)
	p := New(reg("log"))
	d, err := p.Parse(doc)
	require.NoError(t, err)
	target := d.Root.Steps[0].Edges["success"]
	require.Equal(t, KindSequence, target.Kind)
	require.Len(t, target.Steps, 2)
}
