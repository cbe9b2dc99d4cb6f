package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(m map[string]any) map[string]any { return m }

func TestFullReferencePreservesType(t *testing.T) {
	r := New()
	s := snap(map[string]any{"n": 3, "obj": map[string]any{"k": "v"}})

	v, err := r.Resolve("$.n", s)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = r.Resolve("$.obj", s)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, v)
}

func TestTemplateAlwaysString(t *testing.T) {
	r := New()
	s := snap(map[string]any{"n": 3})
	v, err := r.Resolve("got {{$.n}}", s)
	require.NoError(t, err)
	assert.Equal(t, "got 3", v)
}

func TestTemplateMissingKeyYieldsEmptyString(t *testing.T) {
	r := New()
	v, err := r.Resolve("hello {{$.missing}}!", snap(map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "hello !", v)
}

func TestFullReferenceMissingKeyPolicies(t *testing.T) {
	s := snap(map[string]any{})

	r := New()
	r.MissingKeyPolicy = PolicyUndefined
	v, err := r.Resolve("$.missing", s)
	require.NoError(t, err)
	assert.Nil(t, v)

	r.MissingKeyPolicy = PolicyPreserve
	v, err = r.Resolve("$.missing", s)
	require.NoError(t, err)
	assert.Equal(t, "$.missing", v)

	r.MissingKeyPolicy = PolicyThrow
	_, err = r.Resolve("$.missing", s)
	require.Error(t, err)
}

func TestIdempotentOnReferenceFreeValues(t *testing.T) {
	r := New()
	s := snap(map[string]any{"n": 1})
	cfg := map[string]any{"a": 1, "b": "plain string", "c": []any{1, "two", true}}
	v, err := r.Resolve(cfg, s)
	require.NoError(t, err)
	assert.Equal(t, cfg, v)
}

func TestSecondPassIsIdentity(t *testing.T) {
	r := New()
	s := snap(map[string]any{"n": 3})
	cfg := map[string]any{"msg": "got {{$.n}}", "ref": "$.n"}
	first, err := r.Resolve(cfg, s)
	require.NoError(t, err)
	second, err := r.Resolve(first, s)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRecursesThroughListsAndObjects(t *testing.T) {
	r := New()
	s := snap(map[string]any{"n": 5})
	cfg := map[string]any{
		"list": []any{"$.n", "value {{$.n}}", 42},
	}
	v, err := r.Resolve(cfg, s)
	require.NoError(t, err)
	list := v.(map[string]any)["list"].([]any)
	assert.Equal(t, 5, list[0])
	assert.Equal(t, "value 5", list[1])
	assert.Equal(t, 42, list[2])
}

func TestDepthCapExceeded(t *testing.T) {
	r := New()
	r.MaxDepth = 1
	cfg := map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}
	_, err := r.Resolve(cfg, map[string]any{})
	require.Error(t, err)
}

func TestObjectStringifiesAsJSONInTemplate(t *testing.T) {
	r := New()
	s := snap(map[string]any{"obj": map[string]any{"k": "v"}})
	v, err := r.Resolve("data: {{$.obj}}", s)
	require.NoError(t, err)
	assert.Contains(t, v.(string), `"k":"v"`)
}
