// Package state implements the per-execution keyed state map the engine
// threads through a workflow run: dotted-path get/set, snapshotting, and
// top-level key enumeration.
package state

import (
	"strings"
	"sync"

	domainerrors "github.com/arcflow/mbflow/internal/domain/errors"
)

// Manager is an in-memory, per-execution keyed map with dotted-path
// accessors, grounded on the teacher's mutex-guarded ExecutionState/
// VariableSet pattern and extended to nested paths.
//
// All operations are expected to be serialized by the caller (the engine's
// single-threaded driver); the mutex here guards against accidental
// concurrent reads from hook subscribers inspecting a snapshot while the
// engine continues to mutate the live map.
type Manager struct {
	mu   sync.RWMutex
	data map[string]any
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{data: make(map[string]any)}
}

// Initialize seeds state from the workflow's declared initial map, then
// applies overlay on top (overlay keys win), per spec §4.6.1.
func Initialize(seed, overlay map[string]any) *Manager {
	m := New()
	for k, v := range seed {
		m.data[k] = v
	}
	for k, v := range overlay {
		m.data[k] = v
	}
	return m
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// Get performs a segment-wise lookup; it returns (value, true) on a hit or
// (nil, false) if any segment along the path is absent.
func (m *Manager) Get(path string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lookup(m.data, splitPath(path))
}

// LookupPath performs the same segment-wise lookup as Get but against an
// arbitrary map, typically a Snapshot. Used by the resolver to evaluate
// "$.path" references without re-locking the live Manager.
func LookupPath(data map[string]any, path string) (any, bool) {
	return lookup(data, splitPath(path))
}

func lookup(cur map[string]any, segments []string) (any, bool) {
	if len(segments) == 0 {
		return nil, false
	}
	v, ok := cur[segments[0]]
	if !ok {
		return nil, false
	}
	if len(segments) == 1 {
		return v, true
	}
	next, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return lookup(next, segments[1:])
}

// Set creates intermediate objects as needed and overwrites any existing
// leaf or intermediate value at path. It fails with StateShapeError when an
// intermediate segment already holds a non-object value.
func (m *Manager) Set(path string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return assign(m.data, splitPath(path), value, path)
}

func assign(cur map[string]any, segments []string, value any, fullPath string) error {
	key := segments[0]
	if len(segments) == 1 {
		cur[key] = value
		return nil
	}
	next, ok := cur[key]
	if !ok {
		nm := make(map[string]any)
		cur[key] = nm
		return assign(nm, segments[1:], value, fullPath)
	}
	nm, ok := next.(map[string]any)
	if !ok {
		return domainerrors.NewStateShapeError(fullPath, nil)
	}
	return assign(nm, segments[1:], value, fullPath)
}

// Keys returns the top-level key list.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// Snapshot returns an immutable deep-copied view suitable for event payloads
// and resolver substitution; mutating the returned map never affects live
// state.
func (m *Manager) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return deepCopy(m.data).(map[string]any)
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
