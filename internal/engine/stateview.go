package engine

import "github.com/arcflow/mbflow/internal/state"

// snapshotView adapts a plain state snapshot to registry.StateView, the
// read-only view a Node's Execute receives, per spec §3.3 ("a read-only
// view of state plus a write channel" — the write channel is the returned
// []registry.Write slice, not a live handle into state).
type snapshotView struct {
	data map[string]any
}

func (v snapshotView) Get(path string) (any, bool) {
	return state.LookupPath(v.data, path)
}
