// Package registry implements the Node Registry: a keyed catalog of Node
// implementations and their metadata, grounded on the teacher's
// mutex-guarded map-of-factories pattern but built around a dynamic string
// identifier instead of a closed NodeType enum.
package registry

import (
	"context"
	"reflect"
	"regexp"
	"sync"

	domainerrors "github.com/arcflow/mbflow/internal/domain/errors"
)

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// AIHints carries the optional reflection/introspection metadata named in
// spec §3.3: purpose, when-to-use guidance, an example configuration, and
// the state paths a node is documented to read/write.
type AIHints struct {
	Purpose       string         `json:"purpose,omitempty"`
	WhenToUse     string         `json:"whenToUse,omitempty"`
	ExampleConfig map[string]any `json:"exampleConfig,omitempty"`
	StateReads    []string       `json:"stateReads,omitempty"`
	StateWrites   []string       `json:"stateWrites,omitempty"`
}

// Metadata is the serializable description of a node exposed to the
// out-of-scope reflection layer per spec §6.2.
type Metadata struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Inputs      []string `json:"inputs"`
	Outputs     []string `json:"outputs"`
	Edges       []string `json:"edges"`
	Category    string   `json:"category,omitempty"`
	Source      string   `json:"source,omitempty"`
	AIHints     *AIHints `json:"aiHints,omitempty"`
	// Retryable surfaces the teacher's retry-metadata idiom at the hook-bus
	// diagnostic layer only; the engine itself never retries (see SPEC_FULL §12).
	Retryable bool `json:"retryable,omitempty"`
}

// StateView is the read-only view of state passed into Execute; it is
// backed by a pre-invocation snapshot so node implementations cannot
// observe writes made by earlier steps in the same invocation out of order.
type StateView interface {
	Get(path string) (any, bool)
}

// Write is one (path, value) pair a node asks the engine to apply to state.
type Write struct {
	Path  string
	Value any
}

// Node is a process-global, stateless value implementing spec §3.3/§6.2.
// Variants are distinguished purely by registry identifier; no inheritance
// hierarchy is required.
type Node interface {
	Metadata() Metadata
	Execute(ctx context.Context, config map[string]any, view StateView) (edge string, writes []Write, result any, err error)
}

// Registry is a keyed catalog of Node implementations, safe for concurrent
// use: registration is expected at process startup, lookups happen on
// every invocation from possibly many concurrent executions (spec §5).
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]Node
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{nodes: make(map[string]Node)}
}

// Register inserts node, keyed by its own declared metadata ID. It fails
// with DuplicateNodeError if the id is taken by a node whose metadata
// differs; re-registering the identical metadata is allowed (idempotent).
func (r *Registry) Register(n Node) error {
	meta := n.Metadata()
	if !idPattern.MatchString(meta.ID) {
		return domainerrors.NewConfigurationError("registry",
			"node id must match [a-z][a-z0-9-]*: "+meta.ID)
	}
	if len(meta.Edges) == 0 {
		return domainerrors.NewConfigurationError("registry",
			"node "+meta.ID+" must declare at least one edge")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.nodes[meta.ID]; ok {
		if !reflect.DeepEqual(existing.Metadata(), meta) {
			return domainerrors.NewDuplicateNodeError(meta.ID)
		}
		return nil
	}
	r.nodes[meta.ID] = n
	return nil
}

// Lookup returns the node registered under id, if any.
func (r *Registry) Lookup(id string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	return n, ok
}

// Metadata returns the metadata of the node registered under id, if any.
func (r *Registry) Metadata(id string) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	if !ok {
		return Metadata{}, false
	}
	return n.Metadata(), true
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.nodes[id]
	return ok
}

// List returns the metadata of every registered node for which filter
// returns true; a nil filter returns every node's metadata.
func (r *Registry) List(filter func(Metadata) bool) []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.nodes))
	for _, n := range r.nodes {
		meta := n.Metadata()
		if filter == nil || filter(meta) {
			out = append(out, meta)
		}
	}
	return out
}
