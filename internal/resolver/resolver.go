// Package resolver implements the state-reference substitution language: the
// full-reference "$.path" form (type-preserving) and the "{{$.path}}"
// template form (string-building), applied recursively over a configuration
// value tree. Grounded on the teacher's TemplateProcessor/ConditionEvaluator
// regex-plus-expr-lang approach, narrowed to this closed grammar.
package resolver

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	domainerrors "github.com/arcflow/mbflow/internal/domain/errors"
	"github.com/arcflow/mbflow/internal/state"
)

// MissingKeyPolicy controls what happens when a full-reference path is
// absent from state. Template interpolation always uses the silent
// undefined->"" rule regardless of this policy, per spec §4.2.
type MissingKeyPolicy string

const (
	PolicyUndefined MissingKeyPolicy = "undefined"
	PolicyPreserve  MissingKeyPolicy = "preserve"
	PolicyThrow     MissingKeyPolicy = "throw"
)

const DefaultMaxDepth = 10

var (
	fullRefPattern = regexp.MustCompile(`^\$\.[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	templatePattern = regexp.MustCompile(`\{\{\s*(\$\.[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\s*\}\}`)
)

// Resolver is a pure, stateless transformer: it holds only configuration
// (max depth, missing-key policy), never mutable state of its own.
type Resolver struct {
	MaxDepth         int
	MissingKeyPolicy MissingKeyPolicy
}

// New returns a Resolver with the spec's defaults (depth 10, undefined
// missing-key policy).
func New() *Resolver {
	return &Resolver{MaxDepth: DefaultMaxDepth, MissingKeyPolicy: PolicyUndefined}
}

// Resolve deep-transforms value by substituting state references, against
// snapshot (normally state.Manager.Snapshot()). It never mutates snapshot.
func (r *Resolver) Resolve(value any, snapshot map[string]any) (any, error) {
	return r.resolve(value, snapshot, 0)
}

func (r *Resolver) resolve(value any, snapshot map[string]any, depth int) (any, error) {
	if depth > r.MaxDepth {
		return nil, domainerrors.NewResolverDepthError(r.MaxDepth)
	}
	switch v := value.(type) {
	case string:
		return r.resolveString(v, snapshot)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			resolved, err := r.resolve(val, snapshot, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			resolved, err := r.resolve(val, snapshot, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

// resolveString implements the two-mode dispatch of spec §4.2: a string that
// is entirely a full reference is type-preserving; otherwise any embedded
// {{$.path}} occurrences are replaced with their stringified values.
func (r *Resolver) resolveString(s string, snapshot map[string]any) (any, error) {
	if fullRefPattern.MatchString(s) {
		path := strings.TrimPrefix(s, "$.")
		val, ok := state.LookupPath(snapshot, path)
		if !ok {
			switch r.MissingKeyPolicy {
			case PolicyThrow:
				return nil, domainerrors.NewStateKeyMissingError(path)
			case PolicyPreserve:
				return s, nil
			default:
				return nil, nil
			}
		}
		return val, nil
	}

	if !templatePattern.MatchString(s) {
		return s, nil
	}

	result := templatePattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := templatePattern.FindStringSubmatch(match)
		path := strings.TrimPrefix(sub[1], "$.")
		val, ok := state.LookupPath(snapshot, path)
		if !ok {
			return ""
		}
		return stringify(val)
	})
	return result, nil
}

// stringify implements spec §4.2's template stringification rules:
// null/undefined -> "", objects/lists -> JSON text, scalars -> standard form.
func stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}
