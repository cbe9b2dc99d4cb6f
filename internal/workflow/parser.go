// Package workflow parses a JSON workflow document (spec §3.1/§6.1) into
// the internal tree described in §3.4, and validates it structurally and
// against a node registry, per §4.4.
package workflow

import (
	"fmt"
	"regexp"
	"strings"

	domainerrors "github.com/arcflow/mbflow/internal/domain/errors"
)

const DefaultMaxNestingDepth = 32

var (
	versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	setterKeyPattern = regexp.MustCompile(`^\$\.[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
)

// NodeLookup is the minimal Registry seam the parser needs: whether a node
// id is known. Satisfied by *registry.Registry.
type NodeLookup interface {
	Has(id string) bool
}

// Issue is one structural or semantic problem found while parsing. Warning
// issues (e.g. a loop with no null exit edge) never fail Parse; they are
// only surfaced through Validate.
type Issue struct {
	Path    string
	Message string
	Warning bool
}

// Result is the outcome of Validate: the same checks Parse runs, without
// requiring the tree to be usable.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

// Parser transforms documents into Document trees.
type Parser struct {
	Registry        NodeLookup
	MaxNestingDepth int
}

// New returns a Parser with the spec's default nesting depth (32).
func New(registry NodeLookup) *Parser {
	return &Parser{Registry: registry, MaxNestingDepth: DefaultMaxNestingDepth}
}

// Parse parses doc into a Document, or returns *domainerrors.WorkflowValidationError
// listing every structural/semantic issue found.
func (p *Parser) Parse(doc []byte) (*Document, error) {
	d, issues := p.parse(doc)
	var hard []domainerrors.ValidationIssue
	for _, iss := range issues {
		if !iss.Warning {
			hard = append(hard, domainerrors.ValidationIssue{Path: iss.Path, Message: iss.Message})
		}
	}
	if len(hard) > 0 {
		return nil, domainerrors.NewWorkflowValidationError(hard)
	}
	return d, nil
}

// Validate runs the same checks as Parse without requiring the tree to be
// usable by a caller, suitable for pre-flight UI checks (spec §4.4).
func (p *Parser) Validate(doc []byte) Result {
	_, issues := p.parse(doc)
	res := Result{Valid: true}
	for _, iss := range issues {
		if iss.Warning {
			res.Warnings = append(res.Warnings, iss)
		} else {
			res.Errors = append(res.Errors, iss)
			res.Valid = false
		}
	}
	return res
}

func (p *Parser) parse(doc []byte) (*Document, []Issue) {
	var issues []Issue

	root, err := ParseOValue(doc)
	if err != nil {
		return nil, []Issue{{Path: "$", Message: fmt.Sprintf("invalid JSON: %v", err)}}
	}
	if root.Kind != KObject {
		return nil, []Issue{{Path: "$", Message: "document must be a JSON object"}}
	}
	obj := root.Obj

	d := &Document{}

	idv, ok := obj.Get("id")
	if !ok || idv.Kind != KString || idv.Str == "" {
		issues = append(issues, Issue{Path: "$.id", Message: "id is required and must be a non-empty string"})
	} else {
		d.ID = idv.Str
	}

	namev, ok := obj.Get("name")
	if !ok || namev.Kind != KString || namev.Str == "" {
		issues = append(issues, Issue{Path: "$.name", Message: "name is required and must be a non-empty string"})
	} else {
		d.Name = namev.Str
	}

	versionv, ok := obj.Get("version")
	if !ok || versionv.Kind != KString || !versionPattern.MatchString(versionv.Str) {
		issues = append(issues, Issue{Path: "$.version", Message: "version is required and must match \\d+.\\d+.\\d+"})
	} else {
		d.Version = versionv.Str
	}

	d.InitialState = map[string]any{}
	if initv, ok := obj.Get("initialState"); ok && initv.Kind != KNull {
		if initv.Kind != KObject {
			issues = append(issues, Issue{Path: "$.initialState", Message: "initialState must be an object"})
		} else {
			d.InitialState = initv.ToPlain().(map[string]any)
		}
	}

	wv, ok := obj.Get("workflow")
	if !ok || wv.Kind != KArray {
		issues = append(issues, Issue{Path: "$.workflow", Message: "workflow is required and must be an array"})
		return d, issues
	}

	steps := make([]*Tree, 0, len(wv.Arr))
	for i, stepVal := range wv.Arr {
		path := fmt.Sprintf("workflow[%d]", i)
		tree, stepIssues := p.parseStep(stepVal, path, 1)
		issues = append(issues, stepIssues...)
		if tree != nil {
			steps = append(steps, tree)
		}
	}
	d.Root = &Tree{Kind: KindSequence, Steps: steps, SourcePath: "workflow"}

	return d, issues
}

// parseStep parses one step: a node-invocation object or a state-setter
// object. Edge targets share this same grammar (spec §4.4) plus the
// sequence (list) and null (terminal) forms.
func (p *Parser) parseStep(v *OValue, path string, depth int) (*Tree, []Issue) {
	if depth > p.MaxNestingDepth {
		return nil, []Issue{{Path: path, Message: fmt.Sprintf("max nesting depth %d exceeded", p.MaxNestingDepth)}}
	}

	switch v.Kind {
	case KNull:
		return &Tree{Kind: KindTerminal, SourcePath: path}, nil
	case KArray:
		var issues []Issue
		steps := make([]*Tree, 0, len(v.Arr))
		for i, el := range v.Arr {
			elPath := fmt.Sprintf("%s[%d]", path, i)
			t, elIssues := p.parseStep(el, elPath, depth+1)
			issues = append(issues, elIssues...)
			if t != nil {
				steps = append(steps, t)
			}
		}
		return &Tree{Kind: KindSequence, Steps: steps, SourcePath: path}, issues
	case KObject:
		return p.parseObjectStep(v.Obj, path, depth)
	default:
		return nil, []Issue{{Path: path, Message: "step must be an object, an array, or null"}}
	}
}

func (p *Parser) parseObjectStep(obj *OObject, path string, depth int) (*Tree, []Issue) {
	var issues []Issue

	if dups := obj.Duplicates(); len(dups) > 0 {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf("duplicate keys: %s", strings.Join(dups, ", "))})
	}
	if len(obj.Keys) != 1 {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf("step must have exactly one key, found %d", len(obj.Keys))})
		return nil, issues
	}

	key := obj.Keys[0]
	val, _ := obj.Get(key)

	if setterKeyPattern.MatchString(key) {
		return &Tree{
			Kind:       KindSetter,
			SetterPath: strings.TrimPrefix(key, "$."),
			SetterExpr: val.ToPlain(),
			SourcePath: path,
		}, issues
	}

	nodeType := key
	isLoop := strings.HasSuffix(key, "...")
	if isLoop {
		nodeType = strings.TrimSuffix(key, "...")
	}
	if nodeType == "" {
		issues = append(issues, Issue{Path: path, Message: "node type key must be non-empty"})
		return nil, issues
	}
	if val.Kind != KObject {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf("body of %q must be an object", key)})
		return nil, issues
	}

	if p.Registry != nil && !p.Registry.Has(nodeType) {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf("unknown node type %q", nodeType)})
	}

	inv, bodyIssues := p.parseBody(nodeType, isLoop, val.Obj, path, depth)
	issues = append(issues, bodyIssues...)
	return inv, issues
}

func (p *Parser) parseBody(nodeType string, isLoop bool, obj *OObject, path string, depth int) (*Tree, []Issue) {
	var issues []Issue

	if dups := obj.Duplicates(); len(dups) > 0 {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf("duplicate keys in body: %s", strings.Join(dups, ", "))})
	}

	inv := &Tree{
		Kind:       KindInvocation,
		NodeType:   nodeType,
		IsLoop:     isLoop,
		Config:     map[string]any{},
		Edges:      map[string]*Tree{},
		SourcePath: path,
	}

	hasNullExit := false
	for _, key := range obj.Keys {
		val, _ := obj.Get(key)
		switch {
		case setterKeyPattern.MatchString(key):
			inv.InlineSetters = append(inv.InlineSetters, Setter{
				Path: strings.TrimPrefix(key, "$."),
				Expr: val.ToPlain(),
			})
		case strings.HasSuffix(key, "?"):
			edgeName := strings.TrimSuffix(key, "?")
			edgePath := fmt.Sprintf("%s.%s", path, key)
			target, edgeIssues := p.parseStep(val, edgePath, depth+1)
			issues = append(issues, edgeIssues...)
			inv.Edges[edgeName] = target
			if target != nil && target.Kind == KindTerminal {
				hasNullExit = true
			}
		default:
			inv.Config[key] = val.ToPlain()
		}
	}

	if isLoop && !hasNullExit {
		issues = append(issues, Issue{
			Path:    path,
			Message: fmt.Sprintf("loop node %q declares no edge target that exits the loop (null target)", nodeType),
			Warning: true,
		})
	}

	return inv, issues
}
