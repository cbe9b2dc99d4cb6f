package workflow

// Kind discriminates the four parsed-tree node kinds of spec §3.4.
type Kind int

const (
	KindInvocation Kind = iota
	KindSequence
	KindSetter
	KindTerminal
)

// Setter is a "$.<path>" assignment: a step in its own right, or one of a
// body's embedded inline setters (run before the node is invoked).
type Setter struct {
	Path string
	Expr any
}

// Tree is one node of the parsed workflow tree (spec §3.4). Only the fields
// relevant to Kind are populated; this is intentionally a flat struct with
// three independent collections (Config/InlineSetters/Edges) rather than a
// tagged union, per spec §9's "avoid runtime type discrimination in the hot
// path" design note.
type Tree struct {
	Kind Kind

	// Invocation fields.
	NodeType      string
	IsLoop        bool
	Config        map[string]any
	InlineSetters []Setter
	Edges         map[string]*Tree // edge name -> subtree; absent key means "no route defined"

	// Sequence fields.
	Steps []*Tree

	// Setter fields.
	SetterPath string
	SetterExpr any

	// SourcePath is the diagnostic path, e.g. "workflow[0].success?".
	SourcePath string
}

// Document is the parsed form of a workflow document (spec §3.1).
type Document struct {
	ID           string
	Name         string
	Version      string
	InitialState map[string]any
	Root         *Tree // a Sequence of the top-level workflow steps
}
