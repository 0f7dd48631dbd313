package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Visitor is applied to a node; returning true descends into children.
type Visitor func(Node) bool

// Node is implemented by every element of the tree. Start and End are nil
// until the node's extent is known; a nil End after parsing means the node
// was never closed and consumers must treat it as running to the end of
// the document.
type Node interface {
	Start() *Position
	End() *Position
	SetStart(Position)
	SetEnd(Position)
	Parent() Node
	GetID() string
	Symbol() string
	Visit(Visitor)
}

// MapNode is a node that holds an ordered list of children and grows by
// one provisional child at a time: the child's key arrives later and may
// reclassify it (see SetKey on the child types).
type MapNode interface {
	Node
	Add() Node
	Children() []Node
}

// keySetter is implemented by nodes whose key token names them. The
// returned node is the one that finally received the key; it differs from
// the receiver when the node had to be converted, in which case every
// outstanding reference to the receiver must be replaced.
type keySetter interface {
	SetKey(key string) Node
}

type node struct {
	start  *Position
	end    *Position
	parent Node
}

func (n *node) Start() *Position    { return n.start }
func (n *node) End() *Position      { return n.end }
func (n *node) SetStart(p Position) { n.start = &p }
func (n *node) SetEnd(p Position)   { n.end = &p }
func (n *node) Parent() Node        { return n.parent }

func visitAll(n MapNode, v Visitor) {
	if v(n) {
		for _, child := range n.Children() {
			child.Visit(v)
		}
	}
}

// Tree is the root node of a parsed SLS document.
type Tree struct {
	node
	Includes *IncludesNode
	Extend   *ExtendNode
	States   []*StateNode
}

func NewTree() *Tree { return &Tree{} }

func (t *Tree) Symbol() string { return "T" }
func (t *Tree) GetID() string  { return "" }

func (t *Tree) Add() Node {
	state := &StateNode{node: node{parent: t}}
	t.States = append(t.States, state)
	return state
}

func (t *Tree) Children() []Node {
	var children []Node
	if t.Includes != nil {
		children = append(children, t.Includes)
	}
	if t.Extend != nil {
		children = append(children, t.Extend)
	}
	for _, s := range t.States {
		children = append(children, s)
	}
	return children
}

func (t *Tree) Visit(v Visitor) { visitAll(t, v) }

// Convert replaces a provisional top-level state whose key turned out to
// be "include" or "extend" with the tree's singleton node of that role.
func (t *Tree) Convert(state *StateNode, name string) Node {
	for i, s := range t.States {
		if s == state {
			t.States = append(t.States[:i], t.States[i+1:]...)
			break
		}
	}
	switch name {
	case "include":
		t.Includes = &IncludesNode{node: node{parent: t, start: state.start}}
		return t.Includes
	case "extend":
		t.Extend = &ExtendNode{node: node{parent: t, start: state.start}}
		return t.Extend
	}
	return t
}

func (t *Tree) String() string {
	var sb strings.Builder
	dump(&sb, t, 0)
	return sb.String()
}

// IncludesNode is the list under a top-level include key. It is
// deliberately not a MapNode: positions inside it resolve to the list
// itself, which is what include-path completion keys off.
type IncludesNode struct {
	node
	Includes []*IncludeNode
}

func (n *IncludesNode) Symbol() string { return "I" }
func (n *IncludesNode) GetID() string  { return "" }
func (n *IncludesNode) Visit(v Visitor) {
	v(n)
}

func (n *IncludesNode) Add() Node {
	inc := &IncludeNode{node: node{parent: n}}
	n.Includes = append(n.Includes, inc)
	return inc
}

// IncludeNode is one entry of an includes list.
type IncludeNode struct {
	node
	Value string
}

func (n *IncludeNode) Symbol() string  { return "i" }
func (n *IncludeNode) GetID() string   { return n.Value }
func (n *IncludeNode) Visit(v Visitor) { v(n) }

// GetFile resolves the dotted include value against the path of the top
// states folder, trying <dest>/init.sls before <dest>.sls. It returns ""
// when the value is empty or neither candidate exists.
func (n *IncludeNode) GetFile(topPath string) string {
	if n.Value == "" {
		return ""
	}
	abs, err := filepath.Abs(topPath)
	if err != nil {
		return ""
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	dest := filepath.Join(strings.Split(n.Value, ".")...)
	initPath := filepath.Join(abs, dest, "init.sls")
	if _, err := os.Stat(initPath); err == nil {
		return initPath
	}
	entryPath := filepath.Join(abs, dest+".sls")
	if _, err := os.Stat(entryPath); err == nil {
		return entryPath
	}
	return ""
}

// ExtendNode is the block under a top-level extend key.
type ExtendNode struct {
	node
	States []*StateNode
}

func (n *ExtendNode) Symbol() string { return "E" }
func (n *ExtendNode) GetID() string  { return "" }

func (n *ExtendNode) Add() Node {
	state := &StateNode{node: node{parent: n}}
	n.States = append(n.States, state)
	return state
}

func (n *ExtendNode) Children() []Node {
	children := make([]Node, len(n.States))
	for i, s := range n.States {
		children[i] = s
	}
	return children
}

func (n *ExtendNode) Visit(v Visitor) { visitAll(n, v) }

// StateNode is one state-ID block.
type StateNode struct {
	node
	Identifier string
	Calls      []*StateCallNode
}

func (n *StateNode) Symbol() string { return "S" }
func (n *StateNode) GetID() string  { return n.Identifier }

func (n *StateNode) Add() Node {
	call := &StateCallNode{node: node{parent: n}}
	n.Calls = append(n.Calls, call)
	return call
}

func (n *StateNode) Children() []Node {
	children := make([]Node, len(n.Calls))
	for i, c := range n.Calls {
		children[i] = c
	}
	return children
}

func (n *StateNode) Visit(v Visitor) { visitAll(n, v) }

// SetKey sets the state identifier. A top-level key of include or extend
// means this node was misparsed as a state and the tree takes over.
func (n *StateNode) SetKey(key string) Node {
	if key == "include" || key == "extend" {
		if tree, ok := n.parent.(*Tree); ok {
			return tree.Convert(n, key)
		}
	}
	n.Identifier = key
	return n
}

// StateCallNode is one module.function invocation under a state ID.
type StateCallNode struct {
	node
	Name       string
	Parameters []*StateParameterNode
	Requisites []*RequisitesNode
}

func (n *StateCallNode) Symbol() string { return "C" }
func (n *StateCallNode) GetID() string  { return n.Name }

func (n *StateCallNode) Add() Node {
	param := &StateParameterNode{node: node{parent: n}}
	n.Parameters = append(n.Parameters, param)
	return param
}

func (n *StateCallNode) Children() []Node {
	var children []Node
	for _, p := range n.Parameters {
		children = append(children, p)
	}
	for _, r := range n.Requisites {
		children = append(children, r)
	}
	return children
}

func (n *StateCallNode) Visit(v Visitor) { visitAll(n, v) }

func (n *StateCallNode) SetKey(key string) Node {
	n.Name = key
	return n
}

// Convert turns a provisional parameter into a requisites list of the
// given kind, inheriting the parameter's start position.
func (n *StateCallNode) Convert(param *StateParameterNode, kind string) Node {
	for i, p := range n.Parameters {
		if p == param {
			n.Parameters = append(n.Parameters[:i], n.Parameters[i+1:]...)
			break
		}
	}
	requisites := &RequisitesNode{node: node{parent: n, start: param.start}, Kind: kind}
	n.Requisites = append(n.Requisites, requisites)
	return requisites
}

// ParameterValue is either a ScalarValue or a TokenSequence: scalar
// parameter values are unwrapped to their text, anything more complex is
// kept as the raw token run so that consumers can redisplay it verbatim.
type ParameterValue interface {
	isParameterValue()
}

type ScalarValue string

func (ScalarValue) isParameterValue() {}

type TokenSequence []*TokenNode

func (TokenSequence) isParameterValue() {}

// StateParameterNode is one parameter of a state call.
type StateParameterNode struct {
	node
	Name  string
	Value ParameterValue
}

func (n *StateParameterNode) Symbol() string  { return "P" }
func (n *StateParameterNode) GetID() string   { return n.Name }
func (n *StateParameterNode) Visit(v Visitor) { v(n) }

var requisiteKinds = buildRequisiteKinds()

func buildRequisiteKinds() map[string]bool {
	bases := []string{"require", "onchanges", "watch", "listen", "prereq", "onfail", "use"}
	kinds := make(map[string]bool, len(bases)*3)
	for _, base := range bases {
		kinds[base] = true
		kinds[base+"_any"] = true
		kinds[base+"_in"] = true
	}
	return kinds
}

// IsRequisiteKind reports whether name is one of the requisite keywords
// that reclassify a parameter into a requisites list.
func IsRequisiteKind(name string) bool { return requisiteKinds[name] }

// SetKey names the parameter. A requisite keyword under a state call means
// this is not a parameter at all and the call converts it.
func (n *StateParameterNode) SetKey(key string) Node {
	if IsRequisiteKind(key) {
		if call, ok := n.parent.(*StateCallNode); ok {
			return call.Convert(n, key)
		}
	}
	n.Name = key
	return n
}

// RequisitesNode is the list of requisites of one kind, e.g. require.
type RequisitesNode struct {
	node
	Kind       string
	Requisites []*RequisiteNode
}

func (n *RequisitesNode) Symbol() string { return "R" }
func (n *RequisitesNode) GetID() string  { return n.Kind }

func (n *RequisitesNode) Add() Node {
	req := &RequisiteNode{node: node{parent: n}}
	n.Requisites = append(n.Requisites, req)
	return req
}

func (n *RequisitesNode) Children() []Node {
	children := make([]Node, len(n.Requisites))
	for i, r := range n.Requisites {
		children[i] = r
	}
	return children
}

func (n *RequisitesNode) Visit(v Visitor) { visitAll(n, v) }

func (n *RequisitesNode) SetKey(key string) Node {
	n.Kind = key
	return n
}

// RequisiteNode is one requisite reference, e.g. service: libvirtd.
type RequisiteNode struct {
	node
	Module    string
	Reference string
}

func (n *RequisiteNode) Symbol() string  { return "r" }
func (n *RequisiteNode) GetID() string   { return n.Module + "-" + n.Reference }
func (n *RequisiteNode) Visit(v Visitor) { v(n) }

func (n *RequisiteNode) SetKey(key string) Node {
	n.Module = key
	return n
}

// TokenNode wraps one unprocessed token verbatim. It only occurs inside
// complex parameter values and, transiently, on the builder's breadcrumb
// stack while such a value is being collected.
type TokenNode struct {
	node
	Token Token
}

func NewTokenNode(tok Token) *TokenNode {
	n := &TokenNode{Token: tok}
	n.SetStart(tok.Start.Position())
	n.SetEnd(tok.End.Position())
	return n
}

func (n *TokenNode) Symbol() string  { return "?" }
func (n *TokenNode) GetID() string   { return "" }
func (n *TokenNode) Visit(v Visitor) { v(n) }

func (n *TokenNode) setParent(parent Node) { n.parent = parent }

// --- outline dump ---

func posString(p *Position) string {
	if p == nil {
		return "(None,None)"
	}
	return fmt.Sprintf("(%d,%d)", p.Line+1, p.Col+1)
}

func dumpLine(sb *strings.Builder, n Node, indent int, id string) {
	if indent > 0 {
		sb.WriteString(strings.Repeat(" ", indent-2))
		sb.WriteString("|_")
	}
	sb.WriteString(n.Symbol())
	sb.WriteString(" ")
	if id != "" {
		sb.WriteString(id + " ")
	}
	fmt.Fprintf(sb, "%s <-> %s\n", posString(n.Start()), posString(n.End()))
}

func dump(sb *strings.Builder, n Node, indent int) {
	id := n.GetID()
	if param, ok := n.(*StateParameterNode); ok {
		if scalar, isScalar := param.Value.(ScalarValue); isScalar {
			id += "=" + string(scalar)
		}
	}
	dumpLine(sb, n, indent, id)
	switch v := n.(type) {
	case *IncludesNode:
		for _, inc := range v.Includes {
			dump(sb, inc, indent+2)
		}
	case MapNode:
		for _, child := range v.Children() {
			dump(sb, child, indent+2)
		}
	}
}
