package parser

import (
	"fmt"
	"strings"
)

type blockStart struct {
	token Token
	node  Node
}

// Builder assembles a Tree from the token stream of a rendered SLS
// document. Tokens arrive strictly in document order; the builder keeps a
// breadcrumb stack of open nodes and a parallel record of which
// collection-start token opened which node, so that end tokens can close
// exactly the nodes their start opened.
type Builder struct {
	tree        *Tree
	breadcrumbs []Node
	blockStarts []blockStart

	nextScalarAsKey  bool
	nextTokenIsValue bool

	collecting  bool
	unprocessed []*TokenNode

	lastStart *Position

	// Salt accepts sequence entries indented at the same column as their
	// parent key; the adjustment shifts entry columns so the level checks
	// still line up.
	colAdjustment int

	// Diagnostics receives notes about structural inconsistencies the
	// builder tolerated, such as close tokens with nothing left to
	// close. Nil means they are discarded.
	Diagnostics func(message string)
}

func (b *Builder) note(format string, args ...any) {
	if b.Diagnostics != nil {
		b.Diagnostics(fmt.Sprintf(format, args...))
	}
}

func NewBuilder() *Builder {
	tree := NewTree()
	return &Builder{
		tree:        tree,
		breadcrumbs: []Node{tree},
	}
}

func (b *Builder) Tree() *Tree { return b.tree }

func (b *Builder) last() Node {
	if len(b.breadcrumbs) == 0 {
		return nil
	}
	return b.breadcrumbs[len(b.breadcrumbs)-1]
}

func (b *Builder) pop() Node {
	last := b.last()
	if last != nil {
		b.breadcrumbs = b.breadcrumbs[:len(b.breadcrumbs)-1]
	}
	return last
}

// Process feeds one token into the tree under construction.
func (b *Builder) Process(tok Token) {
	tokenStart := tok.Start.Position()
	tokenEnd := tok.End.Position()
	if tok.Kind == TokenStreamStart {
		b.tree.SetStart(tokenStart)
	}
	if tok.Kind == TokenStreamEnd {
		b.tree.SetEnd(tokenEnd)
	}

	if tok.Kind.IsBlockStart() {
		b.processStart(tok)
	}

	if tok.Kind == TokenValue {
		b.nextTokenIsValue = true
		if _, ok := b.last().(*StateParameterNode); ok && len(b.unprocessed) == 0 {
			// The parameter's value is about to arrive; collect its
			// tokens verbatim until the parameter closes.
			b.collecting = true
			b.unprocessed = nil
			return
		}
	}

	if b.collecting {
		b.collect(tok)
	}

	if tok.Kind.IsBlockEnd() {
		b.processEnd(tok, tokenEnd)
	}

	if b.collecting {
		// The token went into the collected value; it carries no
		// structure of its own at this level.
		b.nextTokenIsValue = false
		return
	}

	if tok.Kind == TokenKey {
		b.nextScalarAsKey = true
		if m, ok := b.last().(MapNode); ok {
			added := m.Add()
			b.breadcrumbs = append(b.breadcrumbs, added)
			if b.lastStart != nil {
				added.SetStart(*b.lastStart)
				b.lastStart = nil
			} else {
				added.SetStart(tokenStart)
			}
		}
	}

	if tok.Kind == TokenBlockEntry {
		b.processBlockEntry(tok, tokenStart)
	}

	if tok.Kind == TokenScalar {
		b.processScalar(tok, tokenStart, tokenEnd)
	}
}

// processStart records which node owns the newly opened collection. The
// node on top of the breadcrumbs is the owner unless it already owns the
// previous start.
func (b *Builder) processStart(tok Token) {
	if last := b.last(); last != nil {
		if len(b.blockStarts) == 0 || b.blockStarts[len(b.blockStarts)-1].node != last {
			b.blockStarts = append(b.blockStarts, blockStart{token: tok, node: last})
		}
	}
	// a collection is starting, so the next token cannot be a plain value
	b.nextTokenIsValue = false
}

// collect buffers one token of a complex parameter value. A collection
// start inside the value temporarily becomes a breadcrumb of its own so
// that its end token pops it rather than the parameter.
func (b *Builder) collect(tok Token) {
	_, lastIsParam := b.last().(*StateParameterNode)
	if !lastIsParam || tok.Kind != TokenBlockEnd {
		b.unprocessed = append(b.unprocessed, NewTokenNode(tok))
	}
	if tok.Kind.IsBlockStart() {
		node := b.unprocessed[len(b.unprocessed)-1]
		b.breadcrumbs = append(b.breadcrumbs, node)
		b.blockStarts = append(b.blockStarts, blockStart{token: tok, node: node})
		b.nextTokenIsValue = false
	}
}

// processEnd closes the node opened by the matching collection start,
// together with any nodes stacked above it that have no start of their
// own.
func (b *Builder) processEnd(tok Token, tokenEnd Position) {
	if len(b.blockStarts) == 0 || len(b.breadcrumbs) == 0 {
		b.note("%s token with %d block starts and %d breadcrumbs left",
			tok.Kind, len(b.blockStarts), len(b.breadcrumbs))
		return
	}
	lastStart := b.blockStarts[len(b.blockStarts)-1]
	b.blockStarts = b.blockStarts[:len(b.blockStarts)-1]
	last := b.pop()

	closed := last
	for len(b.breadcrumbs) > 0 && closed != lastStart.node {
		closed.SetEnd(tokenEnd)
		closed = b.pop()
		last = closed
	}

	if _, isToken := last.(*TokenNode); !isToken {
		last.SetEnd(tokenEnd)
	}

	if _, isCall := last.(*StateCallNode); isCall {
		b.colAdjustment = 0
	}

	if param, ok := last.(*StateParameterNode); ok && b.collecting {
		if len(b.unprocessed) == 1 && b.unprocessed[0].Token.Kind == TokenScalar {
			param.Value = ScalarValue(b.unprocessed[0].Token.Value)
		} else {
			for _, node := range b.unprocessed {
				node.setParent(param)
			}
			param.Value = TokenSequence(b.unprocessed)
		}
		b.collecting = false
		b.unprocessed = nil
	}
}

func (b *Builder) processBlockEntry(tok Token, tokenStart Position) {
	last := b.last()
	sameLevel := last != nil && last.Start() != nil &&
		last.Start().Col == tok.Start.Col+b.colAdjustment

	if sameLevel {
		if call, ok := last.(*StateCallNode); ok {
			// Entries indented level with the state call: Salt tolerates
			// this, so shift the level checks and register the start
			// token the scanner never produced.
			b.colAdjustment = call.Start().Col
			b.blockStarts = append(b.blockStarts, blockStart{
				token: Token{Kind: TokenBlockMappingStart, Start: tok.Start, End: tok.End},
				node:  last,
			})
		} else {
			b.pop().SetEnd(tokenStart)
		}
	}

	switch current := b.last().(type) {
	case *StateCallNode:
		b.pushEntry(current.Add(), tokenStart)
	case *IncludesNode:
		b.pushEntry(current.Add(), tokenStart)
	case *RequisitesNode:
		b.pushEntry(current.Add(), tokenStart)
	case nil:
		b.note("entry token at %s with no open node", tokenStart)
	}
}

func (b *Builder) pushEntry(node Node, start Position) {
	b.breadcrumbs = append(b.breadcrumbs, node)
	node.SetStart(start)
}

func (b *Builder) processScalar(tok Token, tokenStart, tokenEnd Position) {
	last := b.last()
	if b.nextScalarAsKey {
		if setter, ok := last.(keySetter); ok {
			changed := setter.SetKey(tok.Value)
			// A different node back means the one on the stack was
			// reclassified; replace it everywhere it is referenced.
			if changed != last {
				old := b.pop()
				b.breadcrumbs = append(b.breadcrumbs, changed)
				for i, start := range b.blockStarts {
					if start.node == old {
						b.blockStarts[i].node = changed
					}
				}
			}
			b.nextScalarAsKey = false
		}
	} else {
		if include, ok := last.(*IncludeNode); ok {
			include.Value = tok.Value
			include.SetEnd(tokenEnd)
			b.pop()
			last = b.last()
		}
		if requisite, ok := last.(*RequisiteNode); ok {
			requisite.Reference = tok.Value
		}
		// Without the ':' typed yet the parameter name arrives as a
		// plain scalar.
		if param, ok := last.(*StateParameterNode); ok && param.Name == "" {
			param.Name = tok.Value
		}
		switch current := last.(type) {
		case *StateNode, *Tree:
			added := current.(MapNode).Add()
			added.SetStart(tokenStart)
			added.SetEnd(tokenEnd)
			if setter, ok := added.(keySetter); ok {
				setter.SetKey(tok.Value)
			}
			// this scalar is the plain value of the previous key and a
			// new entry starts with the next token, so the current
			// breadcrumb is done
			if b.nextTokenIsValue {
				popped := b.pop()
				if popped.End() == nil {
					popped.SetEnd(tokenEnd)
				}
			}
		}
	}

	b.nextTokenIsValue = false
}

// recover closes whatever is still open after the scanner gave up partway
// through the document. Nodes indented deeper than the error's context are
// closed at the context mark; the node level with it additionally receives
// the raw text between context and problem as a plain scalar; everything
// outer is simply stamped with the problem position.
func (b *Builder) recover(scanErr *ScanError, rendered string) {
	runes := []rune(rendered)
	for i := len(b.breadcrumbs) - 1; i >= 0; i-- {
		if i >= len(b.breadcrumbs) {
			break
		}
		node := b.breadcrumbs[i]
		start := node.Start()
		switch {
		case start != nil && scanErr.Context != nil && scanErr.Context.Col < start.Col:
			b.Process(Token{
				Kind:  TokenBlockEnd,
				Start: *scanErr.Context,
				End:   *scanErr.Context,
			})
		case start != nil && scanErr.Context != nil && scanErr.Context.Col == start.Col:
			b.Process(Token{
				Kind:  TokenBlockEnd,
				Start: *scanErr.Context,
				End:   *scanErr.Context,
			})
			value := strings.Trim(string(runes[scanErr.Context.Index:scanErr.Problem.Index]), "\r\n")
			b.Process(Token{
				Kind:  TokenScalar,
				Start: *scanErr.Context,
				End:   scanErr.Problem,
				Value: value,
			})
		default:
			node.SetEnd(scanErr.Problem.Position())
		}
	}
}

// Run scans the rendered document and assembles its tree. Scanning
// errors do not fail the build: the partial tree is recovered and
// returned, since the primary input is a file mid-edit.
func (b *Builder) Run(rendered string) *Tree {
	scanner := NewScanner(rendered)
	delivered := false
	for {
		tok, err := scanner.Next()
		if err != nil {
			if scanErr, ok := err.(*ScanError); ok && delivered {
				b.recover(scanErr, rendered)
			}
			return b.tree
		}
		b.Process(tok)
		delivered = true
		if tok.Kind == TokenStreamEnd {
			return b.tree
		}
	}
}

// Build parses a rendered document with a fresh builder.
func Build(rendered string) *Tree {
	return NewBuilder().Run(rendered)
}
