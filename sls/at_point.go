package sls

import (
	"github.com/dhamidi/sls-lsp/sls/parser"
)

// PathToPosition returns the chain of nodes containing pos, outermost
// first. The innermost match is the last element. An empty slice means no
// node covers the position.
func PathToPosition(tree *parser.Tree, pos parser.Position) []parser.Node {
	var found parser.Node
	tree.Visit(func(node parser.Node) bool {
		if nodeContains(node, pos) {
			found = node
		}
		return true
	})
	if found == nil {
		return nil
	}

	var path []parser.Node
	for node := found; node != nil; node = node.Parent() {
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// nodeContains checks pos against the half-open interval [start, end). A
// node that was never closed extends to the end of the document.
func nodeContains(node parser.Node, pos parser.Position) bool {
	start, end := node.Start(), node.End()
	if start == nil || pos.Less(*start) {
		return false
	}
	return end == nil || pos.Less(*end)
}
