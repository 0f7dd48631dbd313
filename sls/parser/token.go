package parser

import "fmt"

// Position is a point in the rendered document, zero-based.
type Position struct {
	Line int
	Col  int
}

func (p Position) Less(other Position) bool {
	return p.Line < other.Line || (p.Line == other.Line && p.Col < other.Col)
}

func (p Position) Greater(other Position) bool {
	return p.Line > other.Line || (p.Line == other.Line && p.Col > other.Col)
}

func (p Position) LessEq(other Position) bool {
	return p == other || p.Less(other)
}

func (p Position) GreaterEq(other Position) bool {
	return p == other || p.Greater(other)
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Line+1, p.Col+1)
}

// Mark is a position plus the byte index into the rendered document,
// used for slicing text out of the document during error recovery.
type Mark struct {
	Index int
	Line  int
	Col   int
}

func (m Mark) Position() Position {
	return Position{Line: m.Line, Col: m.Col}
}

type TokenKind int

const (
	TokenStreamStart TokenKind = iota
	TokenStreamEnd
	TokenBlockMappingStart
	TokenBlockSequenceStart
	TokenBlockEnd
	TokenFlowSequenceStart
	TokenFlowSequenceEnd
	TokenFlowMappingStart
	TokenFlowMappingEnd
	TokenKey
	TokenValue
	TokenBlockEntry
	TokenFlowEntry
	TokenScalar
)

var tokenKindNames = map[TokenKind]string{
	TokenStreamStart:        "StreamStart",
	TokenStreamEnd:          "StreamEnd",
	TokenBlockMappingStart:  "BlockMappingStart",
	TokenBlockSequenceStart: "BlockSequenceStart",
	TokenBlockEnd:           "BlockEnd",
	TokenFlowSequenceStart:  "FlowSequenceStart",
	TokenFlowSequenceEnd:    "FlowSequenceEnd",
	TokenFlowMappingStart:   "FlowMappingStart",
	TokenFlowMappingEnd:     "FlowMappingEnd",
	TokenKey:                "Key",
	TokenValue:              "Value",
	TokenBlockEntry:         "BlockEntry",
	TokenFlowEntry:          "FlowEntry",
	TokenScalar:             "Scalar",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// IsBlockStart reports whether the token opens a block or flow collection.
func (k TokenKind) IsBlockStart() bool {
	switch k {
	case TokenBlockMappingStart, TokenBlockSequenceStart,
		TokenFlowSequenceStart, TokenFlowMappingStart:
		return true
	}
	return false
}

// IsBlockEnd reports whether the token closes a block or flow collection.
func (k TokenKind) IsBlockEnd() bool {
	switch k {
	case TokenBlockEnd, TokenFlowSequenceEnd, TokenFlowMappingEnd:
		return true
	}
	return false
}

// Token is one lexical unit of the rendered document. Value is only set
// for scalar tokens.
type Token struct {
	Kind  TokenKind
	Start Mark
	End   Mark
	Value string
}

func (t Token) String() string {
	if t.Kind == TokenScalar {
		return fmt.Sprintf("%s(%d,%d)%q", t.Kind, t.Start.Line, t.Start.Col, t.Value)
	}
	return fmt.Sprintf("%s(%d,%d)", t.Kind, t.Start.Line, t.Start.Col)
}

// ScanError is reported by the scanner for input it cannot tokenize.
// Context marks where the surrounding construct began (nil when there is
// no surrounding construct), Problem where the error was detected.
type ScanError struct {
	Message string
	Context *Mark
	Problem Mark
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Problem.Line+1, e.Problem.Col+1)
}
