package codebase

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhamidi/sls-lsp/sls"
	"github.com/dhamidi/sls-lsp/sls/parser"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "salt-sls"

// LanguageID is the language identifier clients use for Salt state files.
const LanguageID = "sls"

type LSPServer struct {
	codebase *Codebase
	handler  protocol.Handler
	server   *server.Server
	version  string

	completionsPath string
}

func NewLSPServer(version string) *LSPServer {
	ls := &LSPServer{
		version: version,
	}

	ls.handler = protocol.Handler{
		Initialize:                 ls.initialize,
		Initialized:                ls.initialized,
		Shutdown:                   ls.shutdown,
		SetTrace:                   ls.setTrace,
		TextDocumentDidOpen:        ls.textDocumentDidOpen,
		TextDocumentDidChange:      ls.textDocumentDidChange,
		TextDocumentDidClose:       ls.textDocumentDidClose,
		TextDocumentDidSave:        ls.textDocumentDidSave,
		TextDocumentCompletion:     ls.textDocumentCompletion,
		TextDocumentDefinition:     ls.textDocumentDefinition,
		TextDocumentDocumentSymbol: ls.textDocumentDocumentSymbol,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *LSPServer) RunStdio() error {
	return ls.server.RunStdio()
}

// SetCompletionsPath points the server at a state module metadata dump to
// load on initialization. It takes precedence over the SLS_STATE_MODULES
// environment variable.
func (ls *LSPServer) SetCompletionsPath(path string) {
	ls.completionsPath = path
}

func (ls *LSPServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	rootDir := "."
	if params.RootPath != nil && *params.RootPath != "" {
		rootDir = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			rootDir = path
		}
	}

	ls.codebase = New(rootDir)

	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"-", ".", " "},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *LSPServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	ls.codebase.ScanAll()
	path := ls.completionsPath
	if path == "" {
		path = os.Getenv("SLS_STATE_MODULES")
	}
	if path != "" {
		if completions, err := LoadCompletions(path); err == nil {
			ls.codebase.SetCompletions(completions)
		}
	}
	return nil
}

func (ls *LSPServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *LSPServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *LSPServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	ls.codebase.UpdateFile(path, []byte(params.TextDocument.Text))
	return nil
}

func (ls *LSPServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	if len(params.ContentChanges) > 0 {
		change := params.ContentChanges[len(params.ContentChanges)-1]
		if textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			ls.codebase.UpdateFile(path, []byte(textChange.Text))
		}
	}
	return nil
}

func (ls *LSPServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	return nil
}

func (ls *LSPServer) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	if params.Text != nil {
		ls.codebase.UpdateFile(path, []byte(*params.Text))
	} else {
		ls.codebase.ScanFile(path)
	}
	return nil
}

func (ls *LSPServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}
	file := ls.codebase.GetFile(path)
	if file == nil {
		return nil, nil
	}

	pos := parser.Position{
		Line: int(params.Position.Line),
		Col:  int(params.Position.Character),
	}

	if params.Context != nil && params.Context.TriggerCharacter != nil &&
		*params.Context.TriggerCharacter == "." {
		return completionItems(ls.completeSubname(file, pos)), nil
	}

	if file.Tree == nil {
		return nil, nil
	}
	nodePath := sls.PathToPosition(file.Tree, pos)
	if len(nodePath) == 0 {
		return nil, nil
	}
	last := nodePath[len(nodePath)-1]

	_, atIncludes := last.(*parser.IncludesNode)
	_, atParameter := last.(*parser.StateParameterNode)
	if atIncludes || (IsTopFile(path) && atParameter) {
		// an entry under include, or under a top.sls environment,
		// completes to the sls files of the workspace
		var items []protocol.CompletionItem
		for _, include := range sls.GetSlsIncludes(path) {
			items = append(items, protocol.CompletionItem{Label: " " + include})
		}
		return items, nil
	}

	switch last.(type) {
	case *parser.StateNode:
		return completionItems(ls.completeModuleNames()), nil
	case *parser.StateCallNode:
		return completionItems(ls.completeSubname(file, pos)), nil
	case *parser.StateParameterNode:
		if len(nodePath) < 2 {
			return nil, nil
		}
		call, ok := nodePath[len(nodePath)-2].(*parser.StateCallNode)
		if !ok {
			return nil, nil
		}
		return completionItems(ls.completeParameters(call)), nil
	}
	return nil, nil
}

// completeModuleNames offers every known state module at a position where
// a state call is expected.
func (ls *LSPServer) completeModuleNames() []Completion {
	var completions []Completion
	for name, completer := range ls.codebase.Completions() {
		if !strings.Contains(name, ".") {
			completions = append(completions, completer.ProvideNameCompletion()...)
		}
	}
	return completions
}

// completeSubname offers the submodules of the state module named right
// before the cursor, e.g. managed and absent after "file.".
func (ls *LSPServer) completeSubname(file *FileInfo, pos parser.Position) []Completion {
	name := moduleNameBefore(file.Content, pos)
	if name == "" {
		return nil
	}
	completer := ls.codebase.Completions()[name]
	if completer == nil {
		return nil
	}
	return completer.ProvideSubnameCompletion()
}

func (ls *LSPServer) completeParameters(call *parser.StateCallNode) []Completion {
	parts := strings.Split(call.Name, ".")
	if len(parts) != 2 {
		return nil
	}
	completer := ls.codebase.Completions()[parts[0]]
	if completer == nil {
		return nil
	}
	var completions []Completion
	for _, param := range completer.ProvideParamCompletion(parts[1]) {
		completions = append(completions, Completion{Label: param})
	}
	return completions
}

// moduleNameBefore extracts the state module name typed before the
// trigger character, e.g. "file" at the cursor in "  file.|".
func moduleNameBefore(content []byte, pos parser.Position) string {
	lines := strings.Split(string(content), "\n")
	if pos.Line < 0 || pos.Line >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	end := pos.Col - 1
	if end < 0 || end > len(line) {
		return ""
	}
	name := strings.TrimLeft(line[:end], " \t")
	if name == "" || strings.ContainsAny(name, "-:") {
		return ""
	}
	return name
}

func completionItems(completions []Completion) any {
	if len(completions) == 0 {
		return nil
	}
	items := make([]protocol.CompletionItem, 0, len(completions))
	for _, c := range completions {
		item := protocol.CompletionItem{Label: c.Label}
		if c.Docs != "" {
			item.Documentation = c.Docs
		}
		items = append(items, item)
	}
	return items
}

func (ls *LSPServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}
	tree := ls.codebase.GetTree(path)
	if tree == nil {
		return nil, nil
	}

	pos := parser.Position{
		Line: int(params.Position.Line),
		Col:  int(params.Position.Character),
	}
	nodePath := sls.PathToPosition(tree, pos)
	if len(nodePath) == 0 {
		return nil, nil
	}

	// jumping to a definition is only handled on requisite references
	requisite, ok := nodePath[len(nodePath)-1].(*parser.RequisiteNode)
	if !ok || requisite.Reference == "" {
		return nil, nil
	}

	foundPath, state := ls.codebase.FindStateID(requisite.Reference, path)
	if state == nil {
		return nil, nil
	}
	span, ok := nodeRange(state)
	if !ok {
		return nil, nil
	}
	return protocol.Location{
		URI:   pathToURI(foundPath),
		Range: span,
	}, nil
}

func (ls *LSPServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}
	tree := ls.codebase.GetTree(path)
	if tree == nil {
		return nil, nil
	}
	return documentSymbols(tree), nil
}

func documentSymbols(tree *parser.Tree) []protocol.DocumentSymbol {
	var symbols []protocol.DocumentSymbol
	if tree.Includes != nil {
		if symbol, ok := newSymbol(tree.Includes, "include", protocol.SymbolKindNamespace); ok {
			for _, include := range tree.Includes.Includes {
				if child, ok := newSymbol(include, include.Value, protocol.SymbolKindFile); ok {
					symbol.Children = append(symbol.Children, child)
				}
			}
			symbols = append(symbols, symbol)
		}
	}
	if tree.Extend != nil {
		if symbol, ok := newSymbol(tree.Extend, "extend", protocol.SymbolKindNamespace); ok {
			symbol.Children = stateSymbols(tree.Extend.States)
			symbols = append(symbols, symbol)
		}
	}
	return append(symbols, stateSymbols(tree.States)...)
}

func stateSymbols(states []*parser.StateNode) []protocol.DocumentSymbol {
	var symbols []protocol.DocumentSymbol
	for _, state := range states {
		symbol, ok := newSymbol(state, state.Identifier, protocol.SymbolKindClass)
		if !ok {
			continue
		}
		for _, call := range state.Calls {
			callSymbol, ok := newSymbol(call, call.Name, protocol.SymbolKindFunction)
			if !ok {
				continue
			}
			for _, param := range call.Parameters {
				if name := param.Name; name != "" {
					if child, ok := newSymbol(param, name, protocol.SymbolKindProperty); ok {
						callSymbol.Children = append(callSymbol.Children, child)
					}
				}
			}
			for _, requisites := range call.Requisites {
				if child, ok := newSymbol(requisites, requisites.Kind, protocol.SymbolKindArray); ok {
					callSymbol.Children = append(callSymbol.Children, child)
				}
			}
			symbol.Children = append(symbol.Children, callSymbol)
		}
		symbols = append(symbols, symbol)
	}
	return symbols
}

func newSymbol(node parser.Node, name string, kind protocol.SymbolKind) (protocol.DocumentSymbol, bool) {
	span, ok := nodeRange(node)
	if !ok || name == "" {
		return protocol.DocumentSymbol{}, false
	}
	return protocol.DocumentSymbol{
		Name:           name,
		Kind:           kind,
		Range:          span,
		SelectionRange: span,
	}, true
}

// nodeRange converts a node's span to a protocol range; nodes that never
// received positions yield none.
func nodeRange(node parser.Node) (protocol.Range, bool) {
	start, end := node.Start(), node.End()
	if start == nil {
		return protocol.Range{}, false
	}
	if end == nil {
		end = start
	}
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(start.Line), Character: protocol.UInteger(start.Col)},
		End:   protocol.Position{Line: protocol.UInteger(end.Line), Character: protocol.UInteger(end.Col)},
	}, true
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func pathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	return "file://" + filepath.ToSlash(path)
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(kind protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &kind
}
