// Package sls ties the template pre-pass and the tree builder together
// into the parse pipeline for Salt state files, plus the workspace
// helpers the language server builds on.
package sls

import (
	"github.com/tliron/commonlog"

	"github.com/dhamidi/sls-lsp/sls/parser"
	"github.com/dhamidi/sls-lsp/sls/render"
)

var log = commonlog.GetLogger("sls")

// Parse builds the tree for an SLS document. The rootDir is the states
// folder used to resolve template includes. Malformed document content
// never fails a parse; the only possible error is a template rendering
// failure, in which case no tree is produced.
func Parse(rootDir, document string) (*parser.Tree, error) {
	rendered, err := render.Render(rootDir, document)
	if err != nil {
		return nil, err
	}
	builder := parser.NewBuilder()
	builder.Diagnostics = func(message string) {
		log.Warning(message)
	}
	return builder.Run(rendered), nil
}
