// Package render implements the template pre-pass that turns a raw SLS
// document into plain YAML-dialect text the tokenizer can scan. It
// supports the template subset that matters for position-faithful
// parsing: expression substitution with tracing stand-ins for the salt,
// pillar and grains lookups, file includes relative to a root directory,
// and neutralization of statements whose effect cannot be known without
// a real minion.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const skippedLine = "# skipped line"

// TemplateError reports a failure while rendering the template pre-pass
// output. It is the only error kind a parse surfaces to its caller;
// everything later in the pipeline degrades to a partial tree instead.
type TemplateError struct {
	Message string
	Line    int
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error at line %d: %s", e.Line+1, e.Message)
}

// Renderer renders SLS documents rooted at a states directory. The root
// is used to resolve {% include %} directives.
type Renderer struct {
	rootDir string
	names   map[string]value

	// active include chain, for cycle detection
	including []string
}

func NewRenderer(rootDir string) *Renderer {
	return &Renderer{
		rootDir: rootDir,
		names: map[string]value{
			"grains": newResponder("grains"),
			"pillar": newResponder("pillar"),
			"salt":   newResponder("salt"),
		},
	}
}

// Render is a convenience wrapper around NewRenderer().Render.
func Render(rootDir, document string) (string, error) {
	return NewRenderer(rootDir).Render(document)
}

// Render produces the text handed to the tokenizer. Line count of the
// input is preserved for everything except include splices, so positions
// reported against the rendered text stay meaningful in the raw one.
func (r *Renderer) Render(document string) (string, error) {
	filtered := filterFromImports(document)
	// the trailing newline of a template is not part of its output
	filtered = strings.TrimSuffix(filtered, "\n")
	return r.renderText(filtered)
}

// filterFromImports blanks every line carrying a from-import directive.
// Importing symbols into template scope cannot be supported without
// executing the imported template, and leaving the line in would turn
// into a hard template error; an inert placeholder keeps the line count
// intact.
func filterFromImports(document string) string {
	lines := strings.Split(document, "\n")
	for i, line := range lines {
		if strings.Contains(line, "{% from") {
			lines[i] = skippedLine
		}
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) renderText(text string) (string, error) {
	var out strings.Builder
	rest := text
	offset := 0
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 || open+1 >= len(rest) {
			out.WriteString(rest)
			return out.String(), nil
		}
		switch rest[open+1] {
		case '{':
			out.WriteString(rest[:open])
			length, replacement, err := r.renderExpression(rest[open:], offset+open, text)
			if err != nil {
				return "", err
			}
			out.WriteString(replacement)
			rest = rest[open+length:]
			offset += open + length
		case '%':
			out.WriteString(rest[:open])
			length, replacement, err := r.renderStatement(rest[open:], offset+open, text)
			if err != nil {
				return "", err
			}
			out.WriteString(replacement)
			rest = rest[open+length:]
			offset += open + length
		case '#':
			out.WriteString(rest[:open])
			end := strings.Index(rest[open:], "#}")
			if end < 0 {
				return "", errorAt(text, offset+open, "unterminated comment")
			}
			rest = rest[open+end+2:]
			offset += open + end + 2
		default:
			out.WriteString(rest[:open+1])
			rest = rest[open+1:]
			offset += open + 1
		}
	}
}

func (r *Renderer) renderExpression(rest string, pos int, text string) (int, string, error) {
	end := strings.Index(rest, "}}")
	if end < 0 {
		return 0, "", errorAt(text, pos, "unterminated expression")
	}
	inner := strings.Trim(rest[2:end], "- \t\r\n")
	v, ok := evalExpression(inner, r.names)
	if !ok {
		// outside the supported subset, resolve like an undefined name
		return end + 2, "", nil
	}
	return end + 2, v.render(), nil
}

func (r *Renderer) renderStatement(rest string, pos int, text string) (int, string, error) {
	end := strings.Index(rest, "%}")
	if end < 0 {
		return 0, "", errorAt(text, pos, "unterminated statement")
	}
	inner := strings.Trim(rest[2:end], "- \t\r\n")
	if name, ok := strings.CutPrefix(inner, "include "); ok {
		spliced, err := r.renderInclude(strings.TrimSpace(name), pos, text)
		if err != nil {
			return 0, "", err
		}
		return end + 2, spliced, nil
	}
	// control-flow and assignment statements are dropped: their bodies
	// stay in place so every line of the document keeps existing
	return end + 2, "", nil
}

func (r *Renderer) renderInclude(name string, pos int, text string) (string, error) {
	unquoted, ok := unquote(name)
	if !ok {
		return "", errorAt(text, pos, "include needs a quoted template name")
	}
	path := filepath.Join(r.rootDir, filepath.FromSlash(unquoted))
	for _, active := range r.including {
		if active == path {
			return "", errorAt(text, pos, "include cycle through "+unquoted)
		}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errorAt(text, pos, "cannot include "+unquoted)
	}
	r.including = append(r.including, path)
	defer func() { r.including = r.including[:len(r.including)-1] }()

	included := filterFromImports(string(content))
	included = strings.TrimSuffix(included, "\n")
	return r.renderText(included)
}

func unquote(name string) (string, bool) {
	if len(name) >= 2 {
		first, last := name[0], name[len(name)-1]
		if first == last && (first == '\'' || first == '"') {
			return name[1 : len(name)-1], true
		}
	}
	return "", false
}

func errorAt(text string, pos int, message string) error {
	return &TemplateError{
		Message: message,
		Line:    strings.Count(text[:pos], "\n"),
	}
}
