package render

import "strings"

// value is the result of evaluating a template expression.
type value interface {
	// render is the text substituted for the expression in the output.
	render() string
	// repr is the literal-ish form used when the value appears as a call
	// or index argument.
	repr() string
}

type stringValue string

func (v stringValue) render() string { return string(v) }
func (v stringValue) repr() string   { return "'" + string(v) + "'" }

type numberValue string

func (v numberValue) render() string { return string(v) }
func (v numberValue) repr() string   { return string(v) }

// undefinedValue stands in for every name the render context cannot
// resolve. It renders as nothing and absorbs any further access.
type undefinedValue struct{}

func (undefinedValue) render() string { return "" }
func (undefinedValue) repr() string   { return "" }

// responder records every attribute access, index and call made on it and
// renders as a quoted trace of the accumulated expression. Pre-binding
// the grains, pillar and salt names to responders lets lookups that only
// the real configuration management engine could answer render as
// plausible scalar text instead of failing.
type responder struct {
	trace string
}

func newResponder(name string) responder { return responder{trace: name} }

func (r responder) render() string { return `"` + r.trace + `"` }
func (r responder) repr() string   { return r.render() }

func (r responder) attr(name string) responder {
	return responder{trace: r.trace + "." + name}
}

func (r responder) index(key value) responder {
	return responder{trace: r.trace + "[" + key.repr() + "]"}
}

func (r responder) call(args []value) responder {
	reprs := make([]string, len(args))
	for i, arg := range args {
		reprs[i] = arg.repr()
	}
	joined := "[]"
	if len(args) > 0 {
		joined = strings.Join(reprs, ", ")
	}
	return responder{trace: r.trace + "(" + joined + ")"}
}
