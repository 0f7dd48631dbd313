package render

import "unicode"

// exprParser evaluates the expression subset that occurs between {{ and
// }} in SLS files: a root name followed by any chain of attribute
// accesses, index lookups and calls, with string and number literals as
// arguments.
type exprParser struct {
	src []rune
	pos int
}

// evalExpression evaluates src against the given names. ok is false when
// the expression uses syntax outside the supported subset; the caller
// then substitutes nothing, mirroring the undefined-tolerant policy.
func evalExpression(src string, names map[string]value) (value, bool) {
	p := &exprParser{src: []rune(src)}
	v, ok := p.expression(names)
	if !ok {
		return nil, false
	}
	p.skipSpaces()
	if p.pos != len(p.src) {
		return nil, false
	}
	return v, true
}

func (p *exprParser) expression(names map[string]value) (value, bool) {
	v, ok := p.primary(names)
	if !ok {
		return nil, false
	}
	for {
		p.skipSpaces()
		switch {
		case p.accept('.'):
			name, ok := p.ident()
			if !ok {
				return nil, false
			}
			if r, isResponder := v.(responder); isResponder {
				v = r.attr(name)
			} else {
				v = undefinedValue{}
			}
		case p.accept('['):
			key, ok := p.expression(names)
			if !ok {
				return nil, false
			}
			p.skipSpaces()
			if !p.accept(']') {
				return nil, false
			}
			if r, isResponder := v.(responder); isResponder {
				v = r.index(key)
			} else {
				v = undefinedValue{}
			}
		case p.accept('('):
			args, ok := p.arguments(names)
			if !ok {
				return nil, false
			}
			if r, isResponder := v.(responder); isResponder {
				v = r.call(args)
			} else {
				v = undefinedValue{}
			}
		default:
			return v, true
		}
	}
}

func (p *exprParser) arguments(names map[string]value) ([]value, bool) {
	var args []value
	p.skipSpaces()
	if p.accept(')') {
		return args, true
	}
	for {
		arg, ok := p.expression(names)
		if !ok {
			return nil, false
		}
		args = append(args, arg)
		p.skipSpaces()
		if p.accept(')') {
			return args, true
		}
		if !p.accept(',') {
			return nil, false
		}
	}
}

func (p *exprParser) primary(names map[string]value) (value, bool) {
	p.skipSpaces()
	if p.pos >= len(p.src) {
		return nil, false
	}
	ch := p.src[p.pos]
	switch {
	case ch == '\'' || ch == '"':
		return p.stringLiteral(ch)
	case unicode.IsDigit(ch) || ch == '-':
		return p.numberLiteral()
	case isIdentStart(ch):
		name, _ := p.ident()
		if bound, ok := names[name]; ok {
			return bound, true
		}
		return undefinedValue{}, true
	}
	return nil, false
}

func (p *exprParser) stringLiteral(quote rune) (value, bool) {
	p.pos++
	var text []rune
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		if ch == quote {
			p.pos++
			return stringValue(text), true
		}
		if ch == '\\' && p.pos+1 < len(p.src) {
			p.pos++
			ch = p.src[p.pos]
		}
		text = append(text, ch)
		p.pos++
	}
	return nil, false
}

func (p *exprParser) numberLiteral() (value, bool) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && (unicode.IsDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start || (p.pos == start+1 && p.src[start] == '-') {
		return nil, false
	}
	return numberValue(p.src[start:p.pos]), true
}

func (p *exprParser) ident() (string, bool) {
	p.skipSpaces()
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", false
	}
	return string(p.src[start:p.pos]), true
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' ||
		p.src[p.pos] == '\n' || p.src[p.pos] == '\r') {
		p.pos++
	}
}

func (p *exprParser) accept(ch rune) bool {
	if p.pos < len(p.src) && p.src[p.pos] == ch {
		p.pos++
		return true
	}
	return false
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}
