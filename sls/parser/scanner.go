package parser

import (
	"strings"
)

// Scanner turns a rendered SLS document into a stream of tokens. It
// follows the indentation-resolution algorithm of the YAML reference
// scanner for the subset of YAML that Salt states use: block mappings and
// sequences, flow collections, plain and quoted scalars, block scalars and
// comments. Anchors, tags, directives and document markers are not part of
// the dialect and are rejected with a ScanError, which the tree builder
// recovers from.
type Scanner struct {
	src  []rune
	mark Mark
	done bool

	flowLevel   int
	indent      int
	indents     []int
	tokens      []Token
	tokensTaken int

	allowSimpleKey bool
	possibleKeys   map[int]simpleKey
}

// simpleKey is a candidate mapping key: a scalar that may retroactively
// become a Key token once a ':' shows up on the same line.
type simpleKey struct {
	tokenNumber int
	required    bool
	mark        Mark
}

func NewScanner(document string) *Scanner {
	s := &Scanner{
		src:            []rune(document),
		indent:         -1,
		allowSimpleKey: true,
		possibleKeys:   make(map[int]simpleKey),
	}
	s.tokens = append(s.tokens, Token{Kind: TokenStreamStart, Start: s.mark, End: s.mark})
	return s
}

// Next returns the next token. The final token is always TokenStreamEnd
// unless a ScanError is returned first; tokens queued after the point of a
// scan error are never delivered.
func (s *Scanner) Next() (Token, error) {
	for {
		need, err := s.needMoreTokens()
		if err != nil {
			return Token{}, err
		}
		if !need {
			break
		}
		if err := s.fetchMoreTokens(); err != nil {
			return Token{}, err
		}
	}
	if len(s.tokens) == 0 {
		return Token{Kind: TokenStreamEnd, Start: s.mark, End: s.mark}, nil
	}
	tok := s.tokens[0]
	s.tokens = s.tokens[1:]
	s.tokensTaken++
	return tok, nil
}

func (s *Scanner) needMoreTokens() (bool, error) {
	if s.done {
		return false, nil
	}
	if len(s.tokens) == 0 {
		return true, nil
	}
	// A stale required key is an error even though tokens are already
	// queued behind it: they must not be delivered.
	if err := s.stalePossibleKeys(); err != nil {
		return false, err
	}
	if num, ok := s.nextPossibleKeyNumber(); ok && num == s.tokensTaken {
		return true, nil
	}
	return false, nil
}

func (s *Scanner) fetchMoreTokens() error {
	s.scanToNextToken()
	if err := s.stalePossibleKeys(); err != nil {
		return err
	}
	s.unwindIndent(s.mark.Col)

	ch := s.peek()
	switch {
	case ch == 0:
		return s.fetchStreamEnd()
	case ch == '[':
		return s.fetchFlowCollectionStart(TokenFlowSequenceStart)
	case ch == '{':
		return s.fetchFlowCollectionStart(TokenFlowMappingStart)
	case ch == ']':
		return s.fetchFlowCollectionEnd(TokenFlowSequenceEnd)
	case ch == '}':
		return s.fetchFlowCollectionEnd(TokenFlowMappingEnd)
	case ch == ',':
		return s.fetchFlowEntry()
	case ch == '-' && isBlankOrEOF(s.peekN(1)):
		return s.fetchBlockEntry()
	case ch == ':' && (s.flowLevel > 0 || isBlankOrEOF(s.peekN(1))):
		return s.fetchValue()
	case ch == '\'' || ch == '"':
		return s.fetchFlowScalar(ch)
	case (ch == '|' || ch == '>') && s.flowLevel == 0:
		return s.fetchBlockScalar(ch)
	case s.checkPlain():
		return s.fetchPlain()
	}
	return &ScanError{
		Message: "while scanning for the next token: found character " + string(ch) + " that cannot start any token",
		Problem: s.mark,
	}
}

// --- character access ---

func (s *Scanner) peek() rune {
	return s.peekN(0)
}

func (s *Scanner) peekN(n int) rune {
	if s.mark.Index+n >= len(s.src) {
		return 0
	}
	return s.src[s.mark.Index+n]
}

func (s *Scanner) forward() {
	if s.mark.Index >= len(s.src) {
		return
	}
	ch := s.src[s.mark.Index]
	s.mark.Index++
	if ch == '\n' || (ch == '\r' && s.peek() != '\n') {
		s.mark.Line++
		s.mark.Col = 0
	} else {
		s.mark.Col++
	}
}

func (s *Scanner) forwardN(n int) {
	for i := 0; i < n; i++ {
		s.forward()
	}
}

func (s *Scanner) prefix(n int) string {
	end := s.mark.Index + n
	if end > len(s.src) {
		end = len(s.src)
	}
	return string(s.src[s.mark.Index:end])
}

func isBreak(ch rune) bool {
	return ch == '\n' || ch == '\r'
}

func isBlank(ch rune) bool {
	return ch == ' ' || ch == '\t'
}

func isBlankOrEOF(ch rune) bool {
	return ch == 0 || isBlank(ch) || isBreak(ch)
}

func (s *Scanner) scanLineBreak() bool {
	ch := s.peek()
	if ch == '\r' && s.peekN(1) == '\n' {
		s.forwardN(2)
		return true
	}
	if isBreak(ch) {
		s.forward()
		return true
	}
	return false
}

func (s *Scanner) scanToNextToken() {
	for {
		for s.peek() == ' ' {
			s.forward()
		}
		if s.peek() == '#' {
			for s.peek() != 0 && !isBreak(s.peek()) {
				s.forward()
			}
		}
		if s.scanLineBreak() {
			if s.flowLevel == 0 {
				s.allowSimpleKey = true
			}
		} else {
			break
		}
	}
}

// --- simple key bookkeeping ---

func (s *Scanner) nextPossibleKeyNumber() (int, bool) {
	min, found := 0, false
	for _, key := range s.possibleKeys {
		if !found || key.tokenNumber < min {
			min = key.tokenNumber
			found = true
		}
	}
	return min, found
}

func (s *Scanner) stalePossibleKeys() error {
	for level, key := range s.possibleKeys {
		if key.mark.Line != s.mark.Line || s.mark.Index-key.mark.Index > 1024 {
			if key.required {
				return s.noExpectedColon(key)
			}
			delete(s.possibleKeys, level)
		}
	}
	return nil
}

func (s *Scanner) savePossibleKey() error {
	required := s.flowLevel == 0 && s.indent == s.mark.Col
	if !s.allowSimpleKey {
		return nil
	}
	if err := s.removePossibleKey(); err != nil {
		return err
	}
	s.possibleKeys[s.flowLevel] = simpleKey{
		tokenNumber: s.tokensTaken + len(s.tokens),
		required:    required,
		mark:        s.mark,
	}
	return nil
}

func (s *Scanner) removePossibleKey() error {
	key, ok := s.possibleKeys[s.flowLevel]
	if !ok {
		return nil
	}
	if key.required {
		return s.noExpectedColon(key)
	}
	delete(s.possibleKeys, s.flowLevel)
	return nil
}

func (s *Scanner) noExpectedColon(key simpleKey) error {
	context := key.mark
	return &ScanError{
		Message: "while scanning a simple key: could not find expected ':'",
		Context: &context,
		Problem: s.mark,
	}
}

// --- indentation ---

func (s *Scanner) unwindIndent(col int) {
	if s.flowLevel > 0 {
		return
	}
	for s.indent > col {
		s.indent = s.indents[len(s.indents)-1]
		s.indents = s.indents[:len(s.indents)-1]
		s.tokens = append(s.tokens, Token{Kind: TokenBlockEnd, Start: s.mark, End: s.mark})
	}
}

func (s *Scanner) addIndent(col int) bool {
	if s.indent < col {
		s.indents = append(s.indents, s.indent)
		s.indent = col
		return true
	}
	return false
}

// --- fetchers ---

func (s *Scanner) fetchStreamEnd() error {
	s.unwindIndent(-1)
	if err := s.removePossibleKey(); err != nil {
		return err
	}
	s.allowSimpleKey = false
	s.possibleKeys = make(map[int]simpleKey)
	s.tokens = append(s.tokens, Token{Kind: TokenStreamEnd, Start: s.mark, End: s.mark})
	s.done = true
	return nil
}

func (s *Scanner) fetchFlowCollectionStart(kind TokenKind) error {
	if err := s.savePossibleKey(); err != nil {
		return err
	}
	s.flowLevel++
	s.allowSimpleKey = false
	start := s.mark
	s.forward()
	s.tokens = append(s.tokens, Token{Kind: kind, Start: start, End: s.mark})
	return nil
}

func (s *Scanner) fetchFlowCollectionEnd(kind TokenKind) error {
	if err := s.removePossibleKey(); err != nil {
		return err
	}
	if s.flowLevel > 0 {
		s.flowLevel--
	}
	s.allowSimpleKey = false
	start := s.mark
	s.forward()
	s.tokens = append(s.tokens, Token{Kind: kind, Start: start, End: s.mark})
	return nil
}

func (s *Scanner) fetchFlowEntry() error {
	s.allowSimpleKey = true
	if err := s.removePossibleKey(); err != nil {
		return err
	}
	start := s.mark
	s.forward()
	s.tokens = append(s.tokens, Token{Kind: TokenFlowEntry, Start: start, End: s.mark})
	return nil
}

func (s *Scanner) fetchBlockEntry() error {
	if s.flowLevel == 0 {
		if !s.allowSimpleKey {
			return &ScanError{Message: "sequence entries are not allowed here", Problem: s.mark}
		}
		if s.addIndent(s.mark.Col) {
			s.tokens = append(s.tokens, Token{Kind: TokenBlockSequenceStart, Start: s.mark, End: s.mark})
		}
	}
	s.allowSimpleKey = true
	if err := s.removePossibleKey(); err != nil {
		return err
	}
	start := s.mark
	s.forward()
	s.tokens = append(s.tokens, Token{Kind: TokenBlockEntry, Start: start, End: s.mark})
	return nil
}

func (s *Scanner) fetchValue() error {
	if key, ok := s.possibleKeys[s.flowLevel]; ok {
		delete(s.possibleKeys, s.flowLevel)
		s.insertToken(key.tokenNumber-s.tokensTaken, Token{Kind: TokenKey, Start: key.mark, End: key.mark})
		if s.flowLevel == 0 && s.addIndent(key.mark.Col) {
			s.insertToken(key.tokenNumber-s.tokensTaken, Token{Kind: TokenBlockMappingStart, Start: key.mark, End: key.mark})
		}
		s.allowSimpleKey = false
	} else {
		if s.flowLevel == 0 {
			if !s.allowSimpleKey {
				return &ScanError{Message: "mapping values are not allowed here", Problem: s.mark}
			}
			if s.addIndent(s.mark.Col) {
				s.tokens = append(s.tokens, Token{Kind: TokenBlockMappingStart, Start: s.mark, End: s.mark})
			}
		}
		s.allowSimpleKey = s.flowLevel == 0
		if err := s.removePossibleKey(); err != nil {
			return err
		}
	}
	start := s.mark
	s.forward()
	s.tokens = append(s.tokens, Token{Kind: TokenValue, Start: start, End: s.mark})
	return nil
}

func (s *Scanner) insertToken(at int, tok Token) {
	if at < 0 {
		at = 0
	}
	if at > len(s.tokens) {
		at = len(s.tokens)
	}
	s.tokens = append(s.tokens, Token{})
	copy(s.tokens[at+1:], s.tokens[at:])
	s.tokens[at] = tok
}

// --- scalars ---

func (s *Scanner) checkPlain() bool {
	ch := s.peek()
	if ch == 0 {
		return false
	}
	if !strings.ContainsRune(" \t\r\n-?:,[]{}#&*!|>'\"%@`", ch) {
		return true
	}
	if isBlankOrEOF(s.peekN(1)) {
		return false
	}
	return ch == '-' || (s.flowLevel == 0 && (ch == '?' || ch == ':'))
}

func (s *Scanner) fetchPlain() error {
	if err := s.savePossibleKey(); err != nil {
		return err
	}
	s.allowSimpleKey = false
	s.tokens = append(s.tokens, s.scanPlain())
	return nil
}

func (s *Scanner) scanPlain() Token {
	var chunks strings.Builder
	start := s.mark
	end := s.mark
	indent := s.indent + 1
	spaces := ""
	for {
		if s.peek() == '#' {
			break
		}
		length := 0
		for {
			ch := s.peekN(length)
			if isBlankOrEOF(ch) {
				break
			}
			if ch == ':' && (isBlankOrEOF(s.peekN(length+1)) ||
				(s.flowLevel > 0 && strings.ContainsRune(",[]{}", s.peekN(length+1)))) {
				break
			}
			if s.flowLevel > 0 && strings.ContainsRune(",?[]{}", ch) {
				break
			}
			length++
		}
		if length == 0 {
			break
		}
		s.allowSimpleKey = false
		chunks.WriteString(spaces)
		chunks.WriteString(s.prefix(length))
		s.forwardN(length)
		end = s.mark
		spaces = s.scanPlainSpaces(indent)
		if spaces == "" || (s.flowLevel == 0 && s.mark.Col < indent) {
			break
		}
	}
	return Token{Kind: TokenScalar, Start: start, End: end, Value: chunks.String()}
}

// scanPlainSpaces consumes the blanks and line breaks following a plain
// scalar chunk. Consuming trailing breaks here is what puts the scanner's
// mark on the line after the scalar, which in turn positions the problem
// mark of a later stale-key error.
func (s *Scanner) scanPlainSpaces(indent int) string {
	length := 0
	for s.peekN(length) == ' ' {
		length++
	}
	whitespaces := s.prefix(length)
	s.forwardN(length)
	if !isBreak(s.peek()) {
		return whitespaces
	}
	s.scanLineBreak()
	s.allowSimpleKey = true
	breaks := 0
	for s.peek() == ' ' || isBreak(s.peek()) {
		if s.peek() == ' ' {
			s.forward()
		} else {
			s.scanLineBreak()
			breaks++
		}
	}
	if breaks == 0 {
		return " "
	}
	return strings.Repeat("\n", breaks)
}

func (s *Scanner) fetchFlowScalar(quote rune) error {
	if err := s.savePossibleKey(); err != nil {
		return err
	}
	s.allowSimpleKey = false
	tok, err := s.scanFlowScalar(quote)
	if err != nil {
		return err
	}
	s.tokens = append(s.tokens, tok)
	return nil
}

func (s *Scanner) scanFlowScalar(quote rune) (Token, error) {
	start := s.mark
	s.forward()
	var value strings.Builder
	for {
		ch := s.peek()
		if ch == 0 {
			context := start
			return Token{}, &ScanError{
				Message: "while scanning a quoted scalar: found unexpected end of stream",
				Context: &context,
				Problem: s.mark,
			}
		}
		if ch == quote {
			s.forward()
			if quote == '\'' && s.peek() == '\'' {
				value.WriteRune('\'')
				s.forward()
				continue
			}
			break
		}
		if quote == '"' && ch == '\\' {
			s.forward()
			value.WriteRune(unescape(s.peek()))
			s.forward()
			continue
		}
		if isBreak(ch) {
			s.scanLineBreak()
			value.WriteRune(' ')
			for s.peek() == ' ' || s.peek() == '\t' {
				s.forward()
			}
			continue
		}
		value.WriteRune(ch)
		s.forward()
	}
	return Token{Kind: TokenScalar, Start: start, End: s.mark, Value: value.String()}, nil
}

func unescape(ch rune) rune {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return ch
	}
}

// fetchBlockScalar handles '|' and '>' scalars just enough for values like
// file contents: the indented block is collected literally and folding
// style is not distinguished.
func (s *Scanner) fetchBlockScalar(style rune) error {
	if err := s.removePossibleKey(); err != nil {
		return err
	}
	s.allowSimpleKey = true
	s.tokens = append(s.tokens, s.scanBlockScalar(style))
	return nil
}

func (s *Scanner) scanBlockScalar(style rune) Token {
	start := s.mark
	s.forward()
	// chomping indicators and explicit indent digits
	for s.peek() == '+' || s.peek() == '-' || (s.peek() >= '1' && s.peek() <= '9') {
		s.forward()
	}
	for s.peek() != 0 && !isBreak(s.peek()) {
		s.forward()
	}
	s.scanLineBreak()

	minIndent := s.indent + 1
	blockIndent := -1
	end := s.mark
	var lines []string
	for {
		col := 0
		for s.peekN(col) == ' ' {
			col++
		}
		if s.peekN(col) == 0 {
			break
		}
		if isBreak(s.peekN(col)) {
			s.forwardN(col)
			s.scanLineBreak()
			lines = append(lines, "")
			continue
		}
		if blockIndent < 0 {
			if col < minIndent {
				break
			}
			blockIndent = col
		}
		if col < blockIndent {
			break
		}
		s.forwardN(col)
		length := 0
		for s.peekN(length) != 0 && !isBreak(s.peekN(length)) {
			length++
		}
		lines = append(lines, strings.Repeat(" ", col-blockIndent)+s.prefix(length))
		s.forwardN(length)
		end = s.mark
		s.scanLineBreak()
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return Token{Kind: TokenScalar, Start: start, End: end, Value: strings.Join(lines, "\n") + "\n"}
}
