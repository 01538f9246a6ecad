// Package lexer tokenizes Vela source, running it through
// golang.org/x/text's Unicode normalizer first so identifier comparisons
// stay stable across composed/decomposed forms.
package lexer

import (
	"golang.org/x/text/unicode/norm"
)

// TokenKind enumerates token categories.
type TokenKind int

const (
	EOF TokenKind = iota
	IDENT
	INT
	STRING
	KEYWORD // module, app, interface, exposes, imports, import, provides, if, then, else, export
	OP      // operators and punctuation: = ( ) , + - * / == etc.
	COMMENT
)

// Token is one lexical token.
type Token struct {
	Kind   TokenKind
	Text   string
	Line   int
	Col    int
	Offset int
}

var keywords = map[string]bool{
	"module": true, "app": true, "interface": true,
	"exposes": true, "imports": true, "provides": true,
	"if": true, "then": true, "else": true, "export": true,
	"import": true,
}

// Lexer tokenizes normalized source text.
type Lexer struct {
	filename string
	src      []rune
	pos      int
	line     int
	col      int
}

// New normalizes src to NFC and returns a ready Lexer.
func New(src string, filename string) *Lexer {
	return NewAt(Normalize(src), filename, 0, 1)
}

// Normalize runs src through the same NFC normalization New applies before
// tokenizing. Callers that need to slice a source buffer by the rune
// offsets NextToken reports (e.g. to resume tokenizing partway through,
// without re-reading or re-normalizing) must normalize once up front with
// this and pass the result to NewAt.
func Normalize(src string) string {
	return norm.NFC.String(src)
}

// NewAt returns a Lexer over normalizedSrc — which must already be
// NFC-normalized, e.g. via Normalize — starting at the given rune offset
// and line number. Used to resume tokenizing a module's definitions right
// after its header, from the same in-memory buffer the header was parsed
// from, without re-reading the file or re-normalizing (and so without
// risking the two diverging if the file changes between reads).
func NewAt(normalizedSrc string, filename string, offset, startLine int) *Lexer {
	runes := []rune(normalizedSrc)
	if offset < 0 {
		offset = 0
	}
	if offset > len(runes) {
		offset = len(runes)
	}
	return &Lexer{filename: filename, src: runes, pos: offset, line: startLine, col: 1}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) rune {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// NextToken returns the next token, or an EOF token carrying the end
// position at end of input.
func (l *Lexer) NextToken() Token {
	for {
		l.skipSpace()
		if l.pos < len(l.src) && l.peek() == '#' {
			l.skipLineComment()
			continue
		}
		break
	}
	startLine, startCol, startOff := l.line, l.col, l.pos
	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Line: startLine, Col: startCol, Offset: startOff}
	}

	r := l.peek()
	switch {
	case isIdentStart(r):
		return l.lexIdent(startLine, startCol, startOff)
	case isDigit(r):
		return l.lexInt(startLine, startCol, startOff)
	case r == '"':
		return l.lexString(startLine, startCol, startOff)
	default:
		return l.lexOp(startLine, startCol, startOff)
	}
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) lexIdent(line, col, off int) Token {
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.peek()) {
		l.advance()
	}
	text := string(l.src[start:l.pos])
	kind := IDENT
	if keywords[text] {
		kind = KEYWORD
	}
	return Token{Kind: kind, Text: text, Line: line, Col: col, Offset: off}
}

func (l *Lexer) lexInt(line, col, off int) Token {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	return Token{Kind: INT, Text: string(l.src[start:l.pos]), Line: line, Col: col, Offset: off}
}

func (l *Lexer) lexString(line, col, off int) Token {
	l.advance() // opening quote
	start := l.pos
	for l.pos < len(l.src) && l.peek() != '"' {
		l.advance()
	}
	text := string(l.src[start:l.pos])
	if l.pos < len(l.src) {
		l.advance() // closing quote
	}
	return Token{Kind: STRING, Text: text, Line: line, Col: col, Offset: off}
}

// twoCharOps must be checked before their single-char prefix.
var twoCharOps = []string{"==", "!=", "<=", ">=", "->", "::"}

func (l *Lexer) lexOp(line, col, off int) Token {
	for _, op := range twoCharOps {
		if l.peek() == rune(op[0]) && l.peekAt(1) == rune(op[1]) {
			l.advance()
			l.advance()
			return Token{Kind: OP, Text: op, Line: line, Col: col, Offset: off}
		}
	}
	r := l.advance()
	return Token{Kind: OP, Text: string(r), Line: line, Col: col, Offset: off}
}

// Filename returns the filename this lexer was constructed with, for
// diagnostic reporting.
func (l *Lexer) Filename() string { return l.filename }
