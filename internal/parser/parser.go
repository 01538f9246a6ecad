// Package parser turns lexer tokens into ast.Header and ast.Defs.
//
// This is a small recursive-descent implementation covering a module
// header (name, exposes/provides, selective imports) and a flat sequence
// of top-level bindings over a minimal expression language — the surface
// the loader's scope-resolution and solve tasks actually need. Pattern
// matching, type classes, effects, and quasiquotes are out of scope; see
// DESIGN.md.
package parser

import (
	"fmt"

	"github.com/velaris-lang/vela/internal/ast"
	"github.com/velaris-lang/vela/internal/lexer"
)

// ParseError is one parse failure, with the position it occurred at.
type ParseError struct {
	Msg  string
	Pos  ast.Pos
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}

// Parser consumes tokens from a Lexer.
type Parser struct {
	lex    *lexer.Lexer
	cur    lexer.Token
	ahead  lexer.Token
	hasAhead bool
	errs   []error
}

// New constructs a Parser over lex, primed with the first token.
func New(lex *lexer.Lexer) *Parser {
	p := &Parser{lex: lex}
	p.cur = p.lex.NextToken()
	return p
}

// Errors returns every parse error accumulated so far.
func (p *Parser) Errors() []error { return p.errs }

func (p *Parser) pos() ast.Pos {
	return ast.Pos{Line: p.cur.Line, Col: p.cur.Col, Offset: p.cur.Offset}
}

func (p *Parser) advance() lexer.Token {
	t := p.cur
	if p.hasAhead {
		p.cur = p.ahead
		p.hasAhead = false
	} else {
		p.cur = p.lex.NextToken()
	}
	return t
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errs = append(p.errs, &ParseError{Msg: fmt.Sprintf(format, args...), Pos: p.pos()})
}

func (p *Parser) expectOp(text string) bool {
	if p.cur.Kind == lexer.OP && p.cur.Text == text {
		p.advance()
		return true
	}
	p.errorf("expected %q, got %q", text, p.cur.Text)
	return false
}

func (p *Parser) expectKeyword(text string) bool {
	if p.cur.Kind == lexer.KEYWORD && p.cur.Text == text {
		p.advance()
		return true
	}
	p.errorf("expected keyword %q, got %q", text, p.cur.Text)
	return false
}

// ParseHeader parses the module/app header: name, exposes/provides, and
// imports. It stops as soon as the header is complete; ast.Header.Rest is
// the rune offset where definitions parsing should resume.
func (p *Parser) ParseHeader() *ast.Header {
	h := &ast.Header{Pos: p.pos()}

	switch {
	case p.cur.Kind == lexer.KEYWORD && p.cur.Text == "module":
		h.Kind = ast.Interface
		p.advance()
	case p.cur.Kind == lexer.KEYWORD && p.cur.Text == "app":
		h.Kind = ast.App
		p.advance()
	default:
		p.errorf("expected 'module' or 'app' header, got %q", p.cur.Text)
		return h
	}

	h.Name = p.parseDottedName()

	if h.Kind == ast.Interface {
		p.expectKeyword("exposes")
		h.Exposes = p.parseNameList()
	} else {
		p.expectKeyword("provides")
		h.Provides = p.parseNameList()
	}

	if p.cur.Kind == lexer.KEYWORD && p.cur.Text == "imports" {
		p.advance()
		h.Imports = p.parseImportsList()
	}

	h.Rest = p.cur.Offset
	return h
}

// parseDottedName parses `Foo.Bar.Baz` as a single string, the module-path
// form maps to a filesystem path.
func (p *Parser) parseDottedName() string {
	if p.cur.Kind != lexer.IDENT {
		p.errorf("expected module name, got %q", p.cur.Text)
		return ""
	}
	name := p.advance().Text
	for p.cur.Kind == lexer.OP && p.cur.Text == "." {
		p.advance()
		if p.cur.Kind != lexer.IDENT {
			p.errorf("expected identifier after '.', got %q", p.cur.Text)
			break
		}
		name += "." + p.advance().Text
	}
	return name
}

func (p *Parser) parseNameList() []ast.ExposesEntry {
	var out []ast.ExposesEntry
	if !p.expectOp("[") {
		return out
	}
	for p.cur.Kind == lexer.IDENT {
		start := p.pos()
		name := p.advance().Text
		out = append(out, ast.ExposesEntry{Name: name, Pos: start})
		if p.cur.Kind == lexer.OP && p.cur.Text == "," {
			p.advance()
			continue
		}
		break
	}
	p.expectOp("]")
	return out
}

func (p *Parser) parseImportsList() []ast.ImportsEntry {
	var out []ast.ImportsEntry
	if !p.expectOp("[") {
		return out
	}
	for p.cur.Kind == lexer.IDENT {
		start := p.pos()
		name := p.parseDottedName()
		entry := ast.ImportsEntry{ModuleName: name}
		if p.cur.Kind == lexer.OP && p.cur.Text == "(" {
			p.advance()
			for p.cur.Kind == lexer.IDENT {
				ePos := p.pos()
				eName := p.advance().Text
				entry.Exposes = append(entry.Exposes, ast.ExposesEntry{Name: eName, Pos: ePos})
				if p.cur.Kind == lexer.OP && p.cur.Text == "," {
					p.advance()
					continue
				}
				break
			}
			p.expectOp(")")
		}
		entry.Region = ast.Span{Start: start, End: p.pos()}
		out = append(out, entry)
		if p.cur.Kind == lexer.OP && p.cur.Text == "," {
			p.advance()
			continue
		}
		break
	}
	p.expectOp("]")
	return out
}

// ParseDefs parses the body of a module following its header: a sequence
// of top-level `name [params] = expr` bindings.
func (p *Parser) ParseDefs() *ast.Defs {
	defs := &ast.Defs{}
	for p.cur.Kind != lexer.EOF {
		let := p.parseLet()
		if let == nil {
			break
		}
		defs.Lets = append(defs.Lets, let)
	}
	return defs
}

func (p *Parser) parseLet() *ast.Let {
	export := false
	if p.cur.Kind == lexer.KEYWORD && p.cur.Text == "export" {
		export = true
		p.advance()
	}
	if p.cur.Kind != lexer.IDENT {
		if export {
			p.errorf("expected identifier after 'export', got %q", p.cur.Text)
		}
		return nil
	}
	pos := p.pos()
	name := p.advance().Text

	var params []string
	for p.cur.Kind == lexer.IDENT {
		params = append(params, p.advance().Text)
	}

	if !p.expectOp("=") {
		return nil
	}
	value := p.parseExpr()
	return &ast.Let{Name: name, Params: params, Value: value, Export: export, Pos: pos}
}

// parseExpr parses an expression with the minimal precedence climbing
// needed for arithmetic, calls, and if/then/else.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinary(0)
}

var precedence = map[string]int{
	"+": 1, "-": 1,
	"*": 2, "/": 2,
	"==": 0, "!=": 0, "<": 0, ">": 0, "<=": 0, ">=": 0,
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseApply()
	for {
		if p.cur.Kind != lexer.OP {
			return left
		}
		prec, ok := precedence[p.cur.Text]
		if !ok || prec < minPrec {
			return left
		}
		op := p.advance().Text
		right := p.parseBinary(prec + 1)
		left = &ast.BinaryOp{Op: op, Left: left, Right: right, Pos: left.Position()}
	}
}

func (p *Parser) parseApply() ast.Expr {
	callee := p.parsePrimary()
	var args []ast.Expr
	for p.isArgStart() {
		args = append(args, p.parsePrimary())
	}
	if len(args) == 0 {
		return callee
	}
	return &ast.Call{Callee: callee, Args: args, Pos: callee.Position()}
}

func (p *Parser) isArgStart() bool {
	// A token in column 1 starts the next top-level binding, not an
	// argument.
	if p.cur.Col == 1 {
		return false
	}
	switch p.cur.Kind {
	case lexer.IDENT, lexer.INT, lexer.STRING:
		return true
	case lexer.OP:
		return p.cur.Text == "("
	}
	return false
}

func (p *Parser) parsePrimary() ast.Expr {
	pos := p.pos()
	switch p.cur.Kind {
	case lexer.IDENT:
		return &ast.Ident{Name: p.advance().Text, Pos: pos}
	case lexer.INT:
		text := p.advance().Text
		var v int64
		fmt.Sscanf(text, "%d", &v)
		return &ast.IntLit{Value: v, Pos: pos}
	case lexer.STRING:
		return &ast.StrLit{Value: p.advance().Text, Pos: pos}
	case lexer.KEYWORD:
		if p.cur.Text == "if" {
			return p.parseIf()
		}
	case lexer.OP:
		if p.cur.Text == "(" {
			p.advance()
			e := p.parseExpr()
			p.expectOp(")")
			return e
		}
	}
	p.errorf("unexpected token %q in expression", p.cur.Text)
	p.advance()
	return &ast.IntLit{Value: 0, Pos: pos}
}

func (p *Parser) parseIf() ast.Expr {
	pos := p.pos()
	p.advance() // if
	cond := p.parseExpr()
	p.expectKeyword("then")
	then := p.parseExpr()
	p.expectKeyword("else")
	els := p.parseExpr()
	return &ast.If{Cond: cond, Then: then, Else: els, Pos: pos}
}
