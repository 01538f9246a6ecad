// Package ast defines the syntax tree the parser produces: a module header
// (name, exposes, imports) and a body of top-level declarations. See
// DESIGN.md for what's out of scope and why.
package ast

import "fmt"

// Pos is a single source location.
type Pos struct {
	Line, Col int
	Offset    int
}

// Span is a source region, used for scope-seed provenance.
type Span struct {
	Start, End Pos
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.Start.Line, s.Start.Col, s.End.Line, s.End.Col)
}

// Node is any syntax tree node.
type Node interface {
	Position() Pos
}

// HeaderKind distinguishes the two header shapes a module may use.
type HeaderKind int

const (
	// Interface is the header shape any module (including non-root) may
	// use.
	Interface HeaderKind = iota
	// App is the header shape only the root module may use.
	App
)

func (k HeaderKind) String() string {
	if k == App {
		return "app"
	}
	return "interface"
}

// ExposesEntry names one symbol a module exposes (Interface) or provides
// (App) to dependents.
type ExposesEntry struct {
	Name string
	Pos  Pos
}

// ImportsEntry is one import line: a module name plus the selective
// exposes list it imports into local scope, if any.
type ImportsEntry struct {
	ModuleName string
	// Exposes lists the identifiers imported into local scope from this
	// dependency, in source order.
	Exposes []ExposesEntry
	Region  Span
}

// Header is the preamble the header assembler consumes: either an
// Interface or an App header, never both.
type Header struct {
	Kind    HeaderKind
	Name    string
	Exposes []ExposesEntry // Interface
	Provides []ExposesEntry // App
	Imports []ImportsEntry
	Pos     Pos
	// Rest is the rune offset into the module's normalized source text
	// immediately following the header, i.e. where defs parsing resumes
	// (see lexer.NewAt).
	Rest int
}

func (h *Header) Position() Pos { return h.Pos }

// Expr is any expression node in a module's definitions.
type Expr interface {
	Node
	exprNode()
}

// Ident is a bare identifier reference.
type Ident struct {
	Name string
	Pos  Pos
}

func (i *Ident) Position() Pos { return i.Pos }
func (*Ident) exprNode()       {}

// IntLit is an integer literal.
type IntLit struct {
	Value int64
	Pos   Pos
}

func (l *IntLit) Position() Pos { return l.Pos }
func (*IntLit) exprNode()       {}

// StrLit is a string literal.
type StrLit struct {
	Value string
	Pos   Pos
}

func (l *StrLit) Position() Pos { return l.Pos }
func (*StrLit) exprNode()       {}

// BinaryOp is a binary operator application.
type BinaryOp struct {
	Op          string
	Left, Right Expr
	Pos         Pos
}

func (b *BinaryOp) Position() Pos { return b.Pos }
func (*BinaryOp) exprNode()       {}

// Call is a function application.
type Call struct {
	Callee Expr
	Args   []Expr
	Pos    Pos
}

func (c *Call) Position() Pos { return c.Pos }
func (*Call) exprNode()       {}

// If is a conditional expression.
type If struct {
	Cond, Then, Else Expr
	Pos              Pos
}

func (e *If) Position() Pos { return e.Pos }
func (*If) exprNode()       {}

// Let is a top-level binding: `name = expr` or `name param1 param2 = expr`.
type Let struct {
	Name   string
	Params []string
	Value  Expr
	Export bool
	Pos    Pos
}

func (l *Let) Position() Pos { return l.Pos }

// Defs is the parsed body of a module, following its header.
type Defs struct {
	Lets []*Let
}
