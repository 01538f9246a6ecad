package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velaris-lang/vela/internal/ast"
	"github.com/velaris-lang/vela/internal/lexer"
)

func parseHeader(t *testing.T, src string) *ast.Header {
	t.Helper()
	p := New(lexer.New(src, "test.vl"))
	h := p.ParseHeader()
	require.Empty(t, p.Errors(), "unexpected parse errors: %v", p.Errors())
	return h
}

func TestParseInterfaceHeader(t *testing.T) {
	h := parseHeader(t, `module Foo.Bar exposes [ a, b ] imports [ Std.List (map, filter), Util ]`)

	assert.Equal(t, ast.Interface, h.Kind)
	assert.Equal(t, "Foo.Bar", h.Name)
	require.Len(t, h.Exposes, 2)
	assert.Equal(t, "a", h.Exposes[0].Name)
	assert.Equal(t, "b", h.Exposes[1].Name)

	require.Len(t, h.Imports, 2)
	assert.Equal(t, "Std.List", h.Imports[0].ModuleName)
	require.Len(t, h.Imports[0].Exposes, 2)
	assert.Equal(t, "map", h.Imports[0].Exposes[0].Name)
	assert.Equal(t, "Util", h.Imports[1].ModuleName)
	assert.Empty(t, h.Imports[1].Exposes)
}

func TestParseAppHeader(t *testing.T) {
	h := parseHeader(t, `app Main provides [ main ]`)
	assert.Equal(t, ast.App, h.Kind)
	assert.Equal(t, "Main", h.Name)
	require.Len(t, h.Provides, 1)
	assert.Equal(t, "main", h.Provides[0].Name)
	assert.Empty(t, h.Imports)
}

func TestParseDefsSimpleLet(t *testing.T) {
	p := New(lexer.New(`x = 1
add a b = a + b`, "test.vl"))
	defs := p.ParseDefs()
	require.Empty(t, p.Errors())
	require.Len(t, defs.Lets, 2)

	assert.Equal(t, "x", defs.Lets[0].Name)
	lit, ok := defs.Lets[0].Value.(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(1), lit.Value)

	assert.Equal(t, "add", defs.Lets[1].Name)
	assert.Equal(t, []string{"a", "b"}, defs.Lets[1].Params)
	bin, ok := defs.Lets[1].Value.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
}

func TestParseIfExpr(t *testing.T) {
	p := New(lexer.New(`x = if a then 1 else 2`, "test.vl"))
	defs := p.ParseDefs()
	require.Empty(t, p.Errors())
	ifExpr, ok := defs.Lets[0].Value.(*ast.If)
	require.True(t, ok)
	_, ok = ifExpr.Cond.(*ast.Ident)
	assert.True(t, ok)
}

func TestParseCallExpr(t *testing.T) {
	p := New(lexer.New(`x = add 1 2`, "test.vl"))
	defs := p.ParseDefs()
	require.Empty(t, p.Errors())
	call, ok := defs.Lets[0].Value.(*ast.Call)
	require.True(t, ok)
	assert.Len(t, call.Args, 2)
}

func TestParseHeaderMissingKeywordReportsError(t *testing.T) {
	p := New(lexer.New(`42 exposes [ a ]`, "test.vl"))
	p.ParseHeader()
	assert.NotEmpty(t, p.Errors())
}
