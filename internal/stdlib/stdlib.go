// Package stdlib is the loader's standard-library provider: the fixed set
// of builtin names every module may reference without an explicit import,
// and their solved schemes. A Registry is populated by an init()-time
// series of registerXMeta() calls, one per builtin family.
package stdlib

import (
	"sort"

	"github.com/velaris-lang/vela/internal/ident"
	"github.com/velaris-lang/vela/internal/types"
)

// Mode selects which builtin set a project requests. See DESIGN.md for
// why this is an explicit, narrow toggle rather than inferred.
type Mode int

const (
	// Standard is the default builtin set.
	Standard Mode = iota
	// Uniqueness additionally exposes the linear/unique-reference
	// builtins a project's vela.yaml may opt into.
	Uniqueness
)

// BuiltinMeta describes one builtin's name, arity, and purity.
type BuiltinMeta struct {
	Name    string
	NumArgs int
	IsPure  bool
	Scheme  *types.Scheme
}

func registerArithmeticMeta(reg map[string]*BuiltinMeta) {
	for _, name := range []string{"add", "sub", "mul", "div"} {
		reg[name] = &BuiltinMeta{
			Name: name, NumArgs: 2, IsPure: true,
			Scheme: &types.Scheme{Body: &types.Func{
				Params: []types.Type{types.Int, types.Int}, Result: types.Int,
			}},
		}
	}
}

func registerComparisonMeta(reg map[string]*BuiltinMeta) {
	for _, name := range []string{"eq", "lt", "gt", "lte", "gte"} {
		reg[name] = &BuiltinMeta{
			Name: name, NumArgs: 2, IsPure: true,
			Scheme: &types.Scheme{Body: &types.Func{
				Params: []types.Type{types.Int, types.Int}, Result: types.Bool,
			}},
		}
	}
}

func registerStringMeta(reg map[string]*BuiltinMeta) {
	reg["concat"] = &BuiltinMeta{
		Name: "concat", NumArgs: 2, IsPure: true,
		Scheme: &types.Scheme{Body: &types.Func{
			Params: []types.Type{types.Str, types.Str}, Result: types.Str,
		}},
	}
	reg["length"] = &BuiltinMeta{
		Name: "length", NumArgs: 1, IsPure: true,
		Scheme: &types.Scheme{Body: &types.Func{
			Params: []types.Type{types.Str}, Result: types.Int,
		}},
	}
}

func registerUniquenessMeta(reg map[string]*BuiltinMeta) {
	reg["consume"] = &BuiltinMeta{
		Name: "consume", NumArgs: 1, IsPure: false,
		Scheme: &types.Scheme{Body: &types.Func{
			Params: []types.Type{types.Int}, Result: types.Int,
		}},
	}
}

// Registry is the fixed builtin set for Standard mode, populated once at
// package init.
var Registry = map[string]*BuiltinMeta{}

func init() {
	registerArithmeticMeta(Registry)
	registerComparisonMeta(Registry)
	registerStringMeta(Registry)
}

// ExposedBuiltins returns the builtin names visible under mode, in stable
// sorted order.
func ExposedBuiltins(mode Mode) []string {
	names := make([]string, 0, len(Registry)+1)
	for n := range Registry {
		names = append(names, n)
	}
	if mode == Uniqueness {
		names = append(names, "consume")
	}
	sort.Strings(names)
	return names
}

// BuiltinModuleID is the reserved ModuleId every builtin alias's Symbol
// belongs to. loader.Load interns a "#builtin" pseudo-module and seeds its
// ident table (via ident.IdentTables.SeedBuiltins) before interning the
// root module or any of its dependencies, so this is always module 0 —
// not by convention, but because nothing else can get there first.
const BuiltinModuleID ident.ModuleId = 0

// Aliases returns every exposed builtin as a local-name -> Symbol mapping,
// plus the solved scheme each alias carries, for the canonicalizer and
// solve task to consult. Both maps are rebuilt on every call.
func Aliases(mode Mode, idents *ident.IdentTable) (map[string]ident.Symbol, map[ident.Symbol]*types.Scheme) {
	syms := make(map[string]ident.Symbol, len(Registry))
	schemes := make(map[ident.Symbol]*types.Scheme, len(Registry))
	for _, name := range ExposedBuiltins(mode) {
		id := idents.GetOrInsert(name)
		sym := ident.Symbol{Module: BuiltinModuleID, Ident: id}
		syms[name] = sym
		if meta, ok := Registry[name]; ok {
			schemes[sym] = meta.Scheme
		} else if mode == Uniqueness && name == "consume" {
			u := registryUniqueness()
			schemes[sym] = u.Scheme
		}
	}
	return syms, schemes
}

func registryUniqueness() *BuiltinMeta {
	reg := map[string]*BuiltinMeta{}
	registerUniquenessMeta(reg)
	return reg["consume"]
}
