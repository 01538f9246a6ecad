// Package canon resolves every bare identifier in a module's definitions
// against its own declarations, its header's selective imports, and the
// stdlib provider's builtin aliases, producing global ident.Symbol
// references recorded on each Declaration for the solve task. See
// DESIGN.md.
package canon

import (
	"fmt"

	"github.com/velaris-lang/vela/internal/ast"
	verrors "github.com/velaris-lang/vela/internal/errors"
	"github.com/velaris-lang/vela/internal/ident"
	"github.com/velaris-lang/vela/internal/types"
)

// Declaration is one canonicalized top-level binding.
type Declaration struct {
	Symbol ident.Symbol
	Params []ident.IdentId
	Body   ast.Expr
	// Refs lists every free-variable reference this declaration's body
	// resolved to, in the order encountered (used to build the
	// constraint and, later, for unused-import diagnostics).
	Refs []ident.Symbol
	// Literals lists the base type of every literal expression this
	// declaration's body contains (an Int/Str literal has no Symbol to
	// resolve, so it can't appear in Refs), in the order encountered. The
	// solve task unifies the declaration's body type against each of these
	// the same way it does for Refs.
	Literals []types.Type
}

// Module is the canonicalizer's output: every declaration with identifiers
// resolved to global symbols, plus the rigid type variables and exposed
// variables a solved module needs to publish.
type Module struct {
	ID           ident.ModuleId
	Declarations map[ident.IdentId]*Declaration
	// Exposed lists the IdentIds this module's header named in its
	// exposes/provides list, in source order.
	Exposed []ident.IdentId
	// Constraint is allocated empty by Canonicalize. Every resolved
	// reference is recorded on its Declaration's Refs instead, which is
	// what the solve task reads.
	Constraint *Constraint
}

// Constraint holds free-variable references as ConstraintRef entries.
// Canonicalize leaves Refs empty and the solve task does not read it; see
// Declaration.Refs and Declaration.Literals.
type Constraint struct {
	// Refs maps a local reference site to the symbol it resolved to.
	Refs []ConstraintRef
}

// ConstraintRef is one occurrence of a resolved free variable within a
// module's declarations, paired with a fresh type variable for the
// referent's eventual scheme.
type ConstraintRef struct {
	Site ident.IdentId // declaring IdentId of the enclosing declaration
	Sym  ident.Symbol
	TV   *types.Var
}

// scope is the canonicalizer's working environment for one module.
type scope struct {
	moduleID  ident.ModuleId
	idents    *ident.IdentTable
	// local holds names declared within this module (by IdentId, already
	// interned).
	local map[string]ident.IdentId
	// params holds the parameter names of the declaration being resolved;
	// they are bound, not free, so they never appear in Refs.
	params map[string]bool
	// imported maps a locally-visible imported name to its originating
	// symbol.
	imported map[string]ident.Symbol
	// builtinAliases maps a builtin name to its alias scheme identity
	// (stdlib.BuiltinModuleID, seeded first by loader.Load).
	builtinAliases map[string]ident.Symbol
	vs             *types.VarStore
}

// Canonicalize resolves defs against the module's own declarations, its
// selective imports, and builtin aliases, producing a Module and its
// Constraint, plus an LDR006 warning Report for every imported name the
// module never referenced (open question, resolved in DESIGN.md).
func Canonicalize(
	moduleID ident.ModuleId,
	idents *ident.IdentTable,
	defs *ast.Defs,
	importedNames map[string]ident.Symbol,
	builtinAliases map[string]ident.Symbol,
	vs *types.VarStore,
) (*Module, []*verrors.Report) {
	sc := &scope{
		moduleID:       moduleID,
		idents:         idents,
		local:          make(map[string]ident.IdentId),
		imported:       importedNames,
		builtinAliases: builtinAliases,
		vs:             vs,
	}

	// First pass: reserve an IdentId for every top-level name so mutually
	// recursive declarations can reference each other regardless of
	// definition order.
	for _, let := range defs.Lets {
		sc.local[let.Name] = idents.GetOrInsert(let.Name)
	}

	mod := &Module{
		ID:           moduleID,
		Declarations: make(map[ident.IdentId]*Declaration),
		Constraint:   &Constraint{},
	}

	var reports []*verrors.Report
	used := make(map[string]bool)

	for _, let := range defs.Lets {
		id := sc.local[let.Name]
		decl := &Declaration{Symbol: ident.Symbol{Module: moduleID, Ident: id}, Body: let.Value}
		sc.params = make(map[string]bool, len(let.Params))
		for _, p := range let.Params {
			decl.Params = append(decl.Params, idents.GetOrInsert(p))
			sc.params[p] = true
		}

		refs, lits, declReports := sc.resolveExpr(let.Value, id, used)
		decl.Refs = refs
		decl.Literals = lits
		reports = append(reports, declReports...)
		mod.Declarations[id] = decl
	}

	for name, sym := range importedNames {
		if !used[name] {
			reports = append(reports, verrors.New(verrors.LDR006, "canon",
				fmt.Sprintf("imported name %q is never used", name)).
				WithData(map[string]any{"symbol": sym}))
		}
	}

	return mod, reports
}

// SetExposed records which IdentIds the module's header exposed, resolving
// each against the module's ident table; names the table does not hold are
// skipped.
func (m *Module) SetExposed(names []string, idents *ident.IdentTable) {
	for _, name := range names {
		if id, ok := idents.Lookup(name); ok {
			m.Exposed = append(m.Exposed, id)
		}
	}
}

func (sc *scope) resolveExpr(e ast.Expr, site ident.IdentId, used map[string]bool) ([]ident.Symbol, []types.Type, []*verrors.Report) {
	var refs []ident.Symbol
	var lits []types.Type
	var reports []*verrors.Report

	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.Ident:
			if sc.params[n.Name] {
				return
			}
			if id, ok := sc.local[n.Name]; ok {
				refs = append(refs, ident.Symbol{Module: sc.moduleID, Ident: id})
				return
			}
			if sym, ok := sc.imported[n.Name]; ok {
				used[n.Name] = true
				refs = append(refs, sym)
				sc.vs.Fresh() // placeholder type var reserved for this reference site
				return
			}
			if sym, ok := sc.builtinAliases[n.Name]; ok {
				used[n.Name] = true
				refs = append(refs, sym)
				return
			}
			reports = append(reports, verrors.New(verrors.TC002, "canon",
				fmt.Sprintf("unbound identifier %q", n.Name)).WithSpan(ast.Span{Start: n.Pos, End: n.Pos}))
		case *ast.IntLit:
			lits = append(lits, types.Int)
		case *ast.StrLit:
			lits = append(lits, types.Str)
		case *ast.BinaryOp:
			walk(n.Left)
			walk(n.Right)
		case *ast.Call:
			walk(n.Callee)
			for _, a := range n.Args {
				walk(a)
			}
		case *ast.If:
			walk(n.Cond)
			walk(n.Then)
			walk(n.Else)
		}
	}
	walk(e)
	return refs, lits, reports
}
