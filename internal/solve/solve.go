// Package solve infers types for a canon.Module's declarations from the
// references and literals canon recorded on each one, producing solved
// schemes for every declaration and the ExposedModuleTypes a module
// publishes to its dependents.
//
// Kept separate from internal/types so internal/canon (which needs
// internal/types for VarStore/Var) and this package (which needs
// internal/canon's Module/Constraint) don't form an import cycle.
package solve

import (
	verrors "github.com/velaris-lang/vela/internal/errors"

	"github.com/velaris-lang/vela/internal/canon"
	"github.com/velaris-lang/vela/internal/ident"
	"github.com/velaris-lang/vela/internal/iface"
	"github.com/velaris-lang/vela/internal/types"
)

// Result is what the solve task hands back to the coordinator: solved
// schemes for every declaration, keyed by IdentId, and the published
// ExposedModuleTypes.
type Result struct {
	Schemes map[ident.IdentId]*types.Scheme
	Exposed *iface.ExposedModuleTypes
	// ExposedVars maps each of mod's exposed symbols to the raw unification
	// variable its declaration solved to, before generalization. The
	// coordinator keeps this for the root module only (Msg::Finished's
	// exposed_vars_by_symbol, spec.md §4.5/§6). The VarStore these
	// variables belong to is local to Solve and is not returned, so each
	// Var carries only its ID; the resolved types are in Schemes.
	ExposedVars map[ident.Symbol]*types.Var
	Reports     []*verrors.Report
}

// Solve infers a type for every declaration in mod, unifying each free
// reference against the already-solved scheme of its target (looked up via
// depSchemes, one entry per symbol of every already-solved dependency and
// per builtin). Declarations with no inferable structure keep a fresh
// variable, which generalization then quantifies; no report is made for
// them. Only unification failures are reported (TC003).
func Solve(mod *canon.Module, idents *ident.IdentTable, depSchemes map[ident.Symbol]*types.Scheme) *Result {
	vs := types.NewVarStore()
	vars := make(map[ident.IdentId]*types.Var, len(mod.Declarations))
	for id := range mod.Declarations {
		vars[id] = vs.Fresh()
	}

	var reports []*verrors.Report

	for id, decl := range mod.Declarations {
		bodyType := inferExpr(decl, vs, vars, depSchemes, &reports)
		if err := vs.Unify(vars[id], bodyType); err != nil {
			reports = append(reports, verrors.New(verrors.TC003, "solve", err.Error()))
		}
	}

	schemes := make(map[ident.IdentId]*types.Scheme, len(vars))
	for id, v := range vars {
		schemes[id] = vs.Generalize(v)
	}

	exposed := iface.New(mod.ID)
	exposedVars := make(map[ident.Symbol]*types.Var, len(mod.Exposed))
	for _, id := range mod.Exposed {
		sch := schemes[id]
		exposed.AddExport(id, &iface.ExposedItem{
			Scheme: sch,
			Purity: true,
			Ref:    ident.Symbol{Module: mod.ID, Ident: id},
		})
		exposedVars[ident.Symbol{Module: mod.ID, Ident: id}] = vars[id]
	}
	exposed.ComputeDigest(idents.Name)

	return &Result{Schemes: schemes, Exposed: exposed, ExposedVars: exposedVars, Reports: reports}
}

// inferExpr is a minimal bottom-up inference pass: it doesn't walk
// decl.Body structurally (canon already flattened every free reference
// into decl.Refs and every literal's base type into decl.Literals), it
// unifies a fresh body-result variable against each reference and literal
// the declaration made, and returns that variable (wrapped in a function
// type over fresh parameter variables when the declaration has params) for
// Solve to unify with the declaration's own variable — not a complete type
// system (see DESIGN.md).
func inferExpr(decl *canon.Declaration, vs *types.VarStore, vars map[ident.IdentId]*types.Var, depSchemes map[ident.Symbol]*types.Scheme, reports *[]*verrors.Report) types.Type {
	result := vs.Fresh()
	for _, lit := range decl.Literals {
		if err := vs.Unify(result, lit); err != nil {
			*reports = append(*reports, verrors.New(verrors.TC003, "solve", err.Error()))
		}
	}
	for _, ref := range decl.Refs {
		if v, ok := vars[ref.Ident]; ok && ref.Module == decl.Symbol.Module {
			_ = vs.Unify(result, v)
			continue
		}
		if sch, ok := depSchemes[ref]; ok {
			inst := vs.Instantiate(sch)
			_ = vs.Unify(result, inst)
		}
	}
	if len(decl.Params) == 0 {
		return result
	}
	params := make([]types.Type, len(decl.Params))
	for i := range params {
		params[i] = vs.Fresh()
	}
	return &types.Func{Params: params, Result: result}
}
