// Package types is the loader's constraint-solver collaborator: a minimal
// Hindley-Milner style unifier and generalizer, just enough for the solve
// task to turn a Constraint into solved schemes for every declaration.
// Type classes, row polymorphism, and effect rows are out of scope — see
// DESIGN.md.
package types

import (
	"fmt"
	"strings"
	"sync"
)

// TypeVar is a unification variable, identified by a dense index into a
// VarStore.
type TypeVar int

// Type is any monotype: a type variable, a base type, or a function type.
type Type interface {
	typeNode()
	String() string
}

// Base is a nullary type constructor: Int, Bool, Str, or a module-defined
// nominal type.
type Base struct{ Name string }

func (*Base) typeNode()     {}
func (b *Base) String() string { return b.Name }

// Var is a reference to a unification variable.
type Var struct{ ID TypeVar }

func (*Var) typeNode() {}
func (v *Var) String() string { return fmt.Sprintf("t%d", v.ID) }

// Func is a function type.
type Func struct {
	Params []Type
	Result Type
}

func (*Func) typeNode() {}
func (f *Func) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), f.Result.String())
}

// Scheme is a generalized type: a set of universally quantified variables
// over a Type.
type Scheme struct {
	Vars []TypeVar
	Body Type
}

func (s *Scheme) String() string {
	if len(s.Vars) == 0 {
		return s.Body.String()
	}
	names := make([]string, len(s.Vars))
	for i, v := range s.Vars {
		names[i] = fmt.Sprintf("t%d", v)
	}
	return fmt.Sprintf("forall %s. %s", strings.Join(names, " "), s.Body.String())
}

// VarStore issues fresh type variables and holds the substitution built up
// during unification.
type VarStore struct {
	mu    sync.Mutex
	next  TypeVar
	subst map[TypeVar]Type
}

// NewVarStore returns an empty store.
func NewVarStore() *VarStore {
	return &VarStore{subst: make(map[TypeVar]Type)}
}

// Fresh returns a new, unbound type variable.
func (s *VarStore) Fresh() *Var {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.next
	s.next++
	return &Var{ID: v}
}

func (s *VarStore) bind(v TypeVar, t Type) {
	s.mu.Lock()
	s.subst[v] = t
	s.mu.Unlock()
}

// Resolve follows the substitution chain for t to its current
// representative type.
func (s *VarStore) Resolve(t Type) Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		v, ok := t.(*Var)
		if !ok {
			return t
		}
		next, bound := s.subst[v.ID]
		if !bound {
			return t
		}
		t = next
	}
}

// Unify unifies a and b, recording bindings in the store. Returns a plain
// error describing the mismatch; the solve task wraps it as a TC003 Report.
func (s *VarStore) Unify(a, b Type) error {
	a = s.Resolve(a)
	b = s.Resolve(b)

	if av, ok := a.(*Var); ok {
		if bv, ok := b.(*Var); ok && bv.ID == av.ID {
			return nil
		}
		s.bind(av.ID, b)
		return nil
	}
	if bv, ok := b.(*Var); ok {
		s.bind(bv.ID, a)
		return nil
	}

	switch at := a.(type) {
	case *Base:
		bt, ok := b.(*Base)
		if !ok || at.Name != bt.Name {
			return fmt.Errorf("cannot unify %s with %s", a.String(), b.String())
		}
		return nil
	case *Func:
		bt, ok := b.(*Func)
		if !ok || len(at.Params) != len(bt.Params) {
			return fmt.Errorf("cannot unify %s with %s", a.String(), b.String())
		}
		for i := range at.Params {
			if err := s.Unify(at.Params[i], bt.Params[i]); err != nil {
				return err
			}
		}
		return s.Unify(at.Result, bt.Result)
	}
	return fmt.Errorf("cannot unify %s with %s", a.String(), b.String())
}

// Generalize closes over every free variable in t that isn't already bound
// in the store, producing a Scheme.
func (s *VarStore) Generalize(t Type) *Scheme {
	seen := map[TypeVar]bool{}
	var vars []TypeVar
	var walk func(Type)
	walk = func(t Type) {
		t = s.Resolve(t)
		switch tt := t.(type) {
		case *Var:
			if !seen[tt.ID] {
				seen[tt.ID] = true
				vars = append(vars, tt.ID)
			}
		case *Func:
			for _, p := range tt.Params {
				walk(p)
			}
			walk(tt.Result)
		}
	}
	walk(t)
	return &Scheme{Vars: vars, Body: s.Resolve(t)}
}

// Instantiate replaces a scheme's bound variables with fresh ones.
func (s *VarStore) Instantiate(sch *Scheme) Type {
	if len(sch.Vars) == 0 {
		return sch.Body
	}
	mapping := make(map[TypeVar]Type, len(sch.Vars))
	for _, v := range sch.Vars {
		mapping[v] = s.Fresh()
	}
	var subst func(Type) Type
	subst = func(t Type) Type {
		switch tt := t.(type) {
		case *Var:
			if r, ok := mapping[tt.ID]; ok {
				return r
			}
			return tt
		case *Func:
			params := make([]Type, len(tt.Params))
			for i, p := range tt.Params {
				params[i] = subst(p)
			}
			return &Func{Params: params, Result: subst(tt.Result)}
		default:
			return t
		}
	}
	return subst(sch.Body)
}

// Built-in base types every module may reference without importing.
var (
	Int  = &Base{Name: "Int"}
	Bool = &Base{Name: "Bool"}
	Str  = &Base{Name: "Str"}
)
