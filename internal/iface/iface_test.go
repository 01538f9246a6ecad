package iface

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/velaris-lang/vela/internal/ident"
	"github.com/velaris-lang/vela/internal/types"
)

func TestAddAndGetExport(t *testing.T) {
	m := New(ident.ModuleId(0))
	sym := ident.Symbol{Module: ident.ModuleId(0), Ident: ident.IdentId(1)}
	item := &ExposedItem{Name: "foo", Scheme: &types.Scheme{Body: types.Int}, Purity: true, Ref: sym}

	m.AddExport(ident.IdentId(1), item)
	got, ok := m.GetExport(ident.IdentId(1))
	assert.True(t, ok)
	assert.Equal(t, item, got)
}

func TestComputeDigestDeterministic(t *testing.T) {
	names := func(id ident.IdentId) (string, bool) {
		if id == 1 {
			return "a", true
		}
		return "b", true
	}

	m1 := New(ident.ModuleId(0))
	m1.AddExport(ident.IdentId(1), &ExposedItem{Scheme: &types.Scheme{Body: types.Int}})
	m1.AddExport(ident.IdentId(2), &ExposedItem{Scheme: &types.Scheme{Body: types.Bool}})

	m2 := New(ident.ModuleId(0))
	m2.AddExport(ident.IdentId(2), &ExposedItem{Scheme: &types.Scheme{Body: types.Bool}})
	m2.AddExport(ident.IdentId(1), &ExposedItem{Scheme: &types.Scheme{Body: types.Int}})

	d1 := m1.ComputeDigest(names)
	d2 := m2.ComputeDigest(names)
	assert.Equal(t, d1, d2, "digest must not depend on map iteration order")
}

func TestComputeDigestChangesWithScheme(t *testing.T) {
	names := func(ident.IdentId) (string, bool) { return "a", true }

	m1 := New(ident.ModuleId(0))
	m1.AddExport(ident.IdentId(1), &ExposedItem{Scheme: &types.Scheme{Body: types.Int}})
	d1 := m1.ComputeDigest(names)

	m2 := New(ident.ModuleId(0))
	m2.AddExport(ident.IdentId(1), &ExposedItem{Scheme: &types.Scheme{Body: types.Str}})
	d2 := m2.ComputeDigest(names)

	assert.NotEqual(t, d1, d2)
}
