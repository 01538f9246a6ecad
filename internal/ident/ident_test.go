package ident

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleTableInternsOnce(t *testing.T) {
	mt := NewModuleTable()
	a := mt.GetOrInsert("Foo.Bar")
	b := mt.GetOrInsert("Foo.Bar")
	c := mt.GetOrInsert("Baz")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	name, ok := mt.Name(a)
	require.True(t, ok)
	assert.Equal(t, "Foo.Bar", name)

	assert.Equal(t, 2, mt.Len())
}

func TestModuleTableUnknownId(t *testing.T) {
	mt := NewModuleTable()
	_, ok := mt.Name(ModuleId(42))
	assert.False(t, ok)
}

func TestIdentTablesEnsureAndSeedBuiltins(t *testing.T) {
	tables := NewIdentTables()
	m := ModuleId(0)

	it := tables.SeedBuiltins(m, []string{"add", "sub"})
	addID, ok := it.Lookup("add")
	require.True(t, ok)

	same := tables.Ensure(m)
	got, ok := same.Lookup("add")
	require.True(t, ok)
	assert.Equal(t, addID, got)
}

func TestCloneIsIndependent(t *testing.T) {
	tables := NewIdentTables()
	m := ModuleId(1)
	tables.Ensure(m).GetOrInsert("x")

	clone := tables.Clone(m)
	clone.GetOrInsert("y")

	original := tables.Ensure(m)
	_, ok := original.Lookup("y")
	assert.False(t, ok, "mutating a clone must not affect the shared table")
}

func TestModuleTableSnapshot(t *testing.T) {
	mt := NewModuleTable()
	mt.GetOrInsert("A")
	mt.GetOrInsert("B")

	snap := mt.Snapshot()
	assert.Len(t, snap, 2)

	mt.GetOrInsert("C")
	assert.Len(t, snap, 2, "snapshot must not see later insertions")
}

func TestModuleTableSnapshotMatchesExpectedShape(t *testing.T) {
	mt := NewModuleTable()
	mt.GetOrInsert("A")
	mt.GetOrInsert("B")

	want := map[string]ModuleId{"A": 0, "B": 1}
	if diff := cmp.Diff(want, mt.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}
