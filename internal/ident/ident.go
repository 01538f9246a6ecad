// Package ident provides the dense integer identifiers the loader assigns
// to modules and local names, plus the concurrent tables that issue them.
//
// Tables use short-held locks (minimum-extent locking, never held across a
// task boundary) and hand callers snapshots/clones rather than references
// held across goroutines.
package ident

import "sync"

// ModuleId is a dense identifier for an interned module name. Stable for
// the lifetime of one load; not stable across loads.
type ModuleId int

// IdentId is a dense per-module identifier for an interned local name.
type IdentId int

// Symbol is the global name of any declared or exposed value.
type Symbol struct {
	Module ModuleId
	Ident  IdentId
}

// ModuleTable assigns ModuleIds to module names. Insertion order is
// deterministic within a single load.
type ModuleTable struct {
	mu     sync.Mutex
	byName map[string]ModuleId
	names  []string
}

// NewModuleTable returns an empty table.
func NewModuleTable() *ModuleTable {
	return &ModuleTable{byName: make(map[string]ModuleId)}
}

// GetOrInsert returns the ModuleId for name, assigning a fresh one if this
// is the first time name has been seen by this table.
func (t *ModuleTable) GetOrInsert(name string) ModuleId {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.byName[name]; ok {
		return id
	}
	id := ModuleId(len(t.names))
	t.byName[name] = id
	t.names = append(t.names, name)
	return id
}

// Name returns the name a ModuleId was issued for.
func (t *ModuleTable) Name(id ModuleId) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) < 0 || int(id) >= len(t.names) {
		return "", false
	}
	return t.names[id], true
}

// Len returns the number of module names interned so far.
func (t *ModuleTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.names)
}

// Snapshot returns an independent copy of the name->id mapping, safe to
// hand to a worker task for lock-free use.
func (t *ModuleTable) Snapshot() map[string]ModuleId {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]ModuleId, len(t.byName))
	for k, v := range t.byName {
		out[k] = v
	}
	return out
}

// IdentTable is the local-name -> IdentId table for a single module.
type IdentTable struct {
	mu     sync.Mutex
	byName map[string]IdentId
	names  []string
}

func newIdentTable() *IdentTable {
	return &IdentTable{byName: make(map[string]IdentId)}
}

// GetOrInsert assigns (or returns) the IdentId for a local name.
func (t *IdentTable) GetOrInsert(name string) IdentId {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.byName[name]; ok {
		return id
	}
	id := IdentId(len(t.names))
	t.byName[name] = id
	t.names = append(t.names, name)
	return id
}

// Lookup returns the IdentId already assigned to name, if any.
func (t *IdentTable) Lookup(name string) (IdentId, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byName[name]
	return id, ok
}

// Name returns the local name an IdentId was assigned for.
func (t *IdentTable) Name(id IdentId) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) < 0 || int(id) >= len(t.names) {
		return "", false
	}
	return t.names[id], true
}

// Clone returns an independent copy of this module's ident table, taken
// under lock once.
func (t *IdentTable) Clone() *IdentTable {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := newIdentTable()
	for k, v := range t.byName {
		out.byName[k] = v
	}
	out.names = append(out.names, t.names...)
	return out
}

// IdentTables is the shared ModuleId -> IdentTable map.
type IdentTables struct {
	mu      sync.Mutex
	byModID map[ModuleId]*IdentTable
}

// NewIdentTables returns an empty shared table.
func NewIdentTables() *IdentTables {
	return &IdentTables{byModID: make(map[ModuleId]*IdentTable)}
}

// Ensure returns the IdentTable for a module, creating an empty one if this
// is the first reference to that module.
func (t *IdentTables) Ensure(m ModuleId) *IdentTable {
	t.mu.Lock()
	defer t.mu.Unlock()
	it, ok := t.byModID[m]
	if !ok {
		it = newIdentTable()
		t.byModID[m] = it
	}
	return it
}

// SeedBuiltins pre-seeds a module's ident table with built-in exposed
// names, assigning them IdentIds before any user code is parsed.
func (t *IdentTables) SeedBuiltins(m ModuleId, builtinNames []string) *IdentTable {
	it := t.Ensure(m)
	for _, n := range builtinNames {
		it.GetOrInsert(n)
	}
	return it
}

// Clone returns a deep, independent copy of a single module's ident table.
// This is the "freshly computed dep_idents map" of — one lock
// acquisition per dependency, not held across the calling task's lifetime.
func (t *IdentTables) Clone(m ModuleId) *IdentTable {
	return t.Ensure(m).Clone()
}

// Interns is the final, merged product returned to callers of Load: module
// names plus every module's finalized (post-canonicalization) ident table.
type Interns struct {
	Modules *ModuleTable
	Idents  map[ModuleId]*IdentTable
}
