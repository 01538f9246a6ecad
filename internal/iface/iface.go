// Package iface defines ExposedModuleTypes, the type-level surface a
// solved module publishes to its dependents: every exposed name's scheme,
// purity, and global reference, plus a deterministic digest so downstream
// modules can detect when a dependency's interface changed. See DESIGN.md.
package iface

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/velaris-lang/vela/internal/ident"
	"github.com/velaris-lang/vela/internal/types"
)

// ExposedItem is one name a module exposes: its scheme, whether it's pure,
// and the global symbol dependents should reference.
type ExposedItem struct {
	Name   string
	Scheme *types.Scheme
	Purity bool
	Ref    ident.Symbol
}

// AliasScheme is a builtin alias exposed by the stdlib provider, keyed by
// surface name rather than a Symbol (it has no declaring module).
type AliasScheme struct {
	Name   string
	Scheme *types.Scheme
}

// ExposedModuleTypes is what a solved module publishes for its dependents
// to import against.
type ExposedModuleTypes struct {
	Module  ident.ModuleId
	Exports map[ident.IdentId]*ExposedItem
	Aliases map[string]*AliasScheme
	Schema  string
	Digest  string
}

// New returns an empty ExposedModuleTypes for module m.
func New(m ident.ModuleId) *ExposedModuleTypes {
	return &ExposedModuleTypes{
		Module:  m,
		Exports: make(map[ident.IdentId]*ExposedItem),
		Aliases: make(map[string]*AliasScheme),
		Schema:  "vela.iface/v1",
	}
}

// AddExport records one exposed name's solved type.
func (e *ExposedModuleTypes) AddExport(id ident.IdentId, item *ExposedItem) {
	e.Exports[id] = item
}

// GetExport looks up an exposed name's solved type by IdentId.
func (e *ExposedModuleTypes) GetExport(id ident.IdentId) (*ExposedItem, bool) {
	item, ok := e.Exports[id]
	return item, ok
}

// AddAlias records a builtin alias the stdlib provider exposes.
func (e *ExposedModuleTypes) AddAlias(a *AliasScheme) {
	e.Aliases[a.Name] = a
}

// ComputeDigest derives a deterministic sha256 digest over every exported
// name and its rendered scheme, sorted by name so the digest is
// independent of map iteration order. Dependents can compare digests to
// detect whether a shared dependency's interface actually changed, rather
// than re-solving unconditionally.
func (e *ExposedModuleTypes) ComputeDigest(names func(ident.IdentId) (string, bool)) string {
	type row struct {
		name   string
		scheme string
	}
	rows := make([]row, 0, len(e.Exports))
	for id, item := range e.Exports {
		n, ok := names(id)
		if !ok {
			n = item.Name
		}
		rows = append(rows, row{name: n, scheme: item.Scheme.String()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

	var b strings.Builder
	for _, r := range rows {
		b.WriteString(r.name)
		b.WriteByte('\x00')
		b.WriteString(r.scheme)
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	e.Digest = hex.EncodeToString(sum[:])
	return e.Digest
}
