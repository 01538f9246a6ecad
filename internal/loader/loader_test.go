package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velaris-lang/vela/internal/ident"
	"github.com/velaris-lang/vela/internal/stdlib"
)

func writeModule(t *testing.T, dir, relPath, src string) {
	t.Helper()
	full := filepath.Join(dir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(src), 0o644))
}

func newTestDirs(t *testing.T) (srcDir, stdlibDir string) {
	t.Helper()
	srcDir = t.TempDir()
	stdlibDir = t.TempDir()
	return
}

func TestLoadLeafModule(t *testing.T) {
	srcDir, stdlibDir := newTestDirs(t)
	root := filepath.Join(srcDir, "main.vl")
	require.NoError(t, os.WriteFile(root, []byte(`app Main provides [ answer ]
answer = 42
`), 0o644))

	result, problem := Load(stdlibDir, srcDir, root, stdlib.Standard)
	require.Nil(t, problem)
	require.NotNil(t, result)
	exposed := result.Exposed[result.RootID]
	require.NotNil(t, exposed)
	require.NotEmpty(t, exposed.Exports)

	answerID, ok := result.Interns.Idents[result.RootID].Lookup("answer")
	require.True(t, ok)
	export, ok := exposed.Exports[answerID]
	require.True(t, ok)
	assert.Equal(t, "Int", export.Scheme.String())
}

func TestLoadLinearChain(t *testing.T) {
	srcDir, stdlibDir := newTestDirs(t)
	writeModule(t, srcDir, "B.vl", `module B exposes [ base ]
base = 1
`)
	writeModule(t, srcDir, "A.vl", `module A exposes [ doubled ] imports [ B (base) ]
doubled = base
`)
	root := filepath.Join(srcDir, "main.vl")
	require.NoError(t, os.WriteFile(root, []byte(`app Main provides [ result ] imports [ A (doubled) ]
result = doubled
`), 0o644))

	result, problem := Load(stdlibDir, srcDir, root, stdlib.Standard)
	require.Nil(t, problem)
	require.NotNil(t, result)
	assert.Len(t, result.CanProblems, 0)
}

func TestLoadDiamondDependency(t *testing.T) {
	srcDir, stdlibDir := newTestDirs(t)
	writeModule(t, srcDir, "C.vl", `module C exposes [ shared ]
shared = 7
`)
	writeModule(t, srcDir, "A.vl", `module A exposes [ fromA ] imports [ C (shared) ]
fromA = shared
`)
	writeModule(t, srcDir, "B.vl", `module B exposes [ fromB ] imports [ C (shared) ]
fromB = shared
`)
	root := filepath.Join(srcDir, "main.vl")
	require.NoError(t, os.WriteFile(root, []byte(`app Main provides [ total ] imports [ A (fromA), B (fromB) ]
total = fromA
`), 0o644))

	result, problem := Load(stdlibDir, srcDir, root, stdlib.Standard)
	require.Nil(t, problem)
	require.NotNil(t, result)
	// C is interned once and shared between A and B: the table holds
	// #builtin, main, A, B and C.
	assert.Equal(t, 5, result.Interns.Modules.Len())

	cID := result.Interns.Modules.GetOrInsert("C")
	sharedID, ok := result.Interns.Idents[cID].Lookup("shared")
	require.True(t, ok)
	sharedDecl, ok := result.DeclarationsByID[ident.Symbol{Module: cID, Ident: sharedID}]
	require.True(t, ok)
	assert.NotNil(t, sharedDecl)
}

func TestLoadMissingDependencyFile(t *testing.T) {
	srcDir, stdlibDir := newTestDirs(t)
	root := filepath.Join(srcDir, "main.vl")
	require.NoError(t, os.WriteFile(root, []byte(`app Main provides [ x ] imports [ Missing ]
x = 1
`), 0o644))

	_, problem := Load(stdlibDir, srcDir, root, stdlib.Standard)
	require.NotNil(t, problem)
	assert.Equal(t, FileProblem, problem.Kind)
	assert.Contains(t, problem.Path, "Missing.vl")
}

func TestLoadNonRootAppHeaderRejected(t *testing.T) {
	srcDir, stdlibDir := newTestDirs(t)
	writeModule(t, srcDir, "Bad.vl", `app Bad provides [ x ]
x = 1
`)
	root := filepath.Join(srcDir, "main.vl")
	require.NoError(t, os.WriteFile(root, []byte(`app Main provides [ y ] imports [ Bad ]
y = 1
`), 0o644))

	_, problem := Load(stdlibDir, srcDir, root, stdlib.Standard)
	require.NotNil(t, problem)
	assert.Equal(t, TriedToImportAppModule, problem.Kind)
}

func TestLoadParseErrorReported(t *testing.T) {
	srcDir, stdlibDir := newTestDirs(t)
	root := filepath.Join(srcDir, "main.vl")
	require.NoError(t, os.WriteFile(root, []byte(`not a valid header at all +++`), 0o644))

	_, problem := Load(stdlibDir, srcDir, root, stdlib.Standard)
	require.NotNil(t, problem)
	assert.Equal(t, ParsingFailed, problem.Kind)
}

func TestLoadMissingRootFile(t *testing.T) {
	srcDir, stdlibDir := newTestDirs(t)
	root := filepath.Join(srcDir, "does-not-exist.vl")

	_, problem := Load(stdlibDir, srcDir, root, stdlib.Standard)
	require.NotNil(t, problem)
	assert.Equal(t, FileProblem, problem.Kind)
}
