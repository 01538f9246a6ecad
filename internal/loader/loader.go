// Package loader is the coordination core: a single coordinator goroutine
// running an actor-style update loop over msgbus.Msg values, backed by a
// taskqueue.Pool of workers that parse, canonicalize, and solve every
// module in a dependency graph in parallel.
//
// The coordinator owns all mutable state itself (no lock needed on state):
// every worker communicates back strictly through the bus, so resolution
// and caching stay single-writer even though parsing/canonicalizing/solving
// run concurrently across the pool. See DESIGN.md.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	verrors "github.com/velaris-lang/vela/internal/errors"

	"github.com/velaris-lang/vela/internal/ast"
	"github.com/velaris-lang/vela/internal/canon"
	"github.com/velaris-lang/vela/internal/ident"
	"github.com/velaris-lang/vela/internal/iface"
	"github.com/velaris-lang/vela/internal/lexer"
	"github.com/velaris-lang/vela/internal/msgbus"
	"github.com/velaris-lang/vela/internal/parser"
	"github.com/velaris-lang/vela/internal/solve"
	"github.com/velaris-lang/vela/internal/stdlib"
	"github.com/velaris-lang/vela/internal/taskqueue"
	"github.com/velaris-lang/vela/internal/types"
)

// LoadedModule is the successful result of Load.
type LoadedModule struct {
	RootID  ident.ModuleId
	Interns *ident.Interns
	Exposed map[ident.ModuleId]*iface.ExposedModuleTypes
	Schemes map[ident.ModuleId]map[ident.IdentId]*types.Scheme
	// DeclarationsByID is every module's canonicalized declarations, keyed
	// by their global Symbol (spec.md §3/§6's declarations_by_id).
	DeclarationsByID map[ident.Symbol]*canon.Declaration
	// ExposedVarsBySymbol maps each symbol the root module exposes to the
	// raw unification variable its declaration solved to (spec.md §4.5/§6's
	// exposed_vars_by_symbol), taken from the root module's Solved message.
	ExposedVarsBySymbol map[ident.Symbol]*types.Var
	// Src is the root module's own NFC-normalized source text (spec.md
	// §6's src).
	Src          string
	CanProblems  []*verrors.Report
	TypeProblems []*verrors.Report
}

// ProblemKind enumerates the ways Load can fail without producing a
// LoadedModule.
type ProblemKind int

const (
	FileProblem ProblemKind = iota
	ParsingFailed
	MsgChannelDied
	ErrJoiningWorkerThreads
	TriedToImportAppModule
)

// LoadingProblem is the error result of Load.
type LoadingProblem struct {
	Kind   ProblemKind
	Path   string
	Detail string
}

func (p *LoadingProblem) Error() string {
	return fmt.Sprintf("%s: %s", kindName(p.Kind), p.Detail)
}

func kindName(k ProblemKind) string {
	switch k {
	case FileProblem:
		return "file problem"
	case ParsingFailed:
		return "parsing failed"
	case MsgChannelDied:
		return "message channel died"
	case ErrJoiningWorkerThreads:
		return "error joining worker threads"
	case TriedToImportAppModule:
		return "tried to import app module"
	}
	return "unknown problem"
}

// state is the coordinator's private bookkeeping. Only the coordinator
// goroutine ever touches it — every worker communicates back strictly
// through the msgbus, so state needs no lock of its own.
type state struct {
	stdlibPath string
	srcDir     string
	mode       stdlib.Mode

	modules *ident.ModuleTable
	idents  *ident.IdentTables

	rootID     ident.ModuleId
	isApp      map[ident.ModuleId]bool
	discovered map[ident.ModuleId]bool

	headers map[ident.ModuleId]*ast.Header
	deps    map[ident.ModuleId][]ident.ModuleId

	// srcByModule holds each module's full NFC-normalized source text, as
	// read and normalized once by its header task. The constrain task
	// reuses this directly instead of re-reading the file, so a module is
	// never read from disk twice.
	srcByModule map[ident.ModuleId]string

	canonModules map[ident.ModuleId]*canon.Module
	// declarationsByID accumulates every module's canonicalized
	// declarations as they arrive, keyed by global Symbol.
	declarationsByID map[ident.Symbol]*canon.Declaration

	// waitingForConstrain[m] is the set of dependency ModuleIds whose own
	// canonicalization must finish before m's constrain task can start
	// (it needs every dependency's ident table to already hold stable
	// IdentIds for the names m selectively imports; ).
	waitingForConstrain map[ident.ModuleId]map[ident.ModuleId]bool
	// constrainListeners[dep] lists modules blocked on dep's constrain.
	constrainListeners map[ident.ModuleId][]ident.ModuleId

	// waitingForSolve[m] is the set of dependency ModuleIds whose solved
	// interface m is still waiting on before its own solve task can run
	//.
	waitingForSolve map[ident.ModuleId]map[ident.ModuleId]bool
	solveListeners  map[ident.ModuleId][]ident.ModuleId

	exposed map[ident.ModuleId]*iface.ExposedModuleTypes
	schemes map[ident.ModuleId]map[ident.IdentId]*types.Scheme
	// exposedVarsBySymbol is set once, from the root module's own Solved
	// message (spec.md §4.5/§6's exposed_vars_by_symbol).
	exposedVarsBySymbol map[ident.Symbol]*types.Var

	canProblems  []*verrors.Report
	typeProblems []*verrors.Report

	pending int // outstanding modules not yet solved; coordinator stops at 0
	fatal   *LoadingProblem
}

// Load is the loader's single external entry point.
func Load(stdlibPath, srcDir, filename string, mode stdlib.Mode) (*LoadedModule, *LoadingProblem) {
	st := &state{
		stdlibPath:          stdlibPath,
		srcDir:              srcDir,
		mode:                mode,
		modules:             ident.NewModuleTable(),
		idents:              ident.NewIdentTables(),
		isApp:               make(map[ident.ModuleId]bool),
		discovered:          make(map[ident.ModuleId]bool),
		headers:             make(map[ident.ModuleId]*ast.Header),
		deps:                make(map[ident.ModuleId][]ident.ModuleId),
		srcByModule:         make(map[ident.ModuleId]string),
		canonModules:        make(map[ident.ModuleId]*canon.Module),
		declarationsByID:    make(map[ident.Symbol]*canon.Declaration),
		waitingForConstrain: make(map[ident.ModuleId]map[ident.ModuleId]bool),
		constrainListeners:  make(map[ident.ModuleId][]ident.ModuleId),
		waitingForSolve:     make(map[ident.ModuleId]map[ident.ModuleId]bool),
		solveListeners:      make(map[ident.ModuleId][]ident.ModuleId),
		exposed:             make(map[ident.ModuleId]*iface.ExposedModuleTypes),
		schemes:             make(map[ident.ModuleId]map[ident.IdentId]*types.Scheme),
	}

	if _, err := os.Stat(filename); err != nil {
		return nil, &LoadingProblem{Kind: FileProblem, Path: filename, Detail: err.Error()}
	}

	bus := msgbus.NewBus()
	numWorkers := runtime.NumCPU() - 1
	if numWorkers < 1 {
		numWorkers = 1
	}

	var once sync.Once
	pool := taskqueue.NewPool(numWorkers, func(t taskqueue.Task) { t() })
	shutdown := func() { once.Do(pool.Shutdown) }
	defer shutdown()

	// The stdlib provider is interned first, before any user module, so
	// stdlib.BuiltinModuleID (0) is always its ModuleId — builtin aliases
	// are seeded into its own ident table once, up front, rather than
	// re-derived piecemeal out of whichever module happens to reference
	// them first.
	stdlibModID := st.modules.GetOrInsert("#builtin")
	st.idents.SeedBuiltins(stdlibModID, stdlib.ExposedBuiltins(mode))

	rootName := moduleNameFromFilename(filename)
	st.rootID = st.modules.GetOrInsert(rootName)
	st.discovered[st.rootID] = true
	st.pending = 1

	pool.Submit(headerTask(st, bus, filename, st.rootID, true))

	for st.pending > 0 && st.fatal == nil {
		msg, ok := <-bus.Recv()
		if !ok {
			return nil, &LoadingProblem{Kind: MsgChannelDied, Detail: "coordinator channel closed early"}
		}
		st.update(msg, bus, pool)
	}

	if st.fatal != nil {
		return nil, st.fatal
	}

	return &LoadedModule{
		RootID: st.rootID,
		Interns: &ident.Interns{
			Modules: st.modules,
			Idents:  snapshotIdents(st),
		},
		Exposed:             st.exposed,
		Schemes:             st.schemes,
		DeclarationsByID:    st.declarationsByID,
		ExposedVarsBySymbol: st.exposedVarsBySymbol,
		Src:                 st.srcByModule[st.rootID],
		CanProblems:         st.canProblems,
		TypeProblems:        st.typeProblems,
	}, nil
}

func snapshotIdents(st *state) map[ident.ModuleId]*ident.IdentTable {
	out := make(map[ident.ModuleId]*ident.IdentTable, st.modules.Len())
	for i := 0; i < st.modules.Len(); i++ {
		m := ident.ModuleId(i)
		out[m] = st.idents.Ensure(m)
	}
	return out
}

func moduleNameFromFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base
}

// update is the coordinator's state machine: one message
// in, zero or more tasks submitted, state advanced.
func (st *state) update(msg msgbus.Msg, bus *msgbus.Bus, pool *taskqueue.Pool) {
	switch msg.Kind {
	case msgbus.Header:
		st.onHeader(msg, bus, pool)
	case msgbus.Constrained:
		st.onConstrained(msg, bus, pool)
	case msgbus.Solved:
		st.onSolved(msg, bus, pool)
	case msgbus.Finished:
		st.canProblems = append(st.canProblems, msg.Reports...)
		if msg.Err != nil && st.fatal == nil {
			kind := ParsingFailed
			if msg.ErrIsFile {
				kind = FileProblem
			}
			st.fatal = &LoadingProblem{Kind: kind, Path: msg.Filename, Detail: msg.Err.Error()}
		}
		st.pending--
	}
}

// onHeader handles a module's parsed header: it validates the App-header
// invariant, discovers and kicks off header tasks for any new
// dependencies, and either starts this module's constrain task right away
// or registers it to wait for its dependencies to finish canonicalizing
// first.
func (st *state) onHeader(msg msgbus.Msg, bus *msgbus.Bus, pool *taskqueue.Pool) {
	m := msg.ModuleID
	st.headers[m] = msg.HeaderAST
	st.srcByModule[m] = msg.Src
	st.isApp[m] = msg.HeaderAST.Kind == ast.App

	if msg.HeaderAST.Kind == ast.App && !msg.IsRoot {
		st.fatal = &LoadingProblem{Kind: TriedToImportAppModule, Detail: fmt.Sprintf("module %q has an app header but is imported by another module", msg.HeaderAST.Name)}
		return
	}

	deps := make([]ident.ModuleId, 0, len(msg.HeaderAST.Imports))
	waiting := make(map[ident.ModuleId]bool)
	for _, imp := range msg.HeaderAST.Imports {
		depID := st.modules.GetOrInsert(imp.ModuleName)
		deps = append(deps, depID)

		if !st.discovered[depID] {
			st.discovered[depID] = true
			st.pending++
			filename, _ := st.resolveModulePath(imp.ModuleName)
			pool.Submit(headerTask(st, bus, filename, depID, false))
		}
		if _, done := st.canonModules[depID]; done {
			continue
		}
		waiting[depID] = true
		st.constrainListeners[depID] = append(st.constrainListeners[depID], m)
	}
	st.deps[m] = deps

	if len(waiting) == 0 {
		st.startConstrain(m, bus, pool)
		return
	}
	st.waitingForConstrain[m] = waiting
}

// startConstrain submits the parse-and-constrain task for m. Every
// dependency it imports from has already finished canonicalizing, so its
// ident table holds stable IdentIds m can safely clone.
func (st *state) startConstrain(m ident.ModuleId, bus *msgbus.Bus, pool *taskqueue.Pool) {
	header := st.headers[m]
	name, _ := st.modules.Name(m)
	filename, _ := st.resolveModulePath(name)
	pool.Submit(constrainTask(st, bus, m, header, st.srcByModule[m], filename))
}

// onConstrained records a module's canonicalized form and either starts
// its solve task immediately (every dependency already solved) or
// registers it to wait. It also unblocks any dependents that were
// waiting on this module's own constrain to finish.
func (st *state) onConstrained(msg msgbus.Msg, bus *msgbus.Bus, pool *taskqueue.Pool) {
	m := msg.ModuleID
	st.canonModules[m] = msg.CanonModule
	st.canProblems = append(st.canProblems, msg.Reports...)
	for declID, decl := range msg.CanonModule.Declarations {
		st.declarationsByID[ident.Symbol{Module: m, Ident: declID}] = decl
	}

	for _, dependent := range st.constrainListeners[m] {
		w := st.waitingForConstrain[dependent]
		delete(w, m)
		if len(w) == 0 {
			delete(st.waitingForConstrain, dependent)
			st.startConstrain(dependent, bus, pool)
		}
	}
	delete(st.constrainListeners, m)

	waiting := make(map[ident.ModuleId]bool)
	for _, dep := range st.deps[m] {
		if _, ok := st.exposed[dep]; ok {
			continue
		}
		waiting[dep] = true
		st.solveListeners[dep] = append(st.solveListeners[dep], m)
	}
	if len(waiting) == 0 {
		st.startSolve(m, bus, pool)
		return
	}
	st.waitingForSolve[m] = waiting
}

func (st *state) startSolve(m ident.ModuleId, bus *msgbus.Bus, pool *taskqueue.Pool) {
	mod := st.canonModules[m]
	idents := st.idents.Ensure(m)
	depSchemesBySymbol := make(map[ident.Symbol]*types.Scheme)
	for _, dep := range st.deps[m] {
		for id, sch := range st.schemes[dep] {
			depSchemesBySymbol[ident.Symbol{Module: dep, Ident: id}] = sch
		}
	}
	_, builtinSchemes := stdlib.Aliases(st.mode, st.idents.Ensure(stdlib.BuiltinModuleID))
	for sym, sch := range builtinSchemes {
		depSchemesBySymbol[sym] = sch
	}
	pool.Submit(solveTask(bus, m, mod, idents, depSchemesBySymbol))
}

// onSolved records a module's solved schemes and published interface, then
// unblocks any dependents waiting on it.
func (st *state) onSolved(msg msgbus.Msg, bus *msgbus.Bus, pool *taskqueue.Pool) {
	m := msg.ModuleID
	st.exposed[m] = msg.SolveResult.Exposed
	st.schemes[m] = msg.SolveResult.Schemes
	st.typeProblems = append(st.typeProblems, msg.SolveResult.Reports...)
	st.pending--
	if m == st.rootID {
		st.exposedVarsBySymbol = msg.SolveResult.ExposedVars
	}

	for _, dependent := range st.solveListeners[m] {
		w := st.waitingForSolve[dependent]
		delete(w, m)
		if len(w) == 0 {
			delete(st.waitingForSolve, dependent)
			st.startSolve(dependent, bus, pool)
		}
	}
	delete(st.solveListeners, m)
}

// resolveModulePath maps a dotted module name to a source file path
// ("Foo.Bar.Baz" -> "<src_dir>/Foo/Bar/Baz.vl"). "Std" and names under
// "Std." map into the stdlib path instead, and the bool result is true for
// them; no file existence is checked and there is no fallback between the
// two directories.
func (st *state) resolveModulePath(name string) (string, bool) {
	rel := filepath.Join(strings.Split(name, ".")...) + ".vl"
	if strings.HasPrefix(name, "Std.") || name == "Std" {
		return filepath.Join(st.stdlibPath, rel), true
	}
	return filepath.Join(st.srcDir, rel), false
}

// headerTask reads and parses just the header of a module, then posts
// either a Header or Finished message. It normalizes the file's contents
// once and carries the normalized text along on the Header message (Src),
// so the constrain task can resume tokenizing the same in-memory buffer
// right after the header instead of reading and re-normalizing the file a
// second time.
func headerTask(st *state, bus *msgbus.Bus, filename string, m ident.ModuleId, isRoot bool) taskqueue.Task {
	return func() {
		raw, err := os.ReadFile(filename)
		if err != nil {
			bus.Send(msgbus.Msg{Kind: msgbus.Finished, ModuleID: m, Err: err, ErrIsFile: true, Filename: filename})
			return
		}
		normalized := lexer.Normalize(string(raw))
		lx := lexer.NewAt(normalized, filename, 0, 1)
		p := parser.New(lx)
		h := p.ParseHeader()
		if errs := p.Errors(); len(errs) > 0 {
			bus.Send(msgbus.Msg{Kind: msgbus.Finished, ModuleID: m, Err: errs[0], Filename: filename})
			return
		}
		bus.Send(msgbus.Msg{Kind: msgbus.Header, ModuleID: m, HeaderAST: h, IsRoot: isRoot, Src: normalized})
	}
}

// lineAt returns the 1-indexed line number of the given rune offset within
// normalizedSrc, for resuming a lexer mid-buffer with accurate line numbers
// in its reported token positions.
func lineAt(normalizedSrc string, offset int) int {
	runes := []rune(normalizedSrc)
	if offset > len(runes) {
		offset = len(runes)
	}
	return 1 + strings.Count(string(runes[:offset]), "\n")
}

// constrainTask canonicalizes a module's full definitions against every
// dependency's already-settled ident table. It resumes tokenizing from
// header's own normalized source (normalizedSrc, carried on the Header
// message the header task already parsed this file from) right after the
// header, rather than re-reading the file from disk and re-parsing a
// second, discarded header — avoiding both the redundant work and the
// TOCTOU hazard of the file changing between the two reads.
func constrainTask(st *state, bus *msgbus.Bus, m ident.ModuleId, header *ast.Header, normalizedSrc string, filename string) taskqueue.Task {
	return func() {
		lx := lexer.NewAt(normalizedSrc, filename, header.Rest, lineAt(normalizedSrc, header.Rest))
		p := parser.New(lx)
		defs := p.ParseDefs()
		if errs := p.Errors(); len(errs) > 0 {
			bus.Send(msgbus.Msg{Kind: msgbus.Finished, ModuleID: m, Err: errs[0], Filename: filename})
			return
		}

		idents := st.idents.Ensure(m)
		importedNames := make(map[string]ident.Symbol)
		for _, imp := range header.Imports {
			depID := st.modules.GetOrInsert(imp.ModuleName)
			depIdents := st.idents.Clone(depID)
			for _, exp := range imp.Exposes {
				id, ok := depIdents.Lookup(exp.Name)
				if !ok {
					bus.Send(msgbus.Msg{Kind: msgbus.Constrained, ModuleID: m, Reports: []*verrors.Report{
						verrors.New(verrors.LDR004, "canon",
							fmt.Sprintf("%q does not export %q", imp.ModuleName, exp.Name)).
							WithSpan(ast.Span{Start: exp.Pos, End: exp.Pos}),
					}, CanonModule: &canon.Module{ID: m, Declarations: map[ident.IdentId]*canon.Declaration{}, Constraint: &canon.Constraint{}}})
					return
				}
				importedNames[exp.Name] = ident.Symbol{Module: depID, Ident: id}
			}
		}
		builtinSyms, _ := stdlib.Aliases(st.mode, st.idents.Ensure(stdlib.BuiltinModuleID))

		vs := types.NewVarStore()
		mod, reports := canon.Canonicalize(m, idents, defs, importedNames, builtinSyms, vs)
		exposedNames := header.Exposes
		if header.Kind == ast.App {
			exposedNames = header.Provides
		}
		names := make([]string, len(exposedNames))
		for i, e := range exposedNames {
			names[i] = e.Name
		}
		mod.SetExposed(names, idents)

		bus.Send(msgbus.Msg{Kind: msgbus.Constrained, ModuleID: m, CanonModule: mod, Reports: reports})
	}
}

// solveTask discharges a module's constraint against its dependencies'
// already-solved schemes.
func solveTask(bus *msgbus.Bus, m ident.ModuleId, mod *canon.Module, idents *ident.IdentTable, depSchemes map[ident.Symbol]*types.Scheme) taskqueue.Task {
	return func() {
		result := solve.Solve(mod, idents, depSchemes)
		bus.Send(msgbus.Msg{Kind: msgbus.Solved, ModuleID: m, SolveResult: result})
	}
}
