// Package msgbus defines the coordinator's inbound message bus: a single
// bounded channel every worker task sends its completion message to, and
// the sum-of-variants Msg type the coordinator's update loop switches on.
package msgbus

import (
	verrors "github.com/velaris-lang/vela/internal/errors"

	"github.com/velaris-lang/vela/internal/ast"
	"github.com/velaris-lang/vela/internal/canon"
	"github.com/velaris-lang/vela/internal/ident"
	"github.com/velaris-lang/vela/internal/solve"
)

// Kind discriminates which variant a Msg carries.
type Kind int

const (
	// Header is sent once a module's header has been parsed and its
	// dependency list is known.
	Header Kind = iota
	// Constrained is sent once a module's defs have been parsed and
	// canonicalized.
	Constrained
	// Solved is sent once a module's constraint has been discharged.
	Solved
	// Finished is sent by a task that hit an unrecoverable error and is
	// giving up on its module.
	Finished
)

// Msg is one message a worker task posts back to the coordinator.
type Msg struct {
	Kind Kind

	// Header variant fields. Src is the module's full NFC-normalized source
	// text, carried along so the coordinator can hand it straight to the
	// constrain task (and, for the root module, the final LoadedModule)
	// instead of re-reading the file from disk a second time.
	ModuleID  ident.ModuleId
	HeaderAST *ast.Header
	IsRoot    bool
	Deps      []ident.ModuleId
	Src       string

	// Constrained variant fields.
	CanonModule *canon.Module

	// Solved variant fields.
	SolveResult *solve.Result

	// Finished variant fields (also used to carry fatal reports from any
	// other variant). ErrIsFile distinguishes a filesystem failure (the
	// coordinator's FileProblem) from a parser failure (ParsingFailed);
	// Filename names the source file the failing task was working on.
	Err       error
	ErrIsFile bool
	Filename  string
	Reports   []*verrors.Report
}

// Bus is the bounded channel every task sends Msg values to, and the
// coordinator receives from. Capacity 1024 is large enough that a burst of
// sibling header messages never blocks a worker on send.
type Bus struct {
	ch chan Msg
}

// NewBus returns a ready Bus.
func NewBus() *Bus {
	return &Bus{ch: make(chan Msg, 1024)}
}

// Send posts msg to the bus. Blocks only in the pathological case where
// 1024 messages are already queued and the coordinator has stalled; that
// indicates MsgChannelDied territory, which the coordinator itself
// detects by checking the channel is still open on Recv.
func (b *Bus) Send(msg Msg) {
	b.ch <- msg
}

// Recv returns the bus's receive-only channel for the coordinator's
// select loop.
func (b *Bus) Recv() <-chan Msg {
	return b.ch
}

// Close closes the bus. Only the coordinator may call this, after every
// worker has been joined.
func (b *Bus) Close() {
	close(b.ch)
}
