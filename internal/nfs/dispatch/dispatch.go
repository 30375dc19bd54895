// Package dispatch routes a decoded RPC call to the handler registered for
// its (program, version, procedure) triple, producing the RPC-layer error
// taxonomy of spec.md §4.4: PROG_UNAVAIL, PROG_MISMATCH, PROC_UNAVAIL,
// GARBAGE_ARGS.
package dispatch

import (
	"context"

	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
)

// Well-known program numbers this server answers.
const (
	ProgPortmap = 100000
	ProgMount   = 100005
	ProgNFS     = 100003
)

// ErrGarbageArgs signals that a handler could not decode its arguments from
// a call whose program/version/procedure were otherwise valid.
type ErrGarbageArgs struct{ Err error }

func (e *ErrGarbageArgs) Error() string { return "dispatch: garbage args: " + e.Err.Error() }
func (e *ErrGarbageArgs) Unwrap() error { return e.Err }

// Handler processes one procedure call's argument tail and returns the
// encoded success body. Handlers that need to report an application-level
// failure (NFS3ERR_*, MNT3ERR_*) encode that status into the body
// themselves and return a nil error — only argument decode failures and
// unexpected internal faults are reported as Go errors here.
type Handler func(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error)

// procedureSet maps a procedure number to its handler.
type procedureSet map[uint32]Handler

// versionSet maps a version number to its procedures, for one program.
type versionSet map[uint32]procedureSet

// Table is a static (prog -> vers -> proc -> Handler) routing table.
type Table struct {
	programs map[uint32]versionSet
}

// NewTable returns an empty dispatch table.
func NewTable() *Table {
	return &Table{programs: make(map[uint32]versionSet)}
}

// Register adds a handler for (prog, vers, proc), creating intermediate
// maps as needed.
func (t *Table) Register(prog, vers, proc uint32, h Handler) {
	vs, ok := t.programs[prog]
	if !ok {
		vs = make(versionSet)
		t.programs[prog] = vs
	}
	ps, ok := vs[vers]
	if !ok {
		ps = make(procedureSet)
		vs[vers] = ps
	}
	ps[proc] = h
}

// Outcome classifies the result of a Dispatch call for the caller (the
// connection's request loop), which needs to know which RPC accept_stat —
// if any — to encode when Handler itself did not run.
type Outcome int

const (
	// OutcomeHandled means the Handler ran; Body/Err carry its result.
	OutcomeHandled Outcome = iota
	OutcomeProgUnavail
	OutcomeProgMismatch
	OutcomeProcUnavail
)

// Result is what Dispatch returns.
type Result struct {
	Outcome Outcome
	// MismatchLow/MismatchHigh are populated only for OutcomeProgMismatch.
	MismatchLow, MismatchHigh uint32
	// Body and Err are populated only for OutcomeHandled.
	Body []byte
	Err  error
}

// Dispatch routes call per the ordering in spec.md §4.4: program known,
// then version supported, then procedure known. It does not itself decode
// procedure arguments — that happens inside the registered Handler, whose
// error is surfaced via Result.Err. The connection answers every non-nil
// Result.Err with GARBAGE_ARGS; it does not tell argument decode failures
// apart from other handler errors, so a handler's encode failure is also
// answered with GARBAGE_ARGS rather than SYSTEM_ERR.
func (t *Table) Dispatch(ctx context.Context, call *rpc.CallEnvelope) Result {
	vs, ok := t.programs[call.Prog]
	if !ok {
		return Result{Outcome: OutcomeProgUnavail}
	}

	ps, ok := vs[call.Vers]
	if !ok {
		low, high := versionRange(vs)
		return Result{Outcome: OutcomeProgMismatch, MismatchLow: low, MismatchHigh: high}
	}

	h, ok := ps[call.Proc]
	if !ok {
		return Result{Outcome: OutcomeProcUnavail}
	}

	body, err := h(ctx, call)
	return Result{Outcome: OutcomeHandled, Body: body, Err: err}
}

func versionRange(vs versionSet) (low, high uint32) {
	first := true
	for v := range vs {
		if first || v < low {
			low = v
		}
		if first || v > high {
			high = v
		}
		first = false
	}
	return low, high
}
