// Package handlers implements the twelve NFS v3 procedures spec.md §4.7
// requires (plus NOTSUPP stubs for the rest), each decoding its argument
// tail, invoking the FSAL, and encoding a reply whose RPC-level status is
// always SUCCESS — the NFS3ERR_* outcome, if any, rides inside the body per
// spec.md §7.
package handlers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nfsd3/nfsd3/internal/logger"
	"github.com/nfsd3/nfsd3/internal/nfs/fsal"
	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// Handlers binds the NFS v3 procedure set to a concrete FSAL and the
// server's boot-instance writeverf (spec.md §4.7: clients detect a server
// restart by a change in writeverf between WRITE calls).
type Handlers struct {
	FS        fsal.FSAL
	WriteVerf [8]byte
}

func writeStatus(buf *bytes.Buffer, status v3.Status) {
	_ = xdr.WriteUint32(buf, uint32(status))
}

// callerFromCred extracts an fsal.Caller from the call's AUTH_SYS
// credential, or a zero-value (anonymous) Caller for AUTH_NONE. The
// connection layer has already rejected any other flavor before a handler
// ever runs (spec.md §4.3).
func callerFromCred(call *rpc.CallEnvelope) fsal.Caller {
	if call.Cred.Flavor != rpc.AuthFlavorSys {
		return fsal.Caller{}
	}
	cred, err := rpc.DecodeAuthSysCredential(call.Cred.Body)
	if err != nil {
		return fsal.Caller{}
	}
	return fsal.Caller{UID: cred.UID, GID: cred.GID, GIDs: cred.GIDs}
}

// Null implements procedure 0 for both NFS and MOUNT-adjacent pings: an
// empty call answered with an empty body.
func (h *Handlers) Null(_ context.Context, _ *rpc.CallEnvelope) ([]byte, error) {
	return []byte{}, nil
}

// logFailure is the one place procedure handlers note an FSAL failure,
// keeping the log line's shape consistent across procedures.
func logFailure(ctx context.Context, op string, err error) {
	logger.WarnCtx(ctx, "fsal call failed", "op", op, "error", err)
}

// logCall records that a procedure was dispatched, before the FSAL is
// consulted. Every handler below calls this once, right after decoding the
// primary handle argument, so a trace of every RPC the server answered is
// available at DEBUG level regardless of whether the FSAL call that follows
// succeeds or fails — logFailure above covers the failure case specifically,
// this covers "a call happened" unconditionally.
func logCall(ctx context.Context, op string, fh []byte) {
	logger.DebugCtx(ctx, "RPC call", "op", op, "handle", fmt.Sprintf("%x", fh))
}
