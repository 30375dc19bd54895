package handlers

import (
	"bytes"
	"context"

	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// GetAttr implements the GETATTR procedure (RFC 1813 §3.3.1):
//
//	GETATTR3res NFSPROC3_GETATTR(GETATTR3args) = 1;
//
// GETATTR is the single most frequently issued NFS v3 call. Clients send it
// to validate cached attributes before trusting file size/mtime for
// close-to-open consistency, and `stat`/`ls` on an NFS mount resolve to one
// GETATTR per named entry. The only argument is a file handle; the only
// failure modes are a malformed handle (caught by DecodeFileHandle3 before
// the FSAL is ever consulted) and whatever the FSAL itself reports — a
// handle that decodes cleanly but no longer names anything live comes back
// from the FSAL as NFS3ErrStale/NFS3ErrBadHandle via MapFSALError, not as a
// handler-level error.
//
// The reply is always RPC-level SUCCESS; the NFS3ERR_* outcome (if any)
// rides in the body's leading status word, per spec.md §7.
func (h *Handlers) GetAttr(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	r := xdr.NewReader(call.ArgsTail)
	fh, err := v3.DecodeFileHandle3(r)
	if err != nil {
		return nil, err
	}
	logCall(ctx, "GETATTR", fh)

	attr, fsErr := h.FS.GetAttr(ctx, fh)
	var buf bytes.Buffer
	if fsErr != nil {
		logFailure(ctx, "getattr", fsErr)
		writeStatus(&buf, MapFSALError(fsErr))
		return buf.Bytes(), nil
	}

	writeStatus(&buf, v3.NFS3OK)
	if err := attr.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
