package handlers

import (
	"bytes"
	"context"

	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// Access implements the ACCESS procedure (RFC 1813 §3.3.4): given a handle
// and a bitmask of the operations a client intends to perform (read, lookup,
// modify, extend, execute, delete), it returns the subset the caller is
// actually permitted. Unlike a Unix permission check, the server is free to
// answer conservatively — granting less than the mask requests is always a
// valid reply — since the real check happens again at the operation that
// follows; ACCESS exists so clients can short-circuit a doomed WRITE/CREATE
// before sending it.
func (h *Handlers) Access(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	r := xdr.NewReader(call.ArgsTail)
	fh, err := v3.DecodeFileHandle3(r)
	if err != nil {
		return nil, err
	}
	mask, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	logCall(ctx, "ACCESS", fh)

	granted, attr, fsErr := h.FS.Access(ctx, fh, mask, callerFromCred(call))
	var buf bytes.Buffer
	if fsErr != nil {
		logFailure(ctx, "access", fsErr)
		writeStatus(&buf, MapFSALError(fsErr))
		if err := v3.EncodePostOpAttr(&buf, attr); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	writeStatus(&buf, v3.NFS3OK)
	if err := v3.EncodePostOpAttr(&buf, attr); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, granted); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
