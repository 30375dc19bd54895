package handlers

import (
	"bytes"
	"context"

	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// SetAttr implements NFS procedure 2 (RFC 1813 §3.3.2). The reply always
// carries a wcc_data, success or failure — callers rely on it to refresh
// their attribute cache even on NOT_SYNC.
func (h *Handlers) SetAttr(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	r := xdr.NewReader(call.ArgsTail)
	fh, err := v3.DecodeFileHandle3(r)
	if err != nil {
		return nil, err
	}
	attr, err := v3.DecodeSattr3(r)
	if err != nil {
		return nil, err
	}
	guard, err := v3.DecodeGuardTime(r)
	if err != nil {
		return nil, err
	}
	logCall(ctx, "SETATTR", fh)

	before, after, fsErr := h.FS.SetAttr(ctx, fh, attr, guard)
	var buf bytes.Buffer
	if fsErr != nil {
		logFailure(ctx, "setattr", fsErr)
		writeStatus(&buf, MapFSALError(fsErr))
		wcc := v3.WccData{Before: v3.PreOpFromAttr(before), After: after}
		if err := wcc.Encode(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	writeStatus(&buf, v3.NFS3OK)
	wcc := v3.WccData{Before: v3.PreOpFromAttr(before), After: after}
	if err := wcc.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
