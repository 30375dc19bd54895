package handlers

import (
	"bytes"
	"context"

	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// MaxWriteCount bounds a single WRITE's data, matching the wtmax this
// server advertises in FSINFO.
const MaxWriteCount = 65536

// Write implements NFS procedure 7 (RFC 1813 §3.3.7).
func (h *Handlers) Write(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	r := xdr.NewReader(call.ArgsTail)
	fh, err := v3.DecodeFileHandle3(r)
	if err != nil {
		return nil, err
	}
	offset, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	count, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	stableVal, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	data, err := r.Opaque(MaxWriteCount)
	if err != nil {
		return nil, err
	}
	_ = count // the opaque length prefix is authoritative; count is advisory per RFC 1813
	logCall(ctx, "WRITE", fh)

	var buf bytes.Buffer
	if len(data) > MaxWriteCount {
		writeStatus(&buf, v3.NFS3ErrFBig)
		wcc := v3.WccData{}
		if err := wcc.Encode(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	written, committed, before, after, fsErr := h.FS.Write(ctx, fh, offset, data, v3.StableHow(stableVal))
	if fsErr != nil {
		logFailure(ctx, "write", fsErr)
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
	if err := xdr.WriteUint32(&buf, written); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, uint32(committed)); err != nil {
		return nil, err
	}
	if err := xdr.WriteFixedOpaque(&buf, h.WriteVerf[:]); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
