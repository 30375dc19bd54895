package handlers

import (
	"bytes"
	"context"

	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// MaxReadCount bounds a single READ reply, matching the rtmax this server
// advertises in FSINFO.
const MaxReadCount = 65536

// Read implements NFS procedure 6 (RFC 1813 §3.3.6), registered at that
// RFC wire number in this server's dispatch table.
func (h *Handlers) Read(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
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
	if count > MaxReadCount {
		count = MaxReadCount
	}
	logCall(ctx, "READ", fh)

	data, eof, attr, fsErr := h.FS.Read(ctx, fh, offset, count)
	var buf bytes.Buffer
	if fsErr != nil {
		logFailure(ctx, "read", fsErr)
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
	if err := xdr.WriteUint32(&buf, uint32(len(data))); err != nil {
		return nil, err
	}
	if err := xdr.WriteBool(&buf, eof); err != nil {
		return nil, err
	}
	if err := xdr.WriteOpaque(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
