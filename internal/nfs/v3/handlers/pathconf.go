package handlers

import (
	"bytes"
	"context"

	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// PathConf implements NFS procedure 20 (RFC 1813 §3.3.20).
func (h *Handlers) PathConf(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	r := xdr.NewReader(call.ArgsTail)
	fh, err := v3.DecodeFileHandle3(r)
	if err != nil {
		return nil, err
	}
	logCall(ctx, "PATHCONF", fh)

	pc, attr, fsErr := h.FS.PathConf(ctx, fh)
	var buf bytes.Buffer
	if fsErr != nil {
		logFailure(ctx, "pathconf", fsErr)
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
	if err := xdr.WriteUint32(&buf, pc.LinkMax); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, pc.NameMax); err != nil {
		return nil, err
	}
	for _, b := range []bool{pc.NoTrunc, pc.ChownRestricted, pc.CaseInsensitive, pc.CasePreserving} {
		if err := xdr.WriteBool(&buf, b); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
