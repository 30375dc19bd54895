package handlers

import (
	"bytes"
	"context"

	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// FsStat implements NFS procedure 18 (RFC 1813 §3.3.18).
func (h *Handlers) FsStat(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	r := xdr.NewReader(call.ArgsTail)
	fh, err := v3.DecodeFileHandle3(r)
	if err != nil {
		return nil, err
	}
	logCall(ctx, "FSSTAT", fh)

	stat, attr, fsErr := h.FS.FsStat(ctx, fh)
	var buf bytes.Buffer
	if fsErr != nil {
		logFailure(ctx, "fsstat", fsErr)
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
	for _, v := range []uint64{stat.TotalBytes, stat.FreeBytes, stat.AvailBytes, stat.TotalFiles, stat.FreeFiles, stat.AvailFiles} {
		if err := xdr.WriteUint64(&buf, v); err != nil {
			return nil, err
		}
	}
	if err := xdr.WriteUint32(&buf, stat.InvarSec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
