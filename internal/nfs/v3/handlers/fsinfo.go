package handlers

import (
	"bytes"
	"context"

	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// FsInfo implements NFS procedure 19 (RFC 1813 §3.3.19).
func (h *Handlers) FsInfo(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	r := xdr.NewReader(call.ArgsTail)
	fh, err := v3.DecodeFileHandle3(r)
	if err != nil {
		return nil, err
	}
	logCall(ctx, "FSINFO", fh)

	info, attr, fsErr := h.FS.FsInfo(ctx, fh)
	var buf bytes.Buffer
	if fsErr != nil {
		logFailure(ctx, "fsinfo", fsErr)
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
	for _, v := range []uint32{info.ReadMax, info.ReadPref, info.ReadMult, info.WriteMax, info.WritePref, info.WriteMult, info.DirPref} {
		if err := xdr.WriteUint32(&buf, v); err != nil {
			return nil, err
		}
	}
	if err := xdr.WriteUint64(&buf, info.MaxFileSize); err != nil {
		return nil, err
	}
	if err := (v3.NFSTime3{Seconds: info.TimeDeltaSec, Nseconds: info.TimeDeltaNsec}).Encode(&buf); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, info.Properties); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
