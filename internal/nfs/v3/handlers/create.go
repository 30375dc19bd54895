package handlers

import (
	"bytes"
	"context"

	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// Create implements NFS procedure 8 (RFC 1813 §3.3.8): the createhow3
// discriminated union selects UNCHECKED/GUARDED (carrying an sattr3) or
// EXCLUSIVE (carrying an 8-byte createverf3).
func (h *Handlers) Create(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	r := xdr.NewReader(call.ArgsTail)
	dirFH, err := v3.DecodeFileHandle3(r)
	if err != nil {
		return nil, err
	}
	name, err := r.String(v3.MaxFilenameSize)
	if err != nil {
		return nil, err
	}
	modeVal, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	mode := v3.CreateMode(modeVal)

	var sattr *v3.Sattr3
	var verf []byte
	switch mode {
	case v3.Exclusive:
		verf, err = r.FixedOpaque(v3.CreateverfSize)
		if err != nil {
			return nil, err
		}
	default:
		sattr, err = v3.DecodeSattr3(r)
		if err != nil {
			return nil, err
		}
	}

	logCall(ctx, "CREATE", dirFH)

	var buf bytes.Buffer
	if status := validateName(name); status != v3.NFS3OK {
		writeStatus(&buf, status)
		if err := v3.EncodeOptFileHandle3(&buf, nil); err != nil {
			return nil, err
		}
		if err := v3.EncodePostOpAttr(&buf, nil); err != nil {
			return nil, err
		}
		wcc := v3.WccData{}
		if err := wcc.Encode(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	fh, attr, dirBefore, dirAfter, fsErr := h.FS.Create(ctx, dirFH, name, mode, sattr, verf)
	if fsErr != nil {
		logFailure(ctx, "create", fsErr)
		writeStatus(&buf, MapFSALError(fsErr))
		if err := v3.EncodeOptFileHandle3(&buf, nil); err != nil {
			return nil, err
		}
		if err := v3.EncodePostOpAttr(&buf, nil); err != nil {
			return nil, err
		}
		wcc := v3.WccData{Before: v3.PreOpFromAttr(dirBefore), After: dirAfter}
		if err := wcc.Encode(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	writeStatus(&buf, v3.NFS3OK)
	if err := v3.EncodeOptFileHandle3(&buf, fh); err != nil {
		return nil, err
	}
	if err := v3.EncodePostOpAttr(&buf, attr); err != nil {
		return nil, err
	}
	wcc := v3.WccData{Before: v3.PreOpFromAttr(dirBefore), After: dirAfter}
	if err := wcc.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
