package handlers

import (
	"bytes"
	"context"

	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// Readdir implements NFS procedure 16 (RFC 1813 §3.3.16). Cookie
// continuation and BAD_COOKIE detection are entirely the FSAL's
// responsibility (spec.md §4.7); this handler only moves bytes.
func (h *Handlers) Readdir(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	r := xdr.NewReader(call.ArgsTail)
	dirFH, err := v3.DecodeFileHandle3(r)
	if err != nil {
		return nil, err
	}
	cookie, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	cookieverfBytes, err := r.FixedOpaque(v3.CookieverfSize)
	if err != nil {
		return nil, err
	}
	count, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	var cookieverf [8]byte
	copy(cookieverf[:], cookieverfBytes)
	logCall(ctx, "READDIR", dirFH)

	entries, newVerf, eof, dirAttr, fsErr := h.FS.Readdir(ctx, dirFH, cookie, cookieverf, count)
	var buf bytes.Buffer
	if fsErr != nil {
		logFailure(ctx, "readdir", fsErr)
		writeStatus(&buf, MapFSALError(fsErr))
		if err := v3.EncodePostOpAttr(&buf, dirAttr); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	writeStatus(&buf, v3.NFS3OK)
	if err := v3.EncodePostOpAttr(&buf, dirAttr); err != nil {
		return nil, err
	}
	if err := xdr.WriteFixedOpaque(&buf, newVerf[:]); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := xdr.WriteBool(&buf, true); err != nil { // value follows
			return nil, err
		}
		if err := xdr.WriteUint64(&buf, e.FileID); err != nil {
			return nil, err
		}
		if err := xdr.WriteString(&buf, e.Name); err != nil {
			return nil, err
		}
		if err := xdr.WriteUint64(&buf, e.Cookie); err != nil {
			return nil, err
		}
	}
	if err := xdr.WriteBool(&buf, false); err != nil { // end of list
		return nil, err
	}
	if err := xdr.WriteBool(&buf, eof); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
