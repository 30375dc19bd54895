package handlers

import (
	"bytes"
	"context"
	"strings"

	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// validateName applies the uniform name rules from spec.md §4.7: empty or
// "/"-containing names are NFS3ERR_INVAL; names over 255 bytes are
// NFS3ERR_NAMETOOLONG.
func validateName(name string) v3.Status {
	if name == "" || strings.Contains(name, "/") {
		return v3.NFS3ErrInval
	}
	if len(name) > v3.MaxFilenameSize {
		return v3.NFS3ErrNameTooLong
	}
	return v3.NFS3OK
}

// Lookup implements the LOOKUP procedure (RFC 1813 §3.3.3):
//
//	LOOKUP3res NFSPROC3_LOOKUP(LOOKUP3args) = 3;
//
// LOOKUP is how every pathname a client ever resolves gets turned into the
// opaque file handles the rest of the protocol operates on — walking a path
// like "/export/a/b/c" means one MOUNT (for the export root) followed by
// three LOOKUPs, each handed the previous reply's handle as dirFH. Because
// of that, LOOKUP sits on the hot path for almost every client workload,
// not just explicit `open()`/`stat()` calls.
//
// Two outcomes are distinguished on the wire:
//
//   - name fails local validation (empty, contains "/", or over
//     MaxFilenameSize) — answered immediately with NFS3ErrInval/NameTooLong
//     and no attributes, without ever reaching the FSAL;
//   - the FSAL itself fails (NFS3ErrNoEnt is by far the most common outcome
//     here: LOOKUP is frequently used by clients to test for a name's mere
//     existence) — the reply still carries whatever post-op attributes the
//     FSAL could produce for the containing directory, so clients can
//     refresh their directory cache even on a failed LOOKUP.
//
// On success the reply carries the new object's file handle plus post-op
// attributes for both the object and its parent directory (RFC 1813's
// dir_attributes field), in that order.
func (h *Handlers) Lookup(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	r := xdr.NewReader(call.ArgsTail)
	dirFH, err := v3.DecodeFileHandle3(r)
	if err != nil {
		return nil, err
	}
	name, err := r.String(v3.MaxFilenameSize)
	if err != nil {
		return nil, err
	}
	logCall(ctx, "LOOKUP", dirFH)

	var buf bytes.Buffer
	if status := validateName(name); status != v3.NFS3OK {
		writeStatus(&buf, status)
		if err := v3.EncodePostOpAttr(&buf, nil); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	fh, objAttr, dirAttr, fsErr := h.FS.Lookup(ctx, dirFH, name)
	if fsErr != nil {
		logFailure(ctx, "lookup", fsErr)
		writeStatus(&buf, MapFSALError(fsErr))
		if err := v3.EncodePostOpAttr(&buf, dirAttr); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	writeStatus(&buf, v3.NFS3OK)
	if err := v3.EncodeFileHandle3(&buf, fh); err != nil {
		return nil, err
	}
	if err := v3.EncodePostOpAttr(&buf, objAttr); err != nil {
		return nil, err
	}
	if err := v3.EncodePostOpAttr(&buf, dirAttr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
