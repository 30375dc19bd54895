package v3

import (
	"bytes"
	"fmt"

	"github.com/nfsd3/nfsd3/internal/xdr"
)

// FileHandle3 is the fhandle3 wire type: opaque, 1-64 bytes, server-minted.
// This package only knows how to move the bytes on and off the wire;
// minting and validating handles is the internal/nfs/handle package's job.
type FileHandle3 []byte

// EncodeFileHandle3 writes an fhandle3 (plain variable opaque, capped at
// MaxFileHandleSize).
func EncodeFileHandle3(buf *bytes.Buffer, fh FileHandle3) error {
	if len(fh) > MaxFileHandleSize {
		return fmt.Errorf("fhandle3 of %d bytes exceeds %d", len(fh), MaxFileHandleSize)
	}
	return xdr.WriteOpaque(buf, fh)
}

// DecodeFileHandle3 decodes an fhandle3.
func DecodeFileHandle3(r *xdr.Reader) (FileHandle3, error) {
	data, err := r.Opaque(MaxFileHandleSize)
	if err != nil {
		return nil, err
	}
	return FileHandle3(data), nil
}

// EncodeOptFileHandle3 writes a post_op_fh3 (CREATE/MKDIR/SYMLINK/MKNOD
// responses): FALSE when fh is nil, else TRUE followed by the fhandle3.
func EncodeOptFileHandle3(buf *bytes.Buffer, fh FileHandle3) error {
	if fh == nil {
		return xdr.WriteBool(buf, false)
	}
	if err := xdr.WriteBool(buf, true); err != nil {
		return err
	}
	return EncodeFileHandle3(buf, fh)
}
