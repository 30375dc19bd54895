package v3

import (
	"bytes"

	"github.com/nfsd3/nfsd3/internal/xdr"
)

// FileAttr3 is the fattr3 struct (RFC 1813 §2.6): a fixed 84-byte record
// once encoded. Unlike sattr3 it carries no discriminators — every field is
// always present.
type FileAttr3 struct {
	Type   FileType
	Mode   uint32
	NLink  uint32
	UID    uint32
	GID    uint32
	Size   uint64
	Used   uint64
	Rdev   Specdata3
	Fsid   uint64
	FileID uint64
	Atime  NFSTime3
	Mtime  NFSTime3
	Ctime  NFSTime3
}

// Encode writes the 84-byte fattr3 body. Callers must not call this for an
// absent post_op_attr/pre_op_attr — the boolean discriminator is written by
// the caller (EncodePostOpAttr/EncodePreOpAttr), not here.
func (a *FileAttr3) Encode(buf *bytes.Buffer) error {
	fields := []func() error{
		func() error { return xdr.WriteUint32(buf, uint32(a.Type)) },
		func() error { return xdr.WriteUint32(buf, a.Mode) },
		func() error { return xdr.WriteUint32(buf, a.NLink) },
		func() error { return xdr.WriteUint32(buf, a.UID) },
		func() error { return xdr.WriteUint32(buf, a.GID) },
		func() error { return xdr.WriteUint64(buf, a.Size) },
		func() error { return xdr.WriteUint64(buf, a.Used) },
		func() error { return xdr.WriteUint32(buf, a.Rdev.Major) },
		func() error { return xdr.WriteUint32(buf, a.Rdev.Minor) },
		func() error { return xdr.WriteUint64(buf, a.Fsid) },
		func() error { return xdr.WriteUint64(buf, a.FileID) },
		func() error { return a.Atime.Encode(buf) },
		func() error { return a.Mtime.Encode(buf) },
		func() error { return a.Ctime.Encode(buf) },
	}
	for _, f := range fields {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}

// DecodeFileAttr3 decodes a fixed fattr3 body (the caller already consumed
// any boolean discriminator).
func DecodeFileAttr3(r *xdr.Reader) (*FileAttr3, error) {
	var a FileAttr3
	typ, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	a.Type = FileType(typ)
	if a.Mode, err = r.Uint32(); err != nil {
		return nil, err
	}
	if a.NLink, err = r.Uint32(); err != nil {
		return nil, err
	}
	if a.UID, err = r.Uint32(); err != nil {
		return nil, err
	}
	if a.GID, err = r.Uint32(); err != nil {
		return nil, err
	}
	if a.Size, err = r.Uint64(); err != nil {
		return nil, err
	}
	if a.Used, err = r.Uint64(); err != nil {
		return nil, err
	}
	if a.Rdev.Major, err = r.Uint32(); err != nil {
		return nil, err
	}
	if a.Rdev.Minor, err = r.Uint32(); err != nil {
		return nil, err
	}
	if a.Fsid, err = r.Uint64(); err != nil {
		return nil, err
	}
	if a.FileID, err = r.Uint64(); err != nil {
		return nil, err
	}
	if a.Atime, err = DecodeNFSTime3(r); err != nil {
		return nil, err
	}
	if a.Mtime, err = DecodeNFSTime3(r); err != nil {
		return nil, err
	}
	if a.Ctime, err = DecodeNFSTime3(r); err != nil {
		return nil, err
	}
	return &a, nil
}

// EncodePostOpAttr writes a post_op_attr (RFC 1813 §2.6): FALSE (4 bytes)
// when attr is nil, else TRUE followed by the 84-byte fattr3 body. This is
// the boolean-discriminated union spec.md §9 calls out — it must never be
// flattened into an always-present struct.
func EncodePostOpAttr(buf *bytes.Buffer, attr *FileAttr3) error {
	if attr == nil {
		return xdr.WriteBool(buf, false)
	}
	if err := xdr.WriteBool(buf, true); err != nil {
		return err
	}
	return attr.Encode(buf)
}

// DecodePostOpAttr decodes a post_op_attr, returning nil when absent.
func DecodePostOpAttr(r *xdr.Reader) (*FileAttr3, error) {
	present, err := r.Bool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return DecodeFileAttr3(r)
}

// PreOpAttr carries the subset of fattr3 relevant to weak cache consistency
// checks: size, mtime, ctime (RFC 1813 §2.6, wcc_attr).
type PreOpAttr struct {
	Size  uint64
	Mtime NFSTime3
	Ctime NFSTime3
}

func (a *PreOpAttr) encode(buf *bytes.Buffer) error {
	if err := xdr.WriteUint64(buf, a.Size); err != nil {
		return err
	}
	if err := a.Mtime.Encode(buf); err != nil {
		return err
	}
	return a.Ctime.Encode(buf)
}

// EncodePreOpAttr writes a pre_op_attr: FALSE when attr is nil, else TRUE
// followed by the wcc_attr body.
func EncodePreOpAttr(buf *bytes.Buffer, attr *PreOpAttr) error {
	if attr == nil {
		return xdr.WriteBool(buf, false)
	}
	if err := xdr.WriteBool(buf, true); err != nil {
		return err
	}
	return attr.encode(buf)
}

// DecodePreOpAttr decodes a pre_op_attr, returning nil when absent.
func DecodePreOpAttr(r *xdr.Reader) (*PreOpAttr, error) {
	present, err := r.Bool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	var a PreOpAttr
	var err2 error
	if a.Size, err2 = r.Uint64(); err2 != nil {
		return nil, err2
	}
	if a.Mtime, err2 = DecodeNFSTime3(r); err2 != nil {
		return nil, err2
	}
	if a.Ctime, err2 = DecodeNFSTime3(r); err2 != nil {
		return nil, err2
	}
	return &a, nil
}

// PreOpFromAttr projects a full FileAttr3 down to the wcc_attr fields
// captured before a mutation.
func PreOpFromAttr(a *FileAttr3) *PreOpAttr {
	if a == nil {
		return nil
	}
	return &PreOpAttr{Size: a.Size, Mtime: a.Mtime, Ctime: a.Ctime}
}
