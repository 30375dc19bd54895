package v3

import (
	"bytes"

	"github.com/nfsd3/nfsd3/internal/xdr"
)

// TimeSetMode is the time_how enum governing atime/mtime in sattr3 (RFC
// 1813 §3.3.2).
type TimeSetMode uint32

const (
	DontChange TimeSetMode = iota
	SetToServerTime
	SetToClientTime
)

// SetTime is the set_atime/set_mtime union: a discriminator plus an
// optional NFSTime3, present only when Mode is SetToClientTime.
type SetTime struct {
	Mode TimeSetMode
	Time NFSTime3
}

// Sattr3 is the settable-attribute record (RFC 1813 §3.3.2). Every field is
// a discriminated union; the encoded length depends entirely on which
// fields are set. This must never be modeled as a fixed-layout struct — see
// spec.md §9's explicit warning — so each field's Encode/Decode here writes
// or reads only the discriminator when the field is in its "do not change"
// state.
type Sattr3 struct {
	Mode *uint32
	UID  *uint32
	GID  *uint32
	Size *uint64
	Atime SetTime
	Mtime SetTime
}

// Encode writes the six discriminated fields in RFC order: mode, uid, gid,
// size, atime, mtime.
func (s *Sattr3) Encode(buf *bytes.Buffer) error {
	if err := encodeOptU32(buf, s.Mode); err != nil {
		return err
	}
	if err := encodeOptU32(buf, s.UID); err != nil {
		return err
	}
	if err := encodeOptU32(buf, s.GID); err != nil {
		return err
	}
	if err := encodeOptU64(buf, s.Size); err != nil {
		return err
	}
	if err := encodeSetTime(buf, s.Atime); err != nil {
		return err
	}
	return encodeSetTime(buf, s.Mtime)
}

// DecodeSattr3 decodes a full sattr3 record.
func DecodeSattr3(r *xdr.Reader) (*Sattr3, error) {
	var s Sattr3
	var err error
	if s.Mode, err = decodeOptU32(r); err != nil {
		return nil, err
	}
	if s.UID, err = decodeOptU32(r); err != nil {
		return nil, err
	}
	if s.GID, err = decodeOptU32(r); err != nil {
		return nil, err
	}
	if s.Size, err = decodeOptU64(r); err != nil {
		return nil, err
	}
	if s.Atime, err = decodeSetTime(r); err != nil {
		return nil, err
	}
	if s.Mtime, err = decodeSetTime(r); err != nil {
		return nil, err
	}
	return &s, nil
}

func encodeOptU32(buf *bytes.Buffer, v *uint32) error {
	if v == nil {
		return xdr.WriteBool(buf, false)
	}
	if err := xdr.WriteBool(buf, true); err != nil {
		return err
	}
	return xdr.WriteUint32(buf, *v)
}

func decodeOptU32(r *xdr.Reader) (*uint32, error) {
	set, err := r.Bool()
	if err != nil || !set {
		return nil, err
	}
	v, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func encodeOptU64(buf *bytes.Buffer, v *uint64) error {
	if v == nil {
		return xdr.WriteBool(buf, false)
	}
	if err := xdr.WriteBool(buf, true); err != nil {
		return err
	}
	return xdr.WriteUint64(buf, *v)
}

func decodeOptU64(r *xdr.Reader) (*uint64, error) {
	set, err := r.Bool()
	if err != nil || !set {
		return nil, err
	}
	v, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func encodeSetTime(buf *bytes.Buffer, t SetTime) error {
	if err := xdr.WriteUint32(buf, uint32(t.Mode)); err != nil {
		return err
	}
	if t.Mode != SetToClientTime {
		return nil
	}
	return t.Time.Encode(buf)
}

func decodeSetTime(r *xdr.Reader) (SetTime, error) {
	mode, err := r.Uint32()
	if err != nil {
		return SetTime{}, err
	}
	t := SetTime{Mode: TimeSetMode(mode)}
	if t.Mode != SetToClientTime {
		return t, nil
	}
	if t.Time, err = DecodeNFSTime3(r); err != nil {
		return SetTime{}, err
	}
	return t, nil
}

// GuardTime is the SETATTR guard argument: optional(nfstime3), compared
// against the object's ctime to reject a racing concurrent SETATTR
// (NFS3ERR_NOT_SYNC on mismatch).
type GuardTime struct {
	Check bool
	Time  NFSTime3
}

func DecodeGuardTime(r *xdr.Reader) (GuardTime, error) {
	check, err := r.Bool()
	if err != nil {
		return GuardTime{}, err
	}
	if !check {
		return GuardTime{Check: false}, nil
	}
	t, err := DecodeNFSTime3(r)
	if err != nil {
		return GuardTime{}, err
	}
	return GuardTime{Check: true, Time: t}, nil
}
