package xdr

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Reader decodes XDR primitives from an in-memory buffer. It is built on
// *bytes.Reader rather than a bare io.Reader so that Opaque/String can
// detect an Overflow (a declared length exceeding the bytes actually
// remaining) before attempting to allocate or read.
type Reader struct {
	r *bytes.Reader
}

// NewReader wraps data for XDR decoding. The caller retains ownership of data;
// Reader never mutates it.
func NewReader(data []byte) *Reader {
	return &Reader{r: bytes.NewReader(data)}
}

// Len returns the number of unread bytes.
func (d *Reader) Len() int { return d.r.Len() }

// Uint32 decodes a big-endian uint32 (RFC 4506 §4.1).
func (d *Reader) Uint32() (uint32, error) {
	var v uint32
	if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
		return 0, newErr(Truncated, "uint32: %v", err)
	}
	return v, nil
}

// Uint64 decodes a big-endian uint64 (RFC 4506 §4.5, "hyper").
func (d *Reader) Uint64() (uint64, error) {
	var v uint64
	if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
		return 0, newErr(Truncated, "uint64: %v", err)
	}
	return v, nil
}

// Int32 decodes a big-endian two's-complement int32.
func (d *Reader) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

// Int64 decodes a big-endian two's-complement int64.
func (d *Reader) Int64() (int64, error) {
	v, err := d.Uint64()
	return int64(v), err
}

// Bool decodes an XDR boolean (RFC 4506 §4.4): a uint32 that MUST be 0 or 1.
// Any other value is BadBool — XDR booleans are not a generic C-style
// "nonzero is true".
func (d *Reader) Bool() (bool, error) {
	v, err := d.Uint32()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, newErr(BadBool, "value %d is neither 0 nor 1", v)
	}
}

// Opaque decodes XDR variable-length opaque data (RFC 4506 §4.10): a uint32
// length, that many bytes, then zero padding up to the next 4-byte boundary.
// Non-zero padding is tolerated on decode (spec.md §4.1: BadPadding must
// never be a decode error) but the length is rejected if it exceeds either
// maxLen or the bytes actually remaining in the buffer.
func (d *Reader) Opaque(maxLen uint32) ([]byte, error) {
	length, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if maxLen > 0 && length > maxLen {
		return nil, newErr(LengthLimitExceeded, "opaque length %d exceeds limit %d", length, maxLen)
	}
	if int64(length) > int64(d.r.Len()) {
		return nil, newErr(Overflow, "opaque length %d exceeds %d remaining bytes", length, d.r.Len())
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return nil, newErr(Truncated, "opaque data: %v", err)
	}
	return data, d.skipPadding(length)
}

// FixedOpaque decodes exactly n bytes of fixed-length opaque data with no
// length prefix and no padding (e.g. cookieverf3, writeverf3 — already
// 4-byte-aligned by definition).
func (d *Reader) FixedOpaque(n int) ([]byte, error) {
	if int64(n) > int64(d.r.Len()) {
		return nil, newErr(Overflow, "fixed opaque of %d exceeds %d remaining bytes", n, d.r.Len())
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return nil, newErr(Truncated, "fixed opaque: %v", err)
	}
	return data, nil
}

// String decodes an XDR string (RFC 4506 §4.11): identical wire shape to
// Opaque, interpreted as UTF-8-ish bytes (XDR imposes no charset; NFS
// filenames are passed through as raw bytes converted to string).
func (d *Reader) String(maxLen uint32) (string, error) {
	data, err := d.Opaque(maxLen)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// skipPadding consumes the 0-3 zero-padding bytes following a variable-length
// field of the given unpadded length. Per spec.md §4.1, non-zero padding is
// accepted silently on decode — lenient clients exist in the wild and a
// strict BadPadding decode error would break interop for no protocol benefit.
func (d *Reader) skipPadding(length uint32) error {
	pad := (4 - (length % 4)) % 4
	if pad == 0 {
		return nil
	}
	var buf [3]byte
	if _, err := io.ReadFull(d.r, buf[:pad]); err != nil {
		return newErr(Truncated, "padding: %v", err)
	}
	return nil
}

// Peek re-reads the next uint32 without consuming it, for handlers that
// want to branch on a discriminant before deciding which decode path to
// take. It is rarely needed since most callers simply decode the
// discriminant normally, but some union arms (e.g. sattr3's time fields)
// are cleaner expressed this way.
func (d *Reader) Peek() (uint32, error) {
	save := *d.r
	v, err := d.Uint32()
	*d.r = save
	return v, err
}
