package xdr

import (
	"bytes"
	"encoding/binary"
)

// The Write* functions encode XDR primitives into a *bytes.Buffer. Each
// returns an error for symmetry with Reader, though bytes.Buffer writes do
// not fail in practice.

// WriteUint32 encodes a big-endian uint32.
func WriteUint32(buf *bytes.Buffer, v uint32) error {
	return binary.Write(buf, binary.BigEndian, v)
}

// WriteUint64 encodes a big-endian uint64.
func WriteUint64(buf *bytes.Buffer, v uint64) error {
	return binary.Write(buf, binary.BigEndian, v)
}

// WriteInt32 encodes a big-endian two's-complement int32.
func WriteInt32(buf *bytes.Buffer, v int32) error {
	return binary.Write(buf, binary.BigEndian, v)
}

// WriteInt64 encodes a big-endian two's-complement int64.
func WriteInt64(buf *bytes.Buffer, v int64) error {
	return binary.Write(buf, binary.BigEndian, v)
}

// WriteBool encodes an XDR boolean as a 0/1 uint32.
func WriteBool(buf *bytes.Buffer, v bool) error {
	var n uint32
	if v {
		n = 1
	}
	return WriteUint32(buf, n)
}

// WriteOpaque encodes XDR variable-length opaque data: length, data, then
// zero padding to the next 4-byte boundary. Per RFC 4506 the padding bytes
// MUST be zero on the wire we produce.
func WriteOpaque(buf *bytes.Buffer, data []byte) error {
	if err := WriteUint32(buf, uint32(len(data))); err != nil {
		return err
	}
	if _, err := buf.Write(data); err != nil {
		return err
	}
	return writePadding(buf, len(data))
}

// WriteFixedOpaque writes exactly len(data) bytes with no length prefix and
// no padding — for fields whose size is fixed by the protocol (cookieverf3,
// writeverf3, createverf3) and already a multiple of 4.
func WriteFixedOpaque(buf *bytes.Buffer, data []byte) error {
	_, err := buf.Write(data)
	return err
}

// WriteString encodes an XDR string using the same length+data+padding shape
// as WriteOpaque.
func WriteString(buf *bytes.Buffer, s string) error {
	return WriteOpaque(buf, []byte(s))
}

func writePadding(buf *bytes.Buffer, length int) error {
	pad := (4 - (length % 4)) % 4
	if pad == 0 {
		return nil
	}
	var zero [3]byte
	_, err := buf.Write(zero[:pad])
	return err
}
