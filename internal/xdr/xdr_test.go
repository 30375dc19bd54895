package xdr_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfsd3/nfsd3/internal/xdr"
)

func TestUint32RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.WriteUint32(&buf, 0xDEADBEEF))
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, buf.Bytes())

	got, err := xdr.NewReader(buf.Bytes()).Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), got)
}

func TestInt64RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.WriteInt64(&buf, -1))
	got, err := xdr.NewReader(buf.Bytes()).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), got)
}

func TestBoolRoundTrip(t *testing.T) {
	for _, v := range []bool{true, false} {
		var buf bytes.Buffer
		require.NoError(t, xdr.WriteBool(&buf, v))
		got, err := xdr.NewReader(buf.Bytes()).Bool()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestBoolRejectsNonCanonicalValue(t *testing.T) {
	_, err := xdr.NewReader([]byte{0, 0, 0, 2}).Bool()
	require.Error(t, err)
	var xerr *xdr.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, xdr.BadBool, xerr.Kind)
}

func TestOpaqueRoundTripWithPadding(t *testing.T) {
	data := []byte("abc") // 3 bytes -> 1 byte of padding
	var buf bytes.Buffer
	require.NoError(t, xdr.WriteOpaque(&buf, data))
	assert.Equal(t, 4+4, buf.Len()) // 4-byte length + 4-byte padded payload

	got, err := xdr.NewReader(buf.Bytes()).Opaque(0)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestOpaqueRejectsOverMaxLen(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.WriteOpaque(&buf, make([]byte, 10)))
	_, err := xdr.NewReader(buf.Bytes()).Opaque(4)
	require.Error(t, err)
	var xerr *xdr.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, xdr.LengthLimitExceeded, xerr.Kind)
}

func TestOpaqueRejectsDeclaredLengthPastEndOfBuffer(t *testing.T) {
	// Declares a length of 100 but supplies no trailing bytes.
	var buf bytes.Buffer
	require.NoError(t, xdr.WriteUint32(&buf, 100))
	_, err := xdr.NewReader(buf.Bytes()).Opaque(0)
	require.Error(t, err)
	var xerr *xdr.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, xdr.Overflow, xerr.Kind)
}

func TestOpaqueToleratesNonZeroPaddingOnDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.WriteUint32(&buf, 1))
	buf.WriteByte('x')
	buf.Write([]byte{1, 1, 1}) // non-zero padding, must still decode

	got, err := xdr.NewReader(buf.Bytes()).Opaque(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.WriteString(&buf, "hello"))
	got, err := xdr.NewReader(buf.Bytes()).String(0)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestFixedOpaqueRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	verf := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, xdr.WriteFixedOpaque(&buf, verf))
	assert.Equal(t, 8, buf.Len())

	got, err := xdr.NewReader(buf.Bytes()).FixedOpaque(8)
	require.NoError(t, err)
	assert.Equal(t, verf, got)
}

func TestPeekDoesNotConsume(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.WriteUint32(&buf, 7))
	r := xdr.NewReader(buf.Bytes())

	peeked, err := r.Peek()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), peeked)
	assert.Equal(t, 4, r.Len())

	read, err := r.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), read)
	assert.Equal(t, 0, r.Len())
}
