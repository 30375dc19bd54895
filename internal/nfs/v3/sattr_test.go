package v3_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

func TestSattr3AllDontChangeIs24Bytes(t *testing.T) {
	s := &v3.Sattr3{}
	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf))
	assert.Equal(t, 24, buf.Len())
}

func TestSattr3SetSizeIs32Bytes(t *testing.T) {
	size := uint64(123)
	s := &v3.Sattr3{Size: &size}
	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf))
	assert.Equal(t, 32, buf.Len())
}

func TestSattr3SetAtimeToClientTimeIs32Bytes(t *testing.T) {
	s := &v3.Sattr3{
		Atime: v3.SetTime{Mode: v3.SetToClientTime, Time: v3.NFSTime3{Seconds: 1}},
	}
	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf))
	assert.Equal(t, 32, buf.Len())
}

func TestSattr3RoundTrip(t *testing.T) {
	mode := uint32(0o600)
	uid := uint32(1)
	size := uint64(99)
	s := &v3.Sattr3{
		Mode:  &mode,
		UID:   &uid,
		Size:  &size,
		Atime: v3.SetTime{Mode: v3.SetToServerTime},
		Mtime: v3.SetTime{Mode: v3.SetToClientTime, Time: v3.NFSTime3{Seconds: 42, Nseconds: 7}},
	}
	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf))

	got, err := v3.DecodeSattr3(xdr.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestGuardTimeAbsent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.WriteBool(&buf, false))
	g, err := v3.DecodeGuardTime(xdr.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.False(t, g.Check)
}

func TestGuardTimePresent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xdr.WriteBool(&buf, true))
	require.NoError(t, (v3.NFSTime3{Seconds: 9}).Encode(&buf))
	g, err := v3.DecodeGuardTime(xdr.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.True(t, g.Check)
	assert.Equal(t, uint32(9), g.Time.Seconds)
}
