package v3_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

func TestFileAttr3EncodedLengthIs84Bytes(t *testing.T) {
	a := &v3.FileAttr3{
		Type: v3.NF3Reg, Mode: 0o644, NLink: 1, UID: 0, GID: 0,
		Size: 5, Used: 512, Fsid: 1, FileID: 2,
	}
	var buf bytes.Buffer
	require.NoError(t, a.Encode(&buf))
	assert.Equal(t, 84, buf.Len())
}

func TestFileAttr3RoundTrip(t *testing.T) {
	a := &v3.FileAttr3{
		Type: v3.NF3Dir, Mode: 0o755, NLink: 2, UID: 1000, GID: 1000,
		Size: 4096, Used: 4096, Fsid: 7, FileID: 42,
		Atime: v3.NFSTime3{Seconds: 1, Nseconds: 2},
		Mtime: v3.NFSTime3{Seconds: 3, Nseconds: 4},
		Ctime: v3.NFSTime3{Seconds: 5, Nseconds: 6},
	}
	var buf bytes.Buffer
	require.NoError(t, a.Encode(&buf))

	got, err := v3.DecodeFileAttr3(xdr.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestPostOpAttrAbsentIsFourBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, v3.EncodePostOpAttr(&buf, nil))
	assert.Equal(t, 4, buf.Len())

	got, err := v3.DecodePostOpAttr(xdr.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostOpAttrPresentIs88Bytes(t *testing.T) {
	a := &v3.FileAttr3{Type: v3.NF3Reg, Mode: 0o644, FileID: 1}
	var buf bytes.Buffer
	require.NoError(t, v3.EncodePostOpAttr(&buf, a))
	assert.Equal(t, 4+84, buf.Len())
}
