package mount_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfsd3/nfsd3/internal/nfs/fsal/memfs"
	"github.com/nfsd3/nfsd3/internal/nfs/mount"
	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

func dirPathArgs(path string) []byte {
	var buf bytes.Buffer
	_ = xdr.WriteString(&buf, path)
	return buf.Bytes()
}

func newTestTable(t *testing.T) *mount.Table {
	t.Helper()
	fs, err := memfs.New()
	require.NoError(t, err)
	return mount.NewTable([]mount.Export{{Path: "/export", FS: fs}})
}

func TestMntOfExportedPathSucceeds(t *testing.T) {
	h := &mount.Handlers{Table: newTestTable(t)}
	ctx := mount.WithClientAddr(context.Background(), "10.0.0.5:1234")

	reply, err := h.Mnt(ctx, &rpc.CallEnvelope{ArgsTail: dirPathArgs("/export")})
	require.NoError(t, err)

	r := xdr.NewReader(reply)
	status, err := r.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(v3.MNT3OK), status)

	fh, err := v3.DecodeFileHandle3(r)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(fh), v3.MaxFileHandleSize)
}

func TestMntOfUnknownPathReturnsNoEnt(t *testing.T) {
	h := &mount.Handlers{Table: newTestTable(t)}
	ctx := mount.WithClientAddr(context.Background(), "10.0.0.5:1234")

	reply, err := h.Mnt(ctx, &rpc.CallEnvelope{ArgsTail: dirPathArgs("/nope")})
	require.NoError(t, err)

	status, err := xdr.NewReader(reply).Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(v3.MNT3ErrNoEnt), status)
}

func TestDumpListsActiveMountsAfterMnt(t *testing.T) {
	table := newTestTable(t)
	h := &mount.Handlers{Table: table}
	ctx := mount.WithClientAddr(context.Background(), "10.0.0.5:1234")

	_, err := h.Mnt(ctx, &rpc.CallEnvelope{ArgsTail: dirPathArgs("/export")})
	require.NoError(t, err)

	reply, err := h.Dump(ctx, &rpc.CallEnvelope{})
	require.NoError(t, err)

	r := xdr.NewReader(reply)
	hasEntry, err := r.Bool()
	require.NoError(t, err)
	require.True(t, hasEntry)

	host, err := r.String(0)
	require.NoError(t, err)
	dir, err := r.String(0)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:1234", host)
	assert.Equal(t, "/export", dir)

	terminator, err := r.Bool()
	require.NoError(t, err)
	assert.False(t, terminator)
}

func TestUmntRemovesEntry(t *testing.T) {
	table := newTestTable(t)
	h := &mount.Handlers{Table: table}
	ctx := mount.WithClientAddr(context.Background(), "10.0.0.5:1234")

	_, err := h.Mnt(ctx, &rpc.CallEnvelope{ArgsTail: dirPathArgs("/export")})
	require.NoError(t, err)

	_, err = h.Umnt(ctx, &rpc.CallEnvelope{ArgsTail: dirPathArgs("/export")})
	require.NoError(t, err)

	reply, err := h.Dump(ctx, &rpc.CallEnvelope{})
	require.NoError(t, err)
	hasEntry, err := xdr.NewReader(reply).Bool()
	require.NoError(t, err)
	assert.False(t, hasEntry)
}
