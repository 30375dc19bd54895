package handlers_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfsd3/nfsd3/internal/nfs/fsal/memfs"
	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/nfs/v3/handlers"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

func newHandlers(t *testing.T) (*handlers.Handlers, v3.FileHandle3) {
	t.Helper()
	fs, err := memfs.New()
	require.NoError(t, err)
	return &handlers.Handlers{FS: fs, WriteVerf: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}, fs.RootHandle()
}

func fhBytes(fh v3.FileHandle3) []byte {
	var buf bytes.Buffer
	_ = v3.EncodeFileHandle3(&buf, fh)
	return buf.Bytes()
}

func createArgs(dir v3.FileHandle3, name string) []byte {
	var buf bytes.Buffer
	buf.Write(fhBytes(dir))
	_ = xdr.WriteString(&buf, name)
	_ = xdr.WriteUint32(&buf, uint32(v3.Unchecked))
	sattr := &v3.Sattr3{}
	_ = sattr.Encode(&buf)
	return buf.Bytes()
}

func TestGetAttrOnRootReturnsDirectory(t *testing.T) {
	h, root := newHandlers(t)

	reply, err := h.GetAttr(context.Background(), &rpc.CallEnvelope{ArgsTail: fhBytes(root)})
	require.NoError(t, err)

	r := xdr.NewReader(reply)
	status, err := r.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(v3.NFS3OK), status)

	attr, err := v3.DecodeFileAttr3(r)
	require.NoError(t, err)
	assert.Equal(t, v3.NF3Dir, attr.Type)
}

func TestGetAttrOnBadHandleIsBadHandleStatus(t *testing.T) {
	h, _ := newHandlers(t)

	reply, err := h.GetAttr(context.Background(), &rpc.CallEnvelope{ArgsTail: fhBytes(v3.FileHandle3{0xFF})})
	require.NoError(t, err)

	status, err := xdr.NewReader(reply).Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(v3.NFS3ErrBadHandle), status)
}

func TestCreateThenLookupThenWriteThenRead(t *testing.T) {
	h, root := newHandlers(t)
	ctx := context.Background()

	createReply, err := h.Create(ctx, &rpc.CallEnvelope{ArgsTail: createArgs(root, "greeting")})
	require.NoError(t, err)
	cr := xdr.NewReader(createReply)
	status, err := cr.Uint32()
	require.NoError(t, err)
	require.Equal(t, uint32(v3.NFS3OK), status)

	present, err := cr.Bool()
	require.NoError(t, err)
	require.True(t, present)
	fh, err := v3.DecodeFileHandle3(cr)
	require.NoError(t, err)

	var lookupArgs bytes.Buffer
	lookupArgs.Write(fhBytes(root))
	_ = xdr.WriteString(&lookupArgs, "greeting")
	lookupReply, err := h.Lookup(ctx, &rpc.CallEnvelope{ArgsTail: lookupArgs.Bytes()})
	require.NoError(t, err)
	lr := xdr.NewReader(lookupReply)
	lookupStatus, err := lr.Uint32()
	require.NoError(t, err)
	require.Equal(t, uint32(v3.NFS3OK), lookupStatus)
	lookedUpFH, err := v3.DecodeFileHandle3(lr)
	require.NoError(t, err)
	assert.Equal(t, fh, lookedUpFH)

	var writeArgs bytes.Buffer
	writeArgs.Write(fhBytes(fh))
	_ = xdr.WriteUint64(&writeArgs, 0)
	_ = xdr.WriteUint32(&writeArgs, 5)
	_ = xdr.WriteUint32(&writeArgs, uint32(v3.FileSync))
	_ = xdr.WriteOpaque(&writeArgs, []byte("hello"))
	writeReply, err := h.Write(ctx, &rpc.CallEnvelope{ArgsTail: writeArgs.Bytes()})
	require.NoError(t, err)
	wr := xdr.NewReader(writeReply)
	writeStatus, err := wr.Uint32()
	require.NoError(t, err)
	require.Equal(t, uint32(v3.NFS3OK), writeStatus)

	var readArgs bytes.Buffer
	readArgs.Write(fhBytes(fh))
	_ = xdr.WriteUint64(&readArgs, 0)
	_ = xdr.WriteUint32(&readArgs, 1024)
	readReply, err := h.Read(ctx, &rpc.CallEnvelope{ArgsTail: readArgs.Bytes()})
	require.NoError(t, err)
	rr := xdr.NewReader(readReply)
	readStatus, err := rr.Uint32()
	require.NoError(t, err)
	require.Equal(t, uint32(v3.NFS3OK), readStatus)
	_, err = v3.DecodePostOpAttr(rr)
	require.NoError(t, err)
	count, err := rr.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(5), count)
	eof, err := rr.Bool()
	require.NoError(t, err)
	assert.True(t, eof)
	data, err := rr.Opaque(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestReaddirListsCreatedEntries(t *testing.T) {
	h, root := newHandlers(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		_, err := h.Create(ctx, &rpc.CallEnvelope{ArgsTail: createArgs(root, name)})
		require.NoError(t, err)
	}

	var args bytes.Buffer
	args.Write(fhBytes(root))
	_ = xdr.WriteUint64(&args, 0)
	_ = xdr.WriteFixedOpaque(&args, make([]byte, 8))
	_ = xdr.WriteUint32(&args, 4096)

	reply, err := h.Readdir(ctx, &rpc.CallEnvelope{ArgsTail: args.Bytes()})
	require.NoError(t, err)

	r := xdr.NewReader(reply)
	status, err := r.Uint32()
	require.NoError(t, err)
	require.Equal(t, uint32(v3.NFS3OK), status)
	_, err = v3.DecodePostOpAttr(r)
	require.NoError(t, err)
	_, err = r.FixedOpaque(8)
	require.NoError(t, err)

	var names []string
	for {
		has, err := r.Bool()
		require.NoError(t, err)
		if !has {
			break
		}
		_, err = r.Uint64()
		require.NoError(t, err)
		name, err := r.String(0)
		require.NoError(t, err)
		_, err = r.Uint64()
		require.NoError(t, err)
		names = append(names, name)
	}
	assert.Contains(t, names, "a")
	assert.Contains(t, names, "b")
}

func TestFsStatFsInfoPathConfOnRoot(t *testing.T) {
	h, root := newHandlers(t)
	ctx := context.Background()
	args := fhBytes(root)

	fsStatReply, err := h.FsStat(ctx, &rpc.CallEnvelope{ArgsTail: args})
	require.NoError(t, err)
	status, err := xdr.NewReader(fsStatReply).Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(v3.NFS3OK), status)

	fsInfoReply, err := h.FsInfo(ctx, &rpc.CallEnvelope{ArgsTail: args})
	require.NoError(t, err)
	status, err = xdr.NewReader(fsInfoReply).Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(v3.NFS3OK), status)

	pathConfReply, err := h.PathConf(ctx, &rpc.CallEnvelope{ArgsTail: args})
	require.NoError(t, err)
	status, err = xdr.NewReader(pathConfReply).Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(v3.NFS3OK), status)
}

func TestUnsupportedProceduresReturnNotSupp(t *testing.T) {
	h, _ := newHandlers(t)

	reply, err := h.Unsupported(context.Background(), &rpc.CallEnvelope{})
	require.NoError(t, err)

	status, err := xdr.NewReader(reply).Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(v3.NFS3ErrNotSupp), status)
}

func TestNullIsEmptyBody(t *testing.T) {
	h, _ := newHandlers(t)

	reply, err := h.Null(context.Background(), &rpc.CallEnvelope{})
	require.NoError(t, err)
	assert.Empty(t, reply)
}
