package memfs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfsd3/nfsd3/internal/nfs/fsal"
	"github.com/nfsd3/nfsd3/internal/nfs/fsal/memfs"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
)

func TestRootHandleGetAttrIsDirectory(t *testing.T) {
	fs, err := memfs.New()
	require.NoError(t, err)

	attr, err := fs.GetAttr(context.Background(), fs.RootHandle())
	require.NoError(t, err)
	assert.Equal(t, v3.NF3Dir, attr.Type)
	assert.Equal(t, uint32(0o040000), attr.Mode&0o170000)
	assert.Greater(t, attr.FileID, uint64(0))
}

func TestGetAttrOnNeverMintedHandleIsBadHandle(t *testing.T) {
	fs, err := memfs.New()
	require.NoError(t, err)

	_, err = fs.GetAttr(context.Background(), v3.FileHandle3{0xFF})
	require.Error(t, err)
	assert.Equal(t, fsal.BadHandle, fsal.CodeOf(err))
}

func TestLookupFileIDMatchesGetAttrFileID(t *testing.T) {
	fs, err := memfs.New()
	require.NoError(t, err)
	ctx := context.Background()

	fh, attr, _, _, err := fs.Create(ctx, fs.RootHandle(), "f", v3.Unchecked, nil, nil)
	require.NoError(t, err)

	lookedUp, lookupAttr, _, err := fs.Lookup(ctx, fs.RootHandle(), "f")
	require.NoError(t, err)
	assert.Equal(t, attr.FileID, lookupAttr.FileID)

	gotAttr, err := fs.GetAttr(ctx, lookedUp)
	require.NoError(t, err)
	assert.Equal(t, attr.FileID, gotAttr.FileID)
	_ = fh
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	fs, err := memfs.New()
	require.NoError(t, err)
	ctx := context.Background()

	fh, _, _, _, err := fs.Create(ctx, fs.RootHandle(), "f", v3.Unchecked, nil, nil)
	require.NoError(t, err)

	count, committed, _, _, err := fs.Write(ctx, fh, 0, []byte("hello"), v3.FileSync)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), count)
	assert.Equal(t, v3.FileSync, committed)

	data, eof, _, err := fs.Read(ctx, fh, 0, 1024)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
	assert.True(t, eof)
}

func TestCreateExclusiveIsIdempotent(t *testing.T) {
	fs, err := memfs.New()
	require.NoError(t, err)
	ctx := context.Background()
	verf := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	fh1, _, _, _, err := fs.Create(ctx, fs.RootHandle(), "f", v3.Exclusive, nil, verf)
	require.NoError(t, err)
	fh2, _, _, _, err := fs.Create(ctx, fs.RootHandle(), "f", v3.Exclusive, nil, verf)
	require.NoError(t, err)
	assert.Equal(t, fh1, fh2)
}

func TestCreateGuardedRejectsExistingFile(t *testing.T) {
	fs, err := memfs.New()
	require.NoError(t, err)
	ctx := context.Background()

	_, _, _, _, err = fs.Create(ctx, fs.RootHandle(), "f", v3.Guarded, nil, nil)
	require.NoError(t, err)
	_, _, _, _, err = fs.Create(ctx, fs.RootHandle(), "f", v3.Guarded, nil, nil)
	require.Error(t, err)
	assert.Equal(t, fsal.Exists, fsal.CodeOf(err))
}

func TestReaddirCookieContinuation(t *testing.T) {
	fs, err := memfs.New()
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, _, _, _, err := fs.Create(ctx, fs.RootHandle(), name, v3.Unchecked, nil, nil)
		require.NoError(t, err)
	}

	entries, verf1, eof, _, err := fs.Readdir(ctx, fs.RootHandle(), 0, [8]byte{}, 2*24+8)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, eof)
	assert.NotEqual(t, [8]byte{}, verf1)

	last := entries[len(entries)-1]
	rest, verf2, eof2, _, err := fs.Readdir(ctx, fs.RootHandle(), last.Cookie, verf1, 4096)
	require.NoError(t, err)
	assert.True(t, eof2)
	require.Len(t, rest, 1)
	assert.Equal(t, verf1, verf2)

	// Replaying the first call with the new cookieverf after structural
	// change is BadCookie — simulate by using a verifier that does not match.
	_, _, _, _, err = fs.Readdir(ctx, fs.RootHandle(), 0, [8]byte{9, 9, 9, 9, 9, 9, 9, 9}, 4096)
	require.Error(t, err)
	assert.Equal(t, fsal.BadCookie, fsal.CodeOf(err))
}
