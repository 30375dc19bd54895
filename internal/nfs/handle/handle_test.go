package handle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfsd3/nfsd3/internal/nfs/handle"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
)

func TestMintThenUnwrapRoundTrip(t *testing.T) {
	m, err := handle.NewMinter()
	require.NoError(t, err)

	id := []byte("inode-42")
	fh, err := m.Mint(id)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(fh), v3.MaxFileHandleSize)

	got, err := m.Unwrap(fh)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestUnwrapRejectsHandleFromAnotherMinter(t *testing.T) {
	m1, err := handle.NewMinter()
	require.NoError(t, err)
	m2, err := handle.NewMinter()
	require.NoError(t, err)

	fh, err := m1.Mint([]byte("inode-1"))
	require.NoError(t, err)

	_, err = m2.Unwrap(fh)
	assert.Error(t, err)
}

func TestUnwrapRejectsNeverMintedHandle(t *testing.T) {
	m, err := handle.NewMinter()
	require.NoError(t, err)

	// spec.md §8 scenario 7: bad handle bytes never minted by the server.
	_, err = m.Unwrap(v3.FileHandle3{0xFF})
	assert.Error(t, err)
}

func TestMintRejectsIDTooLargeForHandle(t *testing.T) {
	m, err := handle.NewMinter()
	require.NoError(t, err)

	_, err = m.Mint(make([]byte, v3.MaxFileHandleSize))
	assert.Error(t, err)
}
