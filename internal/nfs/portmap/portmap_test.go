package portmap_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfsd3/nfsd3/internal/nfs/portmap"
	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

func getPortArgs(prog, vers, prot, port uint32) []byte {
	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, prog)
	_ = xdr.WriteUint32(&buf, vers)
	_ = xdr.WriteUint32(&buf, prot)
	_ = xdr.WriteUint32(&buf, port)
	return buf.Bytes()
}

func TestGetPortReturnsListenerPortForAdvertisedTriple(t *testing.T) {
	h := &portmap.Handlers{Registry: portmap.NewRegistry(2049)}

	reply, err := h.GetPort(context.Background(), &rpc.CallEnvelope{
		ArgsTail: getPortArgs(100003, 3, portmap.ProtoTCP, 0),
	})
	require.NoError(t, err)

	got, err := xdr.NewReader(reply).Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(2049), got)
}

func TestGetPortReturnsZeroForUnknownTriple(t *testing.T) {
	h := &portmap.Handlers{Registry: portmap.NewRegistry(2049)}

	reply, err := h.GetPort(context.Background(), &rpc.CallEnvelope{
		ArgsTail: getPortArgs(100021, 1, portmap.ProtoTCP, 0), // NLM, not advertised
	})
	require.NoError(t, err)

	got, err := xdr.NewReader(reply).Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got)
}

func TestGetPortIgnoresRequestedPortField(t *testing.T) {
	h := &portmap.Handlers{Registry: portmap.NewRegistry(2049)}

	reply, err := h.GetPort(context.Background(), &rpc.CallEnvelope{
		ArgsTail: getPortArgs(100005, 3, portmap.ProtoTCP, 9999),
	})
	require.NoError(t, err)

	got, err := xdr.NewReader(reply).Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(2049), got)
}

func TestDumpListsAllThreeAdvertisedServices(t *testing.T) {
	h := &portmap.Handlers{Registry: portmap.NewRegistry(2049)}

	reply, err := h.Dump(context.Background(), &rpc.CallEnvelope{})
	require.NoError(t, err)

	r := xdr.NewReader(reply)
	var mappings []portmap.Mapping
	for {
		hasNext, err := r.Bool()
		require.NoError(t, err)
		if !hasNext {
			break
		}
		prog, err := r.Uint32()
		require.NoError(t, err)
		vers, err := r.Uint32()
		require.NoError(t, err)
		prot, err := r.Uint32()
		require.NoError(t, err)
		port, err := r.Uint32()
		require.NoError(t, err)
		mappings = append(mappings, portmap.Mapping{Prog: prog, Vers: vers, Prot: prot, Port: port})
	}

	require.Len(t, mappings, 3)
	for _, m := range mappings {
		assert.Equal(t, uint32(2049), m.Port)
		assert.Equal(t, uint32(portmap.ProtoTCP), m.Prot)
	}
	assert.Equal(t, uint32(100000), mappings[0].Prog)
	assert.Equal(t, uint32(100005), mappings[1].Prog)
	assert.Equal(t, uint32(100003), mappings[2].Prog)
}

func TestNullReturnsEmptyBody(t *testing.T) {
	h := &portmap.Handlers{Registry: portmap.NewRegistry(2049)}

	reply, err := h.Null(context.Background(), &rpc.CallEnvelope{})
	require.NoError(t, err)
	assert.Empty(t, reply)
}
