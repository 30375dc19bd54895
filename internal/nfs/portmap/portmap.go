// Package portmap implements the v2 Port Mapper procedures (RFC 1057
// Appendix A) this server needs to answer on its own listening port:
// NULL, GETPORT, and DUMP. Per spec.md §4.5 the server never registers
// itself with a system rpcbind and never advertises anything other than
// its own (prog, vers, proto=TCP) triples — SET/UNSET/CALLIT are simply
// not in the dispatch table.
package portmap

import (
	"bytes"
	"context"

	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// ProtoTCP is the portmap protocol identifier for TCP (IPPROTO_TCP).
const ProtoTCP = 6

// Mapping is one advertised (program, version, protocol, port) quadruple.
type Mapping struct {
	Prog uint32
	Vers uint32
	Prot uint32
	Port uint32
}

// Registry is the static set of services this server answers GETPORT/DUMP
// queries for. It never changes after construction — there is no SET
// procedure to mutate it at runtime.
type Registry struct {
	port     uint32
	mappings []Mapping
}

// NewRegistry builds the registry this server advertises: PORTMAP itself,
// MOUNT v3, and NFS v3, all reachable on port over TCP.
func NewRegistry(port uint32) *Registry {
	return &Registry{
		port: port,
		mappings: []Mapping{
			{Prog: 100000, Vers: 2, Prot: ProtoTCP, Port: port},
			{Prog: 100005, Vers: 3, Prot: ProtoTCP, Port: port},
			{Prog: 100003, Vers: 3, Prot: ProtoTCP, Port: port},
		},
	}
}

func (r *Registry) getPort(prog, vers, prot uint32) uint32 {
	for _, m := range r.mappings {
		if m.Prog == prog && m.Vers == vers && m.Prot == prot {
			return r.port
		}
	}
	return 0
}

// Handlers binds the registry to the dispatch-compatible Handler signature.
type Handlers struct {
	Registry *Registry
}

// Null implements PORTMAP procedure 0.
func (h *Handlers) Null(_ context.Context, _ *rpc.CallEnvelope) ([]byte, error) {
	return []byte{}, nil
}

// GetPort implements PORTMAP procedure 3. It answers only for the server's
// own advertised triples and returns 0 for anything else (spec.md §4.5) —
// it never consults the requested port field in the argument.
func (h *Handlers) GetPort(_ context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	r := xdr.NewReader(call.ArgsTail)
	prog, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	vers, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	prot, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if _, err := r.Uint32(); err != nil { // requested port, ignored
		return nil, err
	}

	var buf bytes.Buffer
	if err := xdr.WriteUint32(&buf, h.Registry.getPort(prog, vers, prot)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Dump implements PORTMAP procedure 4: an XDR optional-data linked list of
// every mapping this server advertises, terminated by a false boolean.
func (h *Handlers) Dump(_ context.Context, _ *rpc.CallEnvelope) ([]byte, error) {
	var buf bytes.Buffer
	for _, m := range h.Registry.mappings {
		if err := xdr.WriteBool(&buf, true); err != nil {
			return nil, err
		}
		for _, v := range []uint32{m.Prog, m.Vers, m.Prot, m.Port} {
			if err := xdr.WriteUint32(&buf, v); err != nil {
				return nil, err
			}
		}
	}
	if err := xdr.WriteBool(&buf, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
