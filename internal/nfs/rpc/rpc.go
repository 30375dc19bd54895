// Package rpc implements the ONC RPC message layer (RFC 5531): call/reply
// envelope encoding, AUTH_NONE/AUTH_SYS credential handling, and the
// MSG_ACCEPTED/MSG_DENIED reply shapes. It knows nothing about PORTMAP,
// MOUNT, or NFS themselves — those live in the dispatch, mount, and v3
// packages, which consume CallEnvelope.ArgsTail.
package rpc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nfsd3/nfsd3/internal/xdr"
)

// Message type (RFC 5531 §9).
const (
	Call  = 0
	Reply = 1
)

// Reply status (RFC 5531 §9).
const (
	MsgAccepted = 0
	MsgDenied   = 1
)

// Accept status (RFC 5531 §9).
const (
	Success      = 0
	ProgUnavail  = 1
	ProgMismatch = 2
	ProcUnavail  = 3
	GarbageArgs  = 4
	SystemErr    = 5
)

// Reject status (RFC 5531 §9).
const (
	RPCMismatch = 0
	AuthError   = 1
)

// Auth stat (RFC 5531 §9).
const (
	AuthOK           = 0
	AuthBadCred      = 1
	AuthRejectedCred = 2
	AuthBadVerf      = 3
	AuthRejectedVerf = 4
	AuthTooWeak      = 5
)

// Auth flavor (RFC 5531 §9).
const (
	AuthFlavorNone = 0
	AuthFlavorSys  = 1
)

// RPCVersion is the only RPC protocol version this server speaks.
const RPCVersion = 2

// MaxAuthBodyLength bounds opaque_auth.body per RFC 5531 (400 bytes),
// guarding against a hostile client declaring an enormous credential.
const MaxAuthBodyLength = 400

// ErrMalformedCall indicates the RPC header itself could not be decoded —
// the connection is unrecoverable and must be closed (spec.md §4.3).
var ErrMalformedCall = errors.New("rpc: malformed call header")

// OpaqueAuth is the opaque_auth structure carried by both the credential
// and verifier fields of a call, and the verifier field of a reply.
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte
}

func decodeOpaqueAuth(r *xdr.Reader) (OpaqueAuth, error) {
	flavor, err := r.Uint32()
	if err != nil {
		return OpaqueAuth{}, err
	}
	body, err := r.Opaque(MaxAuthBodyLength)
	if err != nil {
		return OpaqueAuth{}, err
	}
	return OpaqueAuth{Flavor: flavor, Body: body}, nil
}

func (a OpaqueAuth) encode(buf *bytes.Buffer) error {
	if err := xdr.WriteUint32(buf, a.Flavor); err != nil {
		return err
	}
	return xdr.WriteOpaque(buf, a.Body)
}

// NoneVerifier is the verifier this server always replies with, per
// spec.md §4.3's verifier policy.
var NoneVerifier = OpaqueAuth{Flavor: AuthFlavorNone}

// AuthSysCredential is the decoded body of an AUTH_SYS (AUTH_UNIX)
// credential (RFC 5531 §9.2).
type AuthSysCredential struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

// DecodeAuthSysCredential parses an AUTH_SYS credential body. body is the
// raw opaque bytes from OpaqueAuth.Body.
func DecodeAuthSysCredential(body []byte) (*AuthSysCredential, error) {
	r := xdr.NewReader(body)
	var c AuthSysCredential
	var err error
	if c.Stamp, err = r.Uint32(); err != nil {
		return nil, fmt.Errorf("auth_sys stamp: %w", err)
	}
	if c.MachineName, err = r.String(255); err != nil {
		return nil, fmt.Errorf("auth_sys machine name: %w", err)
	}
	if c.UID, err = r.Uint32(); err != nil {
		return nil, fmt.Errorf("auth_sys uid: %w", err)
	}
	if c.GID, err = r.Uint32(); err != nil {
		return nil, fmt.Errorf("auth_sys gid: %w", err)
	}
	count, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("auth_sys gids count: %w", err)
	}
	const maxGIDs = 16 // NGROUPS_MAX-ish ceiling, matches RFC 5531 guidance
	if count > maxGIDs {
		return nil, fmt.Errorf("auth_sys gids count %d exceeds %d", count, maxGIDs)
	}
	c.GIDs = make([]uint32, count)
	for i := range c.GIDs {
		if c.GIDs[i], err = r.Uint32(); err != nil {
			return nil, fmt.Errorf("auth_sys gid[%d]: %w", i, err)
		}
	}
	return &c, nil
}

// CallEnvelope is a decoded RPC call header plus the undecoded tail of
// procedure-specific arguments.
type CallEnvelope struct {
	XID      uint32
	RPCVers  uint32
	Prog     uint32
	Vers     uint32
	Proc     uint32
	Cred     OpaqueAuth
	Verf     OpaqueAuth
	ArgsTail []byte
}

// DecodeCall decodes an RPC call header from a complete record. Any error
// here is ErrMalformedCall-class: the caller should close the connection,
// not attempt an RPC-level reply, because the xid itself may not be
// trustworthy.
func DecodeCall(record []byte) (*CallEnvelope, error) {
	r := xdr.NewReader(record)
	var c CallEnvelope
	var err error

	if c.XID, err = r.Uint32(); err != nil {
		return nil, fmt.Errorf("%w: xid: %v", ErrMalformedCall, err)
	}
	mtype, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("%w: mtype: %v", ErrMalformedCall, err)
	}
	if mtype != Call {
		return nil, fmt.Errorf("%w: mtype %d is not CALL", ErrMalformedCall, mtype)
	}
	if c.RPCVers, err = r.Uint32(); err != nil {
		return nil, fmt.Errorf("%w: rpcvers: %v", ErrMalformedCall, err)
	}
	if c.Prog, err = r.Uint32(); err != nil {
		return nil, fmt.Errorf("%w: prog: %v", ErrMalformedCall, err)
	}
	if c.Vers, err = r.Uint32(); err != nil {
		return nil, fmt.Errorf("%w: vers: %v", ErrMalformedCall, err)
	}
	if c.Proc, err = r.Uint32(); err != nil {
		return nil, fmt.Errorf("%w: proc: %v", ErrMalformedCall, err)
	}
	if c.Cred, err = decodeOpaqueAuth(r); err != nil {
		return nil, fmt.Errorf("%w: cred: %v", ErrMalformedCall, err)
	}
	if c.Verf, err = decodeOpaqueAuth(r); err != nil {
		return nil, fmt.Errorf("%w: verf: %v", ErrMalformedCall, err)
	}

	// Whatever DecodeCall has not consumed from r is the procedure-specific
	// argument payload; slice it straight out of the original record rather
	// than copying through Reader.
	c.ArgsTail = record[len(record)-r.Len():]
	return &c, nil
}

// EncodeAcceptedReply builds a full MSG_ACCEPTED reply record: xid, REPLY,
// MSG_ACCEPTED, verifier, accept_stat, and stat-dependent body.
//
//   - Success: body is the procedure result bytes, verbatim.
//   - ProgMismatch: body must be MismatchBody{Low, High}-encoded by the
//     caller and passed pre-encoded.
//   - ProgUnavail, ProcUnavail, GarbageArgs, SystemErr: body must be empty.
func EncodeAcceptedReply(xid uint32, verf OpaqueAuth, acceptStat uint32, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.WriteUint32(&buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, Reply); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, MsgAccepted); err != nil {
		return nil, err
	}
	if err := verf.encode(&buf); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, acceptStat); err != nil {
		return nil, err
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// EncodeMismatchBody encodes the {low, high} body used by both
// PROG_MISMATCH (accepted reply) and RPC_MISMATCH (denied reply).
func EncodeMismatchBody(low, high uint32) []byte {
	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, low)
	_ = xdr.WriteUint32(&buf, high)
	return buf.Bytes()
}

// EncodeRPCMismatchReply builds a MSG_DENIED / RPC_MISMATCH reply for an
// unsupported rpcvers.
func EncodeRPCMismatchReply(xid, low, high uint32) ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.WriteUint32(&buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, Reply); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, MsgDenied); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, RPCMismatch); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, low); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, high); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeAuthErrorReply builds a MSG_DENIED / AUTH_ERROR reply for an
// unsupported or rejected auth flavor.
func EncodeAuthErrorReply(xid uint32, authStat uint32) ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.WriteUint32(&buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, Reply); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, MsgDenied); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, AuthError); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, authStat); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
