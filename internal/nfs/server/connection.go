package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/nfsd3/nfsd3/internal/logger"
	"github.com/nfsd3/nfsd3/internal/nfs/dispatch"
	"github.com/nfsd3/nfsd3/internal/nfs/framer"
	"github.com/nfsd3/nfsd3/internal/nfs/mount"
	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
)

// connection handles one accepted TCP connection: a record-marking reader
// feeding decoded calls through dispatch, and a mutex-guarded record
// writer. Records are read and decoded sequentially, and each decoded call
// is handled in its own goroutine; reqSem caps how many of this connection's
// calls are in flight at once (cfg.MaxRequestsPerConn). Replies are written
// whole, one at a time, by the framer's Writer.
type connection struct {
	server *Server
	conn   net.Conn
	id     string

	reqSem chan struct{}
	wg     sync.WaitGroup

	fr *framer.Reader
	fw *framer.Writer
}

func newConnection(s *Server, c net.Conn, id string) *connection {
	return &connection{
		server: s,
		conn:   c,
		id:     id,
		reqSem: make(chan struct{}, s.cfg.MaxRequestsPerConn),
		fr:     framer.NewReader(c, s.cfg.MaxRecordSize),
		fw:     framer.NewWriter(c),
	}
}

func (c *connection) serve(ctx context.Context) {
	defer c.close()

	clientAddr := c.conn.RemoteAddr().String()
	ctx = mount.WithClientAddr(ctx, clientAddr)
	logger.Debug("connection accepted", "client", clientAddr, "conn_id", c.id)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if c.server.cfg.IdleTimeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.server.cfg.IdleTimeout)); err != nil {
				logger.Debug("failed to set idle deadline", "client", clientAddr, "error", err)
				return
			}
		}

		record, err := c.fr.ReadRecord()
		if err != nil {
			logConnectionReadError(clientAddr, err)
			return
		}

		call, err := rpc.DecodeCall(record)
		if err != nil {
			// Per spec.md §4.3, a malformed call header is unrecoverable for
			// the connection — the xid itself may not be trustworthy.
			logger.Debug("malformed rpc call, closing connection", "client", clientAddr, "error", err)
			return
		}

		c.reqSem <- struct{}{}
		c.wg.Add(1)
		go func(call *rpc.CallEnvelope) {
			defer c.wg.Done()
			defer func() { <-c.reqSem }()
			defer c.recoverRequestPanic(clientAddr, call.XID)
			c.handleCall(ctx, call)
		}(call)
	}
}

func logConnectionReadError(clientAddr string, err error) {
	switch {
	case errors.Is(err, framer.ErrConnectionClosed):
		logger.Debug("connection closed by client", "client", clientAddr)
	case errors.Is(err, framer.ErrTruncated):
		logger.Debug("connection truncated mid-record", "client", clientAddr, "error", err)
	case errors.Is(err, framer.ErrOversizedRecord), errors.Is(err, framer.ErrInvalidHeader):
		logger.Warn("malformed record framing, closing connection", "client", clientAddr, "error", err)
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			logger.Debug("connection idle timeout", "client", clientAddr)
			return
		}
		logger.Debug("error reading record", "client", clientAddr, "error", err)
	}
}

// handleCall validates the RPC version and auth flavor before dispatching,
// per spec.md §4.3/§4.4's checking order, then writes exactly one reply. Per
// spec.md §7, a failure to encode the intended reply is itself surfaced to
// the client as SYSTEM_ERR rather than left as a silently dropped XID.
func (c *connection) handleCall(ctx context.Context, call *rpc.CallEnvelope) {
	if call.RPCVers != rpc.RPCVersion {
		reply, err := rpc.EncodeRPCMismatchReply(call.XID, rpc.RPCVersion, rpc.RPCVersion)
		if err != nil {
			logger.Warn("failed to encode RPC_MISMATCH reply", "xid", call.XID, "error", err)
			c.writeSystemErrReply(call.XID)
			return
		}
		c.writeRecord(reply)
		return
	}

	if call.Cred.Flavor != rpc.AuthFlavorNone && call.Cred.Flavor != rpc.AuthFlavorSys {
		reply, err := rpc.EncodeAuthErrorReply(call.XID, rpc.AuthBadCred)
		if err != nil {
			logger.Warn("failed to encode AUTH_ERROR reply", "xid", call.XID, "error", err)
			c.writeSystemErrReply(call.XID)
			return
		}
		c.writeRecord(reply)
		return
	}

	host, _, splitErr := net.SplitHostPort(c.conn.RemoteAddr().String())
	if splitErr != nil {
		host = c.conn.RemoteAddr().String()
	}
	rc := &logger.RequestContext{ClientAddr: host, XID: call.XID}
	if call.Cred.Flavor == rpc.AuthFlavorSys {
		if cred, credErr := rpc.DecodeAuthSysCredential(call.Cred.Body); credErr == nil {
			rc.UID, rc.GID = cred.UID, cred.GID
		}
	}
	ctx = logger.WithContext(ctx, rc)

	result := c.server.table.Dispatch(ctx, call)

	var reply []byte
	var err error
	switch result.Outcome {
	case dispatch.OutcomeProgUnavail:
		reply, err = rpc.EncodeAcceptedReply(call.XID, rpc.NoneVerifier, rpc.ProgUnavail, nil)
	case dispatch.OutcomeProgMismatch:
		body := rpc.EncodeMismatchBody(result.MismatchLow, result.MismatchHigh)
		reply, err = rpc.EncodeAcceptedReply(call.XID, rpc.NoneVerifier, rpc.ProgMismatch, body)
	case dispatch.OutcomeProcUnavail:
		reply, err = rpc.EncodeAcceptedReply(call.XID, rpc.NoneVerifier, rpc.ProcUnavail, nil)
	case dispatch.OutcomeHandled:
		if result.Err != nil {
			logger.Debug("handler returned garbage args", "xid", call.XID, "proc", call.Proc, "error", result.Err)
			reply, err = rpc.EncodeAcceptedReply(call.XID, rpc.NoneVerifier, rpc.GarbageArgs, nil)
		} else {
			reply, err = rpc.EncodeAcceptedReply(call.XID, rpc.NoneVerifier, rpc.Success, result.Body)
		}
	}
	if err != nil {
		logger.Warn("failed to encode reply", "xid", call.XID, "error", err)
		c.writeSystemErrReply(call.XID)
		return
	}
	c.writeRecord(reply)
}

// writeSystemErrReply answers xid with an accepted reply carrying
// accept_stat SYSTEM_ERR. Used whenever the intended reply for a call
// cannot itself be produced (an encode failure, or a recovered handler
// panic) so the client sees a definite RPC-layer failure instead of a
// connection that silently stops answering that XID.
func (c *connection) writeSystemErrReply(xid uint32) {
	reply, err := rpc.EncodeAcceptedReply(xid, rpc.NoneVerifier, rpc.SystemErr, nil)
	if err != nil {
		logger.Warn("failed to encode SYSTEM_ERR reply", "xid", xid, "error", err)
		return
	}
	c.writeRecord(reply)
}

func (c *connection) writeRecord(body []byte) {
	if c.server.cfg.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.server.cfg.WriteTimeout)); err != nil {
			logger.Debug("failed to set write deadline", "client", c.conn.RemoteAddr().String(), "error", err)
			return
		}
	}
	if err := c.fw.WriteRecord(body); err != nil {
		logger.Debug("failed to write reply", "client", c.conn.RemoteAddr().String(), "error", err)
	}
}

// recoverRequestPanic recovers a panic from a single request's handler
// goroutine so it cannot take down the whole connection, and per spec.md §7
// answers the client's still-outstanding xid with SYSTEM_ERR rather than
// leaving it to time out with no reply at all.
func (c *connection) recoverRequestPanic(clientAddr string, xid uint32) {
	if r := recover(); r != nil {
		logger.Error("panic handling request", "client", clientAddr, "xid", xid, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		c.writeSystemErrReply(xid)
	}
}

func (c *connection) close() {
	if r := recover(); r != nil {
		logger.Error("panic in connection loop", "client", c.conn.RemoteAddr().String(), "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
	}
	c.wg.Wait()
	_ = c.conn.Close()
}
