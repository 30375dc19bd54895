package logger

import "context"

type contextKey struct{}

var requestContextKey = contextKey{}

// RequestContext holds the per-RPC-call fields that every log line for that
// call should carry. The connection supervisor creates one per incoming
// message and threads it through ctx to the dispatcher and handler.
type RequestContext struct {
	Procedure  string // e.g. "NFS.WRITE", "MOUNT.MNT"
	ClientAddr string // client IP, without port
	XID        uint32 // RPC transaction ID, for correlating call/reply lines
	UID        uint32
	GID        uint32
}

// Key names used both by the text handler's plain key=value rendering and
// by the JSON handler's field names; kept as constants so call sites and
// any future log-scraping stay in sync.
const (
	KeyProcedure  = "procedure"
	KeyClientAddr = "client_addr"
	KeyXID        = "xid"
	KeyUID        = "uid"
	KeyGID        = "gid"
)

// WithContext attaches rc to ctx.
func WithContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// FromContext retrieves the RequestContext attached to ctx, or nil.
func FromContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return nil
	}
	rc, _ := ctx.Value(requestContextKey).(*RequestContext)
	return rc
}

// WithProcedure returns a copy of rc with Procedure set, for handoff from
// the generic dispatcher (which only knows prog/vers/proc numbers) to a
// named handler (which knows the human-readable name).
func (rc *RequestContext) WithProcedure(procedure string) *RequestContext {
	if rc == nil {
		return nil
	}
	clone := *rc
	clone.Procedure = procedure
	return &clone
}
