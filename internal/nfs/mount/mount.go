// Package mount implements the MOUNT v3 procedures (RFC 1813 Appendix I):
// NULL, MNT, DUMP, UMNT, UMNTALL, EXPORT. It owns the export table (static,
// read-only after startup) and the mount table (the only other piece of
// server-wide mutable state besides the handle map, per spec.md §5).
package mount

import (
	"bytes"
	"context"
	"net"
	"sync"
	"unicode/utf8"

	xdr2 "github.com/rasky/go-xdr/xdr2"

	"github.com/nfsd3/nfsd3/internal/nfs/fsal"
	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// Export is one exported directory: a path clients mount by name and the
// FSAL backend that serves it.
type Export struct {
	Path           string
	FS             fsal.FSAL
	ClientPatterns []string // optional; empty means any client may mount
}

// entry is one active (client, dirpath) mount record.
type entry struct {
	clientAddr string
	dirpath    string
}

// Table holds the export set and the mount table.
type Table struct {
	exports []Export // immutable after construction, no locking needed

	mu      sync.RWMutex
	entries []entry
}

// NewTable builds a mount Table over a fixed export set.
func NewTable(exports []Export) *Table {
	return &Table{exports: exports}
}

func (t *Table) findExport(path string) *Export {
	for i := range t.exports {
		if t.exports[i].Path == path {
			return &t.exports[i]
		}
	}
	return nil
}

// ExportFor returns the FSAL backend serving path, or nil if path is not
// exported.
func (t *Table) ExportFor(path string) fsal.FSAL {
	e := t.findExport(path)
	if e == nil {
		return nil
	}
	return e.FS
}

func clientAllowed(e *Export, clientAddr string) bool {
	if len(e.ClientPatterns) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(clientAddr)
	if err != nil {
		host = clientAddr
	}
	for _, pat := range e.ClientPatterns {
		if pat == host {
			return true
		}
	}
	return false
}

// Handlers binds a Table to the dispatch.Handler signature.
type Handlers struct {
	Table *Table
}

// Null implements MOUNT procedure 0.
func (h *Handlers) Null(_ context.Context, _ *rpc.CallEnvelope) ([]byte, error) {
	return []byte{}, nil
}

// dirpathRequest mirrors the mountproc3 dirpath argument; rasky/go-xdr
// decodes it reflectively since it is just a single XDR string.
type dirpathRequest struct {
	DirPath string
}

func decodeDirPath(argsTail []byte) (string, error) {
	var req dirpathRequest
	if _, err := xdr2.Unmarshal(bytes.NewReader(argsTail), &req); err != nil {
		return "", err
	}
	return req.DirPath, nil
}

// validateDirPath applies spec.md §4.6's status mapping for malformed
// paths, checked before any export lookup.
func validateDirPath(path string) v3.MountStatus {
	if !utf8.ValidString(path) {
		return v3.MNT3ErrInval
	}
	if len(path) > v3.MaxPathSize {
		return v3.MNT3ErrNameTooLong
	}
	if len(path) == 0 || path[0] != '/' {
		return v3.MNT3ErrNotDir
	}
	return v3.MNT3OK
}

func clientAddrFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(clientAddrKey{}).(string); ok {
		return v
	}
	return ""
}

// clientAddrKey is the context key the connection layer uses to pass the
// remote address down to handlers that need it (MNT/UMNT/UMNTALL, which
// key their state by client identity rather than by file handle).
type clientAddrKey struct{}

// WithClientAddr attaches the connection's remote address to ctx.
func WithClientAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientAddrKey{}, addr)
}

// Mnt implements MOUNT procedure 1. On success it records (client, dirpath)
// in the mount table and mints the export's root handle with both
// AUTH_NONE and AUTH_SYS advertised (spec.md §4.6).
func (h *Handlers) Mnt(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	path, err := decodeDirPath(call.ArgsTail)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if status := validateDirPath(path); status != v3.MNT3OK {
		if err := xdr.WriteUint32(&buf, uint32(status)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	exp := h.Table.findExport(path)
	clientAddr := clientAddrFromCtx(ctx)
	if exp == nil {
		if err := xdr.WriteUint32(&buf, uint32(v3.MNT3ErrNoEnt)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if !clientAllowed(exp, clientAddr) {
		if err := xdr.WriteUint32(&buf, uint32(v3.MNT3ErrAccess)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	rootFH := exp.FS.RootHandle()

	h.Table.mu.Lock()
	h.Table.entries = append(h.Table.entries, entry{clientAddr: clientAddr, dirpath: path})
	h.Table.mu.Unlock()

	if err := xdr.WriteUint32(&buf, uint32(v3.MNT3OK)); err != nil {
		return nil, err
	}
	if err := v3.EncodeFileHandle3(&buf, rootFH); err != nil {
		return nil, err
	}
	// auth_flavors<>: AUTH_NONE(0), AUTH_SYS(1)
	if err := xdr.WriteUint32(&buf, 2); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, rpc.AuthFlavorNone); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, rpc.AuthFlavorSys); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Dump implements MOUNT procedure 2: the current mount table as an
// XDR-linked list of {hostname, directory} pairs.
func (h *Handlers) Dump(_ context.Context, _ *rpc.CallEnvelope) ([]byte, error) {
	h.Table.mu.RLock()
	entries := append([]entry(nil), h.Table.entries...)
	h.Table.mu.RUnlock()

	var buf bytes.Buffer
	for _, e := range entries {
		if err := xdr.WriteBool(&buf, true); err != nil {
			return nil, err
		}
		if err := xdr.WriteString(&buf, e.clientAddr); err != nil {
			return nil, err
		}
		if err := xdr.WriteString(&buf, e.dirpath); err != nil {
			return nil, err
		}
	}
	if err := xdr.WriteBool(&buf, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Umnt implements MOUNT procedure 3: removes a matching (client, dirpath)
// entry if present. Always succeeds per RFC 1813.
func (h *Handlers) Umnt(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	path, err := decodeDirPath(call.ArgsTail)
	if err != nil {
		return nil, err
	}
	clientAddr := clientAddrFromCtx(ctx)

	h.Table.mu.Lock()
	filtered := h.Table.entries[:0]
	for _, e := range h.Table.entries {
		if e.clientAddr == clientAddr && e.dirpath == path {
			continue
		}
		filtered = append(filtered, e)
	}
	h.Table.entries = filtered
	h.Table.mu.Unlock()

	return []byte{}, nil
}

// UmntAll implements MOUNT procedure 4: removes every entry for the
// calling client. Always succeeds.
func (h *Handlers) UmntAll(ctx context.Context, _ *rpc.CallEnvelope) ([]byte, error) {
	clientAddr := clientAddrFromCtx(ctx)

	h.Table.mu.Lock()
	filtered := h.Table.entries[:0]
	for _, e := range h.Table.entries {
		if e.clientAddr == clientAddr {
			continue
		}
		filtered = append(filtered, e)
	}
	h.Table.entries = filtered
	h.Table.mu.Unlock()

	return []byte{}, nil
}

// Export implements MOUNT procedure 5: the configured export set, with an
// always-empty group_names list (spec.md §4.6).
func (h *Handlers) Export(_ context.Context, _ *rpc.CallEnvelope) ([]byte, error) {
	var buf bytes.Buffer
	for _, e := range h.Table.exports {
		if err := xdr.WriteBool(&buf, true); err != nil {
			return nil, err
		}
		if err := xdr.WriteString(&buf, e.Path); err != nil {
			return nil, err
		}
		if err := xdr.WriteBool(&buf, false); err != nil { // group_names<> terminator
			return nil, err
		}
	}
	if err := xdr.WriteBool(&buf, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
