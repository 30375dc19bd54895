package handlers

import (
	"bytes"
	"context"

	"github.com/nfsd3/nfsd3/internal/logger"
	"github.com/nfsd3/nfsd3/internal/nfs/rpc"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
	"github.com/nfsd3/nfsd3/internal/xdr"
)

// Unsupported answers NFS3ERR_NOTSUPP for any procedure this core declares
// in its dispatch table but does not implement (spec.md §4.7): READLINK,
// MKDIR, SYMLINK, MKNOD, REMOVE, RMDIR, RENAME, LINK, READDIRPLUS, COMMIT.
// It deliberately does not decode arguments. Every one of these result
// types leads with the status word, and its failure arm holds only
// optional attribute fields, which are written here as absent: one FALSE
// word per post_op_attr and two per wcc_data.
func (h *Handlers) Unsupported(ctx context.Context, call *rpc.CallEnvelope) ([]byte, error) {
	logger.DebugCtx(ctx, "RPC call", "op", "unsupported", "proc", call.Proc)
	var buf bytes.Buffer
	writeStatus(&buf, v3.NFS3ErrNotSupp)
	absent := map[uint32]int{
		v3.ProcReadlink: 1, v3.ProcReaddirPlus: 1,
		v3.ProcMkdir: 2, v3.ProcSymlink: 2, v3.ProcMknod: 2,
		v3.ProcRemove: 2, v3.ProcRmdir: 2, v3.ProcCommit: 2,
		v3.ProcLink: 3, v3.ProcRename: 4,
	}[call.Proc]
	for i := 0; i < absent; i++ {
		if err := xdr.WriteBool(&buf, false); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
