package handlers

import (
	"github.com/nfsd3/nfsd3/internal/nfs/fsal"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
)

// MapFSALError translates an FSAL error code to its NFS3ERR_* status, the
// single point where backend-agnostic failures become wire status codes
// (spec.md §7: "All FSAL errors are mapped into NFS3ERR codes at the
// handler boundary").
func MapFSALError(err error) v3.Status {
	switch fsal.CodeOf(err) {
	case fsal.NotFound:
		return v3.NFS3ErrNoEnt
	case fsal.NotDir:
		return v3.NFS3ErrNotDir
	case fsal.IsDir:
		return v3.NFS3ErrIsDir
	case fsal.Exists:
		return v3.NFS3ErrExist
	case fsal.NoSpace:
		return v3.NFS3ErrNoSpc
	case fsal.Access:
		return v3.NFS3ErrAccess
	case fsal.Perm:
		return v3.NFS3ErrPerm
	case fsal.Invalid:
		return v3.NFS3ErrInval
	case fsal.TooBig:
		return v3.NFS3ErrFBig
	case fsal.ReadOnly:
		return v3.NFS3ErrRofs
	case fsal.Stale:
		return v3.NFS3ErrStale
	case fsal.BadHandle:
		return v3.NFS3ErrBadHandle
	case fsal.NotSupported:
		return v3.NFS3ErrNotSupp
	case fsal.NotEmpty:
		return v3.NFS3ErrNotEmpty
	case fsal.NameTooLong:
		return v3.NFS3ErrNameTooLong
	case fsal.NotSynced:
		return v3.NFS3ErrNotSync
	case fsal.BadCookie:
		return v3.NFS3ErrBadCookie
	case fsal.TooSmall:
		return v3.NFS3ErrTooSmall
	default:
		return v3.NFS3ErrIO
	}
}
