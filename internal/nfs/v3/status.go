package v3

// Status is the nfsstat3 enum (RFC 1813 §2.6).
type Status uint32

const (
	NFS3OK             Status = 0
	NFS3ErrPerm        Status = 1
	NFS3ErrNoEnt       Status = 2
	NFS3ErrIO          Status = 5
	NFS3ErrNXIO        Status = 6
	NFS3ErrAccess      Status = 13
	NFS3ErrExist       Status = 17
	NFS3ErrXDev        Status = 18
	NFS3ErrNoDev       Status = 19
	NFS3ErrNotDir      Status = 20
	NFS3ErrIsDir       Status = 21
	NFS3ErrInval       Status = 22
	NFS3ErrFBig        Status = 27
	NFS3ErrNoSpc       Status = 28
	NFS3ErrRofs        Status = 30
	NFS3ErrMlink       Status = 31
	NFS3ErrNameTooLong Status = 63
	NFS3ErrNotEmpty    Status = 66
	NFS3ErrDquot       Status = 69
	NFS3ErrStale       Status = 70
	NFS3ErrRemote      Status = 71
	NFS3ErrBadHandle   Status = 10001
	NFS3ErrNotSync     Status = 10002
	NFS3ErrBadCookie   Status = 10003
	NFS3ErrNotSupp     Status = 10004
	NFS3ErrTooSmall    Status = 10005
	NFS3ErrServerFault Status = 10006
	NFS3ErrBadType     Status = 10007
	NFS3ErrJukebox     Status = 10008
)

// MountStatus is the mountstat3 enum (RFC 1813 mount appendix).
type MountStatus uint32

const (
	MNT3OK             MountStatus = 0
	MNT3ErrPerm        MountStatus = 1
	MNT3ErrNoEnt       MountStatus = 2
	MNT3ErrIO          MountStatus = 5
	MNT3ErrAccess      MountStatus = 13
	MNT3ErrNotDir      MountStatus = 20
	MNT3ErrInval       MountStatus = 22
	MNT3ErrNameTooLong MountStatus = 63
	MNT3ErrNotSupp     MountStatus = 10004
	MNT3ErrServerFault MountStatus = 10006
)
