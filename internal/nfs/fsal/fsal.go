// Package fsal defines the Filesystem Abstraction Layer contract (spec.md
// §4.8): the minimal capability set the NFS v3 handlers require from a
// storage backend, and the backend-agnostic error enumeration handlers map
// to NFS3ERR_* at the protocol boundary.
package fsal

import (
	"context"
	"errors"

	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
)

// ErrorCode enumerates FSAL failure modes. Handlers map each to an
// NFS3ERR_* status; no FSAL implementation should return a bare error that
// isn't wrapped in one of these (a backend-specific error not covered here
// falls back to NFS3ERR_IO — see handlers.MapFSALError).
type ErrorCode int

const (
	NotFound ErrorCode = iota
	NotDir
	IsDir
	Exists
	NoSpace
	Access
	Perm
	Invalid
	TooBig
	ReadOnly
	Stale
	BadHandle
	Io
	NotSupported
	NotEmpty
	NameTooLong
	NotSynced
	BadCookie
	TooSmall
)

// Error wraps an ErrorCode with backend context. Handlers type-assert for
// *Error; anything else crossing the FSAL boundary is treated as Io.
type Error struct {
	Code ErrorCode
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error, the standard way FSAL implementations report a
// classified failure.
func New(code ErrorCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf extracts the ErrorCode from err, defaulting to Io for any error
// that did not originate from this package (spec.md §7: unexpected
// internal errors are logged and surfaced as SYSTEM_ERR/IO, never panic).
func CodeOf(err error) ErrorCode {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return Io
}

// Caller identifies the requesting principal, extracted from the RPC
// credential by the connection layer and passed down for Access decisions.
type Caller struct {
	UID  uint32
	GID  uint32
	GIDs []uint32
}

// ReadDirEntry is one entry returned by Readdir.
type ReadDirEntry struct {
	FileID uint64
	Name   string
	Cookie uint64
}

// FsStat mirrors the FSSTAT3 result body.
type FsStat struct {
	TotalBytes     uint64
	FreeBytes      uint64
	AvailBytes     uint64
	TotalFiles     uint64
	FreeFiles      uint64
	AvailFiles     uint64
	InvarSec       uint32
}

// FsInfo mirrors the FSINFO3 result body.
type FsInfo struct {
	ReadMax        uint32
	ReadPref       uint32
	ReadMult       uint32
	WriteMax       uint32
	WritePref      uint32
	WriteMult      uint32
	DirPref        uint32
	MaxFileSize    uint64
	TimeDeltaSec   uint32
	TimeDeltaNsec  uint32
	Properties     uint32
}

// PathConf mirrors the PATHCONF3 result body.
type PathConf struct {
	LinkMax        uint32
	NameMax        uint32
	NoTrunc        bool
	ChownRestricted bool
	CaseInsensitive bool
	CasePreserving  bool
}

// FSAL is the capability set the NFS v3 handlers consume. All methods take
// a context so a backend with blocking I/O can honor cancellation/timeouts;
// the in-process reference backend (fsal/memfs) mostly ignores it.
type FSAL interface {
	RootHandle() v3.FileHandle3

	GetAttr(ctx context.Context, fh v3.FileHandle3) (*v3.FileAttr3, error)
	SetAttr(ctx context.Context, fh v3.FileHandle3, attr *v3.Sattr3, guard v3.GuardTime) (before, after *v3.FileAttr3, err error)
	Lookup(ctx context.Context, dir v3.FileHandle3, name string) (v3.FileHandle3, *v3.FileAttr3, *v3.FileAttr3, error)
	Access(ctx context.Context, fh v3.FileHandle3, mask uint32, caller Caller) (granted uint32, attr *v3.FileAttr3, err error)
	Read(ctx context.Context, fh v3.FileHandle3, offset uint64, count uint32) (data []byte, eof bool, attr *v3.FileAttr3, err error)
	Write(ctx context.Context, fh v3.FileHandle3, offset uint64, data []byte, stable v3.StableHow) (count uint32, committed v3.StableHow, before, after *v3.FileAttr3, err error)
	Create(ctx context.Context, dir v3.FileHandle3, name string, mode v3.CreateMode, attr *v3.Sattr3, verf []byte) (fh v3.FileHandle3, attr2 *v3.FileAttr3, dirBefore, dirAfter *v3.FileAttr3, err error)
	Readdir(ctx context.Context, dir v3.FileHandle3, cookie uint64, cookieverf [8]byte, byteBudget uint32) (entries []ReadDirEntry, newVerf [8]byte, eof bool, dirAttr *v3.FileAttr3, err error)
	FsStat(ctx context.Context, fh v3.FileHandle3) (*FsStat, *v3.FileAttr3, error)
	FsInfo(ctx context.Context, fh v3.FileHandle3) (*FsInfo, *v3.FileAttr3, error)
	PathConf(ctx context.Context, fh v3.FileHandle3) (*PathConf, *v3.FileAttr3, error)
}
