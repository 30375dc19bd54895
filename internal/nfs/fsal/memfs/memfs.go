// Package memfs is the in-memory reference FSAL backend: enough of a
// filesystem to run the NFS v3 handler suite without a real disk. It holds
// no state on disk and is explicitly non-persistent — handles, directory
// contents, and file data are all lost on restart. A production deployment
// is expected to bring its own FSAL; this package exists to exercise and
// validate internal/nfs/v3/handlers.
package memfs

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/nfsd3/nfsd3/internal/nfs/fsal"
	"github.com/nfsd3/nfsd3/internal/nfs/handle"
	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
)

// node is one filesystem object: a file (with a byte slice of content) or
// a directory (with an ordered list of children, preserving insertion order
// so READDIR cookies are stable for the life of the directory's cookieverf).
type node struct {
	id       uint64
	fileType v3.FileType
	mode     uint32
	uid, gid uint32
	data     []byte
	children []childEntry // directories only
	parent   uint64
	atime    time.Time
	mtime    time.Time
	ctime    time.Time
}

type childEntry struct {
	name string
	id   uint64
}

// FS is the in-memory backend. One FS is created per export.
type FS struct {
	mu     sync.RWMutex
	nodes  map[uint64]*node
	nextID uint64
	minter *handle.Minter
	fsid   uint64
	rootID uint64
}

// New creates an empty filesystem with just a root directory.
func New() (*FS, error) {
	m, err := handle.NewMinter()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	fs := &FS{
		nodes:  make(map[uint64]*node),
		minter: m,
		fsid:   1,
		nextID: 1,
	}
	root := &node{
		id: 1, fileType: v3.NF3Dir, mode: 0o755,
		atime: now, mtime: now, ctime: now,
	}
	fs.nodes[1] = root
	fs.rootID = 1
	fs.nextID = 2
	return fs, nil
}

var _ fsal.FSAL = (*FS)(nil)

func idToBytes(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

func bytesToID(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("memfs: malformed backend id")
	}
	return binary.BigEndian.Uint64(b), nil
}

// resolve unwraps fh into a live node, or returns an fsal.Error classifying
// why it could not: BadHandle for a forged/foreign handle, Stale for one
// that once resolved but whose object has since been removed.
func (fs *FS) resolve(fh v3.FileHandle3) (*node, error) {
	idBytes, err := fs.minter.Unwrap(fh)
	if err != nil {
		return nil, fsal.New(fsal.BadHandle, "resolve", err)
	}
	id, err := bytesToID(idBytes)
	if err != nil {
		return nil, fsal.New(fsal.BadHandle, "resolve", err)
	}
	fs.mu.RLock()
	n, ok := fs.nodes[id]
	fs.mu.RUnlock()
	if !ok {
		return nil, fsal.New(fsal.Stale, "resolve", fmt.Errorf("id %d no longer exists", id))
	}
	return n, nil
}

func (fs *FS) mint(id uint64) v3.FileHandle3 {
	fh, err := fs.minter.Mint(idToBytes(id))
	if err != nil {
		// idToBytes is always 8 bytes, well under the handle size cap, so
		// Mint cannot fail here.
		panic(err)
	}
	return fh
}

func (fs *FS) RootHandle() v3.FileHandle3 {
	return fs.mint(fs.rootID)
}

func toNFSTime(t time.Time) v3.NFSTime3 {
	return v3.NFSTime3{Seconds: uint32(t.Unix()), Nseconds: uint32(t.Nanosecond())}
}

// unixFormatBits returns the S_IFMT-style type bits NFS clients expect
// folded into fattr3.mode alongside the permission bits, matching the
// conventional Unix mode encoding this server's clients assume.
func unixFormatBits(t v3.FileType) uint32 {
	switch t {
	case v3.NF3Dir:
		return 0o040000
	case v3.NF3Chr:
		return 0o020000
	case v3.NF3Blk:
		return 0o060000
	case v3.NF3Lnk:
		return 0o120000
	case v3.NF3Sock:
		return 0o140000
	case v3.NF3Fifo:
		return 0o010000
	default:
		return 0o100000 // NF3Reg
	}
}

// attrOf builds the fattr3 for n. Caller must hold fs.mu for reading.
func (fs *FS) attrOf(n *node) *v3.FileAttr3 {
	nlink := uint32(1)
	if n.fileType == v3.NF3Dir {
		nlink = uint32(2 + countSubdirs(n))
	}
	return &v3.FileAttr3{
		Type:   n.fileType,
		Mode:   n.mode&0o007777 | unixFormatBits(n.fileType),
		NLink:  nlink,
		UID:    n.uid,
		GID:    n.gid,
		Size:   uint64(len(n.data)),
		Used:   uint64(len(n.data)),
		Fsid:   fs.fsid,
		FileID: n.id,
		Atime:  toNFSTime(n.atime),
		Mtime:  toNFSTime(n.mtime),
		Ctime:  toNFSTime(n.ctime),
	}
}

func countSubdirs(n *node) int {
	return 0 // memfs does not track this precisely; nlink is advisory only
}

func (fs *FS) GetAttr(_ context.Context, fh v3.FileHandle3) (*v3.FileAttr3, error) {
	n, err := fs.resolve(fh)
	if err != nil {
		return nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.attrOf(n), nil
}

func (fs *FS) SetAttr(_ context.Context, fh v3.FileHandle3, attr *v3.Sattr3, guard v3.GuardTime) (*v3.FileAttr3, *v3.FileAttr3, error) {
	n, err := fs.resolve(fh)
	if err != nil {
		return nil, nil, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	before := fs.attrOf(n)
	if guard.Check {
		if guard.Time.Seconds != before.Ctime.Seconds || guard.Time.Nseconds != before.Ctime.Nseconds {
			return before, before, fsal.New(fsal.NotSynced, "setattr", fmt.Errorf("ctime guard mismatch"))
		}
	}
	if attr.Mode != nil {
		n.mode = *attr.Mode
	}
	if attr.UID != nil {
		n.uid = *attr.UID
	}
	if attr.GID != nil {
		n.gid = *attr.GID
	}
	if attr.Size != nil {
		sz := int(*attr.Size)
		if sz < 0 {
			return before, before, fsal.New(fsal.Invalid, "setattr", fmt.Errorf("negative size"))
		}
		if sz < len(n.data) {
			n.data = n.data[:sz]
		} else if sz > len(n.data) {
			grown := make([]byte, sz)
			copy(grown, n.data)
			n.data = grown
		}
	}
	now := time.Now()
	switch attr.Atime.Mode {
	case v3.SetToServerTime:
		n.atime = now
	case v3.SetToClientTime:
		n.atime = time.Unix(int64(attr.Atime.Time.Seconds), int64(attr.Atime.Time.Nseconds))
	}
	switch attr.Mtime.Mode {
	case v3.SetToServerTime:
		n.mtime = now
	case v3.SetToClientTime:
		n.mtime = time.Unix(int64(attr.Mtime.Time.Seconds), int64(attr.Mtime.Time.Nseconds))
	}
	n.ctime = now
	return before, fs.attrOf(n), nil
}

func (fs *FS) Lookup(_ context.Context, dirFH v3.FileHandle3, name string) (v3.FileHandle3, *v3.FileAttr3, *v3.FileAttr3, error) {
	dir, err := fs.resolve(dirFH)
	if err != nil {
		return nil, nil, nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	dirAttr := fs.attrOf(dir)
	if dir.fileType != v3.NF3Dir {
		return nil, nil, dirAttr, fsal.New(fsal.NotDir, "lookup", nil)
	}
	for _, c := range dir.children {
		if c.name == name {
			child := fs.nodes[c.id]
			return fs.mint(child.id), fs.attrOf(child), dirAttr, nil
		}
	}
	return nil, nil, dirAttr, fsal.New(fsal.NotFound, "lookup", nil)
}

// Access masks, matching RFC 1813 §3.3.4. memfs enforces no real
// permission model; it grants whatever the caller asks for except write
// access on a read-only-flagged mode bit, which is sufficient to exercise
// handler-level ACCESS semantics.
const (
	AccessRead    = 0x0001
	AccessLookup  = 0x0002
	AccessModify  = 0x0004
	AccessExtend  = 0x0008
	AccessDelete  = 0x0010
	AccessExecute = 0x0020
)

func (fs *FS) Access(_ context.Context, fh v3.FileHandle3, mask uint32, _ fsal.Caller) (uint32, *v3.FileAttr3, error) {
	n, err := fs.resolve(fh)
	if err != nil {
		return 0, nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	granted := mask
	if n.mode&0o200 == 0 {
		granted &^= AccessModify | AccessExtend | AccessDelete
	}
	return granted, fs.attrOf(n), nil
}

func (fs *FS) Read(_ context.Context, fh v3.FileHandle3, offset uint64, count uint32) ([]byte, bool, *v3.FileAttr3, error) {
	n, err := fs.resolve(fh)
	if err != nil {
		return nil, false, nil, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if n.fileType == v3.NF3Dir {
		return nil, false, fs.attrOf(n), fsal.New(fsal.IsDir, "read", nil)
	}
	n.atime = time.Now()
	attr := fs.attrOf(n)
	if offset >= uint64(len(n.data)) {
		return nil, true, attr, nil
	}
	end := offset + uint64(count)
	if end > uint64(len(n.data)) {
		end = uint64(len(n.data))
	}
	data := make([]byte, end-offset)
	copy(data, n.data[offset:end])
	eof := end == uint64(len(n.data))
	return data, eof, attr, nil
}

func (fs *FS) Write(_ context.Context, fh v3.FileHandle3, offset uint64, data []byte, stable v3.StableHow) (uint32, v3.StableHow, *v3.FileAttr3, *v3.FileAttr3, error) {
	n, err := fs.resolve(fh)
	if err != nil {
		return 0, 0, nil, nil, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	before := fs.attrOf(n)
	if n.fileType == v3.NF3Dir {
		return 0, 0, before, before, fsal.New(fsal.IsDir, "write", nil)
	}
	end := offset + uint64(len(data))
	if end > uint64(len(n.data)) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[offset:end], data)
	n.mtime = time.Now()
	n.ctime = n.mtime
	// memfs is fully synchronous, so every stable mode is satisfied
	// immediately; committed always equals the requested stability.
	return uint32(len(data)), stable, before, fs.attrOf(n), nil
}

func (fs *FS) Create(_ context.Context, dirFH v3.FileHandle3, name string, mode v3.CreateMode, attr *v3.Sattr3, verf []byte) (v3.FileHandle3, *v3.FileAttr3, *v3.FileAttr3, *v3.FileAttr3, error) {
	dir, err := fs.resolve(dirFH)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if dir.fileType != v3.NF3Dir {
		return nil, nil, nil, nil, fsal.New(fsal.NotDir, "create", nil)
	}
	dirBefore := fs.attrOf(dir)

	for _, c := range dir.children {
		if c.name != name {
			continue
		}
		existing := fs.nodes[c.id]
		switch mode {
		case v3.Guarded:
			return nil, nil, dirBefore, fs.attrOf(dir), fsal.New(fsal.Exists, "create", nil)
		case v3.Exclusive:
			if existing.fileType == v3.NF3Reg && len(existing.data) >= len(verf) && string(existing.data[:len(verf)]) == string(verf) {
				return fs.mint(existing.id), fs.attrOf(existing), dirBefore, fs.attrOf(dir), nil
			}
			return nil, nil, dirBefore, fs.attrOf(dir), fsal.New(fsal.Exists, "create", nil)
		default: // Unchecked: truncate and reuse
			existing.data = existing.data[:0]
			existing.mtime = time.Now()
			return fs.mint(existing.id), fs.attrOf(existing), dirBefore, fs.attrOf(dir), nil
		}
	}

	now := time.Now()
	id := fs.nextID
	fs.nextID++
	newNode := &node{id: id, fileType: v3.NF3Reg, mode: 0o644, parent: dir.id, atime: now, mtime: now, ctime: now}
	if mode == v3.Exclusive {
		newNode.data = append([]byte{}, verf...)
	} else if attr != nil {
		if attr.Mode != nil {
			newNode.mode = *attr.Mode
		}
	}
	fs.nodes[id] = newNode
	dir.children = append(dir.children, childEntry{name: name, id: id})
	dir.mtime = now
	return fs.mint(id), fs.attrOf(newNode), dirBefore, fs.attrOf(dir), nil
}

func (fs *FS) Readdir(_ context.Context, dirFH v3.FileHandle3, cookie uint64, cookieverf [8]byte, byteBudget uint32) ([]fsal.ReadDirEntry, [8]byte, bool, *v3.FileAttr3, error) {
	dir, err := fs.resolve(dirFH)
	if err != nil {
		return nil, [8]byte{}, false, nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if dir.fileType != v3.NF3Dir {
		return nil, [8]byte{}, false, fs.attrOf(dir), fsal.New(fsal.NotDir, "readdir", nil)
	}

	curVerf := dirCookieverf(dir)
	isStart := cookie == 0 && cookieverf == [8]byte{}
	if !isStart && cookieverf != curVerf {
		return nil, curVerf, false, fs.attrOf(dir), fsal.New(fsal.BadCookie, "readdir", fmt.Errorf("stale cookieverf"))
	}

	startIdx := 0
	if !isStart {
		found := false
		for i := range dir.children {
			if uint64(i)+1 == cookie {
				startIdx = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, curVerf, false, fs.attrOf(dir), fsal.New(fsal.BadCookie, "readdir", fmt.Errorf("unknown cookie %d", cookie))
		}
	}

	const perEntryOverhead = 24 // conservative fixed overhead per readdir entry on the wire
	if byteBudget > 0 && byteBudget < perEntryOverhead && startIdx < len(dir.children) {
		return nil, curVerf, false, fs.attrOf(dir), fsal.New(fsal.TooSmall, "readdir", fmt.Errorf("count too small for one entry"))
	}

	var entries []fsal.ReadDirEntry
	used := uint32(0)
	eof := true
	for i := startIdx; i < len(dir.children); i++ {
		c := dir.children[i]
		entrySize := uint32(perEntryOverhead + len(c.name))
		if byteBudget > 0 && used+entrySize > byteBudget && len(entries) > 0 {
			eof = false
			break
		}
		entries = append(entries, fsal.ReadDirEntry{
			FileID: c.id,
			Name:   c.name,
			Cookie: uint64(i) + 1,
		})
		used += entrySize
	}
	return entries, curVerf, eof, fs.attrOf(dir), nil
}

// dirCookieverf derives an 8-byte verifier from the directory's identity
// and mtime, per spec.md §4.7: any structural change to the directory
// (append/remove) advances mtime and therefore changes the verifier, which
// invalidates cookies minted before the change.
func dirCookieverf(n *node) [8]byte {
	var v [8]byte
	binary.BigEndian.PutUint32(v[:4], uint32(n.id))
	binary.BigEndian.PutUint32(v[4:], uint32(n.mtime.UnixNano()))
	return v
}

func (fs *FS) FsStat(_ context.Context, fh v3.FileHandle3) (*fsal.FsStat, *v3.FileAttr3, error) {
	n, err := fs.resolve(fh)
	if err != nil {
		return nil, nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	const totalBytes = 1 << 34 // a nominal 16GiB of advertised capacity
	return &fsal.FsStat{
		TotalBytes: totalBytes,
		FreeBytes:  totalBytes - uint64(fs.usedBytes()),
		AvailBytes: totalBytes - uint64(fs.usedBytes()),
		TotalFiles: 1 << 20,
		FreeFiles:  uint64(1<<20 - len(fs.nodes)),
		AvailFiles: uint64(1<<20 - len(fs.nodes)),
		InvarSec:   0,
	}, fs.attrOf(n), nil
}

func (fs *FS) usedBytes() int {
	total := 0
	for _, n := range fs.nodes {
		total += len(n.data)
	}
	return total
}

func (fs *FS) FsInfo(_ context.Context, fh v3.FileHandle3) (*fsal.FsInfo, *v3.FileAttr3, error) {
	n, err := fs.resolve(fh)
	if err != nil {
		return nil, nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	const transferSize = 65536
	return &fsal.FsInfo{
		ReadMax: transferSize, ReadPref: transferSize, ReadMult: 4096,
		WriteMax: transferSize, WritePref: transferSize, WriteMult: 4096,
		DirPref:       transferSize,
		MaxFileSize:   1 << 40,
		TimeDeltaSec:  1,
		TimeDeltaNsec: 0,
		Properties:    0x00, // memfs supports none of FSF3_LINK/SYMLINK/HOMOGENEOUS/CANSETTIME
	}, fs.attrOf(n), nil
}

func (fs *FS) PathConf(_ context.Context, fh v3.FileHandle3) (*fsal.PathConf, *v3.FileAttr3, error) {
	n, err := fs.resolve(fh)
	if err != nil {
		return nil, nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return &fsal.PathConf{
		LinkMax:         1,
		NameMax:         uint32(v3.MaxFilenameSize),
		NoTrunc:         true,
		ChownRestricted: true,
		CaseInsensitive: false,
		CasePreserving:  true,
	}, fs.attrOf(n), nil
}
