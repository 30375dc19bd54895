// Package handle mints and validates the opaque file handles the NFS core
// hands out to clients (spec.md §3, "File handle"). The core never
// interprets a handle's contents beyond length and authenticity; an FSAL
// backend's own identifier (e.g. an inode number or a path digest) is
// wrapped here with a keyed MAC so the server can distinguish a handle it
// never minted (BADHANDLE) from one that once resolved but no longer does
// (STALE) — that distinction is the FSAL's to make by checking whether the
// unwrapped identifier still resolves.
package handle

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	v3 "github.com/nfsd3/nfsd3/internal/nfs/v3"
)

const macSize = 16

// Minter wraps arbitrary backend-chosen identifiers into authenticated
// opaque handles. One Minter is created per server instance with a random
// key, so handles minted by a previous process instance fail authenticity
// on a fresh boot — consistent with spec.md §9's Open Question decision
// that the reference backend does not persist handles across restart.
type Minter struct {
	key [32]byte
}

// NewMinter generates a fresh random key.
func NewMinter() (*Minter, error) {
	var m Minter
	if _, err := rand.Read(m.key[:]); err != nil {
		return nil, fmt.Errorf("handle: generate key: %w", err)
	}
	return &m, nil
}

// Mint wraps id (an FSAL-internal identifier, opaque to this package) into
// a handle no longer than v3.MaxFileHandleSize: length-prefixed id followed
// by a truncated HMAC-SHA256 over it.
func (m *Minter) Mint(id []byte) (v3.FileHandle3, error) {
	if len(id)+4+macSize > v3.MaxFileHandleSize {
		return nil, fmt.Errorf("handle: backend id of %d bytes too large to mint", len(id))
	}
	buf := make([]byte, 4+len(id)+macSize)
	binary.BigEndian.PutUint32(buf[:4], uint32(len(id)))
	copy(buf[4:4+len(id)], id)

	mac := m.mac(buf[:4+len(id)])
	copy(buf[4+len(id):], mac)
	return v3.FileHandle3(buf), nil
}

// Unwrap validates fh's authenticity and returns the backend identifier it
// encodes. A handle that is too short, whose length prefix is inconsistent,
// or whose MAC does not verify is forged or corrupt — the caller should
// answer NFS3ERR_BADHANDLE, never STALE, since the server never minted it.
func (m *Minter) Unwrap(fh v3.FileHandle3) ([]byte, error) {
	if len(fh) < 4+macSize {
		return nil, fmt.Errorf("handle: too short")
	}
	idLen := binary.BigEndian.Uint32(fh[:4])
	want := 4 + int(idLen) + macSize
	if want != len(fh) {
		return nil, fmt.Errorf("handle: length mismatch")
	}
	id := fh[4 : 4+idLen]
	gotMAC := fh[4+idLen:]
	wantMAC := m.mac(fh[:4+idLen])
	if !hmac.Equal(gotMAC, wantMAC) {
		return nil, fmt.Errorf("handle: authenticity check failed")
	}
	return id, nil
}

func (m *Minter) mac(data []byte) []byte {
	h := hmac.New(sha256.New, m.key[:])
	h.Write(data)
	return h.Sum(nil)[:macSize]
}
