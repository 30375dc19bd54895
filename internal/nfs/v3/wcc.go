package v3

import (
	"bytes"

	"github.com/nfsd3/nfsd3/internal/xdr"
)

// WccData is the wcc_data pair (RFC 1813 §2.6) attached to every mutating
// reply: attributes captured immediately before and after the operation, so
// a client can detect a racing third-party modification. Both halves are
// independently optional.
type WccData struct {
	Before *PreOpAttr
	After  *FileAttr3
}

// Encode writes before then after, in that order, per RFC 1813 — always two
// discriminated unions, never omitted even when both are absent.
func (w *WccData) Encode(buf *bytes.Buffer) error {
	if err := EncodePreOpAttr(buf, w.Before); err != nil {
		return err
	}
	return EncodePostOpAttr(buf, w.After)
}

// DecodeWccData decodes a wcc_data pair.
func DecodeWccData(r *xdr.Reader) (*WccData, error) {
	before, err := DecodePreOpAttr(r)
	if err != nil {
		return nil, err
	}
	after, err := DecodePostOpAttr(r)
	if err != nil {
		return nil, err
	}
	return &WccData{Before: before, After: after}, nil
}
