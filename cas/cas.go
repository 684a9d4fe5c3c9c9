// Package cas implements component B: a content-addressed store keyed by
// CID, plus the CAR v1 codec layered over it. It mirrors the shape of
// original_source/ipldstore/contentstore.py's ContentAddressableStore
// abstract base — concrete stores (MemoryStore, RemoteStore) implement
// only GetRaw/PutRaw, and Get/Put/Contains/ToCAR/ImportCAR are generic
// functions built on top of that minimal surface, the same way the
// teacher's util package exposes free functions over io.Reader/io.Writer
// rather than requiring every caller to implement framing itself.
package cas

import (
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"

	"github.com/d70-t/ipldstore/dagcbor"
	"github.com/d70-t/ipldstore/errs"
	"github.com/d70-t/ipldstore/mf"
)

var log = logging.Logger("ipldstore/cas")

// Value is the union of payload types a CAS can store: opaque bytes, or a
// dag-cbor value (which may itself embed CID links).
type Value = dagcbor.Value

// RawStore is the minimal capability a content-addressable store must
// provide: byte-level get/put keyed by CID.
type RawStore interface {
	// GetRaw returns the bytes stored under c, or a wrapped errs.NotFound
	// if c is unknown.
	GetRaw(c cid.Cid) ([]byte, error)

	// PutRaw hashes raw with the store's default hash, builds a CIDv1
	// with the given codec, inserts it idempotently, and returns the CID.
	PutRaw(raw []byte, codec uint64) (cid.Cid, error)
}

// Re-export the sentinel errors callers of this package are expected to
// check with errors.Is.
var (
	ErrNotFound         = errs.NotFound
	ErrUnsupportedCodec = errs.UnsupportedCodec
	ErrMalformedCAR     = errs.MalformedCAR
	ErrCorruptCAR       = errs.CorruptCAR
	ErrTransportError   = errs.TransportError
)

// Get dispatches on cid.Codec(): raw decodes to bytes, dag-cbor decodes to
// a dagcbor.Value. Any other codec fails with ErrUnsupportedCodec.
func Get(s RawStore, c cid.Cid) (Value, error) {
	raw, err := s.GetRaw(c)
	if err != nil {
		return nil, err
	}
	switch c.Type() {
	case mf.Raw:
		return raw, nil
	case mf.DagCbor:
		return dagcbor.Decode(raw)
	default:
		return nil, errors.Wrapf(errs.UnsupportedCodec, "codec 0x%x", c.Type())
	}
}

// Put stores v: raw bytes go through PutRaw directly with the raw codec,
// anything else is dag-cbor encoded first.
func Put(s RawStore, v Value) (cid.Cid, error) {
	if raw, ok := v.([]byte); ok {
		return s.PutRaw(raw, mf.Raw)
	}
	encoded, err := dagcbor.Encode(v)
	if err != nil {
		return cid.Undef, err
	}
	return s.PutRaw(encoded, mf.DagCbor)
}

// Contains reports whether c is present in s.
func Contains(s RawStore, c cid.Cid) bool {
	_, err := s.GetRaw(c)
	return err == nil
}
