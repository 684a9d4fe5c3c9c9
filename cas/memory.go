package cas

import (
	"io"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/pkg/errors"

	"github.com/d70-t/ipldstore/errs"
	"github.com/d70-t/ipldstore/mf"
)

// MemoryStore is an in-memory content-addressable store, keyed by the
// normalized (v1, default-base) textual form of a CID — mirroring
// original_source/ipldstore/contentstore.py's MappingCAStore.
type MemoryStore struct {
	mu          sync.RWMutex
	blocks      map[string][]byte
	defaultHash uint64
	defaultBase multibase.Encoding
}

// MemoryOption configures a MemoryStore at construction time.
type MemoryOption func(*MemoryStore)

// WithDefaultHash sets the multihash code new blocks are hashed with.
// Defaults to sha2-256.
func WithDefaultHash(code uint64) MemoryOption {
	return func(m *MemoryStore) { m.defaultHash = code }
}

// WithDefaultBase sets the multibase used for the store's internal CID
// keys. Defaults to base32.
func WithDefaultBase(base multibase.Encoding) MemoryOption {
	return func(m *MemoryStore) { m.defaultBase = base }
}

// NewMemoryStore creates an empty in-memory CAS.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		blocks:      make(map[string][]byte),
		defaultHash: mf.Sha256,
		defaultBase: multibase.Base32,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// normalize returns the textual key used to index c, independent of the
// base the caller's CID happens to carry — CID identity is version+codec+
// multihash, not base (spec.md §9).
func (m *MemoryStore) normalize(c cid.Cid) (string, error) {
	v1 := cid.NewCidV1(c.Type(), c.Hash())
	return mf.ToString(v1, m.defaultBase)
}

// GetRaw implements RawStore.
func (m *MemoryStore) GetRaw(c cid.Cid) ([]byte, error) {
	key, err := m.normalize(c)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blocks[key]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "CID %s", c)
	}
	return data, nil
}

// PutRaw implements RawStore.
func (m *MemoryStore) PutRaw(raw []byte, codec uint64) (cid.Cid, error) {
	mh, err := mf.Hash(m.defaultHash, raw)
	if err != nil {
		return cid.Undef, err
	}
	c := cid.NewCidV1(codec, mh)
	key, err := m.normalize(c)
	if err != nil {
		return cid.Undef, err
	}

	m.mu.Lock()
	m.blocks[key] = raw
	m.mu.Unlock()

	return c, nil
}

// Get implements the Get(cid)->Value dispatch described in spec.md §4.B.
func (m *MemoryStore) Get(c cid.Cid) (Value, error) { return Get(m, c) }

// Put implements the Put(value)->cid dispatch described in spec.md §4.B.
func (m *MemoryStore) Put(v Value) (cid.Cid, error) { return Put(m, v) }

// Contains reports whether c is present in the store.
func (m *MemoryStore) Contains(c cid.Cid) bool { return Contains(m, c) }

// ToCAR writes the CAR v1 stream rooted at root to w.
func (m *MemoryStore) ToCAR(root cid.Cid, w io.Writer) (int64, error) { return ToCAR(m, root, w) }

// ImportCAR reads a CAR v1 stream from r into the store and returns its
// roots.
func (m *MemoryStore) ImportCAR(r io.Reader) ([]cid.Cid, error) { return ImportCAR(m, r) }
