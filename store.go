// Package ipldstore implements component D: a mutable, path-separated
// key-value mapping layered over a content-addressable store (package
// cas), which transparently decides by key suffix whether a value is
// embedded inline in the frozen DAG-CBOR tree or stored externally as a
// raw block referenced by CID.
//
// It is grounded on original_source/ipldstore/ipldstore.py's IPLDStore:
// set_recursive/get_recursive/del_recursive become the tree-walking
// functions in recurse.go over the insertion-ordered treeNode defined in
// tree.go, and
// inline_objects becomes the inlineSuffixes set below.
package ipldstore

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"

	"github.com/d70-t/ipldstore/cas"
	"github.com/d70-t/ipldstore/dagcbor"
	"github.com/d70-t/ipldstore/errs"
	"github.com/d70-t/ipldstore/mf"
)

var log = logging.Logger("ipldstore")

// Re-exported sentinel errors, checkable with errors.Is.
var (
	ErrNotFound     = errs.NotFound
	ErrMultiRootCAR = errs.MultiRootCAR
	ErrInvalidInput = errs.InvalidInput
)

// inlineSuffixes is the closed registry from spec.md §6: a key whose
// final path segment is one of these is stored inline as decoded JSON
// rather than as an external raw block.
var inlineSuffixes = map[string]struct{}{
	".zarray":    {},
	".zgroup":    {},
	".zmetadata": {},
	".zattrs":    {},
}

func isInlineKey(segment string) bool {
	_, ok := inlineSuffixes[segment]
	return ok
}

// CAS is the capability set a Store needs from its backing content store:
// component B's full interface (byte-level get/put plus the higher-level
// value dispatch and CAR codec), satisfied by both *cas.MemoryStore and
// *cas.RemoteStore.
type CAS interface {
	cas.RawStore
	Get(c cid.Cid) (cas.Value, error)
	Put(v cas.Value) (cid.Cid, error)
	Contains(c cid.Cid) bool
	ToCAR(root cid.Cid, w io.Writer) (int64, error)
	ImportCAR(r io.Reader) ([]cid.Cid, error)
}

// Store is the hierarchical mapping described in spec.md §4.D.
type Store struct {
	store   CAS
	sep     string
	root    *treeNode
	rootCID *cid.Cid
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithSeparator overrides the path separator used to split keys.
// Defaults to "/".
func WithSeparator(sep string) Option {
	return func(s *Store) { s.sep = sep }
}

// WithCAS overrides the backing content-addressable store. Defaults to a
// fresh cas.MemoryStore.
func WithCAS(c CAS) Option {
	return func(s *Store) { s.store = c }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		sep:  "/",
		root: newBranchNode(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.store == nil {
		s.store = cas.NewMemoryStore()
	}
	return s
}

func (s *Store) splitKey(key string) []string {
	return strings.Split(key, s.sep)
}

// Set stores value under key. If key's final path segment is in the
// inline-suffix registry, value is JSON-decoded and embedded directly in
// the tree; otherwise it is put into the CAS as a raw block and the
// resulting CID is placed in the tree. Either way the cached root CID is
// invalidated.
func (s *Store) Set(key string, value []byte) error {
	parts := s.splitKey(key)
	last := parts[len(parts)-1]

	var leaf *treeNode
	if isInlineKey(last) {
		v, err := decodeInlineJSON(value)
		if err != nil {
			return errors.Wrapf(errs.InvalidInput, "key %q: invalid inline JSON: %s", key, err)
		}
		leaf = inlineLeafNode(v)
	} else {
		c, err := s.store.PutRaw(value, mf.Raw)
		if err != nil {
			return err
		}
		leaf = cidLeafNode(c)
	}

	setRecursive(s.root, parts, leaf)
	s.rootCID = nil
	return nil
}

// Get returns the byte payload stored under key: the inline value
// re-encoded as JSON, or the external block's bytes fetched from the CAS.
func (s *Store) Get(key string) ([]byte, error) {
	parts := s.splitKey(key)
	node, err := getRecursive(s.root, parts)
	if err != nil {
		return nil, errors.Wrapf(errs.NotFound, "key %q", key)
	}

	last := parts[len(parts)-1]
	if isInlineKey(last) {
		if node.kind != kindInlineLeaf {
			return nil, errors.Wrapf(errs.InvalidInput, "key %q: expected inline leaf", key)
		}
		return json.Marshal(node.inline)
	}
	if node.kind != kindCidLeaf {
		return nil, errors.Wrapf(errs.InvalidInput, "key %q: expected external leaf", key)
	}
	return s.store.GetRaw(node.link)
}

// Contains reports whether key resolves to a node in the tree: a leaf, or
// a branch that still holds entries.
func (s *Store) Contains(key string) bool {
	_, err := getRecursive(s.root, s.splitKey(key))
	return err == nil
}

// Delete removes key from the tree and prunes any ancestor sub-mapping
// that becomes empty as a result.
func (s *Store) Delete(key string) error {
	parts := s.splitKey(key)
	if err := deleteRecursive(s.root, parts); err != nil {
		return errors.Wrapf(errs.NotFound, "key %q", key)
	}
	s.rootCID = nil
	return nil
}

// Iterate returns every leaf path in the tree, depth-first pre-order,
// siblings visited in insertion order.
func (s *Store) Iterate() []string {
	var out []string
	iterateInto(s.root, "", s.sep, &out)
	return out
}

// Len returns the number of leaf paths Iterate would yield.
func (s *Store) Len() int {
	return len(s.Iterate())
}

// Freeze materializes the current tree as a single dag-cbor block and
// returns its CID, caching the result until the next mutation.
func (s *Store) Freeze() (cid.Cid, error) {
	if s.rootCID != nil {
		return *s.rootCID, nil
	}
	c, err := s.store.Put(s.root.toValue())
	if err != nil {
		return cid.Undef, err
	}
	s.rootCID = &c
	log.Debugf("froze store, root=%s", c)
	return c, nil
}

// Clear empties the tree and invalidates the cached root.
func (s *Store) Clear() {
	s.root = newBranchNode()
	s.rootCID = nil
}

// ToCAR freezes the store and writes a CAR v1 stream rooted at the result
// to w, returning the number of bytes written.
func (s *Store) ToCAR(w io.Writer) (int64, error) {
	root, err := s.Freeze()
	if err != nil {
		return 0, err
	}
	return s.store.ToCAR(root, w)
}

// ToCARBytes is a convenience wrapper around ToCAR for callers that want
// the stream as a byte slice rather than writing to an io.Writer.
func (s *Store) ToCARBytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.ToCAR(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ImportCAR reads a CAR v1 stream from r into the backing CAS and adopts
// its single root as this store's new state. It fails with
// ErrMultiRootCAR if the stream does not have exactly one root.
func (s *Store) ImportCAR(r io.Reader) error {
	roots, err := s.store.ImportCAR(r)
	if err != nil {
		return err
	}
	if len(roots) != 1 {
		return errors.Wrapf(errs.MultiRootCAR, "got %d roots", len(roots))
	}
	return s.SetRoot(roots[0])
}

// FromCAR creates a new Store and imports a CAR v1 stream into it.
func FromCAR(r io.Reader, opts ...Option) (*Store, error) {
	s := New(opts...)
	if err := s.ImportCAR(r); err != nil {
		return nil, err
	}
	return s, nil
}

// SetRoot adopts c as the store's root: c must already be present in the
// backing CAS and must decode to a mapping.
func (s *Store) SetRoot(c cid.Cid) error {
	if !s.store.Contains(c) {
		return errors.Wrapf(errs.NotFound, "root CID %s", c)
	}
	v, err := s.store.Get(c)
	if err != nil {
		return err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return errors.Wrapf(errs.InvalidInput, "root CID %s does not decode to a mapping", c)
	}

	root := newBranchNode()
	for _, k := range dagcbor.SortedKeys(m) {
		child, err := decodeChild(k, m[k])
		if err != nil {
			return err
		}
		root.branch.set(k, child)
	}
	s.root = root
	s.rootCID = &c
	return nil
}

// decodeChild rebuilds a treeNode for the value stored under path segment
// key, dispatching on the same inline-suffix rule Set uses so that a
// reloaded tree's shape matches the tree that produced it. Children are
// visited in dagcbor's canonical key order (the order they were actually
// written in), not an arbitrary alphabetical one, so that a frozen-then-
// reloaded branch iterates in the same order every time it is decoded.
func decodeChild(key string, v any) (*treeNode, error) {
	if isInlineKey(key) {
		return inlineLeafNode(v), nil
	}
	switch t := v.(type) {
	case cid.Cid:
		return cidLeafNode(t), nil
	case map[string]any:
		branch := newBranchNode()
		for _, k := range dagcbor.SortedKeys(t) {
			child, err := decodeChild(k, t[k])
			if err != nil {
				return nil, err
			}
			branch.branch.set(k, child)
		}
		return branch, nil
	default:
		return nil, errors.Wrapf(errs.InvalidInput, "key %q: unexpected frozen value of type %T", key, v)
	}
}
