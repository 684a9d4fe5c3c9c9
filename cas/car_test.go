package cas_test

import (
	"bytes"
	"testing"

	"github.com/multiformats/go-varint"
	"github.com/stretchr/testify/require"

	"github.com/d70-t/ipldstore/cas"
)

// property 4 from spec.md §8: CAR round-trip through a fresh store.
func TestCARRoundTrip(t *testing.T) {
	s := cas.NewMemoryStore()
	leaf1, err := s.Put([]byte("chunk one"))
	require.NoError(t, err)
	leaf2, err := s.Put([]byte("chunk two"))
	require.NoError(t, err)
	root, err := s.Put(map[string]any{
		"a": leaf1,
		"b": map[string]any{"c": leaf2},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := s.ToCAR(root, &buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)

	s2 := cas.NewMemoryStore()
	roots, err := s2.ImportCAR(&buf)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.True(t, roots[0].Equals(root))

	want, err := s.Get(root)
	require.NoError(t, err)
	got, err := s2.Get(root)
	require.NoError(t, err)
	require.Equal(t, want, got)

	wantLeaf, err := s.Get(leaf1)
	require.NoError(t, err)
	gotLeaf, err := s2.Get(leaf1)
	require.NoError(t, err)
	require.Equal(t, wantLeaf, gotLeaf)
}

func TestCARSharedSubDAGEmittedOnce(t *testing.T) {
	s := cas.NewMemoryStore()
	shared, err := s.Put([]byte("shared chunk"))
	require.NoError(t, err)
	root, err := s.Put(map[string]any{"a": shared, "b": shared})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = s.ToCAR(root, &buf)
	require.NoError(t, err)

	// Two blocks expected: root and the single shared leaf, not three.
	rest := buf.Bytes()
	headerLen, n, err := varint.FromUvarint(rest)
	require.NoError(t, err)
	rest = rest[n+int(headerLen):]
	sections := 0
	for len(rest) > 0 {
		size, n, err := varint.FromUvarint(rest)
		require.NoError(t, err)
		rest = rest[n+int(size):]
		sections++
	}
	require.Equal(t, 2, sections)

	s2 := cas.NewMemoryStore()
	imported := bytes.NewReader(buf.Bytes())
	_, err = s2.ImportCAR(imported)
	require.NoError(t, err)
}

func TestImportCARCorruptBlock(t *testing.T) {
	s := cas.NewMemoryStore()
	root, err := s.Put([]byte("original"))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = s.ToCAR(root, &buf)
	require.NoError(t, err)

	corrupted := buf.Bytes()
	// Flip a byte in the block payload (well past the header+CID prefix)
	// so the CID no longer verifies against the data.
	corrupted[len(corrupted)-1] ^= 0xFF

	s2 := cas.NewMemoryStore()
	_, err = s2.ImportCAR(bytes.NewReader(corrupted))
	require.ErrorIs(t, err, cas.ErrCorruptCAR)
}

func TestImportCARv2MagicFails(t *testing.T) {
	// {"version": 2} encoded as dag-cbor, length-prefixed: the CARv2
	// pragma from spec.md §8's boundary cases.
	magic := []byte{0x0a, 0xa1, 0x67, 'v', 'e', 'r', 's', 'i', 'o', 'n', 0x02}

	s := cas.NewMemoryStore()
	_, err := s.ImportCAR(bytes.NewReader(magic))
	require.ErrorIs(t, err, cas.ErrMalformedCAR)
}
