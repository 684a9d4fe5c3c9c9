package dagcbor_test

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"github.com/d70-t/ipldstore/dagcbor"
	"github.com/d70-t/ipldstore/mf"
)

func sampleCID(t *testing.T, data string) cid.Cid {
	t.Helper()
	mh, err := mf.Hash(mf.Sha256, []byte(data))
	require.NoError(t, err)
	return cid.NewCidV1(mf.Raw, mh)
}

func roundTrip(t *testing.T, v dagcbor.Value) dagcbor.Value {
	t.Helper()
	buf, err := dagcbor.Encode(v)
	require.NoError(t, err)
	decoded, err := dagcbor.Decode(buf)
	require.NoError(t, err)
	return decoded
}

// S6 from spec.md §8.
func TestRoundTripPrimitives(t *testing.T) {
	c := sampleCID(t, "hallo")

	cases := []dagcbor.Value{
		[]byte("hallo"),
		"hallo",
		map[string]any{"a": int64(1)},
		[]any{int64(1), int64(2), int64(3)},
		int64(1),
		1.34,
		true,
		false,
		nil,
		c,
		[]any{c},
		map[string]any{"foo": c},
	}

	for _, v := range cases {
		require.Equal(t, v, roundTrip(t, v))
	}
}

func TestCanonicalMapKeyOrdering(t *testing.T) {
	v := map[string]any{
		"bb": int64(2),
		"a":  int64(1),
		"c":  int64(3),
	}
	buf, err := dagcbor.Encode(v)
	require.NoError(t, err)

	// Key "a" (len 1) and "c" (len 1) sort before "bb" (len 2); "a" < "c"
	// lexicographically.
	wantOrder := []byte{
		0xa3,             // map(3)
		0x61, 'a', 0x01, // "a": 1
		0x61, 'c', 0x03, // "c": 3
		0x62, 'b', 'b', 0x02, // "bb": 2
	}
	require.Equal(t, wantOrder, buf)
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	// tag(1) wrapping a small uint, CBOR: 0xc1 0x00
	_, err := dagcbor.Decode([]byte{0xc1, 0x00})
	require.Error(t, err)
}

func TestLinks(t *testing.T) {
	c1 := sampleCID(t, "one")
	c2 := sampleCID(t, "two")
	v := map[string]any{
		"a": c1,
		"b": []any{c2, "not a link"},
	}
	links := dagcbor.Links(v)
	require.Len(t, links, 2)
}
