// Package dagcbor implements component C: a deterministic CBOR codec for
// the recursive value type described in spec.md §3/§4.C — null, bool,
// integer, float, byte-string, text-string, ordered list, string-keyed
// map, and CID-link — with CID links carried under CBOR tag 42.
//
// There is no fixed schema backing this codec: a Value is any of
//
//	nil | bool | int64 | float64 | []byte | string | []any | map[string]any | cid.Cid
//
// Encode always produces the canonical form (shortest-form integers, maps
// sorted by key length then lexicographic UTF-8 bytes, no indefinite-length
// items). Decode is lenient: it accepts any valid CBOR item built from the
// above major types and does not reject non-canonical input, with one
// exception: half-precision floats are rejected.
package dagcbor

import "github.com/ipfs/go-cid"

// Value is the Go representation of a dag-cbor value. It is not a distinct
// type so that callers can build literals with ordinary Go composite
// literals; see the package doc comment for the set of concrete types this
// package understands.
type Value = any

// LinkTag is the CBOR tag that marks a byte-string as a CID link.
const LinkTag = 42

// linkPrefix is the single byte that precedes a CID's binary form inside a
// tag-42 byte string (an "identity" multibase marker, per the dag-cbor
// spec).
const linkPrefix = 0x00

// IsLink reports whether v is a CID link.
func IsLink(v Value) bool {
	_, ok := v.(cid.Cid)
	return ok
}

// Links returns every CID embedded in v, visited in document order
// (component B's iter_links).
func Links(v Value) []cid.Cid {
	var out []cid.Cid
	collectLinks(v, &out)
	return out
}

func collectLinks(v Value, out *[]cid.Cid) {
	switch t := v.(type) {
	case cid.Cid:
		*out = append(*out, t)
	case []any:
		for _, item := range t {
			collectLinks(item, out)
		}
	case map[string]any:
		for _, k := range SortedKeys(t) {
			collectLinks(t[k], out)
		}
	}
}
