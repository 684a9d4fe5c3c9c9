package dagcbor

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/d70-t/ipldstore/errs"
)

const (
	majorUint byte = 0 << 5
	majorNeg  byte = 1 << 5
	majorByte byte = 2 << 5
	majorText byte = 3 << 5
	majorList byte = 4 << 5
	majorMap  byte = 5 << 5
	majorTag  byte = 6 << 5
	majorSimp byte = 7 << 5
)

// Encode produces the canonical dag-cbor encoding of v.
func Encode(v Value) ([]byte, error) {
	var buf []byte
	buf, err := appendValue(buf, v)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func appendValue(buf []byte, v Value) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return append(buf, 0xf6), nil
	case bool:
		if t {
			return append(buf, 0xf5), nil
		}
		return append(buf, 0xf4), nil
	case int:
		return appendInt(buf, int64(t)), nil
	case int64:
		return appendInt(buf, t), nil
	case uint64:
		return appendHead(buf, majorUint, t), nil
	case float64:
		return appendFloat(buf, t), nil
	case float32:
		return appendFloat(buf, float64(t)), nil
	case []byte:
		buf = appendHead(buf, majorByte, uint64(len(t)))
		return append(buf, t...), nil
	case string:
		buf = appendHead(buf, majorText, uint64(len(t)))
		return append(buf, t...), nil
	case []any:
		buf = appendHead(buf, majorList, uint64(len(t)))
		for _, item := range t {
			var err error
			buf, err = appendValue(buf, item)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case map[string]any:
		return appendMap(buf, t)
	case cid.Cid:
		return appendLink(buf, t)
	default:
		return nil, errors.Wrapf(errs.InvalidInput, "dagcbor: cannot encode value of type %T", v)
	}
}

func appendInt(buf []byte, n int64) []byte {
	if n >= 0 {
		return appendHead(buf, majorUint, uint64(n))
	}
	return appendHead(buf, majorNeg, uint64(-1-n))
}

func appendFloat(buf []byte, f float64) []byte {
	buf = append(buf, majorSimp|27)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
	return append(buf, b[:]...)
}

func appendLink(buf []byte, c cid.Cid) ([]byte, error) {
	cb := c.Bytes()
	payload := make([]byte, 0, len(cb)+1)
	payload = append(payload, linkPrefix)
	payload = append(payload, cb...)

	buf = appendHead(buf, majorTag, LinkTag)
	buf = appendHead(buf, majorByte, uint64(len(payload)))
	return append(buf, payload...), nil
}

// appendMap writes m's entries in canonical order: sorted by key byte
// length, then lexicographically on the UTF-8 bytes.
func appendMap(buf []byte, m map[string]any) ([]byte, error) {
	keys := SortedKeys(m)
	buf = appendHead(buf, majorMap, uint64(len(keys)))
	for _, k := range keys {
		buf = appendHead(buf, majorText, uint64(len(k)))
		buf = append(buf, k...)
		var err error
		buf, err = appendValue(buf, m[k])
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// SortedKeys returns m's keys in dag-cbor's canonical map order: sorted by
// key byte length, then lexicographically on the UTF-8 bytes. This is the
// same order appendMap writes entries in, exposed so that callers
// reconstructing a decoded map (e.g. the root package's tree rebuild) can
// walk it the way it was actually encoded, rather than inventing an
// unrelated order of their own.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return keys
}

// appendHead writes a CBOR major-type/argument head using the shortest
// encoding available for arg, per the canonical CBOR rules spec.md §3
// requires (no redundant longer forms).
func appendHead(buf []byte, major byte, arg uint64) []byte {
	switch {
	case arg < 24:
		return append(buf, major|byte(arg))
	case arg <= math.MaxUint8:
		return append(buf, major|24, byte(arg))
	case arg <= math.MaxUint16:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(arg))
		return append(append(buf, major|25), b[:]...)
	case arg <= math.MaxUint32:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(arg))
		return append(append(buf, major|26), b[:]...)
	default:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], arg)
		return append(append(buf, major|27), b[:]...)
	}
}
