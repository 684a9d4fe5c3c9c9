package dagcbor

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/d70-t/ipldstore/errs"
	"github.com/d70-t/ipldstore/mf"
)

// Decode parses a single dag-cbor value from buf. It is lenient: any item
// built from the major types this package understands is accepted,
// canonical or not, except half-precision floats, which are rejected. Tag 42 is the only tag accepted; any other tag is an
// error, as is an indefinite-length item.
func Decode(buf []byte) (Value, error) {
	v, rest, err := decodeValue(buf)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.Wrap(errs.InvalidInput, "dagcbor: trailing bytes after value")
	}
	return v, nil
}

func decodeValue(buf []byte) (Value, []byte, error) {
	if len(buf) == 0 {
		return nil, nil, errors.Wrap(errs.InvalidInput, "dagcbor: unexpected end of input")
	}

	major := buf[0] & 0xe0
	info := buf[0] & 0x1f
	buf = buf[1:]

	switch major {
	case majorUint:
		n, rest, err := readArg(info, buf)
		if err != nil {
			return nil, nil, err
		}
		return int64(n), rest, nil
	case majorNeg:
		n, rest, err := readArg(info, buf)
		if err != nil {
			return nil, nil, err
		}
		return -1 - int64(n), rest, nil
	case majorByte:
		n, rest, err := readArg(info, buf)
		if err != nil {
			return nil, nil, err
		}
		if uint64(len(rest)) < n {
			return nil, nil, errors.Wrap(errs.InvalidInput, "dagcbor: truncated byte string")
		}
		return append([]byte{}, rest[:n]...), rest[n:], nil
	case majorText:
		n, rest, err := readArg(info, buf)
		if err != nil {
			return nil, nil, err
		}
		if uint64(len(rest)) < n {
			return nil, nil, errors.Wrap(errs.InvalidInput, "dagcbor: truncated text string")
		}
		return string(rest[:n]), rest[n:], nil
	case majorList:
		n, rest, err := readArg(info, buf)
		if err != nil {
			return nil, nil, err
		}
		out := make([]any, 0, n)
		for i := uint64(0); i < n; i++ {
			var item Value
			item, rest, err = decodeValue(rest)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, item)
		}
		return out, rest, nil
	case majorMap:
		n, rest, err := readArg(info, buf)
		if err != nil {
			return nil, nil, err
		}
		out := make(map[string]any, n)
		for i := uint64(0); i < n; i++ {
			var key Value
			key, rest, err = decodeValue(rest)
			if err != nil {
				return nil, nil, err
			}
			ks, ok := key.(string)
			if !ok {
				return nil, nil, errors.Wrap(errs.InvalidInput, "dagcbor: map key is not a text string")
			}
			var val Value
			val, rest, err = decodeValue(rest)
			if err != nil {
				return nil, nil, err
			}
			out[ks] = val
		}
		return out, rest, nil
	case majorTag:
		n, rest, err := readArg(info, buf)
		if err != nil {
			return nil, nil, err
		}
		if n != LinkTag {
			return nil, nil, errors.Wrapf(errs.InvalidInput, "dagcbor: unsupported CBOR tag %d", n)
		}
		var payload Value
		payload, rest, err = decodeValue(rest)
		if err != nil {
			return nil, nil, err
		}
		raw, ok := payload.([]byte)
		if !ok || len(raw) == 0 || raw[0] != linkPrefix {
			return nil, nil, errors.Wrap(errs.InvalidInput, "dagcbor: malformed CID link")
		}
		c, tail, err := mf.ParseBinary(raw[1:])
		if err != nil {
			return nil, nil, err
		}
		if len(tail) != 0 {
			return nil, nil, errors.Wrap(errs.InvalidInput, "dagcbor: trailing bytes in CID link")
		}
		return c, rest, nil
	case majorSimp:
		switch info {
		case 20:
			return false, buf, nil
		case 21:
			return true, buf, nil
		case 22:
			return nil, buf, nil
		case 25:
			if len(buf) < 2 {
				return nil, nil, errors.Wrap(errs.InvalidInput, "dagcbor: truncated float16")
			}
			return nil, nil, errors.Wrap(errs.InvalidInput, "dagcbor: float16 is not supported")
		case 26:
			if len(buf) < 4 {
				return nil, nil, errors.Wrap(errs.InvalidInput, "dagcbor: truncated float32")
			}
			bits := binary.BigEndian.Uint32(buf[:4])
			return float64(math.Float32frombits(bits)), buf[4:], nil
		case 27:
			if len(buf) < 8 {
				return nil, nil, errors.Wrap(errs.InvalidInput, "dagcbor: truncated float64")
			}
			bits := binary.BigEndian.Uint64(buf[:8])
			return math.Float64frombits(bits), buf[8:], nil
		default:
			return nil, nil, errors.Wrapf(errs.InvalidInput, "dagcbor: unsupported simple value %d", info)
		}
	default:
		return nil, nil, errors.Wrap(errs.InvalidInput, "dagcbor: unreachable major type")
	}
}

// readArg decodes a CBOR argument, rejecting indefinite-length items
// (additional info 31), which spec.md §3 disallows.
func readArg(info byte, buf []byte) (uint64, []byte, error) {
	switch {
	case info < 24:
		return uint64(info), buf, nil
	case info == 24:
		if len(buf) < 1 {
			return 0, nil, errors.Wrap(errs.InvalidInput, "dagcbor: truncated argument")
		}
		return uint64(buf[0]), buf[1:], nil
	case info == 25:
		if len(buf) < 2 {
			return 0, nil, errors.Wrap(errs.InvalidInput, "dagcbor: truncated argument")
		}
		return uint64(binary.BigEndian.Uint16(buf[:2])), buf[2:], nil
	case info == 26:
		if len(buf) < 4 {
			return 0, nil, errors.Wrap(errs.InvalidInput, "dagcbor: truncated argument")
		}
		return uint64(binary.BigEndian.Uint32(buf[:4])), buf[4:], nil
	case info == 27:
		if len(buf) < 8 {
			return 0, nil, errors.Wrap(errs.InvalidInput, "dagcbor: truncated argument")
		}
		return binary.BigEndian.Uint64(buf[:8]), buf[8:], nil
	case info == 31:
		return 0, nil, errors.Wrap(errs.InvalidInput, "dagcbor: indefinite-length items are not supported")
	default:
		return 0, nil, errors.Wrapf(errs.InvalidInput, "dagcbor: reserved additional info %d", info)
	}
}
