// Package mf implements component A of the store: parsing and emitting
// content identifiers (CIDs) built from a multicodec and a multihash, plus
// the digest functions those CIDs are built on.
//
// ParseBinary is written by hand, one varint at a time, the way
// ipldstore/car.py's decode_raw_car_block does it in the original
// implementation this package was ported from — the CIDv0 prefix is
// sniffed before any varint is consumed, and the CIDv1 field sequence
// (version, codec, hash-code, digest-len, digest) is read as four chained
// varints followed by a fixed-length slice, with no intermediate copies.
package mf

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
	"github.com/multiformats/go-varint"
	"github.com/pkg/errors"

	"github.com/d70-t/ipldstore/errs"
)

// cidV0Prefix is the two-byte literal that begins every CIDv0: sha2-256
// multihash code 0x12, digest length 0x20 (32 bytes).
var cidV0Prefix = [2]byte{0x12, 0x20}

// Parse decodes a CID from its textual (multibase-prefixed) form.
func Parse(text string) (cid.Cid, error) {
	c, err := cid.Decode(text)
	if err != nil {
		return cid.Undef, errors.Wrapf(errs.InvalidInput, "parse CID %q: %s", text, err)
	}
	return c, nil
}

// ParseBinary reads a single CID off the front of buf and returns it along
// with the unconsumed remainder of buf. It accepts both the fixed 34-byte
// CIDv0 literal and the varint-framed CIDv1 form; any other version fails.
func ParseBinary(buf []byte) (cid.Cid, []byte, error) {
	if len(buf) >= 2 && buf[0] == cidV0Prefix[0] && buf[1] == cidV0Prefix[1] {
		if len(buf) < 34 {
			return cid.Undef, nil, errors.Wrap(errs.InvalidInput, "truncated CIDv0")
		}
		digest := buf[2:34]
		mh, err := multihash.Encode(digest, multihash.SHA2_256)
		if err != nil {
			return cid.Undef, nil, errors.Wrap(err, "encode CIDv0 multihash")
		}
		return cid.NewCidV0(mh), buf[34:], nil
	}

	version, n0, err := varint.FromUvarint(buf)
	if err != nil {
		return cid.Undef, nil, errors.Wrap(errs.InvalidInput, "read CID version varint")
	}
	if version != 1 {
		return cid.Undef, nil, errors.Wrapf(errs.UnsupportedCIDVersion, "CIDv%d", version)
	}
	rest := buf[n0:]

	codec, n, err := varint.FromUvarint(rest)
	if err != nil {
		return cid.Undef, nil, errors.Wrap(errs.InvalidInput, "read CID codec varint")
	}
	rest = rest[n:]

	hashCode, n, err := varint.FromUvarint(rest)
	if err != nil {
		return cid.Undef, nil, errors.Wrap(errs.InvalidInput, "read CID hash-code varint")
	}
	if _, known := multihash.Codes[hashCode]; !known {
		return cid.Undef, nil, errors.Wrapf(errs.UnsupportedHash, "hash code 0x%x", hashCode)
	}
	rest = rest[n:]

	digestLen, n, err := varint.FromUvarint(rest)
	if err != nil {
		return cid.Undef, nil, errors.Wrap(errs.InvalidInput, "read CID digest-length varint")
	}
	rest = rest[n:]

	if uint64(len(rest)) < digestLen {
		return cid.Undef, nil, errors.Wrap(errs.InvalidInput, "truncated CID digest")
	}
	digest := rest[:digestLen]
	rest = rest[digestLen:]

	mh, err := multihash.Encode(digest, hashCode)
	if err != nil {
		return cid.Undef, nil, errors.Wrapf(errs.UnsupportedHash, "hash code 0x%x: %s", hashCode, err)
	}

	return cid.NewCidV1(codec, mh), rest, nil
}

// ToBytes returns the binary form of a CID: v1 = varint(version) ||
// varint(codec) || varint(hash-code) || varint(digest-len) || digest; v0
// is the 34-byte literal 0x12 0x20 || digest.
func ToBytes(c cid.Cid) []byte {
	return c.Bytes()
}

// ToString renders a CID in its textual, multibase-prefixed form. If base
// is omitted, go-cid's default is used: base58btc for v0, base32 for v1.
func ToString(c cid.Cid, base ...multibase.Encoding) (string, error) {
	if len(base) == 0 {
		return c.String(), nil
	}
	return c.StringOfBase(base[0])
}

// Hash computes a multihash of data using the given multihash code.
func Hash(code uint64, data []byte) (multihash.Multihash, error) {
	mh, err := multihash.Sum(data, code, -1)
	if err != nil {
		return nil, errors.Wrapf(errs.UnsupportedHash, "hash code 0x%x: %s", code, err)
	}
	return mh, nil
}

// Verify reports whether data hashes, under c's hash function, to c's
// digest.
func Verify(c cid.Cid, data []byte) bool {
	decoded, err := multihash.Decode([]byte(c.Hash()))
	if err != nil {
		return false
	}
	mh, err := Hash(decoded.Code, data)
	if err != nil {
		return false
	}
	return string(mh) == string(c.Hash())
}
