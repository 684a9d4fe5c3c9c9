package mf

import "github.com/multiformats/go-multicodec"

// Codec codes recognized by this store, per spec.md §4.A.
const (
	Raw     = uint64(multicodec.Raw)
	DagCbor = uint64(multicodec.DagCbor)
	DagPb   = uint64(multicodec.DagPb)
)

// Sha256 is the default hash function for new blocks and the only one
// HashName names. Verify accepts any hash go-multihash can compute.
const Sha256 = uint64(multicodec.Sha2_256)

// CodecName returns the multicodec name for a codec code, or "" if the
// code is not one of the ones this store recognizes.
func CodecName(code uint64) string {
	switch code {
	case Raw:
		return "raw"
	case DagCbor:
		return "dag-cbor"
	case DagPb:
		return "dag-pb"
	default:
		return ""
	}
}

// HashName returns the multihash name for a hash code, or "" if the code
// is not one of the ones this store recognizes.
func HashName(code uint64) string {
	switch code {
	case Sha256:
		return "sha2-256"
	default:
		return ""
	}
}
