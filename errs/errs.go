// Package errs holds the sentinel error values shared by every package in
// this module, so that a caller can errors.Is against a single stable
// identity no matter which layer (mf, dagcbor, cas, or the root mapping)
// produced the error.
package errs

import "errors"

var (
	// NotFound is returned when a CID is not present in a store, or a key
	// is not present in a mapping.
	NotFound = errors.New("not found")

	// UnsupportedCodec is returned from Get when a CID's codec is neither
	// raw nor dag-cbor.
	UnsupportedCodec = errors.New("unsupported codec")

	// UnsupportedCIDVersion is returned when parsing a CID whose version
	// is neither 0 nor 1.
	UnsupportedCIDVersion = errors.New("unsupported CID version")

	// UnsupportedHash is returned when parsing a CID with an unrecognized
	// multihash code.
	UnsupportedHash = errors.New("unsupported hash function")

	// MalformedCAR is returned when a CAR header is not a CBOR map, has
	// the wrong version, or has ill-typed/missing roots.
	MalformedCAR = errors.New("malformed CAR")

	// CorruptCAR is returned when a block's computed hash does not match
	// the CID's digest during CAR import.
	CorruptCAR = errors.New("corrupt CAR")

	// MultiRootCAR is returned when a mapping import encounters a CAR with
	// a number of roots other than exactly one.
	MultiRootCAR = errors.New("CAR does not have exactly one root")

	// TransportError is returned by the remote CAS variant on any non-2xx
	// HTTP response.
	TransportError = errors.New("transport error")

	// InvalidInput flags argument-level validation failures.
	InvalidInput = errors.New("invalid input")
)
