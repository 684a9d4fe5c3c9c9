// Package ipldstore is a content-addressed, hierarchical key-value store
// over IPLD primitives, backing chunked n-dimensional array formats whose
// chunks are small binary blobs and whose metadata are small JSON
// documents.
//
// Three collaborating packages implement the layers below the mapping
// exposed here: mf (CID parsing/emission and digests), dagcbor
// (deterministic CBOR over an open recursive value type with CID links),
// and cas (the content-addressable store and CAR v1 codec).
package ipldstore
