package cas

import (
	"bufio"
	"io"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-varint"
	"github.com/pkg/errors"

	"github.com/d70-t/ipldstore/dagcbor"
	"github.com/d70-t/ipldstore/errs"
	"github.com/d70-t/ipldstore/mf"
)

// carHeader is the CBOR-mapped header of a CAR v1 stream:
// {"version": 1, "roots": [CID, ...]}.
type carHeader struct {
	Version int64
	Roots   []cid.Cid
}

func encodeHeader(roots []cid.Cid) ([]byte, error) {
	rootsValue := make([]any, len(roots))
	for i, r := range roots {
		rootsValue[i] = r
	}
	return dagcbor.Encode(map[string]any{
		"version": int64(1),
		"roots":   rootsValue,
	})
}

func decodeHeader(buf []byte) (carHeader, error) {
	v, err := dagcbor.Decode(buf)
	if err != nil {
		return carHeader{}, errors.Wrap(errs.MalformedCAR, "header is not valid dag-cbor")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return carHeader{}, errors.Wrap(errs.MalformedCAR, "header is not a map")
	}
	version, ok := m["version"].(int64)
	if !ok {
		return carHeader{}, errors.Wrap(errs.MalformedCAR, "header has no integer version")
	}
	if version != 1 {
		return carHeader{}, errors.Wrapf(errs.MalformedCAR, "unsupported CAR version %d", version)
	}
	rootsRaw, ok := m["roots"].([]any)
	if !ok {
		return carHeader{}, errors.Wrap(errs.MalformedCAR, "header has no roots list")
	}
	roots := make([]cid.Cid, len(rootsRaw))
	for i, r := range rootsRaw {
		c, ok := r.(cid.Cid)
		if !ok {
			return carHeader{}, errors.Wrap(errs.MalformedCAR, "CAR roots do not only contain CIDs")
		}
		roots[i] = c
	}
	return carHeader{Version: version, Roots: roots}, nil
}

// writeSection writes a single length-prefixed CAR block section:
// varint(len(cidBytes)+len(data)) || cidBytes || data. It takes a
// blocks.Block, the same pair-of-(cid,bytes) type the teacher's
// Store/ReadStore interfaces exchange, rather than a bare cid.Cid and
// []byte, so every block this package ever writes has already had its
// shape validated by go-block-format's constructor.
func writeSection(w io.Writer, blk blocks.Block) (int64, error) {
	cb := mf.ToBytes(blk.Cid())
	data := blk.RawData()
	sizeBuf := varint.ToUvarint(uint64(len(cb) + len(data)))

	n1, err := w.Write(sizeBuf)
	if err != nil {
		return int64(n1), err
	}
	n2, err := w.Write(cb)
	if err != nil {
		return int64(n1 + n2), err
	}
	n3, err := w.Write(data)
	return int64(n1 + n2 + n3), err
}

// ToCAR writes a single-rooted CAR v1 stream for root to w: header, then a
// depth-first walk of every block reachable from root, each block emitted
// the first time it is reached.
func ToCAR(s RawStore, root cid.Cid, w io.Writer) (int64, error) {
	header, err := encodeHeader([]cid.Cid{root})
	if err != nil {
		return 0, err
	}

	var written int64
	sizeBuf := varint.ToUvarint(uint64(len(header)))
	n, err := w.Write(sizeBuf)
	written += int64(n)
	if err != nil {
		return written, err
	}
	n, err = w.Write(header)
	written += int64(n)
	if err != nil {
		return written, err
	}

	visited := make(map[string]bool)
	n2, err := walkAndWrite(s, root, w, visited)
	written += n2
	if err != nil {
		return written, err
	}
	log.Debugf("wrote CAR with %d blocks", len(visited))
	return written, nil
}

func walkAndWrite(s RawStore, c cid.Cid, w io.Writer, visited map[string]bool) (int64, error) {
	key := string(c.Bytes())
	if visited[key] {
		return 0, nil
	}

	data, err := s.GetRaw(c)
	if err != nil {
		return 0, err
	}
	blk, err := blocks.NewBlockWithCid(data, c)
	if err != nil {
		return 0, errors.Wrapf(errs.CorruptCAR, "stored block %s no longer matches its CID: %s", c, err)
	}
	n, err := writeSection(w, blk)
	if err != nil {
		return n, err
	}
	visited[key] = true

	if c.Type() != mf.DagCbor {
		return n, nil
	}
	value, err := dagcbor.Decode(data)
	if err != nil {
		return n, err
	}
	for _, child := range dagcbor.Links(value) {
		childN, err := walkAndWrite(s, child, w, visited)
		n += childN
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ImportCAR reads a CAR v1 stream from r, verifies every block's hash
// against its CID, inserts it via PutRaw, and returns the header's roots.
// On the first hash mismatch the import aborts; blocks already inserted
// remain.
func ImportCAR(s RawStore, r io.Reader) ([]cid.Cid, error) {
	br := bufio.NewReader(r)

	headerBytes, err := readLdSection(br)
	if err != nil {
		return nil, errors.Wrap(errs.MalformedCAR, "could not read CAR header")
	}
	header, err := decodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	nBlocks := 0
	for {
		section, err := readLdSection(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		c, data, err := mf.ParseBinary(section)
		if err != nil {
			return nil, err
		}

		if !mf.Verify(c, data) {
			return nil, errors.Wrapf(errs.CorruptCAR, "block %s failed verification", c)
		}

		if _, err := s.PutRaw(data, c.Type()); err != nil {
			return nil, err
		}
		nBlocks++
	}
	log.Debugf("imported CAR with %d blocks", nBlocks)

	return header.Roots, nil
}

func readLdSection(br *bufio.Reader) ([]byte, error) {
	if _, err := br.Peek(1); err != nil {
		return nil, io.EOF
	}
	size, err := varint.ReadUvarint(br)
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
