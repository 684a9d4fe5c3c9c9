package ipldstore

import "github.com/ipfs/go-cid"

// nodeKind tags which of the three shapes described in spec.md §3 a
// treeNode holds: a nested sub-mapping, a CID pointing at an external
// block, or a decoded JSON value embedded inline.
type nodeKind int

const (
	kindBranch nodeKind = iota
	kindCidLeaf
	kindInlineLeaf
)

// treeNode is the tagged sum TreeNode = Branch(omap) | CidLeaf(CID) |
// InlineLeaf(Value) from spec.md §9.
type treeNode struct {
	kind   nodeKind
	branch *omap
	link   cid.Cid
	inline any
}

func newBranchNode() *treeNode {
	return &treeNode{kind: kindBranch, branch: newOmap()}
}

func cidLeafNode(c cid.Cid) *treeNode {
	return &treeNode{kind: kindCidLeaf, link: c}
}

func inlineLeafNode(v any) *treeNode {
	return &treeNode{kind: kindInlineLeaf, inline: v}
}

// toValue converts a treeNode into the dagcbor.Value shape Freeze encodes:
// branches become plain maps (canonical key order is applied at encode
// time, so insertion order is not needed here), CID leaves become links,
// and inline leaves pass their decoded JSON value through unchanged.
func (n *treeNode) toValue() any {
	switch n.kind {
	case kindBranch:
		m := make(map[string]any, n.branch.len())
		for _, k := range n.branch.orderedKeys() {
			child, _ := n.branch.get(k)
			m[k] = child.toValue()
		}
		return m
	case kindCidLeaf:
		return n.link
	default: // kindInlineLeaf
		return n.inline
	}
}

// omap is an insertion-ordered map from path segment to child treeNode. Go
// maps iterate in randomized order, which would make Iterate's sibling
// order non-deterministic; omap keeps an explicit key slice alongside the
// lookup map to preserve the order keys were first inserted in, the same
// discipline the teacher applies to its CarHeader's field layout.
type omap struct {
	keys []string
	vals map[string]*treeNode
}

func newOmap() *omap {
	return &omap{vals: make(map[string]*treeNode)}
}

func (o *omap) get(key string) (*treeNode, bool) {
	v, ok := o.vals[key]
	return v, ok
}

func (o *omap) set(key string, n *treeNode) {
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = n
}

func (o *omap) delete(key string) {
	if _, exists := o.vals[key]; !exists {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

func (o *omap) len() int { return len(o.keys) }

// orderedKeys returns this map's keys in insertion order.
func (o *omap) orderedKeys() []string {
	return o.keys
}
