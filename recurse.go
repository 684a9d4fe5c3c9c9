package ipldstore

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// setRecursive descends path from n, creating intermediate branch nodes on
// demand (the same setdefault-and-recurse shape as
// original_source/ipldstore/ipldstore.py::set_recursive), and places leaf
// at the final segment.
func setRecursive(n *treeNode, path []string, leaf *treeNode) {
	key := path[0]
	if len(path) == 1 {
		n.branch.set(key, leaf)
		return
	}
	child, ok := n.branch.get(key)
	if !ok || child.kind != kindBranch {
		child = newBranchNode()
		n.branch.set(key, child)
	}
	setRecursive(child, path[1:], leaf)
}

// getRecursive mirrors get_recursive: descend until the path is exhausted,
// failing if an intermediate segment does not resolve to a branch.
func getRecursive(n *treeNode, path []string) (*treeNode, error) {
	key := path[0]
	child, ok := n.branch.get(key)
	if !ok {
		return nil, fmt.Errorf("no such path segment %q", key)
	}
	if len(path) == 1 {
		return child, nil
	}
	if child.kind != kindBranch {
		return nil, fmt.Errorf("path segment %q is a leaf, not a branch", key)
	}
	return getRecursive(child, path[1:])
}

// deleteRecursive mirrors del_recursive: remove the leaf, then prune this
// level if it becomes empty as a result, propagating the prune upward.
func deleteRecursive(n *treeNode, path []string) error {
	key := path[0]
	child, ok := n.branch.get(key)
	if !ok {
		return fmt.Errorf("no such path segment %q", key)
	}
	if len(path) == 1 {
		n.branch.delete(key)
		return nil
	}
	if child.kind != kindBranch {
		return fmt.Errorf("path segment %q is a leaf, not a branch", key)
	}
	if err := deleteRecursive(child, path[1:]); err != nil {
		return err
	}
	if child.branch.len() == 0 {
		n.branch.delete(key)
	}
	return nil
}

// iterateInto walks n depth-first, pre-order, appending the joined path of
// every leaf it reaches to out. Siblings are visited in insertion order.
func iterateInto(n *treeNode, prefix, sep string, out *[]string) {
	if n.kind != kindBranch {
		*out = append(*out, prefix)
		return
	}
	for _, k := range n.branch.orderedKeys() {
		child, _ := n.branch.get(k)
		childPath := k
		if prefix != "" {
			childPath = prefix + sep + k
		}
		iterateInto(child, childPath, sep, out)
	}
}

// decodeInlineJSON parses data as JSON, preserving integers as int64
// rather than collapsing them into float64 the way a plain
// json.Unmarshal(&any{}) would — dag-cbor's shortest-form integer
// encoding (spec.md §3) depends on that distinction surviving the inline
// leaf's JSON round-trip.
func decodeInlineJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeJSONNumbers(v), nil
}

func normalizeJSONNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, vv := range t {
			t[k] = normalizeJSONNumbers(vv)
		}
		return t
	case []any:
		for i, vv := range t {
			t[i] = normalizeJSONNumbers(vv)
		}
		return t
	default:
		return v
	}
}
