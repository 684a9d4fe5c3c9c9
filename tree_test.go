package ipldstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOmapPreservesInsertionOrder(t *testing.T) {
	o := newOmap()
	o.set("z", inlineLeafNode(1))
	o.set("a", inlineLeafNode(2))
	o.set("m", inlineLeafNode(3))
	require.Equal(t, []string{"z", "a", "m"}, o.orderedKeys())

	o.delete("a")
	require.Equal(t, []string{"z", "m"}, o.orderedKeys())
	require.Equal(t, 2, o.len())
}

func TestOmapSetOverwritesWithoutReordering(t *testing.T) {
	o := newOmap()
	o.set("a", inlineLeafNode(1))
	o.set("b", inlineLeafNode(2))
	o.set("a", inlineLeafNode(99))

	require.Equal(t, []string{"a", "b"}, o.orderedKeys())
	v, ok := o.get("a")
	require.True(t, ok)
	require.Equal(t, 99, v.inline)
}

func TestIterateDepthFirstPreOrder(t *testing.T) {
	root := newBranchNode()
	setRecursive(root, []string{"d"}, inlineLeafNode("e"))
	setRecursive(root, []string{"a", "b"}, inlineLeafNode("c"))

	var out []string
	iterateInto(root, "", "/", &out)
	require.Equal(t, []string{"d", "a/b"}, out)
}
