// This is free and unencumbered software released into the public domain.
//
// Anyone is free to copy, modify, publish, use, compile, sell, or
// distribute this software, either in source code form or as a compiled
// binary, for any purpose, commercial or non-commercial, and by any
// means.
//
// In jurisdictions that recognize copyright laws, the author or authors
// of this software dedicate any and all copyright interest in the
// software to the public domain. We make this dedication for the benefit
// of the public at large and to the detriment of our heirs and
// successors. We intend this dedication to be an overt act of
// relinquishment in perpetuity of all present and future rights to this
// software under copyright law.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.
//
// For more information, please refer to <https://unlicense.org>

// Package merkletree is the in-memory tree engine: it owns the
// length/byte_length/fork/roots state of a hypercore-shaped Merkle
// tree, builds changesets for append and truncate, and produces and
// verifies proofs against a signed root.
package merkletree

import "github.com/flatcore/corelog/internal/logcrypto"

// Node is a single addressed, hashed element of the tree: a leaf or
// an interior parent, identified by its flat-tree index.
type Node struct {
	Index uint64
	Hash  logcrypto.Hash
	Size  uint64
}

// Equal reports whether two nodes are identical in every field.
func (n Node) Equal(o Node) bool {
	return n.Index == o.Index && n.Hash == o.Hash && n.Size == o.Size
}

func toRootEntries(nodes []Node) []logcrypto.RootEntry {
	out := make([]logcrypto.RootEntry, len(nodes))
	for i, n := range nodes {
		out[i] = logcrypto.RootEntry{Hash: n.Hash, Index: n.Index, Size: n.Size}
	}
	return out
}

func findNode(nodes []Node, index uint64) (Node, bool) {
	for _, n := range nodes {
		if n.Index == index {
			return n, true
		}
	}
	return Node{}, false
}

func totalSize(nodes []Node) uint64 {
	var total uint64
	for _, n := range nodes {
		total += n.Size
	}
	return total
}
