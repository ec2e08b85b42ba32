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

// Package flattree implements the flat-tree index arithmetic used to
// address nodes of a binary Merkle tree packed into a single linear
// address space: even indices are leaves, odd indices are parents,
// and a node's depth and offset within its depth can be recovered
// from its index alone.
package flattree

// Index returns the flat-tree index of the node at the given depth
// and offset within that depth.
func Index(depth, offset uint64) uint64 {
	return offset*(uint64(2)<<depth) + (uint64(1)<<depth - 1)
}

// Depth returns the depth of node i. Leaves are depth 0.
func Depth(i uint64) uint64 {
	if i&1 == 0 {
		return 0
	}
	// Depth is the number of trailing one-bits of i, i.e. the number
	// of trailing zero bits of ^i.
	var depth uint64
	x := i
	for x&1 == 1 {
		depth++
		x >>= 1
	}
	return depth
}

// Offset returns the offset of node i within its depth.
func Offset(i uint64) uint64 {
	d := Depth(i)
	if d == 0 {
		return i / 2
	}
	return (i - (uint64(1)<<d - 1)) / (uint64(2) << d)
}

// Parent returns the parent of node i. When i and its sibling have
// equal depth (the usual case) this is well defined; offset picks
// which of the two equal-depth candidates is the true parent.
func Parent(i uint64) uint64 {
	d := Depth(i)
	return Index(d+1, Offset(i)>>1)
}

// ParentWithOffset is Parent but also returns the offset of i in its
// depth, which callers computing several related values can reuse to
// avoid recomputing Offset(i).
func ParentWithOffset(i uint64) (parent uint64, offset uint64) {
	d := Depth(i)
	offset = Offset(i)
	parent = Index(d+1, offset>>1)
	return
}

// Sibling returns the other child of i's parent.
func Sibling(i uint64) uint64 {
	d := Depth(i)
	off := Offset(i)
	if off&1 == 0 {
		return Index(d, off+1)
	}
	return Index(d, off-1)
}

// LeftChild returns the left child of i. Panics in spirit only:
// callers must not call this on a leaf (depth 0); it returns i
// unchanged in that degenerate case so the function stays total.
func LeftChild(i uint64) uint64 {
	d := Depth(i)
	if d == 0 {
		return i
	}
	return Index(d-1, Offset(i)*2)
}

// RightChild returns the right child of i.
func RightChild(i uint64) uint64 {
	d := Depth(i)
	if d == 0 {
		return i
	}
	return Index(d-1, Offset(i)*2+1)
}

// LeftSpan returns the leftmost leaf index (flat, even) covered by
// the subtree rooted at i.
func LeftSpan(i uint64) uint64 {
	d := Depth(i)
	if d == 0 {
		return i
	}
	return Offset(i) * (uint64(2) << d)
}

// RightSpan returns the rightmost leaf index (flat, even) covered by
// the subtree rooted at i.
func RightSpan(i uint64) uint64 {
	d := Depth(i)
	if d == 0 {
		return i
	}
	return (Offset(i)+1)*(uint64(2)<<d) - 2
}

// Spans returns (LeftSpan(i), RightSpan(i)) in one call.
func Spans(i uint64) (left, right uint64) {
	return LeftSpan(i), RightSpan(i)
}

// Count returns the number of leaves in the subtree rooted at i.
func Count(i uint64) uint64 {
	l, r := Spans(i)
	return (r-l)/2 + 1
}

// FullRoots returns the unique minimal set of subtree roots whose
// leaf spans partition [0, length) when the tree currently holds
// length leaves. treeSize is conventionally 2*length in flat-tree
// units; callers pass the leaf count directly.
func FullRoots(length uint64) []uint64 {
	if length == 0 {
		return nil
	}
	roots := make([]uint64, 0, 64)
	var offset uint64
	factor := uint64(1)
	remaining := length
	for remaining > 0 {
		// Largest power of two full subtree (in leaves) that fits.
		size := factor
		for size*2 <= remaining {
			size *= 2
		}
		depth := log2(size)
		roots = append(roots, Index(depth, offset/size))
		offset += size
		remaining -= size
	}
	return roots
}

func log2(v uint64) uint64 {
	var d uint64
	for v > 1 {
		v >>= 1
		d++
	}
	return d
}

// ChildrenOf reports the direct children of a non-leaf node.
func ChildrenOf(i uint64) (left, right uint64, ok bool) {
	if Depth(i) == 0 {
		return 0, 0, false
	}
	return LeftChild(i), RightChild(i), true
}

// UncleChain returns the sequence of sibling indices encountered
// walking from leaf index i up to (but not including) the root of
// the subtree of the given depth, i.e. the Merkle-proof path.
func UncleChain(i uint64, rootDepth uint64) []uint64 {
	chain := make([]uint64, 0, rootDepth)
	cur := i
	for Depth(cur) < rootDepth {
		chain = append(chain, Sibling(cur))
		cur = Parent(cur)
	}
	return chain
}

// Verifies full-roots cover exactly [0, length) leaves; used by
// tests and by callers that want an assertion rather than a panic.
func RootsCoverLength(roots []uint64, length uint64) bool {
	var total uint64
	for _, r := range roots {
		total += Count(r)
	}
	return total == length
}
