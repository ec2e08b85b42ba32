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

// Package treeindex views a bitfield.Bitfield through the flat-tree
// layout: it answers "is node N's entire leaf span present" without
// the caller having to walk the span by hand.
package treeindex

import (
	"github.com/flatcore/corelog/internal/bitfield"
	"github.com/flatcore/corelog/internal/flattree"
)

// TreeIndex answers presence queries for flat-tree nodes against an
// underlying block-presence bitfield.
type TreeIndex struct {
	bits *bitfield.Bitfield
}

// New wraps a bitfield with a tree-shaped view.
func New(bits *bitfield.Bitfield) *TreeIndex {
	return &TreeIndex{bits: bits}
}

// Has reports whether every leaf in the subtree rooted at flat index
// i is present, descending only as far as needed: it short-circuits
// as soon as any leaf in the span is missing, by binary-descending
// instead of scanning the whole span bit by bit. Leaves are checked
// directly against the bitfield; a leaf flat index i's leaf number
// is i/2.
func (ti *TreeIndex) Has(i uint64) bool {
	return ti.hasRange(flattree.Spans(i))
}

// hasRange reports whether every leaf spanned by flat indices
// [leftFlat, rightFlat] (inclusive, both even / leaf indices) is
// present, by recursive bisection: a span of one leaf is a direct
// bitfield check; a larger span is split at its midpoint node.
func (ti *TreeIndex) hasRange(leftFlat, rightFlat uint64) bool {
	if leftFlat == rightFlat {
		return ti.bits.Get(leftFlat / 2)
	}
	mid := leftFlat + (rightFlat-leftFlat)/2
	// mid must land on an even (leaf) boundary so the split is along
	// a real flat-tree edge; round down to the nearest even index.
	if mid%2 != 0 {
		mid--
	}
	return ti.hasRange(leftFlat, mid) && ti.hasRange(mid+2, rightFlat)
}

// HasBlock is the direct, non-tree-shaped presence check for a leaf
// block index (not a flat index).
func (ti *TreeIndex) HasBlock(blockIndex uint64) bool {
	return ti.bits.Get(blockIndex)
}

// CanProve reports whether the subtree at flat index i has enough
// locally-present data to serve a proof referencing it without
// fetching more blocks: identical to Has, exposed under the name the
// core facade's proof planner uses.
func (ti *TreeIndex) CanProve(i uint64) bool {
	return ti.Has(i)
}
