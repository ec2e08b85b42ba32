package treeindex

import (
	"testing"

	"github.com/flatcore/corelog/internal/bitfield"
	"github.com/flatcore/corelog/internal/flattree"
)

func TestHasFullSubtreeWhenAllLeavesPresent(t *testing.T) {
	bf := bitfield.New()
	bf.SetRange(0, 4, true)
	ti := New(bf)

	parent := flattree.Parent(flattree.Parent(0))
	if !ti.Has(parent) {
		t.Fatalf("expected subtree over 4 present leaves to be present")
	}
}

func TestHasFalseWhenAnyLeafMissing(t *testing.T) {
	bf := bitfield.New()
	bf.SetRange(0, 4, true)
	bf.SetRange(2, 3, false) // clear leaf 2

	ti := New(bf)
	parent := flattree.Parent(flattree.Parent(0))
	if ti.Has(parent) {
		t.Fatalf("expected subtree to be absent once a leaf is cleared")
	}
}

func TestHasBlockMatchesBitfield(t *testing.T) {
	bf := bitfield.New()
	bf.SetRange(5, 6, true)
	ti := New(bf)
	if !ti.HasBlock(5) {
		t.Fatalf("expected block 5 present")
	}
	if ti.HasBlock(6) {
		t.Fatalf("expected block 6 absent")
	}
}
