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

package merkletree

import (
	"context"
	"fmt"

	"github.com/flatcore/corelog/internal/corelogerrors"
	"github.com/flatcore/corelog/internal/flattree"
	"github.com/flatcore/corelog/internal/logcrypto"
)

// NodeProvider is the capability the core facade supplies so the
// tree engine can stay pure over storage: it can read back any node
// that was previously written, without the engine knowing how or
// where nodes are actually stored. Breaks the cyclic reference
// between the engine and the storage layer.
type NodeProvider interface {
	GetNode(ctx context.Context, index uint64) (Node, bool, error)
}

// Tree is the in-memory engine state: leaf count, user byte count,
// fork id, the current full-roots set, and the signature over their
// tree hash.
type Tree struct {
	Length     uint64
	ByteLength uint64
	Fork       uint64
	Roots      []Node
	Signature  []byte

	keyPair *logcrypto.KeyPair
}

// New returns an empty tree identified by kp. kp may be read-only
// (no secret key); Append will then fail with ErrPermissionDenied.
func New(kp *logcrypto.KeyPair) *Tree {
	return &Tree{keyPair: kp}
}

// Restore reconstructs tree state as decoded from a header/oplog
// replay, without re-deriving it from scratch.
func Restore(kp *logcrypto.KeyPair, length, byteLength, fork uint64, roots []Node, signature []byte) *Tree {
	return &Tree{
		Length:     length,
		ByteLength: byteLength,
		Fork:       fork,
		Roots:      roots,
		Signature:  signature,
		keyPair:    kp,
	}
}

// KeyPair returns the tree's identity keypair.
func (t *Tree) KeyPair() *logcrypto.KeyPair {
	return t.keyPair
}

// TreeHash returns the signed payload for the tree's current roots.
func (t *Tree) TreeHash() logcrypto.Hash {
	return logcrypto.TreeHash(toRootEntries(t.Roots))
}

// Append builds (but does not commit) a changeset appending blocks
// to the tree. It does not mutate t; call Commit with the result to
// apply it.
func (t *Tree) Append(blocks [][]byte) (*Changeset, error) {
	if !t.keyPair.CanSign() {
		return nil, corelogerrors.ErrPermissionDenied
	}

	length := t.Length
	byteLength := t.ByteLength
	roots := append([]Node(nil), t.Roots...)
	var newNodes []Node

	for _, b := range blocks {
		leaf := Node{
			Index: flattree.Index(0, length),
			Hash:  logcrypto.LeafHash(uint64(len(b)), b),
			Size:  uint64(len(b)),
		}
		newNodes = append(newNodes, leaf)
		length++
		byteLength += leaf.Size
		roots = append(roots, leaf)

		// Merge adjacent roots of equal leaf count, carrying upward
		// like a binary counter, until no two adjacent roots have
		// equal size (the classic Merkle-mountain-range "bagging"
		// step, which always yields exactly flattree.FullRoots(length)).
		for len(roots) >= 2 {
			a := roots[len(roots)-2]
			c := roots[len(roots)-1]
			if flattree.Count(a.Index) != flattree.Count(c.Index) {
				break
			}
			parent := Node{
				Index: flattree.Parent(a.Index),
				Hash:  logcrypto.ParentHash(a.Size, c.Size, a.Hash, c.Hash),
				Size:  a.Size + c.Size,
			}
			newNodes = append(newNodes, parent)
			roots = append(roots[:len(roots)-2], parent)
		}
	}

	treeHash := logcrypto.TreeHash(toRootEntries(roots))
	sig, err := logcrypto.Sign(t.keyPair, treeHash)
	if err != nil {
		return nil, err
	}

	return &Changeset{
		Start:         t.Length,
		NewLength:     length,
		NewByteLength: byteLength,
		NewFork:       t.Fork,
		NewRoots:      roots,
		Signature:     sig,
		NewNodes:      newNodes,
	}, nil
}

// Truncate builds a changeset that drops the tree back to newLength
// leaves and bumps the fork id. Every node spanning only
// [0, newLength) that full_roots(newLength) names must already be
// reachable either from the tree's current roots or from provider;
// if one is missing, ErrMissingNode is returned.
func (t *Tree) Truncate(ctx context.Context, newLength uint64, provider NodeProvider) (*Changeset, error) {
	if !t.keyPair.CanSign() {
		return nil, corelogerrors.ErrPermissionDenied
	}
	if newLength > t.Length {
		return nil, fmt.Errorf("%w: truncate target %d exceeds current length %d", corelogerrors.ErrOutOfRange, newLength, t.Length)
	}

	rootIndices := flattree.FullRoots(newLength)
	newRoots := make([]Node, len(rootIndices))
	for i, idx := range rootIndices {
		if n, ok := findNode(t.Roots, idx); ok {
			newRoots[i] = n
			continue
		}
		n, ok, err := provider.GetNode(ctx, idx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: root node %d for truncate to %d", corelogerrors.ErrMissingNode, idx, newLength)
		}
		newRoots[i] = n
	}

	newFork := t.Fork + 1
	treeHash := logcrypto.TreeHash(toRootEntries(newRoots))
	sig, err := logcrypto.Sign(t.keyPair, treeHash)
	if err != nil {
		return nil, err
	}

	return &Changeset{
		Start:         t.Length,
		NewLength:     newLength,
		NewByteLength: totalSize(newRoots),
		NewFork:       newFork,
		NewRoots:      newRoots,
		Signature:     sig,
	}, nil
}

// Commit atomically applies a previously built changeset to t.
func (t *Tree) Commit(cs *Changeset) {
	t.Length = cs.NewLength
	t.ByteLength = cs.NewByteLength
	t.Fork = cs.NewFork
	t.Roots = cs.NewRoots
	t.Signature = cs.Signature
}

// VerifySignature reports whether t's current roots are correctly
// signed by pub.
func (t *Tree) VerifySignature(pub []byte) bool {
	return logcrypto.Verify(pub, t.TreeHash(), t.Signature)
}
