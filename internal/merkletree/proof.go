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

// Request enumerates what a peer is asking for: any subset of an
// upgrade (new roots since a known length), a byte-seek position, a
// specific block's value, or just a specific node's hash.
type Request struct {
	UpgradeFrom *uint64
	SeekByte    *uint64
	Block       *uint64
	HashIndex   *uint64
}

// Upgrade carries the new full-roots set and its signature, for a
// peer whose local length is Start, bringing it up to Length.
type Upgrade struct {
	Start     uint64
	Length    uint64
	Nodes     []Node // the new full-roots set itself
	Signature []byte
}

// Seek carries the sibling chain needed to locate a byte offset.
type Seek struct {
	Bytes uint64
	Nodes []Node
}

// BlockProof carries a block's value plus the sibling chain from its
// leaf up to one of the tree's full roots.
type BlockProof struct {
	Index uint64
	Value []byte
	Nodes []Node
}

// HashProof carries just the sibling chain proving a node's hash,
// without the underlying block value.
type HashProof struct {
	Index uint64
	Nodes []Node
}

// Proof is the wire package exchanged between replicas; any subset of
// its four fields may be populated depending on the Request.
type Proof struct {
	Upgrade *Upgrade
	Seek    *Seek
	Block   *BlockProof
	Hash    *HashProof
}

// DataProvider resolves a block's bytes, for CreateProof's Block
// requests.
type DataProvider interface {
	GetBlock(ctx context.Context, index uint64) ([]byte, bool, error)
}

// CreateProof builds the minimal proof satisfying req against t's
// current state. Cached nodes are preferred; a required node missing
// from both the current roots and provider fails with ErrMissingNode
// rather than being recomputed from block data.
func (t *Tree) CreateProof(ctx context.Context, req Request, provider NodeProvider, data DataProvider) (*Proof, error) {
	proof := &Proof{}

	if req.UpgradeFrom != nil {
		if *req.UpgradeFrom > t.Length {
			return nil, fmt.Errorf("%w: upgrade_from %d exceeds length %d", corelogerrors.ErrOutOfRange, *req.UpgradeFrom, t.Length)
		}
		proof.Upgrade = &Upgrade{
			Start:     *req.UpgradeFrom,
			Length:    t.Length,
			Nodes:     append([]Node(nil), t.Roots...),
			Signature: t.Signature,
		}
	}

	if req.Block != nil {
		idx := *req.Block
		if idx >= t.Length {
			return nil, fmt.Errorf("%w: block %d >= length %d", corelogerrors.ErrOutOfRange, idx, t.Length)
		}
		value, ok, err := data.GetBlock(ctx, idx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: block %d", corelogerrors.ErrMissingBlock, idx)
		}
		nodes, err := t.siblingChain(ctx, idx, provider)
		if err != nil {
			return nil, err
		}
		proof.Block = &BlockProof{Index: idx, Value: value, Nodes: nodes}
	}

	if req.HashIndex != nil {
		idx := *req.HashIndex
		blockIndex := flattree.LeftSpan(idx) / 2
		if blockIndex >= t.Length {
			return nil, fmt.Errorf("%w: hash index %d beyond length %d", corelogerrors.ErrOutOfRange, idx, t.Length)
		}
		root := t.coveringRoot(idx)
		if root == nil {
			return nil, fmt.Errorf("%w: no covering root for index %d", corelogerrors.ErrOutOfRange, idx)
		}
		chain := flattree.UncleChain(idx, flattree.Depth(root.Index))
		nodes, err := t.resolveNodes(ctx, chain, provider)
		if err != nil {
			return nil, err
		}
		proof.Hash = &HashProof{Index: idx, Nodes: nodes}
	}

	if req.SeekByte != nil {
		target := *req.SeekByte
		idx, err := t.seekBlockAtByte(ctx, target, provider)
		if err != nil {
			return nil, err
		}
		nodes, err := t.siblingChain(ctx, idx, provider)
		if err != nil {
			return nil, err
		}
		proof.Seek = &Seek{Bytes: target, Nodes: nodes}
	}

	return proof, nil
}

// seekBlockAtByte finds the block index whose byte span contains byte
// offset target, by locating the covering root and then descending
// through its children's sizes (fetched via provider when not already
// held as a root) until a leaf is reached.
func (t *Tree) seekBlockAtByte(ctx context.Context, target uint64, provider NodeProvider) (uint64, error) {
	if target >= t.ByteLength {
		return 0, fmt.Errorf("%w: seek byte %d beyond byte_length %d", corelogerrors.ErrOutOfRange, target, t.ByteLength)
	}

	var byteStart uint64
	var cur Node
	found := false
	for _, root := range t.Roots {
		if target < byteStart+root.Size {
			cur = root
			found = true
			break
		}
		byteStart += root.Size
	}
	if !found {
		return 0, fmt.Errorf("%w: seek byte %d not covered by any root", corelogerrors.ErrInconsistent, target)
	}

	for flattree.Depth(cur.Index) > 0 {
		leftIdx, rightIdx, _ := flattree.ChildrenOf(cur.Index)
		left, err := t.resolveNode(ctx, leftIdx, provider)
		if err != nil {
			return 0, err
		}
		if target < byteStart+left.Size {
			cur = left
			continue
		}
		byteStart += left.Size
		right, err := t.resolveNode(ctx, rightIdx, provider)
		if err != nil {
			return 0, err
		}
		cur = right
	}
	return flattree.LeftSpan(cur.Index) / 2, nil
}

func (t *Tree) coveringRoot(flatIndex uint64) *Node {
	left, right := flattree.Spans(flatIndex)
	for i := range t.Roots {
		rl, rr := flattree.Spans(t.Roots[i].Index)
		if rl <= left && right <= rr {
			return &t.Roots[i]
		}
	}
	return nil
}

func (t *Tree) siblingChain(ctx context.Context, blockIndex uint64, provider NodeProvider) ([]Node, error) {
	leafFlat := flattree.Index(0, blockIndex)
	root := t.coveringRoot(leafFlat)
	if root == nil {
		return nil, fmt.Errorf("%w: block %d has no covering root", corelogerrors.ErrOutOfRange, blockIndex)
	}
	chain := flattree.UncleChain(leafFlat, flattree.Depth(root.Index))
	return t.resolveNodes(ctx, chain, provider)
}

func (t *Tree) resolveNodes(ctx context.Context, indices []uint64, provider NodeProvider) ([]Node, error) {
	nodes := make([]Node, 0, len(indices))
	for _, idx := range indices {
		n, err := t.resolveNode(ctx, idx, provider)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// resolveNode returns node idx, preferring the tree's current roots
// over a round trip through provider.
func (t *Tree) resolveNode(ctx context.Context, idx uint64, provider NodeProvider) (Node, error) {
	if n, ok := findNode(t.Roots, idx); ok {
		return n, nil
	}
	n, ok, err := provider.GetNode(ctx, idx)
	if err != nil {
		return Node{}, err
	}
	if !ok {
		return Node{}, fmt.Errorf("%w: node %d", corelogerrors.ErrMissingNode, idx)
	}
	return n, nil
}

// reconstructRoot walks a leaf up through an ordered (leaf-to-root)
// sibling chain, recomputing parent hashes, and returns the resulting
// node at the top of the chain.
func reconstructRoot(leaf Node, siblings []Node) Node {
	cur := leaf
	for _, sib := range siblings {
		var left, right Node
		if cur.Index < sib.Index {
			left, right = cur, sib
		} else {
			left, right = sib, cur
		}
		cur = Node{
			Index: flattree.Parent(cur.Index),
			Hash:  logcrypto.ParentHash(left.Size, right.Size, left.Hash, right.Hash),
			Size:  left.Size + right.Size,
		}
	}
	return cur
}

// VerifyOptions supplies the context Verify needs to check a proof:
// the log's public key, and (when the proof carries no Upgrade of
// its own) the caller's currently-trusted roots/signature to check
// reconstructed hashes against. TrustedFork and ProofFork are pointers
// because fork 0 is a real, meaningful fork id: a nil pointer means
// "unknown", not "fork zero", so the mismatch check below can't be
// fooled by a genuine fork-0 proof checked against a genuine fork-0
// trust baseline looking the same as "neither side said".
type VerifyOptions struct {
	PublicKey     []byte
	TrustedRoots  []Node
	TrustedSig    []byte
	TrustedLength uint64
	TrustedFork   *uint64
	ProofFork     *uint64
}

// Verify checks proof against opts:
// (a) any included Upgrade's root set must carry a valid signature,
// (b) indices/sizes must be internally consistent, (c) any included
// block's hash must match its bytes, and the reconstructed hash of
// any Block/Hash/Seek entry must match one of the currently-known
// roots (the proof's own Upgrade roots if present, else opts'
// trusted roots).
func Verify(proof *Proof, opts VerifyOptions) error {
	if opts.ProofFork != nil && opts.TrustedFork != nil && *opts.ProofFork != *opts.TrustedFork {
		return corelogerrors.ErrForkMismatch
	}

	roots := opts.TrustedRoots
	if proof.Upgrade != nil {
		th := logcrypto.TreeHash(toRootEntries(proof.Upgrade.Nodes))
		if !logcrypto.Verify(opts.PublicKey, th, proof.Upgrade.Signature) {
			return corelogerrors.ErrInvalidSignature
		}
		roots = proof.Upgrade.Nodes
	}

	check := func(leaf Node, siblings []Node) error {
		if len(roots) == 0 {
			return fmt.Errorf("%w: no known roots to verify against", corelogerrors.ErrInconsistent)
		}
		got := reconstructRoot(leaf, siblings)
		if _, ok := findNode(roots, got.Index); !ok {
			return corelogerrors.ErrBadHash
		}
		want, _ := findNode(roots, got.Index)
		if want.Hash != got.Hash || want.Size != got.Size {
			return corelogerrors.ErrBadHash
		}
		return nil
	}

	if proof.Block != nil {
		b := proof.Block
		leafFlat := flattree.Index(0, b.Index)
		leaf := Node{Index: leafFlat, Hash: logcrypto.LeafHash(uint64(len(b.Value)), b.Value), Size: uint64(len(b.Value))}
		if err := check(leaf, b.Nodes); err != nil {
			return err
		}
	}

	if proof.Hash != nil {
		h := proof.Hash
		if len(h.Nodes) == 0 {
			return fmt.Errorf("%w: hash proof carries no sibling nodes", corelogerrors.ErrInconsistent)
		}
		// The node at h.Index itself is not directly verifiable
		// without its own hash; treat the first supplied sibling as
		// the leaf-most element of the chain being confirmed against
		// the remaining siblings.
		first := h.Nodes[0]
		if err := check(first, h.Nodes[1:]); err != nil {
			return err
		}
	}

	if proof.Seek != nil {
		s := proof.Seek
		if len(s.Nodes) == 0 {
			return fmt.Errorf("%w: seek proof carries no sibling nodes", corelogerrors.ErrInconsistent)
		}
		first := s.Nodes[0]
		if err := check(first, s.Nodes[1:]); err != nil {
			return err
		}
	}

	return nil
}
