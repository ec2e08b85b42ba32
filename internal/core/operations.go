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

package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/flatcore/corelog/internal/corelogerrors"
	"github.com/flatcore/corelog/internal/flattree"
	"github.com/flatcore/corelog/internal/merkletree"
	"github.com/flatcore/corelog/internal/oplog"
	"github.com/flatcore/corelog/internal/storage"
)

// Append appends blocks to the log as one atomic changeset: every
// block becomes one more leaf, with one commit and one signature for
// the whole batch.
func (c *Core) Append(ctx context.Context, blocks [][]byte) (Info, error) {
	var info Info
	err := c.withLock(ctx, func(ctx context.Context) error {
		cs, err := c.tree.Append(blocks)
		if err != nil {
			return err
		}

		offset := c.blockOffsets[len(c.blockOffsets)-1]
		for _, b := range blocks {
			if err := c.dataStore.Write(ctx, offset, b); err != nil {
				return fmt.Errorf("core: write block data: %w", err)
			}
			offset += uint64(len(b))
			c.blockOffsets = append(c.blockOffsets, offset)
		}

		treeNodes := make([]oplog.TreeNodeUpdate, len(cs.NewNodes))
		for i, n := range cs.NewNodes {
			if err := c.treeStore.Put(ctx, n.Index, storage.StoredNode{Hash: n.Hash, Size: n.Size}); err != nil {
				return fmt.Errorf("core: write tree node %d: %w", n.Index, err)
			}
			c.cache.Put(n.Index, n)
			treeNodes[i] = oplog.TreeNodeUpdate{Index: n.Index, Hash: n.Hash, Size: n.Size}
		}

		c.bits.SetRange(cs.Start, cs.NewLength, true)

		entry := oplog.Entry{
			TreeNodes: treeNodes,
			Upgrade: &oplog.TreeUpgrade{
				Start:     cs.Start,
				Length:    cs.NewLength,
				Fork:      cs.NewFork,
				Signature: cs.Signature,
			},
			Bitfield: &oplog.BitfieldUpdate{Start: cs.Start, Length: cs.NewLength - cs.Start, Drop: false},
		}
		// Commit before checkpoint: checkpoint's header must reflect
		// the post-append tree state, because the compaction branch
		// persists that header and then truncates the oplog entry
		// carrying this very upgrade. Committing first keeps the header
		// self-sufficient regardless of which branch runs.
		c.tree.Commit(cs)
		if err := c.checkpoint(ctx, entry); err != nil {
			return err
		}

		info = c.infoLocked()
		return nil
	})
	return info, err
}

// AppendBatch folds several block groups into a single atomic
// changeset, for callers that assemble blocks incrementally before
// committing them together.
func (c *Core) AppendBatch(ctx context.Context, groups ...[][]byte) (Info, error) {
	var all [][]byte
	for _, g := range groups {
		all = append(all, g...)
	}
	return c.Append(ctx, all)
}

// Get returns the bytes stored at block index i, or ErrMissingBlock
// if i is locally absent (cleared, or never replicated in), or
// ErrOutOfRange if i >= length.
func (c *Core) Get(ctx context.Context, i uint64, opts GetOptions) ([]byte, error) {
	var out []byte
	err := c.withLock(ctx, func(ctx context.Context) error {
		if i >= c.tree.Length {
			return fmt.Errorf("%w: block %d >= length %d", corelogerrors.ErrOutOfRange, i, c.tree.Length)
		}
		if !c.bits.Get(i) {
			return corelogerrors.ErrMissingBlock
		}
		data, err := c.dataStore.Read(ctx, c.blockOffsets[i], c.blockOffsets[i+1]-c.blockOffsets[i])
		if err != nil {
			return err
		}
		out = data
		return nil
	})
	return out, err
}

// Clear marks block indices [start, end) as locally absent and
// zeroes their stored bytes, without changing length, byte_length,
// fork, or tree roots. A nil end clears the single block at start.
func (c *Core) Clear(ctx context.Context, start uint64, end *uint64) error {
	return c.withLock(ctx, func(ctx context.Context) error {
		stop := start + 1
		if end != nil {
			stop = *end
		}
		if stop <= start || stop > c.tree.Length {
			return fmt.Errorf("%w: clear range [%d,%d) exceeds length %d", corelogerrors.ErrOutOfRange, start, stop, c.tree.Length)
		}

		if err := c.dataStore.Clear(ctx, c.blockOffsets[start], c.blockOffsets[stop]-c.blockOffsets[start]); err != nil {
			return fmt.Errorf("core: clear block data: %w", err)
		}
		c.bits.SetRange(start, stop, false)

		entry := oplog.Entry{
			Bitfield: &oplog.BitfieldUpdate{Start: start, Length: stop - start, Drop: true},
		}
		return c.checkpoint(ctx, entry)
	})
}

// Info reports the log's current length, byte length, contiguous
// prefix length, and fork id.
func (c *Core) Info(ctx context.Context) (Info, error) {
	var info Info
	err := c.withLock(ctx, func(ctx context.Context) error {
		info = c.infoLocked()
		return nil
	})
	return info, err
}

func (c *Core) infoLocked() Info {
	return Info{
		Length:           c.tree.Length,
		ByteLength:       c.tree.ByteLength,
		ContiguousLength: c.bits.ContiguousLength(0),
		Fork:             c.tree.Fork,
		Padding:          0,
	}
}

// Truncate drops the log back to newLength leaves, bumping fork, and
// discarding presence/cache state for everything beyond it. Any node
// full_roots(newLength) needs that isn't already locally resolvable
// fails the whole operation with ErrMissingNode (nothing is mutated).
func (c *Core) Truncate(ctx context.Context, newLength uint64) (Info, error) {
	var info Info
	err := c.withLock(ctx, func(ctx context.Context) error {
		oldLength := c.tree.Length
		cs, err := c.tree.Truncate(ctx, newLength, c)
		if err != nil {
			return err
		}

		c.cache.InvalidateFrom(flattree.Index(0, newLength))
		c.bits.SetRange(newLength, oldLength, false)
		c.blockOffsets = c.blockOffsets[:newLength+1]

		entry := oplog.Entry{
			Upgrade: &oplog.TreeUpgrade{
				Start:     cs.Start,
				Length:    cs.NewLength,
				Fork:      cs.NewFork,
				Signature: cs.Signature,
			},
			Bitfield: &oplog.BitfieldUpdate{Start: newLength, Length: oldLength - newLength, Drop: true},
		}
		// Commit before checkpoint, for the same reason as in Append: the
		// compaction branch persists currentHeader()'s view of c.tree, and
		// that view must already include this truncation.
		c.tree.Commit(cs)
		if err := c.checkpoint(ctx, entry); err != nil {
			return err
		}

		c.log.Warnf("core: truncated to length=%d, fork now %d", newLength, c.tree.Fork)
		info = c.infoLocked()
		return nil
	})
	return info, err
}

// CreateProof builds a proof against the log's current state,
// resolving any needed nodes/blocks through this Core.
func (c *Core) CreateProof(ctx context.Context, req merkletree.Request) (*merkletree.Proof, error) {
	var proof *merkletree.Proof
	err := c.withLock(ctx, func(ctx context.Context) error {
		if err := c.canServeLocally(req); err != nil {
			return err
		}
		p, err := c.tree.CreateProof(ctx, req, c, c)
		if err != nil {
			return err
		}
		proof = p
		return nil
	})
	return proof, err
}

// canServeLocally consults the tree index to answer, up front and
// without touching the node cache or stores, whether req's explicit
// targets are locally resolvable at all: a Block request needs the
// leaf's bytes present, a HashIndex request needs every leaf under
// that subtree present. Targets at or beyond length are left to
// Tree.CreateProof, which reports them as ErrOutOfRange. A HashIndex
// request is refused here whenever any leaf under it is cleared, even
// if the tree nodes its proof would carry are still stored.
func (c *Core) canServeLocally(req merkletree.Request) error {
	if req.Block != nil && *req.Block < c.tree.Length && !c.tindex.HasBlock(*req.Block) {
		return fmt.Errorf("%w: block %d not locally present", corelogerrors.ErrMissingBlock, *req.Block)
	}
	if req.HashIndex != nil && flattree.LeftSpan(*req.HashIndex)/2 < c.tree.Length && !c.tindex.CanProve(*req.HashIndex) {
		return fmt.Errorf("%w: hash index %d not fully provable locally", corelogerrors.ErrMissingNode, *req.HashIndex)
	}
	return nil
}

// Verify checks proof against opts. It never consults or mutates
// Core's own state: a caller wanting to verify against the log's
// live roots must pass them in opts explicitly (e.g. via a prior
// Info/CreateProof(UpgradeFrom) call).
func (c *Core) Verify(proof *merkletree.Proof, opts merkletree.VerifyOptions) error {
	return merkletree.Verify(proof, opts)
}

// GetNode implements merkletree.NodeProvider, read-through the node
// cache.
func (c *Core) GetNode(ctx context.Context, index uint64) (merkletree.Node, bool, error) {
	if n, ok := c.cache.Get(index); ok {
		return n, true, nil
	}
	sn, ok, err := c.treeStore.Get(ctx, index)
	if err != nil || !ok {
		return merkletree.Node{}, ok, err
	}
	n := merkletree.Node{Index: index, Hash: sn.Hash, Size: sn.Size}
	c.cache.Put(index, n)
	return n, true, nil
}

// GetBlock implements merkletree.DataProvider.
func (c *Core) GetBlock(ctx context.Context, index uint64) ([]byte, bool, error) {
	if index >= c.tree.Length || !c.bits.Get(index) {
		return nil, false, nil
	}
	data, err := c.dataStore.Read(ctx, c.blockOffsets[index], c.blockOffsets[index+1]-c.blockOffsets[index])
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// checkpoint appends entry to the oplog and then either commits the
// current header or, once compactThreshold uncompacted entries have
// piled up, compacts: saves the bitfield snapshot and folds the
// header forward, truncating the entry region.
func (c *Core) checkpoint(ctx context.Context, entry oplog.Entry) error {
	if err := c.ol.Append(ctx, entry); err != nil {
		return fmt.Errorf("core: append oplog entry: %w", err)
	}
	c.pendingEntries++

	header, encoded := c.currentHeader()
	if c.pendingEntries < compactThreshold {
		if err := c.ol.Commit(ctx, header); err != nil {
			return fmt.Errorf("core: commit header: %w", err)
		}
		return nil
	}

	if err := c.bitfieldStore.Save(ctx, encoded); err != nil {
		return fmt.Errorf("core: save bitfield snapshot: %w", err)
	}
	if err := c.ol.Compact(ctx, header); err != nil {
		return fmt.Errorf("core: compact oplog: %w", err)
	}
	c.pendingEntries = 0
	c.log.Debugf("core: compacted oplog at length=%d fork=%d", c.tree.Length, c.tree.Fork)
	return nil
}

// Close flushes the tree, data and bitfield stores (fanned out
// concurrently) and closes them, then closes the oplog's header/entry
// stores. Further calls return ErrClosed.
func (c *Core) Close(ctx context.Context) error {
	if err := c.mu.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.mu.Release(1)
	if c.closed {
		return corelogerrors.ErrClosed
	}
	c.closed = true

	stores := []storage.RandomAccess{c.rawTreeStore, c.rawDataStore, c.rawBitfieldStore}
	g, gctx := errgroup.WithContext(context.Background())
	for _, s := range stores {
		s := s
		g.Go(func() error { return s.Flush(gctx) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("core: flush stores on close: %w", err)
	}

	for _, s := range stores {
		if err := s.Close(); err != nil {
			return fmt.Errorf("core: close store: %w", err)
		}
	}
	return c.ol.Close()
}
