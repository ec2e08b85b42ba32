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

// Package corelog implements a single-writer, append-only log with a
// Merkle tree over its blocks: every block is hashed into a flat-tree
// of BLAKE2b-256 nodes, the current set of tree roots is signed with
// Ed25519 on every append, and the resulting signature lets any holder
// of the public key verify a block, a range of blocks, or a tree
// upgrade without trusting the storage layer it came from.
//
// Core is the single entry point. Open builds one from a Config, which
// in turn selects in-memory or on-disk storage for the log's five
// logical regions (oplog header, oplog entries, tree, block data,
// bitfield). All operations are safe for concurrent use: Core
// serializes them behind one logical lock and honors the cancellation
// rules described on Core's methods.
package corelog

import (
	"context"

	"github.com/flatcore/corelog/internal/core"
	"github.com/flatcore/corelog/internal/merkletree"
)

// Info reports a log's current length (number of blocks), total block
// byte length, contiguous locally-available prefix length, fork id,
// and any reserved padding.
type Info = core.Info

// GetOptions controls Get's behavior when the requested block is not
// locally present.
type GetOptions = core.GetOptions

// Request describes a proof to build via CreateProof.
type Request = merkletree.Request

// Proof is a self-contained, verifiable description of one or more
// blocks and/or a tree upgrade.
type Proof = merkletree.Proof

// VerifyOptions supplies the context Verify checks a Proof against.
type VerifyOptions = merkletree.VerifyOptions

// Core is a single-writer, append-only, Merkle-verified log.
//
// Every exported method acquires Core's single logical lock before
// touching any state. A context cancelled before the lock is acquired
// makes the call a no-op; once the lock is held and an operation has
// begun issuing store writes, cancellation is not honored until that
// operation's commit protocol completes -- a cancelled Append either
// has not started or has already committed, never half of one.
type Core struct {
	c *core.Core
}

// Open builds a Core from cfg, replaying any oplog entries written
// after the last checkpoint so the recovered state matches exactly
// what was true immediately before the process last stopped.
func Open(ctx context.Context, cfg Config) (*Core, error) {
	cc, err := cfg.toCoreConfig()
	if err != nil {
		return nil, err
	}
	inner, err := core.Open(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Core{c: inner}, nil
}

// Append adds blocks to the log as a single atomic changeset: one new
// set of tree roots, one new signature, one oplog checkpoint.
func (c *Core) Append(ctx context.Context, blocks [][]byte) (Info, error) {
	return c.c.Append(ctx, blocks)
}

// AppendBatch folds several block groups into one atomic Append, for
// callers assembling blocks from more than one source before
// committing them together.
func (c *Core) AppendBatch(ctx context.Context, groups ...[][]byte) (Info, error) {
	return c.c.AppendBatch(ctx, groups...)
}

// Get returns the bytes stored at block index i. If the block is
// locally absent (cleared, or never present), Get returns
// ErrMissingBlock; opts.Wait is accepted for interface parity with a
// replicated log but has no effect, since replication is out of scope
// for this module.
func (c *Core) Get(ctx context.Context, i uint64, opts GetOptions) ([]byte, error) {
	return c.c.Get(ctx, i, opts)
}

// Clear marks block indices [start, end) as locally absent and zeroes
// their stored bytes. It never changes length, byte length, fork, or
// tree roots. A nil end clears the single block at start.
func (c *Core) Clear(ctx context.Context, start uint64, end *uint64) error {
	return c.c.Clear(ctx, start, end)
}

// Info reports the log's current length, byte length, contiguous
// prefix length, and fork id.
func (c *Core) Info(ctx context.Context) (Info, error) {
	return c.c.Info(ctx)
}

// Truncate drops the log back to newLength blocks and bumps fork.
// Any signature or proof produced against the old, longer tree fails
// verification afterward.
func (c *Core) Truncate(ctx context.Context, newLength uint64) (Info, error) {
	return c.c.Truncate(ctx, newLength)
}

// CreateProof builds a proof against the log's current state.
func (c *Core) CreateProof(ctx context.Context, req Request) (*Proof, error) {
	return c.c.CreateProof(ctx, req)
}

// Verify checks proof against opts. It is stateless and does not
// consult this Core's own state.
func (c *Core) Verify(proof *Proof, opts VerifyOptions) error {
	return c.c.Verify(proof, opts)
}

// Close flushes every underlying store and releases their handles.
// Further calls on c return ErrClosed.
func (c *Core) Close(ctx context.Context) error {
	return c.c.Close(ctx)
}
