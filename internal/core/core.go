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

// Package core implements the Core facade: the single entry point
// wiring the tree engine, the three logical stores, the bitfield and
// tree-index, and the oplog together behind one logical mutex, per
// the state machine "acquire-lock -> plan -> do-io -> mutate ->
// release".
package core

import (
	"context"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/semaphore"

	"github.com/flatcore/corelog/internal/bitfield"
	"github.com/flatcore/corelog/internal/corelogerrors"
	"github.com/flatcore/corelog/internal/flattree"
	"github.com/flatcore/corelog/internal/logcrypto"
	"github.com/flatcore/corelog/internal/merkletree"
	"github.com/flatcore/corelog/internal/oplog"
	"github.com/flatcore/corelog/internal/storage"
	"github.com/flatcore/corelog/internal/treeindex"
)

// Logger is the minimal leveled logging sink the core facade writes
// to. A nil Logger in Config is replaced with a no-op implementation;
// there is no global/package-level logger.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Warnf(string, ...any)  {}

// Config supplies everything Open needs to build a Core: the five
// logical random-access regions (oplog header, oplog entries, tree,
// data, bitfield), an optional identity keypair (nil generates a
// fresh writable one), an optional node-cache capacity, and an
// optional logger.
type Config struct {
	HeaderStore   storage.RandomAccess
	EntryStore    storage.RandomAccess
	TreeStore     storage.RandomAccess
	DataStore     storage.RandomAccess
	BitfieldStore storage.RandomAccess

	KeyPair   *logcrypto.KeyPair
	CacheSize int
	Logger    Logger
}

// Info reports a log's current length, byte length, contiguous
// prefix length, fork id, and reserved padding.
type Info struct {
	Length           uint64
	ByteLength       uint64
	ContiguousLength uint64
	Fork             uint64
	Padding          uint64
}

// GetOptions controls Get's behavior for a block that is not locally
// present.
type GetOptions struct {
	// Wait, if true, would ask the core to block until the block
	// becomes available via replication. Replication is out of scope
	// for this module, so Wait is accepted for interface parity but
	// never changes behavior: a missing block always returns
	// ErrMissingBlock.
	Wait bool
}

// Core is the facade tying the tree engine, storage, bitfield, and
// oplog together behind one logical mutex.
type Core struct {
	mu *semaphore.Weighted

	tree   *merkletree.Tree
	bits   *bitfield.Bitfield
	tindex *treeindex.TreeIndex

	treeStore     *storage.TreeStore
	dataStore     *storage.DataStore
	bitfieldStore *storage.BitfieldStore
	ol            *oplog.Oplog

	cache *nodeCache
	log   Logger

	// blockOffsets[i] is the byte offset of block i in dataStore;
	// blockOffsets[length] is the current byte_length. Rebuilt once
	// at Open by walking persisted leaf sizes, then maintained
	// incrementally by Append/Truncate.
	blockOffsets []uint64

	// pendingEntries counts oplog entries appended since the last
	// header checkpoint; once it reaches compactThreshold the next
	// commit compacts the oplog instead of just writing the header.
	pendingEntries int

	// rawTreeStore, rawDataStore, rawBitfieldStore are the
	// unwrapped providers, kept only so Close can flush/close them;
	// storage.TreeStore/DataStore/BitfieldStore intentionally don't
	// forward those methods themselves.
	rawTreeStore     storage.RandomAccess
	rawDataStore     storage.RandomAccess
	rawBitfieldStore storage.RandomAccess

	closed bool
}

// compactThreshold is the number of uncompacted oplog entries after
// which a commit folds the header forward and truncates the entry
// region, rather than merely appending to it.
const compactThreshold = 32

// Open builds a Core from cfg, replaying the oplog's entry region on
// top of its last-committed header to recover the exact pre-crash
// state.
func Open(ctx context.Context, cfg Config) (*Core, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ol, hdr, entries, err := oplog.Open(ctx, cfg.HeaderStore, cfg.EntryStore)
	if err != nil {
		return nil, fmt.Errorf("core: open oplog: %w", err)
	}

	treeStore := storage.NewTreeStore(cfg.TreeStore)
	dataStore := storage.NewDataStore(cfg.DataStore)
	bitfieldStore := storage.NewBitfieldStore(cfg.BitfieldStore)

	kp := cfg.KeyPair
	if kp == nil {
		if len(hdr.PublicKey) > 0 {
			kp = &logcrypto.KeyPair{PublicKey: hdr.PublicKey, SecretKey: hdr.SecretKey}
		} else {
			kp, err = logcrypto.GenerateKeyPair()
			if err != nil {
				return nil, fmt.Errorf("core: generate keypair: %w", err)
			}
		}
	}

	raw, err := bitfieldStore.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("core: load bitfield: %w", err)
	}
	var bits *bitfield.Bitfield
	if len(raw) == 0 {
		bits = bitfield.New()
	} else {
		bits, _, err = bitfield.UnmarshalRLE(raw)
		if err != nil {
			return nil, fmt.Errorf("core: decode bitfield: %w", err)
		}
	}

	length, fork, signature := hdr.Length, hdr.Fork, hdr.Signature
	for _, e := range entries {
		for _, tn := range e.TreeNodes {
			if err := treeStore.Put(ctx, tn.Index, storage.StoredNode{Hash: tn.Hash, Size: tn.Size}); err != nil {
				return nil, fmt.Errorf("core: replay tree node %d: %w", tn.Index, err)
			}
		}
		if e.Bitfield != nil {
			bits.SetRange(e.Bitfield.Start, e.Bitfield.Start+e.Bitfield.Length, !e.Bitfield.Drop)
		}
		if e.Upgrade != nil {
			length, fork, signature = e.Upgrade.Length, e.Upgrade.Fork, e.Upgrade.Signature
			logger.Debugf("core: replayed upgrade to length=%d fork=%d", length, fork)
		}
	}

	roots, byteLength, err := loadRoots(ctx, treeStore, length)
	if err != nil {
		return nil, fmt.Errorf("core: rebuild roots: %w", err)
	}
	tree := merkletree.Restore(kp, length, byteLength, fork, roots, signature)

	offsets, err := buildBlockOffsets(ctx, treeStore, length)
	if err != nil {
		return nil, fmt.Errorf("core: rebuild block offsets: %w", err)
	}

	c := &Core{
		mu:               semaphore.NewWeighted(1),
		tree:             tree,
		bits:             bits,
		tindex:           treeindex.New(bits),
		treeStore:        treeStore,
		dataStore:        dataStore,
		bitfieldStore:    bitfieldStore,
		ol:               ol,
		cache:            newNodeCache(cfg.CacheSize),
		log:              logger,
		blockOffsets:     offsets,
		rawTreeStore:     cfg.TreeStore,
		rawDataStore:     cfg.DataStore,
		rawBitfieldStore: cfg.BitfieldStore,
	}
	return c, nil
}

func loadRoots(ctx context.Context, treeStore *storage.TreeStore, length uint64) ([]merkletree.Node, uint64, error) {
	rootIdx := flattree.FullRoots(length)
	roots := make([]merkletree.Node, len(rootIdx))
	var byteLength uint64
	for i, idx := range rootIdx {
		sn, ok, err := treeStore.Get(ctx, idx)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			return nil, 0, fmt.Errorf("%w: root node %d for length %d", corelogerrors.ErrMissingNode, idx, length)
		}
		roots[i] = merkletree.Node{Index: idx, Hash: sn.Hash, Size: sn.Size}
		byteLength += sn.Size
	}
	return roots, byteLength, nil
}

func buildBlockOffsets(ctx context.Context, treeStore *storage.TreeStore, length uint64) ([]uint64, error) {
	offsets := make([]uint64, length+1)
	for i := uint64(0); i < length; i++ {
		sn, ok, err := treeStore.Get(ctx, flattree.Index(0, i))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: leaf node for block %d", corelogerrors.ErrMissingNode, i)
		}
		offsets[i+1] = offsets[i] + sn.Size
	}
	return offsets, nil
}

// withLock acquires the core's single logical mutex, honoring
// cancellation before the lock is taken (a no-op: nothing is
// mutated). Once the lock is held, fn runs against a detached
// context, so a cancellation arriving mid-commit is not honored
// until the operation's commit protocol completes, per the
// concurrency model.
func (c *Core) withLock(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.closed {
		return corelogerrors.ErrClosed
	}
	if err := c.mu.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.mu.Release(1)
	if c.closed {
		return corelogerrors.ErrClosed
	}
	return fn(context.Background())
}

// bitfieldDigest is an internal consistency aid (not a wire-format
// requirement): a BLAKE2b-256 hash of the bitfield's current RLE
// encoding, stored in the header so a reopened core can cheaply tell
// whether the bitfield store on disk still matches the header that
// claims to describe it.
func bitfieldDigest(encoded []byte) [32]byte {
	return blake2b.Sum256(encoded)
}

func (c *Core) currentHeader() (Header, []byte) {
	encoded := c.bits.MarshalRLE(c.tree.Length)
	h := Header{
		Length:     c.tree.Length,
		ByteLength: c.tree.ByteLength,
		Fork:       c.tree.Fork,
		PublicKey:  c.tree.KeyPair().PublicKey,
		SecretKey:  c.tree.KeyPair().SecretKey,
		Signature:  c.tree.Signature,
		TreeHash:   c.tree.TreeHash(),
	}
	h.BitfieldDigest = bitfieldDigest(encoded)
	return h, encoded
}

// Header is a type alias so callers of this package never need to
// import internal/oplog directly for the facade's own bookkeeping.
type Header = oplog.Header
