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

package storage

import (
	"context"
	"fmt"

	"github.com/flatcore/corelog/internal/logcrypto"
	"github.com/flatcore/corelog/internal/wire"
)

// TreeStore addresses fixed-size NodeSize slots by flat-tree index.
type TreeStore struct {
	ra RandomAccess
}

// NewTreeStore wraps ra as a tree node store.
func NewTreeStore(ra RandomAccess) *TreeStore {
	return &TreeStore{ra: ra}
}

// StoredNode is the (hash, size) pair persisted for a tree node; the
// flat index is implicit in the slot's offset.
type StoredNode struct {
	Hash logcrypto.Hash
	Size uint64
}

func (ts *TreeStore) slotOffset(index uint64) int64 {
	return int64(index) * NodeSize
}

// Get reads the node at flat index, reporting ok=false if the slot
// is all-zero (never written).
func (ts *TreeStore) Get(ctx context.Context, index uint64) (StoredNode, bool, error) {
	raw, err := ts.ra.ReadAt(ctx, ts.slotOffset(index), NodeSize)
	if err != nil {
		return StoredNode{}, false, err
	}
	var allZero = true
	for _, b := range raw {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return StoredNode{}, false, nil
	}
	var n StoredNode
	copy(n.Hash[:], raw[:32])
	n.Size, _, err = wire.Uint64(raw[32:40])
	if err != nil {
		return StoredNode{}, false, err
	}
	return n, true, nil
}

// Put writes the node at flat index.
func (ts *TreeStore) Put(ctx context.Context, index uint64, n StoredNode) error {
	buf := make([]byte, 0, NodeSize)
	buf = wire.PutFixedHash(buf, n.Hash)
	buf = wire.PutUint64(buf, n.Size)
	return ts.ra.WriteAt(ctx, ts.slotOffset(index), buf)
}

// DataStore addresses block payload bytes by byte offset, which the
// caller derives from the tree (Sigma of prior block sizes).
type DataStore struct {
	ra RandomAccess
}

// NewDataStore wraps ra as a block payload store.
func NewDataStore(ra RandomAccess) *DataStore {
	return &DataStore{ra: ra}
}

// Read returns the length bytes at offset.
func (ds *DataStore) Read(ctx context.Context, offset, length uint64) ([]byte, error) {
	return ds.ra.ReadAt(ctx, int64(offset), int64(length))
}

// Write stores data at offset.
func (ds *DataStore) Write(ctx context.Context, offset uint64, data []byte) error {
	return ds.ra.WriteAt(ctx, int64(offset), data)
}

// Clear zeroes length bytes at offset (used by Core.Clear; it never
// shrinks the store, only zeroes a region, so later blocks keep
// their offsets valid).
func (ds *DataStore) Clear(ctx context.Context, offset, length uint64) error {
	return ds.ra.Delete(ctx, int64(offset), int64(length))
}

// BitfieldStore persists the RLE-encoded presence bitmap. The core
// rewrites it wholesale, never patching it incrementally, at each
// oplog compaction; Close does not rewrite it.
type BitfieldStore struct {
	ra RandomAccess
}

// NewBitfieldStore wraps ra as the bitfield snapshot store.
func NewBitfieldStore(ra RandomAccess) *BitfieldStore {
	return &BitfieldStore{ra: ra}
}

// Save overwrites the bitfield store's entire contents with encoded.
func (bs *BitfieldStore) Save(ctx context.Context, encoded []byte) error {
	if err := bs.ra.Truncate(ctx, 0); err != nil {
		return fmt.Errorf("bitfield store: truncate before save: %w", err)
	}
	return bs.ra.WriteAt(ctx, 0, encoded)
}

// Load reads back the bitfield store's full contents.
func (bs *BitfieldStore) Load(ctx context.Context) ([]byte, error) {
	n, err := bs.ra.Len(ctx)
	if err != nil {
		return nil, err
	}
	return bs.ra.ReadAt(ctx, 0, n)
}
