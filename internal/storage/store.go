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

// Package storage implements the three logical byte-addressable
// stores (tree, data, bitfield) on top of an abstract random-access
// provider, plus the fixed-size node slot layout the tree store uses.
package storage

import "context"

// RandomAccess is the abstract byte-addressed storage provider every
// logical store is built on. Implementations: an in-memory buffer
// (memstore) and an on-disk file (filestore); callers never see the
// difference.
type RandomAccess interface {
	ReadAt(ctx context.Context, offset, length int64) ([]byte, error)
	WriteAt(ctx context.Context, offset int64, data []byte) error
	Delete(ctx context.Context, offset, length int64) error
	Truncate(ctx context.Context, length int64) error
	Len(ctx context.Context) (int64, error)
	Flush(ctx context.Context) error
	Close() error
}

// NodeSize is the fixed on-disk size of one tree node slot: a
// 32-byte hash plus an 8-byte big-endian size field.
const NodeSize = 40

// ZeroHash is the all-zero hash an unpopulated node slot holds.
// TreeStore.Get infers absence from the slot bytes: a slot whose hash
// and size are all zero is reported as absent, so a node stored with
// this hash and size zero would also read back as absent.
var ZeroHash [32]byte
