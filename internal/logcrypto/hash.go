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

// Package logcrypto implements the domain-separated BLAKE2b-256
// hashing and Ed25519 signing primitives the tree engine and oplog
// build on: leaf/parent/root/tree hash domains, and the discovery key
// derivation.
package logcrypto

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Domain prefixes, one byte each, per the wire format.
const (
	DomainLeaf   byte = 0x00
	DomainParent byte = 0x01
	DomainRoot   byte = 0x02
	DomainTree   byte = 0x03
)

// HashSize is the size in bytes of every hash produced by this
// package.
const HashSize = 32

// Hash is a 32-byte BLAKE2b-256 digest.
type Hash [HashSize]byte

// RootEntry is one element of the full-roots sequence hashed into a
// tree hash: the root node's hash, its flat-tree index, and the
// number of leaf bytes (not leaf count) spanned by it.
type RootEntry struct {
	Hash  Hash
	Index uint64
	Size  uint64
}

func sum(domain byte, parts ...[]byte) Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails for an oversized key, and we
		// never pass one.
		panic(err)
	}
	h.Write([]byte{domain})
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// LeafHash computes H_leaf(size, data).
func LeafHash(size uint64, data []byte) Hash {
	var sizeBuf [8]byte
	binary.BigEndian.PutUint64(sizeBuf[:], size)
	return sum(DomainLeaf, sizeBuf[:], data)
}

// ParentHash computes H_parent(left, right) from the two children's
// sizes and hashes. size is left.size + right.size.
func ParentHash(leftSize, rightSize uint64, leftHash, rightHash Hash) Hash {
	var sizeBuf [8]byte
	binary.BigEndian.PutUint64(sizeBuf[:], leftSize+rightSize)
	return sum(DomainParent, sizeBuf[:], leftHash[:], rightHash[:])
}

// TreeHash computes the signed payload: the ROOT-domain hash of each
// root entry concatenated, itself hashed under the TREE domain.
func TreeHash(roots []RootEntry) Hash {
	rootHash := rootsHash(roots)
	return sum(DomainTree, rootHash[:])
}

func rootsHash(roots []RootEntry) Hash {
	buf := make([]byte, 0, len(roots)*(HashSize+16))
	for _, r := range roots {
		buf = append(buf, r.Hash[:]...)
		var idxSize [16]byte
		binary.BigEndian.PutUint64(idxSize[0:8], r.Index)
		binary.BigEndian.PutUint64(idxSize[8:16], r.Size)
		buf = append(buf, idxSize[:]...)
	}
	return sum(DomainRoot, buf)
}

// DiscoveryKey derives the public discovery identifier for a log:
// a BLAKE2b-256 hash of the literal string "hypercore" keyed by the
// log's public key.
func DiscoveryKey(publicKey []byte) Hash {
	h, err := blake2b.New256(publicKey)
	if err != nil {
		panic(err)
	}
	h.Write([]byte("hypercore"))
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
