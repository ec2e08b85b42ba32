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

// Package oplog implements the crash-consistent write-ahead log: a
// dual-slot header plus a stream of CRC32-framed entries recording
// incremental mutations to tree, bitfield, and user-data state.
package oplog

import (
	"fmt"
	"hash/crc32"

	"github.com/flatcore/corelog/internal/corelogerrors"
	"github.com/flatcore/corelog/internal/wire"
)

// HeaderSlotSize is the fixed, padded size of one header slot.
const HeaderSlotSize = 4096

// Header is the on-disk manifest: keypair, tree metadata, signed
// root, and a digest of the bitfield snapshot (so a reader can tell
// whether the bitfield store matches this header without decoding
// it).
type Header struct {
	Length         uint64
	ByteLength     uint64
	Fork           uint64
	PublicKey      []byte // 32 bytes
	SecretKey      []byte // optional, 64 bytes when present
	Signature      []byte // optional, 64 bytes when present
	TreeHash       [32]byte
	BitfieldDigest [32]byte
}

// EncodeHeader serializes h and pads the result to HeaderSlotSize,
// prefixed with a CRC32 (IEEE) of the payload bytes that follow it.
func EncodeHeader(h Header) ([]byte, error) {
	var payload []byte
	payload = wire.PutUvarint(payload, h.Length)
	payload = wire.PutUvarint(payload, h.ByteLength)
	payload = wire.PutUvarint(payload, h.Fork)
	payload = wire.PutBytes(payload, h.PublicKey)

	var bitmap wire.OptionalBitmap
	if h.SecretKey != nil {
		bitmap = bitmap.Set(0)
	}
	if h.Signature != nil {
		bitmap = bitmap.Set(1)
	}
	payload = append(payload, byte(bitmap))
	if h.SecretKey != nil {
		payload = wire.PutBytes(payload, h.SecretKey)
	}
	if h.Signature != nil {
		payload = wire.PutBytes(payload, h.Signature)
	}
	payload = wire.PutFixedHash(payload, h.TreeHash)
	payload = wire.PutFixedHash(payload, h.BitfieldDigest)

	if len(payload) > HeaderSlotSize-4 {
		return nil, fmt.Errorf("oplog: header payload %d bytes exceeds slot capacity", len(payload))
	}

	crc := crc32.ChecksumIEEE(payload)
	slot := make([]byte, HeaderSlotSize)
	crcBuf := wire.PutUint32(nil, crc)
	copy(slot[0:4], crcBuf)
	copy(slot[4:], payload)
	return slot, nil
}

// DecodeHeader reverses EncodeHeader and validates the CRC.
func DecodeHeader(slot []byte) (Header, error) {
	if len(slot) < 4 {
		return Header{}, fmt.Errorf("%w: header slot too short", corelogerrors.ErrMalformedEntry)
	}
	storedCRC, _, err := wire.Uint32(slot)
	if err != nil {
		return Header{}, err
	}
	rest := slot[4:]

	var h Header
	var n int
	h.Length, n, err = wire.Uvarint(rest)
	if err != nil {
		return Header{}, err
	}
	rest = rest[n:]

	h.ByteLength, n, err = wire.Uvarint(rest)
	if err != nil {
		return Header{}, err
	}
	rest = rest[n:]

	h.Fork, n, err = wire.Uvarint(rest)
	if err != nil {
		return Header{}, err
	}
	rest = rest[n:]

	h.PublicKey, n, err = wire.Bytes(rest)
	if err != nil {
		return Header{}, err
	}
	h.PublicKey = append([]byte(nil), h.PublicKey...)
	rest = rest[n:]

	if len(rest) < 1 {
		return Header{}, fmt.Errorf("%w: header missing optional-field bitmap", corelogerrors.ErrMalformedEntry)
	}
	bitmap := wire.OptionalBitmap(rest[0])
	rest = rest[1:]

	if bitmap.Has(0) {
		h.SecretKey, n, err = wire.Bytes(rest)
		if err != nil {
			return Header{}, err
		}
		h.SecretKey = append([]byte(nil), h.SecretKey...)
		rest = rest[n:]
	}
	if bitmap.Has(1) {
		h.Signature, n, err = wire.Bytes(rest)
		if err != nil {
			return Header{}, err
		}
		h.Signature = append([]byte(nil), h.Signature...)
		rest = rest[n:]
	}

	h.TreeHash, n, err = wire.FixedHash(rest)
	if err != nil {
		return Header{}, err
	}
	rest = rest[n:]

	h.BitfieldDigest, n, err = wire.FixedHash(rest)
	if err != nil {
		return Header{}, err
	}
	rest = rest[n:]

	payloadEnd := len(slot) - len(rest)
	payload := slot[4:payloadEnd]
	gotCRC := crc32.ChecksumIEEE(payload)
	if gotCRC != storedCRC {
		return Header{}, fmt.Errorf("%w: header CRC mismatch", corelogerrors.ErrMalformedEntry)
	}
	return h, nil
}
