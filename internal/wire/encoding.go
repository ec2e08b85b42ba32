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

package wire

import (
	"encoding/binary"
	"fmt"
)

// MaxBytesLen bounds the length prefix any single PutBytes/Bytes
// field may declare, guarding decoders against a corrupt or hostile
// length blowing up an allocation.
const MaxBytesLen = 1 << 32

// PutBytes appends a varint length prefix followed by b to dst.
func PutBytes(dst []byte, b []byte) []byte {
	dst = PutUvarint(dst, uint64(len(b)))
	return append(dst, b...)
}

// Bytes decodes a length-prefixed byte string from the front of buf.
// The returned slice aliases buf; callers that retain it past the
// next mutation of buf must copy.
func Bytes(buf []byte) (value []byte, consumed int, err error) {
	n, nn, err := Uvarint(buf)
	if err != nil {
		return nil, 0, err
	}
	if n > MaxBytesLen {
		return nil, 0, fmt.Errorf("%w: length prefix %d exceeds bound", ErrMalformed, n)
	}
	end := nn + int(n)
	if end < nn || end > len(buf) {
		return nil, 0, fmt.Errorf("%w: length prefix %d exceeds remaining buffer", ErrMalformed, n)
	}
	return buf[nn:end], end, nil
}

// PutFixedHash appends a 32-byte hash verbatim (no length prefix:
// its size is fixed by the format).
func PutFixedHash(dst []byte, h [32]byte) []byte {
	return append(dst, h[:]...)
}

// FixedHash reads a 32-byte hash from the front of buf.
func FixedHash(buf []byte) (h [32]byte, consumed int, err error) {
	if len(buf) < 32 {
		return h, 0, fmt.Errorf("%w: need 32 bytes for fixed hash, have %d", ErrMalformed, len(buf))
	}
	copy(h[:], buf[:32])
	return h, 32, nil
}

// PutUint32 appends a fixed-size big-endian uint32.
func PutUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// Uint32 reads a fixed-size big-endian uint32 from the front of buf.
func Uint32(buf []byte) (uint32, int, error) {
	if len(buf) < 4 {
		return 0, 0, fmt.Errorf("%w: need 4 bytes for uint32, have %d", ErrMalformed, len(buf))
	}
	return binary.BigEndian.Uint32(buf), 4, nil
}

// PutUint64 appends a fixed-size big-endian uint64.
func PutUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// Uint64 reads a fixed-size big-endian uint64 from the front of buf.
func Uint64(buf []byte) (uint64, int, error) {
	if len(buf) < 8 {
		return 0, 0, fmt.Errorf("%w: need 8 bytes for uint64, have %d", ErrMalformed, len(buf))
	}
	return binary.BigEndian.Uint64(buf), 8, nil
}

// OptionalBitmap is a one-byte bitmap marking which optional fields
// are present in an encoded struct, up to 8 fields. Bit i (LSB
// first) corresponds to the i-th optional field in declaration
// order.
type OptionalBitmap byte

// Has reports whether field bit i is set.
func (b OptionalBitmap) Has(i int) bool {
	return b&(1<<uint(i)) != 0
}

// Set sets field bit i.
func (b OptionalBitmap) Set(i int) OptionalBitmap {
	return b | OptionalBitmap(1<<uint(i))
}
