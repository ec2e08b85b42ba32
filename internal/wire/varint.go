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

// Package wire implements the compact binary encoding shared by the
// oplog header, oplog entries, and stored tree nodes:
// LEB128-style varints, length-prefixed byte strings, fixed-size
// big-endian integers, and optional-field bitmaps. Proofs are
// in-memory values only and have no encoding in this module. Encoding is
// deterministic: equal logical values always encode to equal byte
// strings, which the on-disk format depends on for interop.
package wire

import (
	"fmt"

	"github.com/flatcore/corelog/internal/corelogerrors"
)

// ErrMalformed is returned when a decode routine encounters bytes
// that cannot represent a well-formed value: a truncated varint, a
// length prefix exceeding the remaining buffer, or similar. It wraps
// corelogerrors.ErrMalformedEntry.
var ErrMalformed = fmt.Errorf("wire: %w", corelogerrors.ErrMalformedEntry)

// maxVarintLen is the most bytes Uvarint reads. A uint64 can need
// ceil(64/7) = 10; 9 bytes cover every value below 2^63. PutUvarint
// does not enforce that bound, so a larger value encodes to 10 bytes
// that Uvarint rejects.
const maxVarintLen = 9

// PutUvarint appends the LEB128-style varint encoding of v to dst
// and returns the extended slice.
func PutUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// Uvarint decodes a varint from the front of buf, returning the
// value, the number of bytes consumed, and an error if buf does not
// hold a complete, minimally-bounded varint.
func Uvarint(buf []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i := 0; i < len(buf) && i < maxVarintLen; i++ {
		b := buf[i]
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1, nil
		}
		shift += 7
	}
	if len(buf) == 0 {
		return 0, 0, ErrMalformed
	}
	return 0, 0, ErrMalformed
}

// UvarintLen returns the number of bytes PutUvarint would emit for v.
func UvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}
