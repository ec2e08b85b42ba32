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

package bitfield

import "github.com/flatcore/corelog/internal/wire"

// MarshalRLE encodes bits [0, length) as a run-length byte stream:
// a leading varint giving length, one byte holding the value of bit 0
// (0 or 1), then a varint run-length for each maximal run of equal
// bits, the runs alternating in value starting from bit 0's. Two
// adjacent equal-value runs are never emitted back to back.
func (bf *Bitfield) MarshalRLE(length uint64) []byte {
	out := wire.PutUvarint(nil, length)
	if length == 0 {
		return out
	}
	firstValue := bf.Get(0)
	out = append(out, boolByte(firstValue))

	var runs []uint64
	cur := firstValue
	runLen := uint64(0)
	for i := uint64(0); i < length; i++ {
		v := bf.Get(i)
		if v == cur {
			runLen++
			continue
		}
		runs = append(runs, runLen)
		cur = v
		runLen = 1
	}
	runs = append(runs, runLen)

	for _, r := range runs {
		out = wire.PutUvarint(out, r)
	}
	return out
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// UnmarshalRLE decodes the byte stream produced by MarshalRLE (or any
// well-formed run-length stream following the same shape: a length,
// a starting bit value, and a sequence of run lengths summing to
// length) into a fresh Bitfield.
func UnmarshalRLE(buf []byte) (*Bitfield, uint64, error) {
	length, n, err := wire.Uvarint(buf)
	if err != nil {
		return nil, 0, err
	}
	buf = buf[n:]
	bf := New()
	if length == 0 {
		return bf, length, nil
	}
	if len(buf) < 1 {
		return nil, 0, wire.ErrMalformed
	}
	cur := buf[0] != 0
	buf = buf[1:]

	var pos uint64
	for pos < length {
		r, nn, err := wire.Uvarint(buf)
		if err != nil {
			return nil, 0, err
		}
		buf = buf[nn:]
		if r > 0 {
			end := pos + r
			if end > length {
				end = length
			}
			bf.SetRange(pos, end, cur)
			pos = end
		}
		cur = !cur
	}
	return bf, length, nil
}
