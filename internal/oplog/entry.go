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

package oplog

import (
	"fmt"
	"hash/crc32"

	"github.com/flatcore/corelog/internal/corelogerrors"
	"github.com/flatcore/corelog/internal/logcrypto"
	"github.com/flatcore/corelog/internal/wire"
)

// TreeNodeUpdate is one (index, hash, size) tuple recorded by an
// entry as a newly materialized tree node.
type TreeNodeUpdate struct {
	Index uint64
	Hash  logcrypto.Hash
	Size  uint64
}

// TreeUpgrade records a length/fork/signature change.
type TreeUpgrade struct {
	Start     uint64
	Length    uint64
	Fork      uint64
	Signature []byte
}

// BitfieldUpdate records a bit range flip.
type BitfieldUpdate struct {
	Start  uint64
	Length uint64
	Drop   bool
}

// Entry is one oplog record: any subset of a user-data blob, a list
// of newly written tree nodes, a tree upgrade, and a bitfield range
// update.
type Entry struct {
	UserData  []byte
	TreeNodes []TreeNodeUpdate
	Upgrade   *TreeUpgrade
	Bitfield  *BitfieldUpdate
}

// EncodeEntry serializes e's payload (without framing).
func EncodeEntry(e Entry) []byte {
	var bitmap wire.OptionalBitmap
	if e.UserData != nil {
		bitmap = bitmap.Set(0)
	}
	if e.Upgrade != nil {
		bitmap = bitmap.Set(1)
	}
	if e.Bitfield != nil {
		bitmap = bitmap.Set(2)
	}

	buf := []byte{byte(bitmap)}
	if e.UserData != nil {
		buf = wire.PutBytes(buf, e.UserData)
	}

	buf = wire.PutUvarint(buf, uint64(len(e.TreeNodes)))
	for _, n := range e.TreeNodes {
		buf = wire.PutUvarint(buf, n.Index)
		buf = wire.PutFixedHash(buf, n.Hash)
		buf = wire.PutUvarint(buf, n.Size)
	}

	if e.Upgrade != nil {
		buf = wire.PutUvarint(buf, e.Upgrade.Start)
		buf = wire.PutUvarint(buf, e.Upgrade.Length)
		buf = wire.PutUvarint(buf, e.Upgrade.Fork)
		buf = wire.PutBytes(buf, e.Upgrade.Signature)
	}

	if e.Bitfield != nil {
		buf = wire.PutUvarint(buf, e.Bitfield.Start)
		buf = wire.PutUvarint(buf, e.Bitfield.Length)
		drop := byte(0)
		if e.Bitfield.Drop {
			drop = 1
		}
		buf = append(buf, drop)
	}

	return buf
}

// DecodeEntry reverses EncodeEntry.
func DecodeEntry(buf []byte) (Entry, error) {
	if len(buf) < 1 {
		return Entry{}, fmt.Errorf("%w: entry missing bitmap byte", corelogerrors.ErrMalformedEntry)
	}
	bitmap := wire.OptionalBitmap(buf[0])
	buf = buf[1:]

	var e Entry
	var n int
	var err error

	if bitmap.Has(0) {
		e.UserData, n, err = wire.Bytes(buf)
		if err != nil {
			return Entry{}, err
		}
		e.UserData = append([]byte(nil), e.UserData...)
		buf = buf[n:]
	}

	count, n, err := wire.Uvarint(buf)
	if err != nil {
		return Entry{}, err
	}
	buf = buf[n:]
	if count > 0 {
		e.TreeNodes = make([]TreeNodeUpdate, count)
	}
	for i := uint64(0); i < count; i++ {
		var tn TreeNodeUpdate
		tn.Index, n, err = wire.Uvarint(buf)
		if err != nil {
			return Entry{}, err
		}
		buf = buf[n:]
		tn.Hash, n, err = wire.FixedHash(buf)
		if err != nil {
			return Entry{}, err
		}
		buf = buf[n:]
		tn.Size, n, err = wire.Uvarint(buf)
		if err != nil {
			return Entry{}, err
		}
		buf = buf[n:]
		e.TreeNodes[i] = tn
	}

	if bitmap.Has(1) {
		up := &TreeUpgrade{}
		up.Start, n, err = wire.Uvarint(buf)
		if err != nil {
			return Entry{}, err
		}
		buf = buf[n:]
		up.Length, n, err = wire.Uvarint(buf)
		if err != nil {
			return Entry{}, err
		}
		buf = buf[n:]
		up.Fork, n, err = wire.Uvarint(buf)
		if err != nil {
			return Entry{}, err
		}
		buf = buf[n:]
		up.Signature, n, err = wire.Bytes(buf)
		if err != nil {
			return Entry{}, err
		}
		up.Signature = append([]byte(nil), up.Signature...)
		buf = buf[n:]
		e.Upgrade = up
	}

	if bitmap.Has(2) {
		bu := &BitfieldUpdate{}
		bu.Start, n, err = wire.Uvarint(buf)
		if err != nil {
			return Entry{}, err
		}
		buf = buf[n:]
		bu.Length, n, err = wire.Uvarint(buf)
		if err != nil {
			return Entry{}, err
		}
		buf = buf[n:]
		if len(buf) < 1 {
			return Entry{}, fmt.Errorf("%w: bitfield update missing drop byte", corelogerrors.ErrMalformedEntry)
		}
		bu.Drop = buf[0] != 0
		buf = buf[1:]
		e.Bitfield = bu
	}

	return e, nil
}

// frame wraps a payload in [u32 len][u32 crc32][payload].
func frame(payload []byte) []byte {
	var out []byte
	out = wire.PutUint32(out, uint32(len(payload)))
	out = wire.PutUint32(out, crc32.ChecksumIEEE(payload))
	out = append(out, payload...)
	return out
}

// unframe reads one framed entry from the front of buf, returning
// the payload, the total bytes consumed (including the frame
// header), and whether the frame's CRC was intact. A false ok means
// "no more valid entries" (EOF, torn write, or CRC mismatch); the
// caller should stop replay there.
func unframe(buf []byte) (payload []byte, consumed int, ok bool) {
	if len(buf) < 8 {
		return nil, 0, false
	}
	length, _, err := wire.Uint32(buf)
	if err != nil {
		return nil, 0, false
	}
	storedCRC, _, err := wire.Uint32(buf[4:])
	if err != nil {
		return nil, 0, false
	}
	end := 8 + int(length)
	if end < 8 || end > len(buf) {
		return nil, 0, false
	}
	payload = buf[8:end]
	if crc32.ChecksumIEEE(payload) != storedCRC {
		return nil, 0, false
	}
	return payload, end, true
}
