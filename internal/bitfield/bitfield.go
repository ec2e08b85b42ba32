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

import "sort"

// Bitfield is a two-level sparse bit array over block indices.
// Level-0 pages hold PageBits bits each; level-1 is an unordered map
// of page-id to page (LastSet sorts the page ids when it needs them in
// order), so pages that were never written cost nothing and reads of
// them return false.
type Bitfield struct {
	pages map[uint64]*page
}

// New returns an empty bitfield.
func New() *Bitfield {
	return &Bitfield{pages: make(map[uint64]*page)}
}

func pageOf(i uint64) (pageID uint64, bitInPage uint64) {
	return i / PageBits, i % PageBits
}

// Get reports whether bit i is set. Unwritten pages read as false.
func (bf *Bitfield) Get(i uint64) bool {
	pid, bit := pageOf(i)
	p, ok := bf.pages[pid]
	if !ok {
		return false
	}
	return p.get(bit)
}

// SetRange sets bits [start, end) to value.
func (bf *Bitfield) SetRange(start, end uint64, value bool) {
	if end <= start {
		return
	}
	for i := start; i < end; {
		pid, bit := pageOf(i)
		p, ok := bf.pages[pid]
		if !ok {
			if !value {
				// Clearing bits in a page that doesn't exist is a
				// no-op; skip straight to the next page boundary.
				i = (pid + 1) * PageBits
				continue
			}
			p = newPage()
			bf.pages[pid] = p
		}
		limit := (pid + 1) * PageBits
		if limit > end {
			limit = end
		}
		for ; i < limit; i++ {
			_, b := pageOf(i)
			p.set(b, value)
		}
		if !value && p.isZero() {
			delete(bf.pages, pid)
		}
	}
}

// CountRange returns the number of set bits in [start, end).
func (bf *Bitfield) CountRange(start, end uint64) uint64 {
	var n uint64
	for i := start; i < end; i++ {
		if bf.Get(i) {
			n++
		}
	}
	return n
}

// LastSet returns the highest index with a set bit, and true, or
// (0, false) if no bit is set.
func (bf *Bitfield) LastSet() (uint64, bool) {
	if len(bf.pages) == 0 {
		return 0, false
	}
	ids := make([]uint64, 0, len(bf.pages))
	for id := range bf.pages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	for _, id := range ids {
		p := bf.pages[id]
		for i := int64(PageBits) - 1; i >= 0; i-- {
			if p.get(uint64(i)) {
				return id*PageBits + uint64(i), true
			}
		}
	}
	return 0, false
}

// ContiguousLength returns the largest k >= from such that every bit
// in [from, k) is set. from is exposed so the tree-index can reuse
// the same scan starting partway through.
func (bf *Bitfield) ContiguousLength(from uint64) uint64 {
	k := from
	for bf.Get(k) {
		k++
	}
	return k
}
