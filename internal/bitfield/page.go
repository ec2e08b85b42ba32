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

// Package bitfield implements the two-level sparse bitfield over
// block presence: fixed-size pages of PageBits bits, indexed by an
// unordered page-id -> page map so that reads of never-written pages
// return all-zero without allocating.
package bitfield

import (
	prysmbitfield "github.com/prysmaticlabs/go-bitfield"
)

// PageBits is the number of bits held by one page (2048 bits = 256
// bytes).
const PageBits = 2048

// page wraps a fixed-length go-bitfield Bitlist sized to PageBits.
// go-bitfield's Bitlist was built for SSZ-encoded consensus bitlists
// (it reserves one trailing delimiter bit for its own Bytes()/SSZ
// form); we never call its Bytes()/SSZ accessors, only BitAt/SetBitAt,
// so the delimiter convention is invisible here and the page behaves
// as a plain fixed-size bit array.
type page struct {
	bits prysmbitfield.Bitlist
}

func newPage() *page {
	return &page{bits: prysmbitfield.NewBitlist(PageBits + 1)}
}

func (p *page) get(i uint64) bool {
	return p.bits.BitAt(i)
}

func (p *page) set(i uint64, v bool) {
	p.bits.SetBitAt(i, v)
}

func (p *page) count() uint64 {
	var n uint64
	for i := uint64(0); i < PageBits; i++ {
		if p.bits.BitAt(i) {
			n++
		}
	}
	return n
}

func (p *page) isZero() bool {
	for i := uint64(0); i < PageBits; i++ {
		if p.bits.BitAt(i) {
			return false
		}
	}
	return true
}
