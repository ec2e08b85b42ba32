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
	"context"
	"fmt"

	"github.com/flatcore/corelog/internal/storage"
)

// Oplog ties a dual-slot header region to a stream of framed entries.
// Slot 0 lives at byte offset 0 of headerStore, slot 1 at
// HeaderSlotSize; whichever slot decodes with a valid CRC and carries
// the higher (Fork, Length) pair, fork compared first, is the active
// one. Every Commit
// writes the *other* slot and flips, so a crash mid-write always
// leaves the previously-committed slot intact.
type Oplog struct {
	headerStore storage.RandomAccess
	entryStore  storage.RandomAccess

	active     int // 0 or 1: which header slot is currently valid
	entryEnd   int64
	lastHeader Header
}

// Open reads both header slots, selects the newer valid one, and
// replays the entry region up to (and excluding) the first
// CRC-broken frame. It returns the recovered header, the replayed
// entries, and the log ready to accept further appends/commits.
func Open(ctx context.Context, headerStore, entryStore storage.RandomAccess) (*Oplog, Header, []Entry, error) {
	slot0, err := headerStore.ReadAt(ctx, 0, HeaderSlotSize)
	if err != nil {
		return nil, Header{}, nil, fmt.Errorf("oplog: read header slot 0: %w", err)
	}
	slot1, err := headerStore.ReadAt(ctx, HeaderSlotSize, HeaderSlotSize)
	if err != nil {
		return nil, Header{}, nil, fmt.Errorf("oplog: read header slot 1: %w", err)
	}

	h0, err0 := DecodeHeader(slot0)
	h1, err1 := DecodeHeader(slot1)

	var active int
	var header Header
	switch {
	case err0 != nil && err1 != nil:
		// Fresh store: neither slot has ever been written.
		active = 0
		header = Header{}
	case err0 != nil:
		active, header = 1, h1
	case err1 != nil:
		active, header = 0, h0
	case newerHeader(h1, h0):
		active, header = 1, h1
	default:
		active, header = 0, h0
	}

	entryLen, err := entryStore.Len(ctx)
	if err != nil {
		return nil, Header{}, nil, fmt.Errorf("oplog: stat entry store: %w", err)
	}
	raw, err := entryStore.ReadAt(ctx, 0, entryLen)
	if err != nil {
		return nil, Header{}, nil, fmt.Errorf("oplog: read entry store: %w", err)
	}

	var entries []Entry
	var offset int64
	for {
		payload, consumed, ok := unframe(raw[offset:])
		if !ok {
			break
		}
		e, err := DecodeEntry(payload)
		if err != nil {
			// A CRC-valid frame with an undecodable payload means the
			// entry format itself is corrupt; stop replay here too,
			// same as a torn write.
			break
		}
		entries = append(entries, e)
		offset += int64(consumed)
	}

	ol := &Oplog{
		headerStore: headerStore,
		entryStore:  entryStore,
		active:      active,
		entryEnd:    offset,
		lastHeader:  header,
	}
	return ol, header, entries, nil
}

// newerHeader reports whether a supersedes b: a higher fork always
// wins (it means a truncate-and-rewrite happened), and within the
// same fork a higher length wins.
func newerHeader(a, b Header) bool {
	if a.Fork != b.Fork {
		return a.Fork > b.Fork
	}
	return a.Length > b.Length
}

func (ol *Oplog) inactiveSlotOffset() int64 {
	if ol.active == 0 {
		return HeaderSlotSize
	}
	return 0
}

// Append writes one framed entry to the end of the entry region and
// flushes the entry store. It does not touch the header; callers
// call Commit once the tree/bitfield state implied by e has been
// folded into a new Header.
func (ol *Oplog) Append(ctx context.Context, e Entry) error {
	frame := frame(EncodeEntry(e))
	if err := ol.entryStore.WriteAt(ctx, ol.entryEnd, frame); err != nil {
		return fmt.Errorf("oplog: append entry: %w", err)
	}
	if err := ol.entryStore.Flush(ctx); err != nil {
		return fmt.Errorf("oplog: flush entry store: %w", err)
	}
	ol.entryEnd += int64(len(frame))
	return nil
}

// Commit durably records h as the new manifest: it writes the
// currently-inactive slot, flushes, and only then flips the active
// slot in memory. A crash before the flush leaves the old slot as
// the (still valid) active one; a crash after leaves the new slot
// active. Either outcome is a consistent header.
func (ol *Oplog) Commit(ctx context.Context, h Header) error {
	slot, err := EncodeHeader(h)
	if err != nil {
		return fmt.Errorf("oplog: encode header: %w", err)
	}
	off := ol.inactiveSlotOffset()
	if err := ol.headerStore.WriteAt(ctx, off, slot); err != nil {
		return fmt.Errorf("oplog: write header slot: %w", err)
	}
	if err := ol.headerStore.Flush(ctx); err != nil {
		return fmt.Errorf("oplog: flush header store: %w", err)
	}
	ol.active = 1 - ol.active
	ol.lastHeader = h
	return nil
}

// Compact rewrites the header with h and discards the entry log,
// since h is assumed to already reflect every mutation recorded by
// those entries (the caller folds entries into tree/bitfield state
// before calling Compact, same as Commit, but additionally drops the
// now-redundant entry history instead of leaving it appended).
func (ol *Oplog) Compact(ctx context.Context, h Header) error {
	if err := ol.Commit(ctx, h); err != nil {
		return err
	}
	if err := ol.entryStore.Truncate(ctx, 0); err != nil {
		return fmt.Errorf("oplog: truncate entry store: %w", err)
	}
	if err := ol.entryStore.Flush(ctx); err != nil {
		return fmt.Errorf("oplog: flush entry store after compaction: %w", err)
	}
	ol.entryEnd = 0
	return nil
}

// Header returns the most recently committed header.
func (ol *Oplog) Header() Header {
	return ol.lastHeader
}

// Close closes both underlying stores. It does not flush them itself;
// Append and Commit have already flushed every write they made.
func (ol *Oplog) Close() error {
	if err := ol.headerStore.Close(); err != nil {
		return err
	}
	return ol.entryStore.Close()
}
