package oplog

import (
	"bytes"
	"context"
	"testing"

	"github.com/flatcore/corelog/internal/logcrypto"
	"github.com/flatcore/corelog/internal/storage/memstore"
)

func TestEntryRoundTrip(t *testing.T) {
	e := Entry{
		UserData: []byte("Hello"),
		TreeNodes: []TreeNodeUpdate{
			{Index: 0, Hash: logcrypto.LeafHash(5, []byte("Hello")), Size: 5},
		},
		Upgrade: &TreeUpgrade{Start: 0, Length: 1, Fork: 0, Signature: bytes.Repeat([]byte{7}, 64)},
		Bitfield: &BitfieldUpdate{
			Start:  0,
			Length: 1,
			Drop:   false,
		},
	}
	buf := EncodeEntry(e)
	got, err := DecodeEntry(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.UserData, e.UserData) {
		t.Fatalf("user data mismatch")
	}
	if len(got.TreeNodes) != 1 || got.TreeNodes[0] != e.TreeNodes[0] {
		t.Fatalf("tree nodes mismatch: %+v", got.TreeNodes)
	}
	if got.Upgrade == nil || got.Upgrade.Start != e.Upgrade.Start || got.Upgrade.Length != e.Upgrade.Length ||
		got.Upgrade.Fork != e.Upgrade.Fork || !bytes.Equal(got.Upgrade.Signature, e.Upgrade.Signature) {
		t.Fatalf("upgrade mismatch: %+v", got.Upgrade)
	}
	if got.Bitfield == nil || *got.Bitfield != *e.Bitfield {
		t.Fatalf("bitfield mismatch: %+v", got.Bitfield)
	}
}

func TestEntryRoundTripAllFieldsAbsent(t *testing.T) {
	e := Entry{}
	buf := EncodeEntry(e)
	got, err := DecodeEntry(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.UserData != nil || got.TreeNodes != nil || got.Upgrade != nil || got.Bitfield != nil {
		t.Fatalf("expected all-empty entry, got %+v", got)
	}
}

func TestFrameUnframeRoundTrip(t *testing.T) {
	payload := []byte("some entry bytes")
	f := frame(payload)
	got, consumed, ok := unframe(f)
	if !ok {
		t.Fatalf("expected frame to be valid")
	}
	if consumed != len(f) {
		t.Fatalf("consumed %d, want %d", consumed, len(f))
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestUnframeDetectsTornWrite(t *testing.T) {
	payload := []byte("some entry bytes")
	f := frame(payload)
	torn := f[:len(f)-3] // simulate a write cut off partway through the payload
	_, _, ok := unframe(torn)
	if ok {
		t.Fatalf("expected torn frame to be rejected")
	}
}

func TestUnframeDetectsCorruptedPayload(t *testing.T) {
	payload := []byte("some entry bytes")
	f := frame(payload)
	f[8] ^= 0xFF // flip every bit of the first payload byte without touching the stored CRC
	_, _, ok := unframe(f)
	if ok {
		t.Fatalf("expected corrupted frame to be rejected")
	}
}

func newHeader(length, fork uint64) Header {
	return Header{
		Length:     length,
		ByteLength: length * 5,
		Fork:       fork,
		PublicKey:  bytes.Repeat([]byte{1}, 32),
	}
}

func TestOplogOpenFreshStore(t *testing.T) {
	ctx := context.Background()
	ol, h, entries, err := Open(ctx, memstore.New(), memstore.New())
	if err != nil {
		t.Fatal(err)
	}
	if h.Length != 0 || len(entries) != 0 {
		t.Fatalf("expected empty fresh header and no entries, got %+v / %d entries", h, len(entries))
	}
	if ol == nil {
		t.Fatalf("expected non-nil oplog")
	}
}

func TestOplogCommitAndReopenRecoversHeader(t *testing.T) {
	ctx := context.Background()
	headerStore := memstore.New()
	entryStore := memstore.New()

	ol, _, _, err := Open(ctx, headerStore, entryStore)
	if err != nil {
		t.Fatal(err)
	}
	h := newHeader(2, 0)
	if err := ol.Commit(ctx, h); err != nil {
		t.Fatal(err)
	}

	_, got, _, err := Open(ctx, headerStore, entryStore)
	if err != nil {
		t.Fatal(err)
	}
	if got.Length != 2 || got.Fork != 0 {
		t.Fatalf("got %+v, want length=2 fork=0", got)
	}
}

func TestOplogSecondCommitDoesNotClobberFirstUntilFlushed(t *testing.T) {
	ctx := context.Background()
	headerStore := memstore.New()
	entryStore := memstore.New()

	ol, _, _, err := Open(ctx, headerStore, entryStore)
	if err != nil {
		t.Fatal(err)
	}
	if err := ol.Commit(ctx, newHeader(1, 0)); err != nil {
		t.Fatal(err)
	}
	if err := ol.Commit(ctx, newHeader(2, 0)); err != nil {
		t.Fatal(err)
	}

	// The first commit went to slot 1 (slot 0 was active on a fresh
	// store); the second went to slot 0, leaving slot 1 intact.
	prev, err := headerStore.ReadAt(ctx, HeaderSlotSize, HeaderSlotSize)
	if err != nil {
		t.Fatal(err)
	}
	if first, err := DecodeHeader(prev); err != nil || first.Length != 1 {
		t.Fatalf("first commit's slot clobbered: %+v, %v", first, err)
	}

	_, got, _, err := Open(ctx, headerStore, entryStore)
	if err != nil {
		t.Fatal(err)
	}
	if got.Length != 2 {
		t.Fatalf("got length %d, want 2 (latest commit should win)", got.Length)
	}
}

func TestOplogReplaysAppendedEntries(t *testing.T) {
	ctx := context.Background()
	headerStore := memstore.New()
	entryStore := memstore.New()

	ol, _, _, err := Open(ctx, headerStore, entryStore)
	if err != nil {
		t.Fatal(err)
	}
	e1 := Entry{UserData: []byte("Hello")}
	e2 := Entry{UserData: []byte("World")}
	if err := ol.Append(ctx, e1); err != nil {
		t.Fatal(err)
	}
	if err := ol.Append(ctx, e2); err != nil {
		t.Fatal(err)
	}

	_, _, entries, err := Open(ctx, headerStore, entryStore)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if !bytes.Equal(entries[0].UserData, e1.UserData) || !bytes.Equal(entries[1].UserData, e2.UserData) {
		t.Fatalf("entry contents mismatch: %+v", entries)
	}
}

func TestOplogReplayStopsAtTornEntry(t *testing.T) {
	ctx := context.Background()
	headerStore := memstore.New()
	entryStore := memstore.New()

	ol, _, _, err := Open(ctx, headerStore, entryStore)
	if err != nil {
		t.Fatal(err)
	}
	if err := ol.Append(ctx, Entry{UserData: []byte("Hello")}); err != nil {
		t.Fatal(err)
	}
	if err := ol.Append(ctx, Entry{UserData: []byte("World")}); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash mid-write of the third entry by appending a
	// truncated frame directly, bypassing Append's flush.
	torn := frame(EncodeEntry(Entry{UserData: []byte("third")}))
	torn = torn[:len(torn)-4]
	if err := entryStore.WriteAt(ctx, ol.entryEnd, torn); err != nil {
		t.Fatal(err)
	}

	_, _, entries, err := Open(ctx, headerStore, entryStore)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (torn third entry must be discarded)", len(entries))
	}
}

func TestOplogCompactDropsEntryLog(t *testing.T) {
	ctx := context.Background()
	headerStore := memstore.New()
	entryStore := memstore.New()

	ol, _, _, err := Open(ctx, headerStore, entryStore)
	if err != nil {
		t.Fatal(err)
	}
	if err := ol.Append(ctx, Entry{UserData: []byte("Hello")}); err != nil {
		t.Fatal(err)
	}
	if err := ol.Compact(ctx, newHeader(1, 0)); err != nil {
		t.Fatal(err)
	}

	_, h, entries, err := Open(ctx, headerStore, entryStore)
	if err != nil {
		t.Fatal(err)
	}
	if h.Length != 1 {
		t.Fatalf("got header length %d, want 1", h.Length)
	}
	if len(entries) != 0 {
		t.Fatalf("expected compaction to discard entry log, got %d entries", len(entries))
	}
}

func TestOplogHigherForkWinsOverLongerLength(t *testing.T) {
	ctx := context.Background()
	headerStore := memstore.New()
	entryStore := memstore.New()

	ol, _, _, err := Open(ctx, headerStore, entryStore)
	if err != nil {
		t.Fatal(err)
	}
	if err := ol.Commit(ctx, newHeader(5, 0)); err != nil {
		t.Fatal(err)
	}
	// After a truncate-and-rewrite the header carries a higher fork; it
	// must win even though its length (2) is below the older one's (5).
	if err := ol.Commit(ctx, newHeader(2, 1)); err != nil {
		t.Fatal(err)
	}

	_, got, _, err := Open(ctx, headerStore, entryStore)
	if err != nil {
		t.Fatal(err)
	}
	if got.Fork != 1 || got.Length != 2 {
		t.Fatalf("got %+v, want fork=1 length=2", got)
	}
}
