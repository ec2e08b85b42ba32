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

package core

import (
	"context"
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/flatcore/corelog/internal/corelogerrors"
	"github.com/flatcore/corelog/internal/logcrypto"
	"github.com/flatcore/corelog/internal/merkletree"
	"github.com/flatcore/corelog/internal/storage/memstore"
)

func newMemConfig(t *testing.T) Config {
	t.Helper()
	kp, err := logcrypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	return Config{
		HeaderStore:   memstore.New(),
		EntryStore:    memstore.New(),
		TreeStore:     memstore.New(),
		DataStore:     memstore.New(),
		BitfieldStore: memstore.New(),
		KeyPair:       kp,
	}
}

func TestAppendReportsLengthAndByteLength(t *testing.T) {
	ctx := context.Background()
	cfg := newMemConfig(t)
	c, err := Open(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(ctx)

	info, err := c.Append(ctx, [][]byte{[]byte("Hello"), []byte("World")})
	if err != nil {
		t.Fatalf("append failed: %s", spew.Sdump(err))
	}
	want := Info{Length: 2, ByteLength: 10, ContiguousLength: 2, Fork: 0, Padding: 0}
	if info != want {
		t.Fatalf("got %+v, want %+v\n%s", info, want, spew.Sdump(c))
	}
}

func TestGetReturnsAppendedBlocks(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, newMemConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(ctx)

	if _, err := c.Append(ctx, [][]byte{[]byte("Hello"), []byte("World")}); err != nil {
		t.Fatal(err)
	}
	got, err := c.Get(ctx, 1, GetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "World" {
		t.Fatalf("got %q, want %q", got, "World")
	}
}

func TestGetOutOfRangeFails(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, newMemConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(ctx)

	if _, err := c.Append(ctx, [][]byte{[]byte("only")}); err != nil {
		t.Fatal(err)
	}
	_, err = c.Get(ctx, 5, GetOptions{})
	if !errors.Is(err, corelogerrors.ErrOutOfRange) {
		t.Fatalf("got %v, want ErrOutOfRange", err)
	}
}

func TestClearDropsContiguousLengthButNotLengthOrTree(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, newMemConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(ctx)

	blocks := make([][]byte, 9)
	for i := range blocks {
		blocks[i] = []byte{byte('a' + i)}
	}
	if _, err := c.Append(ctx, blocks); err != nil {
		t.Fatal(err)
	}
	beforeLength := c.tree.Length
	beforeByteLength := c.tree.ByteLength
	beforeFork := c.tree.Fork
	beforeTreeHash := c.tree.TreeHash()

	if err := c.Clear(ctx, 5, nil); err != nil {
		t.Fatal(err)
	}
	seven := uint64(9)
	if err := c.Clear(ctx, 7, &seven); err != nil {
		t.Fatal(err)
	}

	info, err := c.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.ContiguousLength != 5 {
		t.Fatalf("got contiguous_length %d, want 5", info.ContiguousLength)
	}
	if info.Length != beforeLength || info.ByteLength != beforeByteLength || info.Fork != beforeFork {
		t.Fatalf("clear mutated length/byte_length/fork: %+v", info)
	}
	if c.tree.TreeHash() != beforeTreeHash {
		t.Fatalf("clear changed the tree roots")
	}

	for _, i := range []uint64{5, 7, 8} {
		if _, err := c.Get(ctx, i, GetOptions{Wait: false}); !errors.Is(err, corelogerrors.ErrMissingBlock) {
			t.Fatalf("block %d: got %v, want ErrMissingBlock", i, err)
		}
	}
	if _, err := c.Get(ctx, 6, GetOptions{}); err != nil {
		t.Fatalf("block 6 should still be present: %v", err)
	}
}

func TestTruncateThenAppendBumpsForkAndInvalidatesOldProof(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, newMemConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(ctx)

	blocks := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e")}
	if _, err := c.Append(ctx, blocks); err != nil {
		t.Fatal(err)
	}
	pub := append([]byte(nil), c.tree.KeyPair().PublicKey...)

	oldProof, err := c.CreateProof(ctx, merkletree.Request{Block: uint64Ptr(2)})
	if err != nil {
		t.Fatal(err)
	}

	info, err := c.Truncate(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if info.Fork != 1 {
		t.Fatalf("got fork %d after truncate, want 1", info.Fork)
	}

	if _, err := c.Append(ctx, [][]byte{[]byte("z")}); err != nil {
		t.Fatal(err)
	}
	info, err = c.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.Fork != 1 || info.Length != 4 {
		t.Fatalf("got %+v, want fork=1 length=4", info)
	}

	newUpgrade, err := c.CreateProof(ctx, merkletree.Request{UpgradeFrom: uint64Ptr(0)})
	if err != nil {
		t.Fatal(err)
	}
	err = c.Verify(oldProof, merkletree.VerifyOptions{
		PublicKey:    pub,
		TrustedRoots: newUpgrade.Upgrade.Nodes,
		ProofFork:    uint64Ptr(0),
		TrustedFork:  uint64Ptr(1),
	})
	if err == nil {
		t.Fatalf("expected stale proof against new roots to fail verification")
	}
}

func TestCrashRecoveryReplaysUncompactedEntries(t *testing.T) {
	ctx := context.Background()
	headerStore := memstore.New()
	entryStore := memstore.New()
	treeStore := memstore.New()
	dataStore := memstore.New()
	bitfieldStore := memstore.New()
	kp, err := logcrypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		HeaderStore: headerStore, EntryStore: entryStore,
		TreeStore: treeStore, DataStore: dataStore, BitfieldStore: bitfieldStore,
		KeyPair: kp,
	}
	c, err := Open(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Append(ctx, [][]byte{[]byte("Hello"), []byte("World")}); err != nil {
		t.Fatal(err)
	}
	// Do not Close; simulate a crash by reopening over the same
	// backing stores without flushing further state.
	reopened, err := Open(ctx, Config{
		HeaderStore: headerStore, EntryStore: entryStore,
		TreeStore: treeStore, DataStore: dataStore, BitfieldStore: bitfieldStore,
		KeyPair: kp,
	})
	if err != nil {
		t.Fatalf("reopen after simulated crash failed: %s", spew.Sdump(err))
	}
	defer reopened.Close(ctx)

	info, err := reopened.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.Length != 2 || info.ByteLength != 10 {
		t.Fatalf("recovered state %+v, want length=2 byte_length=10", info)
	}
	got, err := reopened.Get(ctx, 0, GetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Hello" {
		t.Fatalf("got %q, want %q", got, "Hello")
	}
}

func TestPeriodicCompactionTruncatesEntryLog(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, newMemConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(ctx)

	for i := 0; i < compactThreshold+2; i++ {
		if _, err := c.Append(ctx, [][]byte{[]byte("x")}); err != nil {
			t.Fatal(err)
		}
	}
	if c.pendingEntries >= compactThreshold {
		t.Fatalf("expected a compaction to have reset pendingEntries, got %d", c.pendingEntries)
	}
}

// TestCompactionSurvivesReopen guards against a compaction writing a
// header that predates the very append that triggered it: if the
// header checkpoint() persists during compaction doesn't already
// reflect the triggering append, reopening drops that append even
// though Append already returned success for it.
func TestCompactionSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	headerStore := memstore.New()
	entryStore := memstore.New()
	treeStore := memstore.New()
	dataStore := memstore.New()
	bitfieldStore := memstore.New()
	kp, err := logcrypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	cfg := Config{
		HeaderStore: headerStore, EntryStore: entryStore,
		TreeStore: treeStore, DataStore: dataStore, BitfieldStore: bitfieldStore,
		KeyPair: kp,
	}

	c, err := Open(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}

	var lastInfo Info
	for i := 0; i < compactThreshold; i++ {
		lastInfo, err = c.Append(ctx, [][]byte{[]byte{byte(i)}})
		if err != nil {
			t.Fatal(err)
		}
	}
	// The compactThreshold-th append above is the one that pushed
	// pendingEntries to compactThreshold and triggered the compaction
	// branch of checkpoint; lastInfo is its return value.
	if c.pendingEntries != 0 {
		t.Fatalf("expected the %d-th append to have triggered a compaction, pendingEntries=%d", compactThreshold, c.pendingEntries)
	}
	if err := c.Close(ctx); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(ctx, Config{
		HeaderStore: headerStore, EntryStore: entryStore,
		TreeStore: treeStore, DataStore: dataStore, BitfieldStore: bitfieldStore,
		KeyPair: kp,
	})
	if err != nil {
		t.Fatalf("reopen after compaction failed: %s", spew.Sdump(err))
	}
	defer reopened.Close(ctx)

	info, err := reopened.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info != lastInfo {
		t.Fatalf("reopened state %+v, want the pre-close state %+v (compaction must not drop the triggering append)", info, lastInfo)
	}
	last := uint64(compactThreshold - 1)
	got, err := reopened.Get(ctx, last, GetOptions{})
	if err != nil {
		t.Fatalf("block %d missing after reopen: %v", last, err)
	}
	if len(got) != 1 || got[0] != byte(compactThreshold-1) {
		t.Fatalf("block %d = %v, want [%d]", last, got, compactThreshold-1)
	}
}

func TestCloseRejectsFurtherOperations(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, newMemConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(ctx); err != nil {
		t.Fatal(err)
	}
	_, err = c.Append(ctx, [][]byte{[]byte("too late")})
	if !errors.Is(err, corelogerrors.ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}

func uint64Ptr(v uint64) *uint64 { return &v }
