package merkletree

import (
	"context"
	"testing"

	"github.com/flatcore/corelog/internal/corelogerrors"
	"github.com/flatcore/corelog/internal/logcrypto"
)

type memProvider struct {
	nodes map[uint64]Node
}

func newMemProvider() *memProvider {
	return &memProvider{nodes: make(map[uint64]Node)}
}

func (p *memProvider) GetNode(ctx context.Context, index uint64) (Node, bool, error) {
	n, ok := p.nodes[index]
	return n, ok, nil
}

func (p *memProvider) store(nodes []Node) {
	for _, n := range nodes {
		p.nodes[n.Index] = n
	}
}

type memData struct {
	blocks map[uint64][]byte
}

func (d *memData) GetBlock(ctx context.Context, index uint64) ([]byte, bool, error) {
	b, ok := d.blocks[index]
	return b, ok, nil
}

func mustAppend(t *testing.T, tr *Tree, provider *memProvider, blocks ...[]byte) {
	t.Helper()
	cs, err := tr.Append(blocks)
	if err != nil {
		t.Fatal(err)
	}
	provider.store(cs.NewNodes)
	tr.Commit(cs)
}

func TestAppendLengthAndByteLength(t *testing.T) {
	kp, _ := logcrypto.GenerateKeyPair()
	tr := New(kp)
	provider := newMemProvider()
	mustAppend(t, tr, provider, []byte("Hello"), []byte("World"))

	if tr.Length != 2 {
		t.Fatalf("Length = %d, want 2", tr.Length)
	}
	if tr.ByteLength != 10 {
		t.Fatalf("ByteLength = %d, want 10", tr.ByteLength)
	}
}

func TestAppendEmptyBatchIsNoop(t *testing.T) {
	kp, _ := logcrypto.GenerateKeyPair()
	tr := New(kp)
	provider := newMemProvider()
	mustAppend(t, tr, provider, []byte("a"))
	before := tr.Length
	mustAppend(t, tr, provider)
	if tr.Length != before {
		t.Fatalf("empty append changed length: %d -> %d", before, tr.Length)
	}
}

func TestFullRootsStableAcrossRecompute(t *testing.T) {
	kp, _ := logcrypto.GenerateKeyPair()
	tr := New(kp)
	provider := newMemProvider()
	for i := 0; i < 7; i++ {
		mustAppend(t, tr, provider, []byte{byte(i)})
	}
	th1 := tr.TreeHash()
	th2 := tr.TreeHash()
	if th1 != th2 {
		t.Fatalf("tree hash not a pure function of roots")
	}
}

func TestAppendWithoutSecretKeyFails(t *testing.T) {
	kp, _ := logcrypto.GenerateKeyPair()
	ro := logcrypto.ReadOnly(kp.PublicKey)
	tr := New(ro)
	_, err := tr.Append([][]byte{[]byte("x")})
	if err != corelogerrors.ErrPermissionDenied {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestTruncateIncrementsFork(t *testing.T) {
	kp, _ := logcrypto.GenerateKeyPair()
	tr := New(kp)
	provider := newMemProvider()
	for i := 0; i < 5; i++ {
		mustAppend(t, tr, provider, []byte{byte(i)})
	}
	cs, err := tr.Truncate(context.Background(), 3, provider)
	if err != nil {
		t.Fatal(err)
	}
	tr.Commit(cs)
	if tr.Fork != 1 {
		t.Fatalf("Fork = %d, want 1", tr.Fork)
	}
	if tr.Length != 3 {
		t.Fatalf("Length = %d, want 3", tr.Length)
	}
}

func TestClearNeverChangesRootsViaThisPackage(t *testing.T) {
	// merkletree has no concept of "clear": a clear only touches data
	// and the bitfield, never tree state. This is asserted at the
	// core facade level (core_test.go); this test only documents that
	// Tree exposes no clear-like mutator.
}

func TestBlockProofRoundTrip(t *testing.T) {
	kp, _ := logcrypto.GenerateKeyPair()
	tr := New(kp)
	provider := newMemProvider()
	blocks := [][]byte{[]byte("Hello"), []byte("World"), []byte("third")}
	data := &memData{blocks: map[uint64][]byte{}}
	for i, b := range blocks {
		mustAppend(t, tr, provider, b)
		data.blocks[uint64(i)] = b
	}

	idx := uint64(1)
	proof, err := tr.CreateProof(context.Background(), Request{Block: &idx}, provider, data)
	if err != nil {
		t.Fatal(err)
	}
	if proof.Block == nil {
		t.Fatalf("expected block proof")
	}

	err = Verify(proof, VerifyOptions{
		PublicKey:    kp.PublicKey,
		TrustedRoots: tr.Roots,
	})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestBlockProofRejectsTamperedValue(t *testing.T) {
	kp, _ := logcrypto.GenerateKeyPair()
	tr := New(kp)
	provider := newMemProvider()
	data := &memData{blocks: map[uint64][]byte{}}
	for i, b := range [][]byte{[]byte("Hello"), []byte("World")} {
		mustAppend(t, tr, provider, b)
		data.blocks[uint64(i)] = b
	}

	idx := uint64(0)
	proof, err := tr.CreateProof(context.Background(), Request{Block: &idx}, provider, data)
	if err != nil {
		t.Fatal(err)
	}
	proof.Block.Value = []byte("tampered")

	err = Verify(proof, VerifyOptions{PublicKey: kp.PublicKey, TrustedRoots: tr.Roots})
	if err != corelogerrors.ErrBadHash {
		t.Fatalf("expected ErrBadHash, got %v", err)
	}
}

func TestSeekBlockAtByteDescendsPastFirstLeaf(t *testing.T) {
	kp, _ := logcrypto.GenerateKeyPair()
	tr := New(kp)
	provider := newMemProvider()
	// A power-of-two leaf count roots into a single full root spanning
	// all four blocks, so a naive "return the root's first leaf" seek
	// would always answer block 0 regardless of target.
	mustAppend(t, tr, provider, []byte("aa"), []byte("bb"), []byte("ccc"), []byte("d"))

	got, err := tr.seekBlockAtByte(context.Background(), 5, provider)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Fatalf("seekBlockAtByte(5) = %d, want 2 (byte 5 falls inside block 2, \"ccc\")", got)
	}

	got, err = tr.seekBlockAtByte(context.Background(), 0, provider)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Fatalf("seekBlockAtByte(0) = %d, want 0", got)
	}

	got, err = tr.seekBlockAtByte(context.Background(), 7, provider)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Fatalf("seekBlockAtByte(7) = %d, want 3 (byte 7 falls inside block 3, \"d\")", got)
	}

	if _, err := tr.seekBlockAtByte(context.Background(), 8, provider); err == nil {
		t.Fatalf("expected out-of-range error for target == byte_length")
	}
}

func TestUpgradeProofSignatureVerifies(t *testing.T) {
	kp, _ := logcrypto.GenerateKeyPair()
	tr := New(kp)
	provider := newMemProvider()
	mustAppend(t, tr, provider, []byte("a"), []byte("b"))

	from := uint64(0)
	proof, err := tr.CreateProof(context.Background(), Request{UpgradeFrom: &from}, provider, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = Verify(proof, VerifyOptions{PublicKey: kp.PublicKey})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}
