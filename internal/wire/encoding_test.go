package wire

import (
	"bytes"
	"testing"
)

func TestUvarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40, 1<<63 - 1}
	for _, v := range values {
		buf := PutUvarint(nil, v)
		if len(buf) != UvarintLen(v) {
			t.Fatalf("UvarintLen(%d) = %d, encoded length %d", v, UvarintLen(v), len(buf))
		}
		got, n, err := Uvarint(buf)
		if err != nil {
			t.Fatalf("Uvarint(%d) decode error: %v", v, err)
		}
		if n != len(buf) {
			t.Fatalf("Uvarint(%d) consumed %d, want %d", v, n, len(buf))
		}
		if got != v {
			t.Fatalf("Uvarint round trip got %d, want %d", got, v)
		}
	}
}

func TestUvarintTruncatedIsMalformed(t *testing.T) {
	buf := PutUvarint(nil, 1<<20)
	_, _, err := Uvarint(buf[:len(buf)-1])
	if err == nil {
		t.Fatalf("expected error decoding truncated varint")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	orig := []byte("Hello, World!")
	buf := PutBytes(nil, orig)
	got, n, err := Bytes(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if !bytes.Equal(got, orig) {
		t.Fatalf("got %q, want %q", got, orig)
	}
}

func TestBytesRejectsOversizedLength(t *testing.T) {
	buf := PutUvarint(nil, 1<<40)
	_, _, err := Bytes(buf)
	if err == nil {
		t.Fatalf("expected error for length exceeding remaining buffer")
	}
}

func TestFixedHashRoundTrip(t *testing.T) {
	var h [32]byte
	for i := range h {
		h[i] = byte(i)
	}
	buf := PutFixedHash(nil, h)
	got, n, err := FixedHash(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 32 || got != h {
		t.Fatalf("FixedHash round trip failed")
	}
}

func TestUint32Uint64RoundTrip(t *testing.T) {
	buf := PutUint32(nil, 0xdeadbeef)
	v32, n, err := Uint32(buf)
	if err != nil || n != 4 || v32 != 0xdeadbeef {
		t.Fatalf("uint32 round trip failed: %v %d %x", err, n, v32)
	}
	buf = PutUint64(nil, 0x0102030405060708)
	v64, n, err := Uint64(buf)
	if err != nil || n != 8 || v64 != 0x0102030405060708 {
		t.Fatalf("uint64 round trip failed: %v %d %x", err, n, v64)
	}
}

func TestOptionalBitmap(t *testing.T) {
	var b OptionalBitmap
	b = b.Set(0).Set(3)
	if !b.Has(0) || !b.Has(3) {
		t.Fatalf("expected bits 0 and 3 set")
	}
	if b.Has(1) || b.Has(2) {
		t.Fatalf("unexpected bit set")
	}
}

func TestEncodingIsDeterministic(t *testing.T) {
	a := PutBytes(PutUvarint(nil, 42), []byte("x"))
	b := PutBytes(PutUvarint(nil, 42), []byte("x"))
	if !bytes.Equal(a, b) {
		t.Fatalf("equal logical values encoded differently")
	}
}
