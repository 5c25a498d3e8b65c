package relics

import (
	"math/big"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 127, 128, 16384, 1 << 20, 1<<32 - 1}
	for _, c := range cases {
		n := big.NewInt(c)
		enc := EncodeVarint(nil, n)
		got, consumed, err := DecodeVarint(enc)
		if err != nil {
			t.Fatalf("decode(%d): %v", c, err)
		}
		if consumed != len(enc) {
			t.Fatalf("decode(%d): consumed %d, want %d", c, consumed, len(enc))
		}
		if got.Cmp(n) != 0 {
			t.Fatalf("decode(%d): got %s", c, got)
		}
	}
}

func TestVarintRoundTripMax(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	enc := EncodeVarint(nil, max)
	got, _, err := DecodeVarint(enc)
	if err != nil {
		t.Fatalf("decode(max): %v", err)
	}
	if got.Cmp(max) != 0 {
		t.Fatalf("decode(max): got %s, want %s", got, max)
	}
}

func TestVarintUnterminated(t *testing.T) {
	_, _, err := DecodeVarint([]byte{0x80, 0x80})
	if err != ErrVarintUnterminated {
		t.Fatalf("got %v, want ErrVarintUnterminated", err)
	}
}

func TestVarintMultiple(t *testing.T) {
	var buf []byte
	buf = EncodeVarint(buf, big.NewInt(5))
	buf = EncodeVarint(buf, big.NewInt(300))
	v1, n1, err := DecodeVarint(buf)
	if err != nil || v1.Int64() != 5 {
		t.Fatalf("first: %v %v", v1, err)
	}
	v2, _, err := DecodeVarint(buf[n1:])
	if err != nil || v2.Int64() != 300 {
		t.Fatalf("second: %v %v", v2, err)
	}
}
