package relics

import (
	"math/big"
	"testing"
)

func TestRelicRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 25, 26, 27, 51, 52, 676, 701}
	for _, c := range cases {
		r := NewRelic(big.NewInt(c))
		s := r.String()
		got, err := ParseRelic(s)
		if err != nil {
			t.Fatalf("ParseRelic(%s): %v", s, err)
		}
		if got.N.Int64() != c {
			t.Fatalf("round trip %d -> %s -> %d", c, s, got.N.Int64())
		}
	}
}

func TestRelicNames(t *testing.T) {
	cases := map[int64]string{
		0:  "A",
		25: "Z",
		26: "AA",
		27: "AB",
		51: "AZ",
		52: "BA",
	}
	for n, want := range cases {
		got := NewRelic(big.NewInt(n)).String()
		if got != want {
			t.Fatalf("relic(%d) = %s, want %s", n, got, want)
		}
	}
}

func TestSealingFeeTiers(t *testing.T) {
	cases := []struct {
		name string
		fee  int64
	}{
		{"A", 210000},
		{"AB", 21000},
		{"ABC", 2100},
		{"ABCD", 500},
		{"ABCDEF", 500},
		{"ABCDEFG", 10},
		{"ABCDEFGHIJKL", 10},
		{"ABCDEFGHIJKLM", 1},
	}
	for _, c := range cases {
		r, err := ParseRelic(c.name)
		if err != nil {
			t.Fatalf("ParseRelic(%s): %v", c.name, err)
		}
		want := new(big.Int).Mul(big.NewInt(c.fee), big.NewInt(baseUnitsPerToken))
		if r.SealingFee().Cmp(want) != 0 {
			t.Fatalf("SealingFee(%s) = %s, want %s", c.name, r.SealingFee(), want)
		}
	}
}
