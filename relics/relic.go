package relics

import (
	"math/big"
	"strings"
)

// Relic is a fungible-token identity: an unsigned 128-bit integer under a
// bijection with uppercase A-Z strings of 1..=28 characters. Grounded on
// original_source/src/relics/relic.rs's bijective-base-26 codec: unlike
// plain base-26, this numbering has no leading-zero ambiguity, so every
// string up to 28 letters has exactly one integer and vice versa.
type Relic struct {
	N *big.Int
}

var big26 = big.NewInt(26)
var big1 = big.NewInt(1)

// NewRelic wraps a copy of n as a Relic, treating a nil value as zero
// (this mirrors the tuple-newtype in the source).
func NewRelic(n *big.Int) Relic {
	if n == nil {
		n = new(big.Int)
	}
	return Relic{N: new(big.Int).Set(n)}
}

// String renders the bijective base-26 name.
func (r Relic) String() string {
	n := new(big.Int).Add(r.N, big1)
	var letters []byte
	for n.Sign() > 0 {
		n.Sub(n, big1)
		rem := new(big.Int)
		n.QuoRem(n, big26, rem)
		letters = append(letters, byte('A')+byte(rem.Int64()))
	}
	// letters were produced least-significant first; reverse.
	for i, j := 0, len(letters)-1; i < j; i, j = i+1, j-1 {
		letters[i], letters[j] = letters[j], letters[i]
	}
	if len(letters) == 0 {
		return "A"
	}
	return string(letters)
}

// ParseRelic inverts String, rejecting empty strings, lowercase letters,
// and any non-A-Z byte.
func ParseRelic(s string) (Relic, error) {
	if s == "" {
		return Relic{}, relicErr(ErrInvalidMetadata)
	}
	n := new(big.Int)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'A' || c > 'Z' {
			return Relic{}, relicErr(ErrInvalidMetadata)
		}
		if i > 0 {
			n.Add(n, big1)
		}
		n.Mul(n, big26)
		n.Add(n, big.NewInt(int64(c-'A')))
	}
	return Relic{N: n}, nil
}

// Length returns the number of letters in the relic's canonical name.
func (r Relic) Length() int {
	return len(r.String())
}

// sealingFeeTiers are the base-unit (pre-×10^8) sealing fees by
// name-length tier, per spec.md §4.5 step 2 / relic.rs's sealing_fee.
var sealingFeeTiers = []struct {
	maxLen int
	base   int64
}{
	{1, 210000},
	{2, 21000},
	{3, 2100},
	{6, 500},
	{12, 10},
	{28, 1},
}

const baseUnitsPerToken = 100_000_000

// SealingFee returns the length-tiered sealing fee, denominated in base
// token units (already scaled by 10^8).
func (r Relic) SealingFee() *big.Int {
	length := r.Length()
	for _, tier := range sealingFeeTiers {
		if length <= tier.maxLen {
			return new(big.Int).Mul(big.NewInt(tier.base), big.NewInt(baseUnitsPerToken))
		}
	}
	return big.NewInt(baseUnitsPerToken)
}

// Commitment returns the trailing-zero-trimmed little-endian byte
// encoding of the relic's integer value, used as the on-chain commitment
// so that short names serialize to short commitments.
func (r Relic) Commitment() []byte {
	if r.N.Sign() == 0 {
		return nil
	}
	le := reverseBytes(r.N.Bytes())
	i := len(le)
	for i > 0 && le[i-1] == 0 {
		i--
	}
	return le[:i]
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// IsReserved reports whether the name is reserved for the base token
// ("BONE") or collides with it case-insensitively.
func (r Relic) IsReserved() bool {
	return strings.EqualFold(r.String(), BaseTokenName)
}
