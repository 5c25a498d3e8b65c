// Package relics implements the Relic/Bone token protocol: name and
// identifier encoding, the Keepsake message codec, the AMM pool, mint
// terms, and the per-transaction balance sheet consumed by the block
// updater.
package relics

import "math/big"

// varint encodes a u128 as little-endian 7-bit groups with MSB
// continuation (spec §6.2): the first byte in the stream holds the
// least-significant 7 bits, continuation bit set on every byte but the
// last.

const maxVarintBits = 128

var maxVarintValue = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), maxVarintBits), big.NewInt(1))

// EncodeVarint appends the 7-bit-group encoding of n to dst and returns
// the result. n must be non-negative and fit in 128 bits.
func EncodeVarint(dst []byte, n *big.Int) []byte {
	if n.Sign() == 0 {
		return append(dst, 0)
	}
	v := new(big.Int).Set(n)
	mask := big.NewInt(0x7f)
	for v.Sign() > 0 {
		g := new(big.Int).And(v, mask)
		v.Rsh(v, 7)
		b := byte(g.Uint64())
		if v.Sign() > 0 {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}

// DecodeVarint decodes a single varint from the front of buf, returning
// the value and the number of bytes consumed.
func DecodeVarint(buf []byte) (*big.Int, int, error) {
	n := new(big.Int)
	shift := uint(0)
	for i, b := range buf {
		if shift >= maxVarintBits {
			// Every bit of a 128-bit value is already accounted for; any
			// further continuation byte with non-zero low bits overflows,
			// and a zero one is a redundant (overlong) encoding.
			if b&0x7f != 0 {
				return nil, 0, ErrVarintOverflow
			}
			if b&0x80 != 0 {
				return nil, 0, ErrVarintOverlong
			}
			return n, i + 1, nil
		}
		chunk := new(big.Int).Lsh(big.NewInt(int64(b&0x7f)), shift)
		n.Or(n, chunk)
		if n.Cmp(maxVarintValue) > 0 {
			return nil, 0, ErrVarintOverflow
		}
		if b&0x80 == 0 {
			return n, i + 1, nil
		}
		shift += 7
	}
	return nil, 0, ErrVarintUnterminated
}

// DecodeVarintU64 decodes a single varint and requires it fit in a uint64.
func DecodeVarintU64(buf []byte) (uint64, int, error) {
	n, consumed, err := DecodeVarint(buf)
	if err != nil {
		return 0, 0, err
	}
	if !n.IsUint64() {
		return 0, 0, ErrVarintOverflow
	}
	return n.Uint64(), consumed, nil
}
