package relics

import "math/big"

// SealingFee returns the base-token fee burned to seal name, tiered by
// its letter count (spec §4.5 step 2): 1/2/3/4-6/7-12/13+ letters map
// to 210000/21000/2100/500/10/1, each scaled by 10^8 (the base token's
// assumed decimal precision, matching the rest of the protocol's
// integer-only amounts).
func SealingFee(name Relic) *big.Int {
	n := len(name.String())
	var tier int64
	switch {
	case n == 1:
		tier = 210_000
	case n == 2:
		tier = 21_000
	case n == 3:
		tier = 2_100
	case n >= 4 && n <= 6:
		tier = 500
	case n >= 7 && n <= 12:
		tier = 10
	default:
		tier = 1
	}
	fee := big.NewInt(tier)
	return fee.Mul(fee, big.NewInt(100_000_000))
}
