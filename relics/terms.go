package relics

import "math/big"

// PriceAt evaluates the price model at mint index x (0-based), saturating
// the hyperbolic formula at zero per spec §3: price(x) = a - b/(c+x).
func (p *PriceModel) PriceAt(x *big.Int) *big.Int {
	if p == nil {
		return big.NewInt(0)
	}
	if p.Fixed != nil {
		return new(big.Int).Set(p.Fixed)
	}
	f := p.Formula
	denom := new(big.Int).Add(f.C, x)
	if denom.Sign() <= 0 {
		return new(big.Int).Set(f.A)
	}
	term := new(big.Int).Quo(f.B, denom)
	price := new(big.Int).Sub(f.A, term)
	if price.Sign() < 0 {
		return big.NewInt(0)
	}
	return price
}

// CumulativePrice sums PriceAt(mintsBefore), ..., PriceAt(mintsBefore+count-1),
// used by multi-mint to compute the total base cost of a batch in one pass.
func (p *PriceModel) CumulativePrice(mintsBefore *big.Int, count uint8) *big.Int {
	total := big.NewInt(0)
	x := new(big.Int).Set(mintsBefore)
	for i := uint8(0); i < count; i++ {
		total.Add(total, p.PriceAt(x))
		x.Add(x, big1)
	}
	return total
}

// Mintable returns the price of the next mint given the caller's safe
// base balance and the relic's current mint count, or the RelicError that
// forbids it. Grounded on spec §4.5 step 4 / relics_entry.rs's mintable.
func (t *MintTerms) Mintable(safeBaseBalance *big.Int, mintsSoFar *big.Int) (*big.Int, error) {
	if t == nil || t.Cap == nil {
		return nil, relicErr(ErrUnmintable)
	}
	if mintsSoFar.Cmp(t.Cap) >= 0 {
		return nil, relicErrDetail(ErrMintCap, t.Cap)
	}
	price := big.NewInt(0)
	if t.Price != nil {
		price = t.Price.PriceAt(mintsSoFar)
	}
	if safeBaseBalance.Cmp(price) < 0 {
		return nil, relicErrDetail(ErrMintInsufficientBalance, price)
	}
	return price, nil
}

// MaxSupply computes subsidy + seed + cap*amount*maxBoostMultiplier,
// returning an overflow RelicError if any product or sum would overflow
// a u128 (spec §4.6's max_supply overflow check).
func (t *MintTerms) MaxSupply(subsidy, seed *big.Int, boost *BoostTerms) (*big.Int, error) {
	maxBoost := big.NewInt(1)
	if boost != nil {
		for _, c := range boost.Chances {
			if c.Multiplier != nil && c.Multiplier.Cmp(maxBoost) > 0 {
				maxBoost = c.Multiplier
			}
		}
	}
	capAmount := new(big.Int).Mul(t.Cap, t.Amount)
	capAmount.Mul(capAmount, maxBoost)
	total := new(big.Int)
	if subsidy != nil {
		total.Add(total, subsidy)
	}
	if seed != nil {
		total.Add(total, seed)
	}
	total.Add(total, capAmount)
	if total.BitLen() > 128 {
		return nil, relicErr(ErrPriceComputationError)
	}
	return total, nil
}

var u128Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big1)

func overflowsU128(n *big.Int) bool {
	return n.Sign() < 0 || n.Cmp(u128Max) > 0
}

// validateMintTerms enforces spec §4.6's enshrining-acceptance checks; a
// failure here downgrades the whole Keepsake to a Cenotaph with
// FlawInvalidEnshrining.
func validateMintTerms(t *MintTerms) error {
	if t.Cap == nil || t.Cap.Sign() <= 0 {
		return relicErr(ErrInvalidEnshrining)
	}
	if t.Amount == nil {
		return relicErr(ErrInvalidEnshrining)
	}
	capAmount := new(big.Int).Mul(t.Cap, t.Amount)
	if overflowsU128(capAmount) {
		return relicErr(ErrInvalidEnshrining)
	}
	if t.MaxPerTx != nil {
		v := new(big.Int).Mul(t.MaxPerTx, t.Amount)
		if overflowsU128(v) {
			return relicErr(ErrInvalidEnshrining)
		}
	}
	if t.MaxPerBlock != nil {
		v := new(big.Int).Mul(t.MaxPerBlock, t.Amount)
		if overflowsU128(v) {
			return relicErr(ErrInvalidEnshrining)
		}
	}
	if t.Price != nil && t.Price.Formula != nil {
		f := t.Price.Formula
		if f.C == nil || f.C.Sign() <= 0 {
			return relicErr(ErrInvalidEnshrining)
		}
		bOverC := new(big.Int).Quo(f.B, f.C)
		if f.A == nil || bOverC.Cmp(f.A) > 0 {
			return relicErr(ErrInvalidEnshrining)
		}
		if t.Cap.Cmp(big.NewInt(1_000_000)) > 0 {
			return relicErr(ErrInvalidEnshrining)
		}
	}
	return nil
}

func validateBoostTerms(boost *BoostTerms) error {
	if boost == nil {
		return nil
	}
	for _, c := range boost.Chances {
		if c.Chance == nil || c.Chance.Sign() == 0 {
			return relicErr(ErrInvalidEnshrining)
		}
		if c.Multiplier == nil || c.Multiplier.Cmp(big1) <= 0 {
			return relicErr(ErrInvalidEnshrining)
		}
	}
	return nil
}
