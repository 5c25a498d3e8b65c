package relics

import "math/big"

// Pool is a constant-product (x*y=k) AMM pool between a relic's base and
// quote supply, auto-created when state.mints reaches cap (spec §3/§4.4).
type Pool struct {
	BaseSupply    *big.Int
	QuoteSupply   *big.Int
	FeePercentage *big.Int // expressed in basis points out of 10000; 100 == 1%
}

// NewPool creates a pool with the standard 1% fee.
func NewPool(base, quote *big.Int) *Pool {
	return &Pool{
		BaseSupply:    new(big.Int).Set(base),
		QuoteSupply:   new(big.Int).Set(quote),
		FeePercentage: big.NewInt(100),
	}
}

const feeDenominator = 10000

// SwapDirection selects which side of the pool the caller is paying in.
type SwapDirection int

const (
	BaseToQuote SwapDirection = iota
	QuoteToBase
)

// SwapResult is the outcome of a successful pool swap.
type SwapResult struct {
	InputAmount  *big.Int
	OutputAmount *big.Int
	Fee          *big.Int
}

// k returns base*quote.
func (p *Pool) k() *big.Int {
	return new(big.Int).Mul(p.BaseSupply, p.QuoteSupply)
}

func (p *Pool) reserves(dir SwapDirection) (in, out *big.Int) {
	if dir == BaseToQuote {
		return p.BaseSupply, p.QuoteSupply
	}
	return p.QuoteSupply, p.BaseSupply
}

func (p *Pool) setReserves(dir SwapDirection, in, out *big.Int) {
	if dir == BaseToQuote {
		p.BaseSupply, p.QuoteSupply = in, out
	} else {
		p.QuoteSupply, p.BaseSupply = in, out
	}
}

// SwapExactInput pays inputAmount into the dir side, requires the
// opposing side yield at least minOutput, and mutates the pool in place
// on success. Fee is charged on the input leg (spec §4.4's
// Input/BaseToQuote and Input/QuoteToBase formulas).
func (p *Pool) SwapExactInput(dir SwapDirection, inputAmount, minOutput *big.Int) (*SwapResult, error) {
	if p.BaseSupply.Sign() <= 0 || p.QuoteSupply.Sign() <= 0 {
		return nil, relicErr(ErrSwapNotAvailable)
	}
	reserveIn, reserveOut := p.reserves(dir)
	k := p.k()

	feeAmount := mulDiv(inputAmount, p.feeBps(), feeDenominator)
	effectiveIn := new(big.Int).Sub(inputAmount, feeAmount)
	newReserveIn := new(big.Int).Add(reserveIn, effectiveIn)
	if newReserveIn.Sign() <= 0 {
		return nil, relicErr(ErrSwapFailed)
	}
	newReserveOut := new(big.Int).Quo(k, newReserveIn)
	if newReserveOut.Cmp(reserveOut) > 0 {
		return nil, relicErr(ErrSwapFailed)
	}
	outputAmount := new(big.Int).Sub(reserveOut, newReserveOut)
	if outputAmount.Sign() <= 0 {
		return nil, relicErr(ErrInsufficientLiquidity)
	}
	if minOutput != nil && outputAmount.Cmp(minOutput) < 0 {
		return nil, relicErr(ErrSlippage)
	}

	// The fee never enters the pool: it is routed to the relic owner's
	// claimable balance or burned (spec §4.5 step 6), so reserves only
	// grow by the net (post-fee) input.
	p.setReserves(dir, newReserveIn, newReserveOut)

	return &SwapResult{InputAmount: inputAmount, OutputAmount: outputAmount, Fee: feeAmount}, nil
}

// SwapExactOutput solves for the input amount required to receive exactly
// outputAmount from the dir side, requires it not exceed maxInput, and
// mutates the pool in place on success.
func (p *Pool) SwapExactOutput(dir SwapDirection, outputAmount, maxInput *big.Int) (*SwapResult, error) {
	if p.BaseSupply.Sign() <= 0 || p.QuoteSupply.Sign() <= 0 {
		return nil, relicErr(ErrSwapNotAvailable)
	}
	reserveIn, reserveOut := p.reserves(dir)
	k := p.k()

	if outputAmount.Cmp(reserveOut) >= 0 {
		return nil, relicErr(ErrInsufficientLiquidity)
	}
	newReserveOut := new(big.Int).Sub(reserveOut, outputAmount)
	newReserveInNoFee := new(big.Int).Quo(k, newReserveOut)
	// round up the division so the pool never loses value to truncation
	if new(big.Int).Mul(newReserveInNoFee, newReserveOut).Cmp(k) < 0 {
		newReserveInNoFee.Add(newReserveInNoFee, big1)
	}
	deltaNoFee := new(big.Int).Sub(newReserveInNoFee, reserveIn)
	if deltaNoFee.Sign() < 0 {
		deltaNoFee = big.NewInt(0)
	}
	// inflate by 1/(1-f): delta = deltaNoFee * feeDenominator / (feeDenominator - feeBps)
	denom := new(big.Int).Sub(big.NewInt(feeDenominator), p.feeBps())
	inputAmount := mulDivCeil(deltaNoFee, big.NewInt(feeDenominator), denom)
	fee := new(big.Int).Sub(inputAmount, deltaNoFee)

	if maxInput != nil && inputAmount.Cmp(maxInput) > 0 {
		return nil, relicErr(ErrSlippage)
	}

	// As in SwapExactInput, only the net (post-fee) amount enters the pool.
	finalReserveIn := new(big.Int).Add(reserveIn, deltaNoFee)
	p.setReserves(dir, finalReserveIn, newReserveOut)

	return &SwapResult{InputAmount: inputAmount, OutputAmount: outputAmount, Fee: fee}, nil
}

func (p *Pool) feeBps() *big.Int {
	if p.FeePercentage == nil {
		return big.NewInt(100)
	}
	return p.FeePercentage
}

func mulDiv(a, b *big.Int, d int64) *big.Int {
	n := new(big.Int).Mul(a, b)
	return n.Quo(n, big.NewInt(d))
}

func mulDivCeil(a, b, d *big.Int) *big.Int {
	n := new(big.Int).Mul(a, b)
	q, r := new(big.Int), new(big.Int)
	q.QuoRem(n, d, r)
	if r.Sign() != 0 {
		q.Add(q, big1)
	}
	return q
}

