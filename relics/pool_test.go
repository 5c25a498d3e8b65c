package relics

import (
	"math/big"
	"testing"
)

func TestPoolSwapExactInputRoundTrip(t *testing.T) {
	p := NewPool(big.NewInt(1_000_000), big.NewInt(1_000_000))
	res, err := p.SwapExactInput(BaseToQuote, big.NewInt(1000), nil)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res.OutputAmount.Sign() <= 0 {
		t.Fatalf("expected positive output, got %s", res.OutputAmount)
	}
	// fee is ~1% of the input.
	wantFee := big.NewInt(10)
	if res.Fee.Cmp(wantFee) != 0 {
		t.Fatalf("fee = %s, want %s", res.Fee, wantFee)
	}
}

func TestPoolSwapExactOutputInflatesForFee(t *testing.T) {
	p := NewPool(big.NewInt(1_000_000), big.NewInt(1_000_000))
	res, err := p.SwapExactOutput(BaseToQuote, big.NewInt(100), nil)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res.Fee.Sign() <= 0 {
		t.Fatalf("expected positive fee")
	}
	// The fee component should be roughly 1% of the gross input.
	ratio := new(big.Int).Mul(res.Fee, big.NewInt(100))
	ratio.Quo(ratio, res.InputAmount)
	if ratio.Int64() < 0 || ratio.Int64() > 2 {
		t.Fatalf("fee ratio out of expected band: %s%%", ratio)
	}
}

func TestPoolSwapInsufficientLiquidity(t *testing.T) {
	p := NewPool(big.NewInt(100), big.NewInt(100))
	_, err := p.SwapExactOutput(BaseToQuote, big.NewInt(100), nil)
	if err == nil {
		t.Fatalf("expected insufficient liquidity error")
	}
}

func TestPoolSwapSlippageExactInput(t *testing.T) {
	p := NewPool(big.NewInt(1_000_000), big.NewInt(1_000_000))
	_, err := p.SwapExactInput(BaseToQuote, big.NewInt(1000), big.NewInt(1_000_000))
	if err == nil {
		t.Fatalf("expected slippage error")
	}
}

func TestPriceFormulaSaturatesAtZero(t *testing.T) {
	model := &PriceModel{Formula: &PriceFormula{A: big.NewInt(10), B: big.NewInt(100), C: big.NewInt(1)}}
	p := model.PriceAt(big.NewInt(0))
	if p.Sign() < 0 {
		t.Fatalf("price must never go negative, got %s", p)
	}
}

func TestMintableRespectsCap(t *testing.T) {
	terms := &MintTerms{
		Amount: big.NewInt(1000),
		Cap:    big.NewInt(1),
		Price:  &PriceModel{Fixed: big.NewInt(5000)},
	}
	_, err := terms.Mintable(big.NewInt(10000), big.NewInt(1))
	if err == nil {
		t.Fatalf("expected MintCap error")
	}
	price, err := terms.Mintable(big.NewInt(10000), big.NewInt(0))
	if err != nil {
		t.Fatalf("mintable: %v", err)
	}
	if price.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("price = %s, want 5000", price)
	}
}
