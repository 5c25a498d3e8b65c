package relics

import (
	"math/big"
	"testing"

	"boneindex.dev/indexer/consensus"
)

// anchorTx wraps payload in a single CORE_ANCHOR output, the minimal tx
// shape Envelope/Decipher need.
func anchorTx(payload []byte, extraOutputs int) consensus.Tx {
	tx := consensus.Tx{
		Outputs: []consensus.TxOutput{
			{CovenantType: consensus.CORE_ANCHOR, CovenantData: payload},
		},
	}
	for i := 0; i < extraOutputs; i++ {
		tx.Outputs = append(tx.Outputs, consensus.TxOutput{Value: 1000})
	}
	return tx
}

func TestEncipherDecipherRoundTripMint(t *testing.T) {
	mintID := RelicID{Block: 10, Tx: 2}
	ks := &Keepsake{
		Mint: &mintID,
		Transfers: []Transfer{
			{ID: RelicID{}, Amount: big.NewInt(0), Output: 1},
		},
	}
	tx := anchorTx(Encipher(ks), 2)

	got, cenotaph, ok := Decipher(tx)
	if !ok {
		t.Fatalf("expected an envelope")
	}
	if cenotaph != nil {
		t.Fatalf("unexpected cenotaph: %+v", cenotaph)
	}
	if got.Mint == nil || *got.Mint != mintID {
		t.Fatalf("got Mint=%v, want %v", got.Mint, mintID)
	}
	if len(got.Transfers) != 1 || got.Transfers[0].Output != 1 {
		t.Fatalf("got Transfers=%+v", got.Transfers)
	}
}

func TestEncipherDecipherRoundTripEnshrining(t *testing.T) {
	symbol := 'B'
	ks := &Keepsake{
		Enshrining: &Enshrining{
			MintTerms: &MintTerms{
				Amount: big.NewInt(100),
				Cap:    big.NewInt(10),
				Price:  &PriceModel{Fixed: big.NewInt(5)},
				Seed:   big.NewInt(50),
			},
			Subsidy: big.NewInt(1000),
			Symbol:  &symbol,
			Turbo:   true,
		},
	}
	tx := anchorTx(Encipher(ks), 1)

	got, cenotaph, ok := Decipher(tx)
	if !ok || cenotaph != nil {
		t.Fatalf("ok=%v cenotaph=%+v", ok, cenotaph)
	}
	if got.Enshrining == nil || got.Enshrining.MintTerms == nil {
		t.Fatalf("missing enshrining/mint terms: %+v", got)
	}
	mt := got.Enshrining.MintTerms
	if mt.Amount.Cmp(big.NewInt(100)) != 0 || mt.Cap.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("got amount=%s cap=%s", mt.Amount, mt.Cap)
	}
	if mt.Price == nil || mt.Price.Fixed.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("got price=%+v", mt.Price)
	}
	if got.Enshrining.Symbol == nil || *got.Enshrining.Symbol != symbol {
		t.Fatalf("got symbol=%v", got.Enshrining.Symbol)
	}
	if !got.Enshrining.Turbo {
		t.Fatalf("expected turbo to round-trip")
	}
}

func TestEncipherDecipherRoundTripSwap(t *testing.T) {
	out := RelicID{Block: 7, Tx: 1}
	ks := &Keepsake{
		Swap: &Swap{
			Output:       &out,
			InputAmount:  big.NewInt(250),
			IsExactInput: true,
		},
	}
	tx := anchorTx(Encipher(ks), 1)

	got, cenotaph, ok := Decipher(tx)
	if !ok || cenotaph != nil {
		t.Fatalf("ok=%v cenotaph=%+v", ok, cenotaph)
	}
	if got.Swap == nil || got.Swap.Output == nil || *got.Swap.Output != out {
		t.Fatalf("got swap=%+v", got.Swap)
	}
	if !got.Swap.IsExactInput || got.Swap.InputAmount.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("got swap=%+v", got.Swap)
	}
}

func TestEncipherDecipherRoundTripSummoning(t *testing.T) {
	treasure := BaseRelicID
	ks := &Keepsake{
		Summoning: &Summoning{
			Treasure: &treasure,
			Gated:    true,
			Quota:    big.NewInt(10),
			Reward:   big.NewInt(5),
		},
	}
	tx := anchorTx(Encipher(ks), 0)

	got, cenotaph, ok := Decipher(tx)
	if !ok || cenotaph != nil {
		t.Fatalf("ok=%v cenotaph=%+v", ok, cenotaph)
	}
	if got.Summoning == nil || !got.Summoning.Gated {
		t.Fatalf("got summoning=%+v", got.Summoning)
	}
	if got.Summoning.Treasure == nil || *got.Summoning.Treasure != treasure {
		t.Fatalf("got treasure=%v", got.Summoning.Treasure)
	}
	if got.Summoning.Quota.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("got quota=%s", got.Summoning.Quota)
	}
}

func TestDecipherNoEnvelope(t *testing.T) {
	tx := consensus.Tx{Outputs: []consensus.TxOutput{{Value: 100}}}
	ks, cenotaph, ok := Decipher(tx)
	if ok || ks != nil || cenotaph != nil {
		t.Fatalf("expected no envelope, got ks=%+v cenotaph=%+v ok=%v", ks, cenotaph, ok)
	}
}

func TestDecipherCenotaphOnUnrecognizedEvenTag(t *testing.T) {
	// TagFlags (2, even) repeated: the second occurrence of an even tag
	// is a cenotaph per parseMessage.
	var payload []byte
	payload = EncodeVarint(payload, big.NewInt(int64(TagFlags)))
	payload = EncodeVarint(payload, big.NewInt(0))
	payload = EncodeVarint(payload, big.NewInt(int64(TagFlags)))
	payload = EncodeVarint(payload, big.NewInt(1))

	tx := anchorTx(payload, 0)
	ks, cenotaph, ok := Decipher(tx)
	if !ok {
		t.Fatalf("expected an envelope")
	}
	if ks != nil {
		t.Fatalf("expected no keepsake on a cenotaph, got %+v", ks)
	}
	if cenotaph == nil || cenotaph.Flaw != FlawUnrecognizedEvenTag {
		t.Fatalf("got cenotaph=%+v", cenotaph)
	}
}

func TestDecipherCenotaphOnEnshriningAndSummoning(t *testing.T) {
	ks := &Keepsake{
		Enshrining: &Enshrining{MintTerms: &MintTerms{Amount: big.NewInt(1), Cap: big.NewInt(1)}},
		Summoning:  &Summoning{},
	}
	tx := anchorTx(Encipher(ks), 0)

	got, cenotaph, ok := Decipher(tx)
	if !ok || got != nil {
		t.Fatalf("expected a cenotaph, got ks=%+v ok=%v", got, ok)
	}
	if cenotaph == nil || cenotaph.Flaw != FlawEnshriningAndSummoning {
		t.Fatalf("got cenotaph=%+v", cenotaph)
	}
}

func TestDecipherMalformedVarintIsCenotaph(t *testing.T) {
	// A lone continuation byte never terminates.
	tx := anchorTx([]byte{0x80}, 0)
	got, cenotaph, ok := Decipher(tx)
	if !ok || got != nil {
		t.Fatalf("expected a cenotaph, got ks=%+v ok=%v", got, ok)
	}
	if cenotaph == nil || cenotaph.Flaw != FlawVarint {
		t.Fatalf("got cenotaph=%+v", cenotaph)
	}
}
