package relics

import (
	"math/big"
	"testing"
)

func TestBalanceSheetAddRemove(t *testing.T) {
	b := NewBalanceSheet()
	id := RelicID{Block: 10, Tx: 1}
	b.AddSafe(id, big.NewInt(500))
	if b.Get(id).Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("total = %s", b.Get(id))
	}
	if b.GetSafe(id).Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("safe = %s", b.GetSafe(id))
	}
	if err := b.Remove(id, big.NewInt(600)); err == nil {
		t.Fatalf("expected insufficient balance error")
	}
	if err := b.Remove(id, big.NewInt(200)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if b.Get(id).Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("total after remove = %s", b.Get(id))
	}
}

func TestBalanceSheetSafeExcludesFreshMint(t *testing.T) {
	b := NewBalanceSheet()
	id := RelicID{Block: 10, Tx: 1}
	b.Add(id, big.NewInt(1000)) // freshly minted in this tx, unsafe
	if err := b.RemoveSafe(id, big.NewInt(1)); err == nil {
		t.Fatalf("expected swap-insufficient-balance since nothing is safe yet")
	}
}

func TestBalanceSheetAllocateTransfers(t *testing.T) {
	b := NewBalanceSheet()
	relic := RelicID{Block: 20, Tx: 3}
	b.AddSafe(relic, big.NewInt(1000))

	transfers := []Transfer{
		{ID: RelicID{}, Amount: big.NewInt(400), Output: 1}, // sentinel -> relic
		{ID: RelicID{}, Amount: big.NewInt(0), Output: 2},   // remainder
	}
	b.AllocateTransfers(transfers, &relic)

	alloc := b.Finalize()
	if alloc[1][relic].Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("output 1 = %s", alloc[1][relic])
	}
	if alloc[2][relic].Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("output 2 = %s", alloc[2][relic])
	}
	if b.Outstanding() {
		t.Fatalf("expected no outstanding balance")
	}
}

func TestBalanceSheetAllocateAllFallback(t *testing.T) {
	b := NewBalanceSheet()
	relic := RelicID{Block: 5, Tx: 2}
	b.AddSafe(relic, big.NewInt(250))
	b.AllocateAll(0)
	alloc := b.Finalize()
	if alloc[0][relic].Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("output 0 = %s", alloc[0][relic])
	}
	if b.Outstanding() {
		t.Fatalf("expected no outstanding balance after AllocateAll")
	}
}
