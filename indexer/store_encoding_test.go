package indexer

import (
	"errors"
	"math/big"
	"testing"

	"boneindex.dev/indexer/relics"
)

func TestEncodeDecodeEventRoundTrip(t *testing.T) {
	ev := relics.Event{
		BlockHeight: 12345,
		EventIndex:  7,
		Txid:        [32]byte{1, 2, 3},
		Info: relics.EventInfo{
			Kind:                relics.EventRelicMinted,
			InscriptionSequence: 99,
			RelicID:             relics.RelicID{Block: 10, Tx: 2},
			Amount:              big.NewInt(500),
			Output:              3,
			Price:               big.NewInt(42),
			Count:               5,
			SwapInput:           relics.RelicID{Block: 10, Tx: 2},
			SwapOutput:          relics.BaseRelicID,
			SwapInputAmount:     big.NewInt(10),
			SwapOutputAmount:    big.NewInt(20),
			Fee:                 big.NewInt(1),
			Syndicate:           relics.RelicID{Block: 11, Tx: 0},
			Sequence:            8,
			Operation:           relics.RelicOperation("mint"),
			Err:                 errors.New("boom"),
		},
	}

	enc := encodeEvent(ev)
	got, err := decodeEvent(enc)
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}
	if got.BlockHeight != ev.BlockHeight || got.EventIndex != ev.EventIndex {
		t.Fatalf("height/index mismatch: %+v", got)
	}
	if got.Txid != ev.Txid {
		t.Fatalf("txid mismatch")
	}
	if got.Info.Kind != ev.Info.Kind {
		t.Fatalf("kind mismatch: %s", got.Info.Kind)
	}
	if got.Info.InscriptionSequence != ev.Info.InscriptionSequence {
		t.Fatalf("inscription sequence mismatch: got %d want %d", got.Info.InscriptionSequence, ev.Info.InscriptionSequence)
	}
	if got.Info.RelicID != ev.Info.RelicID {
		t.Fatalf("relic id mismatch")
	}
	if got.Info.Amount.Cmp(ev.Info.Amount) != 0 {
		t.Fatalf("amount mismatch")
	}
	if got.Info.Count != ev.Info.Count {
		t.Fatalf("count mismatch")
	}
	if got.Info.SwapOutput != ev.Info.SwapOutput {
		t.Fatalf("swap output mismatch")
	}
	if got.Info.Operation != ev.Info.Operation {
		t.Fatalf("operation mismatch")
	}
	if got.Info.Err == nil || got.Info.Err.Error() != ev.Info.Err.Error() {
		t.Fatalf("err mismatch: %v", got.Info.Err)
	}
}

func TestEncodeDecodeEventNoOptionalFields(t *testing.T) {
	ev := relics.Event{
		BlockHeight: 1,
		EventIndex:  0,
		Info: relics.EventInfo{
			Kind: relics.EventInscriptionCreated,
		},
	}
	got, err := decodeEvent(encodeEvent(ev))
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}
	if got.Info.Amount != nil || got.Info.Price != nil || got.Info.Fee != nil {
		t.Fatalf("expected nil optional fields, got %+v", got.Info)
	}
	if got.Info.Err != nil {
		t.Fatalf("expected nil error, got %v", got.Info.Err)
	}
}

func TestEncodeDecodeBalancesRoundTrip(t *testing.T) {
	balances := map[relics.RelicID]*big.Int{
		{Block: 1, Tx: 0}: big.NewInt(1000),
		{Block: 5, Tx: 2}: big.NewInt(7),
	}
	got, err := decodeBalances(encodeBalances(balances))
	if err != nil {
		t.Fatalf("decodeBalances: %v", err)
	}
	if len(got) != len(balances) {
		t.Fatalf("len mismatch: got %d want %d", len(got), len(balances))
	}
	for id, amount := range balances {
		v, ok := got[id]
		if !ok {
			t.Fatalf("missing relic id %s", id)
		}
		if v.Cmp(amount) != 0 {
			t.Fatalf("amount mismatch for %s: got %s want %s", id, v, amount)
		}
	}
}

func TestRelicIDKeyRoundTrip(t *testing.T) {
	id := relics.RelicID{Block: 123456, Tx: 42}
	got, err := decodeRelicIDKey(encodeRelicIDKey(id))
	if err != nil {
		t.Fatalf("decodeRelicIDKey: %v", err)
	}
	if got != id {
		t.Fatalf("got %s want %s", got, id)
	}
}
