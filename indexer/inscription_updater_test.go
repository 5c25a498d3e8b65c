package indexer

import (
	"math/big"
	"testing"

	bolt "go.etcd.io/bbolt"

	"boneindex.dev/indexer/consensus"
	"boneindex.dev/indexer/inscription"
	"boneindex.dev/indexer/relics"
)

// encodeInscriptionPayload reproduces the inscription package's private
// tag/varint-length/value content framing (content_type=1, body=2) so a
// test in this package can build a DA_COMMIT payload without a reveal
// tool of its own.
func encodeInscriptionPayload(contentType, body []byte) []byte {
	var buf []byte
	buf = append(buf, 1)
	buf = append(buf, relics.EncodeVarint(nil, big.NewInt(int64(len(contentType))))...)
	buf = append(buf, contentType...)
	buf = append(buf, 2)
	buf = append(buf, relics.EncodeVarint(nil, big.NewInt(int64(len(body))))...)
	buf = append(buf, body...)
	return buf
}

func revealTx(body []byte, outputs []consensus.TxOutput) consensus.Tx {
	return consensus.Tx{
		TxKind:    consensus.TX_KIND_DA_COMMIT,
		DACommit:  &consensus.DACommitFields{ChunkCount: 0},
		DAPayload: encodeInscriptionPayload([]byte("text/plain"), body),
		Outputs:   outputs,
	}
}

func TestInscriptionUpdaterRevealCreatesEntry(t *testing.T) {
	store := openTestStore(t)

	txid := [32]byte{1}
	tx := revealTx([]byte("hello"), []consensus.TxOutput{{Value: 1000}})

	var resolved []ResolvedInscription
	var ownerSeq map[uint32]uint32
	if err := store.Update(func(btx *bolt.Tx) error {
		iu := NewInscriptionUpdater(btx, 10)
		resolved, ownerSeq = iu.ProcessTx(txid, tx, 0)
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(resolved) != 1 {
		t.Fatalf("got %d resolved inscriptions, want 1", len(resolved))
	}
	if resolved[0].Content == nil || string(resolved[0].Content.Body) != "hello" {
		t.Fatalf("got content=%+v", resolved[0].Content)
	}
	if resolved[0].Entry.SequenceNumber != 0 {
		t.Fatalf("got sequence=%d, want 0", resolved[0].Entry.SequenceNumber)
	}
	if resolved[0].Entry.Charms.Has(inscription.CharmBurned) {
		t.Fatalf("expected a fresh reveal to a spendable output to not be burned")
	}
	if seq, ok := ownerSeq[0]; !ok || seq != 0 {
		t.Fatalf("got ownerSeq=%+v, want output 0 -> seq 0", ownerSeq)
	}

	if err := store.View(func(btx *bolt.Tx) error {
		raw := btx.Bucket(bucketSeqToInscriptionEntry).Get(encodeUint32(0))
		if raw == nil {
			t.Fatalf("expected the inscription entry to persist")
		}
		entry, err := decodeInscriptionEntry(raw)
		if err != nil {
			return err
		}
		if entry.Height != 10 {
			t.Fatalf("got height=%d, want 10", entry.Height)
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestInscriptionUpdaterRevealDirectlyToAnchorIsBurned(t *testing.T) {
	store := openTestStore(t)

	txid := [32]byte{2}
	tx := revealTx([]byte("bones"), []consensus.TxOutput{{CovenantType: consensus.CORE_ANCHOR}})

	var resolved []ResolvedInscription
	if err := store.Update(func(btx *bolt.Tx) error {
		iu := NewInscriptionUpdater(btx, 1)
		resolved, _ = iu.ProcessTx(txid, tx, 0)
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(resolved) != 1 || !resolved[0].Entry.Charms.Has(inscription.CharmBurned) {
		t.Fatalf("expected a reveal landing on CORE_ANCHOR to be marked burned, got %+v", resolved)
	}
}

func TestInscriptionUpdaterTransferCarriesOwnershipAndBurnsOnAnchor(t *testing.T) {
	store := openTestStore(t)

	revealTxid := [32]byte{3}
	reveal := revealTx([]byte("carried"), []consensus.TxOutput{{Value: 1000}})

	if err := store.Update(func(btx *bolt.Tx) error {
		iu := NewInscriptionUpdater(btx, 1)
		iu.ProcessTx(revealTxid, reveal, 0)
		return nil
	}); err != nil {
		t.Fatalf("Update (reveal): %v", err)
	}

	spendTxid := [32]byte{4}
	spend := consensus.Tx{
		Inputs:  []consensus.TxInput{{PrevTxid: revealTxid, PrevVout: 0}},
		Outputs: []consensus.TxOutput{{CovenantType: consensus.CORE_ANCHOR}},
	}

	var ownerSeq map[uint32]uint32
	if err := store.Update(func(btx *bolt.Tx) error {
		iu := NewInscriptionUpdater(btx, 2)
		_, ownerSeq = iu.ProcessTx(spendTxid, spend, 0)
		return nil
	}); err != nil {
		t.Fatalf("Update (spend): %v", err)
	}

	if seq, ok := ownerSeq[0]; !ok || seq != 0 {
		t.Fatalf("got ownerSeq=%+v, want output 0 -> seq 0 (carried forward)", ownerSeq)
	}

	if err := store.View(func(btx *bolt.Tx) error {
		raw := btx.Bucket(bucketSeqToInscriptionEntry).Get(encodeUint32(0))
		if raw == nil {
			t.Fatalf("expected the original entry to still exist")
		}
		entry, err := decodeInscriptionEntry(raw)
		if err != nil {
			return err
		}
		if !entry.Charms.Has(inscription.CharmBurned) {
			t.Fatalf("expected the carried inscription to be marked burned once it lands on CORE_ANCHOR")
		}
		raw2 := btx.Bucket(bucketSatpointToSeq).Get(encodeSatPoint(inscription.SatPoint{Txid: spendTxid, Vout: 0}))
		if raw2 == nil || decodeUint32(raw2) != 0 {
			t.Fatalf("expected the satpoint index to have moved to the spend tx's output 0")
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
}
