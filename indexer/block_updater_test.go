package indexer

import (
	"context"
	"math/big"
	"testing"

	bolt "go.etcd.io/bbolt"

	"boneindex.dev/indexer/consensus"
	"boneindex.dev/indexer/relics"
)

func encodeInscriptionPayloadWithMetadata(contentType, body, metadata []byte) []byte {
	buf := encodeInscriptionPayload(contentType, body)
	buf = append(buf, 5)
	buf = append(buf, relics.EncodeVarint(nil, big.NewInt(int64(len(metadata))))...)
	buf = append(buf, metadata...)
	return buf
}

// sealAndEnshrineBlock builds a single block containing one transaction
// that spends a pre-funded base-token balance to seal and enshrine a
// fresh relic in the same breath, exercising the inscription updater,
// the relic updater, and the Keepsake envelope codec together the way
// ApplyBlock actually wires them.
func sealAndEnshrineBlock(t *testing.T, prevTxid [32]byte) consensus.Block {
	t.Helper()
	relic := mustParseRelic(t, "SEALEDTOGETHER")
	sr := relics.SpacedRelic{Relic: relic}
	metadata, err := sr.ToMetadataCBOR()
	if err != nil {
		t.Fatalf("ToMetadataCBOR: %v", err)
	}

	ks := &relics.Keepsake{
		Sealing: true,
		Enshrining: &relics.Enshrining{
			MintTerms: &relics.MintTerms{Amount: big.NewInt(10), Cap: big.NewInt(1)},
		},
	}

	tx := consensus.Tx{
		TxKind:    consensus.TX_KIND_DA_COMMIT,
		DACommit:  &consensus.DACommitFields{ChunkCount: 0},
		DAPayload: encodeInscriptionPayloadWithMetadata([]byte("text/plain"), []byte("ticket"), metadata),
		Inputs:    []consensus.TxInput{{PrevTxid: prevTxid, PrevVout: 0}},
		Outputs: []consensus.TxOutput{
			{CovenantType: consensus.CORE_ANCHOR, CovenantData: relics.Encipher(ks)},
			{Value: 1000},
		},
	}
	return consensus.Block{Header: consensus.BlockHeader{Version: 1, Timestamp: 12345}, Transactions: []consensus.Tx{tx}}
}

func TestBlockUpdaterApplyBlockSealAndEnshrine(t *testing.T) {
	store := openTestStore(t)

	var prevTxid [32]byte
	prevTxid[0] = 0xaa
	fee := relics.SealingFee(mustParseRelic(t, "SEALEDTOGETHER"))
	if err := store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOutpointToBalances).Put(
			encodeOutpointKey(prevTxid, 0),
			encodeBalances(map[relics.RelicID]*big.Int{relics.BaseRelicID: fee}),
		)
	}); err != nil {
		t.Fatalf("seed input balance: %v", err)
	}

	block := sealAndEnshrineBlock(t, prevTxid)
	bu := NewBlockUpdater(store)
	events, err := bu.ApplyBlock(1, block)
	if err != nil {
		t.Fatalf("ApplyBlock: %v", err)
	}

	seenSealed, seenEnshrined := false, false
	for _, ev := range events {
		switch ev.Info.Kind {
		case relics.EventRelicSealed:
			seenSealed = true
		case relics.EventRelicEnshrined:
			seenEnshrined = true
		}
	}
	if !seenSealed || !seenEnshrined {
		t.Fatalf("expected sealed+enshrined events, got %+v", events)
	}

	if err := store.View(func(tx *bolt.Tx) error {
		hash := tx.Bucket(bucketHeightToBlockHash).Get(encodeUint64(1))
		if hash == nil {
			t.Fatalf("expected the block's hash to be recorded at height 1")
		}
		txid := txID(block.Transactions[0])
		if tx.Bucket(bucketTxidToTx).Get(txid[:]) == nil {
			t.Fatalf("expected the transaction to be persisted by txid")
		}
		id := relics.RelicID{Block: 1, Tx: 0}
		if tx.Bucket(bucketRelicIDToEntry).Get(encodeRelicIDKey(id)) == nil {
			t.Fatalf("expected the enshrined relic entry to exist")
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestBlockUpdaterApplyBlockCenotaphForfeitsInputBalance(t *testing.T) {
	store := openTestStore(t)

	var prevTxid [32]byte
	prevTxid[0] = 0xbb
	amount := big.NewInt(777)
	if err := store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOutpointToBalances).Put(
			encodeOutpointKey(prevTxid, 0),
			encodeBalances(map[relics.RelicID]*big.Int{relics.BaseRelicID: amount}),
		)
	}); err != nil {
		t.Fatalf("seed input balance: %v", err)
	}
	if err := store.Update(func(tx *bolt.Tx) error {
		entry := &relics.RelicEntry{
			SpacedRelic: relics.SpacedRelic{Relic: mustParseRelic(t, relics.BaseTokenName)},
			State:       relics.NewRelicState(),
		}
		return tx.Bucket(bucketRelicIDToEntry).Put(encodeRelicIDKey(relics.BaseRelicID), encodeRelicEntry(entry))
	}); err != nil {
		t.Fatalf("seed base relic entry: %v", err)
	}

	block := consensus.Block{
		Header: consensus.BlockHeader{Version: 1, Timestamp: 1},
		Transactions: []consensus.Tx{{
			Inputs: []consensus.TxInput{{PrevTxid: prevTxid, PrevVout: 0}},
			// A lone varint continuation byte never terminates: Decipher
			// reports this as a Cenotaph rather than no-envelope-at-all.
			Outputs: []consensus.TxOutput{{CovenantType: consensus.CORE_ANCHOR, CovenantData: []byte{0x80}}},
		}},
	}

	bu := NewBlockUpdater(store)
	events, err := bu.ApplyBlock(1, block)
	if err != nil {
		t.Fatalf("ApplyBlock: %v", err)
	}

	found := false
	for _, ev := range events {
		if ev.Info.Kind == relics.EventRelicBurned && ev.Info.RelicID == relics.BaseRelicID && ev.Info.Amount.Cmp(amount) == 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the cenotaph to forfeit the input balance as a burn event, got %+v", events)
	}

	if err := store.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketRelicIDToEntry).Get(encodeRelicIDKey(relics.BaseRelicID))
		entry, err := decodeRelicEntry(raw)
		if err != nil {
			return err
		}
		if entry.State.Burned.Cmp(amount) != 0 {
			t.Fatalf("got burned=%s, want %s", entry.State.Burned, amount)
		}
		if tx.Bucket(bucketOutpointToBalances).Get(encodeOutpointKey(txID(block.Transactions[0]), 0)) != nil {
			t.Fatalf("expected no relic balance to carry forward out of a cenotaph")
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
}

// stubNodeClient satisfies NodeClient for reorg tests that never need
// to actually fetch a full block body.
type stubNodeClient struct {
	hashes map[uint64][32]byte
}

func (c *stubNodeClient) BestHeight(ctx context.Context) (uint64, error) { return 0, nil }

func (c *stubNodeClient) BlockHashAtHeight(ctx context.Context, height uint64) ([32]byte, error) {
	return c.hashes[height], nil
}

func (c *stubNodeClient) BlockByHash(ctx context.Context, hash [32]byte) (consensus.Block, error) {
	return consensus.Block{}, nil
}

// TestBlockUpdaterReorgRecovery drives a full apply/detect/rollback/
// reapply cycle: genesis plus one block are indexed, the "node" then
// reports a different hash at height 1 (a reorg one block deep),
// ReorgDetector notices the mismatch, Rollback removes the stale
// height record, and ApplyBlock re-indexes the replacement block in
// its place.
func TestBlockUpdaterReorgRecovery(t *testing.T) {
	store := openTestStore(t)
	bu := NewBlockUpdater(store)

	genesisBlock := consensus.Block{Header: consensus.BlockHeader{Version: 1, Timestamp: 0}}
	if _, err := bu.ApplyBlock(0, genesisBlock); err != nil {
		t.Fatalf("ApplyBlock(genesis): %v", err)
	}
	genesisHash := blockHash(genesisBlock.Header)

	originalBlock := consensus.Block{Header: consensus.BlockHeader{Version: 1, Timestamp: 100}}
	if _, err := bu.ApplyBlock(1, originalBlock); err != nil {
		t.Fatalf("ApplyBlock(original): %v", err)
	}

	replacementBlock := consensus.Block{Header: consensus.BlockHeader{Version: 1, Timestamp: 200}}
	replacementHash := blockHash(replacementBlock.Header)

	client := &stubNodeClient{hashes: map[uint64][32]byte{0: genesisHash, 1: replacementHash}}
	det := NewReorgDetector(store, client)

	ok, err := det.CheckBlock(2, replacementHash)
	if err != nil {
		t.Fatalf("CheckBlock: %v", err)
	}
	if ok {
		t.Fatalf("expected CheckBlock to detect the reorg at height 1")
	}

	fork, err := det.FindForkPoint(context.Background(), 1)
	if err != nil {
		t.Fatalf("FindForkPoint: %v", err)
	}
	if fork != 0 {
		t.Fatalf("got fork point %d, want 0", fork)
	}

	if err := store.Update(func(tx *bolt.Tx) error {
		return det.Rollback(tx, fork)
	}); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	if _, err := bu.ApplyBlock(1, replacementBlock); err != nil {
		t.Fatalf("ApplyBlock(replacement): %v", err)
	}

	if err := store.View(func(tx *bolt.Tx) error {
		got := tx.Bucket(bucketHeightToBlockHash).Get(encodeUint64(1))
		if string(got) != string(replacementHash[:]) {
			t.Fatalf("expected height 1 to now record the replacement block's hash")
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
}
