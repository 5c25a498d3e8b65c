package indexer

import (
	"math/big"
	"testing"

	bolt "go.etcd.io/bbolt"

	"boneindex.dev/indexer/relics"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestReaderTipHeight(t *testing.T) {
	store := openTestStore(t)
	reader := NewReader(store)

	if _, ok, err := reader.TipHeight(); err != nil || ok {
		t.Fatalf("expected no tip yet, got ok=%v err=%v", ok, err)
	}

	if err := store.Update(func(tx *bolt.Tx) error {
		var hash [32]byte
		hash[0] = 7
		return tx.Bucket(bucketHeightToBlockHash).Put(encodeUint64(100), hash[:])
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	height, ok, err := reader.TipHeight()
	if err != nil || !ok {
		t.Fatalf("expected a tip, got ok=%v err=%v", ok, err)
	}
	if height != 100 {
		t.Fatalf("got tip %d, want 100", height)
	}
}

func TestReaderRelicEntryAndByName(t *testing.T) {
	store := openTestStore(t)
	reader := NewReader(store)

	id := relics.RelicID{Block: 10, Tx: 1}
	relic, err := relics.ParseRelic("BONE")
	if err != nil {
		t.Fatalf("ParseRelic: %v", err)
	}
	entry := &relics.RelicEntry{
		Block:       10,
		Number:      1,
		SpacedRelic: relics.SpacedRelic{Relic: relic},
		State:       relics.NewRelicState(),
		Seed:        big.NewInt(0),
	}

	if err := store.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRelicIDToEntry).Put(encodeRelicIDKey(id), encodeRelicEntry(entry)); err != nil {
			return err
		}
		return tx.Bucket(bucketRelicToRelicID).Put([]byte("BONE"), encodeRelicIDKey(id))
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := reader.RelicEntry(id)
	if err != nil {
		t.Fatalf("RelicEntry: %v", err)
	}
	if got == nil || got.Number != 1 {
		t.Fatalf("got %+v", got)
	}

	byName, ok, err := reader.RelicIDByName("BONE")
	if err != nil || !ok {
		t.Fatalf("RelicIDByName: ok=%v err=%v", ok, err)
	}
	if byName != id {
		t.Fatalf("got %s, want %s", byName, id)
	}

	if _, ok, err := reader.RelicIDByName("MISSING"); err != nil || ok {
		t.Fatalf("expected miss for unknown name, got ok=%v err=%v", ok, err)
	}
}

func TestReaderEventsForTxidPreservesMultiple(t *testing.T) {
	store := openTestStore(t)
	reader := NewReader(store)

	var txid [32]byte
	txid[0] = 1
	ev1 := relics.Event{BlockHeight: 1, EventIndex: 0, Txid: txid, Info: relics.EventInfo{Kind: relics.EventRelicMinted}}
	ev2 := relics.Event{BlockHeight: 1, EventIndex: 1, Txid: txid, Info: relics.EventInfo{Kind: relics.EventRelicSpent}}

	if err := store.Update(func(tx *bolt.Tx) error {
		for _, ev := range []relics.Event{ev1, ev2} {
			key := append(encodeUint64(ev.BlockHeight), encodeUint32(ev.EventIndex)...)
			if err := multimapPut(boltBucket{tx.Bucket(bucketTxidToEvents)}, ev.Txid[:], key); err != nil {
				return err
			}
			if err := tx.Bucket(bucketEventByKey).Put(key, encodeEvent(ev)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	events, err := reader.EventsForTxid(txid)
	if err != nil {
		t.Fatalf("EventsForTxid: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for one txid, got %d", len(events))
	}
}
