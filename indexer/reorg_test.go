package indexer

import (
	"context"
	"testing"

	bolt "go.etcd.io/bbolt"

	"boneindex.dev/indexer/consensus"
)

// forkClient answers BlockHashAtHeight with a chain that agrees with
// the indexed one strictly below forkHeight and diverges at or above
// it, modeling a reorg that replaced everything from forkHeight on.
type forkClient struct {
	forkHeight uint64
	hashes     map[uint64][32]byte
}

func (c *forkClient) BestHeight(ctx context.Context) (uint64, error) { return 0, nil }

func (c *forkClient) BlockHashAtHeight(ctx context.Context, height uint64) ([32]byte, error) {
	if height >= c.forkHeight {
		var h [32]byte
		h[0] = 0xff
		h[31] = byte(height)
		return h, nil
	}
	return c.hashes[height], nil
}

func (c *forkClient) BlockByHash(ctx context.Context, hash [32]byte) (consensus.Block, error) {
	return consensus.Block{}, nil
}

func seedHeightHash(t *testing.T, store *Store, height uint64, marker byte) [32]byte {
	t.Helper()
	var hash [32]byte
	hash[0] = marker
	hash[31] = byte(height)
	if err := store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHeightToBlockHash).Put(encodeUint64(height), hash[:])
	}); err != nil {
		t.Fatalf("seed height %d: %v", height, err)
	}
	return hash
}

func TestReorgDetectorCheckBlockGenesisAlwaysOk(t *testing.T) {
	store := openTestStore(t)
	det := NewReorgDetector(store, &forkClient{})
	ok, err := det.CheckBlock(0, [32]byte{})
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v, want ok=true", ok, err)
	}
}

func TestReorgDetectorCheckBlockDetectsMismatch(t *testing.T) {
	store := openTestStore(t)
	hash := seedHeightHash(t, store, 4, 1)

	det := NewReorgDetector(store, &forkClient{})

	ok, err := det.CheckBlock(5, hash)
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v, want ok=true for a matching prevHash", ok, err)
	}

	var wrong [32]byte
	wrong[0] = 0xee
	ok, err = det.CheckBlock(5, wrong)
	if err != nil || ok {
		t.Fatalf("got ok=%v err=%v, want ok=false for a mismatched prevHash", ok, err)
	}
}

func TestReorgDetectorFindForkPoint(t *testing.T) {
	store := openTestStore(t)
	for h := uint64(0); h <= 5; h++ {
		seedHeightHash(t, store, h, 1)
	}

	// The node's chain now disagrees from height 3 onward.
	client := &forkClient{forkHeight: 3, hashes: map[uint64][32]byte{}}
	for h := uint64(0); h < 3; h++ {
		var hash [32]byte
		hash[0] = 1
		hash[31] = byte(h)
		client.hashes[h] = hash
	}

	det := NewReorgDetector(store, client)
	fork, err := det.FindForkPoint(context.Background(), 5)
	if err != nil {
		t.Fatalf("FindForkPoint: %v", err)
	}
	if fork != 2 {
		t.Fatalf("got fork point %d, want 2", fork)
	}
}

func TestReorgDetectorRollback(t *testing.T) {
	store := openTestStore(t)
	for h := uint64(0); h <= 5; h++ {
		seedHeightHash(t, store, h, 1)
	}

	if err := store.Update(func(tx *bolt.Tx) error {
		det := NewReorgDetector(store, &forkClient{})
		return det.Rollback(tx, 2)
	}); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	if err := store.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHeightToBlockHash)
		for h := uint64(0); h <= 2; h++ {
			if b.Get(encodeUint64(h)) == nil {
				t.Fatalf("expected height %d to survive rollback", h)
			}
		}
		for h := uint64(3); h <= 5; h++ {
			if b.Get(encodeUint64(h)) != nil {
				t.Fatalf("expected height %d to be removed by rollback", h)
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
}
