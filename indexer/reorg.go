package indexer

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// ReorgDetector watches the indexer's own height->hash record against
// freshly fetched blocks and reports when the chain has forked away
// from what was previously indexed (component L). Grounded on
// node/store/reorg.go's findForkPoint: walk both chains back to equal
// height, then together until the hashes agree.
type ReorgDetector struct {
	store  *Store
	client NodeClient
}

// NewReorgDetector ties a ReorgDetector to store's recorded chain and
// client's view of the current chain.
func NewReorgDetector(store *Store, client NodeClient) *ReorgDetector {
	return &ReorgDetector{store: store, client: client}
}

// CheckBlock reports whether the block about to be applied at height
// with the given prevHash actually extends the indexed chain. A
// mismatch means a reorg has happened at or below height and the
// caller must call FindForkPoint before indexing any further.
func (r *ReorgDetector) CheckBlock(height uint64, prevHash [32]byte) (bool, error) {
	if height == 0 {
		return true, nil
	}
	var stored [32]byte
	var ok bool
	err := r.store.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketHeightToBlockHash).Get(encodeUint64(height - 1))
		if v != nil {
			copy(stored[:], v)
			ok = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return stored == prevHash, nil
}

// FindForkPoint walks the indexed chain and the node's current chain
// back in lockstep until their block hashes agree, returning the
// common ancestor's height. Blocks above that height must be undone
// and re-applied from the node's current view.
func (r *ReorgDetector) FindForkPoint(ctx context.Context, fromHeight uint64) (uint64, error) {
	height := fromHeight
	for {
		var indexed [32]byte
		var ok bool
		err := r.store.View(func(tx *bolt.Tx) error {
			v := tx.Bucket(bucketHeightToBlockHash).Get(encodeUint64(height))
			if v != nil {
				copy(indexed[:], v)
				ok = true
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
		if !ok {
			if height == 0 {
				return 0, fmt.Errorf("indexer: no indexed blocks to fork from")
			}
			height--
			continue
		}
		current, err := r.client.BlockHashAtHeight(ctx, height)
		if err != nil {
			return 0, fmt.Errorf("indexer: resolve hash at height %d: %w", height, err)
		}
		if current == indexed {
			return height, nil
		}
		if height == 0 {
			return 0, fmt.Errorf("indexer: no common ancestor found with genesis")
		}
		height--
	}
}

// Rollback deletes the height->hash records strictly above
// aboveHeight; the record at aboveHeight itself is kept. No other
// bucket is touched: per-output balances, inscription state,
// relic/syndicate/chest entries and persisted events written by the
// removed blocks stay in the store, and no undo log is kept.
func (r *ReorgDetector) Rollback(tx *bolt.Tx, aboveHeight uint64) error {
	hh := tx.Bucket(bucketHeightToBlockHash)
	c := hh.Cursor()
	var toDelete [][]byte
	for k, _ := c.Seek(encodeUint64(aboveHeight + 1)); k != nil; k, _ = c.Next() {
		toDelete = append(toDelete, append([]byte(nil), k...))
	}
	for _, k := range toDelete {
		if err := hh.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
