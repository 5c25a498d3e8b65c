package indexer

import (
	"fmt"
	"math/big"

	bolt "go.etcd.io/bbolt"

	"boneindex.dev/indexer/inscription"
	"boneindex.dev/indexer/relics"
)

// Reader is the read-side query surface over a Store (component M).
// It never mutates state, so every method runs inside a single bbolt
// read transaction and can be called concurrently with the indexer's
// own write transaction under bbolt's MVCC snapshot isolation (spec
// §5's concurrency model) without any additional locking.
type Reader struct {
	store *Store
}

// NewReader wraps store for querying.
func NewReader(store *Store) *Reader {
	return &Reader{store: store}
}

// TipHeight returns the highest height this indexer has recorded.
func (r *Reader) TipHeight() (uint64, bool, error) {
	var height uint64
	var ok bool
	err := r.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketHeightToBlockHash).Cursor()
		k, _ := c.Last()
		if k == nil {
			return nil
		}
		height = decodeUint64(k)
		ok = true
		return nil
	})
	return height, ok, err
}

// RelicEntry looks up a relic by its assigned id.
func (r *Reader) RelicEntry(id relics.RelicID) (*relics.RelicEntry, error) {
	var entry *relics.RelicEntry
	err := r.store.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRelicIDToEntry).Get(encodeRelicIDKey(id))
		if v == nil {
			return nil
		}
		e, err := decodeRelicEntry(v)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	return entry, err
}

// RelicIDByName resolves a sealed/enshrined relic's id from its name.
func (r *Reader) RelicIDByName(name string) (relics.RelicID, bool, error) {
	var id relics.RelicID
	var ok bool
	err := r.store.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRelicToRelicID).Get([]byte(name))
		if v == nil {
			return nil
		}
		decoded, err := decodeRelicIDKey(v)
		if err != nil {
			return err
		}
		id, ok = decoded, true
		return nil
	})
	return id, ok, err
}

// OutputBalances returns every relic balance currently sitting on
// (txid, vout), or nil if the output has no relic balance (or has
// already been spent).
func (r *Reader) OutputBalances(txid [32]byte, vout uint32) (map[relics.RelicID]*big.Int, error) {
	var balances map[relics.RelicID]*big.Int
	err := r.store.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketOutpointToBalances).Get(encodeOutpointKey(txid, vout))
		if v == nil {
			return nil
		}
		b, err := decodeBalances(v)
		if err != nil {
			return err
		}
		balances = b
		return nil
	})
	return balances, err
}

// ClaimableBalance returns what ownerSeq can currently claim of id via
// a Keepsake Claim operation.
func (r *Reader) ClaimableBalance(ownerSeq uint32, id relics.RelicID) (*big.Int, error) {
	amount := big.NewInt(0)
	err := r.store.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRelicOwnerToClaimable).Get(claimableKey(ownerSeq, id))
		if v != nil {
			amount.SetBytes(v)
		}
		return nil
	})
	return amount, err
}

// InscriptionBySequence looks up a revealed inscription's entry.
func (r *Reader) InscriptionBySequence(seq uint32) (*inscription.Entry, error) {
	var entry *inscription.Entry
	err := r.store.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSeqToInscriptionEntry).Get(encodeUint32(seq))
		if v == nil {
			return nil
		}
		e, err := decodeInscriptionEntry(v)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	return entry, err
}

// InscriptionByID resolves an inscription id to its sequence and entry.
func (r *Reader) InscriptionByID(id inscription.ID) (*inscription.Entry, error) {
	var seq uint32
	var found bool
	idKey := id.Store()
	err := r.store.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketInscriptionIDToSeq).Get(idKey[:])
		if v == nil {
			return nil
		}
		seq = decodeUint32(v)
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, err
	}
	return r.InscriptionBySequence(seq)
}

// Syndicate looks up a summoned syndicate by its id.
func (r *Reader) Syndicate(id relics.RelicID) (*relics.SyndicateEntry, error) {
	var entry *relics.SyndicateEntry
	err := r.store.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSyndicateIDToEntry).Get(encodeRelicIDKey(id))
		if v == nil {
			return nil
		}
		e, err := decodeSyndicateEntry(v)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	return entry, err
}

// Chest looks up an encased chest by its sequence number.
func (r *Reader) Chest(seq uint32) (*relics.ChestEntry, error) {
	var entry *relics.ChestEntry
	err := r.store.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSeqToChest).Get(encodeUint32(seq))
		if v == nil {
			return nil
		}
		e, err := decodeChestEntry(v)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	return entry, err
}

// SyndicateChests lists every open chest sequence belonging to
// syndicate id.
func (r *Reader) SyndicateChests(id relics.RelicID) ([]uint32, error) {
	var out []uint32
	err := r.store.View(func(tx *bolt.Tx) error {
		for _, raw := range multimapList(boltBucket{tx.Bucket(bucketSyndicateIDToChestSeq)}, encodeRelicIDKey(id)) {
			if len(raw) != 4 {
				continue
			}
			out = append(out, decodeUint32(raw))
		}
		return nil
	})
	return out, err
}

// EventsForRelic returns every persisted event touching id, in
// emission order.
func (r *Reader) EventsForRelic(id relics.RelicID) ([]relics.Event, error) {
	var out []relics.Event
	err := r.store.View(func(tx *bolt.Tx) error {
		for _, key := range multimapList(boltBucket{tx.Bucket(bucketRelicIDToEvents)}, encodeRelicIDKey(id)) {
			raw := tx.Bucket(bucketEventByKey).Get(key)
			if raw == nil {
				continue
			}
			ev, err := decodeEvent(raw)
			if err != nil {
				return fmt.Errorf("indexer: decode event: %w", err)
			}
			out = append(out, ev)
		}
		return nil
	})
	return out, err
}

// EventsForTxid returns every event a single transaction emitted.
func (r *Reader) EventsForTxid(txid [32]byte) ([]relics.Event, error) {
	var out []relics.Event
	err := r.store.View(func(tx *bolt.Tx) error {
		for _, key := range multimapList(boltBucket{tx.Bucket(bucketTxidToEvents)}, txid[:]) {
			raw := tx.Bucket(bucketEventByKey).Get(key)
			if raw == nil {
				continue
			}
			ev, err := decodeEvent(raw)
			if err != nil {
				return err
			}
			out = append(out, ev)
		}
		return nil
	})
	return out, err
}
