// Package indexer maintains the derived Relics/Bones and Inscription
// state over a UTXO-based chain, persisting it to an embedded
// transactional key-value store (spec §6.4).
package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// SchemaVersion must match the STATISTIC→COUNT singleton on open (spec
// §6.4); a mismatch means the on-disk layout is incompatible with this
// binary and the store refuses to open rather than silently
// misinterpreting bytes.
const SchemaVersion = 6

var (
	bucketHeightToBlockHash = []byte("height_to_block_hash")
	bucketOutpointToValue   = []byte("outpoint_to_value")
	bucketOutpointToBalances = []byte("outpoint_to_balances")

	bucketInscriptionIDToSeq   = []byte("inscription_id_to_seq")
	bucketSeqToInscriptionEntry = []byte("seq_to_inscription_entry")
	bucketInscriptionNumberToSeq = []byte("inscription_number_to_seq")
	bucketInscriptionIDToTxids = []byte("inscription_id_to_txids")
	bucketPartialTxidToTxids   = []byte("partial_txid_to_txids")
	bucketTxidToTx             = []byte("txid_to_tx")

	bucketSatToSatpoint     = []byte("sat_to_satpoint")
	bucketSatToSeq          = []byte("sat_to_seq") // multimap
	bucketSatpointToSeq     = []byte("satpoint_to_seq") // multimap
	bucketSeqToSatpoint     = []byte("seq_to_satpoint")
	bucketSeqToChildren     = []byte("seq_to_children") // multimap
	bucketSeqToSpacedRelic  = []byte("seq_to_spaced_relic")

	bucketRelicToSeq       = []byte("relic_to_seq")
	bucketRelicToRelicID   = []byte("relic_to_relic_id")
	bucketRelicIDToEntry   = []byte("relic_id_to_relic_entry")
	bucketRelicOwnerToClaimable = []byte("relic_owner_to_claimable")

	bucketSyndicateIDToEntry  = []byte("syndicate_id_to_entry")
	bucketSeqToSyndicateID    = []byte("seq_to_syndicate_id")
	bucketSeqToChest          = []byte("seq_to_chest")
	bucketSyndicateIDToChestSeq = []byte("syndicate_id_to_chest_seq") // multimap

	bucketRelicIDToEvents = []byte("relic_id_to_events") // multimap
	bucketTxidToEvents    = []byte("txid_to_events")     // multimap
	bucketEventByKey      = []byte("event_by_key")       // height(8)++index(4) -> encoded Event

	bucketStatisticToCount = []byte("statistic_to_count")

	allBuckets = [][]byte{
		bucketHeightToBlockHash, bucketOutpointToValue, bucketOutpointToBalances,
		bucketInscriptionIDToSeq, bucketSeqToInscriptionEntry, bucketInscriptionNumberToSeq,
		bucketInscriptionIDToTxids, bucketPartialTxidToTxids, bucketTxidToTx,
		bucketSatToSatpoint, bucketSatToSeq, bucketSatpointToSeq, bucketSeqToSatpoint,
		bucketSeqToChildren, bucketSeqToSpacedRelic,
		bucketRelicToSeq, bucketRelicToRelicID, bucketRelicIDToEntry, bucketRelicOwnerToClaimable,
		bucketSyndicateIDToEntry, bucketSeqToSyndicateID, bucketSeqToChest, bucketSyndicateIDToChestSeq,
		bucketRelicIDToEvents, bucketTxidToEvents, bucketEventByKey,
		bucketStatisticToCount,
	}
)

// statKeySchemaVersion is the STATISTIC→COUNT key holding the schema
// version (spec §6.4).
var statKeySchemaVersion = []byte("schema_version")

// Store is the indexer's bbolt-backed persistence layer, adapted from
// node/store/db.go's bucket-per-table convention.
type Store struct {
	db *bolt.DB
}

// Open creates (or opens) the bbolt database at <dataDir>/indexer/index.db,
// creating every bucket on first use and checking the schema version on
// subsequent opens.
func Open(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("indexer: data dir required")
	}
	dir := filepath.Join(dataDir, "indexer")
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "index.db")
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("indexer: open bbolt: %w", err)
	}
	s := &Store{db: bdb}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("indexer: create bucket %s: %w", string(b), err)
			}
		}
		stat := tx.Bucket(bucketStatisticToCount)
		if v := stat.Get(statKeySchemaVersion); v == nil {
			return stat.Put(statKeySchemaVersion, encodeUint64(SchemaVersion))
		} else if decodeUint64(v) != SchemaVersion {
			return fmt.Errorf("indexer: schema version %d != supported %d", decodeUint64(v), SchemaVersion)
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying bbolt file handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(*bolt.Tx) error) error {
	return s.db.View(fn)
}

// Update runs fn in the store's single read-write transaction,
// enforcing the writer's single-writer/multi-reader model (spec §5).
func (s *Store) Update(fn func(*bolt.Tx) error) error {
	return s.db.Update(fn)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
