package indexer

import (
	"crypto/sha3"

	bolt "go.etcd.io/bbolt"

	"boneindex.dev/indexer/consensus"
	"boneindex.dev/indexer/relics"
)

// txID derives a transaction's identifier: SHA3-256 of the
// witness-stripped encoding (consensus.TxNoWitnessBytes).
func txID(tx consensus.Tx) [32]byte {
	return sha3.Sum256(consensus.TxNoWitnessBytes(&tx))
}

// blockHash hashes a header the same way a header is identified
// chain-wide: sha3_256 of its serialized 116-byte encoding.
func blockHash(h consensus.BlockHeader) [32]byte {
	return sha3.Sum256(encodeBlockHeader(h))
}

func encodeBlockHeader(h consensus.BlockHeader) []byte {
	buf := make([]byte, 0, 116)
	buf = appendU32(buf, h.Version)
	buf = append(buf, h.PrevBlockHash[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	buf = appendU64(buf, h.Timestamp)
	buf = append(buf, h.Target[:]...)
	buf = appendU64(buf, h.Nonce)
	return buf
}

func appendU32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendU64(b []byte, v uint64) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24), byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

// BlockUpdater is the top-level per-block driver (component K): for
// each transaction it runs the inscription updater to resolve
// ownership and reconstruct inscriptions, decodes any Keepsake
// envelope, runs the relic updater against the resulting balance
// sheet, and records the block's own hash for reorg detection.
type BlockUpdater struct {
	store *Store
}

// NewBlockUpdater ties a BlockUpdater to store.
func NewBlockUpdater(store *Store) *BlockUpdater {
	return &BlockUpdater{store: store}
}

// ApplyBlock indexes one block at height inside a single write
// transaction (spec §5's single-writer model), returning the events
// emitted while doing so.
func (bu *BlockUpdater) ApplyBlock(height uint64, block consensus.Block) ([]relics.Event, error) {
	hash := blockHash(block.Header)
	events := relics.NewEventEmitter(height)

	err := bu.store.Update(func(tx *bolt.Tx) error {
		iu := NewInscriptionUpdater(tx, height)
		ru := NewRelicUpdater(tx, height, block.Header.Timestamp, events)

		for txIndex, ctx := range block.Transactions {
			txid := txID(ctx)
			if err := tx.Bucket(bucketTxidToTx).Put(txid[:], encodeTx(ctx)); err != nil {
				return err
			}

			resolved, outputOwnerSeq := iu.ProcessTx(txid, ctx, uint32(txIndex))

			payload, isKeepsake := relics.Envelope(ctx)
			var ks *relics.Keepsake
			var isCenotaph bool
			if isKeepsake {
				decoded, cenotaph, ok := relics.Decipher(ctx)
				_ = payload
				if ok && cenotaph == nil {
					ks = decoded
				} else if ok && cenotaph != nil {
					isCenotaph = true
				}
			}

			sheet := relics.NewBalanceSheet()
			bu.loadInputBalances(tx, sheet, ctx)

			if err := ru.ProcessTx(txid, ctx, uint32(txIndex), ks, resolved, outputOwnerSeq, sheet, isCenotaph); err != nil {
				return err
			}
		}

		if err := EndOfBlockSubsidyPass(tx, height, events); err != nil {
			return err
		}

		if err := tx.Bucket(bucketHeightToBlockHash).Put(encodeUint64(height), hash[:]); err != nil {
			return err
		}
		for _, ev := range events.Events() {
			key := append(encodeUint64(ev.BlockHeight), encodeUint32(ev.EventIndex)...)
			enc := encodeEvent(ev)
			if err := multimapPut(boltBucket{tx.Bucket(bucketTxidToEvents)}, ev.Txid[:], key); err != nil {
				return err
			}
			if ev.IsRelicHistory() {
				if id, ok := ev.RelicIDOf(); ok {
					if err := multimapPut(boltBucket{tx.Bucket(bucketRelicIDToEvents)}, encodeRelicIDKey(id), key); err != nil {
						return err
					}
				}
			}
			if err := tx.Bucket(bucketEventByKey).Put(key, enc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events.Events(), nil
}

// loadInputBalances hydrates sheet with every relic balance sitting on
// ctx's spent outpoints, the starting point for the per-tx balance
// sheet spec §4.7 describes.
func (bu *BlockUpdater) loadInputBalances(tx *bolt.Tx, sheet *relics.BalanceSheet, ctx consensus.Tx) {
	b := tx.Bucket(bucketOutpointToBalances)
	for _, in := range ctx.Inputs {
		key := encodeOutpointKey(in.PrevTxid, in.PrevVout)
		v := b.Get(key)
		if v == nil {
			continue
		}
		balances, err := decodeBalances(v)
		if err != nil {
			continue
		}
		for id, amount := range balances {
			sheet.AddSafe(id, amount)
		}
		_ = b.Delete(key)
	}
}

func encodeTx(tx consensus.Tx) []byte {
	return consensus.TxNoWitnessBytes(&tx)
}
