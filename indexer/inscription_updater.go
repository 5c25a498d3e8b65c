package indexer

import (
	bolt "go.etcd.io/bbolt"

	"boneindex.dev/indexer/consensus"
	"boneindex.dev/indexer/inscription"
)

// InscriptionUpdater tracks inscription reveal/transfer for one block,
// persisting into the inscription-shaped buckets declared in store.go
// and producing the satpoint-derived ownership facts RelicUpdater
// consumes for Keepsake Claim resolution and syndicate child checks
// (component I, spec §4.3 and §4.5's dependency on "the owning
// inscription sequence of an output").
type InscriptionUpdater struct {
	tx      *bolt.Tx
	height  uint64
	tracker *inscription.Tracker

	// outputOwnerSeq maps this block's own transactions' output index
	// to the inscription sequence now sitting on that output, scoped
	// to the current transaction (reset per ProcessTx call) — ord's
	// tracker follows the inscription across an entire tx's inputs to
	// outputs in one pass, and the relic updater only ever needs this
	// mapping for the transaction it's currently processing.
	outputOwnerSeq map[uint32]uint32
}

// NewInscriptionUpdater starts an updater for the block at height,
// operating inside tx (the block's single write transaction).
func NewInscriptionUpdater(tx *bolt.Tx, height uint64) *InscriptionUpdater {
	return &InscriptionUpdater{tx: tx, height: height, tracker: inscription.NewTracker()}
}

func (u *InscriptionUpdater) bucket(name []byte) *bolt.Bucket { return u.tx.Bucket(name) }

func (u *InscriptionUpdater) nextSequence() uint32 {
	stat := u.bucket(bucketStatisticToCount)
	key := []byte("next_inscription_seq")
	var n uint32
	if v := stat.Get(key); v != nil {
		n = decodeUint32(v)
	}
	_ = stat.Put(key, encodeUint32(n+1))
	return n
}

func (u *InscriptionUpdater) nextNumber() uint64 {
	stat := u.bucket(bucketStatisticToCount)
	key := []byte("next_inscription_number")
	var n uint64
	if v := stat.Get(key); v != nil {
		n = decodeUint64(v)
	}
	_ = stat.Put(key, encodeUint64(n+1))
	return n
}

// loadOwnerSeq returns the inscription sequence currently sitting at
// outpoint (txid, vout), if any, by following SEQ_TO_SATPOINT's
// reverse index SATPOINT_TO_SEQ.
func (u *InscriptionUpdater) loadOwnerSeq(txid [32]byte, vout uint32) (uint32, bool) {
	key := encodeSatPoint(inscription.SatPoint{Txid: txid, Vout: vout})
	v := u.bucket(bucketSatpointToSeq).Get(key)
	if v == nil {
		return 0, false
	}
	return decodeUint32(v), true
}

func (u *InscriptionUpdater) moveSatpoint(seq uint32, sp inscription.SatPoint) error {
	spKey := encodeSatPoint(sp)
	if old := u.bucket(bucketSeqToSatpoint).Get(encodeUint32(seq)); old != nil {
		_ = u.bucket(bucketSatpointToSeq).Delete(old)
	}
	if err := u.bucket(bucketSeqToSatpoint).Put(encodeUint32(seq), spKey); err != nil {
		return err
	}
	return u.bucket(bucketSatpointToSeq).Put(spKey, encodeUint32(seq))
}

func encodeSatPoint(sp inscription.SatPoint) []byte {
	key := encodeOutpointKey(sp.Txid, sp.Vout)
	return append(key, encodeUint64(sp.Offset)...)
}

// ProcessTx moves every inscription riding on ctx's spent outpoints to
// ctx's output 0 (a reveal transaction also creates a fresh one on its
// first non-anchor output) and folds any DA_COMMIT/DA_CHUNK payload
// into the reconstruction tracker. It returns the resolved inscriptions
// now on ctx's own outputs — the fresh reveal first, with its content,
// then any carried-forward inscription, entry only — plus the
// output->owner-sequence map RelicUpdater.ProcessTx expects.
func (u *InscriptionUpdater) ProcessTx(txid [32]byte, ctx consensus.Tx, txIndex uint32) ([]ResolvedInscription, map[uint32]uint32) {
	u.outputOwnerSeq = make(map[uint32]uint32)
	_ = u.bucket(bucketTxidToTx)

	// Carry forward any inscriptions riding the spent outpoints: each
	// one moves to output 0 (no Pointer field is consulted) and is
	// marked burned if output 0 is a CORE_ANCHOR. This port only tracks
	// the minimal case needed by the relic protocol — ownership-by-
	// output, not full sat ranges.
	for _, in := range ctx.Inputs {
		if seq, ok := u.loadOwnerSeq(in.PrevTxid, in.PrevVout); ok {
			target := uint32(0)
			if len(ctx.Outputs) > 0 {
				target = uint32(0)
			}
			sp := inscription.SatPoint{Txid: txid, Vout: target}
			_ = u.moveSatpoint(seq, sp)
			u.outputOwnerSeq[target] = seq
			if target < uint32(len(ctx.Outputs)) && ctx.Outputs[target].CovenantType == consensus.CORE_ANCHOR {
				u.markBurned(seq)
			}
		}
	}

	var resolved []ResolvedInscription
	revealedSeq, hasReveal := uint32(0), false
	status, content, txids := u.tracker.Ingest(txid, ctx)
	switch status {
	case inscription.StatusComplete:
		seq := u.nextSequence()
		num := u.nextNumber()
		id := inscription.ID{Txid: txid, Index: 0}
		entry := &inscription.Entry{
			Height:            uint32(u.height),
			ID:                id,
			InscriptionNumber: num,
			SequenceNumber:    seq,
			Timestamp:         uint32(u.height),
		}
		output := firstNonAnchorOutput(ctx)
		if int(output) < len(ctx.Outputs) && ctx.Outputs[output].CovenantType == consensus.CORE_ANCHOR {
			entry.Charms = entry.Charms.Set(inscription.CharmBurned)
		}
		for _, parentID := range content.Parents {
			parentKey := parentID.Store()
			v := u.bucket(bucketInscriptionIDToSeq).Get(parentKey[:])
			if v == nil {
				continue
			}
			parentSeq := decodeUint32(v)
			entry.Parents = append(entry.Parents, parentSeq)
			_ = multimapPut(boltBucket{u.bucket(bucketSeqToChildren)}, encodeUint32(parentSeq), encodeUint32(seq))
		}
		_ = u.bucket(bucketSeqToInscriptionEntry).Put(encodeUint32(seq), encodeInscriptionEntry(entry))
		idKey := id.Store()
		_ = u.bucket(bucketInscriptionIDToSeq).Put(idKey[:], encodeUint32(seq))
		_ = u.bucket(bucketInscriptionNumberToSeq).Put(encodeUint64(num), encodeUint32(seq))
		for _, contributingTxid := range txids {
			_ = multimapPut(boltBucket{u.bucket(bucketInscriptionIDToTxids)}, idKey[:], contributingTxid[:])
		}
		sp := inscription.SatPoint{Txid: txid, Vout: output}
		_ = u.moveSatpoint(seq, sp)
		u.outputOwnerSeq[output] = seq
		resolved = append(resolved, ResolvedInscription{Entry: entry, Content: content})
		revealedSeq, hasReveal = seq, true

	case inscription.StatusPartial:
		for _, contributingTxid := range txids {
			_ = multimapPut(boltBucket{u.bucket(bucketPartialTxidToTxids)}, txid[:], contributingTxid[:])
		}
	}

	for _, seq := range u.outputOwnerSeq {
		if hasReveal && seq == revealedSeq {
			continue
		}
		if raw := u.bucket(bucketSeqToInscriptionEntry).Get(encodeUint32(seq)); raw != nil {
			if entry, err := decodeInscriptionEntry(raw); err == nil {
				resolved = append(resolved, ResolvedInscription{Entry: entry})
			}
		}
	}

	return resolved, u.outputOwnerSeq
}

func (u *InscriptionUpdater) markBurned(seq uint32) {
	raw := u.bucket(bucketSeqToInscriptionEntry).Get(encodeUint32(seq))
	if raw == nil {
		return
	}
	entry, err := decodeInscriptionEntry(raw)
	if err != nil {
		return
	}
	entry.Charms = entry.Charms.Set(inscription.CharmBurned)
	_ = u.bucket(bucketSeqToInscriptionEntry).Put(encodeUint32(seq), encodeInscriptionEntry(entry))
}
