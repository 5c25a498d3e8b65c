package indexer

import (
	"encoding/binary"
	"fmt"
	"math/big"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/multierr"

	"boneindex.dev/indexer/consensus"
	"boneindex.dev/indexer/inscription"
	"boneindex.dev/indexer/relics"
)

// BonestoneDelegate is the canonical inscription delegate that marks an
// inscription as eligible for the base-token synthetic mint when burned
// (spec §4.5 step 1). Left as a package variable rather than a
// hardcoded constant so a deployment can set it once at genesis time,
// the same way the teacher's consensus package exposes activation
// heights as named constants rather than inlining them at call sites.
var BonestoneDelegate inscription.ID

// BonestoneWindowStart/End bound the block range in which a burned
// bonestone-delegate inscription counts toward the synthetic mint.
var (
	BonestoneWindowStart uint64 = 0
	BonestoneWindowEnd   uint64 = ^uint64(0)
)

// FirstRelicSyndicateHeight is the height at which syndicate summoning
// becomes available (spec §4.5 step 7).
var FirstRelicSyndicateHeight uint64 = 0

// ResolvedInscription pairs an inscription's persisted entry with its
// reconstructed content, in the order the inscription updater
// (component I) lists them — a fresh reveal first, then any
// carried-forward inscription — which also resolves satpoint ownership.
type ResolvedInscription struct {
	Entry   *inscription.Entry
	Content *inscription.Content
}

// RelicUpdater applies one block's worth of transactions to the
// persisted relic state, implementing spec §4.5's per-tx procedure and
// end-of-block subsidy pass. One RelicUpdater is constructed per block
// and discarded once its transactions are processed, matching the single-writer-transaction
// model (spec §5).
type RelicUpdater struct {
	tx        *bolt.Tx
	height    uint64
	timestamp uint64
	events    *relics.EventEmitter

	// swappedThisBlock enforces spec §4.5 step 6's sandwich protection:
	// a relic may only be swapped once per block from a given input id.
	swappedThisBlock map[relics.RelicID]map[relics.RelicID]bool
}

// NewRelicUpdater starts an updater for the block at height/timestamp,
// operating inside tx (the block's single write transaction).
func NewRelicUpdater(tx *bolt.Tx, height, timestamp uint64, events *relics.EventEmitter) *RelicUpdater {
	return &RelicUpdater{
		tx:               tx,
		height:           height,
		timestamp:        timestamp,
		events:           events,
		swappedThisBlock: make(map[relics.RelicID]map[relics.RelicID]bool),
	}
}

// --- bucket + persistence helpers ---

func (u *RelicUpdater) bucket(name []byte) *bolt.Bucket { return u.tx.Bucket(name) }

func (u *RelicUpdater) loadRelicEntry(id relics.RelicID) *relics.RelicEntry {
	raw := u.bucket(bucketRelicIDToEntry).Get(encodeRelicIDKey(id))
	if raw == nil {
		return nil
	}
	e, err := decodeRelicEntry(raw)
	if err != nil {
		return nil
	}
	return e
}

func (u *RelicUpdater) saveRelicEntry(id relics.RelicID, e *relics.RelicEntry) error {
	return u.bucket(bucketRelicIDToEntry).Put(encodeRelicIDKey(id), encodeRelicEntry(e))
}

func (u *RelicUpdater) loadSyndicate(id relics.RelicID) *relics.SyndicateEntry {
	raw := u.bucket(bucketSyndicateIDToEntry).Get(encodeRelicIDKey(id))
	if raw == nil {
		return nil
	}
	s, err := decodeSyndicateEntry(raw)
	if err != nil {
		return nil
	}
	return s
}

func (u *RelicUpdater) saveSyndicate(id relics.RelicID, s *relics.SyndicateEntry) error {
	return u.bucket(bucketSyndicateIDToEntry).Put(encodeRelicIDKey(id), encodeSyndicateEntry(s))
}

func (u *RelicUpdater) loadChest(seq uint32) *relics.ChestEntry {
	raw := u.bucket(bucketSeqToChest).Get(encodeUint32(seq))
	if raw == nil {
		return nil
	}
	c, err := decodeChestEntry(raw)
	if err != nil {
		return nil
	}
	return c
}

func (u *RelicUpdater) nextChestSeq() uint32 {
	stat := u.bucket(bucketStatisticToCount)
	key := []byte("next_chest_seq")
	var n uint32
	if v := stat.Get(key); v != nil {
		n = decodeUint32(v)
	}
	_ = stat.Put(key, encodeUint32(n+1))
	return n
}

func claimableKey(ownerSeq uint32, id relics.RelicID) []byte {
	return append(encodeUint32(ownerSeq), encodeRelicIDKey(id)...)
}

func (u *RelicUpdater) creditClaimable(ownerSeq uint32, id relics.RelicID, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	b := u.bucket(bucketRelicOwnerToClaimable)
	key := claimableKey(ownerSeq, id)
	cur := big.NewInt(0)
	if v := b.Get(key); v != nil {
		cur.SetBytes(v)
	}
	cur.Add(cur, amount)
	return b.Put(key, cur.Bytes())
}

// claimAll drains every claimable balance owed to ownerSeq, returning
// the amounts by relic id and deleting the claimable records.
func (u *RelicUpdater) claimAll(ownerSeq uint32) (map[relics.RelicID]*big.Int, error) {
	b := u.bucket(bucketRelicOwnerToClaimable)
	prefix := encodeUint32(ownerSeq)
	out := make(map[relics.RelicID]*big.Int)
	c := b.Cursor()
	var toDelete [][]byte
	for k, v := c.Seek(prefix); k != nil && len(k) >= 4 && string(k[:4]) == string(prefix); k, v = c.Next() {
		id, err := decodeRelicIDKey(k[4:])
		if err != nil {
			continue
		}
		out[id] = new(big.Int).SetBytes(v)
		toDelete = append(toDelete, append([]byte(nil), k...))
	}
	for _, k := range toDelete {
		if err := b.Delete(k); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func isChildOf(u *RelicUpdater, childSeq, parentSeq uint32) bool {
	raw := multimapList(boltBucket{u.bucket(bucketSeqToChildren)}, encodeUint32(parentSeq))
	for _, r := range raw {
		if len(r) == 4 && binary.BigEndian.Uint32(r) == childSeq {
			return true
		}
	}
	return false
}

func firstNonAnchorOutput(tx consensus.Tx) uint32 {
	for i, out := range tx.Outputs {
		if out.CovenantType != consensus.CORE_ANCHOR {
			return uint32(i)
		}
	}
	return 0
}

// --- per-tx procedure (spec §4.5) ---

// ProcessTx applies one transaction's relic operations inside the
// block's write transaction. Errors from an individual operation never
// abort the tx: they're recorded as a RelicError event and the
// operation's effects are simply skipped (spec §4.5's framing
// paragraph, spec §7 band 1).
func (u *RelicUpdater) ProcessTx(
	txid [32]byte,
	ctx consensus.Tx,
	txIndex uint32,
	ks *relics.Keepsake,
	inscriptions []ResolvedInscription,
	outputOwnerSeq map[uint32]uint32,
	sheet *relics.BalanceSheet,
	cenotaph bool,
) error {
	u.syntheticBaseMint(txid, inscriptions)

	if cenotaph {
		u.forfeit(txid, sheet)
		return nil
	}

	var enshrinedOrMintedID *relics.RelicID
	if ks == nil {
		u.defaultAllocation(txid, ctx, nil, nil, sheet)
		return u.finalize(txid, ctx, sheet)
	}

	if ks.Sealing {
		u.seal(txid, inscriptions, sheet)
	}
	if ks.Enshrining != nil {
		if id, ok := u.enshrine(txid, txIndex, inscriptions, ks.Enshrining, sheet); ok {
			enshrinedOrMintedID = &id
		}
	}
	if ks.Mint != nil {
		if u.mintSingle(txid, *ks.Mint, sheet) {
			enshrinedOrMintedID = ks.Mint
		}
	} else if ks.MultiMint != nil && !ks.MultiMint.IsUnmint {
		if u.mintMulti(txid, ks.MultiMint, sheet) {
			enshrinedOrMintedID = &ks.MultiMint.RelicID
		}
	}
	if ks.Unmint != nil {
		u.unmint(txid, *ks.Unmint, big.NewInt(1), nil, ks.Enshrining != nil, sheet)
	} else if ks.MultiMint != nil && ks.MultiMint.IsUnmint {
		u.unmint(txid, ks.MultiMint.RelicID, big.NewInt(int64(ks.MultiMint.Count)), ks.MultiMint.BaseLimit, ks.Enshrining != nil, sheet)
	}
	if ks.Swap != nil {
		u.swap(txid, ks.Swap, sheet)
	}
	if ks.Summoning != nil {
		u.summon(txid, txIndex, inscriptions, ks.Summoning)
	} else if ks.Encasing != nil {
		u.encaseChest(txid, *ks.Encasing, inscriptions, sheet)
	}
	if ks.Release {
		u.releaseChest(txid, inscriptions, sheet)
	}
	if ks.Claim != nil {
		u.claim(txid, *ks.Claim, outputOwnerSeq, sheet)
	}

	u.defaultAllocation(txid, ctx, ks, enshrinedOrMintedID, sheet)
	return u.finalize(txid, ctx, sheet)
}

// forfeit burns every relic balance sheet carries, the Cenotaph rule: a
// Keepsake that fails to parse costs the transaction's inputs their
// entire relic balance rather than honoring any transfer (spec §4.6).
func (u *RelicUpdater) forfeit(txid [32]byte, sheet *relics.BalanceSheet) {
	for id, amount := range sheet.Balances() {
		if err := sheet.Burn(id, amount); err != nil {
			continue
		}
		if entry := u.loadRelicEntry(id); entry != nil {
			entry.State.Burned.Add(entry.State.Burned, amount)
			_ = u.saveRelicEntry(id, entry)
		}
		u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicBurned, RelicID: id, Amount: amount})
	}
}

func (u *RelicUpdater) syntheticBaseMint(txid [32]byte, inscriptions []ResolvedInscription) {
	base := u.loadRelicEntry(relics.BaseRelicID)
	if base == nil || base.MintTerms == nil {
		return
	}
	changed := false
	for _, ri := range inscriptions {
		if ri.Entry == nil || ri.Content == nil || !ri.Entry.Charms.Has(inscription.CharmBurned) {
			continue
		}
		if ri.Content.Delegate == nil || *ri.Content.Delegate != BonestoneDelegate {
			continue
		}
		if u.height < BonestoneWindowStart || u.height > BonestoneWindowEnd {
			continue
		}
		if base.State.Mints.Cmp(base.MintTerms.Cap) >= 0 {
			u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicError, Operation: relics.OpMint, Err: &relics.RelicError{Code: relics.ErrMintCap}})
			continue
		}
		base.State.Mints.Add(base.State.Mints, big.NewInt(1))
		u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicMinted, RelicID: relics.BaseRelicID, Amount: base.MintTerms.Amount, Price: big.NewInt(0), Count: 1})
		changed = true
	}
	if changed {
		_ = u.saveRelicEntry(relics.BaseRelicID, base)
	}
}

func (u *RelicUpdater) seal(txid [32]byte, inscriptions []ResolvedInscription, sheet *relics.BalanceSheet) {
	if len(inscriptions) == 0 || inscriptions[0].Content == nil {
		u.emitErr(txid, relics.OpSeal, relics.ErrInscriptionMissing)
		return
	}
	sr, ok := inscriptions[0].Content.Sealing()
	if !ok {
		u.emitErr(txid, relics.OpSeal, relics.ErrInscriptionMetadataMissing)
		return
	}
	if sr.Relic.String() == relics.BaseTokenName {
		u.emitErr(txid, relics.OpSeal, relics.ErrSealingBaseToken)
		return
	}
	nameKey := []byte(sr.Relic.String())
	b := u.bucket(bucketRelicToSeq)
	if b.Get(nameKey) != nil {
		u.emitErr(txid, relics.OpSeal, relics.ErrSealingAlreadyExists)
		return
	}
	fee := relics.SealingFee(sr.Relic)
	if sheet.GetSafe(relics.BaseRelicID).Cmp(fee) < 0 {
		u.emitErr(txid, relics.OpSeal, relics.ErrSealingInsufficientBalance)
		return
	}
	if err := sheet.RemoveSafe(relics.BaseRelicID, fee); err != nil {
		u.emitErr(txid, relics.OpSeal, relics.ErrSealingInsufficientBalance)
		return
	}
	if base := u.loadRelicEntry(relics.BaseRelicID); base != nil {
		base.State.Burned.Add(base.State.Burned, fee)
		_ = u.saveRelicEntry(relics.BaseRelicID, base)
	}
	seq := inscriptions[0].Entry.SequenceNumber
	_ = b.Put(nameKey, encodeUint32(seq))
	_ = u.bucket(bucketSeqToSpacedRelic).Put(encodeUint32(seq), []byte(sr.String()))
	u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicSealed, Amount: fee})
}

func (u *RelicUpdater) enshrine(txid [32]byte, txIndex uint32, inscriptions []ResolvedInscription, enshrining *relics.Enshrining, sheet *relics.BalanceSheet) (relics.RelicID, bool) {
	if len(inscriptions) == 0 {
		u.emitErr(txid, relics.OpEnshrine, relics.ErrSealingNotFound)
		return relics.RelicID{}, false
	}
	first := inscriptions[0]
	nameRaw := u.bucket(bucketSeqToSpacedRelic).Get(encodeUint32(first.Entry.SequenceNumber))
	if nameRaw == nil {
		u.emitErr(txid, relics.OpEnshrine, relics.ErrSealingNotFound)
		return relics.RelicID{}, false
	}
	sr, err := relics.ParseSpacedRelic(string(nameRaw))
	if err != nil {
		u.emitErr(txid, relics.OpEnshrine, relics.ErrSealingNotFound)
		return relics.RelicID{}, false
	}
	nameKey := []byte(sr.Relic.String())
	relicBucket := u.bucket(bucketRelicToRelicID)
	if relicBucket.Get(nameKey) != nil {
		u.emitErr(txid, relics.OpEnshrine, relics.ErrRelicAlreadyEnshrined)
		return relics.RelicID{}, false
	}

	id := relics.RelicID{Block: u.height, Tx: txIndex}
	state := relics.NewRelicState()
	if enshrining.Subsidy != nil {
		state.Subsidy = new(big.Int).Set(enshrining.Subsidy)
		state.SubsidyRemaining = new(big.Int).Set(enshrining.Subsidy)
	}
	ownerSeq := first.Entry.SequenceNumber
	entry := &relics.RelicEntry{
		Block:          u.height,
		EnshriningTxid: txid,
		Number:         u.nextRelicNumber(),
		SpacedRelic:    sr,
		Symbol:         enshrining.Symbol,
		Owner:          &ownerSeq,
		MintTerms:      enshrining.MintTerms,
		State:          state,
		Timestamp:      u.timestamp,
		Turbo:          enshrining.Turbo,
	}
	if enshrining.MintTerms != nil {
		entry.Seed = enshrining.MintTerms.Seed
	}
	if err := u.saveRelicEntry(id, entry); err != nil {
		return relics.RelicID{}, false
	}
	if err := relicBucket.Put(nameKey, encodeRelicIDKey(id)); err != nil {
		return relics.RelicID{}, false
	}
	if entry.Seed != nil && entry.Seed.Sign() > 0 {
		sheet.Add(id, entry.Seed)
	}
	u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicEnshrined, RelicID: id})
	return id, true
}

func (u *RelicUpdater) nextRelicNumber() uint64 {
	stat := u.bucket(bucketStatisticToCount)
	key := []byte("next_relic_number")
	var n uint64
	if v := stat.Get(key); v != nil {
		n = decodeUint64(v)
	}
	_ = stat.Put(key, encodeUint64(n+1))
	return n
}

func (u *RelicUpdater) mintSingle(txid [32]byte, id relics.RelicID, sheet *relics.BalanceSheet) bool {
	entry := u.loadRelicEntry(id)
	if entry == nil {
		u.emitErr(txid, relics.OpMint, relics.ErrRelicNotFound)
		return false
	}
	price, err := entry.Mintable(sheet.GetSafe(relics.BaseRelicID))
	if err != nil {
		u.emitErrRaw(txid, relics.OpMint, err)
		return false
	}
	if err := sheet.RemoveSafe(relics.BaseRelicID, price); err != nil {
		u.emitErrRaw(txid, relics.OpMint, err)
		return false
	}
	sheet.Add(id, entry.MintTerms.Amount)
	entry.State.Mints.Add(entry.State.Mints, big.NewInt(1))
	entry.State.BaseProceeds.Add(entry.State.BaseProceeds, price)
	entry.MaybeCreatePool()
	_ = u.saveRelicEntry(id, entry)
	u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicMinted, RelicID: id, Amount: entry.MintTerms.Amount, Price: price, Count: 1})
	return true
}

func (u *RelicUpdater) mintMulti(txid [32]byte, op *relics.MultiMintOp, sheet *relics.BalanceSheet) bool {
	entry := u.loadRelicEntry(op.RelicID)
	if entry == nil || entry.MintTerms == nil {
		u.emitErr(txid, relics.OpMultiMint, relics.ErrRelicNotFound)
		return false
	}
	terms := entry.MintTerms
	mintsBefore := entry.State.Mints
	newMints := new(big.Int).Add(mintsBefore, big.NewInt(int64(op.Count)))
	if newMints.Cmp(terms.Cap) > 0 {
		u.emitErr(txid, relics.OpMultiMint, relics.ErrMintCap)
		return false
	}
	total := big.NewInt(0)
	if terms.Price != nil {
		total = terms.Price.CumulativePrice(mintsBefore, op.Count)
	}
	if op.BaseLimit != nil && total.Cmp(op.BaseLimit) > 0 {
		u.emitErr(txid, relics.OpMultiMint, relics.ErrMintBaseLimitExceeded)
		return false
	}
	if sheet.GetSafe(relics.BaseRelicID).Cmp(total) < 0 {
		u.emitErrRaw(txid, relics.OpMultiMint, &relics.RelicError{Code: relics.ErrMintInsufficientBalance, Detail: total})
		return false
	}
	if err := sheet.RemoveSafe(relics.BaseRelicID, total); err != nil {
		u.emitErrRaw(txid, relics.OpMultiMint, err)
		return false
	}
	totalAmount := new(big.Int).Mul(terms.Amount, big.NewInt(int64(op.Count)))
	sheet.Add(op.RelicID, totalAmount)
	entry.State.Mints = newMints
	entry.State.BaseProceeds.Add(entry.State.BaseProceeds, total)
	entry.MaybeCreatePool()
	_ = u.saveRelicEntry(op.RelicID, entry)
	u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicMultiMinted, RelicID: op.RelicID, Amount: totalAmount, Price: total, Count: op.Count})
	return true
}

func (u *RelicUpdater) unmint(txid [32]byte, id relics.RelicID, n, minRefund *big.Int, hadEnshrining bool, sheet *relics.BalanceSheet) {
	if hadEnshrining {
		u.emitErr(txid, relics.OpUnmint, relics.ErrUnmintNotAllowed)
		return
	}
	entry := u.loadRelicEntry(id)
	if entry == nil || entry.MintTerms == nil || entry.MintTerms.MaxUnmints == nil || *entry.MintTerms.MaxUnmints == 0 {
		u.emitErr(txid, relics.OpUnmint, relics.ErrUnmintNotAllowed)
		return
	}
	if entry.State.Mints.Cmp(n) < 0 {
		u.emitErr(txid, relics.OpUnmint, relics.ErrNoMintsToUnmint)
		return
	}
	needed := new(big.Int).Mul(entry.MintTerms.Amount, n)
	if sheet.Get(id).Cmp(needed) < 0 {
		u.emitErr(txid, relics.OpUnmint, relics.ErrUnmintInsufficientBalance)
		return
	}
	mintsAfterReversal := new(big.Int).Sub(entry.State.Mints, n)
	refund := big.NewInt(0)
	if entry.MintTerms.Price != nil {
		refund = entry.MintTerms.Price.CumulativePrice(mintsAfterReversal, uint8(n.Int64()))
	}
	if minRefund != nil && refund.Cmp(minRefund) < 0 {
		u.emitErr(txid, relics.OpUnmint, relics.ErrMintBaseLimitExceeded)
		return
	}
	if err := sheet.Remove(id, needed); err != nil {
		u.emitErrRaw(txid, relics.OpUnmint, err)
		return
	}
	sheet.Add(relics.BaseRelicID, refund)
	entry.State.Mints = mintsAfterReversal
	entry.State.BaseProceeds.Sub(entry.State.BaseProceeds, refund)
	_ = u.saveRelicEntry(id, entry)
	u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicUnminted, RelicID: id, Amount: needed, Price: refund, Count: uint8(n.Int64())})
}

func (u *RelicUpdater) swap(txid [32]byte, s *relics.Swap, sheet *relics.BalanceSheet) {
	inputID := relics.BaseRelicID
	if s.Input != nil {
		inputID = *s.Input
	}
	outputID := relics.BaseRelicID
	if s.Output != nil {
		outputID = *s.Output
	}
	if inputID != relics.BaseRelicID && outputID != relics.BaseRelicID {
		// Dual swap: decompose via the base token, slippage checked on
		// the second leg only (spec §4.4).
		mid, ok := u.swapLeg(txid, inputID, relics.BaseRelicID, s.InputAmount, nil, s.IsExactInput, sheet)
		if !ok {
			return
		}
		u.swapLeg(txid, relics.BaseRelicID, outputID, mid, s.OutputAmount, s.IsExactInput, sheet)
		return
	}
	u.swapLeg(txid, inputID, outputID, s.InputAmount, s.OutputAmount, s.IsExactInput, sheet)
}

// swapLeg executes one AMM leg, input -> output, where exactly one of
// input/output is the base token. Returns the amount on the side not
// pinned by the exact-input/output flag, for chaining a dual swap.
func (u *RelicUpdater) swapLeg(txid [32]byte, inputID, outputID relics.RelicID, pinnedAmount, slippageBound *big.Int, exactInput bool, sheet *relics.BalanceSheet) (*big.Int, bool) {
	poolRelicID, dir := inputID, relics.QuoteToBase
	if inputID == relics.BaseRelicID {
		poolRelicID, dir = outputID, relics.BaseToQuote
	}
	entry := u.loadRelicEntry(poolRelicID)
	if entry == nil || entry.Pool == nil {
		u.emitErrRaw(txid, relics.OpSwap, &relics.RelicError{Code: relics.ErrSwapNotAvailable})
		return nil, false
	}
	if entry.MintTerms != nil && entry.MintTerms.SwapHeight != nil && u.height < *entry.MintTerms.SwapHeight {
		u.emitErrRaw(txid, relics.OpSwap, &relics.RelicError{Code: relics.ErrSwapHeightNotReached})
		return nil, false
	}
	if u.swappedThisBlock[poolRelicID] == nil {
		u.swappedThisBlock[poolRelicID] = make(map[relics.RelicID]bool)
	}
	if u.swappedThisBlock[poolRelicID][inputID] {
		u.emitErrRaw(txid, relics.OpSwap, &relics.RelicError{Code: relics.ErrSwapFailed})
		return nil, false
	}

	var result *relics.SwapResult
	var err error
	if exactInput {
		if sheet.GetSafe(inputID).Cmp(pinnedAmount) < 0 {
			u.emitErrRaw(txid, relics.OpSwap, &relics.RelicError{Code: relics.ErrSwapInsufficientBalance})
			return nil, false
		}
		result, err = entry.Pool.SwapExactInput(dir, pinnedAmount, slippageBound)
	} else {
		result, err = entry.Pool.SwapExactOutput(dir, pinnedAmount, slippageBound)
	}
	if err != nil {
		u.emitErrRaw(txid, relics.OpSwap, err)
		return nil, false
	}
	if err := sheet.RemoveSafe(inputID, result.InputAmount); err != nil {
		u.emitErrRaw(txid, relics.OpSwap, err)
		return nil, false
	}
	sheet.Add(outputID, result.OutputAmount)

	if entry.Owner != nil {
		_ = u.creditClaimable(*entry.Owner, inputID, result.Fee)
	} else {
		entry.State.Burned.Add(entry.State.Burned, result.Fee)
	}
	_ = u.saveRelicEntry(poolRelicID, entry)
	u.swappedThisBlock[poolRelicID][inputID] = true

	u.events.Emit(txid, relics.EventInfo{
		Kind: relics.EventRelicSwapped, SwapInput: inputID, SwapOutput: outputID,
		SwapInputAmount: result.InputAmount, SwapOutputAmount: result.OutputAmount, Fee: result.Fee,
	})

	if exactInput {
		return result.OutputAmount, true
	}
	return result.InputAmount, true
}

func (u *RelicUpdater) summon(txid [32]byte, txIndex uint32, inscriptions []ResolvedInscription, s *relics.Summoning) {
	if u.height < FirstRelicSyndicateHeight {
		u.emitErr(txid, relics.OpSummon, relics.ErrSyndicateNotFound)
		return
	}
	if len(inscriptions) == 0 {
		u.emitErr(txid, relics.OpSummon, relics.ErrInscriptionMissing)
		return
	}
	first := inscriptions[0]
	treasure := relics.BaseRelicID
	if s.Treasure != nil {
		treasure = *s.Treasure
	}
	if s.Reward != nil || s.LockSubsidy {
		treasureEntry := u.loadRelicEntry(treasure)
		if treasureEntry == nil || treasureEntry.Owner == nil || !isChildOf(u, first.Entry.SequenceNumber, *treasureEntry.Owner) {
			u.emitErr(txid, relics.OpSummon, relics.ErrRelicOwnerOnly)
			return
		}
	}
	id := relics.RelicID{Block: u.height, Tx: txIndex}
	entry := &relics.SyndicateEntry{
		SummoningTxid: txid,
		Sequence:      first.Entry.SequenceNumber,
		Treasure:      treasure,
		HeightStart:   s.HeightStart,
		HeightEnd:     s.HeightEnd,
		Cap:           s.Cap,
		Quota:         s.Quota,
		Royalty:       s.Royalty,
		Gated:         s.Gated,
		Lock:          s.Lock,
		Reward:        s.Reward,
		Turbo:         s.Turbo,
	}
	if err := u.saveSyndicate(id, entry); err != nil {
		return
	}
	_ = u.bucket(bucketSeqToSyndicateID).Put(encodeUint32(first.Entry.SequenceNumber), encodeRelicIDKey(id))
	u.events.Emit(txid, relics.EventInfo{Kind: relics.EventSyndicateSummoned, Syndicate: id, Sequence: first.Entry.SequenceNumber})

	if s.LockSubsidy {
		if treasureEntry := u.loadRelicEntry(treasure); treasureEntry != nil {
			treasureEntry.State.SubsidyLocked = true
			_ = u.saveRelicEntry(treasure, treasureEntry)
			u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicSubsidyLocked, RelicID: treasure})
		}
	}
}

func (u *RelicUpdater) encaseChest(txid [32]byte, syndicateID relics.RelicID, inscriptions []ResolvedInscription, sheet *relics.BalanceSheet) {
	if len(inscriptions) == 0 {
		u.emitErr(txid, relics.OpEncase, relics.ErrInscriptionMissing)
		return
	}
	first := inscriptions[0]
	syn := u.loadSyndicate(syndicateID)
	if syn == nil {
		u.emitErr(txid, relics.OpEncase, relics.ErrSyndicateNotFound)
		return
	}
	quota, err := syn.Chestable(u.height)
	if err != nil {
		u.emitErrRaw(txid, relics.OpEncase, err)
		return
	}
	if syn.Gated && !isChildOf(u, first.Entry.SequenceNumber, syn.Sequence) {
		u.emitErr(txid, relics.OpEncase, relics.ErrSyndicateIsGated)
		return
	}
	if sheet.Get(syn.Treasure).Cmp(quota) < 0 {
		u.emitErr(txid, relics.OpEncase, relics.ErrChestInsufficientBalance)
		return
	}
	if err := sheet.Remove(syn.Treasure, quota); err != nil {
		u.emitErrRaw(txid, relics.OpEncase, err)
		return
	}
	if syn.Royalty != nil && syn.Royalty.Sign() > 0 {
		if err := sheet.RemoveSafe(relics.BaseRelicID, syn.Royalty); err == nil {
			_ = u.creditClaimable(syn.Sequence, relics.BaseRelicID, syn.Royalty)
		}
	}
	seq := first.Entry.SequenceNumber
	chest := &relics.ChestEntry{Sequence: seq, SyndicateID: syndicateID, CreatedBlock: u.height, Amount: quota}
	_ = u.bucket(bucketSeqToChest).Put(encodeUint32(seq), encodeChestEntry(chest))
	_ = multimapPut(boltBucket{u.bucket(bucketSyndicateIDToChestSeq)}, encodeRelicIDKey(syndicateID), encodeUint32(seq))
	syn.Chests++
	_ = u.saveSyndicate(syndicateID, syn)
	u.events.Emit(txid, relics.EventInfo{Kind: relics.EventChestEncased, Syndicate: syndicateID, Sequence: seq, Amount: quota})
}

func (u *RelicUpdater) releaseChest(txid [32]byte, inscriptions []ResolvedInscription, sheet *relics.BalanceSheet) {
	if len(inscriptions) == 0 {
		u.emitErr(txid, relics.OpRelease, relics.ErrInscriptionMissing)
		return
	}
	chest := u.loadChest(inscriptions[0].Entry.SequenceNumber)
	if chest == nil {
		u.emitErr(txid, relics.OpRelease, relics.ErrChestNotFound)
		return
	}
	syn := u.loadSyndicate(chest.SyndicateID)
	if syn == nil {
		u.emitErr(txid, relics.OpRelease, relics.ErrSyndicateNotFound)
		return
	}
	if !chest.ReleasableAt(u.height, syn.Lock) {
		u.emitErr(txid, relics.OpRelease, relics.ErrChestLocked)
		return
	}
	sheet.Add(syn.Treasure, chest.Amount)
	_ = u.bucket(bucketSeqToChest).Delete(encodeUint32(chest.Sequence))
	_ = multimapDelete(boltBucket{u.bucket(bucketSyndicateIDToChestSeq)}, encodeRelicIDKey(chest.SyndicateID), encodeUint32(chest.Sequence))
	u.events.Emit(txid, relics.EventInfo{Kind: relics.EventChestReleased, Syndicate: chest.SyndicateID, Sequence: chest.Sequence, Amount: chest.Amount})
}

func (u *RelicUpdater) claim(txid [32]byte, output uint32, outputOwnerSeq map[uint32]uint32, sheet *relics.BalanceSheet) {
	ownerSeq, ok := outputOwnerSeq[output]
	if !ok {
		u.emitErr(txid, relics.OpClaim, relics.ErrNoClaimableBalance)
		return
	}
	amounts, err := u.claimAll(ownerSeq)
	if err != nil || len(amounts) == 0 {
		u.emitErr(txid, relics.OpClaim, relics.ErrNoClaimableBalance)
		return
	}
	for id, amount := range amounts {
		sheet.Add(id, amount)
		u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicClaimed, RelicID: id, Amount: amount, Output: output})
	}
}

func (u *RelicUpdater) defaultAllocation(txid [32]byte, ctx consensus.Tx, ks *relics.Keepsake, defaultID *relics.RelicID, sheet *relics.BalanceSheet) {
	var pointer *uint32
	if ks != nil {
		sheet.AllocateTransfers(ks.Transfers, defaultID)
		pointer = ks.Pointer
	}
	if !sheet.Outstanding() {
		return
	}
	target := firstNonAnchorOutput(ctx)
	if pointer != nil {
		target = *pointer
	}
	sheet.AllocateAll(target)
}

func (u *RelicUpdater) finalize(txid [32]byte, ctx consensus.Tx, sheet *relics.BalanceSheet) error {
	alloc := sheet.Finalize()
	for output, balances := range alloc {
		if int(output) < len(ctx.Outputs) && ctx.Outputs[output].CovenantType == consensus.CORE_ANCHOR {
			for id, amount := range balances {
				if entry := u.loadRelicEntry(id); entry != nil {
					entry.State.Burned.Add(entry.State.Burned, amount)
					_ = u.saveRelicEntry(id, entry)
				}
				u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicBurned, RelicID: id, Amount: amount, Output: output})
			}
			continue
		}
		if err := u.bucket(bucketOutpointToBalances).Put(encodeOutpointKey(txid, output), encodeBalances(balances)); err != nil {
			return err
		}
		for id, amount := range balances {
			u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicReceived, RelicID: id, Amount: amount, Output: output})
		}
	}
	return nil
}

func (u *RelicUpdater) emitErr(txid [32]byte, op relics.RelicOperation, code relics.RelicErrorCode) {
	u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicError, Operation: op, Err: &relics.RelicError{Code: code}})
}

func (u *RelicUpdater) emitErrRaw(txid [32]byte, op relics.RelicOperation, err error) {
	u.events.Emit(txid, relics.EventInfo{Kind: relics.EventRelicError, Operation: op, Err: err})
}

// EndOfBlockSubsidyPass distributes each syndicate's positive reward
// across its chests proportional to their count, bounded by the
// treasure relic's remaining subsidy (spec §4.5's end-of-block pass).
func EndOfBlockSubsidyPass(tx *bolt.Tx, height uint64, events *relics.EventEmitter) error {
	u := &RelicUpdater{tx: tx, height: height, events: events}
	synBucket := tx.Bucket(bucketSyndicateIDToEntry)
	c := synBucket.Cursor()
	var errs error
	for k, v := c.First(); k != nil; k, v = c.Next() {
		syn, err := decodeSyndicateEntry(v)
		if err != nil || syn.Reward == nil || syn.Reward.Sign() <= 0 || syn.Chests == 0 {
			continue
		}
		id, err := decodeRelicIDKey(k)
		if err != nil {
			continue
		}
		entry := u.loadRelicEntry(syn.Treasure)
		if entry == nil || entry.State.SubsidyRemaining.Sign() <= 0 {
			continue
		}
		share := new(big.Int).Quo(syn.Reward, big.NewInt(int64(syn.Chests)))
		if share.Cmp(entry.State.SubsidyRemaining) > 0 {
			share = new(big.Int).Set(entry.State.SubsidyRemaining)
		}
		if share.Sign() <= 0 {
			continue
		}
		total := new(big.Int).Mul(share, big.NewInt(int64(syn.Chests)))
		if total.Cmp(entry.State.SubsidyRemaining) > 0 {
			total = new(big.Int).Set(entry.State.SubsidyRemaining)
		}
		entry.State.SubsidyRemaining.Sub(entry.State.SubsidyRemaining, total)
		if err := u.saveRelicEntry(syn.Treasure, entry); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("relics: subsidy pass for syndicate %s: %w", id, err))
		}
	}
	return errs
}
