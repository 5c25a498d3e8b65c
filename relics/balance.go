package relics

import "math/big"

// BalanceSheet is the per-transaction ledger of relic-denominated value
// flowing through a transaction's inputs, built up by summing the
// relic balances attached to each spent UTXO (spec §4.7).
//
// Two views are kept per relic id: the "total" balance (everything the
// tx's inputs carry, including amounts minted or enshrined within this
// same tx) and the "safe" balance (only value that existed in a
// confirmed UTXO before this tx began, i.e. excludes anything freshly
// minted here). Mint payment and swap cost-basis checks consult the
// safe balance so a transaction cannot pay for its own mint with coins
// it is minting in the same breath.
type BalanceSheet struct {
	total       map[RelicID]*big.Int
	safe        map[RelicID]*big.Int
	allocations map[uint32]map[RelicID]*big.Int
}

// NewBalanceSheet returns an empty sheet.
func NewBalanceSheet() *BalanceSheet {
	return &BalanceSheet{
		total:       make(map[RelicID]*big.Int),
		safe:        make(map[RelicID]*big.Int),
		allocations: make(map[uint32]map[RelicID]*big.Int),
	}
}

// Add credits amount to id's total balance only (used for value created
// within the transaction itself: mint proceeds, enshrining seed, swap
// output, chest release).
func (b *BalanceSheet) Add(id RelicID, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	cur := b.total[id]
	if cur == nil {
		cur = big.NewInt(0)
	}
	b.total[id] = new(big.Int).Add(cur, amount)
}

// AddSafe credits amount to both the total and safe balances (used when
// summing a spent UTXO's carried relic balance at the start of
// processing a transaction).
func (b *BalanceSheet) AddSafe(id RelicID, amount *big.Int) {
	b.Add(id, amount)
	if amount == nil || amount.Sign() == 0 {
		return
	}
	cur := b.safe[id]
	if cur == nil {
		cur = big.NewInt(0)
	}
	b.safe[id] = new(big.Int).Add(cur, amount)
}

// Remove debits amount from id's total balance, returning an error if
// the balance would go negative.
func (b *BalanceSheet) Remove(id RelicID, amount *big.Int) error {
	cur := b.Get(id)
	if cur.Cmp(amount) < 0 {
		return relicErr(ErrUnmintNotAllowed)
	}
	b.total[id] = new(big.Int).Sub(cur, amount)
	if safe := b.safe[id]; safe != nil && safe.Cmp(amount) >= 0 {
		b.safe[id] = new(big.Int).Sub(safe, amount)
	}
	return nil
}

// RemoveSafe debits amount from both the total and safe balances,
// returning an error if the SAFE balance specifically would go
// negative — used to pay for a mint or a swap input, where freshly
// created value in the same tx must not count as available funds.
func (b *BalanceSheet) RemoveSafe(id RelicID, amount *big.Int) error {
	safe := b.GetSafe(id)
	if safe.Cmp(amount) < 0 {
		return relicErr(ErrSwapInsufficientBalance)
	}
	if err := b.Remove(id, amount); err != nil {
		return err
	}
	b.safe[id] = new(big.Int).Sub(safe, amount)
	return nil
}

// Get returns id's current total balance (zero if untouched).
func (b *BalanceSheet) Get(id RelicID) *big.Int {
	if v := b.total[id]; v != nil {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

// GetSafe returns id's current safe balance (zero if untouched).
func (b *BalanceSheet) GetSafe(id RelicID) *big.Int {
	if v := b.safe[id]; v != nil {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

// Burn removes amount from id's total balance without allocating it to
// any output; callers also credit the relic's RelicState.Burned by the
// same amount (spec §4.5's Cenotaph and explicit-burn paths).
func (b *BalanceSheet) Burn(id RelicID, amount *big.Int) error {
	return b.Remove(id, amount)
}

// Allocate moves amount of id out of the unallocated total balance and
// into output's allocation, the final step that determines what relic
// balance a new UTXO will carry.
func (b *BalanceSheet) Allocate(id RelicID, amount *big.Int, output uint32) error {
	if err := b.Remove(id, amount); err != nil {
		return err
	}
	b.creditAllocation(output, id, amount)
	return nil
}

// AllocateAll sends every relic id's entire remaining total balance to
// output, used for the default-allocation fallback when a transaction
// carries no explicit transfers for a balance still outstanding after
// processing (spec §4.7's "unallocated relics go to the first
// non-CORE_ANCHOR output, or burn if none exists").
func (b *BalanceSheet) AllocateAll(output uint32) {
	for id, amount := range b.total {
		if amount.Sign() == 0 {
			continue
		}
		b.creditAllocation(output, id, amount)
		delete(b.total, id)
		delete(b.safe, id)
	}
}

// AllocateTransfers applies an explicit Body-chunk transfer list: each
// Transfer's zero-value id is replaced by defaultID (the relic just
// minted or enshrined in this tx, per spec §4.7), a requested amount of
// zero means "transfer the entire remaining balance", and amounts
// exceeding the remaining balance are silently capped to it rather than
// erroring (spec §4.2's Transfer semantics).
func (b *BalanceSheet) AllocateTransfers(transfers []Transfer, defaultID *RelicID) {
	for _, tr := range transfers {
		id := tr.ID
		if id == (RelicID{}) && defaultID != nil {
			id = *defaultID
		}
		remaining := b.Get(id)
		if remaining.Sign() == 0 {
			continue
		}
		amount := tr.Amount
		if amount == nil || amount.Sign() == 0 || amount.Cmp(remaining) > 0 {
			amount = remaining
		}
		_ = b.Allocate(id, amount, tr.Output)
	}
}

// Balances returns a snapshot of every relic id still carrying an
// unallocated total balance, for a caller that needs to dispose of the
// whole sheet at once (the Cenotaph forfeiture path).
func (b *BalanceSheet) Balances() map[RelicID]*big.Int {
	out := make(map[RelicID]*big.Int, len(b.total))
	for id, amount := range b.total {
		if amount.Sign() == 0 {
			continue
		}
		out[id] = new(big.Int).Set(amount)
	}
	return out
}

// Finalize returns the per-output allocation map built up by Allocate /
// AllocateAll / AllocateTransfers, for the block updater to persist as
// each output UTXO's carried relic balance.
func (b *BalanceSheet) Finalize() map[uint32]map[RelicID]*big.Int {
	return b.allocations
}

// Outstanding reports whether any relic id still carries an unallocated
// total balance after processing — callers use this to decide whether a
// default allocation or a burn is required before the tx closes out.
func (b *BalanceSheet) Outstanding() bool {
	for _, amount := range b.total {
		if amount.Sign() != 0 {
			return true
		}
	}
	return false
}

func (b *BalanceSheet) creditAllocation(output uint32, id RelicID, amount *big.Int) {
	m := b.allocations[output]
	if m == nil {
		m = make(map[RelicID]*big.Int)
		b.allocations[output] = m
	}
	cur := m[id]
	if cur == nil {
		cur = big.NewInt(0)
	}
	m[id] = new(big.Int).Add(cur, amount)
}
