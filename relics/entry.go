package relics

import "math/big"

// RelicState is the mutable counter block of a RelicEntry (spec §3).
type RelicState struct {
	Burned *big.Int
	Mints  *big.Int
	// BaseProceeds accumulates every base-token payment collected by
	// mints so far; it becomes the pool's base_supply the moment the
	// pool is created (spec §4.5 step 4's "locked_base_supply").
	BaseProceeds     *big.Int
	Subsidy          *big.Int
	SubsidyRemaining *big.Int
	SubsidyLocked    bool
}

// NewRelicState returns a zeroed state with non-nil big.Int fields.
func NewRelicState() RelicState {
	return RelicState{
		Burned:           big.NewInt(0),
		Mints:            big.NewInt(0),
		BaseProceeds:     big.NewInt(0),
		Subsidy:          big.NewInt(0),
		SubsidyRemaining: big.NewInt(0),
	}
}

// RelicEntry is the persisted identity and mutable state of a relic
// (spec §3).
type RelicEntry struct {
	Block          uint64
	EnshriningTxid [32]byte
	Number         uint64
	SpacedRelic    SpacedRelic
	Symbol         *rune
	Owner          *uint32
	MintTerms      *MintTerms
	State          RelicState
	Pool           *Pool
	Seed           *big.Int
	Timestamp      uint64
	Turbo          bool
}

// Mintable delegates to MintTerms.Mintable using the entry's own state.
func (e *RelicEntry) Mintable(safeBaseBalance *big.Int) (*big.Int, error) {
	if e.MintTerms == nil {
		return nil, relicErr(ErrUnmintable)
	}
	return e.MintTerms.Mintable(safeBaseBalance, e.State.Mints)
}

// MaxSupply delegates to MintTerms.MaxSupply using the entry's subsidy,
// seed, and (currently unpopulated) boost terms.
func (e *RelicEntry) MaxSupply(boost *BoostTerms) (*big.Int, error) {
	if e.MintTerms == nil {
		return big.NewInt(0), nil
	}
	return e.MintTerms.MaxSupply(e.State.Subsidy, e.Seed, boost)
}

// CirculatingSupply implements invariant 1 of spec §3:
// mints*amount + subsidy_used + seed - pool.quote_supply - burned.
func (e *RelicEntry) CirculatingSupply() *big.Int {
	out := big.NewInt(0)
	if e.MintTerms != nil && e.MintTerms.Amount != nil {
		out.Add(out, new(big.Int).Mul(e.State.Mints, e.MintTerms.Amount))
	}
	subsidyUsed := new(big.Int).Sub(e.State.Subsidy, e.State.SubsidyRemaining)
	out.Add(out, subsidyUsed)
	if e.Seed != nil {
		out.Add(out, e.Seed)
	}
	if e.Pool != nil {
		out.Sub(out, e.Pool.QuoteSupply)
	}
	out.Sub(out, e.State.Burned)
	return out
}

// MaybeCreatePool creates the AMM pool the moment mints reaches cap, if
// both the accumulated base proceeds and the seed are positive (spec
// §4.5 step 4's final clause).
func (e *RelicEntry) MaybeCreatePool() {
	if e.Pool != nil || e.MintTerms == nil || e.MintTerms.Cap == nil {
		return
	}
	if e.State.Mints.Cmp(e.MintTerms.Cap) != 0 {
		return
	}
	if e.State.BaseProceeds.Sign() <= 0 || e.Seed == nil || e.Seed.Sign() <= 0 {
		return
	}
	e.Pool = NewPool(e.State.BaseProceeds, e.Seed)
}

// SyndicateEntry governs chest creation for a treasure relic (spec §3),
// grounded on original_source/src/index/syndicate_entry.rs.
type SyndicateEntry struct {
	SummoningTxid [32]byte
	Sequence      uint32
	Treasure      RelicID
	HeightStart   *uint64
	HeightEnd     *uint64
	Cap           *uint32
	Quota         *big.Int
	Royalty       *big.Int
	Gated         bool
	Lock          *uint64
	Reward        *big.Int
	Turbo         bool
	Chests        uint32
}

// Chestable returns the quota required per chest, or the RelicError that
// forbids encasing a new chest right now (height window, cap).
func (s *SyndicateEntry) Chestable(height uint64) (*big.Int, error) {
	if s.HeightStart != nil && height < *s.HeightStart {
		return nil, relicErrU64(ErrSyndicateStart, *s.HeightStart)
	}
	if s.HeightEnd != nil && height >= *s.HeightEnd {
		return nil, relicErrU64(ErrSyndicateEnd, *s.HeightEnd)
	}
	cap := uint32(0xffffffff)
	if s.Cap != nil {
		cap = *s.Cap
	}
	if s.Chests >= cap {
		return nil, relicErrU64(ErrSyndicateCap, uint64(cap))
	}
	if s.Quota == nil {
		return big.NewInt(0), nil
	}
	return s.Quota, nil
}

// ChestEntry is a locked deposit of a treasure relic, produced by a
// syndicate (spec §3).
type ChestEntry struct {
	Sequence     uint32
	SyndicateID  RelicID
	CreatedBlock uint64
	Amount       *big.Int
}

// ReleasableAt reports whether the chest may be released at height,
// enforcing spec invariant 5 (release forbidden before created_block+lock).
func (c *ChestEntry) ReleasableAt(height uint64, lock *uint64) bool {
	if lock == nil {
		return true
	}
	return height >= c.CreatedBlock+*lock
}
