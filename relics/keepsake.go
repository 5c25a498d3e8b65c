package relics

import (
	"math/big"

	"boneindex.dev/indexer/consensus"
)

// Transfer is a decoded Body-chunk entry: move amount of relic id to
// output. Transfers[i].ID == (0,0) is a sentinel meaning "the relic
// enshrined in this tx, or the sole relic minted in this tx" (spec §4.7).
type Transfer struct {
	ID     RelicID
	Amount *big.Int
	Output uint32
}

// PriceFormula is the hyperbolic mint-price curve: price(x) = a - b/(c+x),
// saturating at zero.
type PriceFormula struct {
	A, B, C *big.Int
}

// PriceModel is either a fixed per-mint price or a PriceFormula. Exactly
// one of Fixed/Formula is set.
type PriceModel struct {
	Fixed   *big.Int
	Formula *PriceFormula
}

// BoostChance is a rare-mint capacity reservation: Multiplier is applied
// to terms.Amount with probability Chance (out of some fixed
// denominator). Per spec.md §9, actual multiplier *selection* is out of
// scope pending a defined RNG source; BoostTerms here is only consulted
// by MaxSupply's overflow-checking capacity reservation.
type BoostChance struct {
	Chance     *big.Int
	Multiplier *big.Int
}

type BoostTerms struct {
	Chances []BoostChance
}

// MintTerms governs minting of a relic (spec §3).
type MintTerms struct {
	Amount      *big.Int
	Cap         *big.Int
	Price       *PriceModel
	Seed        *big.Int
	SwapHeight  *uint64
	MaxPerBlock *big.Int
	MaxPerTx    *big.Int
	MaxUnmints  *uint64
}

// Enshrining is the payload of a Keepsake carrying the Enshrining flag:
// mint terms, optional boost terms, subsidy, display symbol, turbo flag.
type Enshrining struct {
	MintTerms  *MintTerms
	BoostTerms *BoostTerms
	Subsidy    *big.Int
	Symbol     *rune
	Turbo      bool
}

// MultiMintOp is a batch mint or unmint of Count units.
type MultiMintOp struct {
	Count      uint8
	BaseLimit  *big.Int
	RelicID    RelicID
	IsUnmint   bool
}

// Swap describes an AMM operation. Input/Output default to the base
// token when nil.
type Swap struct {
	Input        *RelicID
	Output       *RelicID
	InputAmount  *big.Int
	OutputAmount *big.Int
	IsExactInput bool
}

// Summoning creates a syndicate over a treasure relic (default base).
type Summoning struct {
	Treasure    *RelicID
	Gated       bool
	Cap         *uint32
	Lock        *uint64
	HeightStart *uint64
	HeightEnd   *uint64
	Quota       *big.Int
	Royalty     *big.Int
	Reward      *big.Int
	LockSubsidy bool
	Turbo       bool
}

// Keepsake is the decoded protocol message (spec §4.2). All fields
// except Transfers are optional.
type Keepsake struct {
	Transfers  []Transfer
	Pointer    *uint32
	Claim      *uint32
	Sealing    bool
	Enshrining *Enshrining
	Mint       *RelicID
	Unmint     *RelicID
	MultiMint  *MultiMintOp
	Swap       *Swap
	Summoning  *Summoning
	Encasing   *RelicID
	Release    bool
	Manifest   bool
}

// Envelope locates the first output whose covenant carries a protocol
// payload (spec §6.1's OP_RETURN magic-opcode match, mapped per
// SPEC_FULL.md §1 onto a CORE_ANCHOR covenant output) and returns its raw
// payload bytes.
func Envelope(tx consensus.Tx) ([]byte, bool) {
	for _, out := range tx.Outputs {
		if out.CovenantType == consensus.CORE_ANCHOR {
			return out.CovenantData, true
		}
	}
	return nil, false
}

// Decipher decodes the Keepsake carried by tx, if any. A nil Keepsake and
// nil Cenotaph with ok=false means the tx carries no protocol envelope at
// all. A non-nil Cenotaph means an envelope was found but the message was
// invalid; every relic balance among the tx's inputs must burn.
func Decipher(tx consensus.Tx) (keepsake *Keepsake, cenotaph *Cenotaph, ok bool) {
	payload, found := Envelope(tx)
	if !found {
		return nil, nil, false
	}

	integers, err := decodeIntegers(payload)
	if err != nil {
		return nil, &Cenotaph{Flaw: FlawVarint}, true
	}

	msg, flaw := parseMessage(integers, uint32(len(tx.Outputs)))
	if flaw != "" {
		return nil, &Cenotaph{Flaw: flaw}, true
	}

	ks, flaw := msg.toKeepsake(uint32(len(tx.Outputs)))
	if flaw != "" {
		return nil, &Cenotaph{Flaw: flaw}, true
	}

	return ks, nil, true
}

// decodeIntegers splits payload into the flat varint sequence that
// parseMessage consumes. A mid-stream decode failure (overflow, overlong,
// unterminated trailing bytes) is reported as a single error; the caller
// treats it as FlawVarint.
func decodeIntegers(payload []byte) ([]*big.Int, error) {
	var out []*big.Int
	for len(payload) > 0 {
		n, consumed, err := DecodeVarint(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
		payload = payload[consumed:]
	}
	return out, nil
}

// rawMessage is the intermediate tag -> value(s) map plus the raw Body
// chunk, mirroring original_source/src/relics/keepsake/message.rs's
// Message::from_integers.
type rawMessage struct {
	fields map[Tag]*big.Int
	body   []Transfer
}

func parseMessage(integers []*big.Int, numOutputs uint32) (*rawMessage, RelicFlaw) {
	fields := make(map[Tag]*big.Int)
	var body []Transfer
	i := 0
	for i < len(integers) {
		tagVal := integers[i]
		if !tagVal.IsUint64() || tagVal.Uint64() > 255 {
			return nil, FlawTruncatedField
		}
		tag := Tag(tagVal.Uint64())
		if tag == TagBody {
			i++
			chunks, flaw := parseBody(integers[i:], numOutputs)
			if flaw != "" {
				return nil, flaw
			}
			body = chunks
			// Body must be the final field; anything after it is a flaw
			// only if it doesn't itself parse as a 4-tuple, which
			// parseBody already consumes greedily to completion.
			return &rawMessage{fields: fields, body: body}, ""
		}
		if i+1 >= len(integers) {
			return nil, FlawTruncatedField
		}
		value := integers[i+1]
		if tag.Even() {
			if _, exists := fields[tag]; exists {
				return nil, FlawUnrecognizedEvenTag
			}
			fields[tag] = value
		} else if _, exists := fields[tag]; !exists {
			fields[tag] = value
		}
		i += 2
	}
	return &rawMessage{fields: fields, body: body}, ""
}

// parseBody parses the trailing sequence of 4-tuples
// (delta_block, delta_tx, amount, output_index) into Transfers, applying
// delta-encoded relic-id ordering. Trailing integers that don't complete
// a 4-tuple are FlawTrailingIntegers.
func parseBody(integers []*big.Int, numOutputs uint32) ([]Transfer, RelicFlaw) {
	if len(integers)%4 != 0 {
		return nil, FlawTrailingIntegers
	}
	var transfers []Transfer
	id := RelicID{}
	for i := 0; i+3 < len(integers); i += 4 {
		deltaBlockBig, deltaTxBig, amount, outputBig := integers[i], integers[i+1], integers[i+2], integers[i+3]
		if !deltaBlockBig.IsUint64() || !deltaTxBig.IsUint64() {
			return nil, FlawTransferRelicID
		}
		deltaTx := deltaTxBig.Uint64()
		if deltaTx > (1<<32 - 1) {
			return nil, FlawTransferRelicID
		}
		id = id.Next(deltaBlockBig.Uint64(), uint32(deltaTx))
		if !id.Valid() {
			return nil, FlawTransferRelicID
		}
		if !outputBig.IsUint64() || outputBig.Uint64() > uint64(numOutputs) {
			return nil, FlawTransferOutput
		}
		transfers = append(transfers, Transfer{
			ID:     id,
			Amount: new(big.Int).Set(amount),
			Output: uint32(outputBig.Uint64()),
		})
	}
	return transfers, ""
}

// toKeepsake interprets a rawMessage's tag fields into the typed Keepsake,
// applying the flags bitmap and every Cenotaph-inducing validation listed
// in spec §4.2/§4.6.
func (m *rawMessage) toKeepsake(numOutputs uint32) (*Keepsake, RelicFlaw) {
	flagsVal, hasFlags := m.fields[TagFlags]
	var flags Flags
	if hasFlags {
		if !flagsVal.IsUint64() {
			return nil, FlawUnrecognizedFlag
		}
		flags = Flags(flagsVal.Uint64())
		if flags.Unrecognized() {
			return nil, FlawUnrecognizedFlag
		}
	}

	ks := &Keepsake{Transfers: m.body}

	if v, ok := m.fields[TagPointer]; ok {
		if !v.IsUint64() || v.Uint64() > uint64(numOutputs) {
			return nil, FlawTransferOutput
		}
		p := uint32(v.Uint64())
		ks.Pointer = &p
	}
	if v, ok := m.fields[TagClaim]; ok {
		if !v.IsUint64() || v.Uint64() > uint64(numOutputs) {
			return nil, FlawTransferOutput
		}
		c := uint32(v.Uint64())
		ks.Claim = &c
	}

	ks.Sealing = flags.Has(FlagSealing)
	ks.Release = flags.Has(FlagRelease)
	ks.Manifest = flags.Has(FlagManifest)

	if flags.Has(FlagEnshrining) {
		if flags.Has(FlagManifest) {
			return nil, FlawEnshriningAndManifest
		}
		if flags.Has(FlagSummoning) {
			return nil, FlawEnshriningAndSummoning
		}
		enshrining, flaw := buildEnshrining(m.fields, flags)
		if flaw != "" {
			return nil, flaw
		}
		ks.Enshrining = enshrining
	}

	if v, ok := m.fields[TagMint]; ok {
		id, flaw := relicIDFromPacked(v)
		if flaw != "" {
			return nil, flaw
		}
		if id == BaseRelicID {
			return nil, FlawInvalidBaseTokenMint
		}
		ks.Mint = &id
	}
	if v, ok := m.fields[TagUnmint]; ok {
		id, flaw := relicIDFromPacked(v)
		if flaw != "" {
			return nil, flaw
		}
		if id == BaseRelicID {
			return nil, FlawInvalidBaseTokenUnmint
		}
		ks.Unmint = &id
	}

	if v, ok := m.fields[TagMultiMintCount]; ok {
		if !v.IsUint64() || v.Uint64() > 255 {
			return nil, FlawTruncatedField
		}
		relID, flaw := relicIDFromPacked(m.fields[TagMultiMintRelic])
		if flaw != "" {
			return nil, flaw
		}
		op := &MultiMintOp{
			Count:    uint8(v.Uint64()),
			RelicID:  relID,
			IsUnmint: flags.Has(FlagMultiUnmint),
		}
		if lim, ok := m.fields[TagMultiMintBaseLimit]; ok {
			op.BaseLimit = lim
		}
		ks.MultiMint = op
	}

	if flags.Has(FlagSwap) {
		swap := &Swap{IsExactInput: flags.Has(FlagSwapExactInput)}
		if v, ok := m.fields[TagSwapInput]; ok {
			id, flaw := relicIDFromPacked(v)
			if flaw != "" {
				return nil, flaw
			}
			swap.Input = &id
		}
		if v, ok := m.fields[TagSwapOutput]; ok {
			id, flaw := relicIDFromPacked(v)
			if flaw != "" {
				return nil, flaw
			}
			swap.Output = &id
		}
		if v, ok := m.fields[TagSwapInputAmount]; ok {
			swap.InputAmount = v
		}
		if v, ok := m.fields[TagSwapOutputAmount]; ok {
			swap.OutputAmount = v
		}
		if swap.Input != nil && swap.Output != nil && *swap.Input == *swap.Output {
			return nil, FlawInvalidSwap
		}
		ks.Swap = swap
	}

	if flags.Has(FlagSummoning) {
		ks.Summoning = buildSummoning(m.fields, flags)
	} else if v, ok := m.fields[TagSyndicate]; ok {
		id, flaw := relicIDFromPacked(v)
		if flaw != "" {
			return nil, flaw
		}
		ks.Encasing = &id
	}

	return ks, ""
}

// relicIDFromPacked decodes a RelicID packed into a single varint as
// block*2^32 + tx.
func relicIDFromPacked(packed *big.Int) (RelicID, RelicFlaw) {
	if packed == nil {
		return RelicID{}, FlawTruncatedField
	}
	tx := new(big.Int).And(packed, big.NewInt(0xffffffff))
	block := new(big.Int).Rsh(packed, 32)
	if !block.IsUint64() {
		return RelicID{}, FlawTransferRelicID
	}
	id := RelicID{Block: block.Uint64(), Tx: uint32(tx.Uint64())}
	if !id.Valid() {
		return RelicID{}, FlawTransferRelicID
	}
	return id, ""
}

func packRelicID(id RelicID) *big.Int {
	out := new(big.Int).SetUint64(id.Block)
	out.Lsh(out, 32)
	out.Or(out, big.NewInt(int64(id.Tx)))
	return out
}

func buildEnshrining(fields map[Tag]*big.Int, flags Flags) (*Enshrining, RelicFlaw) {
	e := &Enshrining{Turbo: flags.Has(FlagTurbo)}

	if flags.Has(FlagMintTerms) {
		terms := &MintTerms{}
		if v, ok := fields[TagAmount]; ok {
			terms.Amount = v
		}
		if v, ok := fields[TagCap]; ok {
			terms.Cap = v
		}
		if v, ok := fields[TagSeed]; ok {
			terms.Seed = v
		}
		if v, ok := fields[TagSwapHeight]; ok {
			if !v.IsUint64() {
				return nil, FlawInvalidEnshrining
			}
			h := v.Uint64()
			terms.SwapHeight = &h
		}
		if v, ok := fields[TagMaxPerBlock]; ok {
			terms.MaxPerBlock = v
		}
		if v, ok := fields[TagMaxPerTx]; ok {
			terms.MaxPerTx = v
		}
		if v, ok := fields[TagMaxUnmints]; ok {
			if !v.IsUint64() {
				return nil, FlawInvalidEnshrining
			}
			mu := v.Uint64()
			terms.MaxUnmints = &mu
		}
		if v, ok := fields[TagPrice]; ok {
			terms.Price = &PriceModel{Fixed: v}
		}
		if err := validateMintTerms(terms); err != nil {
			return nil, FlawInvalidEnshrining
		}
		e.MintTerms = terms
	}

	if v, ok := fields[TagSubsidy]; ok {
		e.Subsidy = v
	}
	if v, ok := fields[TagSymbol]; ok {
		if !v.IsUint64() || v.Uint64() > 0x10FFFF {
			return nil, FlawInvalidEnshrining
		}
		r := rune(v.Uint64())
		e.Symbol = &r
	}

	if flags.Has(FlagBoostTerms) {
		// Capacity-only per spec §9: recognized but not mechanically
		// wired into mint calculation until an RNG source is defined.
		e.BoostTerms = &BoostTerms{}
	}

	return e, ""
}

func buildSummoning(fields map[Tag]*big.Int, flags Flags) *Summoning {
	s := &Summoning{
		Gated:       flags.Has(FlagGated),
		LockSubsidy: flags.Has(FlagLockSubsidy),
		Turbo:       flags.Has(FlagTurbo),
	}
	if v, ok := fields[TagTreasure]; ok {
		id, flaw := relicIDFromPacked(v)
		if flaw == "" {
			s.Treasure = &id
		}
	}
	if v, ok := fields[TagSyndicateCap]; ok && v.IsUint64() {
		c := uint32(v.Uint64())
		s.Cap = &c
	}
	if v, ok := fields[TagLock]; ok && v.IsUint64() {
		l := v.Uint64()
		s.Lock = &l
	}
	if v, ok := fields[TagHeightStart]; ok && v.IsUint64() {
		h := v.Uint64()
		s.HeightStart = &h
	}
	if v, ok := fields[TagHeightEnd]; ok && v.IsUint64() {
		h := v.Uint64()
		s.HeightEnd = &h
	}
	if v, ok := fields[TagQuota]; ok {
		s.Quota = v
	}
	if v, ok := fields[TagRoyalty]; ok {
		s.Royalty = v
	}
	if v, ok := fields[TagReward]; ok {
		s.Reward = v
	}
	return s
}

// Encipher is the inverse of Decipher: produces the CovenantData payload
// bytes for ks, sorting transfers by relic id and delta-encoding them
// before emission, per spec §4.2's Emit description.
func Encipher(ks *Keepsake) []byte {
	var integers []*big.Int

	var flags Flags
	if ks.Sealing {
		flags.Set(FlagSealing)
	}
	if ks.Release {
		flags.Set(FlagRelease)
	}
	if ks.Manifest {
		flags.Set(FlagManifest)
	}
	if ks.Enshrining != nil {
		flags.Set(FlagEnshrining)
		if ks.Enshrining.MintTerms != nil {
			flags.Set(FlagMintTerms)
		}
		if ks.Enshrining.BoostTerms != nil {
			flags.Set(FlagBoostTerms)
		}
		if ks.Enshrining.Turbo {
			flags.Set(FlagTurbo)
		}
	}
	if ks.MultiMint != nil && ks.MultiMint.IsUnmint {
		flags.Set(FlagMultiUnmint)
	} else if ks.MultiMint != nil {
		flags.Set(FlagMultiMint)
	}
	if ks.Swap != nil {
		flags.Set(FlagSwap)
		if ks.Swap.IsExactInput {
			flags.Set(FlagSwapExactInput)
		}
	}
	if ks.Summoning != nil {
		flags.Set(FlagSummoning)
		if ks.Summoning.Gated {
			flags.Set(FlagGated)
		}
		if ks.Summoning.LockSubsidy {
			flags.Set(FlagLockSubsidy)
		}
		if ks.Summoning.Turbo {
			flags.Set(FlagTurbo)
		}
	}

	if flags != 0 {
		integers = append(integers, big.NewInt(int64(TagFlags)), big.NewInt(int64(flags)))
	}
	if ks.Pointer != nil {
		integers = append(integers, big.NewInt(int64(TagPointer)), big.NewInt(int64(*ks.Pointer)))
	}
	if ks.Claim != nil {
		integers = append(integers, big.NewInt(int64(TagClaim)), big.NewInt(int64(*ks.Claim)))
	}
	if ks.Mint != nil {
		integers = append(integers, big.NewInt(int64(TagMint)), packRelicID(*ks.Mint))
	}
	if ks.Unmint != nil {
		integers = append(integers, big.NewInt(int64(TagUnmint)), packRelicID(*ks.Unmint))
	}
	if ks.MultiMint != nil {
		integers = append(integers,
			big.NewInt(int64(TagMultiMintCount)), big.NewInt(int64(ks.MultiMint.Count)),
			big.NewInt(int64(TagMultiMintRelic)), packRelicID(ks.MultiMint.RelicID))
		if ks.MultiMint.BaseLimit != nil {
			integers = append(integers, big.NewInt(int64(TagMultiMintBaseLimit)), ks.MultiMint.BaseLimit)
		}
	}
	if ks.Enshrining != nil {
		integers = append(integers, encipherEnshrining(ks.Enshrining)...)
	}
	if ks.Swap != nil {
		if ks.Swap.Input != nil {
			integers = append(integers, big.NewInt(int64(TagSwapInput)), packRelicID(*ks.Swap.Input))
		}
		if ks.Swap.Output != nil {
			integers = append(integers, big.NewInt(int64(TagSwapOutput)), packRelicID(*ks.Swap.Output))
		}
		if ks.Swap.InputAmount != nil {
			integers = append(integers, big.NewInt(int64(TagSwapInputAmount)), ks.Swap.InputAmount)
		}
		if ks.Swap.OutputAmount != nil {
			integers = append(integers, big.NewInt(int64(TagSwapOutputAmount)), ks.Swap.OutputAmount)
		}
	}
	if ks.Summoning != nil {
		integers = append(integers, encipherSummoning(ks.Summoning)...)
	}
	if ks.Encasing != nil {
		integers = append(integers, big.NewInt(int64(TagSyndicate)), packRelicID(*ks.Encasing))
	}

	var out []byte
	for _, n := range integers {
		out = EncodeVarint(out, n)
	}

	if len(ks.Transfers) > 0 {
		out = EncodeVarint(out, big.NewInt(int64(TagBody)))
		transfers := sortedTransfers(ks.Transfers)
		id := RelicID{}
		for _, tr := range transfers {
			deltaBlock, deltaTx, _ := id.Delta(tr.ID)
			out = EncodeVarint(out, new(big.Int).SetUint64(deltaBlock))
			out = EncodeVarint(out, big.NewInt(int64(deltaTx)))
			out = EncodeVarint(out, tr.Amount)
			out = EncodeVarint(out, big.NewInt(int64(tr.Output)))
			id = tr.ID
		}
	}
	return out
}

func encipherEnshrining(e *Enshrining) []*big.Int {
	var out []*big.Int
	if t := e.MintTerms; t != nil {
		if t.Amount != nil {
			out = append(out, big.NewInt(int64(TagAmount)), t.Amount)
		}
		if t.Cap != nil {
			out = append(out, big.NewInt(int64(TagCap)), t.Cap)
		}
		if t.Seed != nil {
			out = append(out, big.NewInt(int64(TagSeed)), t.Seed)
		}
		if t.SwapHeight != nil {
			out = append(out, big.NewInt(int64(TagSwapHeight)), new(big.Int).SetUint64(*t.SwapHeight))
		}
		if t.MaxPerBlock != nil {
			out = append(out, big.NewInt(int64(TagMaxPerBlock)), t.MaxPerBlock)
		}
		if t.MaxPerTx != nil {
			out = append(out, big.NewInt(int64(TagMaxPerTx)), t.MaxPerTx)
		}
		if t.MaxUnmints != nil {
			out = append(out, big.NewInt(int64(TagMaxUnmints)), new(big.Int).SetUint64(*t.MaxUnmints))
		}
		if t.Price != nil && t.Price.Fixed != nil {
			out = append(out, big.NewInt(int64(TagPrice)), t.Price.Fixed)
		}
	}
	if e.Subsidy != nil {
		out = append(out, big.NewInt(int64(TagSubsidy)), e.Subsidy)
	}
	if e.Symbol != nil {
		out = append(out, big.NewInt(int64(TagSymbol)), big.NewInt(int64(*e.Symbol)))
	}
	return out
}

func encipherSummoning(s *Summoning) []*big.Int {
	var out []*big.Int
	if s.Treasure != nil {
		out = append(out, big.NewInt(int64(TagTreasure)), packRelicID(*s.Treasure))
	}
	if s.Cap != nil {
		out = append(out, big.NewInt(int64(TagSyndicateCap)), big.NewInt(int64(*s.Cap)))
	}
	if s.Lock != nil {
		out = append(out, big.NewInt(int64(TagLock)), new(big.Int).SetUint64(*s.Lock))
	}
	if s.HeightStart != nil {
		out = append(out, big.NewInt(int64(TagHeightStart)), new(big.Int).SetUint64(*s.HeightStart))
	}
	if s.HeightEnd != nil {
		out = append(out, big.NewInt(int64(TagHeightEnd)), new(big.Int).SetUint64(*s.HeightEnd))
	}
	if s.Quota != nil {
		out = append(out, big.NewInt(int64(TagQuota)), s.Quota)
	}
	if s.Royalty != nil {
		out = append(out, big.NewInt(int64(TagRoyalty)), s.Royalty)
	}
	if s.Reward != nil {
		out = append(out, big.NewInt(int64(TagReward)), s.Reward)
	}
	return out
}

func sortedTransfers(in []Transfer) []Transfer {
	out := make([]Transfer, len(in))
	copy(out, in)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := out[j-1].ID, out[j].ID
			if a.Block < b.Block || (a.Block == b.Block && a.Tx <= b.Tx) {
				break
			}
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
