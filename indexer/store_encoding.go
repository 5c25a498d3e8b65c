package indexer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"boneindex.dev/indexer/consensus"
	"boneindex.dev/indexer/inscription"
	"boneindex.dev/indexer/relics"
)

func encodeUint64(n uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b[:]
}

func decodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

func encodeUint32(n uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	return b[:]
}

func decodeUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// encodeOutpointKey matches node/store/utxo_encoding.go's txid||vout
// layout, big-endian so keys sort by txid then vout within a bucket.
func encodeOutpointKey(txid [32]byte, vout uint32) []byte {
	out := make([]byte, 36)
	copy(out[0:32], txid[:])
	binary.BigEndian.PutUint32(out[32:36], vout)
	return out
}

func decodeOutpointKey(b []byte) (txid [32]byte, vout uint32, err error) {
	if len(b) != 36 {
		return txid, 0, fmt.Errorf("indexer: malformed outpoint key")
	}
	copy(txid[:], b[0:32])
	vout = binary.BigEndian.Uint32(b[32:36])
	return txid, vout, nil
}

// encodeRelicIDKey is a fixed 12-byte (block||tx) big-endian key so
// RELIC_ID-keyed buckets iterate in relic-id order.
func encodeRelicIDKey(id relics.RelicID) []byte {
	out := make([]byte, 12)
	binary.BigEndian.PutUint64(out[0:8], id.Block)
	binary.BigEndian.PutUint32(out[8:12], id.Tx)
	return out
}

func decodeRelicIDKey(b []byte) (relics.RelicID, error) {
	if len(b) != 12 {
		return relics.RelicID{}, fmt.Errorf("indexer: malformed relic id key")
	}
	return relics.RelicID{
		Block: binary.BigEndian.Uint64(b[0:8]),
		Tx:    binary.BigEndian.Uint32(b[8:12]),
	}, nil
}

// --- multimap helpers (fixed-width primary||secondary concatenated key) ---

func multimapPut(b bucket, primary, secondary []byte) error {
	key := append(append([]byte(nil), primary...), secondary...)
	return b.Put(key, []byte{1})
}

func multimapDelete(b bucket, primary, secondary []byte) error {
	key := append(append([]byte(nil), primary...), secondary...)
	return b.Delete(key)
}

func multimapList(b bucket, primary []byte) [][]byte {
	var out [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(primary); k != nil && bytes.HasPrefix(k, primary); k, _ = c.Next() {
		out = append(out, append([]byte(nil), k[len(primary):]...))
	}
	return out
}

// bucket is the subset of *bolt.Bucket used by the multimap helpers,
// kept narrow so they can be unit tested without a real database.
type bucket interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Cursor() cursor
}

type cursor interface {
	Seek(seek []byte) (key, value []byte)
	Next() (key, value []byte)
}

// --- varint-stream balance encoding (OUTPOINT→BALANCES, spec §6.4) ---

// encodeBalances serializes a UTXO's carried relic balances as a flat
// varint stream of delta-encoded (relic id, amount) pairs, the same
// transfer tuple shape the Keepsake body uses (spec §4.2/§4.7), sorted
// by relic id ascending so the encoding is canonical.
func encodeBalances(balances map[relics.RelicID]*big.Int) []byte {
	type pair struct {
		id     relics.RelicID
		amount *big.Int
	}
	pairs := make([]pair, 0, len(balances))
	for id, amt := range balances {
		if amt == nil || amt.Sign() == 0 {
			continue
		}
		pairs = append(pairs, pair{id, amt})
	}
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0; j-- {
			a, b := pairs[j-1].id, pairs[j].id
			if a.Block < b.Block || (a.Block == b.Block && a.Tx <= b.Tx) {
				break
			}
			pairs[j-1], pairs[j] = pairs[j], pairs[j-1]
		}
	}

	var out []byte
	prev := relics.RelicID{}
	for _, p := range pairs {
		deltaBlock, deltaTx, _ := prev.Delta(p.id)
		out = relics.EncodeVarint(out, new(big.Int).SetUint64(deltaBlock))
		out = relics.EncodeVarint(out, big.NewInt(int64(deltaTx)))
		out = relics.EncodeVarint(out, p.amount)
		prev = p.id
	}
	return out
}

func decodeBalances(buf []byte) (map[relics.RelicID]*big.Int, error) {
	out := make(map[relics.RelicID]*big.Int)
	id := relics.RelicID{}
	for len(buf) > 0 {
		deltaBlockBig, n1, err := relics.DecodeVarint(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[n1:]
		deltaTxBig, n2, err := relics.DecodeVarint(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[n2:]
		amount, n3, err := relics.DecodeVarint(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[n3:]
		if !deltaBlockBig.IsUint64() || !deltaTxBig.IsUint64() {
			return nil, fmt.Errorf("indexer: malformed balance stream")
		}
		id = id.Next(deltaBlockBig.Uint64(), uint32(deltaTxBig.Uint64()))
		out[id] = amount
	}
	return out, nil
}

// cur is a manual read cursor over a byte slice, matching node/store's
// offset-tracking decode style without the partial-read hazards of
// io.Reader.
type cur struct {
	buf []byte
	off int
}

func (c *cur) need(n int) error {
	if c.off+n > len(c.buf) {
		return fmt.Errorf("indexer: truncated record")
	}
	return nil
}

func (c *cur) byte() (byte, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

func (c *cur) bytesN(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	out := append([]byte(nil), c.buf[c.off:c.off+n]...)
	c.off += n
	return out, nil
}

func (c *cur) u16() (uint16, error) {
	b, err := c.bytesN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *cur) u32() (uint32, error) {
	b, err := c.bytesN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cur) u64() (uint64, error) {
	b, err := c.bytesN(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (c *cur) boolean() (bool, error) {
	b, err := c.byte()
	return b == 1, err
}

func (c *cur) varBytes() ([]byte, error) {
	n, consumed, err := consensus.DecodeCompactSize(c.buf[c.off:])
	if err != nil {
		return nil, fmt.Errorf("indexer: compact size: %w", err)
	}
	c.off += consumed
	return c.bytesN(int(n))
}

func (c *cur) bigInt() (*big.Int, error) {
	b, err := c.varBytes()
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func (c *cur) optionalBigInt() (*big.Int, error) {
	present, err := c.byte()
	if err != nil || present == 0 {
		return nil, err
	}
	return c.bigInt()
}

func (c *cur) optionalU32() (*uint32, error) {
	present, err := c.byte()
	if err != nil || present == 0 {
		return nil, err
	}
	v, err := c.u32()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *cur) optionalU64() (*uint64, error) {
	present, err := c.byte()
	if err != nil || present == 0 {
		return nil, err
	}
	v, err := c.u64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *cur) optionalRune() (*rune, error) {
	present, err := c.byte()
	if err != nil || present == 0 {
		return nil, err
	}
	v, err := c.u32()
	if err != nil {
		return nil, err
	}
	rv := rune(v)
	return &rv, nil
}

// --- write-side helpers (append to a growing byte slice) ---

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}
func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}
func writeBytes(buf *bytes.Buffer, b []byte) {
	buf.Write(consensus.EncodeCompactSize(uint64(len(b))))
	buf.Write(b)
}
func writeBigInt(buf *bytes.Buffer, n *big.Int) {
	if n == nil {
		n = big.NewInt(0)
	}
	writeBytes(buf, n.Bytes())
}
func writeOptionalBigInt(buf *bytes.Buffer, n *big.Int) {
	if n == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	writeBigInt(buf, n)
}
func writeOptionalU32(buf *bytes.Buffer, v *uint32) {
	if v == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	writeU32(buf, *v)
}
func writeOptionalU64(buf *bytes.Buffer, v *uint64) {
	if v == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	writeU64(buf, *v)
}
func writeOptionalRune(buf *bytes.Buffer, r *rune) {
	if r == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	writeU32(buf, uint32(*r))
}

func writeMintTerms(buf *bytes.Buffer, t *relics.MintTerms) {
	if t == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	writeBigInt(buf, t.Amount)
	writeBigInt(buf, t.Cap)
	writeOptionalBigInt(buf, t.Seed)
	writeOptionalU64(buf, t.SwapHeight)
	writeOptionalBigInt(buf, t.MaxPerBlock)
	writeOptionalBigInt(buf, t.MaxPerTx)
	writeOptionalU64(buf, t.MaxUnmints)
	switch {
	case t.Price != nil && t.Price.Fixed != nil:
		buf.WriteByte(1)
		writeBigInt(buf, t.Price.Fixed)
	case t.Price != nil && t.Price.Formula != nil:
		buf.WriteByte(2)
		writeBigInt(buf, t.Price.Formula.A)
		writeBigInt(buf, t.Price.Formula.B)
		writeBigInt(buf, t.Price.Formula.C)
	default:
		buf.WriteByte(0)
	}
}

func readMintTerms(c *cur) (*relics.MintTerms, error) {
	present, err := c.byte()
	if err != nil || present == 0 {
		return nil, err
	}
	t := &relics.MintTerms{}
	if t.Amount, err = c.bigInt(); err != nil {
		return nil, err
	}
	if t.Cap, err = c.bigInt(); err != nil {
		return nil, err
	}
	if t.Seed, err = c.optionalBigInt(); err != nil {
		return nil, err
	}
	if t.SwapHeight, err = c.optionalU64(); err != nil {
		return nil, err
	}
	if t.MaxPerBlock, err = c.optionalBigInt(); err != nil {
		return nil, err
	}
	if t.MaxPerTx, err = c.optionalBigInt(); err != nil {
		return nil, err
	}
	if t.MaxUnmints, err = c.optionalU64(); err != nil {
		return nil, err
	}
	priceKind, err := c.byte()
	if err != nil {
		return nil, err
	}
	switch priceKind {
	case 1:
		fixed, err := c.bigInt()
		if err != nil {
			return nil, err
		}
		t.Price = &relics.PriceModel{Fixed: fixed}
	case 2:
		a, err := c.bigInt()
		if err != nil {
			return nil, err
		}
		b, err := c.bigInt()
		if err != nil {
			return nil, err
		}
		cc, err := c.bigInt()
		if err != nil {
			return nil, err
		}
		t.Price = &relics.PriceModel{Formula: &relics.PriceFormula{A: a, B: b, C: cc}}
	}
	return t, nil
}

func writePool(buf *bytes.Buffer, p *relics.Pool) {
	if p == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	writeBigInt(buf, p.BaseSupply)
	writeBigInt(buf, p.QuoteSupply)
	writeBigInt(buf, p.FeePercentage)
}

func readPool(c *cur) (*relics.Pool, error) {
	present, err := c.byte()
	if err != nil || present == 0 {
		return nil, err
	}
	p := &relics.Pool{}
	if p.BaseSupply, err = c.bigInt(); err != nil {
		return nil, err
	}
	if p.QuoteSupply, err = c.bigInt(); err != nil {
		return nil, err
	}
	if p.FeePercentage, err = c.bigInt(); err != nil {
		return nil, err
	}
	return p, nil
}

// --- inscription.Entry (SEQ→INSCRIPTION_ENTRY) ---

func encodeInscriptionEntry(e *inscription.Entry) []byte {
	var buf bytes.Buffer
	writeU16(&buf, uint16(e.Charms))
	writeU64(&buf, e.Fee)
	writeU32(&buf, e.Height)
	id := e.ID.Store()
	buf.Write(id[:])
	writeU64(&buf, e.InscriptionNumber)
	writeU32(&buf, uint32(len(e.Parents)))
	for _, p := range e.Parents {
		writeU32(&buf, p)
	}
	if e.Sat != nil {
		buf.WriteByte(1)
		writeU64(&buf, *e.Sat)
	} else {
		buf.WriteByte(0)
	}
	writeU32(&buf, e.SequenceNumber)
	writeU32(&buf, e.Timestamp)
	return buf.Bytes()
}

func decodeInscriptionEntry(b []byte) (*inscription.Entry, error) {
	c := &cur{buf: b}
	e := &inscription.Entry{}
	charms, err := c.u16()
	if err != nil {
		return nil, err
	}
	e.Charms = inscription.Charm(charms)
	if e.Fee, err = c.u64(); err != nil {
		return nil, err
	}
	if e.Height, err = c.u32(); err != nil {
		return nil, err
	}
	idBytes, err := c.bytesN(36)
	if err != nil {
		return nil, err
	}
	var idArr [36]byte
	copy(idArr[:], idBytes)
	e.ID = inscription.Load(idArr)
	if e.InscriptionNumber, err = c.u64(); err != nil {
		return nil, err
	}
	parentCount, err := c.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < parentCount; i++ {
		p, err := c.u32()
		if err != nil {
			return nil, err
		}
		e.Parents = append(e.Parents, p)
	}
	hasSat, err := c.byte()
	if err != nil {
		return nil, err
	}
	if hasSat == 1 {
		sat, err := c.u64()
		if err != nil {
			return nil, err
		}
		e.Sat = &sat
	}
	if e.SequenceNumber, err = c.u32(); err != nil {
		return nil, err
	}
	if e.Timestamp, err = c.u32(); err != nil {
		return nil, err
	}
	return e, nil
}

// --- RelicEntry (RELIC_ID→RELIC_ENTRY) ---

func encodeRelicEntry(e *relics.RelicEntry) []byte {
	var buf bytes.Buffer
	writeU64(&buf, e.Block)
	buf.Write(e.EnshriningTxid[:])
	writeU64(&buf, e.Number)
	writeBytes(&buf, []byte(e.SpacedRelic.String()))
	writeOptionalRune(&buf, e.Symbol)
	writeOptionalU32(&buf, e.Owner)
	writeMintTerms(&buf, e.MintTerms)
	writeBigInt(&buf, e.State.Burned)
	writeBigInt(&buf, e.State.Mints)
	writeBigInt(&buf, e.State.BaseProceeds)
	writeBigInt(&buf, e.State.Subsidy)
	writeBigInt(&buf, e.State.SubsidyRemaining)
	writeBool(&buf, e.State.SubsidyLocked)
	writePool(&buf, e.Pool)
	writeOptionalBigInt(&buf, e.Seed)
	writeU64(&buf, e.Timestamp)
	writeBool(&buf, e.Turbo)
	return buf.Bytes()
}

func decodeRelicEntry(b []byte) (*relics.RelicEntry, error) {
	c := &cur{buf: b}
	e := &relics.RelicEntry{}
	var err error
	if e.Block, err = c.u64(); err != nil {
		return nil, err
	}
	txidBytes, err := c.bytesN(32)
	if err != nil {
		return nil, err
	}
	copy(e.EnshriningTxid[:], txidBytes)
	if e.Number, err = c.u64(); err != nil {
		return nil, err
	}
	nameBytes, err := c.varBytes()
	if err != nil {
		return nil, err
	}
	sr, err := relics.ParseSpacedRelic(string(nameBytes))
	if err != nil {
		return nil, err
	}
	e.SpacedRelic = sr
	if e.Symbol, err = c.optionalRune(); err != nil {
		return nil, err
	}
	if e.Owner, err = c.optionalU32(); err != nil {
		return nil, err
	}
	if e.MintTerms, err = readMintTerms(c); err != nil {
		return nil, err
	}
	e.State = relics.NewRelicState()
	if e.State.Burned, err = c.bigInt(); err != nil {
		return nil, err
	}
	if e.State.Mints, err = c.bigInt(); err != nil {
		return nil, err
	}
	if e.State.BaseProceeds, err = c.bigInt(); err != nil {
		return nil, err
	}
	if e.State.Subsidy, err = c.bigInt(); err != nil {
		return nil, err
	}
	if e.State.SubsidyRemaining, err = c.bigInt(); err != nil {
		return nil, err
	}
	if e.State.SubsidyLocked, err = c.boolean(); err != nil {
		return nil, err
	}
	if e.Pool, err = readPool(c); err != nil {
		return nil, err
	}
	if e.Seed, err = c.optionalBigInt(); err != nil {
		return nil, err
	}
	if e.Timestamp, err = c.u64(); err != nil {
		return nil, err
	}
	if e.Turbo, err = c.boolean(); err != nil {
		return nil, err
	}
	return e, nil
}

// --- SyndicateEntry (SYNDICATE_ID→ENTRY) ---

func encodeSyndicateEntry(s *relics.SyndicateEntry) []byte {
	var buf bytes.Buffer
	buf.Write(s.SummoningTxid[:])
	writeU32(&buf, s.Sequence)
	buf.Write(encodeRelicIDKey(s.Treasure))
	writeOptionalU64(&buf, s.HeightStart)
	writeOptionalU64(&buf, s.HeightEnd)
	writeOptionalU32(&buf, s.Cap)
	writeOptionalBigInt(&buf, s.Quota)
	writeOptionalBigInt(&buf, s.Royalty)
	writeBool(&buf, s.Gated)
	writeOptionalU64(&buf, s.Lock)
	writeOptionalBigInt(&buf, s.Reward)
	writeBool(&buf, s.Turbo)
	writeU32(&buf, s.Chests)
	return buf.Bytes()
}

func decodeSyndicateEntry(b []byte) (*relics.SyndicateEntry, error) {
	c := &cur{buf: b}
	s := &relics.SyndicateEntry{}
	var err error
	txidBytes, err := c.bytesN(32)
	if err != nil {
		return nil, err
	}
	copy(s.SummoningTxid[:], txidBytes)
	if s.Sequence, err = c.u32(); err != nil {
		return nil, err
	}
	treasureBytes, err := c.bytesN(12)
	if err != nil {
		return nil, err
	}
	if s.Treasure, err = decodeRelicIDKey(treasureBytes); err != nil {
		return nil, err
	}
	if s.HeightStart, err = c.optionalU64(); err != nil {
		return nil, err
	}
	if s.HeightEnd, err = c.optionalU64(); err != nil {
		return nil, err
	}
	if s.Cap, err = c.optionalU32(); err != nil {
		return nil, err
	}
	if s.Quota, err = c.optionalBigInt(); err != nil {
		return nil, err
	}
	if s.Royalty, err = c.optionalBigInt(); err != nil {
		return nil, err
	}
	if s.Gated, err = c.boolean(); err != nil {
		return nil, err
	}
	if s.Lock, err = c.optionalU64(); err != nil {
		return nil, err
	}
	if s.Reward, err = c.optionalBigInt(); err != nil {
		return nil, err
	}
	if s.Turbo, err = c.boolean(); err != nil {
		return nil, err
	}
	if s.Chests, err = c.u32(); err != nil {
		return nil, err
	}
	return s, nil
}

// --- ChestEntry (SEQ→CHEST) ---

func encodeChestEntry(ch *relics.ChestEntry) []byte {
	var buf bytes.Buffer
	writeU32(&buf, ch.Sequence)
	buf.Write(encodeRelicIDKey(ch.SyndicateID))
	writeU64(&buf, ch.CreatedBlock)
	writeBigInt(&buf, ch.Amount)
	return buf.Bytes()
}

func decodeChestEntry(b []byte) (*relics.ChestEntry, error) {
	c := &cur{buf: b}
	ch := &relics.ChestEntry{}
	var err error
	if ch.Sequence, err = c.u32(); err != nil {
		return nil, err
	}
	syndicateBytes, err := c.bytesN(12)
	if err != nil {
		return nil, err
	}
	if ch.SyndicateID, err = decodeRelicIDKey(syndicateBytes); err != nil {
		return nil, err
	}
	if ch.CreatedBlock, err = c.u64(); err != nil {
		return nil, err
	}
	if ch.Amount, err = c.bigInt(); err != nil {
		return nil, err
	}
	return ch, nil
}

// --- Event (persisted alongside the in-memory EventEmitter, keyed by
// block height + event index for stable ordering on replay) ---

func encodeEvent(ev relics.Event) []byte {
	var buf bytes.Buffer
	writeU64(&buf, ev.BlockHeight)
	writeU32(&buf, ev.EventIndex)
	buf.Write(ev.Txid[:])
	writeBytes(&buf, []byte(ev.Info.Kind))
	writeU64(&buf, ev.Info.InscriptionSequence)
	buf.Write(encodeRelicIDKey(ev.Info.RelicID))
	writeOptionalBigInt(&buf, ev.Info.Amount)
	writeU32(&buf, ev.Info.Output)
	writeOptionalBigInt(&buf, ev.Info.Price)
	buf.WriteByte(ev.Info.Count)
	buf.Write(encodeRelicIDKey(ev.Info.SwapInput))
	buf.Write(encodeRelicIDKey(ev.Info.SwapOutput))
	writeOptionalBigInt(&buf, ev.Info.SwapInputAmount)
	writeOptionalBigInt(&buf, ev.Info.SwapOutputAmount)
	writeOptionalBigInt(&buf, ev.Info.Fee)
	buf.Write(encodeRelicIDKey(ev.Info.Syndicate))
	writeU32(&buf, ev.Info.Sequence)
	writeBytes(&buf, []byte(ev.Info.Operation))
	if ev.Info.Err != nil {
		writeBytes(&buf, []byte(ev.Info.Err.Error()))
	} else {
		writeBytes(&buf, nil)
	}
	return buf.Bytes()
}

func decodeEvent(b []byte) (relics.Event, error) {
	c := &cur{buf: b}
	var ev relics.Event
	var err error
	if ev.BlockHeight, err = c.u64(); err != nil {
		return ev, err
	}
	if ev.EventIndex, err = c.u32(); err != nil {
		return ev, err
	}
	txidBytes, err := c.bytesN(32)
	if err != nil {
		return ev, err
	}
	copy(ev.Txid[:], txidBytes)
	kindBytes, err := c.varBytes()
	if err != nil {
		return ev, err
	}
	ev.Info.Kind = relics.EventKind(kindBytes)
	if ev.Info.InscriptionSequence, err = c.u64(); err != nil {
		return ev, err
	}
	relicIDBytes, err := c.bytesN(12)
	if err != nil {
		return ev, err
	}
	if ev.Info.RelicID, err = decodeRelicIDKey(relicIDBytes); err != nil {
		return ev, err
	}
	if ev.Info.Amount, err = c.optionalBigInt(); err != nil {
		return ev, err
	}
	if ev.Info.Output, err = c.u32(); err != nil {
		return ev, err
	}
	if ev.Info.Price, err = c.optionalBigInt(); err != nil {
		return ev, err
	}
	count, err := c.byte()
	if err != nil {
		return ev, err
	}
	ev.Info.Count = count
	swapInBytes, err := c.bytesN(12)
	if err != nil {
		return ev, err
	}
	if ev.Info.SwapInput, err = decodeRelicIDKey(swapInBytes); err != nil {
		return ev, err
	}
	swapOutBytes, err := c.bytesN(12)
	if err != nil {
		return ev, err
	}
	if ev.Info.SwapOutput, err = decodeRelicIDKey(swapOutBytes); err != nil {
		return ev, err
	}
	if ev.Info.SwapInputAmount, err = c.optionalBigInt(); err != nil {
		return ev, err
	}
	if ev.Info.SwapOutputAmount, err = c.optionalBigInt(); err != nil {
		return ev, err
	}
	if ev.Info.Fee, err = c.optionalBigInt(); err != nil {
		return ev, err
	}
	syndicateBytes, err := c.bytesN(12)
	if err != nil {
		return ev, err
	}
	if ev.Info.Syndicate, err = decodeRelicIDKey(syndicateBytes); err != nil {
		return ev, err
	}
	if ev.Info.Sequence, err = c.u32(); err != nil {
		return ev, err
	}
	opBytes, err := c.varBytes()
	if err != nil {
		return ev, err
	}
	ev.Info.Operation = relics.RelicOperation(opBytes)
	errBytes, err := c.varBytes()
	if err != nil {
		return ev, err
	}
	if len(errBytes) > 0 {
		ev.Info.Err = fmt.Errorf("%s", string(errBytes))
	}
	return ev, nil
}
