package inscription

// Entry is the immutable-after-creation record of a revealed
// inscription, persisted by sequence number. Grounded field-for-field
// on original_source/src/index/entry.rs's InscriptionEntry, except
// Charms which is mutable (a later transfer can set CharmBurned).
type Entry struct {
	Charms            Charm
	Fee               uint64
	Height            uint32
	ID                ID
	InscriptionNumber uint64
	Parents           []uint32
	Sat               *uint64
	SequenceNumber    uint32
	Timestamp         uint32
}

// SatPoint locates an inscription's current sat within a specific
// output: (outpoint, offset). Grounded on entry.rs's SatPointValue
// (44 bytes: 36-byte outpoint + 8-byte little-endian offset), adapted
// to this chain's OUTPOINT encoding (32-byte txid + 4-byte vout).
type SatPoint struct {
	Txid   [32]byte
	Vout   uint32
	Offset uint64
}

// OutPoint identifies a transaction output.
type OutPoint struct {
	Txid [32]byte
	Vout uint32
}
