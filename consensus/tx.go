package consensus

// Covenant types recognized on transaction outputs. CORE_ANCHOR is the
// only one this module's protocol layer inspects: it carries the
// Keepsake envelope and, via TxKind/DACommit/DAChunk below, inscription
// content.
const (
	CORE_P2PK      = 0x0000
	CORE_TIMELOCK_V1 = 0x0001
	CORE_ANCHOR    = 0x0002
	CORE_HTLC_V1   = 0x0100
	CORE_VAULT_V1  = 0x0101
)

const (
	TX_VERSION_V2 = 2

	TX_KIND_STANDARD  = 0x00
	TX_KIND_DA_COMMIT = 0x01
	TX_KIND_DA_CHUNK  = 0x02
)

const TX_COINBASE_PREVOUT_VOUT = ^uint32(0)

// BlockHeader is the fixed 116-byte block header: version, parent
// linkage, merkle root, timestamp, target, and nonce.
type BlockHeader struct {
	Version       uint32
	PrevBlockHash [32]byte
	MerkleRoot    [32]byte
	Timestamp     uint64
	Target        [32]byte
	Nonce         uint64
}

// Block is a header plus its ordered transactions.
type Block struct {
	Header       BlockHeader
	Transactions []Tx
}

// Tx is a single wire-format transaction. DACommit/DAChunk/DAPayload
// are present only when TxKind is TX_KIND_DA_COMMIT/TX_KIND_DA_CHUNK
// respectively; this module's inscription layer reconstructs content
// from a DA_COMMIT manifest plus its following DA_CHUNK payloads
// rather than from a Bitcoin-style witness script.
type Tx struct {
	Version uint32

	TxKind uint8

	TxNonce  uint64
	Inputs   []TxInput
	Outputs  []TxOutput
	Locktime uint32

	DACommit  *DACommitFields
	DAChunk   *DAChunkFields
	DAPayload []byte

	Witness WitnessSection
}

// DACommitFields is the manifest carried by a DA_COMMIT transaction:
// chunk count and the rollup fields original_source batches alongside it.
type DACommitFields struct {
	DAID            [32]byte
	ChunkCount      uint16
	RETLDomainID    [32]byte
	BatchNumber     uint64
	TxDataRoot      [32]byte
	StateRoot       [32]byte
	WithdrawalsRoot [32]byte
	BatchSigSuite   uint8
	BatchSig        []byte
}

// DAChunkFields identifies which manifest a DA_CHUNK transaction's
// payload belongs to and at what index.
type DAChunkFields struct {
	DAID       [32]byte
	ChunkIndex uint16
	ChunkHash  [32]byte
}

// TxOutPoint identifies a previous transaction's output.
type TxOutPoint struct {
	TxID [32]byte
	Vout uint32
}

type TxInput struct {
	PrevTxid  [32]byte
	PrevVout  uint32
	ScriptSig []byte
	Sequence  uint32
}

type TxOutput struct {
	Value        uint64
	CovenantType uint16
	CovenantData []byte
}

type WitnessSection struct {
	Witnesses []WitnessItem
}

type WitnessItem struct {
	SuiteID   byte
	Pubkey    []byte
	Signature []byte
}
