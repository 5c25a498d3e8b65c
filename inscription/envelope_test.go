package inscription

import (
	"crypto/sha256"
	"testing"

	"boneindex.dev/indexer/consensus"
	"boneindex.dev/indexer/relics"
)

func TestTrackerSingleChunkComplete(t *testing.T) {
	content := &Content{ContentType: []byte("text/plain"), Body: []byte("hello")}
	payload := encodeContent(content)

	tracker := NewTracker()
	tx := consensus.Tx{
		TxKind:    consensus.TX_KIND_DA_COMMIT,
		DACommit:  &consensus.DACommitFields{ChunkCount: 0},
		DAPayload: payload,
	}
	status, got, _ := tracker.Ingest([32]byte{1}, tx)
	if status != StatusComplete {
		t.Fatalf("status = %v, want Complete", status)
	}
	if string(got.Body) != "hello" {
		t.Fatalf("body = %q", got.Body)
	}
}

func TestTrackerMultiChunkReconstruction(t *testing.T) {
	content := &Content{ContentType: []byte("image/png"), Body: bytes1024()}
	payload := encodeContent(content)
	mid := len(payload) / 2
	chunk0, chunk1 := payload[:mid], payload[mid:]

	daID := [32]byte{9, 9, 9}
	tracker := NewTracker()

	commitTx := consensus.Tx{
		TxKind:   consensus.TX_KIND_DA_COMMIT,
		DACommit: &consensus.DACommitFields{DAID: daID, ChunkCount: 2},
	}
	status, _, _ := tracker.Ingest([32]byte{1}, commitTx)
	if status != StatusPartial {
		t.Fatalf("commit status = %v, want Partial", status)
	}

	chunk0Hash := sha256.Sum256(chunk0)
	chunkTx0 := consensus.Tx{
		TxKind:    consensus.TX_KIND_DA_CHUNK,
		DAChunk:   &consensus.DAChunkFields{DAID: daID, ChunkIndex: 0, ChunkHash: chunk0Hash},
		DAPayload: chunk0,
	}
	status, _, _ = tracker.Ingest([32]byte{2}, chunkTx0)
	if status != StatusPartial {
		t.Fatalf("chunk0 status = %v, want Partial", status)
	}

	chunk1Hash := sha256.Sum256(chunk1)
	chunkTx1 := consensus.Tx{
		TxKind:    consensus.TX_KIND_DA_CHUNK,
		DAChunk:   &consensus.DAChunkFields{DAID: daID, ChunkIndex: 1, ChunkHash: chunk1Hash},
		DAPayload: chunk1,
	}
	status, got, txids := tracker.Ingest([32]byte{3}, chunkTx1)
	if status != StatusComplete {
		t.Fatalf("chunk1 status = %v, want Complete", status)
	}
	if len(got.Body) != 1024 {
		t.Fatalf("body length = %d, want 1024", len(got.Body))
	}
	if len(txids) != 3 {
		t.Fatalf("txids = %d, want 3", len(txids))
	}
}

func TestTrackerCorruptChunkStaysPartial(t *testing.T) {
	daID := [32]byte{5}
	tracker := NewTracker()
	tracker.Ingest([32]byte{1}, consensus.Tx{
		TxKind:   consensus.TX_KIND_DA_COMMIT,
		DACommit: &consensus.DACommitFields{DAID: daID, ChunkCount: 1},
	})
	status, _, _ := tracker.Ingest([32]byte{2}, consensus.Tx{
		TxKind:    consensus.TX_KIND_DA_CHUNK,
		DAChunk:   &consensus.DAChunkFields{DAID: daID, ChunkIndex: 0, ChunkHash: [32]byte{0xff}},
		DAPayload: []byte("wrong hash for this payload"),
	})
	if status != StatusPartial {
		t.Fatalf("status = %v, want Partial (hash mismatch must not complete)", status)
	}
}

func TestContentSealingMetadata(t *testing.T) {
	sr, err := relics.ParseSpacedRelic("BONE")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	raw, err := sr.ToMetadataCBOR()
	if err != nil {
		t.Fatalf("to cbor: %v", err)
	}
	c := &Content{Metadata: raw}
	got, ok := c.Sealing()
	if !ok {
		t.Fatalf("expected sealing metadata to be recognized")
	}
	if got.String() != "BONE" {
		t.Fatalf("sealed ticker = %q", got.String())
	}
}

func bytes1024() []byte {
	b := make([]byte, 1024)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}
