package indexer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"boneindex.dev/indexer/consensus"
)

// delayedClient resolves a block after a height-dependent delay, so
// tests can exercise out-of-order completion while asserting in-order
// delivery.
type delayedClient struct {
	failAt uint64
}

func (c *delayedClient) BestHeight(ctx context.Context) (uint64, error) { return 0, nil }

func (c *delayedClient) BlockHashAtHeight(ctx context.Context, height uint64) ([32]byte, error) {
	var h [32]byte
	h[0] = byte(height)
	return h, nil
}

func (c *delayedClient) BlockByHash(ctx context.Context, hash [32]byte) (consensus.Block, error) {
	height := uint64(hash[0])
	if c.failAt != 0 && height == c.failAt {
		return consensus.Block{}, fmt.Errorf("simulated failure at height %d", height)
	}
	// Higher heights resolve faster, so without the futures-ordering
	// fix the consumer could see them arrive out of order.
	time.Sleep(time.Duration(10-height%10) * time.Millisecond)
	return consensus.Block{Header: consensus.BlockHeader{Timestamp: height}}, nil
}

func TestFetcherDeliversInOrder(t *testing.T) {
	client := &delayedClient{}
	f := NewFetcher(client, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []uint64
	for fb := range f.Run(ctx, 0, 9) {
		if fb.Err != nil {
			t.Fatalf("unexpected error at height %d: %v", fb.Height, fb.Err)
		}
		got = append(got, fb.Height)
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 blocks, got %d", len(got))
	}
	for i, h := range got {
		if h != uint64(i) {
			t.Fatalf("out of order delivery: position %d has height %d", i, h)
		}
	}
}

func TestFetcherStopsOnFirstError(t *testing.T) {
	client := &delayedClient{failAt: 3}
	f := NewFetcher(client, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var sawErr bool
	count := 0
	for fb := range f.Run(ctx, 0, 9) {
		count++
		if fb.Err != nil {
			sawErr = true
			break
		}
	}
	if !sawErr {
		t.Fatalf("expected an error in the stream")
	}
	if count > 4 {
		t.Fatalf("expected the stream to stop soon after the failing height, delivered %d", count)
	}
}
