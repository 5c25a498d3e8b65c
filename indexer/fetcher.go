package indexer

import (
	"context"
	"fmt"

	"boneindex.dev/indexer/consensus"
)

// NodeClient is the subset of a node's RPC surface this indexer needs
// to walk the chain. The node RPC client library itself is out of
// scope (spec.md's Non-goals); this interface is the boundary the
// fetcher is written against, satisfied by whatever concrete client a
// deployment wires in.
type NodeClient interface {
	BestHeight(ctx context.Context) (uint64, error)
	BlockHashAtHeight(ctx context.Context, height uint64) ([32]byte, error)
	BlockByHash(ctx context.Context, hash [32]byte) (consensus.Block, error)
}

// FetchedBlock pairs a block with the height and hash its source
// client resolved it at; Err is set instead when that height could
// not be fetched.
type FetchedBlock struct {
	Height uint64
	Hash   [32]byte
	Block  consensus.Block
	Err    error
}

// Fetcher prefetches blocks ahead of the indexer's sequential apply
// loop using a small worker pool, so RPC latency overlaps with block
// application instead of serializing with it (component N). Grounded
// on the teacher's own plain goroutine-plus-channel concurrency idiom
// (node/p2p/peer.go) rather than pulling in a task-pool library the
// rest of the pack doesn't use.
type Fetcher struct {
	client  NodeClient
	workers int
}

// NewFetcher returns a Fetcher issuing up to workers concurrent
// BlockByHash calls against client.
func NewFetcher(client NodeClient, workers int) *Fetcher {
	if workers < 1 {
		workers = 1
	}
	return &Fetcher{client: client, workers: workers}
}

// BestHeight forwards to the underlying client, so callers driving
// Run don't need to hold their own reference to it.
func (f *Fetcher) BestHeight(ctx context.Context) (uint64, error) {
	return f.client.BestHeight(ctx)
}

// Run fetches heights [start, end] and delivers them, strictly in
// ascending height order, on the returned channel. Internally up to
// f.workers heights are in flight at once; a bounded semaphore caps
// concurrency while a slice of per-height result channels ("futures")
// lets the consumer read them back in order regardless of which
// finishes first. The channel is closed once every height has been
// delivered, right after the first result carrying an error, or when
// ctx is canceled.
func (f *Fetcher) Run(ctx context.Context, start, end uint64) <-chan FetchedBlock {
	out := make(chan FetchedBlock, f.workers)
	if start > end {
		close(out)
		return out
	}

	n := int(end - start + 1)
	futures := make([]chan FetchedBlock, n)
	for i := range futures {
		futures[i] = make(chan FetchedBlock, 1)
	}

	sem := make(chan struct{}, f.workers)
	go func() {
		for i := 0; i < n; i++ {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				futures[i] <- FetchedBlock{Height: start + uint64(i), Err: ctx.Err()}
				continue
			}
			go func(i int) {
				defer func() { <-sem }()
				height := start + uint64(i)
				hash, err := f.client.BlockHashAtHeight(ctx, height)
				if err != nil {
					futures[i] <- FetchedBlock{Height: height, Err: fmt.Errorf("indexer: resolve hash at height %d: %w", height, err)}
					return
				}
				block, err := f.client.BlockByHash(ctx, hash)
				if err != nil {
					futures[i] <- FetchedBlock{Height: height, Hash: hash, Err: fmt.Errorf("indexer: fetch block %x: %w", hash, err)}
					return
				}
				futures[i] <- FetchedBlock{Height: height, Hash: hash, Block: block}
			}(i)
		}
	}()

	go func() {
		defer close(out)
		for i := 0; i < n; i++ {
			select {
			case fb := <-futures[i]:
				out <- fb
				if fb.Err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
