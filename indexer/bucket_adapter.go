package indexer

import bolt "go.etcd.io/bbolt"

// boltBucket adapts *bolt.Bucket to the narrow bucket/cursor interfaces
// store_encoding.go's multimap helpers are written against, so those
// helpers stay testable without a real database.
type boltBucket struct{ b *bolt.Bucket }

func (a boltBucket) Put(key, value []byte) error { return a.b.Put(key, value) }
func (a boltBucket) Delete(key []byte) error      { return a.b.Delete(key) }
func (a boltBucket) Cursor() cursor               { return a.b.Cursor() }
