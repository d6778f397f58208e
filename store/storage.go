package store

import "errors"

var errTxNotWritable = errors.New("tx not writable")

// storage is a key-value backend with named buckets (Bolt, in-memory).
type storage interface {
	// BeginTx starts a new transaction. Only one writable transaction is
	// active at a time; others wait.
	BeginTx(writable bool) (storageTx, error)
	Close() error
}

type storageTx interface {
	Writable() bool

	// Bucket returns the named bucket, or nil if it doesn't exist.
	Bucket(name string) storageBucket

	// CreateBucket returns the named bucket, creating it if needed.
	CreateBucket(name string) (storageBucket, error)

	Commit() error

	// Rollback aborts the transaction. It is safe to call after Commit.
	Rollback() error
}

// storageBucket is a sorted key-value collection. Slices returned by Get and
// by cursors are only valid until the transaction ends.
type storageBucket interface {
	Get(key []byte) []byte
	Put(key, value []byte) error
	Delete(key []byte) error
	Cursor() storageCursor
	KeyCount() int
}

type storageCursor interface {
	First() (key, value []byte)
	Next() (key, value []byte)
}
