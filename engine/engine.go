// Package engine defines the surface bridgekv expects from an embedded
// ordered key-value engine. Drivers wrap a concrete engine (goleveldb, the
// in-memory btree store) behind these interfaces; everything above this
// package is engine-agnostic.
package engine

import "errors"

// ErrNotFound is returned by Driver.Get when the key does not exist.
// Callers must compare with errors.Is: drivers are free to wrap it.
var ErrNotFound = errors.New("engine: key not found")

// MutationOp identifies one entry kind inside a mutation set.
type MutationOp uint8

const (
	// OpPut stores Value under Key.
	OpPut MutationOp = iota
	// OpDelete removes Key. Value is ignored.
	OpDelete
)

// Mutation is a single entry of an ordered mutation set.
type Mutation struct {
	Op    MutationOp
	Key   []byte
	Value []byte
}

// Options holds engine tuning applied at open time. Fields a driver cannot
// honor are ignored by that driver.
type Options struct {
	// CreateIfMissing creates the store when the path does not exist.
	CreateIfMissing bool
	// ErrorIfExists fails the open when the path already holds a store.
	ErrorIfExists bool
	// ParanoidChecks enables aggressive corruption checking.
	ParanoidChecks bool
	// CacheSize is the block cache capacity in bytes. Zero means the
	// driver default.
	CacheSize int
	// WriteBufferSize is the memtable size in bytes. Zero means the
	// driver default.
	WriteBufferSize int
	// BlockSize is the on-disk block size in bytes. Zero means the
	// driver default.
	BlockSize int
	// Compression selects the engine's block compression ("none",
	// "snappy" or "" for the driver default).
	Compression string
}

// ReadOptions holds per-read tuning.
type ReadOptions struct {
	// VerifyChecksums validates block checksums on this read.
	VerifyChecksums bool
	// DontFillCache keeps blocks read by this operation out of the cache.
	DontFillCache bool
}

// WriteOptions holds per-write tuning.
type WriteOptions struct {
	// Sync forces the write to reach stable storage before returning.
	Sync bool
}

// Driver is one open engine instance. A Driver is owned by exactly one
// database handle; bridgekv serializes all calls on the owning worker lane,
// so implementations do not need to be safe for concurrent use beyond
// concurrent readers of live iterators.
type Driver interface {
	// Get performs a point lookup. Returns ErrNotFound when the key is
	// absent. The returned slice is owned by the caller.
	Get(key []byte, ro *ReadOptions) ([]byte, error)

	// Apply applies the mutation set atomically, preserving entry order.
	// An empty set is a no-op success.
	Apply(muts []Mutation, wo *WriteOptions) error

	// NewIterator returns a cursor over the current contents. The cursor
	// must be released by the caller.
	NewIterator(ro *ReadOptions) Iterator

	// Close releases the instance. The Driver must not be used afterwards.
	Close() error
}

// Iterator is a forward/backward cursor over an open engine instance.
// Key and Value return slices that are only valid until the next positioning
// call; callers needing stability must copy.
type Iterator interface {
	First() bool
	Last() bool
	Seek(key []byte) bool
	Next() bool
	Prev() bool
	Valid() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}
