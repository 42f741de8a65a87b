// Package db exposes embedded ordered key-value engines through an
// asynchronous call surface. Every storage operation is validated on the
// caller's goroutine, dispatched to the owning database's worker lane, and
// its result delivered through a completion callback; the caller never
// blocks on engine I/O.
package db

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"bridgekv/compress"
	"bridgekv/dispatch"
	"bridgekv/engine"
	"bridgekv/engine/leveldb"
	"bridgekv/engine/memory"
)

// Callback receives the outcome of an operation with no result payload
// (Open, Close, Put, Del, Write). err is nil on success.
type Callback func(err error)

// GetCallback receives the outcome of a Get. A nil value with a nil error
// is the not-found completion; a present value is the stored bytes. The
// value slice is owned by the callback.
type GetCallback func(value []byte, err error)

// Config configures a DB binding object.
type Config struct {
	// QueueDepth bounds the operation queue between callers and the
	// worker lane. Zero selects the dispatch default.
	QueueDepth int
	// Logger receives debug-level operation tracing. Nil disables it.
	Logger *zap.Logger
}

// DB is one database binding object. It owns at most one live engine
// instance at a time and a dispatch bridge that serializes every
// handle-touching operation, open and close included, on a single worker
// lane.
//
// A DB is safe for concurrent use. Completion callbacks run one at a time
// on the bridge's completion loop; a panic escaping a callback terminates
// the process.
type DB struct {
	logger *zap.Logger
	bridge *dispatch.Bridge

	// mu guards handle and codec. The worker lane takes the write lock
	// to swap them during open and close; NewIterator on the caller's
	// goroutine takes the read lock.
	mu     sync.RWMutex
	handle engine.Driver
	codec  *compress.Codec

	// isOpen mirrors handle != nil for the synchronous pre-dispatch
	// check. Flipped only by the worker lane.
	isOpen atomic.Bool
}

// New creates a closed binding object. Open attaches an engine instance.
func New(cfg *Config) *DB {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DB{
		logger: logger,
		bridge: dispatch.New(cfg.QueueDepth, logger),
	}
}

// outcome is the result slot of one operation. Filled by the worker lane,
// consumed exactly once by the completion path.
type outcome struct {
	err      error
	value    []byte
	notFound bool
}

//
// Open
//

type openParams struct {
	db      *DB
	path    string
	engName string
	options *engine.Options
	codec   *compress.Codec
	cb      Callback
	outcome outcome
}

// Open attaches an engine instance at path. If the database is already
// open, the previous instance is closed first. Argument problems surface
// synchronously; the open result arrives through cb.
func (d *DB) Open(path string, options *Options, cb Callback) error {
	if path == "" {
		return argError("Open", "a non-empty path")
	}
	engName := options.engineName()
	if engName != EngineLevelDB && engName != EngineMemory {
		return fmt.Errorf("%w: unknown engine %q", ErrInvalidArgument, engName)
	}
	codec, err := compress.NewCodec(options.compressionName())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	params := &openParams{
		db:      d,
		path:    path,
		engName: engName,
		options: options.engineOptions(),
		codec:   codec,
		cb:      cb,
	}
	d.logger.Debug("open dispatched", zap.String("path", path), zap.String("engine", engName))
	return d.bridge.Submit(&dispatch.Task{
		Name:     "open",
		Execute:  params.execute,
		Complete: params.complete,
	})
}

func (p *openParams) execute() {
	d := p.db
	d.mu.Lock()
	defer d.mu.Unlock()

	// Close the old instance if Open is called more than once.
	if d.handle != nil {
		d.isOpen.Store(false)
		if err := d.handle.Close(); err != nil {
			d.logger.Warn("closing previous instance failed", zap.Error(err))
		}
		d.handle = nil
		d.codec = nil
	}

	driver, err := openDriver(p.engName, p.path, p.options)
	if err != nil {
		p.outcome.err = err
		return
	}
	d.handle = driver
	d.codec = p.codec
	d.isOpen.Store(true)
}

func (p *openParams) complete() {
	if p.cb != nil {
		p.cb(p.outcome.err)
	}
}

//
// Close
//

type closeParams struct {
	db      *DB
	cb      Callback
	outcome outcome
}

// Close detaches the engine instance. Closing an already-closed database
// is a no-op success. The result arrives through cb.
func (d *DB) Close(cb Callback) error {
	params := &closeParams{db: d, cb: cb}
	d.logger.Debug("close dispatched")
	return d.bridge.Submit(&dispatch.Task{
		Name:     "close",
		Execute:  params.execute,
		Complete: params.complete,
	})
}

func (p *closeParams) execute() {
	d := p.db
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handle == nil {
		return
	}
	d.isOpen.Store(false)
	p.outcome.err = d.handle.Close()
	d.handle = nil
	d.codec = nil
}

func (p *closeParams) complete() {
	if p.cb != nil {
		p.cb(p.outcome.err)
	}
}

//
// Put / Del / Write
//

type writeParams struct {
	db        *DB
	batch     *WriteBatch
	options   *WriteOptions
	cb        Callback
	ownsBatch bool
	outcome   outcome
}

// Put stores value under key. Key and value may each be a string or a
// []byte. Implemented as a one-entry batch through the write path.
func (d *DB) Put(key, value any, options *WriteOptions, cb Callback) error {
	if !d.isOpen.Load() {
		return ErrNotOpen
	}
	batch := NewWriteBatch()
	if err := batch.Put(key, value); err != nil {
		return argError("Put", "key, value as string or []byte")
	}
	return d.submitWrite(&writeParams{
		db: d, batch: batch, options: options, cb: cb, ownsBatch: true,
	})
}

// Del removes key. Key may be a string or a []byte. Deleting an absent key
// succeeds.
func (d *DB) Del(key any, options *WriteOptions, cb Callback) error {
	if !d.isOpen.Load() {
		return ErrNotOpen
	}
	batch := NewWriteBatch()
	if err := batch.Del(key); err != nil {
		return argError("Del", "key as string or []byte")
	}
	return d.submitWrite(&writeParams{
		db: d, batch: batch, options: options, cb: cb, ownsBatch: true,
	})
}

// Write applies a caller-built batch atomically. The batch is borrowed for
// the duration of the operation and must not be mutated until cb fires.
func (d *DB) Write(batch *WriteBatch, options *WriteOptions, cb Callback) error {
	if !d.isOpen.Load() {
		return ErrNotOpen
	}
	if batch == nil {
		return argError("Write", "a WriteBatch")
	}
	return d.submitWrite(&writeParams{
		db: d, batch: batch, options: options, cb: cb,
	})
}

func (d *DB) submitWrite(params *writeParams) error {
	d.logger.Debug("write dispatched", zap.Int("entries", params.batch.Len()))
	return d.bridge.Submit(&dispatch.Task{
		Name:     "write",
		Execute:  params.execute,
		Complete: params.complete,
	})
}

func (p *writeParams) execute() {
	d := p.db
	d.mu.RLock()
	defer d.mu.RUnlock()

	// Closed between dispatch and execution: complete with the empty
	// outcome rather than faulting.
	if d.handle == nil {
		return
	}

	muts := p.batch.mutations()
	if d.codec != nil {
		encoded, err := encodeMutations(d.codec, muts)
		if err != nil {
			p.outcome.err = err
			return
		}
		muts = encoded
	}
	p.outcome.err = d.handle.Apply(muts, p.options)
}

func (p *writeParams) complete() {
	if p.ownsBatch {
		p.batch.Clear()
	}
	if p.cb != nil {
		p.cb(p.outcome.err)
	}
}

// encodeMutations compresses put values, leaving the caller's batch
// untouched. Delete entries pass through.
func encodeMutations(codec *compress.Codec, muts []engine.Mutation) ([]engine.Mutation, error) {
	out := make([]engine.Mutation, len(muts))
	for i, m := range muts {
		if m.Op == engine.OpPut {
			value, err := codec.Encode(m.Value)
			if err != nil {
				return nil, err
			}
			m.Value = value
		}
		out[i] = m
	}
	return out, nil
}

//
// Get
//

type readParams struct {
	db      *DB
	key     []byte
	options *ReadOptions
	cb      GetCallback
	outcome outcome
}

// Get looks up key. Key may be a string or a []byte. The result arrives
// through cb: (value, nil) on a hit, (nil, nil) when the key is absent,
// (nil, err) on an engine failure.
func (d *DB) Get(key any, options *ReadOptions, cb GetCallback) error {
	k, ok := asBytes(key)
	if !ok {
		return argError("Get", "key as string or []byte")
	}
	if !d.isOpen.Load() {
		return ErrNotOpen
	}
	params := &readParams{db: d, key: k, options: options, cb: cb}
	d.logger.Debug("get dispatched")
	return d.bridge.Submit(&dispatch.Task{
		Name:     "get",
		Execute:  params.execute,
		Complete: params.complete,
	})
}

func (p *readParams) execute() {
	d := p.db
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.handle == nil {
		return
	}

	value, err := d.handle.Get(p.key, p.options)
	switch {
	case errors.Is(err, engine.ErrNotFound):
		p.outcome.notFound = true
	case err != nil:
		p.outcome.err = err
	default:
		if d.codec != nil {
			value, err = d.codec.Decode(value)
			if err != nil {
				p.outcome.err = err
				return
			}
		}
		// A found empty value must stay distinguishable from the
		// not-found completion, which is a nil value.
		if value == nil {
			value = []byte{}
		}
		p.outcome.value = value
	}
}

func (p *readParams) complete() {
	if p.cb == nil {
		return
	}
	switch {
	case p.outcome.err != nil:
		p.cb(nil, p.outcome.err)
	case p.outcome.notFound:
		p.cb(nil, nil)
	default:
		p.cb(p.outcome.value, nil)
	}
}

//
// Iterator
//

// NewIterator synchronously constructs a cursor bound to the current engine
// instance. The cursor must be released; it stays usable until then even if
// the database is closed underneath it, subject to the driver's rules.
func (d *DB) NewIterator(options *ReadOptions) (*Iterator, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.handle == nil {
		return nil, ErrNotOpen
	}
	return &Iterator{it: d.handle.NewIterator(options), codec: d.codec}, nil
}

//
// Declared but unimplemented operations. Explicit failures keep the
// capability surface honest for callers probing it.
//

// GetSnapshot is not implemented.
func (d *DB) GetSnapshot() error { return ErrNotImplemented }

// ReleaseSnapshot is not implemented.
func (d *DB) ReleaseSnapshot() error { return ErrNotImplemented }

// GetProperty is not implemented.
func (d *DB) GetProperty(name string) (string, error) { return "", ErrNotImplemented }

// GetApproximateSizes is not implemented.
func (d *DB) GetApproximateSizes(start, limit any) (uint64, error) {
	return 0, ErrNotImplemented
}

//
// Lifecycle
//

// Wait blocks until every dispatched operation has completed. The process
// analogue of "stay alive while work is outstanding".
func (d *DB) Wait() {
	d.bridge.Wait()
}

// Shutdown closes a still-open engine instance, drains in-flight
// operations, and stops the dispatch bridge. The DB must not be used
// afterwards.
func (d *DB) Shutdown() {
	if d.isOpen.Load() {
		if err := d.Close(nil); err != nil && err != dispatch.ErrStopped {
			d.logger.Warn("shutdown close failed", zap.Error(err))
		}
	}
	d.bridge.Stop()
}

//
// Administrative operations. Synchronous: no handle instance is involved
// and nothing crosses the bridge.
//

// DestroyDB removes the store at path. The database at that path must not
// be open.
func DestroyDB(path string, options *Options) error {
	if path == "" {
		return argError("DestroyDB", "a non-empty path")
	}
	switch options.engineName() {
	case EngineMemory:
		return memory.Destroy(path, options.engineOptions())
	case EngineLevelDB:
		return leveldb.Destroy(path, options.engineOptions())
	default:
		return fmt.Errorf("%w: unknown engine %q", ErrInvalidArgument, options.engineName())
	}
}

// RepairDB runs the engine's recovery pass over the store at path.
func RepairDB(path string, options *Options) error {
	if path == "" {
		return argError("RepairDB", "a non-empty path")
	}
	switch options.engineName() {
	case EngineMemory:
		return memory.Repair(path, options.engineOptions())
	case EngineLevelDB:
		return leveldb.Repair(path, options.engineOptions())
	default:
		return fmt.Errorf("%w: unknown engine %q", ErrInvalidArgument, options.engineName())
	}
}

func openDriver(engName, path string, options *engine.Options) (engine.Driver, error) {
	switch engName {
	case EngineMemory:
		return memory.Open(path, options)
	default:
		return leveldb.Open(path, options)
	}
}
