// Package leveldb implements the bridgekv engine surface on top of
// syndtr/goleveldb. This is the default persistent driver.
package leveldb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	ldbiter "github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"bridgekv/engine"
)

// Driver wraps one open goleveldb instance.
type Driver struct {
	db *leveldb.DB
}

// Open opens (and with CreateIfMissing, creates) a store at path.
func Open(path string, options *engine.Options) (*Driver, error) {
	db, err := leveldb.OpenFile(path, toOptions(options))
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", path, err)
	}
	return &Driver{db: db}, nil
}

// Get performs a point lookup.
func (d *Driver) Get(key []byte, ro *engine.ReadOptions) ([]byte, error) {
	value, err := d.db.Get(key, toReadOptions(ro))
	if err == leveldb.ErrNotFound {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb: get: %w", err)
	}
	return value, nil
}

// Apply applies the mutation set through a single leveldb batch write.
func (d *Driver) Apply(muts []engine.Mutation, wo *engine.WriteOptions) error {
	batch := new(leveldb.Batch)
	for _, m := range muts {
		switch m.Op {
		case engine.OpPut:
			batch.Put(m.Key, m.Value)
		case engine.OpDelete:
			batch.Delete(m.Key)
		default:
			return fmt.Errorf("leveldb: unknown mutation op %d", m.Op)
		}
	}
	if err := d.db.Write(batch, toWriteOptions(wo)); err != nil {
		return fmt.Errorf("leveldb: write batch: %w", err)
	}
	return nil
}

// NewIterator returns a cursor over the full key range.
func (d *Driver) NewIterator(ro *engine.ReadOptions) engine.Iterator {
	return &iterator{it: d.db.NewIterator(nil, toReadOptions(ro))}
}

// Close releases the underlying instance and its file lock.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Destroy removes the store at path. A missing path is a success; a path
// that exists but does not look like a store is an error, so a stray
// directory is never deleted by accident.
func Destroy(path string, options *engine.Options) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("leveldb: destroy %s: %w", path, err)
	}
	if len(entries) > 0 && !looksLikeStore(entries) {
		return fmt.Errorf("leveldb: destroy %s: not a database directory", path)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(path, e.Name())); err != nil {
			return fmt.Errorf("leveldb: destroy %s: %w", path, err)
		}
	}
	// Best effort; the directory may be shared.
	os.Remove(path)
	return nil
}

// Repair runs goleveldb's recovery pass over a damaged store.
func Repair(path string, options *engine.Options) error {
	o := toOptions(options)
	db, err := leveldb.RecoverFile(path, o)
	if err != nil {
		return fmt.Errorf("leveldb: repair %s: %w", path, err)
	}
	return db.Close()
}

func looksLikeStore(entries []os.DirEntry) bool {
	for _, e := range entries {
		name := e.Name()
		if name == "CURRENT" || strings.HasPrefix(name, "MANIFEST-") {
			return true
		}
	}
	return false
}

func toOptions(options *engine.Options) *opt.Options {
	if options == nil {
		options = &engine.Options{CreateIfMissing: true}
	}
	o := &opt.Options{
		ErrorIfMissing: !options.CreateIfMissing,
		ErrorIfExist:   options.ErrorIfExists,
	}
	if options.ParanoidChecks {
		o.Strict = opt.StrictAll
	}
	if options.CacheSize > 0 {
		o.BlockCacheCapacity = options.CacheSize
	}
	if options.WriteBufferSize > 0 {
		o.WriteBuffer = options.WriteBufferSize
	}
	if options.BlockSize > 0 {
		o.BlockSize = options.BlockSize
	}
	switch options.Compression {
	case "none":
		o.Compression = opt.NoCompression
	case "snappy":
		o.Compression = opt.SnappyCompression
	}
	return o
}

func toReadOptions(ro *engine.ReadOptions) *opt.ReadOptions {
	if ro == nil {
		return nil
	}
	o := &opt.ReadOptions{DontFillCache: ro.DontFillCache}
	if ro.VerifyChecksums {
		o.Strict = opt.StrictBlockChecksum
	}
	return o
}

func toWriteOptions(wo *engine.WriteOptions) *opt.WriteOptions {
	if wo == nil {
		return nil
	}
	return &opt.WriteOptions{Sync: wo.Sync}
}

type iterator struct {
	it ldbiter.Iterator
}

func (i *iterator) First() bool          { return i.it.First() }
func (i *iterator) Last() bool           { return i.it.Last() }
func (i *iterator) Seek(key []byte) bool { return i.it.Seek(key) }
func (i *iterator) Next() bool           { return i.it.Next() }
func (i *iterator) Prev() bool           { return i.it.Prev() }
func (i *iterator) Valid() bool          { return i.it.Valid() }
func (i *iterator) Key() []byte          { return i.it.Key() }
func (i *iterator) Value() []byte        { return i.it.Value() }
func (i *iterator) Error() error         { return i.it.Error() }
func (i *iterator) Release()             { i.it.Release() }
