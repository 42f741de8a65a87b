// Package memory implements the bridgekv engine surface as an ordered
// in-memory store backed by a btree. Stores are kept in a process-wide
// registry keyed by path, so closing and reopening the same path observes
// the previously written state and Destroy empties it. Used as the test
// engine and for ephemeral databases.
package memory

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/google/btree"

	"bridgekv/engine"
)

const btreeDegree = 32

type entry struct {
	key   []byte
	value []byte
}

func entryLess(a, b entry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// store is the shared state behind every Driver opened at the same path.
type store struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]*store)
)

// Driver is one open handle onto a registry store.
type Driver struct {
	st     *store
	mu     sync.Mutex
	closed bool
}

// Open opens the in-memory store registered under path, creating it when
// CreateIfMissing is set.
func Open(path string, options *engine.Options) (*Driver, error) {
	if options == nil {
		options = &engine.Options{CreateIfMissing: true}
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	st, exists := registry[path]
	if exists && options.ErrorIfExists {
		return nil, fmt.Errorf("memory: open %s: store already exists", path)
	}
	if !exists {
		if !options.CreateIfMissing {
			return nil, fmt.Errorf("memory: open %s: store does not exist", path)
		}
		st = &store{tree: btree.NewG(btreeDegree, entryLess)}
		registry[path] = st
	}
	return &Driver{st: st}, nil
}

// Get performs a point lookup. The returned slice is a copy.
func (d *Driver) Get(key []byte, _ *engine.ReadOptions) ([]byte, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	d.st.mu.RLock()
	defer d.st.mu.RUnlock()

	e, ok := d.st.tree.Get(entry{key: key})
	if !ok {
		return nil, engine.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Apply applies the mutation set under a single lock acquisition, so the
// set is atomic and its entry order is preserved.
func (d *Driver) Apply(muts []engine.Mutation, _ *engine.WriteOptions) error {
	if err := d.check(); err != nil {
		return err
	}
	d.st.mu.Lock()
	defer d.st.mu.Unlock()

	for _, m := range muts {
		switch m.Op {
		case engine.OpPut:
			d.st.tree.ReplaceOrInsert(entry{
				key:   append([]byte(nil), m.Key...),
				value: append([]byte(nil), m.Value...),
			})
		case engine.OpDelete:
			d.st.tree.Delete(entry{key: m.Key})
		default:
			return fmt.Errorf("memory: unknown mutation op %d", m.Op)
		}
	}
	return nil
}

// NewIterator returns a cursor over a copy-on-write clone of the tree, so
// later writes do not disturb an open cursor.
func (d *Driver) NewIterator(_ *engine.ReadOptions) engine.Iterator {
	d.st.mu.Lock()
	snapshot := d.st.tree.Clone()
	d.st.mu.Unlock()
	return &iterator{tree: snapshot}
}

// Close marks the handle closed. The store stays in the registry.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Driver) check() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("memory: driver is closed")
	}
	return nil
}

// Destroy drops the store registered under path. Unknown paths succeed.
func Destroy(path string, _ *engine.Options) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, path)
	return nil
}

// Repair is a no-op for the in-memory engine.
func Repair(path string, _ *engine.Options) error {
	return nil
}

type iterator struct {
	tree  *btree.BTreeG[entry]
	cur   entry
	valid bool
}

func (i *iterator) First() bool {
	i.cur, i.valid = i.tree.Min()
	return i.valid
}

func (i *iterator) Last() bool {
	i.cur, i.valid = i.tree.Max()
	return i.valid
}

func (i *iterator) Seek(key []byte) bool {
	i.valid = false
	i.tree.AscendGreaterOrEqual(entry{key: key}, func(e entry) bool {
		i.cur = e
		i.valid = true
		return false
	})
	return i.valid
}

func (i *iterator) Next() bool {
	if !i.valid {
		return i.First()
	}
	prev := i.cur
	i.valid = false
	i.tree.AscendGreaterOrEqual(prev, func(e entry) bool {
		if bytes.Equal(e.key, prev.key) {
			return true
		}
		i.cur = e
		i.valid = true
		return false
	})
	return i.valid
}

func (i *iterator) Prev() bool {
	if !i.valid {
		return i.Last()
	}
	next := i.cur
	i.valid = false
	i.tree.DescendLessOrEqual(next, func(e entry) bool {
		if bytes.Equal(e.key, next.key) {
			return true
		}
		i.cur = e
		i.valid = true
		return false
	})
	return i.valid
}

func (i *iterator) Valid() bool { return i.valid }

func (i *iterator) Key() []byte {
	if !i.valid {
		return nil
	}
	return i.cur.key
}

func (i *iterator) Value() []byte {
	if !i.valid {
		return nil
	}
	return i.cur.value
}

func (i *iterator) Error() error { return nil }

func (i *iterator) Release() {
	i.tree = nil
	i.valid = false
}
