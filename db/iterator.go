package db

import (
	"bridgekv/compress"
	"bridgekv/engine"
)

// Iterator is a caller-visible cursor over an open database. It wraps the
// engine's cursor directly and is not safe for concurrent use. Key and
// Value return copies, so the results stay valid across positioning calls.
type Iterator struct {
	it    engine.Iterator
	codec *compress.Codec
	err   error
}

// First positions the cursor at the smallest key.
func (i *Iterator) First() bool { return i.it.First() }

// Last positions the cursor at the largest key.
func (i *Iterator) Last() bool { return i.it.Last() }

// Seek positions the cursor at the first key >= key.
func (i *Iterator) Seek(key []byte) bool { return i.it.Seek(key) }

// Next advances the cursor. On an unpositioned cursor it behaves as First.
func (i *Iterator) Next() bool { return i.it.Next() }

// Prev steps the cursor backwards. On an unpositioned cursor it behaves as
// Last.
func (i *Iterator) Prev() bool { return i.it.Prev() }

// Valid reports whether the cursor currently points at an entry.
func (i *Iterator) Valid() bool { return i.it.Valid() }

// Key returns a copy of the current key, or nil if the cursor is invalid.
func (i *Iterator) Key() []byte {
	k := i.it.Key()
	if k == nil {
		return nil
	}
	return append([]byte(nil), k...)
}

// Value returns a copy of the current value, decompressed when the database
// was opened with value compression, or nil if the cursor is invalid. A
// decode failure invalidates the cursor and is reported by Error.
func (i *Iterator) Value() []byte {
	v := i.it.Value()
	if v == nil {
		return nil
	}
	v = append([]byte(nil), v...)
	if i.codec == nil {
		return v
	}
	decoded, err := i.codec.Decode(v)
	if err != nil {
		i.err = err
		return nil
	}
	return decoded
}

// Error returns the first failure seen by the cursor or its decoder.
func (i *Iterator) Error() error {
	if i.err != nil {
		return i.err
	}
	return i.it.Error()
}

// Release frees the cursor. The iterator must not be used afterwards.
func (i *Iterator) Release() { i.it.Release() }
