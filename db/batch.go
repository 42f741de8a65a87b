package db

import "bridgekv/engine"

// WriteBatch accumulates an ordered set of put and delete entries that is
// applied atomically by DB.Write. Entries preserve insertion order; a later
// entry for the same key wins. The zero batch is empty and a legal no-op
// write.
//
// Put and Del also use a WriteBatch internally: each builds a one-entry
// batch owned by that operation.
type WriteBatch struct {
	muts []engine.Mutation
}

// NewWriteBatch returns an empty batch.
func NewWriteBatch() *WriteBatch {
	return &WriteBatch{}
}

// Put appends a put entry. Key and value may each be a string or a []byte;
// strings are copied into batch-owned storage, byte slices are borrowed and
// must stay stable until the batch's write completes.
func (b *WriteBatch) Put(key, value any) error {
	k, ok := asBytes(key)
	if !ok {
		return argError("WriteBatch.Put", "key as string or []byte")
	}
	v, ok := asBytes(value)
	if !ok {
		return argError("WriteBatch.Put", "value as string or []byte")
	}
	b.muts = append(b.muts, engine.Mutation{Op: engine.OpPut, Key: k, Value: v})
	return nil
}

// Del appends a delete entry. Key may be a string or a []byte.
func (b *WriteBatch) Del(key any) error {
	k, ok := asBytes(key)
	if !ok {
		return argError("WriteBatch.Del", "key as string or []byte")
	}
	b.muts = append(b.muts, engine.Mutation{Op: engine.OpDelete, Key: k})
	return nil
}

// Len returns the number of accumulated entries.
func (b *WriteBatch) Len() int {
	return len(b.muts)
}

// Clear drops all accumulated entries so the batch can be reused.
func (b *WriteBatch) Clear() {
	b.muts = nil
}

// mutations hands the accumulated set to the write path.
func (b *WriteBatch) mutations() []engine.Mutation {
	return b.muts
}
