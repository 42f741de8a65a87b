package db

import (
	"bytes"
	"testing"
)

func populateOrdered(t *testing.T, d *DB) []string {
	t.Helper()
	keys := []string{"apple", "banana", "cherry", "date", "elderberry"}
	for _, k := range keys {
		syncPut(t, d, k, "v:"+k)
	}
	return keys
}

func TestIteratorForwardTraversal(t *testing.T) {
	d := openMemDB(t)
	keys := populateOrdered(t, d)

	it, err := d.NewIterator(nil)
	if err != nil {
		t.Fatalf("NewIterator failed: %v", err)
	}
	defer it.Release()

	i := 0
	for ok := it.First(); ok; ok = it.Next() {
		if i >= len(keys) {
			t.Fatalf("iterator yielded more than %d entries", len(keys))
		}
		if string(it.Key()) != keys[i] {
			t.Errorf("position %d: got key %q, want %q", i, it.Key(), keys[i])
		}
		want := "v:" + keys[i]
		if string(it.Value()) != want {
			t.Errorf("position %d: got value %q, want %q", i, it.Value(), want)
		}
		i++
	}
	if i != len(keys) {
		t.Errorf("iterator yielded %d entries, want %d", i, len(keys))
	}
	if it.Error() != nil {
		t.Errorf("iterator error: %v", it.Error())
	}
}

func TestIteratorBackwardTraversal(t *testing.T) {
	d := openMemDB(t)
	keys := populateOrdered(t, d)

	it, err := d.NewIterator(nil)
	if err != nil {
		t.Fatalf("NewIterator failed: %v", err)
	}
	defer it.Release()

	i := len(keys) - 1
	for ok := it.Last(); ok; ok = it.Prev() {
		if i < 0 {
			t.Fatal("iterator yielded too many entries going backwards")
		}
		if string(it.Key()) != keys[i] {
			t.Errorf("position %d: got key %q, want %q", i, it.Key(), keys[i])
		}
		i--
	}
	if i != -1 {
		t.Errorf("backward traversal stopped early at index %d", i+1)
	}
}

func TestIteratorSeek(t *testing.T) {
	d := openMemDB(t)
	populateOrdered(t, d)

	it, err := d.NewIterator(nil)
	if err != nil {
		t.Fatalf("NewIterator failed: %v", err)
	}
	defer it.Release()

	// Exact hit.
	if !it.Seek([]byte("cherry")) {
		t.Fatal("seek to existing key failed")
	}
	if string(it.Key()) != "cherry" {
		t.Errorf("got %q, want \"cherry\"", it.Key())
	}

	// Between keys: lands on the next greater key.
	if !it.Seek([]byte("bb")) {
		t.Fatal("seek between keys failed")
	}
	if string(it.Key()) != "cherry" {
		t.Errorf("got %q, want \"cherry\"", it.Key())
	}

	// Past the end.
	if it.Seek([]byte("zzz")) {
		t.Errorf("seek past the end succeeded at key %q", it.Key())
	}
	if it.Valid() {
		t.Error("iterator still valid after seeking past the end")
	}
}

func TestIteratorSeesSnapshotNotLaterWrites(t *testing.T) {
	d := openMemDB(t)
	populateOrdered(t, d)

	it, err := d.NewIterator(nil)
	if err != nil {
		t.Fatalf("NewIterator failed: %v", err)
	}
	defer it.Release()

	syncPut(t, d, "zzz-late", "late")

	var last []byte
	for ok := it.First(); ok; ok = it.Next() {
		last = it.Key()
	}
	if bytes.Equal(last, []byte("zzz-late")) {
		t.Error("iterator observed a write made after its creation")
	}
}

func TestIteratorKeyValueAreCopies(t *testing.T) {
	d := openMemDB(t)
	syncPut(t, d, "k1", "v1")
	syncPut(t, d, "k2", "v2")

	it, err := d.NewIterator(nil)
	if err != nil {
		t.Fatalf("NewIterator failed: %v", err)
	}
	defer it.Release()

	if !it.First() {
		t.Fatal("First failed")
	}
	key, value := it.Key(), it.Value()
	it.Next()

	if string(key) != "k1" || string(value) != "v1" {
		t.Errorf("copies changed after Next: key=%q value=%q", key, value)
	}
}
