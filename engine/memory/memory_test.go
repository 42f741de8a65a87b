package memory

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"bridgekv/engine"
)

func openTest(t *testing.T) *Driver {
	t.Helper()
	path := "mem://" + t.Name()
	d, err := Open(path, &engine.Options{CreateIfMissing: true})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
		Destroy(path, nil)
	})
	return d
}

func put(t *testing.T, d *Driver, key, value string) {
	t.Helper()
	err := d.Apply([]engine.Mutation{
		{Op: engine.OpPut, Key: []byte(key), Value: []byte(value)},
	}, nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
}

func TestPutGetDelete(t *testing.T) {
	d := openTest(t)

	put(t, d, "k", "v")
	got, err := d.Get([]byte("k"), nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("got %q, want \"v\"", got)
	}

	err = d.Apply([]engine.Mutation{{Op: engine.OpDelete, Key: []byte("k")}}, nil)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := d.Get([]byte("k"), nil); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestApplyIsOrderedAndAtomic(t *testing.T) {
	d := openTest(t)

	err := d.Apply([]engine.Mutation{
		{Op: engine.OpPut, Key: []byte("a"), Value: []byte("1")},
		{Op: engine.OpDelete, Key: []byte("a")},
		{Op: engine.OpPut, Key: []byte("a"), Value: []byte("2")},
	}, nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	got, err := d.Get([]byte("a"), nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "2" {
		t.Errorf("got %q, want \"2\" (last writer wins)", got)
	}
}

func TestReopenSeesPersistedState(t *testing.T) {
	path := "mem://" + t.Name()
	defer Destroy(path, nil)

	d1, err := Open(path, &engine.Options{CreateIfMissing: true})
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	put(t, d1, "k", "v")
	d1.Close()

	d2, err := Open(path, &engine.Options{CreateIfMissing: true})
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer d2.Close()

	got, err := d2.Get([]byte("k"), nil)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("got %q, want \"v\"", got)
	}
}

func TestDestroyEmptiesStore(t *testing.T) {
	path := "mem://" + t.Name()

	d1, err := Open(path, &engine.Options{CreateIfMissing: true})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	put(t, d1, "k", "v")
	d1.Close()

	if err := Destroy(path, nil); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	d2, err := Open(path, &engine.Options{CreateIfMissing: true})
	if err != nil {
		t.Fatalf("Open after Destroy failed: %v", err)
	}
	defer d2.Close()
	defer Destroy(path, nil)

	if _, err := d2.Get([]byte("k"), nil); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound after Destroy", err)
	}
}

func TestOpenFlags(t *testing.T) {
	path := "mem://" + t.Name()
	defer Destroy(path, nil)

	if _, err := Open(path, &engine.Options{CreateIfMissing: false}); err == nil {
		t.Error("open of missing store without CreateIfMissing succeeded")
	}

	d, err := Open(path, &engine.Options{CreateIfMissing: true})
	if err != nil {
		t.Fatalf("creating open failed: %v", err)
	}
	d.Close()

	if _, err := Open(path, &engine.Options{ErrorIfExists: true}); err == nil {
		t.Error("open with ErrorIfExists succeeded on existing store")
	}
}

func TestClosedDriverRejectsOperations(t *testing.T) {
	d := openTest(t)
	d.Close()

	if _, err := d.Get([]byte("k"), nil); err == nil {
		t.Error("Get on closed driver succeeded")
	}
	if err := d.Apply(nil, nil); err == nil {
		t.Error("Apply on closed driver succeeded")
	}
}

func TestIteratorOrderAndSnapshot(t *testing.T) {
	d := openTest(t)

	keys := []string{"b", "d", "a", "c"}
	for _, k := range keys {
		put(t, d, k, "v:"+k)
	}

	it := d.NewIterator(nil)
	defer it.Release()

	// Writes after cursor creation are invisible to it.
	put(t, d, "e", "late")

	var got []string
	for ok := it.First(); ok; ok = it.Next() {
		got = append(got, string(it.Key()))
	}
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("got %d keys %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIteratorSeekAndPrev(t *testing.T) {
	d := openTest(t)
	for i := 0; i < 10; i++ {
		put(t, d, fmt.Sprintf("k%02d", i), "v")
	}

	it := d.NewIterator(nil)
	defer it.Release()

	if !it.Seek([]byte("k05")) {
		t.Fatal("seek failed")
	}
	if !bytes.Equal(it.Key(), []byte("k05")) {
		t.Errorf("got %q, want k05", it.Key())
	}
	if !it.Prev() {
		t.Fatal("Prev failed")
	}
	if !bytes.Equal(it.Key(), []byte("k04")) {
		t.Errorf("got %q, want k04", it.Key())
	}
	if !it.Last() {
		t.Fatal("Last failed")
	}
	if !bytes.Equal(it.Key(), []byte("k09")) {
		t.Errorf("got %q, want k09", it.Key())
	}
	if it.Next() {
		t.Error("Next past the end succeeded")
	}
	if it.Valid() {
		t.Error("iterator valid past the end")
	}
}
