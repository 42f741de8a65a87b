package leveldb

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"bridgekv/engine"
)

func openTemp(t *testing.T) (*Driver, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "bridgekv_leveldb")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	d, err := Open(dir, &engine.Options{CreateIfMissing: true})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, dir
}

func TestPutGetRoundTrip(t *testing.T) {
	d, _ := openTemp(t)

	value := []byte{0x00, 0x01, 0xfe, 0xff}
	err := d.Apply([]engine.Mutation{
		{Op: engine.OpPut, Key: []byte("bin"), Value: value},
	}, nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	got, err := d.Get([]byte("bin"), nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Errorf("got %x, want %x", got, value)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	d, _ := openTemp(t)

	_, err := d.Get([]byte("missing"), nil)
	if !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestBatchAppliesInOrder(t *testing.T) {
	d, _ := openTemp(t)

	err := d.Apply([]engine.Mutation{
		{Op: engine.OpPut, Key: []byte("a"), Value: []byte("1")},
		{Op: engine.OpDelete, Key: []byte("a")},
		{Op: engine.OpPut, Key: []byte("a"), Value: []byte("2")},
	}, &engine.WriteOptions{Sync: true})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	got, err := d.Get([]byte("a"), nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "2" {
		t.Errorf("got %q, want \"2\"", got)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	d, dir := openTemp(t)

	err := d.Apply([]engine.Mutation{
		{Op: engine.OpPut, Key: []byte("durable"), Value: []byte("yes")},
	}, &engine.WriteOptions{Sync: true})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	d2, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer d2.Close()

	got, err := d2.Get([]byte("durable"), nil)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != "yes" {
		t.Errorf("got %q, want \"yes\"", got)
	}
}

func TestIteratorTraversal(t *testing.T) {
	d, _ := openTemp(t)

	keys := []string{"cherry", "apple", "banana"}
	for _, k := range keys {
		err := d.Apply([]engine.Mutation{
			{Op: engine.OpPut, Key: []byte(k), Value: []byte("v")},
		}, nil)
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}

	it := d.NewIterator(nil)
	defer it.Release()

	var got []string
	for ok := it.First(); ok; ok = it.Next() {
		got = append(got, string(it.Key()))
	}
	want := []string{"apple", "banana", "cherry"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if it.Error() != nil {
		t.Errorf("iterator error: %v", it.Error())
	}
}

func TestDestroyRemovesStore(t *testing.T) {
	d, dir := openTemp(t)

	err := d.Apply([]engine.Mutation{
		{Op: engine.OpPut, Key: []byte("k"), Value: []byte("v")},
	}, &engine.WriteOptions{Sync: true})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := Destroy(dir, nil); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	d2, err := Open(dir, &engine.Options{CreateIfMissing: true})
	if err != nil {
		t.Fatalf("Open after Destroy failed: %v", err)
	}
	defer d2.Close()
	if _, err := d2.Get([]byte("k"), nil); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound after Destroy", err)
	}
}

func TestDestroyMissingPathSucceeds(t *testing.T) {
	if err := Destroy("/nonexistent/bridgekv/store", nil); err != nil {
		t.Errorf("Destroy of missing path failed: %v", err)
	}
}

func TestDestroyRefusesForeignDirectory(t *testing.T) {
	dir, err := os.MkdirTemp("", "bridgekv_notastore")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(dir+"/precious.txt", []byte("keep me"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Destroy(dir, nil); err == nil {
		t.Error("Destroy deleted a directory that is not a store")
	}
	if _, err := os.Stat(dir + "/precious.txt"); err != nil {
		t.Errorf("foreign file was removed: %v", err)
	}
}

func TestRepairLeavesDataReadable(t *testing.T) {
	d, dir := openTemp(t)

	err := d.Apply([]engine.Mutation{
		{Op: engine.OpPut, Key: []byte("k"), Value: []byte("v")},
	}, &engine.WriteOptions{Sync: true})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := Repair(dir, nil); err != nil {
		t.Fatalf("Repair failed: %v", err)
	}

	d2, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open after Repair failed: %v", err)
	}
	defer d2.Close()

	got, err := d2.Get([]byte("k"), nil)
	if err != nil {
		t.Fatalf("Get after Repair failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("got %q, want \"v\"", got)
	}
}

func TestOpenOptionsMapping(t *testing.T) {
	o := toOptions(&engine.Options{
		CreateIfMissing: false,
		ErrorIfExists:   true,
		CacheSize:       1 << 20,
		WriteBufferSize: 1 << 19,
		BlockSize:       4096,
		Compression:     "none",
	})

	if !o.ErrorIfMissing {
		t.Error("CreateIfMissing=false did not map to ErrorIfMissing")
	}
	if !o.ErrorIfExist {
		t.Error("ErrorIfExists did not map")
	}
	if o.BlockCacheCapacity != 1<<20 {
		t.Errorf("cache size: got %d", o.BlockCacheCapacity)
	}
	if o.WriteBuffer != 1<<19 {
		t.Errorf("write buffer: got %d", o.WriteBuffer)
	}
	if o.BlockSize != 4096 {
		t.Errorf("block size: got %d", o.BlockSize)
	}
}
