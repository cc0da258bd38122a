package sluice

import (
	"path/filepath"
	"testing"
)

func TestFileSink_SizeTracksWrites(t *testing.T) {
	sink, err := CreateFileSink(filepath.Join(t.TempDir(), "out.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer closer(sink)()

	if size, err := sink.Size(); err != nil || size != 0 {
		t.Fatalf("expected empty sink, got size %d, err %v", size, err)
	}

	if _, err := sink.Write([]byte("hello,")); err != nil {
		t.Fatal(err)
	}
	if _, err := sink.Write([]byte("world\n")); err != nil {
		t.Fatal(err)
	}

	size, err := sink.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != 12 {
		t.Errorf("expected size 12, got %d", size)
	}
}

func TestFileSink_Create_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	first, err := CreateFileSink(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.Write([]byte("previous run content")); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := CreateFileSink(path)
	if err != nil {
		t.Fatal(err)
	}
	defer closer(second)()

	if size, _ := second.Size(); size != 0 {
		t.Errorf("expected fresh sink to start empty, got %d", size)
	}
}

func TestMemorySink_BytesReturnsCopy(t *testing.T) {
	sink := NewMemorySink()
	if _, err := sink.Write([]byte("abc")); err != nil {
		t.Fatal(err)
	}

	out := sink.Bytes()
	out[0] = 'x'

	if string(sink.Bytes()) != "abc" {
		t.Error("Bytes must return a copy, not the underlying buffer")
	}
}
