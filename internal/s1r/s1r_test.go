package s1r

import (
	"path/filepath"
	"testing"
)

func TestWriteQueryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.s1r")

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	entries := []Entry{
		{MinPos: 10, MaxPos: 10, Value: 0<<16 | 0},
		{MinPos: 20, MaxPos: 20, Value: 1<<16 | 0},
		{MinPos: 30, MaxPos: 30, Value: 2<<16 | 0},
		{MinPos: 40, MaxPos: 40, Value: 3<<16 | 0},
	}
	for _, e := range entries {
		if err := w.Write("1", e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close writer: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	names, err := r.TreeNames()
	if err != nil {
		t.Fatalf("TreeNames: %v", err)
	}
	if len(names) != 1 || names[0] != "1" {
		t.Fatalf("TreeNames = %v, want [1]", names)
	}

	got, err := r.CreateQuery(Region{Chrom: "1", Beg: 15, End: 35})
	if err != nil {
		t.Fatalf("CreateQuery: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2 (positions 20 and 30)", len(got))
	}
	if got[0].MinPos != 20 || got[1].MinPos != 30 {
		t.Fatalf("got = %+v, want entries at 20 then 30", got)
	}
}

func TestCreateQueryNoMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.s1r")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Write("1", Entry{MinPos: 100, MaxPos: 100, Value: 0}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	got, err := r.CreateQuery(Region{Chrom: "1", Beg: 200, End: 300})
	if err != nil {
		t.Fatalf("CreateQuery: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len(got) = %d, want 0", len(got))
	}
}
