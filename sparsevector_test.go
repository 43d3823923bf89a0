package sav

import "testing"

func assertStrictlyIncreasing(t *testing.T, offsets []int64) {
	t.Helper()
	for i := 1; i < len(offsets); i++ {
		if offsets[i] <= offsets[i-1] {
			t.Fatalf("offsets not strictly increasing: %v", offsets)
		}
	}
}

// TestSparseVectorSetOrdering locks in spec.md §8 testable property 3:
// after any sequence of mutations, offsets are strictly increasing.
func TestSparseVectorSetOrdering(t *testing.T) {
	sv := NewSparseVector[int32](10)
	sv.Set(5, 7)
	sv.Set(1, 3)
	sv.Set(8, 9)
	sv.Set(5, 70) // overwrite, must not duplicate the offset

	assertStrictlyIncreasing(t, sv.Offsets())
	if sv.NonzeroLen() != 3 {
		t.Fatalf("NonzeroLen() = %d, want 3", sv.NonzeroLen())
	}

	want := map[int64]int32{1: 3, 5: 70, 8: 9}
	for off, val := range want {
		if got := sv.At(off); got != val {
			t.Fatalf("At(%d) = %d, want %d", off, got, val)
		}
	}
	if got := sv.At(2); got != 0 {
		t.Fatalf("At(2) = %d, want 0 (absent offset)", got)
	}
}

// TestSparseVectorAppendPairOrdering locks in the same property for
// the record codec's append-only hot path (encodeGenotypePairs),
// which relies on AppendPair preserving strictly increasing offsets.
// This case appends only nonzero values and checks that they are
// stored as given.
func TestSparseVectorAppendPairOrdering(t *testing.T) {
	sv := NewSparseVector[int8](6)
	sv.AppendPair(0, 1)
	sv.AppendPair(3, 1)
	sv.AppendPair(5, 1)

	assertStrictlyIncreasing(t, sv.Offsets())
	for _, v := range sv.Values() {
		if v == 0 {
			t.Fatalf("appended value unexpectedly zero")
		}
	}
}

// TestSparseVectorResizeTruncates checks that shrinking drops any
// pairs at or past the new length, per spec.md §4.2.
func TestSparseVectorResizeTruncates(t *testing.T) {
	sv := NewSparseVector[int16](5)
	sv.Set(1, 10)
	sv.Set(4, 20)

	sv.Resize(3, nil)
	if sv.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", sv.Len())
	}
	if sv.NonzeroLen() != 1 {
		t.Fatalf("NonzeroLen() = %d, want 1 after truncating offset 4", sv.NonzeroLen())
	}
	if sv.At(1) != 10 {
		t.Fatalf("At(1) = %d, want 10", sv.At(1))
	}
}

// TestSparseVectorDenseMaterializesZeros checks that Dense fills
// absent offsets with the zero value rather than leaving garbage.
func TestSparseVectorDenseMaterializesZeros(t *testing.T) {
	sv := NewSparseVector[int32](4)
	sv.AppendPair(1, 9)
	sv.AppendPair(3, 7)

	dense := sv.Dense()
	want := []int32{0, 9, 0, 7}
	for i := range want {
		if dense[i] != want[i] {
			t.Fatalf("Dense()[%d] = %d, want %d", i, dense[i], want[i])
		}
	}
}
