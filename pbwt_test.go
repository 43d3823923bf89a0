package sav

import "testing"

// TestPBWTInt8RoundTrip locks in spec.md §8 testable property 5:
// pbwt_unsort(pbwt_sort(v)) == v across a chain of sites, each sorted
// and unsorted by independent PBWTState chains advancing in lockstep.
func TestPBWTInt8RoundTrip(t *testing.T) {
	sites := [][]int8{
		{0, 1, 0, 1, 0, 1},
		{1, 1, 0, 0, 1, 1},
		{MissingInt8, 0, 1, 0, 0, 1},
		{0, 0, 0, 0, 0, 0},
	}

	enc := NewPBWTState()
	dec := NewPBWTState()
	for i, v := range sites {
		in := append([]int8(nil), v...)
		sorted := enc.SortInt8(in)

		sortedCopy := append([]int8(nil), sorted...)
		got := dec.UnsortInt8(sortedCopy)

		if len(got) != len(v) {
			t.Fatalf("site %d: length mismatch: got %d want %d", i, len(got), len(v))
		}
		for j := range v {
			if got[j] != v[j] {
				t.Fatalf("site %d index %d: got %d want %d", i, j, got[j], v[j])
			}
		}
	}
}

// TestPBWTInt16RoundTrip is TestPBWTInt8RoundTrip generalized to the
// 16-bit ploidy-code domain (e.g. multi-allelic dosage-style codes).
func TestPBWTInt16RoundTrip(t *testing.T) {
	sites := [][]int16{
		{0, 5, 300, 5, 0, 128},
		{300, 300, 0, 0, 5, 128},
		{MissingInt16, 0, 5, 0, 0, 300},
	}

	enc := NewPBWTState()
	dec := NewPBWTState()
	for i, v := range sites {
		in := append([]int16(nil), v...)
		sorted := enc.SortInt16(in)

		sortedCopy := append([]int16(nil), sorted...)
		got := dec.UnsortInt16(sortedCopy)

		if len(got) != len(v) {
			t.Fatalf("site %d: length mismatch: got %d want %d", i, len(got), len(v))
		}
		for j := range v {
			if got[j] != v[j] {
				t.Fatalf("site %d index %d: got %d want %d", i, j, got[j], v[j])
			}
		}
	}
}

// TestPBWTFirstSiteIsIdentity checks the documented base case: with no
// prior site to establish an order, the first SortInt8 call on a fresh
// PBWTState leaves the vector unpermuted (prev starts as identity), per
// spec.md §4.3 step 1.
func TestPBWTFirstSiteIsIdentity(t *testing.T) {
	s := NewPBWTState()
	v := []int8{1, 0, 1, 0, 1}
	sorted := s.SortInt8(append([]int8(nil), v...))
	for i := range v {
		if sorted[i] != v[i] {
			t.Fatalf("first-site output should equal input: got %v want %v", sorted, v)
		}
	}
}
