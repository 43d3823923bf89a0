package sav

// PBWTState carries the permutation pair ("prev" and "curr") and
// scratch histogram across a chain of sites for the positional
// Burrows-Wheeler transform described in spec.md §4.3. It is the Go
// translation of original_source's typed_value::internal::pbwt_sort/
// pbwt_unsort counting-sort pair, which is stateful across calls by
// design (each site's sort depends on the previous site's resulting
// permutation).
//
// Per spec.md, PBWT operates only on small-integer ploidy calls
// (int8 or int16); wider types are rejected by the record codec
// before it ever reaches here.
type PBWTState struct {
	prev   []int
	curr   []int
	counts []int
}

// NewPBWTState returns a fresh, uninitialized PBWT permutation chain.
// The identity permutation is lazily created on the first Sort/Unsort
// call, once the vector length is known.
func NewPBWTState() *PBWTState { return &PBWTState{} }

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// SortInt8 reorders v according to the current "prev" permutation,
// advances the permutation chain, and returns the sorted output.
// Stability (equal values preserve previous relative order) is what
// gives PBWT its run-forming property.
func (s *PBWTState) SortInt8(v []int8) []int8 {
	n := len(v)
	s.prepare(n)

	// counts[d+1] is a histogram over the unsigned byte pattern of each
	// distinct value; prefix-summing turns it into the starting
	// destination index for that value (spec.md §4.3 step 2).
	counts := make([]int, 257)
	for _, x := range v {
		counts[uint8(x)+1]++
	}
	for i := 1; i < len(counts); i++ {
		counts[i] += counts[i-1]
	}

	out := make([]int8, n)
	for i, unsortedIndex := range s.prev {
		d := uint8(v[unsortedIndex])
		out[i] = v[unsortedIndex]
		s.curr[counts[d]] = unsortedIndex
		counts[d]++
	}

	s.prev, s.curr = s.curr, s.prev
	return out
}

// UnsortInt8 is the symmetric inverse of SortInt8: given the sorted
// vector for the current site, it reconstructs the original
// (unsorted) vector and advances the same permutation chain forward.
func (s *PBWTState) UnsortInt8(sorted []int8) []int8 {
	n := len(sorted)
	s.prepare(n)

	counts := make([]int, 257)
	for _, x := range sorted {
		counts[uint8(x)+1]++
	}
	for i := 1; i < len(counts); i++ {
		counts[i] += counts[i-1]
	}

	out := make([]int8, n)
	for i, unsortedIndex := range s.prev {
		out[unsortedIndex] = sorted[i]
		d := uint8(sorted[i])
		s.curr[counts[d]] = unsortedIndex
		counts[d]++
	}

	s.prev, s.curr = s.curr, s.prev
	return out
}

// SortInt16 is SortInt8 generalized to 16-bit ploidy codes.
func (s *PBWTState) SortInt16(v []int16) []int16 {
	n := len(v)
	s.prepare(n)

	counts := make([]int, 65537)
	for _, x := range v {
		counts[uint16(x)+1]++
	}
	for i := 1; i < len(counts); i++ {
		counts[i] += counts[i-1]
	}

	out := make([]int16, n)
	for i, unsortedIndex := range s.prev {
		d := uint16(v[unsortedIndex])
		out[i] = v[unsortedIndex]
		s.curr[counts[d]] = unsortedIndex
		counts[d]++
	}

	s.prev, s.curr = s.curr, s.prev
	return out
}

// UnsortInt16 is the inverse of SortInt16.
func (s *PBWTState) UnsortInt16(sorted []int16) []int16 {
	n := len(sorted)
	s.prepare(n)

	counts := make([]int, 65537)
	for _, x := range sorted {
		counts[uint16(x)+1]++
	}
	for i := 1; i < len(counts); i++ {
		counts[i] += counts[i-1]
	}

	out := make([]int16, n)
	for i, unsortedIndex := range s.prev {
		out[unsortedIndex] = sorted[i]
		d := uint16(sorted[i])
		s.curr[counts[d]] = unsortedIndex
		counts[d]++
	}

	s.prev, s.curr = s.curr, s.prev
	return out
}

// prepare initializes prev to the identity permutation on first use
// and sizes curr to match, per spec.md §4.3 step 1.
func (s *PBWTState) prepare(n int) {
	if s.prev == nil {
		s.prev = identity(n)
	}
	if s.curr == nil || len(s.curr) != n {
		s.curr = make([]int, n)
	}
}
