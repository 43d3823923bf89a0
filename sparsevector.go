package sav

import "sort"

// SparseVectorValue is the set of scalar types a SparseVector may hold.
type SparseVectorValue interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// SparseVector is an ordered sequence of (offset, value) pairs over a
// logical length n, per spec.md §3/§4.2. Offsets are strictly
// increasing and always < n; an offset not present denotes the zero
// value. This is the Go translation of original_source's
// compressed_vector<T>, generalized with generics instead of raw
// pointer aliasing (REDESIGN FLAGS).
type SparseVector[T SparseVectorValue] struct {
	n       int
	offsets []int64
	values  []T
}

// NewSparseVector returns an empty sparse vector with logical length n.
func NewSparseVector[T SparseVectorValue](n int) *SparseVector[T] {
	return &SparseVector[T]{n: n}
}

// Len returns the logical length of the vector.
func (s *SparseVector[T]) Len() int { return s.n }

// NonzeroLen returns the number of stored (offset, value) pairs.
func (s *SparseVector[T]) NonzeroLen() int { return len(s.offsets) }

// Offsets returns the stored offsets, in increasing order. The
// returned slice must not be mutated by the caller.
func (s *SparseVector[T]) Offsets() []int64 { return s.offsets }

// Values returns the stored values, parallel to Offsets(). The
// returned slice must not be mutated by the caller.
func (s *SparseVector[T]) Values() []T { return s.values }

// At returns the logical value at offset, which is the zero value of T
// if offset is not present.
func (s *SparseVector[T]) At(offset int64) T {
	i := s.search(offset)
	if i < len(s.offsets) && s.offsets[i] == offset {
		return s.values[i]
	}
	var zero T
	return zero
}

// search returns the index of offset in s.offsets, or the index at
// which it would be inserted to keep the slice sorted (a lower-bound
// binary search: the first stored offset >= offset).
func (s *SparseVector[T]) search(offset int64) int {
	return sort.Search(len(s.offsets), func(i int) bool {
		return s.offsets[i] >= offset
	})
}

// Set inserts or overwrites the value at offset, preserving order.
// offset must be < Len().
func (s *SparseVector[T]) Set(offset int64, value T) {
	i := s.search(offset)
	if i < len(s.offsets) && s.offsets[i] == offset {
		s.values[i] = value
		return
	}
	s.offsets = append(s.offsets, 0)
	copy(s.offsets[i+1:], s.offsets[i:])
	s.offsets[i] = offset

	s.values = append(s.values, *new(T))
	copy(s.values[i+1:], s.values[i:])
	s.values[i] = value
}

// MutableAt returns the existing slot at offset, inserting a zero slot
// if one does not yet exist, and returns its index for further
// in-place mutation via SetAt.
func (s *SparseVector[T]) MutableAt(offset int64) int {
	i := s.search(offset)
	if i < len(s.offsets) && s.offsets[i] == offset {
		return i
	}
	s.offsets = append(s.offsets, 0)
	copy(s.offsets[i+1:], s.offsets[i:])
	s.offsets[i] = offset

	s.values = append(s.values, *new(T))
	copy(s.values[i+1:], s.values[i:])
	return i
}

// Resize truncates trailing pairs when shrinking. Growing does not
// materialize any values unless fill is non-nil, in which case every
// slot in the grown region is set to *fill (spec.md §4.2: "rare; used
// only in legacy code paths").
func (s *SparseVector[T]) Resize(n int, fill *T) {
	if n < s.n {
		cut := sort.Search(len(s.offsets), func(i int) bool {
			return s.offsets[i] >= int64(n)
		})
		s.offsets = s.offsets[:cut]
		s.values = s.values[:cut]
	} else if n > s.n && fill != nil && *fill != *new(T) {
		for off := int64(s.n); off < int64(n); off++ {
			s.Set(off, *fill)
		}
	}
	s.n = n
}

// AppendPair appends a (offset, value) pair directly, assuming the
// caller guarantees offsets arrive in strictly increasing order. Used
// by the record codec's encode and decode hot paths (record.go), both
// of which already produce offsets in increasing order on their own
// (a dense left-to-right scan on encode, a run-length distance
// accumulation on decode).
func (s *SparseVector[T]) AppendPair(offset int64, value T) {
	s.offsets = append(s.offsets, offset)
	s.values = append(s.values, value)
}

// Dense materializes the vector into a dense []T slice of length Len().
func (s *SparseVector[T]) Dense() []T {
	out := make([]T, s.n)
	for i, off := range s.offsets {
		out[off] = s.values[i]
	}
	return out
}
