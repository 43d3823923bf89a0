package sav

import (
	"math"

	"github.com/carbocation/pfx"
)

// Value type codes, per spec.md §3.
const (
	ValInt8    uint8 = 1
	ValInt16   uint8 = 2
	ValInt32   uint8 = 3
	ValInt64   uint8 = 4
	ValFloat32 uint8 = 5
	ValFloat64 uint8 = 6
	ValStr     uint8 = 7
	ValSparse  uint8 = 8
)

// widthOf returns the byte width of a scalar value type code. 0 is
// returned for ValSparse, which has no fixed width of its own.
func widthOf(valType uint8) int {
	switch valType {
	case ValInt8, ValStr:
		return 1
	case ValInt16:
		return 2
	case ValInt32, ValFloat32:
		return 4
	case ValInt64, ValFloat64:
		return 8
	default:
		return 0
	}
}

// Reserved sentinel bit patterns, per spec.md §3. These mirror
// original_source/include/savvy/typed_value.hpp's missing_int*/
// end_of_vector_int* constants, except for int64: the original source
// defines a 64-bit pattern (0x8000000080000000/...001) that does not
// match its own stated rule (signed-minimum / signed-minimum+1) and
// that BCF itself never materializes (typed_value.hpp repeatedly
// static_asserts against 64-bit BCF values). spec.md's general rule is
// followed here instead.
const (
	MissingInt8  int8 = math.MinInt8
	MissingInt16 int16 = math.MinInt16
	MissingInt32 int32 = math.MinInt32
	MissingInt64 int64 = math.MinInt64

	EndOfVectorInt8  int8 = math.MinInt8 + 1
	EndOfVectorInt16 int16 = math.MinInt16 + 1
	EndOfVectorInt32 int32 = math.MinInt32 + 1
	EndOfVectorInt64 int64 = math.MinInt64 + 1

	missingFloat32Bits      uint32 = 0x7F800001
	endOfVectorFloat32Bits  uint32 = 0x7F800002
	missingFloat64Bits      uint64 = 0x7FF0000000000001
	endOfVectorFloat64Bits  uint64 = 0x7FF0000000000002
)

// MissingFloat32 and EndOfVectorFloat32 are the reserved float32
// sentinel values.
func MissingFloat32() float32     { return math.Float32frombits(missingFloat32Bits) }
func EndOfVectorFloat32() float32 { return math.Float32frombits(endOfVectorFloat32Bits) }
func MissingFloat64() float64     { return math.Float64frombits(missingFloat64Bits) }
func EndOfVectorFloat64() float64 { return math.Float64frombits(endOfVectorFloat64Bits) }

// IsMissingFloat32 reports whether v is the reserved MISSING bit
// pattern (ordinary NaN comparison cannot be used: all NaNs compare
// unequal to themselves).
func IsMissingFloat32(v float32) bool { return math.Float32bits(v) == missingFloat32Bits }
func IsEndOfVectorFloat32(v float32) bool {
	return math.Float32bits(v) == endOfVectorFloat32Bits
}
func IsMissingFloat64(v float64) bool { return math.Float64bits(v) == missingFloat64Bits }
func IsEndOfVectorFloat64(v float64) bool {
	return math.Float64bits(v) == endOfVectorFloat64Bits
}

// IsMissingInt8/16/32/64 report whether v is the reserved MISSING
// pattern for its width.
func IsMissingInt8(v int8) bool   { return v == MissingInt8 }
func IsMissingInt16(v int16) bool { return v == MissingInt16 }
func IsMissingInt32(v int32) bool { return v == MissingInt32 }
func IsMissingInt64(v int64) bool { return v == MissingInt64 }

func IsEndOfVectorInt8(v int8) bool   { return v == EndOfVectorInt8 }
func IsEndOfVectorInt16(v int16) bool { return v == EndOfVectorInt16 }
func IsEndOfVectorInt32(v int32) bool { return v == EndOfVectorInt32 }
func IsEndOfVectorInt64(v int64) bool { return v == EndOfVectorInt64 }

// IntWidthForRange returns the smallest value-type code w with
// lo >= -(2^(w-1))+2 and hi <= 2^(w-1)-1 (spec.md §4.3/§8 property 4).
// The "+2" keeps the two lowest bit patterns of the width, MISSING and
// END_OF_VECTOR, free for the sentinels.
func IntWidthForRange(lo, hi int64) uint8 {
	fits := func(w uint8) bool {
		bits := uint(widthOf(w) * 8)
		upper := int64(1)<<(bits-1) - 1
		lower := -(int64(1) << (bits - 1)) + 2
		return lo >= lower && hi <= upper
	}
	switch {
	case fits(ValInt8):
		return ValInt8
	case fits(ValInt16):
		return ValInt16
	case fits(ValInt32):
		return ValInt32
	default:
		return ValInt64
	}
}

// IntWidthForVector scans vals (ignoring any reserved sentinel value
// already present) and returns the narrowest lossless integer width,
// per spec.md §4.3.
func IntWidthForVector(vals []int64) uint8 {
	var lo, hi int64
	seen := false
	for _, v := range vals {
		if isAnyReserved(v) {
			continue
		}
		if !seen || v < lo {
			lo = v
		}
		if !seen || v > hi {
			hi = v
		}
		seen = true
	}
	return IntWidthForRange(lo, hi)
}

func isAnyReserved(v int64) bool {
	return v == int64(MissingInt8) || v == int64(EndOfVectorInt8) ||
		v == int64(MissingInt16) || v == int64(EndOfVectorInt16) ||
		v == int64(MissingInt32) || v == int64(EndOfVectorInt32) ||
		v == MissingInt64 || v == EndOfVectorInt64
}

// OffsetWidthForMax returns the smallest unsigned offset-width code
// (1..4, for uint8/16/32/64) whose range contains maxOffset, per
// spec.md §4.3 ("Sparse encoding choice").
func OffsetWidthForMax(maxOffset uint64) uint8 {
	switch {
	case maxOffset <= math.MaxUint8:
		return 1
	case maxOffset <= math.MaxUint16:
		return 2
	case maxOffset <= math.MaxUint32:
		return 3
	default:
		return 4
	}
}

// ReservedTransformInt64ToWidth converts a value from a source reserved sentinel
// to the matching sentinel of the destination width, per spec.md
// §4.3 "Reserved-value translation": MISSING->MISSING,
// END_OF_VECTOR->END_OF_VECTOR, everything else by straight numeric
// cast. It operates on int64-normalized values so that it is usable
// uniformly regardless of the source width.
func ReservedTransformInt64ToWidth(v int64, destWidth uint8) int64 {
	switch {
	case isMissingAnyWidth(v):
		return missingForWidth(destWidth)
	case isEndOfVectorAnyWidth(v):
		return endOfVectorForWidth(destWidth)
	default:
		return v
	}
}

func isMissingAnyWidth(v int64) bool {
	return v == int64(MissingInt8) || v == int64(MissingInt16) || v == int64(MissingInt32) || v == MissingInt64
}

func isEndOfVectorAnyWidth(v int64) bool {
	return v == int64(EndOfVectorInt8) || v == int64(EndOfVectorInt16) || v == int64(EndOfVectorInt32) || v == EndOfVectorInt64
}

func missingForWidth(w uint8) int64 {
	switch w {
	case ValInt8:
		return int64(MissingInt8)
	case ValInt16:
		return int64(MissingInt16)
	case ValInt32:
		return int64(MissingInt32)
	default:
		return MissingInt64
	}
}

func endOfVectorForWidth(w uint8) int64 {
	switch w {
	case ValInt8:
		return int64(EndOfVectorInt8)
	case ValInt16:
		return int64(EndOfVectorInt16)
	case ValInt32:
		return int64(EndOfVectorInt32)
	default:
		return EndOfVectorInt64
	}
}

// TypedValue is a polymorphic dense-or-sparse container, the Go
// translation of original_source's typed_value class. Per REDESIGN
// FLAGS, it is a tagged union over two explicit shapes rather than
// aliased raw pointers: when OffType == 0 the value is Dense and only
// ValueBytes is meaningful; otherwise it is Sparse and OffsetBytes
// precedes ValueBytes, exactly as they are laid out on the wire.
type TypedValue struct {
	ValType    uint8
	Size       int // logical element count (dense length for sparse values)
	SparseSize int // nonzero-pair count; 0 if dense
	OffType    uint8

	OffsetBytes []byte
	ValueBytes  []byte
}

// IsSparse reports whether v stores a sparse (offset, value) pair
// encoding rather than a dense array.
func (v *TypedValue) IsSparse() bool { return v.OffType != 0 }

// ByteWidth returns the serialized width, in bytes, of v's value type.
func (v *TypedValue) ByteWidth() int { return widthOf(v.ValType) }

// OffsetByteWidth returns the serialized width, in bytes, of v's
// offset type (0 if dense).
func (v *TypedValue) OffsetByteWidth() int {
	switch v.OffType {
	case 1:
		return 1
	case 2:
		return 2
	case 3:
		return 4
	case 4:
		return 8
	default:
		return 0
	}
}

// validateWidths returns ErrBadWidth if ValType/OffType carry an
// out-of-range width code, per spec.md §7.
func (v *TypedValue) validateWidths() error {
	switch v.ValType {
	case ValInt8, ValInt16, ValInt32, ValInt64, ValFloat32, ValFloat64, ValStr, ValSparse:
	default:
		return pfx.Err(ErrBadWidth)
	}
	switch v.OffType {
	case 0, 1, 2, 3, 4:
	default:
		return pfx.Err(ErrBadWidth)
	}
	return nil
}
