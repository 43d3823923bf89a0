package sav

import "testing"

// TestIntWidthForVectorSelectsNarrowestWidth locks in spec.md §8
// testable property 4: the chosen width is the smallest w with
// min(v) >= -(2^(w-1))+2 and max(v) <= 2^(w-1)-1, ignoring any reserved
// sentinel already present in the vector.
func TestIntWidthForVectorSelectsNarrowestWidth(t *testing.T) {
	cases := []struct {
		name string
		vals []int64
		want uint8
	}{
		{"empty defaults to int8", nil, ValInt8},
		{"small range fits int8", []int64{-120, 0, 120}, ValInt8},
		{"int8 upper bound", []int64{0, 127}, ValInt8},
		{"one past int8 upper bound widens", []int64{0, 128}, ValInt16},
		{"int8 lower bound", []int64{-126, 0}, ValInt8},
		{"ignores the END_OF_VECTOR sentinel below the int8 lower bound", []int64{int64(EndOfVectorInt8), 0}, ValInt8},
		{"ignores a reserved sentinel already present", []int64{int64(MissingInt8), 0, 50}, ValInt8},
		{"int16 upper bound", []int64{0, 32767}, ValInt16},
		{"exceeds int16 widens to int32", []int64{0, 32768}, ValInt32},
		{"exceeds int32 widens to int64", []int64{0, 1 << 32}, ValInt64},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IntWidthForVector(c.vals); got != c.want {
				t.Fatalf("IntWidthForVector(%v) = %d, want %d", c.vals, got, c.want)
			}
		})
	}
}

// TestReservedTransformInt64ToWidth locks in spec.md §4.3's
// reserved-value translation rule: MISSING maps to MISSING and
// END_OF_VECTOR maps to END_OF_VECTOR at the destination width, and
// any ordinary value passes through unchanged.
func TestReservedTransformInt64ToWidth(t *testing.T) {
	if got := ReservedTransformInt64ToWidth(int64(MissingInt8), ValInt16); got != int64(MissingInt16) {
		t.Fatalf("MISSING(int8)->int16 = %d, want %d", got, MissingInt16)
	}
	if got := ReservedTransformInt64ToWidth(int64(EndOfVectorInt8), ValInt32); got != int64(EndOfVectorInt32) {
		t.Fatalf("END_OF_VECTOR(int8)->int32 = %d, want %d", got, EndOfVectorInt32)
	}
	if got := ReservedTransformInt64ToWidth(42, ValInt16); got != 42 {
		t.Fatalf("ordinary value should pass through unchanged: got %d", got)
	}
}

// TestTypedValueValidateWidths locks in spec.md §7's bad-width-code
// error path for the TypedValue container itself.
func TestTypedValueValidateWidths(t *testing.T) {
	ok := &TypedValue{ValType: ValInt16, OffType: 2}
	if err := ok.validateWidths(); err != nil {
		t.Fatalf("validateWidths on valid codes: %v", err)
	}

	badVal := &TypedValue{ValType: 0, OffType: 0}
	if err := badVal.validateWidths(); err == nil {
		t.Fatalf("expected error for bad ValType")
	}

	badOff := &TypedValue{ValType: ValInt8, OffType: 9}
	if err := badOff.validateWidths(); err == nil {
		t.Fatalf("expected error for bad OffType")
	}
}

// TestTypedValueByteWidth exercises ByteWidth/OffsetByteWidth/IsSparse
// against the width codes the PBWT codec (pbwtcodec.go) relies on.
func TestTypedValueByteWidth(t *testing.T) {
	dense := &TypedValue{ValType: ValInt8}
	if dense.IsSparse() {
		t.Fatalf("OffType 0 should not be sparse")
	}
	if dense.ByteWidth() != 1 {
		t.Fatalf("ByteWidth(int8) = %d, want 1", dense.ByteWidth())
	}

	sparse := &TypedValue{ValType: ValInt16, OffType: 3}
	if !sparse.IsSparse() {
		t.Fatalf("nonzero OffType should be sparse")
	}
	if sparse.OffsetByteWidth() != 4 {
		t.Fatalf("OffsetByteWidth(3) = %d, want 4", sparse.OffsetByteWidth())
	}
}
