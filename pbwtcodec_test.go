package sav

import (
	"math"
	"testing"
)

// TestPBWTSortGenotypeRoundTrip exercises pbwtSortGenotype/
// pbwtUnsortGenotype directly (the TypedValue-wrapped staging step
// EncodeRecord/DecodeRecord call into), across a chain of sites with
// independent encode/decode PBWTState chains, mirroring how a Writer
// and a Reader each maintain their own per-block state.
func TestPBWTSortGenotypeRoundTrip(t *testing.T) {
	sites := [][]float64{
		{0, 1, 0, 0, 1, 1},
		{1, 1, math.NaN(), 0, 0, 1},
		{0, 0, 0, 0, 0, 0},
	}

	enc := NewPBWTState()
	dec := NewPBWTState()
	for i, want := range sites {
		tv, err := pbwtSortGenotype(enc, want)
		if err != nil {
			t.Fatalf("site %d: pbwtSortGenotype: %v", i, err)
		}
		if tv.ValType != ValInt8 {
			t.Fatalf("site %d: ValType = %d, want ValInt8", i, tv.ValType)
		}

		got, err := pbwtUnsortGenotype(dec, tv)
		if err != nil {
			t.Fatalf("site %d: pbwtUnsortGenotype: %v", i, err)
		}
		if len(got) != len(want) {
			t.Fatalf("site %d: length mismatch: got %d want %d", i, len(got), len(want))
		}
		for j := range want {
			if isNaNFloat(want[j]) != isNaNFloat(got[j]) {
				t.Fatalf("site %d index %d: want NaN=%v got NaN=%v", i, j, isNaNFloat(want[j]), isNaNFloat(got[j]))
			}
			if !isNaNFloat(want[j]) && want[j] != got[j] {
				t.Fatalf("site %d index %d: want %v got %v", i, j, want[j], got[j])
			}
		}
	}
}

// TestPBWTEncodeCodesSelectInt8Width checks that pbwtEncodeCodes
// always selects ValInt8 for hard-call data, which is
// why NewWriter is free to assume int8 width whenever PBWT is paired
// with FormatAllele (FormatDosage is rejected before it ever reaches
// here; see TestWriterRejectsPBWTWithDosageFormat).
func TestPBWTEncodeCodesSelectInt8Width(t *testing.T) {
	codes := pbwtEncodeCodes([]float64{0, 1, 1, 0, math.NaN()})
	if width := IntWidthForVector(codes); width != ValInt8 {
		t.Fatalf("allele codes should always select ValInt8, got %d", width)
	}
}
