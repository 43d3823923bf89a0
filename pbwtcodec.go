package sav

import (
	"math"

	"github.com/carbocation/pfx"
)

// pbwtEncodeCodes maps a dense hard-call genotype vector into the
// small-integer domain PBWT sorts over: 0 for reference/absent, 1 for
// alt present, and the reserved MISSING pattern for a missing call
// (spec.md §4.3 "Reserved-value translation"). Values are returned
// int64-normalized so IntWidthForVector/ReservedTransformInt64ToWidth
// can be applied uniformly regardless of the eventual destination
// width.
func pbwtEncodeCodes(genotype []float64) []int64 {
	codes := make([]int64, len(genotype))
	for i, x := range genotype {
		switch {
		case isNaNFloat(x):
			codes[i] = int64(MissingInt8)
		case x != 0:
			codes[i] = 1
		}
	}
	return codes
}

// pbwtSortGenotype reorders a dense allele-call vector through state's
// running permutation chain, per spec.md §4.3 steps 1-3. The vector is
// first normalized through IntWidthForVector/ReservedTransformInt64ToWidth
// to pick and apply its destination width (always int8 for allele
// calls; anything wider is rejected, since PBWT is defined in spec.md
// over int8/int16 ploidy codes only and FormatDosage never reaches
// here). The sorted codes come back wrapped in a TypedValue so the
// width tag travels with the bytes rather than being assumed by the
// caller.
func pbwtSortGenotype(state *PBWTState, genotype []float64) (*TypedValue, error) {
	codes := pbwtEncodeCodes(genotype)
	width := IntWidthForVector(codes)
	if width != ValInt8 {
		return nil, pfx.Err(ErrBadWidth)
	}

	narrow := make([]int8, len(codes))
	for i, c := range codes {
		narrow[i] = int8(ReservedTransformInt64ToWidth(c, width))
	}
	sorted := state.SortInt8(narrow)

	tv := &TypedValue{ValType: width, Size: len(sorted)}
	tv.ValueBytes = make([]byte, tv.Size*tv.ByteWidth())
	for i, v := range sorted {
		tv.ValueBytes[i] = byte(v)
	}
	if err := tv.validateWidths(); err != nil {
		return nil, err
	}
	return tv, nil
}

// pbwtUnsortGenotype is the inverse of pbwtSortGenotype: given the
// sorted codes carried in tv, it restores original sample order via
// state's permutation chain and translates codes back into a dense
// genotype vector.
func pbwtUnsortGenotype(state *PBWTState, tv *TypedValue) ([]float64, error) {
	if err := tv.validateWidths(); err != nil {
		return nil, err
	}
	if tv.ValType != ValInt8 {
		return nil, pfx.Err(ErrBadWidth)
	}

	sorted := make([]int8, tv.Size)
	for i, b := range tv.ValueBytes {
		sorted[i] = int8(b)
	}
	unsorted := state.UnsortInt8(sorted)

	genotype := make([]float64, len(unsorted))
	for i, c := range unsorted {
		switch {
		case IsMissingInt8(c):
			genotype[i] = math.NaN()
		case c != 0:
			genotype[i] = 1.0
		}
	}
	return genotype, nil
}
