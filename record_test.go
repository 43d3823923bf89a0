package sav

import (
	"math"
	"testing"
)

func schemaFor(keys ...string) *InfoSchema { return &InfoSchema{Keys: keys} }

func TestRecordRoundTripAllele(t *testing.T) {
	schema := schemaFor("AF", "AC")
	site := &Site{Chrom: "chr1", Pos: 12345, Ref: "A", Alt: "G", Info: []string{"0.1", "4"}}

	// 3 samples, diploid: [ref,alt] [missing,ref] [alt,alt]
	genotype := []float64{0, 1, math.NaN(), 0, 1, 1}

	buf := EncodeRecord(nil, site, schema, 2, genotype, FormatAllele, nil)

	c := newByteCursor(buf)
	gotSite, gotGeno, ploidy, err := DecodeRecord(c, schema, 3, FormatAllele, nil)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if !c.atEOF() {
		t.Fatalf("cursor not fully consumed: pos=%d len=%d", c.pos, len(c.buf))
	}
	if ploidy != 2 {
		t.Fatalf("ploidy = %d, want 2", ploidy)
	}
	if gotSite.Chrom != "chr1" || gotSite.Pos != 12345 || gotSite.Ref != "A" || gotSite.Alt != "G" {
		t.Fatalf("site mismatch: %+v", gotSite)
	}
	if gotSite.Info[0] != "0.1" || gotSite.Info[1] != "4" {
		t.Fatalf("info mismatch: %+v", gotSite.Info)
	}
	if len(gotGeno) != len(genotype) {
		t.Fatalf("genotype length = %d, want %d", len(gotGeno), len(genotype))
	}
	for i := range genotype {
		want, got := genotype[i], gotGeno[i]
		if isNaNFloat(want) != isNaNFloat(got) {
			t.Fatalf("index %d: want NaN=%v got NaN=%v", i, isNaNFloat(want), isNaNFloat(got))
		}
		if !isNaNFloat(want) && want != got {
			t.Fatalf("index %d: want %v got %v", i, want, got)
		}
	}
}

func TestRecordRoundTripDosage(t *testing.T) {
	schema := schemaFor()
	site := &Site{Chrom: "chr2", Pos: 99, Ref: "C", Alt: "T"}

	genotype := []float64{0, 0.5, 1.0, math.NaN(), 0.0078125, 0}

	buf := EncodeRecord(nil, site, schema, 3, genotype, FormatDosage, nil)

	c := newByteCursor(buf)
	_, gotGeno, ploidy, err := DecodeRecord(c, schema, 2, FormatDosage, nil)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if ploidy != 3 {
		t.Fatalf("ploidy = %d, want 3", ploidy)
	}

	// index 1 (0.5) and index 3 (NaN) both quantize to payload 63 and
	// are therefore indistinguishable on decode: NaN wins, per spec.md
	// §4.5's documented collision.
	wantNaN := map[int]bool{1: true, 3: true}
	for i, want := range genotype {
		got := gotGeno[i]
		if wantNaN[i] {
			if !isNaNFloat(got) {
				t.Fatalf("index %d: want NaN (0.5/missing collision), got %v", i, got)
			}
			continue
		}
		if want == 0 {
			if got != 0 {
				t.Fatalf("index %d: want 0 (implied absence), got %v", i, got)
			}
			continue
		}
		if math.Abs(got-want) > 1.0/128 {
			t.Fatalf("index %d: want ~%v got %v", i, want, got)
		}
	}
}

func TestRecordAlleleSparseOmitsReference(t *testing.T) {
	schema := schemaFor()
	site := &Site{Chrom: "chr1", Pos: 1}
	genotype := []float64{0, 0, 0, 0}

	buf := EncodeRecord(nil, site, schema, 2, genotype, FormatAllele, nil)
	c := newByteCursor(buf)
	_, gotGeno, _, err := DecodeRecord(c, schema, 2, FormatAllele, nil)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	for i, v := range gotGeno {
		if v != 0 {
			t.Fatalf("index %d: want 0 (all-reference record), got %v", i, v)
		}
	}
}

func TestRecordConsecutiveNonzeroOffsetIsZero(t *testing.T) {
	schema := schemaFor()
	site := &Site{Chrom: "chr1", Pos: 1}
	genotype := []float64{1, 1, 0, 0}

	sv, err := encodeGenotypePairs(genotype, FormatAllele, nil)
	if err != nil {
		t.Fatalf("encodeGenotypePairs: %v", err)
	}
	if sv.NonzeroLen() != 2 {
		t.Fatalf("NonzeroLen() = %d, want 2", sv.NonzeroLen())
	}

	buf := EncodeRecord(nil, site, schema, 2, genotype, FormatAllele, nil)
	c := newByteCursor(buf)
	_, _, svDecoded, err := decodeGenotypePayloadSkippingSite(c, schema, FormatAllele)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	offsets := svDecoded.Offsets()
	if offsets[1]-offsets[0] != 1 {
		t.Fatalf("consecutive offsets should differ by 1, got %d and %d", offsets[0], offsets[1])
	}
}

// decodeGenotypePayloadSkippingSite re-reads the site-metadata prefix
// of a full record before delegating to decodeGenotypePayload, for
// tests that want the raw sparse pairs rather than a dense vector.
func decodeGenotypePayloadSkippingSite(c *byteCursor, schema *InfoSchema, format GenotypeFormat) (*Site, int, *SparseVector[int8], error) {
	site, err := decodeSiteMetadata(c, schema)
	if err != nil {
		return nil, 0, nil, err
	}
	ploidy, sv, err := decodeGenotypePayload(c, format)
	return site, ploidy, sv, err
}

func TestSkipGenotypePayloadAdvancesLikeDecode(t *testing.T) {
	schema := schemaFor("AF")
	site := &Site{Chrom: "chrX", Pos: 7, Ref: "A", Alt: "C", Info: []string{"0.2"}}
	genotype := []float64{0, 1, math.NaN(), 1}

	buf := EncodeRecord(nil, site, schema, 2, genotype, FormatAllele, nil)
	buf = EncodeRecord(buf, site, schema, 2, genotype, FormatAllele, nil)

	c := newByteCursor(buf)
	if _, err := decodeSiteMetadata(c, schema); err != nil {
		t.Fatalf("decodeSiteMetadata: %v", err)
	}
	if err := SkipGenotypePayload(c, FormatAllele); err != nil {
		t.Fatalf("SkipGenotypePayload: %v", err)
	}

	_, gotGeno, _, err := DecodeRecord(c, schema, 2, FormatAllele, nil)
	if err != nil {
		t.Fatalf("DecodeRecord after skip: %v", err)
	}
	for i, v := range gotGeno {
		want := genotype[i]
		if isNaNFloat(want) != isNaNFloat(v) {
			t.Fatalf("index %d: mismatch after skip-then-decode", i)
		}
	}
}
