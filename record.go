package sav

import (
	"io"
	"math"

	"github.com/carbocation/pfx"
)

// GenotypeFormat selects the per-file prefixed-varint bit width used
// for genotype payloads, per spec.md §4.5/§6: N=1 for hard-call
// alleles (FORMAT=GT), N=7 for haplotype dosages (FORMAT=HDS).
type GenotypeFormat uint8

const (
	FormatAllele GenotypeFormat = 1
	FormatDosage GenotypeFormat = 7
)

// N returns the prefixed-varint payload bit width for this format.
func (f GenotypeFormat) N() uint { return uint(f) }

// byteCursor is an in-memory, allocation-free reader over an already
// fully decompressed block buffer. Per REDESIGN FLAGS, record
// decoding never interleaves I/O with integer parsing: the block
// writer/reader decompress a whole block via zstd EncodeAll/DecodeAll
// up front, and every record decode below runs entirely over that
// in-memory buffer.
type byteCursor struct {
	buf []byte
	pos int
}

func newByteCursor(buf []byte) *byteCursor { return &byteCursor{buf: buf} }

func (c *byteCursor) ReadByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *byteCursor) take(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, pfx.Err(ErrTruncated)
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *byteCursor) atEOF() bool { return c.pos >= len(c.buf) }

// Read satisfies io.Reader, so a byteCursor can be used anywhere the
// file-preamble parsing code (writer.go/reader.go) accepts a generic
// byteReaderReader, not just during in-memory record decode.
func (c *byteCursor) Read(p []byte) (int, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	n := copy(p, c.buf[c.pos:])
	c.pos += n
	return n, nil
}

// byteReaderReader is the minimal interface readLengthPrefixed needs:
// a single-byte reader for varints plus a bulk reader for the
// subsequent string payload. Both byteCursor (in-memory block decode)
// and sequentialReaderAt (unbuffered preamble parsing) satisfy it.
type byteReaderReader interface {
	io.ByteReader
	io.Reader
}

// readLengthPrefixed reads a varint length followed by that many bytes
// and returns them as a freshly allocated string.
func readLengthPrefixed(r byteReaderReader) (string, error) {
	n, err := DecodeVarint(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", pfx.Err(ErrTruncated)
	}
	return string(b), nil
}

func writeLengthPrefixed(dst []byte, s string) []byte {
	dst = EncodeVarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// EncodeRecord appends the wire encoding of one record (site metadata
// plus a dense genotype/dosage vector of length numSamples*ploidy) to
// dst, per spec.md §4.5. pbwt, if non-nil, runs the dense allele vector
// through its permutation chain before the sparse pairs are derived
// (FormatAllele only; see pbwtSortGenotype).
func EncodeRecord(dst []byte, site *Site, schema *InfoSchema, ploidy int, genotype []float64, format GenotypeFormat, pbwt *PBWTState) []byte {
	dst = writeLengthPrefixed(dst, site.Chrom)
	dst = EncodeVarint(dst, site.Pos)
	dst = writeLengthPrefixed(dst, site.Ref)
	dst = writeLengthPrefixed(dst, site.Alt)

	for i := range schema.Keys {
		var v string
		if i < len(site.Info) {
			v = site.Info[i]
		}
		dst = writeLengthPrefixed(dst, v)
	}

	dst = EncodeVarint(dst, uint64(ploidy))

	sv, err := encodeGenotypePairs(genotype, format, pbwt)
	if err != nil {
		// encodeGenotypePairs only fails when pbwt is misused against a
		// vector IntWidthForVector can't fit in int8; callers are
		// expected to have validated this at Writer-construction time
		// (see NewWriter), so surface it as a zero-pair payload rather
		// than panicking mid-encode.
		sv = NewSparseVector[int8](len(genotype))
	}
	offsets, values := sv.Offsets(), sv.Values()
	dst = EncodeVarint(dst, uint64(len(offsets)))

	var total int64 = -1
	n := format.N()
	for i, off := range offsets {
		distance := uint64(off - total - 1)
		total = off
		dst = EncodePrefixedVarint(dst, n, uint8(values[i]), distance)
	}

	// Terminator byte, always consumed, per spec.md §4.5 step 6.
	dst = append(dst, 0)
	return dst
}

// encodeGenotypePairs scans a dense genotype vector and produces the
// sparse (offset, payload) pairs to serialize, per spec.md §4.5
// "Allele payload semantics", backed by the SparseVector container
// (C2) rather than an ad hoc pair slice. When pbwt is non-nil, the
// dense vector is first reordered through pbwtSortGenotype (C3).
func encodeGenotypePairs(genotype []float64, format GenotypeFormat, pbwt *PBWTState) (*SparseVector[int8], error) {
	sv := NewSparseVector[int8](len(genotype))

	if pbwt != nil {
		tv, err := pbwtSortGenotype(pbwt, genotype)
		if err != nil {
			return nil, err
		}
		for i, b := range tv.ValueBytes {
			switch code := int8(b); {
			case IsMissingInt8(code):
				sv.AppendPair(int64(i), 0)
			case code != 0:
				sv.AppendPair(int64(i), 1)
			}
		}
		return sv, nil
	}

	switch format {
	case FormatAllele:
		for i, x := range genotype {
			switch {
			case isNaNFloat(x):
				sv.AppendPair(int64(i), 0)
			case x != 0:
				sv.AppendPair(int64(i), 1)
			}
		}
	case FormatDosage:
		for i, x := range genotype {
			v := x
			if isNaNFloat(x) {
				v = 0.5
			}
			raw := int64(math.Round(v*128)) - 1
			if raw < 0 {
				continue
			}
			if raw > 127 {
				raw = 127
			}
			sv.AppendPair(int64(i), int8(raw))
		}
	}
	return sv, nil
}

func isNaNFloat(x float64) bool { return x != x }

// decodeSiteMetadata reads the chrom/pos/ref/alt/info prefix of a
// record, leaving the cursor positioned at the genotype payload. Split
// out from DecodeRecord so ReadIf (C8) can evaluate a predicate on the
// site before deciding whether to decode or skip the genotype payload.
func decodeSiteMetadata(c *byteCursor, schema *InfoSchema) (*Site, error) {
	site := &Site{}

	var err error
	site.Chrom, err = readLengthPrefixed(c)
	if err != nil {
		return nil, err
	}

	pos, err := DecodeVarint(c)
	if err != nil {
		return nil, err
	}
	site.Pos = pos

	site.Ref, err = readLengthPrefixed(c)
	if err != nil {
		return nil, err
	}
	site.Alt, err = readLengthPrefixed(c)
	if err != nil {
		return nil, err
	}

	site.Info = make([]string, len(schema.Keys))
	for i := range schema.Keys {
		site.Info[i], err = readLengthPrefixed(c)
		if err != nil {
			return nil, err
		}
	}

	return site, nil
}

// materializeGenotype expands sparse (offset, payload) pairs into a
// dense vector of length numSamples*ploidy. pbwt, if non-nil, unsorts
// the decoded payload through its permutation chain before translating
// codes back to floats (FormatAllele only; see pbwtUnsortGenotype).
func materializeGenotype(sv *SparseVector[int8], ploidy, numSamples int, format GenotypeFormat, pbwt *PBWTState) ([]float64, error) {
	vecLen := numSamples * ploidy

	if pbwt != nil {
		tv := &TypedValue{ValType: ValInt8, Size: vecLen, ValueBytes: make([]byte, vecLen)}
		for i, off := range sv.Offsets() {
			if off < 0 || int(off) >= vecLen {
				return nil, pfx.Err(ErrSampleCountMismatch)
			}
			code := MissingInt8
			if sv.Values()[i] == 1 {
				code = 1
			}
			tv.ValueBytes[off] = byte(code)
		}
		return pbwtUnsortGenotype(pbwt, tv)
	}

	offsets, values := sv.Offsets(), sv.Values()
	genotype := make([]float64, vecLen)
	for i, off := range offsets {
		if off < 0 || int(off) >= vecLen {
			return nil, pfx.Err(ErrSampleCountMismatch)
		}
		genotype[off] = decodeGenotypeValue(uint8(values[i]), format)
	}
	return genotype, nil
}

// DecodeRecord reads one record from c, reconstructing a dense
// genotype/dosage vector of length numSamples*ploidy. schema supplies
// the declared INFO key order (spec.md §4.4).
func DecodeRecord(c *byteCursor, schema *InfoSchema, numSamples int, format GenotypeFormat, pbwt *PBWTState) (*Site, []float64, int, error) {
	site, err := decodeSiteMetadata(c, schema)
	if err != nil {
		return nil, nil, 0, err
	}

	ploidy, sv, err := decodeGenotypePayload(c, format)
	if err != nil {
		return nil, nil, 0, err
	}

	genotype, err := materializeGenotype(sv, ploidy, numSamples, format, pbwt)
	if err != nil {
		return nil, nil, 0, err
	}

	return site, genotype, ploidy, nil
}

// decodeGenotypePayload reads the ploidy/nonzero_count/pairs/terminator
// portion of a record, per spec.md §4.5, into a SparseVector (C2).
func decodeGenotypePayload(c *byteCursor, format GenotypeFormat) (ploidy int, sv *SparseVector[int8], err error) {
	p, err := DecodeVarint(c)
	if err != nil {
		return 0, nil, err
	}
	ploidy = int(p)

	count, err := DecodeVarint(c)
	if err != nil {
		return 0, nil, err
	}

	sv = NewSparseVector[int8](0)
	n := format.N()
	var total int64 = -1
	for i := uint64(0); i < count; i++ {
		payload, distance, err := DecodePrefixedVarint(c, n)
		if err != nil {
			return 0, nil, err
		}
		total = total + int64(distance) + 1
		sv.AppendPair(total, int8(payload))
	}

	if _, err := c.ReadByte(); err != nil {
		return 0, nil, pfx.Err(ErrTruncated)
	}

	return ploidy, sv, nil
}

// decodeGenotypeValue translates one sparse payload byte back into its
// floating-point representation, per spec.md §4.5.
func decodeGenotypeValue(payload uint8, format GenotypeFormat) float64 {
	switch format {
	case FormatAllele:
		if payload == 1 {
			return 1.0
		}
		return math.NaN()
	case FormatDosage:
		if payload == 63 {
			return math.NaN()
		}
		return float64(payload+1) / 128.0
	default:
		return math.NaN()
	}
}

// SkipGenotypePayload consumes a genotype payload (ploidy, nonzero
// pairs, terminator) without materializing a dense vector. Used by
// ReadIf (C8) to discard sites that a predicate rejects while still
// advancing the cursor by exactly the same number of bytes a full
// decode would.
func SkipGenotypePayload(c *byteCursor, format GenotypeFormat) error {
	_, _, err := decodeGenotypePayload(c, format)
	return err
}
