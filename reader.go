package sav

import (
	"io"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/statgen/libvc/internal/s1r"
)

// DataSource is the minimal random-access input a reader needs: a
// file, an in-memory buffer, or internal/gcsfile's gs:// adapter all
// qualify.
type DataSource interface {
	io.ReaderAt
	io.Closer
}

// Preamble is the parsed file header: UUID, declared headers
// (including the canonical FORMAT header), resolved genotype format,
// and the sample list, per spec.md §4.6/§6.
type Preamble struct {
	UUID    uuid.UUID
	Headers []Header
	Format  GenotypeFormat
	Samples []string
	PBWT    bool
}

// sequentialReaderAt adapts an io.ReaderAt into a byteReaderReader
// that tracks its own position, used once per file to parse the
// preamble without pulling in a buffering layer that would obscure
// exactly how many bytes were consumed (cf. carbocation-bgen's
// variantreader.go, which tracks offsets explicitly for the same
// reason).
type sequentialReaderAt struct {
	src io.ReaderAt
	pos int64
}

func (s *sequentialReaderAt) ReadByte() (byte, error) {
	var b [1]byte
	n, err := s.src.ReadAt(b[:], s.pos)
	if n == 1 {
		s.pos++
		return b[0], nil
	}
	if err != nil {
		return 0, err
	}
	return 0, io.EOF
}

func (s *sequentialReaderAt) Read(p []byte) (int, error) {
	n, err := s.src.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

// readPreamble parses the magic/version, UUID, headers, and sample
// sections from the start of a data stream.
func readPreamble(r byteReaderReader) (*Preamble, error) {
	magicBuf := make([]byte, 7)
	if _, err := io.ReadFull(r, magicBuf); err != nil {
		return nil, pfx.Err(ErrMalformedHeader)
	}
	if magicBuf[0] != 's' || magicBuf[1] != 'a' || magicBuf[2] != 'v' {
		return nil, pfx.Err(ErrMalformedHeader)
	}
	// Per spec.md §9 Open Questions: ignore minor/patch on read, fail
	// only if major != 1.
	if magicBuf[4] != 1 {
		return nil, pfx.Err(ErrMalformedHeader)
	}

	idBuf := make([]byte, 16)
	if _, err := io.ReadFull(r, idBuf); err != nil {
		return nil, pfx.Err(ErrMalformedHeader)
	}
	id, err := uuid.FromBytes(idBuf)
	if err != nil {
		return nil, pfx.Err(ErrMalformedHeader)
	}

	numHeaders, err := DecodeVarint(r)
	if err != nil {
		return nil, pfx.Err(ErrMalformedHeader)
	}

	headers := make([]Header, numHeaders)
	var format GenotypeFormat
	var formatSeen, pbwt bool
	for i := range headers {
		key, err := readLengthPrefixed(r)
		if err != nil {
			return nil, pfx.Err(ErrMalformedHeader)
		}
		val, err := readLengthPrefixed(r)
		if err != nil {
			return nil, pfx.Err(ErrMalformedHeader)
		}
		headers[i] = Header{Key: key, Val: val}

		switch key {
		case "FORMAT":
			formatSeen = true
			switch {
			case strings.Contains(val, "ID=HDS"):
				format = FormatDosage
			case strings.Contains(val, "ID=GT"):
				format = FormatAllele
			default:
				return nil, pfx.Err(ErrMalformedHeader)
			}
		case "PBWT":
			pbwt = val == "1"
		}
	}
	if !formatSeen {
		return nil, pfx.Err(ErrMalformedHeader)
	}
	if pbwt && format != FormatAllele {
		return nil, pfx.Err(ErrMalformedHeader)
	}

	numSamples, err := DecodeVarint(r)
	if err != nil {
		return nil, pfx.Err(ErrMalformedHeader)
	}
	samples := make([]string, numSamples)
	for i := range samples {
		samples[i], err = readLengthPrefixed(r)
		if err != nil {
			return nil, pfx.Err(ErrMalformedHeader)
		}
	}

	return &Preamble{UUID: id, Headers: headers, Format: format, Samples: samples, PBWT: pbwt}, nil
}

// readBlockAt reads and decompresses the block envelope (varint
// checksum, varint compressed length, compressed bytes) starting at
// offset, verifying its xxhash64 checksum. It returns a cursor over
// the decompressed block and the offset immediately following it. A
// probe that reads zero bytes at offset signals end-of-stream via
// io.EOF, per REDESIGN FLAGS ("read into a small per-record/per-block
// buffer to decouple decoding from I/O").
func readBlockAt(src io.ReaderAt, dec *zstd.Decoder, offset int64) (*byteCursor, int64, error) {
	probe := make([]byte, 2*maxVarintBytes)
	n, _ := src.ReadAt(probe, offset)
	if n == 0 {
		return nil, 0, io.EOF
	}
	probe = probe[:n]

	pc := newByteCursor(probe)
	checksum, err := DecodeVarint(pc)
	if err != nil {
		return nil, 0, pfx.Err(ErrTruncated)
	}
	compLen, err := DecodeVarint(pc)
	if err != nil {
		return nil, 0, pfx.Err(ErrTruncated)
	}
	headerLen := int64(pc.pos)

	compressed := make([]byte, compLen)
	if compLen > 0 {
		if _, err := src.ReadAt(compressed, offset+headerLen); err != nil && err != io.EOF {
			return nil, 0, pfx.Err(err)
		}
	}

	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, 0, pfx.Err(err)
	}
	if xxhash.Sum64(raw) != checksum {
		return nil, 0, pfx.Err(ErrTruncated)
	}

	return newByteCursor(raw), offset + headerLen + int64(compLen), nil
}

// sampleSubset maps original sample indices to their position in a
// reduced output, per spec.md §4.8 "Sample subsetting".
type sampleSubset struct {
	origToNew []int // -1 if absent
	newCount  int
	ploidy    int
}

func newSampleSubset(allSamples []string, keep map[string]bool, ploidy int) *sampleSubset {
	s := &sampleSubset{origToNew: make([]int, len(allSamples)), ploidy: ploidy}
	next := 0
	for i, name := range allSamples {
		if keep[name] {
			s.origToNew[i] = next
			next++
		} else {
			s.origToNew[i] = -1
		}
	}
	s.newCount = next
	return s
}

// apply reindexes a dense genotype vector (length origSampleCount *
// ploidy) down to the subset, preserving per-haplotype slotting.
func (s *sampleSubset) apply(genotype []float64, ploidy int) ([]float64, int) {
	out := make([]float64, s.newCount*ploidy)
	for origIdx, newIdx := range s.origToNew {
		if newIdx < 0 {
			continue
		}
		for p := 0; p < ploidy; p++ {
			out[newIdx*ploidy+p] = genotype[origIdx*ploidy+p]
		}
	}
	return out, ploidy
}

// BoundingPolicy selects how a record's reference span is compared
// against a query region, per spec.md §4.8.
type BoundingPolicy uint8

const (
	BoundAny BoundingPolicy = iota
	BoundLeftPoint
	BoundRightPoint
	BoundMidpoint
)

// Region is an inclusive-bounds query against one chromosome.
type Region struct {
	Chrom string
	Beg   uint32
	End   uint32
}

func (r Region) contains(pos uint64) bool {
	return pos >= uint64(r.Beg) && pos <= uint64(r.End)
}

// accepts evaluates policy for a site against region, per spec.md
// §4.8 steps 3's four bounding rules.
func accepts(policy BoundingPolicy, site *Site, region Region) bool {
	if site.Chrom != region.Chrom {
		return false
	}
	end := site.EndPos()
	switch policy {
	case BoundLeftPoint:
		return region.contains(site.Pos)
	case BoundRightPoint:
		return region.contains(end)
	case BoundMidpoint:
		mid := (site.Pos + end) / 2
		return region.contains(mid)
	default: // BoundAny
		return site.Pos <= uint64(region.End) && end >= uint64(region.Beg)
	}
}

// LinearReader decodes records sequentially from the start of the
// record section, with no region filtering, per spec.md §4.8 "Linear
// reader".
type LinearReader struct {
	src    DataSource
	dec    *zstd.Decoder
	schema *InfoSchema
	format GenotypeFormat

	numSamples  int
	subset      *sampleSubset
	pbwtEnabled bool
	pbwt        *PBWTState

	offset int64
	cur    *byteCursor
	err    error
	eof    bool
}

// NewLinearReader opens src, parses its preamble, and returns a reader
// positioned at the start of the record section.
func NewLinearReader(src DataSource, schema *InfoSchema) (*LinearReader, *Preamble, error) {
	seq := &sequentialReaderAt{src: src}
	pre, err := readPreamble(seq)
	if err != nil {
		return nil, nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}

	return &LinearReader{
		src:         src,
		dec:         dec,
		schema:      schema,
		format:      pre.Format,
		numSamples:  len(pre.Samples),
		pbwtEnabled: pre.PBWT,
		offset:      seq.pos,
	}, pre, nil
}

// WithSampleSubset restricts future reads to the named samples,
// reindexing genotype output per spec.md §4.8.
func (r *LinearReader) WithSampleSubset(samples []string, keep []string, ploidy int) {
	set := make(map[string]bool, len(keep))
	for _, k := range keep {
		set[k] = true
	}
	r.subset = newSampleSubset(samples, set, ploidy)
}

// Read decodes the next record, returning io.EOF once the stream is
// exhausted. A non-EOF error is sticky: subsequent calls return the
// same error, per spec.md §7's fail-bit policy.
func (r *LinearReader) Read() (*Site, []float64, int, error) {
	if r.err != nil {
		return nil, nil, 0, r.err
	}
	if r.eof {
		return nil, nil, 0, io.EOF
	}

	for r.cur == nil || r.cur.atEOF() {
		cur, next, err := readBlockAt(r.src, r.dec, r.offset)
		if err == io.EOF {
			r.eof = true
			return nil, nil, 0, io.EOF
		}
		if err != nil {
			r.err = err
			return nil, nil, 0, err
		}
		r.cur = cur
		r.offset = next
		if r.pbwtEnabled {
			r.pbwt = NewPBWTState()
		}
	}

	site, genotype, ploidy, err := DecodeRecord(r.cur, r.schema, r.numSamples, r.format, r.pbwt)
	if err != nil {
		r.err = err
		return nil, nil, 0, err
	}
	if r.subset != nil {
		genotype, ploidy = r.subset.apply(genotype, ploidy)
	}
	return site, genotype, ploidy, nil
}

// Close releases the underlying data source.
func (r *LinearReader) Close() error { return r.src.Close() }

// IndexedReader answers one region query against an S1R sidecar
// index, block-seeking directly to matching entries, per spec.md §4.8
// "Indexed reader".
type IndexedReader struct {
	src    DataSource
	dec    *zstd.Decoder
	schema *InfoSchema
	format GenotypeFormat

	numSamples  int
	subset      *sampleSubset
	pbwtEnabled bool
	pbwt        *PBWTState

	region  Region
	policy  BoundingPolicy
	entries []s1r.Entry
	idx     int

	cur       *byteCursor
	remaining int

	err error
	eof bool
}

// NewIndexedReader opens src and the sidecar index at indexPath,
// queries it for region, and returns a reader that yields only
// entries whose blocks can possibly contain a match.
func NewIndexedReader(src DataSource, indexPath string, schema *InfoSchema, region Region, policy BoundingPolicy) (*IndexedReader, *Preamble, error) {
	if indexPath == "" {
		return nil, nil, pfx.Err(ErrIndexMissing)
	}

	seq := &sequentialReaderAt{src: src}
	pre, err := readPreamble(seq)
	if err != nil {
		return nil, nil, err
	}

	idx, err := s1r.Open(indexPath)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}

	sidecarUUID, ok, err := idx.UUID()
	if err != nil {
		idx.Close()
		return nil, nil, pfx.Err(err)
	}
	if ok && sidecarUUID != [16]byte{} && sidecarUUID != [16]byte(pre.UUID) && pre.UUID != uuid.Nil {
		idx.Close()
		return nil, nil, pfx.Err(ErrUUIDMismatch)
	}

	entries, err := idx.CreateQuery(s1r.Region{Chrom: region.Chrom, Beg: region.Beg, End: region.End})
	idx.Close()
	if err != nil {
		return nil, nil, pfx.Err(err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}

	return &IndexedReader{
		src:         src,
		dec:         dec,
		schema:      schema,
		format:      pre.Format,
		numSamples:  len(pre.Samples),
		pbwtEnabled: pre.PBWT,
		region:      region,
		policy:      policy,
		entries:     entries,
	}, pre, nil
}

// WithSampleSubset restricts future reads to the named samples.
func (r *IndexedReader) WithSampleSubset(samples []string, keep []string, ploidy int) {
	set := make(map[string]bool, len(keep))
	for _, k := range keep {
		set[k] = true
	}
	r.subset = newSampleSubset(samples, set, ploidy)
}

// Read decodes the next region-matching record, seeking into new
// blocks as needed and discarding non-matching records within a block
// (per spec.md §4.8 step 4: "If the policy accepts, return the
// record; else discard genotypes and continue").
func (r *IndexedReader) Read() (*Site, []float64, int, error) {
	if r.err != nil {
		return nil, nil, 0, r.err
	}
	if r.eof {
		return nil, nil, 0, io.EOF
	}

	for {
		if r.remaining == 0 {
			if r.idx >= len(r.entries) {
				r.eof = true
				return nil, nil, 0, io.EOF
			}
			e := r.entries[r.idx]
			r.idx++
			frameOffset := int64(e.Value >> 16)
			cur, _, err := readBlockAt(r.src, r.dec, frameOffset)
			if err != nil {
				r.err = err
				return nil, nil, 0, err
			}
			r.cur = cur
			r.remaining = int(e.Value&0xFFFF) + 1
			if r.pbwtEnabled {
				r.pbwt = NewPBWTState()
			}
		}

		site, genotype, ploidy, err := DecodeRecord(r.cur, r.schema, r.numSamples, r.format, r.pbwt)
		if err != nil {
			r.err = err
			return nil, nil, 0, err
		}
		r.remaining--

		if !accepts(r.policy, site, r.region) {
			continue
		}
		if r.subset != nil {
			genotype, ploidy = r.subset.apply(genotype, ploidy)
		}
		return site, genotype, ploidy, nil
	}
}

// ReadIf evaluates pred against each candidate site before deciding
// whether to decode its genotype payload at all, skipping the payload
// entirely (but still advancing the cursor by the same number of
// bytes a full decode would) when pred rejects the site. This is the
// optimization spec.md §4.8 describes as distinct from the eager
// decode-then-discard in Read.
func (r *IndexedReader) ReadIf(pred func(*Site) bool) (*Site, []float64, int, error) {
	if r.err != nil {
		return nil, nil, 0, r.err
	}
	if r.eof {
		return nil, nil, 0, io.EOF
	}

	for {
		if r.remaining == 0 {
			if r.idx >= len(r.entries) {
				r.eof = true
				return nil, nil, 0, io.EOF
			}
			e := r.entries[r.idx]
			r.idx++
			frameOffset := int64(e.Value >> 16)
			cur, _, err := readBlockAt(r.src, r.dec, frameOffset)
			if err != nil {
				r.err = err
				return nil, nil, 0, err
			}
			r.cur = cur
			r.remaining = int(e.Value&0xFFFF) + 1
			if r.pbwtEnabled {
				r.pbwt = NewPBWTState()
			}
		}

		site, err := decodeSiteMetadata(r.cur, r.schema)
		if err != nil {
			r.err = err
			return nil, nil, 0, err
		}
		r.remaining--

		// Byte-skipping a rejected site's payload would desync the
		// permutation chain for every later record in this block, so a
		// PBWT-enabled file always pays for the full decode here; only a
		// non-PBWT file gets the skip-the-payload-bytes optimization.
		if (!pred(site) || !accepts(r.policy, site, r.region)) && !r.pbwtEnabled {
			if err := SkipGenotypePayload(r.cur, r.format); err != nil {
				r.err = err
				return nil, nil, 0, err
			}
			continue
		}

		ploidy, sv, err := decodeGenotypePayload(r.cur, r.format)
		if err != nil {
			r.err = err
			return nil, nil, 0, err
		}
		genotype, err := materializeGenotype(sv, ploidy, r.numSamples, r.format, r.pbwt)
		if err != nil {
			r.err = err
			return nil, nil, 0, err
		}

		if !pred(site) || !accepts(r.policy, site, r.region) {
			continue
		}
		if r.subset != nil {
			genotype, ploidy = r.subset.apply(genotype, ploidy)
		}
		return site, genotype, ploidy, nil
	}
}

// Close releases the underlying data source.
func (r *IndexedReader) Close() error { return r.src.Close() }
