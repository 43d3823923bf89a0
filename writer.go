package sav

import (
	"io"

	"github.com/carbocation/pfx"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/statgen/libvc/internal/s1r"
)

// magic is the 7-byte header magic + version, per spec.md §6: "sav",
// major=1, minor=0, patch=0.
var magic = [7]byte{'s', 'a', 'v', 0, 1, 0, 0}

// Header is one (key, value) preamble header pair, per spec.md §4.6.
// A FORMAT header is synthesized by the writer from WriterOptions.Format
// and must not be supplied here.
type Header struct {
	Key string
	Val string
}

// blockRecordCeiling is the hard per-block record-count limit implied
// by the S1R entry's 16-bit record-count field
// ((frame_offset<<16)|(records_in_block-1)); it is enforced regardless
// of the caller's configured BlockSize, which is merely the advisory
// flush threshold and is not itself clamped to this ceiling.
const blockRecordCeiling = 65536

// WriterOptions configures a new Writer. A CompressionLevel below 1
// becomes 3. BlockSize has no default: its zero value means one record
// per frame, so callers wanting 2048-record blocks set it explicitly.
type WriterOptions struct {
	Format           GenotypeFormat
	Headers          []Header
	Samples          []string
	Schema           *InfoSchema
	BlockSize        int // records per block; 0 disables block-driven flushing (one record per frame)
	CompressionLevel int // 1..19

	// UUID, if the zero value, causes the writer to mint a fresh
	// random UUID for the preamble (DOMAIN STACK #4); pass a specific
	// value to pin it (e.g. in tests).
	UUID uuid.UUID

	// PBWT enables positional-Burrows-Wheeler-transform reordering of
	// each block's allele calls before serialization, per spec.md §4.3/
	// §9 ("reorder haplotype vectors before serialization to improve
	// downstream compression"). The permutation chain resets at every
	// block boundary (see Writer.flush), matching the per-block
	// independence the zstd framing (C6) already assumes. Valid only
	// with Format == FormatAllele; NewWriter rejects any other
	// combination, since PBWT over dosage codes is not defined here.
	PBWT bool
}

// countingWriter tracks the running byte offset of everything written
// through it, mirroring the offset-by-offset bookkeeping carbocation-bgen's
// VariantReader performs on read (variantreader.go), applied here on
// the write side so block flushes know their own frame_offset.
type countingWriter struct {
	w   io.Writer
	off int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.off += int64(n)
	if err != nil {
		return n, pfx.Err(err)
	}
	return n, nil
}

// Writer buffers records into fixed-count blocks, flushes each through
// a per-block Zstandard frame, and emits one S1R entry per flush, per
// spec.md §4.6.
type Writer struct {
	cw          *countingWriter
	enc         *zstd.Encoder
	index       *s1r.Writer
	schema      *InfoSchema
	format      GenotypeFormat
	blockSize   int
	numSample   int
	pbwtEnabled bool
	pbwt        *PBWTState

	currentChrom  string
	blockMinPos   uint64
	blockMaxPos   uint64
	recordsInBlock int
	blockBuf      []byte

	err    error
	closed bool
}

// NewWriter opens a data stream and its sidecar S1R index, writes the
// file preamble (magic, UUID, headers, samples), and returns a Writer
// ready to accept records.
func NewWriter(dataW io.Writer, indexPath string, opts WriterOptions) (*Writer, error) {
	if opts.BlockSize < 0 {
		return nil, pfx.Err(ErrMalformedHeader)
	}
	if opts.PBWT && opts.Format != FormatAllele {
		return nil, pfx.Err(ErrMalformedHeader)
	}
	level := opts.CompressionLevel
	if level < 1 {
		level = 3
	}

	idx, err := s1r.Create(indexPath)
	if err != nil {
		return nil, pfx.Err(err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(compressionLevelToEncoderLevel(level)))
	if err != nil {
		idx.Close()
		return nil, pfx.Err(err)
	}

	schema := opts.Schema
	if schema == nil {
		schema = &InfoSchema{}
	}

	cw := &countingWriter{w: dataW}
	w := &Writer{
		cw:          cw,
		enc:         enc,
		index:       idx,
		schema:      schema,
		format:      opts.Format,
		blockSize:   opts.BlockSize,
		numSample:   len(opts.Samples),
		pbwtEnabled: opts.PBWT,
	}

	id := opts.UUID
	if id == uuid.Nil {
		id = uuid.New()
	}
	idBinary, err := id.MarshalBinary()
	if err != nil {
		idx.Close()
		return nil, pfx.Err(err)
	}
	var idArr [16]byte
	copy(idArr[:], idBinary)
	if err := idx.SetUUID(idArr); err != nil {
		idx.Close()
		return nil, err
	}

	if err := w.writePreamble(opts, id); err != nil {
		idx.Close()
		return nil, err
	}

	return w, nil
}

func (w *Writer) writePreamble(opts WriterOptions, id uuid.UUID) error {
	if _, err := w.cw.Write(magic[:]); err != nil {
		return err
	}
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return pfx.Err(err)
	}
	if _, err := w.cw.Write(idBytes); err != nil {
		return err
	}

	headers := make([]Header, 0, len(opts.Headers)+2)
	for _, h := range opts.Headers {
		if h.Key == "FORMAT" || h.Key == "PBWT" {
			continue
		}
		headers = append(headers, h)
	}
	headers = append(headers, formatHeader(opts.Format))
	if opts.PBWT {
		headers = append(headers, Header{Key: "PBWT", Val: "1"})
	}

	var buf []byte
	buf = EncodeVarint(buf, uint64(len(headers)))
	for _, h := range headers {
		buf = writeLengthPrefixed(buf, h.Key)
		buf = writeLengthPrefixed(buf, h.Val)
	}
	if _, err := w.cw.Write(buf); err != nil {
		return err
	}

	buf = buf[:0]
	buf = EncodeVarint(buf, uint64(len(opts.Samples)))
	for _, s := range opts.Samples {
		buf = writeLengthPrefixed(buf, s)
	}
	if _, err := w.cw.Write(buf); err != nil {
		return err
	}

	return nil
}

// compressionLevelToEncoderLevel maps the spec's 1-19 zstd compression
// level scale (DOMAIN STACK #1) onto klauspost/compress/zstd's four
// speed/ratio buckets, since the library does not expose per-integer
// zstd levels directly.
func compressionLevelToEncoderLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 6:
		return zstd.SpeedDefault
	case level <= 12:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func formatHeader(f GenotypeFormat) Header {
	if f == FormatDosage {
		return Header{Key: "FORMAT", Val: `<ID=HDS,Description="Haplotype dosages">`}
	}
	return Header{Key: "FORMAT", Val: `<ID=GT,Description="Genotype">`}
}

// WriteRecord encodes one site + dense genotype vector (length
// numSamples*ploidy) and appends it to the current block, flushing a
// prior block first if it is full or the chromosome has changed.
func (w *Writer) WriteRecord(site *Site, ploidy int, genotype []float64) error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return pfx.Err(io.ErrClosedPipe)
	}

	if w.recordsInBlock > 0 {
		full := w.blockSize != 0 && w.recordsInBlock == w.blockSize
		if site.Chrom != w.currentChrom || full {
			if err := w.flush(); err != nil {
				w.err = err
				return err
			}
		}
	}

	if w.recordsInBlock >= blockRecordCeiling {
		w.err = pfx.Err(ErrBlockOverflow)
		return w.err
	}

	if w.recordsInBlock == 0 {
		w.currentChrom = site.Chrom
		w.blockMinPos = site.Pos
		w.blockMaxPos = site.EndPos()
		if w.pbwtEnabled {
			// Fresh permutation chain per block: each block is an
			// independently decompressed unit (C6), so the reader can
			// rebuild the same chain starting from its own block load
			// without needing state from any earlier block.
			w.pbwt = NewPBWTState()
		}
	} else {
		if site.Pos < w.blockMinPos {
			w.blockMinPos = site.Pos
		}
		if end := site.EndPos(); end > w.blockMaxPos {
			w.blockMaxPos = end
		}
	}

	w.blockBuf = EncodeRecord(w.blockBuf, site, w.schema, ploidy, genotype, w.format, w.pbwt)
	w.recordsInBlock++

	if w.blockSize == 0 {
		if err := w.flush(); err != nil {
			w.err = err
			return err
		}
	}

	return nil
}

// flush compresses the current block into one framed envelope
// (varint checksum, varint compressed length, compressed bytes),
// writes it, and emits the corresponding S1R entry. A no-op if the
// block is empty.
func (w *Writer) flush() error {
	if w.recordsInBlock == 0 {
		return nil
	}

	const maxFileOffset = (1 << 48) - 1
	frameOffset := w.cw.off
	if frameOffset > maxFileOffset {
		return pfx.Err(ErrBlockOverflow)
	}

	checksum := xxhash.Sum64(w.blockBuf)
	compressed := w.enc.EncodeAll(w.blockBuf, nil)

	var envelope []byte
	envelope = EncodeVarint(envelope, checksum)
	envelope = EncodeVarint(envelope, uint64(len(compressed)))
	envelope = append(envelope, compressed...)

	if _, err := w.cw.Write(envelope); err != nil {
		return err
	}

	value := (uint64(frameOffset) << 16) | uint64(w.recordsInBlock-1)
	entry := s1r.Entry{MinPos: uint32(w.blockMinPos), MaxPos: uint32(w.blockMaxPos), Value: value}
	if err := w.index.Write(w.currentChrom, entry); err != nil {
		return pfx.Err(err)
	}

	w.blockBuf = w.blockBuf[:0]
	w.recordsInBlock = 0
	w.blockMinPos = 0
	w.blockMaxPos = 0

	return nil
}

// Close flushes any partially-filled block (emitting its final S1R
// entry) and closes the sidecar index. The underlying data stream
// itself is the caller's to close.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.flush(); err != nil {
		w.index.Close()
		return err
	}

	w.enc.Close()
	return w.index.Close()
}
