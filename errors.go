package sav

import "errors"

// Error kinds, per spec.md §7.
var (
	// ErrTruncated indicates an unexpected EOF mid-record or mid-varint.
	ErrTruncated = errors.New("sav: truncated stream")

	// ErrMalformedHeader indicates a missing magic, missing FORMAT, or
	// unrecognized FORMAT header.
	ErrMalformedHeader = errors.New("sav: malformed header")

	// ErrBadWidth indicates a value type code outside 1..8 or an
	// offset width code outside 0..4.
	ErrBadWidth = errors.New("sav: bad width code")

	// ErrBlockOverflow indicates an attempt to write more than 65,536
	// records into a single block, or a file offset beyond 2^48-1.
	ErrBlockOverflow = errors.New("sav: block overflow")

	// ErrSampleCountMismatch indicates a genotype payload length that is
	// not a multiple of the declared sample count.
	ErrSampleCountMismatch = errors.New("sav: sample count mismatch")

	// ErrIndexMissing indicates a region query against a file opened
	// without an index sidecar.
	ErrIndexMissing = errors.New("sav: index missing")

	// ErrUUIDMismatch indicates the .s1r sidecar's UUID does not match
	// the data file's preamble UUID (see DESIGN.md, Open Questions).
	ErrUUIDMismatch = errors.New("sav: sidecar UUID does not match data file")
)
