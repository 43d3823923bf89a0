// Package s1r implements the contract-level S1R interval index: per
// chromosome, a set of (min_pos, max_pos, value) entries supporting
// region-overlap queries in file-offset order, per spec.md §4.7.
//
// The on-disk layout is intentionally a plain SQLite table rather than
// a bespoke interval tree; spec.md leaves the tree layout external to
// the format, so this package only needs to honor the query contract.
// Adapted from carbocation-bgen's BGI reader (variantindex.go and its
// cgo/non-cgo driver split), generalized into a read-write index.
package s1r

import (
	"database/sql"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"
)

// Entry is one block-level index record, per spec.md §3 ("S1R entry").
type Entry struct {
	MinPos uint32
	MaxPos uint32
	Value  uint64
}

// Region is an inclusive-bounds query, per spec.md §4.7.
type Region struct {
	Chrom string
	Beg   uint32
	End   uint32
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	chrom   TEXT    NOT NULL,
	min_pos INTEGER NOT NULL,
	max_pos INTEGER NOT NULL,
	value   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_chrom_minmax ON entries(chrom, min_pos, max_pos);
CREATE TABLE IF NOT EXISTS meta (
	uuid BLOB NOT NULL
);
`

func connect(path string) (*sqlx.DB, error) {
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	db, err := sqlx.Connect(driverName, path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	if err := tunePragmas(db); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}
	return db, nil
}

// Writer appends entries under a chromosome name, per the block
// writer's flush-time contract.
type Writer struct {
	db *sqlx.DB
}

// Create opens (creating if necessary) the sidecar index file at path
// and ensures its schema exists.
func Create(path string) (*Writer, error) {
	db, err := connect(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}
	return &Writer{db: db}, nil
}

// Write appends one entry under chrom. Entries for a given chromosome
// MUST arrive in non-decreasing MinPos order; the block writer (C6)
// guarantees this by construction, so it is not re-validated here.
func (w *Writer) Write(chrom string, e Entry) error {
	_, err := w.db.Exec(
		`INSERT INTO entries (chrom, min_pos, max_pos, value) VALUES (?, ?, ?, ?)`,
		chrom, e.MinPos, e.MaxPos, int64(e.Value),
	)
	if err != nil {
		return pfx.Err(err)
	}
	return nil
}

// SetUUID records the data file's UUID in the sidecar, for the reader
// side's link-the-sidecar-to-its-data-file check (spec.md §9).
func (w *Writer) SetUUID(id [16]byte) error {
	if _, err := w.db.Exec(`DELETE FROM meta`); err != nil {
		return pfx.Err(err)
	}
	if _, err := w.db.Exec(`INSERT INTO meta (uuid) VALUES (?)`, id[:]); err != nil {
		return pfx.Err(err)
	}
	return nil
}

// Close flushes and closes the sidecar file.
func (w *Writer) Close() error {
	return w.db.Close()
}

// Reader serves region queries against an existing sidecar index.
type Reader struct {
	db *sqlx.DB
}

// Open opens an existing sidecar index file for querying.
func Open(path string) (*Reader, error) {
	db, err := connect(path)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db}, nil
}

// TreeNames returns the distinct chromosome names present in the
// index.
func (r *Reader) TreeNames() ([]string, error) {
	var names []string
	if err := r.db.Select(&names, `SELECT DISTINCT chrom FROM entries ORDER BY chrom`); err != nil {
		return nil, pfx.Err(err)
	}
	return names, nil
}

// entryRow mirrors the entries table for sqlx scanning; value is
// stored as a signed 64-bit column and reinterpreted as unsigned on
// read (SQLite has no native uint64 column type).
type entryRow struct {
	MinPos uint32 `db:"min_pos"`
	MaxPos uint32 `db:"max_pos"`
	Value  int64  `db:"value"`
}

// CreateQuery returns all entries overlapping region, in file-offset
// order (value embeds the frame offset in its high bits, so ordering
// by value ascending is equivalent to ordering by file offset).
func (r *Reader) CreateQuery(region Region) ([]Entry, error) {
	var rows []entryRow
	err := r.db.Select(&rows, `
		SELECT min_pos, max_pos, value FROM entries
		WHERE chrom = ? AND min_pos <= ? AND max_pos >= ?
		ORDER BY value ASC
	`, region.Chrom, region.End, region.Beg)
	if err != nil {
		return nil, pfx.Err(err)
	}
	out := make([]Entry, len(rows))
	for i, r := range rows {
		out[i] = Entry{MinPos: r.MinPos, MaxPos: r.MaxPos, Value: uint64(r.Value)}
	}
	return out, nil
}

// UUID returns the data file UUID recorded in the sidecar, and false
// if the meta table holds no row. A sidecar without a meta table
// yields an error.
func (r *Reader) UUID() ([16]byte, bool, error) {
	var raw []byte
	err := r.db.Get(&raw, `SELECT uuid FROM meta LIMIT 1`)
	if err == sql.ErrNoRows {
		return [16]byte{}, false, nil
	}
	if err != nil {
		return [16]byte{}, false, pfx.Err(err)
	}
	var id [16]byte
	copy(id[:], raw)
	return id, true, nil
}

// Close closes the sidecar file.
func (r *Reader) Close() error {
	return r.db.Close()
}
