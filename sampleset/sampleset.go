// Package sampleset loads a sample id subset from an inline list or a
// file, for the "sample id set (inline or from file)" CLI option
// spec.md §6 names as an external-collaborator concern distinct from
// flag parsing itself. Grounded on the teacher's indirect dependency
// on github.com/csimplestring/go-csv (go.mod), otherwise unused by any
// kept teacher file.
package sampleset

import (
	"os"
	"strings"

	"github.com/carbocation/pfx"
	csv "github.com/csimplestring/go-csv"
)

// FromInline splits a comma-separated inline sample list.
func FromInline(s string) []string {
	fields := strings.Split(s, ",")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// LoadFromFile reads one sample id per row from a CSV file, taking the
// first column of each row and ignoring blank rows.
func LoadFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(row[0])
		if id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}
