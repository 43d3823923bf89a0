package sav

import (
	"io"

	"github.com/carbocation/pfx"
)

// MergeInput is one input file to the merge engine: its reader, its
// own (pre-union) INFO schema, and its declared sample list (used to
// compute this input's concatenation offset and span in the merged
// output), per spec.md §4.9.
type MergeInput struct {
	Reader  *LinearReader
	Schema  *InfoSchema
	Samples []string
}

// mergeCursor holds one input's current (not-yet-consumed) record.
type mergeCursor struct {
	input      *MergeInput
	site       *Site
	genotype   []float64
	ploidy     int
	numSamples int
	done       bool
}

func (c *mergeCursor) advance() error {
	site, genotype, ploidy, err := c.input.Reader.Read()
	if err == io.EOF {
		c.done = true
		c.site = nil
		return nil
	}
	if err != nil {
		return err
	}
	c.site = site
	c.genotype = genotype
	c.ploidy = ploidy
	return nil
}

// Merge performs a k-way positional merge over inputs, writing one
// output record per distinct (pos, ref, alt) encountered, into w. The
// output sample list must already be the concatenation of each
// input's sample list in argument order (callers build that and the
// union schema up front via UnionSchema/WithPromotedKeys, then
// construct w with it), per spec.md §4.9.
func Merge(inputs []*MergeInput, unionSchema *InfoSchema, ploidy int, w *Writer) error {
	cursors := make([]*mergeCursor, len(inputs))
	sampleOffset := make([]int, len(inputs))
	totalSamples := 0
	for i, in := range inputs {
		cursors[i] = &mergeCursor{input: in, numSamples: len(in.Samples)}
		sampleOffset[i] = totalSamples
		totalSamples += len(in.Samples)
		if err := cursors[i].advance(); err != nil {
			return err
		}
	}

	for {
		minIdx := -1
		for i, c := range cursors {
			if c.done {
				continue
			}
			if minIdx == -1 || c.site.Pos < cursors[minIdx].site.Pos {
				minIdx = i
			}
		}
		if minIdx == -1 {
			break
		}
		key := cursors[minIdx].site

		matched := make([]int, 0, len(cursors))
		for i, c := range cursors {
			if c.done || c.site.Pos != key.Pos {
				continue
			}
			if c.site.Ref == key.Ref && c.site.Alt == key.Alt {
				matched = append(matched, i)
			}
		}

		out := make([]float64, totalSamples*ploidy)
		for _, i := range matched {
			c := cursors[i]
			if c.ploidy != ploidy {
				return pfx.Err(ErrSampleCountMismatch)
			}
			copy(out[sampleOffset[i]*ploidy:], c.genotype)
		}

		mergedSite := &Site{
			Chrom: key.Chrom,
			Pos:   key.Pos,
			Ref:   key.Ref,
			Alt:   key.Alt,
			Info:  mergeInfo(cursors[matched[0]], unionSchema),
		}

		if err := w.WriteRecord(mergedSite, ploidy, out); err != nil {
			return err
		}

		for _, i := range matched {
			if err := cursors[i].advance(); err != nil {
				return err
			}
		}
	}

	return nil
}

// mergeInfo projects the winning (first-matched) input's INFO values
// onto the union schema's key order; keys the winning input did not
// declare stay empty.
func mergeInfo(c *mergeCursor, unionSchema *InfoSchema) []string {
	out := make([]string, len(unionSchema.Keys))
	if c.input.Schema == nil {
		return out
	}
	for i, key := range unionSchema.Keys {
		if j := c.input.Schema.IndexOf(key); j >= 0 && j < len(c.site.Info) {
			out[i] = c.site.Info[j]
		}
	}
	return out
}
