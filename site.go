package sav

// Site is the per-record non-genotype metadata, per spec.md §3/§4.4:
// chromosome, 1-based position, reference and alternate alleles, and
// an ordered INFO map whose keys are exactly the writer's declared
// INFO field list, in declaration order.
type Site struct {
	Chrom string
	Pos   uint64
	Ref   string
	Alt   string

	// Info holds one value per declared INFO key, in InfoSchema.Keys order.
	// A key with no value for this site is the empty string.
	Info []string
}

// maxAlleleLen returns max(len(Ref), len(Alt)), used throughout for
// the site's reference span.
func (s *Site) maxAlleleLen() int {
	if len(s.Ref) >= len(s.Alt) {
		return len(s.Ref)
	}
	return len(s.Alt)
}

// EndPos returns pos + max(|ref|, |alt|) - 1, the inclusive end of the
// site's reference span (spec.md §3, Block bounds; §4.8 bounding
// policies).
func (s *Site) EndPos() uint64 {
	span := uint64(s.maxAlleleLen())
	if span == 0 {
		return s.Pos
	}
	return s.Pos + span - 1
}

// IDQualFilterKeys are the synthetic INFO keys the merge layer
// promotes, per spec.md §3 ("The merge layer additionally promotes
// ID, QUAL, FILTER to synthetic INFO keys") and
// original_source/src/sav/merge.cpp's header-union handling.
var IDQualFilterKeys = []string{"ID", "QUAL", "FILTER"}

// InfoSchema is the writer-declared, ordered list of INFO field names
// that every Site's Info slice is indexed against.
type InfoSchema struct {
	Keys []string
}

// IndexOf returns the position of key within the schema, or -1.
func (sc *InfoSchema) IndexOf(key string) int {
	for i, k := range sc.Keys {
		if k == key {
			return i
		}
	}
	return -1
}

// WithPromotedKeys returns a new schema that starts with
// IDQualFilterKeys, followed by sc's remaining keys in order (a
// promoted key already in sc appears once, at the front). It is meant
// for building a merge output schema.
func (sc *InfoSchema) WithPromotedKeys() *InfoSchema {
	out := &InfoSchema{}
	seen := make(map[string]bool, len(sc.Keys)+3)
	for _, k := range IDQualFilterKeys {
		out.Keys = append(out.Keys, k)
		seen[k] = true
	}
	for _, k := range sc.Keys {
		if !seen[k] {
			out.Keys = append(out.Keys, k)
			seen[k] = true
		}
	}
	return out
}

// UnionSchema returns the union of INFO declarations across schemas,
// in first-seen order, per spec.md §4.9 (merge engine: "output headers
// are the union of INFO declarations by id").
func UnionSchema(schemas ...*InfoSchema) *InfoSchema {
	out := &InfoSchema{}
	seen := make(map[string]bool)
	for _, sc := range schemas {
		if sc == nil {
			continue
		}
		for _, k := range sc.Keys {
			if !seen[k] {
				out.Keys = append(out.Keys, k)
				seen[k] = true
			}
		}
	}
	return out
}
