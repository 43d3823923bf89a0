// savtool is a small demonstration of the sav library: it writes a
// handful of records to a new file, then reads them back and logs
// them. It is not the CLI frontend spec.md §6 describes (flag
// parsing, subcommands, and ingestion from VCF/BCF are explicitly out
// of scope); it exists to exercise the library the way
// carbocation-bgen's example/limix/example.go exercises bgen.
package main

import (
	"flag"
	"log"
	"math"
	"os"

	"github.com/carbocation/pfx"

	sav "github.com/statgen/libvc"
)

func main() {
	path := flag.String("filename", "example.sav", "Path of the sav file to write and then read back")
	flag.Parse()

	if err := demo(*path); err != nil {
		log.Fatalln(pfx.Err(err))
	}
}

func demo(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	samples := []string{"sampleA", "sampleB", "sampleC", "sampleD"}
	schema := &sav.InfoSchema{Keys: []string{"AF"}}

	w, err := sav.NewWriter(f, path+".s1r", sav.WriterOptions{
		Format:           sav.FormatAllele,
		Samples:          samples,
		Schema:           schema,
		BlockSize:        2048,
		CompressionLevel: 3,
	})
	if err != nil {
		return err
	}

	site1 := &sav.Site{Chrom: "1", Pos: 100, Ref: "A", Alt: "C", Info: []string{"0.25"}}
	vec1 := []float64{0, 1, 0, 0, 1, 1, 0, 0}
	if err := w.WriteRecord(site1, 2, vec1); err != nil {
		return err
	}

	site2 := &sav.Site{Chrom: "1", Pos: 200, Ref: "G", Alt: "T", Info: []string{"0.5"}}
	vec2 := []float64{0, 0, 0, 0, 0, 0, 0, math.NaN()}
	if err := w.WriteRecord(site2, 2, vec2); err != nil {
		return err
	}

	if err := w.Close(); err != nil {
		return err
	}

	rf, err := os.Open(path)
	if err != nil {
		return err
	}
	defer rf.Close()

	lr, pre, err := sav.NewLinearReader(rf, schema)
	if err != nil {
		return err
	}
	defer lr.Close()

	log.Printf("opened %s: format=%v samples=%v", path, pre.Format, pre.Samples)

	for {
		site, genotype, ploidy, err := lr.Read()
		if err != nil {
			break
		}
		log.Printf("%s:%d %s>%s ploidy=%d genotype=%v", site.Chrom, site.Pos, site.Ref, site.Alt, ploidy, genotype)
	}

	return nil
}
