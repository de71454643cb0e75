/*
	Generates a synthetic Oases style dataset tree for testing, and
	optionally fires random lookups at a running server.
*/

package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/0xRadioAc7iv/go-seqcask/seqcask"
)

const (
	concurrency = 6

	aminoAcids  = "ACDEFGHIKLMNPQRSTVWY"
	nucleotides = "ACGU"
	lineWidth   = 60

	progressEvery = 500
)

func main() {
	root := flag.String("root", "./k39", "Dataset root to generate")
	dataset := flag.String("dataset", "k39", "Dataset label used for lookups")
	samples := flag.Int("samples", 20, "Number of samples")
	loci := flag.Int("loci", 200, "Loci per sample")
	lookups := flag.Int("lookups", 0, "Lookups per worker against a running server (0 = generate only)")
	flag.Parse()

	start := time.Now()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	codes := makeSampleCodes(rng, *samples)
	for _, code := range codes {
		if err := writeSample(rng, *root, code, *loci); err != nil {
			fmt.Println("generate error:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("Generated %d samples under %s in %v\n", len(codes), *root, time.Since(start))

	if *lookups == 0 {
		return
	}

	start = time.Now()
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(id, *dataset, codes, *loci, *lookups)
		}(i)
	}

	wg.Wait()
	fmt.Printf("Lookups finished in %v\n", time.Since(start))
}

func runWorker(id int, dataset string, codes []string, loci, lookups int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	client, err := seqcask.Connect()
	if err != nil {
		fmt.Printf("[worker %d] connect error: %v\n", id, err)
		return
	}
	defer client.Close()

	for n := 1; n <= lookups; n++ {
		code := codes[rng.Intn(len(codes))]
		locus := rng.Intn(loci) + 1

		// full protein id, then a locus prefix over both kinds
		seqID := fmt.Sprintf("%s_%s_1", code, transcriptID(locus))
		if _, err := client.Get(dataset, seqcask.Protein, seqID); err != nil {
			fmt.Printf("[worker %d] GET %s error: %v\n", id, seqID, err)
			return
		}

		prefix := fmt.Sprintf("%s_Locus_%d", code, locus)
		if _, err := client.All(dataset, prefix); err != nil && !errors.Is(err, seqcask.ErrNotFound) {
			fmt.Printf("[worker %d] ALL %s error: %v\n", id, prefix, err)
			return
		}

		if n%progressEvery == 0 {
			fmt.Printf("[worker %d] completed %d lookups\n", id, n)
		}
	}
}

func makeSampleCodes(rng *rand.Rand, n int) []string {
	seen := make(map[string]bool)
	codes := make([]string, 0, n)
	for len(codes) < n {
		b := make([]byte, 4)
		for i := range b {
			b[i] = byte('A' + rng.Intn(26))
		}
		if code := string(b); !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}

func transcriptID(locus int) string {
	return fmt.Sprintf("Locus_%d_Transcript_1/1_Confidence_1.000_Length_%d", locus, 300+locus)
}

// writeSample writes <root>/proteomes/<code>.fa and
// <root>/transcriptomes/<code>.fa with one transcript and one ORF per locus.
func writeSample(rng *rand.Rand, root, code string, loci int) error {
	files := []struct {
		dir      string
		alphabet string
		suffix   string
	}{
		{"proteomes", aminoAcids, "_1"},
		{"transcriptomes", nucleotides, ""},
	}

	for _, f := range files {
		if err := os.MkdirAll(filepath.Join(root, f.dir), 0o755); err != nil {
			return err
		}
		out, err := os.Create(filepath.Join(root, f.dir, code+".fa"))
		if err != nil {
			return err
		}
		w := bufio.NewWriter(out)
		for locus := 1; locus <= loci; locus++ {
			fmt.Fprintf(w, ">%s%s\n", transcriptID(locus), f.suffix)
			seq := randomSequence(rng, f.alphabet, 50+rng.Intn(200))
			for len(seq) > lineWidth {
				fmt.Fprintln(w, seq[:lineWidth])
				seq = seq[lineWidth:]
			}
			fmt.Fprintln(w, seq)
		}
		if err := w.Flush(); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
	}
	return nil
}

func randomSequence(rng *rand.Rand, alphabet string, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[rng.Intn(len(alphabet))])
	}
	return b.String()
}
