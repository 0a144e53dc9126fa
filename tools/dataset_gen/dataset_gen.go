package main

// dataset_gen.go is a tiny helper utility to generate deterministic
// selector-name datasets for standalone load-testing of objrt (outside
// `go test`).  It emits newline-separated selector names which can later
// be replayed against the registry by external benchmarking suites.
//
// Usage:
//   go run ./tools/dataset_gen -n 1000000 -dist=zipf -seed=42 -out sels.txt
//
// Flags:
//   -n       number of selector names to generate (default 1e6)
//   -uniq    size of the distinct-name universe (default 65536)
//   -dist    distribution: "uniform" or "zipf" (default uniform)
//   -zipfs   Zipf s parameter (>1)  (default 1.2)
//   -zipfv   Zipf v parameter (≥1)  (default 1.0)
//   -seed    RNG seed (default current time)
//   -out     output file (default stdout)
//
// The program is *embarassingly simple* but placed under version control so
// that any contributor can regenerate the exact dataset used in
// performance-regression hunting.
//
// © 2025 objrt authors. MIT License.

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
)

func main() {
	var (
		n       = flag.Int("n", 1_000_000, "number of selector names to generate")
		uniq    = flag.Int("uniq", 65536, "size of the distinct-name universe")
		dist    = flag.String("dist", "uniform", "distribution: uniform or zipf")
		zipfS   = flag.Float64("zipfs", 1.2, "zipf s parameter (>1)")
		zipfV   = flag.Float64("zipfv", 1.0, "zipf v parameter (>=1)")
		seedVal = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	rnd := rand.New(rand.NewSource(*seedVal))

	var gen func() uint64
	switch *dist {
	case "uniform":
		gen = func() uint64 { return uint64(rnd.Intn(*uniq)) }
	case "zipf":
		z := rand.NewZipf(rnd, *zipfS, *zipfV, uint64(*uniq-1))
		gen = z.Uint64
	default:
		fmt.Fprintf(os.Stderr, "unknown distribution %q\n", *dist)
		os.Exit(1)
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	w := bufio.NewWriter(out)
	defer w.Flush()
	for i := 0; i < *n; i++ {
		fmt.Fprintf(w, "doWork%dwith:reply:\n", gen())
	}
}
