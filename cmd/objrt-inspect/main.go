package main

// main.go implements the objrt inspector CLI: it parses command-line
// flags, fetches diagnostic data from a target process exposing the objrt
// debug endpoint, and prints it either as pretty text or JSON.  It also
// supports periodic watch mode and pprof snapshot download.
//
// The target Go service is expected to expose:
//   • GET /debug/objrt/snapshot        – JSON payload with runtime statistics.
//   • GET /debug/pprof/{heap,goroutine} – standard pprof handlers (net/http/pprof).
//
// The snapshot object is intentionally generic; we decode into
// map[string]any to avoid version skew between CLI and library.
//
// Build-time flag: `-ldflags "-X main.version=vX.Y.Z"` is set by GoReleaser.
// ---------------------------------------------------------------
// © 2025 objrt authors. MIT License.

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
)

var version = "dev"

type options struct {
	target           string
	json             bool
	watch            bool
	interval         time.Duration
	version          bool
	heapProfile      string
	goroutineProfile string
}

func parseFlags() *options {
	opts := &options{}
	flag.StringVar(&opts.target, "target", "http://localhost:6060", "base URL of the target process")
	flag.BoolVar(&opts.json, "json", false, "emit raw JSON instead of pretty text")
	flag.BoolVar(&opts.watch, "watch", false, "refresh periodically until interrupted")
	flag.DurationVar(&opts.interval, "interval", 2*time.Second, "watch refresh interval")
	flag.BoolVar(&opts.version, "version", false, "print version and exit")
	flag.StringVar(&opts.heapProfile, "heap", "", "download heap profile to the given path")
	flag.StringVar(&opts.goroutineProfile, "goroutine", "", "download goroutine profile to the given path")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()

	if opts.version {
		fmt.Println(version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful exit.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	// pprof dump takes precedence over watch/json.
	if opts.heapProfile != "" {
		if err := downloadProfile(ctx, opts.target, "heap", opts.heapProfile); err != nil {
			fatal(err)
		}
		return
	}
	if opts.goroutineProfile != "" {
		if err := downloadProfile(ctx, opts.target, "goroutine", opts.goroutineProfile); err != nil {
			fatal(err)
		}
		return
	}

	if opts.watch {
		ticker := time.NewTicker(opts.interval)
		defer ticker.Stop()
		for {
			if err := dumpOnce(ctx, opts); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			select {
			case <-ticker.C:
				continue
			case <-ctx.Done():
				return
			}
		}
	}

	// one-shot
	if err := dumpOnce(ctx, opts); err != nil {
		fatal(err)
	}
}

/* -------------------------------------------------------------------------
   Helpers
   ------------------------------------------------------------------------- */

func dumpOnce(ctx context.Context, opts *options) error {
	snap, err := fetchSnapshot(ctx, opts.target)
	if err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return prettyPrint(snap)
}

func fetchSnapshot(ctx context.Context, base string) (map[string]any, error) {
	url := base + "/debug/objrt/snapshot"
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}
	var data map[string]any
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func prettyPrint(data map[string]any) error {
	fmt.Printf("Classes:            %v\n", data["classes"])
	fmt.Printf("Selectors:          %v\n", data["selectors"])
	fmt.Printf("Interned strings:   %v\n", data["interned_strings"])
	fmt.Printf("Forwarded targets:  %v\n", data["forwarded_targets"])
	fmt.Printf("Arena chunks:       %v\n", data["arena_chunks"])
	fmt.Printf("Arena capacity:     %s\n", humanize.IBytes(toUint64(data["arena_capacity_bytes"])))
	fmt.Printf("Arena used:         %s\n", humanize.IBytes(toUint64(data["arena_used_bytes"])))
	return nil
}

func toUint64(v any) uint64 {
	switch t := v.(type) {
	case float64:
		return uint64(t)
	case int64:
		return uint64(t)
	case json.Number:
		n, _ := t.Int64()
		return uint64(n)
	default:
		return 0
	}
}

func downloadProfile(ctx context.Context, base, name, path string) error {
	url := fmt.Sprintf("%s/debug/pprof/%s", base, name)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", res.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, res.Body)
	if err != nil {
		return err
	}
	fmt.Printf("%s profile saved to %s\n", name, path)
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "objrt-inspect:", err)
	os.Exit(1)
}
