//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch/fingerprint"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

const defaultCodeVersion = "4.12"

var (
	ingestWorkers int
	ingestVersion string
)

// dumpEntry is one track of an echoprint JSON dump.
type dumpEntry struct {
	Code    string
	Version string
	Length  int
	Track   string
	Artist  string
}

// parseDump reads the echoprint codegen/dump format: a JSON array of objects
// with "code" and a "metadata" object holding duration, title, artist and
// optionally version.
func parseDump(data []byte, defaultVersion string) ([]dumpEntry, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("dump is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("dump must be a JSON array")
	}

	var entries []dumpEntry
	for i, item := range root.Array() {
		code := item.Get("code").String()
		if code == "" {
			return nil, fmt.Errorf("entry %d: missing code", i)
		}
		version := item.Get("metadata.version").String()
		if version == "" {
			version = defaultVersion
		}
		entries = append(entries, dumpEntry{
			Code:    code,
			Version: version,
			Length:  int(item.Get("metadata.duration").Float()),
			Track:   item.Get("metadata.title").String(),
			Artist:  item.Get("metadata.artist").String(),
		})
	}
	return entries, nil
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <dump.json>",
	Short: "Bulk-load an echoprint JSON dump",
	Long: `Bulk-load an echoprint JSON dump into the catalog.

Each entry is decoded and ingested with the same deduplication as the
/ingest endpoint. Workers decode in parallel; catalog writes are still
serialized.

Examples:
  acousticmatch ingest echoprint-dump-1.json
  acousticmatch --db catalog.sqlite3 ingest dump.json --workers 8`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read dump: %w", err)
		}
		entries, err := parseDump(data, ingestVersion)
		if err != nil {
			return err
		}

		svc, err := createService()
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		defer svc.Close()

		start := time.Now()
		var created, existing, failed atomic.Int64

		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(ingestWorkers)
		for i, e := range entries {
			g.Go(func() error {
				fp, err := fingerprint.Decode(e.Code)
				if err != nil {
					failed.Add(1)
					yellow.Fprintf(os.Stderr, "skip %d (%s - %s): %v\n", i, e.Artist, e.Track, err)
					return nil
				}
				fp.CodeVersion = e.Version
				fp.LengthSeconds = e.Length
				fp.Track = e.Track
				fp.Artist = e.Artist

				res, err := svc.Ingest(ctx, fp)
				if err != nil {
					failed.Add(1)
					yellow.Fprintf(os.Stderr, "skip %d (%s - %s): %v\n", i, e.Artist, e.Track, err)
					return nil
				}
				if res.Created {
					created.Add(1)
				} else {
					existing.Add(1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		green.Printf("Ingested %s entries in %s: %s new, %s existing, %s failed\n",
			humanize.Comma(int64(len(entries))), time.Since(start).Round(time.Millisecond),
			humanize.Comma(created.Load()), humanize.Comma(existing.Load()), humanize.Comma(failed.Load()))
		if n := failed.Load(); n > 0 {
			return fmt.Errorf("%d entries failed", n)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 4, "Number of entries decoded in parallel")
	ingestCmd.Flags().StringVar(&ingestVersion, "version", defaultCodeVersion, "Code version for entries without metadata.version")
}
