//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch/fingerprint"
	"github.com/himanishpuri/acousticmatch/pkg/models"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var queryVersion string

// codeJSON is the decoded form printed by decode and read by encode.
type codeJSON struct {
	Codes []uint32 `json:"codes"`
	Times []uint32 `json:"times"`
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var queryCmd = &cobra.Command{
	Use:   "query <code>",
	Short: "Match a code string against the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fp, err := fingerprint.Decode(args[0])
		if err != nil {
			return err
		}
		fp.CodeVersion = queryVersion

		svc, err := createService()
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		defer svc.Close()

		result, err := svc.Query(context.Background(), fp)
		if err != nil {
			return err
		}
		if result.Success {
			green.Fprintf(os.Stderr, "Match: %s - %s (%s)\n", result.Match.ArtistName, result.Match.TrackName, result.Status)
		} else {
			yellow.Fprintf(os.Stderr, "No match (%s)\n", result.Status)
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <code>",
	Short: "Print the codes and times inside a code string",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fp, err := fingerprint.Decode(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s codes\n", humanize.Comma(int64(fp.Len())))
		return printJSON(cmd.OutOrStdout(), codeJSON{Codes: fp.Codes, Times: fp.Times})
	},
}

var encodeCmd = &cobra.Command{
	Use:   "encode [file.json]",
	Short: "Build a code string from JSON codes and times",
	Long: `Build a code string from a JSON object {"codes": [...], "times": [...]}
read from a file or standard input.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if len(args) == 1 {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		fp, err := parseCodeJSON(data)
		if err != nil {
			return err
		}
		code, err := fingerprint.Encode(fp)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), code)
		return nil
	},
}

// parseCodeJSON reads {"codes": [...], "times": [...]}.
func parseCodeJSON(data []byte) (models.Fingerprint, error) {
	var fp models.Fingerprint
	if !gjson.ValidBytes(data) {
		return fp, fmt.Errorf("input is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	for _, v := range root.Get("codes").Array() {
		fp.Codes = append(fp.Codes, uint32(v.Uint()))
	}
	for _, v := range root.Get("times").Array() {
		fp.Times = append(fp.Times, uint32(v.Uint()))
	}
	if len(fp.Codes) != len(fp.Times) {
		return fp, fmt.Errorf("codes and times differ in length: %d != %d", len(fp.Codes), len(fp.Times))
	}
	return fp, nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := createService()
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		defer svc.Close()

		stats, err := svc.Stats(context.Background())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Database: %s\n", dbPath)
		fmt.Fprintf(out, "Tracks:   %s\n", humanize.Comma(stats.Tracks))
		fmt.Fprintf(out, "Artists:  %s\n", humanize.Comma(stats.Artists))
		fmt.Fprintf(out, "Codes:    %s\n", humanize.Comma(stats.Codes))
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryVersion, "version", defaultCodeVersion, "Code version of the query")
}
