//go:build !js && !wasm
// +build !js,!wasm

// Command acousticmatch manages a fingerprint catalog from the command line.
//
// Usage:
//
//	acousticmatch [--db path] [--threshold n] <command> [args]
//
// Commands:
//
//	ingest  - bulk-load an echoprint JSON dump
//	query   - match a code string against the catalog
//	decode  - print the codes and times inside a code string
//	encode  - build a code string from JSON codes and times
//	stats   - show catalog size
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch"
	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch/fingerprint"
	"github.com/himanishpuri/acousticmatch/pkg/logger"
	"github.com/spf13/cobra"
)

// Global flags
var (
	dbPath        string
	codeThreshold int
	verbose       bool
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

var rootCmd = &cobra.Command{
	Use:           "acousticmatch",
	Short:         "Fingerprint catalog CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(logger.DEBUG)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("ACOUSTIC_DB_PATH", "acousticmatch.sqlite3"), "Path to the SQLite database file")
	rootCmd.PersistentFlags().IntVar(&codeThreshold, "threshold", fingerprint.DefaultCodeThreshold, "Minimum shared codes before time alignment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(ingestCmd, queryCmd, decodeCmd, encodeCmd, statsCmd)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// createService opens the catalog with the global flags applied.
func createService() (acousticmatch.Service, error) {
	return acousticmatch.NewService(
		acousticmatch.WithDBPath(dbPath),
		acousticmatch.WithCodeThreshold(codeThreshold),
		acousticmatch.WithLogger(logger.GetLogger()),
	)
}

func main() {
	printBanner()

	if err := rootCmd.Execute(); err != nil {
		red.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
    _                        _   _      __  __       _       _
   / \   ___ ___  _   _ ___| |_(_) ___|  \/  | __ _| |_ ___| |__
  / _ \ / __/ _ \| | | / __| __| |/ __| |\/| |/ _' | __/ __| '_ \
 / ___ \ (_| (_) | |_| \__ \ |_| | (__| |  | | (_| | || (__| | | |
/_/   \_\___\___/ \__,_|___/\__|_|\___|_|  |_|\__,_|\__\___|_| |_|

           Fingerprint Catalog CLI Tool
`
	fmt.Fprintln(os.Stderr, banner)
}
