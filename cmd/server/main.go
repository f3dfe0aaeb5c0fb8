//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch"
	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch/fingerprint"
	"github.com/himanishpuri/acousticmatch/pkg/logger"
	"github.com/joho/godotenv"
)

var (
	port           int
	dbPath         string
	codeThreshold  int
	timeout        time.Duration
	logLevel       string
	logFile        string
	allowedOrigins string
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func parseFlags() {
	flag.IntVar(&port, "port", getEnvInt("ACOUSTIC_PORT", 37760), "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("ACOUSTIC_DB_PATH", "acousticmatch.sqlite3"), "Path to SQLite database")
	flag.IntVar(&codeThreshold, "threshold", getEnvInt("ACOUSTIC_CODE_THRESHOLD", fingerprint.DefaultCodeThreshold), "Minimum shared codes before time alignment")
	flag.DurationVar(&timeout, "timeout", getEnvDuration("ACOUSTIC_TIMEOUT", time.Minute), "Per-request response timeout")
	flag.StringVar(&logLevel, "log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	flag.StringVar(&logFile, "log-file", os.Getenv("ACOUSTIC_LOG_FILE"), "Also append logs to this file")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.Parse()
}

func main() {
	// a missing .env is fine; real environment variables still apply
	_ = godotenv.Load()
	parseFlags()

	log := logger.GetLogger()
	if level, ok := logger.ParseLevel(logLevel); ok {
		log.SetLevel(level)
	} else {
		log.Warnf("Unknown log level %q, using info", logLevel)
	}
	if logFile != "" {
		if err := log.AddFile(logFile); err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer log.Close()
	}

	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	service, err := acousticmatch.NewService(
		acousticmatch.WithDBPath(dbPath),
		acousticmatch.WithCodeThreshold(codeThreshold),
		acousticmatch.WithLogger(log),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		Timeout:        timeout,
		AllowedOrigins: origins,
	}, log)
	if err := server.Start(); err != nil {
		log.Errorf("Server failed: %v", err)
		os.Exit(1)
	}
}
