package acousticmatch

import "github.com/himanishpuri/acousticmatch/pkg/acousticmatch/fingerprint"

// DefaultMaxCandidates is the number of tracks retrieved per query.
const DefaultMaxCandidates = 30

type Config struct {
	DBPath          string
	CodeThreshold   int
	MaxQuerySeconds float64
	MaxCandidates   int
	Logger          Logger
	Storage         Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

// WithCodeThreshold sets the minimum raw overlap a candidate needs before
// time alignment is attempted.
func WithCodeThreshold(threshold int) Option {
	return func(c *Config) {
		c.CodeThreshold = threshold
	}
}

// WithMaxQuerySeconds sets how much of a query fingerprint is matched.
func WithMaxQuerySeconds(seconds float64) Option {
	return func(c *Config) {
		c.MaxQuerySeconds = seconds
	}
}

func WithMaxCandidates(n int) Option {
	return func(c *Config) {
		c.MaxCandidates = n
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:          "acousticmatch.sqlite3",
		CodeThreshold:   fingerprint.DefaultCodeThreshold,
		MaxQuerySeconds: fingerprint.DefaultQuerySeconds,
		MaxCandidates:   DefaultMaxCandidates,
		Logger:          nil,
	}
}
