package models

import (
	"sort"
	"time"
)

// MatchStatus classifies the outcome of a query.
type MatchStatus string

const (
	StatusNoResults                   MatchStatus = "NO_RESULTS"
	StatusNoResultsHistogramDecreased MatchStatus = "NO_RESULTS_HISTOGRAM_DECREASED"
	StatusMultipleBadHistogramMatch   MatchStatus = "MULTIPLE_BAD_HISTOGRAM_MATCH"
	StatusSingleBadMatch              MatchStatus = "SINGLE_BAD_MATCH"
	StatusSingleGoodMatch             MatchStatus = "SINGLE_GOOD_MATCH_HISTOGRAM_DECREASED"
	StatusMultipleGoodMatch           MatchStatus = "MULTIPLE_GOOD_MATCH_HISTOGRAM_DECREASED"
)

// Candidate is a catalog track's raw code overlap with a query.
type Candidate struct {
	TrackID  string
	RawScore int      // number of the track's code rows whose code appears in the query
	Codes    []uint32 // matched codes, parallel to Times
	Times    []uint32
}

// Histogram counts query/candidate time deltas (in slop-bucketed frames).
type Histogram map[int]int

// Bucket is a single histogram entry.
type Bucket struct {
	Delta int
	Count int
}

// Top returns up to n buckets ordered by count descending. Equal counts are
// ordered by the smaller delta first.
func (h Histogram) Top(n int) []Bucket {
	buckets := make([]Bucket, 0, len(h))
	for delta, count := range h {
		buckets = append(buckets, Bucket{Delta: delta, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Delta < buckets[j].Delta
	})
	if n >= 0 && len(buckets) > n {
		buckets = buckets[:n]
	}
	return buckets
}

// ScoredCandidate is a Candidate after time-offset alignment.
type ScoredCandidate struct {
	Candidate
	Histogram    Histogram
	CodeTimes    map[uint32][]uint32 // candidate code -> slop-bucketed times
	AlignedScore int
}

// Match is a scored candidate with catalog metadata attached.
type Match struct {
	ScoredCandidate
	TrackName     string
	ArtistID      string
	ArtistName    string
	LengthSeconds int
	ImportDate    time.Time
}

// MatchResult is the classified outcome of a query. Match is set only when Success is true.
type MatchResult struct {
	Success bool
	Status  MatchStatus
	Match   *Match
}
