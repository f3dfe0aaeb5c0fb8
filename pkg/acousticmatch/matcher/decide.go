// Package matcher turns retrieved candidates into a single classified match.
package matcher

import (
	"sort"

	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch/fingerprint"
	"github.com/himanishpuri/acousticmatch/pkg/models"
)

// Params are the tunables of the decision policy.
type Params struct {
	CodeThreshold int // minimum raw overlap before alignment is attempted
	Slop          int // time quantization in frames
}

// DefaultParams returns the production thresholds.
func DefaultParams() Params {
	return Params{
		CodeThreshold: fingerprint.DefaultCodeThreshold,
		Slop:          fingerprint.MatchSlop,
	}
}

// Decision is the outcome of Decide. Winner is set only for accepting statuses;
// Ranked holds every candidate that survived alignment, best first.
type Decision struct {
	Status models.MatchStatus
	Winner *models.ScoredCandidate
	Ranked []models.ScoredCandidate
}

// Accepted reports whether the decision selected a winner.
func (d Decision) Accepted() bool { return d.Winner != nil }

// Decide applies the staged acceptance rules to candidates retrieved for query.
// The first rule that fires determines the status.
func Decide(query models.Fingerprint, candidates []models.Candidate, p Params) Decision {
	if len(candidates) == 0 {
		return Decision{Status: models.StatusNoResults}
	}

	raw := append([]models.Candidate(nil), candidates...)
	sort.SliceStable(raw, func(i, j int) bool { return raw[i].RawScore > raw[j].RawScore })

	n := query.Len()
	origTop := raw[0].RawScore
	if float64(origTop) < fingerprint.MinScore(n) {
		return Decision{Status: models.StatusMultipleBadHistogramMatch}
	}

	ranked := fingerprint.ScoreAll(query, raw, p.CodeThreshold, p.Slop)
	if len(ranked) == 0 {
		return Decision{Status: models.StatusNoResultsHistogramDecreased}
	}
	Rank(ranked)

	status, ok := Classify(n, origTop, ranked)
	d := Decision{Status: status, Ranked: ranked}
	if ok {
		d.Winner = &ranked[0]
	}
	return d
}

// Rank orders scored candidates by aligned score, then raw score, then track ID.
func Rank(scored []models.ScoredCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.AlignedScore != b.AlignedScore {
			return a.AlignedScore > b.AlignedScore
		}
		if a.RawScore != b.RawScore {
			return a.RawScore > b.RawScore
		}
		return a.TrackID < b.TrackID
	})
}

// Classify decides between the ranked survivors of alignment. queryLen is the
// number of query codes and origTop the best raw score before alignment.
// ranked must be non-empty and sorted by aligned score descending.
func Classify(queryLen, origTop int, ranked []models.ScoredCandidate) (models.MatchStatus, bool) {
	top := ranked[0].AlignedScore

	if len(ranked) == 1 {
		if queryLen > 0 && float64(top)/float64(queryLen) >= fingerprint.MinMatchPercent {
			return models.StatusSingleGoodMatch, true
		}
		return models.StatusSingleBadMatch, false
	}

	second := ranked[1].AlignedScore
	switch {
	case float64(top) < fingerprint.MinScore(queryLen):
		return models.StatusMultipleBadHistogramMatch, false
	case 2*top <= origTop:
		// alignment discarded most of the raw overlap
		return models.StatusMultipleBadHistogramMatch, false
	case 2*(top-second) < top:
		// runner-up is too close to call
		return models.StatusMultipleBadHistogramMatch, false
	}
	return models.StatusMultipleGoodMatch, true
}
