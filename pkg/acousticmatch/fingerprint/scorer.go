package fingerprint

import (
	"github.com/himanishpuri/acousticmatch/pkg/models"
)

const (
	// MatchSlop is the time quantization, in frames, applied before comparing offsets.
	MatchSlop = 2
	// MinMatchPercent is the fraction of query codes a score must reach to count.
	MinMatchPercent = 0.10
	// DefaultCodeThreshold is the minimum raw overlap for alignment to be attempted.
	DefaultCodeThreshold = 10
)

// bucket floors t to a multiple of slop.
func bucket(t uint32, slop int) int {
	if slop <= 1 {
		return int(t)
	}
	return int(t) / slop * slop
}

// CodeTimes maps each code to the slop-bucketed times at which it occurs.
func CodeTimes(codes, times []uint32, slop int) map[uint32][]uint32 {
	out := make(map[uint32][]uint32, len(codes))
	for i, code := range codes {
		out[code] = append(out[code], uint32(bucket(times[i], slop)))
	}
	return out
}

// MinScore is the aligned or raw score a candidate needs for a query of queryLen codes.
func MinScore(queryLen int) float64 {
	return float64(queryLen) * MinMatchPercent
}

// Score aligns a candidate against the query. Every shared occurrence adds one
// to the histogram bucket of |queryTime - candidateTime|; the aligned score is
// the sum of the two fullest buckets, since slop quantization can split a true
// offset across two neighbouring buckets. Candidates whose raw overlap is below
// threshold score zero.
func Score(query models.Fingerprint, cand models.Candidate, threshold, slop int) models.ScoredCandidate {
	scored := models.ScoredCandidate{Candidate: cand}
	if cand.RawScore < threshold {
		return scored
	}

	codeTimes := CodeTimes(cand.Codes, cand.Times, slop)
	hist := make(models.Histogram)
	for i, code := range query.Codes {
		candTimes, ok := codeTimes[code]
		if !ok {
			continue
		}
		qt := bucket(query.Times[i], slop)
		for _, ct := range candTimes {
			hist[absInt(qt-int(ct))]++
		}
	}

	scored.CodeTimes = codeTimes
	scored.Histogram = hist
	for _, b := range hist.Top(2) {
		scored.AlignedScore += b.Count
	}
	return scored
}

// ScoreAll scores every candidate and keeps those whose aligned score clears
// the minimum match percentage. Input order is preserved.
func ScoreAll(query models.Fingerprint, cands []models.Candidate, threshold, slop int) []models.ScoredCandidate {
	floor := MinScore(query.Len())
	kept := make([]models.ScoredCandidate, 0, len(cands))
	for _, cand := range cands {
		scored := Score(query, cand, threshold, slop)
		if scored.AlignedScore > 0 && float64(scored.AlignedScore) >= floor {
			kept = append(kept, scored)
		}
	}
	return kept
}

// Contributors lists the query codes whose nearest occurrence in the candidate
// sits at one of the two winning histogram deltas.
func Contributors(query models.Fingerprint, scored models.ScoredCandidate, threshold, slop int) []models.Contributor {
	if scored.RawScore < threshold || len(scored.Histogram) == 0 {
		return nil
	}

	top := scored.Histogram.Top(2)
	codeTimes := scored.CodeTimes
	if codeTimes == nil {
		codeTimes = CodeTimes(scored.Codes, scored.Times, slop)
	}

	var out []models.Contributor
	for i, code := range query.Codes {
		candTimes, ok := codeTimes[code]
		if !ok {
			continue
		}
		qt := bucket(query.Times[i], slop)
		minDist := -1
		for _, ct := range candTimes {
			if d := absInt(qt - int(ct)); minDist < 0 || d < minDist {
				minDist = d
			}
		}
		for _, b := range top {
			if b.Delta == minDist {
				out = append(out, models.Contributor{Code: code, Time: uint32(qt), Dist: minDist})
				break
			}
		}
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
