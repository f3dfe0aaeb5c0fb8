package fingerprint

import "github.com/himanishpuri/acousticmatch/pkg/models"

const (
	// DefaultQuerySeconds bounds query fingerprints; most identifying
	// information sits in the first minute.
	DefaultQuerySeconds = 60
	// MaxIngestSeconds bounds ingested fingerprints as a sanity limit.
	MaxIngestSeconds = 60 * 60 * 4
)

// ClampLength returns a copy of fp holding only the codes whose time falls
// within maxSeconds of the first code. A non-positive maxSeconds means
// DefaultQuerySeconds.
func ClampLength(fp models.Fingerprint, maxSeconds float64) models.Fingerprint {
	if maxSeconds <= 0 {
		maxSeconds = DefaultQuerySeconds
	}

	out := fp
	n := len(fp.Times)
	if n > 0 {
		cutoff := float64(fp.Times[0]) + maxSeconds*models.FramesPerSecond
		for i, t := range fp.Times {
			if float64(t) > cutoff {
				n = i
				break
			}
		}
	}

	out.Codes = append([]uint32(nil), fp.Codes[:n]...)
	out.Times = append([]uint32(nil), fp.Times[:n]...)
	return out
}
