package models

import "time"

// FramesPerSecond converts seconds into fingerprint time units (one frame is ~23ms).
const FramesPerSecond = 43.45

// Fingerprint is a decoded code string: parallel code and time arrays, ordered by time.
// Track, Artist and LengthSeconds are only populated for ingestion.
type Fingerprint struct {
	Codes         []uint32
	Times         []uint32
	CodeVersion   string
	Track         string
	Artist        string
	LengthSeconds int
}

// Len returns the number of (code, time) pairs.
func (fp Fingerprint) Len() int { return len(fp.Codes) }

// IngestResult identifies the track an ingest call resolved to.
type IngestResult struct {
	TrackID    string
	TrackName  string
	ArtistID   string
	ArtistName string
	Created    bool // false when the submission deduplicated against an existing track
}

// CatalogStats summarises the catalog contents.
type CatalogStats struct {
	Tracks  int64
	Artists int64
	Codes   int64
}

// DebugReport is the full diagnostic view of a single query.
type DebugReport struct {
	Success     bool
	Status      MatchStatus
	QueryLength int
	Matches     []DebugMatch
	QueryTime   time.Duration
}

// DebugMatch is a ranked candidate with metadata and the query codes that
// contributed to its aligned score.
type DebugMatch struct {
	Match
	CodeLength   int
	Contributors []Contributor
}

// Contributor is one query code whose nearest candidate occurrence landed in
// one of the two winning histogram buckets.
type Contributor struct {
	Code uint32
	Time uint32
	Dist int
}
