package models

import "time"

// Track is a catalog recording as returned by storage, with the artist name
// denormalised in. An empty Name means the track is still unnamed.
type Track struct {
	ID            string
	CodeVersion   string
	Name          string
	ArtistID      string
	ArtistName    string
	LengthSeconds int
	ImportDate    time.Time
}

// Artist is a catalog artist. An empty Name means the artist is still unnamed.
type Artist struct {
	ID   string
	Name string
}
