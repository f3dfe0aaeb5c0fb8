//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"time"

	"github.com/himanishpuri/acousticmatch/pkg/models"
)

// MatchDTO is a matched track as returned by /query.
type MatchDTO struct {
	TrackID    string    `json:"track_id"`
	Track      string    `json:"track"`
	ArtistID   string    `json:"artist_id"`
	Artist     string    `json:"artist"`
	Length     int       `json:"length"`
	ImportDate time.Time `json:"import_date"`
	Score      int       `json:"score"`
	AScore     int       `json:"ascore"`
}

// QueryResponse is the response for GET /query
type QueryResponse struct {
	Success bool               `json:"success"`
	Status  models.MatchStatus `json:"status"`
	Match   *MatchDTO          `json:"match"`
}

// IngestResponse is the response for POST /ingest
type IngestResponse struct {
	Success  bool   `json:"success"`
	TrackID  string `json:"track_id"`
	Track    string `json:"track"`
	ArtistID string `json:"artist_id"`
	Artist   string `json:"artist"`
	Created  bool   `json:"created"`
}

// ContributorDTO is one query code that landed on a winning offset.
type ContributorDTO struct {
	Code uint32 `json:"code"`
	Time uint32 `json:"time"`
	Dist int    `json:"dist"`
}

// DebugMatchDTO is a ranked candidate in a debug report.
type DebugMatchDTO struct {
	MatchDTO
	CodeLength   int              `json:"code_length"`
	Histogram    map[int]int      `json:"histogram"`
	Contributors []ContributorDTO `json:"contributors"`
}

// DebugResponse is the response for POST /debug
type DebugResponse struct {
	Success   bool               `json:"success"`
	Status    models.MatchStatus `json:"status"`
	QueryLen  int                `json:"queryLen"`
	Matches   []DebugMatchDTO    `json:"matches"`
	QueryTime int64              `json:"queryTime"`
}

// TrackDTO represents a catalog track in API responses
type TrackDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ArtistID    string    `json:"artist_id"`
	Artist      string    `json:"artist"`
	CodeVersion string    `json:"code_version"`
	Length      int       `json:"length"`
	ImportDate  time.Time `json:"import_date"`
}

// StatsResponse reports catalog size
type StatsResponse struct {
	Status       string `json:"status"`
	DatabasePath string `json:"database_path"`
	Tracks       int64  `json:"tracks"`
	Artists      int64  `json:"artists"`
	Codes        int64  `json:"codes"`
	CodesHuman   string `json:"codes_human"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error string `json:"error"`
}

func toMatchDTO(m *models.Match) *MatchDTO {
	if m == nil {
		return nil
	}
	return &MatchDTO{
		TrackID:    m.TrackID,
		Track:      m.TrackName,
		ArtistID:   m.ArtistID,
		Artist:     m.ArtistName,
		Length:     m.LengthSeconds,
		ImportDate: m.ImportDate,
		Score:      m.RawScore,
		AScore:     m.AlignedScore,
	}
}

func toDebugResponse(report *models.DebugReport) DebugResponse {
	resp := DebugResponse{
		Success:   report.Success,
		Status:    report.Status,
		QueryLen:  report.QueryLength,
		Matches:   make([]DebugMatchDTO, 0, len(report.Matches)),
		QueryTime: report.QueryTime.Milliseconds(),
	}
	for _, m := range report.Matches {
		dm := DebugMatchDTO{
			MatchDTO:     *toMatchDTO(&m.Match),
			CodeLength:   m.CodeLength,
			Histogram:    m.Histogram,
			Contributors: make([]ContributorDTO, 0, len(m.Contributors)),
		}
		for _, c := range m.Contributors {
			dm.Contributors = append(dm.Contributors, ContributorDTO{Code: c.Code, Time: c.Time, Dist: c.Dist})
		}
		resp.Matches = append(resp.Matches, dm)
	}
	return resp
}

func toTrackDTO(t *models.Track) TrackDTO {
	return TrackDTO{
		ID:          t.ID,
		Name:        t.Name,
		ArtistID:    t.ArtistID,
		Artist:      t.ArtistName,
		CodeVersion: t.CodeVersion,
		Length:      t.LengthSeconds,
		ImportDate:  t.ImportDate,
	}
}
