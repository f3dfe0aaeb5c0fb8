//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch"
	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch/fingerprint"
	"github.com/himanishpuri/acousticmatch/pkg/models"
	"github.com/tidwall/gjson"
)

// maxFormBytes bounds POST bodies; a four hour code string is a few MB.
const maxFormBytes = 32 << 20

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service acousticmatch.Service
	config  *ServerConfig
	log     acousticmatch.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	Timeout        time.Duration
	AllowedOrigins []string
}

func NewServer(service acousticmatch.Service, config *ServerConfig, log acousticmatch.Logger) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     log,
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response. Client mistakes are reported as 500
// like every other failure, which is what existing clients expect.
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// decodeCode decodes a code string and stamps it with version.
func decodeCode(code, version string) (models.Fingerprint, string) {
	if code == "" {
		return models.Fingerprint{}, "Missing code"
	}
	if len(version) != 4 {
		return models.Fingerprint{}, "Missing or invalid version"
	}
	fp, err := fingerprint.Decode(code)
	if err != nil {
		return models.Fingerprint{}, "Invalid code"
	}
	fp.CodeVersion = version
	return fp, ""
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleQuery handles GET /query?code=&version=
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	fp, msg := decodeCode(q.Get("code"), q.Get("version"))
	if msg != "" {
		s.log.Warnf("Rejected query: %s", msg)
		s.respondError(w, http.StatusInternalServerError, msg)
		return
	}

	// lookups are read-only and finish even after a fired response timeout
	result, err := s.service.Query(context.WithoutCancel(r.Context()), fp)
	if err != nil {
		if errors.Is(err, acousticmatch.ErrInvalidFingerprint) {
			s.respondError(w, http.StatusInternalServerError, "Invalid code")
			return
		}
		s.log.Warnf("Failed to complete query: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Lookup failed")
		return
	}

	s.log.Debugf("Completed lookup in %s. success=%t, status=%s", time.Since(start), result.Success, result.Status)
	s.respondJSON(w, http.StatusOK, QueryResponse{
		Success: result.Success,
		Status:  result.Status,
		Match:   toMatchDTO(result.Match),
	})
}

// handleIngest handles POST /ingest
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, http.StatusInternalServerError, "Missing or invalid required fields")
		return
	}

	version := r.PostFormValue("version")
	length, err := parseLength(r.PostFormValue("length"))
	code := r.PostFormValue("code")
	if code == "" || len(version) != 4 || err != nil {
		s.respondError(w, http.StatusInternalServerError, "Missing or invalid required fields")
		return
	}

	fp, msg := decodeCode(code, version)
	if msg != "" || fp.Len() == 0 {
		s.log.Errorf("Failed to decode codes for ingest")
		s.respondError(w, http.StatusInternalServerError, "Invalid code")
		return
	}
	fp.LengthSeconds = length
	fp.Track = r.PostFormValue("track")
	fp.Artist = r.PostFormValue("artist")

	// a fired response timeout must not abandon a write holding the ingest lock
	result, err := s.service.Ingest(context.WithoutCancel(r.Context()), fp)
	if err != nil {
		var verr *acousticmatch.ValidationError
		if errors.As(err, &verr) {
			s.respondError(w, http.StatusInternalServerError, verr.Error())
			return
		}
		s.log.Errorf("Failed to ingest track: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Ingestion failed")
		return
	}

	s.log.Debugf("Ingested track in %s. track_id=%s, artist_id=%s", time.Since(start), result.TrackID, result.ArtistID)
	s.respondJSON(w, http.StatusOK, IngestResponse{
		Success:  true,
		TrackID:  result.TrackID,
		Track:    result.TrackName,
		ArtistID: result.ArtistID,
		Artist:   result.ArtistName,
		Created:  result.Created,
	})
}

// parseLength reads a duration in seconds, truncating any fractional part.
func parseLength(raw string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0, fmt.Errorf("length out of range: %q", raw)
	}
	return int(f), nil
}

// handleDebug handles POST /debug with a form field "json" holding codegen output.
func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, http.StatusInternalServerError, "Unrecognized input")
		return
	}
	input := r.FormValue("json")
	if input == "" || !gjson.Valid(input) {
		s.respondError(w, http.StatusInternalServerError, "Unrecognized input")
		return
	}

	first := gjson.Get(input, "0")
	fp, msg := decodeCode(first.Get("code").String(), first.Get("metadata.version").String())
	if msg != "" {
		s.log.Warnf("Failed to parse debug input: %s", msg)
		s.respondError(w, http.StatusInternalServerError, msg)
		return
	}

	report, err := s.service.Debug(context.WithoutCancel(r.Context()), fp)
	if err != nil {
		s.log.Warnf("Failed to complete debug query: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Lookup failed")
		return
	}
	s.respondJSON(w, http.StatusOK, toDebugResponse(report))
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.log.Errorf("Failed to read catalog stats: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve stats")
		return
	}

	s.respondJSON(w, http.StatusOK, StatsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		Tracks:       stats.Tracks,
		Artists:      stats.Artists,
		Codes:        stats.Codes,
		CodesHuman:   humanize.Comma(stats.Codes),
	})
}

// handleTrack handles GET /api/tracks/{id}
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Track ID required")
		return
	}

	track, err := s.service.GetTrack(r.Context(), id)
	if err != nil {
		s.log.Errorf("Failed to get track %s: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve track")
		return
	}
	if track == nil {
		s.respondError(w, http.StatusNotFound, "Track "+id+" not found")
		return
	}
	s.respondJSON(w, http.StatusOK, toTrackDTO(track))
}
