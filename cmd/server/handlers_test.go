//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch"
	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch/fingerprint"
	"github.com/himanishpuri/acousticmatch/pkg/logger"
	"github.com/himanishpuri/acousticmatch/pkg/models"
)

func setupTestServer(t *testing.T) http.Handler {
	t.Helper()
	return newTestServer(t).setupRoutes()
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	log := logger.New(logger.Config{Level: logger.ERROR, Output: &strings.Builder{}})
	dbPath := filepath.Join(t.TempDir(), "server.sqlite3")
	svc, err := acousticmatch.NewService(acousticmatch.WithDBPath(dbPath), acousticmatch.WithLogger(log))
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	return NewServer(svc, &ServerConfig{DBPath: dbPath, Timeout: 10 * time.Second, AllowedOrigins: []string{"*"}}, log)
}

func encodedFingerprint(t *testing.T, n int, seed uint32) string {
	t.Helper()

	fp := models.Fingerprint{}
	for i := 0; i < n; i++ {
		fp.Codes = append(fp.Codes, seed+uint32(i)*13)
		fp.Times = append(fp.Times, uint32(i)*4)
	}
	code, err := fingerprint.Encode(fp)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return code
}

func doRequest(t *testing.T, h http.Handler, req *http.Request, out any) int {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("Invalid JSON response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHealth(t *testing.T) {
	h := setupTestServer(t)

	var body map[string]string
	code := doRequest(t, h, httptest.NewRequest(http.MethodGet, "/health", nil), &body)
	if code != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("Unexpected health response %d %v", code, body)
	}
}

func TestQueryValidation(t *testing.T) {
	h := setupTestServer(t)
	code := encodedFingerprint(t, 50, 1)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"missing code", "version=4.12", "Missing code"},
		{"missing version", "code=" + url.QueryEscape(code), "Missing or invalid version"},
		{"short version", "code=" + url.QueryEscape(code) + "&version=4.1", "Missing or invalid version"},
		{"corrupt code", "code=notzlib&version=4.12", "Invalid code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body ErrorResponse
			status := doRequest(t, h, httptest.NewRequest(http.MethodGet, "/query?"+tt.query, nil), &body)
			if status != http.StatusInternalServerError {
				t.Errorf("Expected 500, got %d", status)
			}
			if body.Error != tt.want {
				t.Errorf("Expected error %q, got %q", tt.want, body.Error)
			}
		})
	}
}

func TestIngestAndQuery(t *testing.T) {
	h := setupTestServer(t)
	code := encodedFingerprint(t, 200, 1)

	var ingested IngestResponse
	status := doRequest(t, h, postForm("/ingest", url.Values{
		"code":    {code},
		"version": {"4.12"},
		"length":  {"215"},
		"track":   {"Around the World"},
		"artist":  {"Daft Punk"},
	}), &ingested)
	if status != http.StatusOK || !ingested.Success {
		t.Fatalf("Ingest failed: %d %+v", status, ingested)
	}
	if ingested.TrackID == "" || ingested.Artist != "Daft Punk" {
		t.Errorf("Unexpected ingest response %+v", ingested)
	}

	var result QueryResponse
	status = doRequest(t, h, httptest.NewRequest(http.MethodGet,
		"/query?version=4.12&code="+url.QueryEscape(code), nil), &result)
	if status != http.StatusOK {
		t.Fatalf("Query returned %d", status)
	}
	if !result.Success || result.Match == nil {
		t.Fatalf("Expected a match, got %+v", result)
	}
	if result.Match.TrackID != ingested.TrackID || result.Match.Track != "Around the World" || result.Match.Length != 215 {
		t.Errorf("Unexpected match %+v", result.Match)
	}

	var track TrackDTO
	status = doRequest(t, h, httptest.NewRequest(http.MethodGet, "/api/tracks/"+ingested.TrackID, nil), &track)
	if status != http.StatusOK || track.Artist != "Daft Punk" {
		t.Errorf("Unexpected track response %d %+v", status, track)
	}

	var stats StatsResponse
	doRequest(t, h, httptest.NewRequest(http.MethodGet, "/api/stats", nil), &stats)
	if stats.Tracks != 1 || stats.Codes != 200 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestQueryNoMatchHasNullMatch(t *testing.T) {
	h := setupTestServer(t)
	code := encodedFingerprint(t, 50, 1)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/query?version=4.12&code="+url.QueryEscape(code), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"match":null`) {
		t.Errorf("Expected null match, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), string(models.StatusNoResults)) {
		t.Errorf("Expected NO_RESULTS, got %s", rec.Body.String())
	}
}

func TestIngestFractionalLength(t *testing.T) {
	h := setupTestServer(t)

	var ingested IngestResponse
	status := doRequest(t, h, postForm("/ingest", url.Values{
		"code":    {encodedFingerprint(t, 200, 1)},
		"version": {"4.12"},
		"length":  {"227.5"},
		"track":   {"Harder Better Faster Stronger"},
		"artist":  {"Daft Punk"},
	}), &ingested)
	if status != http.StatusOK || !ingested.Success {
		t.Fatalf("Ingest failed: %d %+v", status, ingested)
	}

	var track TrackDTO
	status = doRequest(t, h, httptest.NewRequest(http.MethodGet, "/api/tracks/"+ingested.TrackID, nil), &track)
	if status != http.StatusOK || track.Length != 227 {
		t.Errorf("Expected length 227, got %d %+v", status, track)
	}
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"215", 215, false},
		{" 227.5 ", 227, false},
		{"0", 0, false},
		{"1e2", 100, false},
		{"", 0, true},
		{"abc", 0, true},
		{"-1", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"1e300", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseLength(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLength(%q) error = %v, wantErr %t", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseLength(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLookupsSurviveCancelledRequest(t *testing.T) {
	srv := newTestServer(t)
	code := encodedFingerprint(t, 200, 1)

	status := doRequest(t, srv.setupRoutes(), postForm("/ingest", url.Values{
		"code":    {code},
		"version": {"4.12"},
		"length":  {"215"},
		"track":   {"Around the World"},
		"artist":  {"Daft Punk"},
	}), nil)
	if status != http.StatusOK {
		t.Fatalf("Ingest returned %d", status)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var result QueryResponse
	req := httptest.NewRequest(http.MethodGet, "/query?version=4.12&code="+url.QueryEscape(code), nil).WithContext(ctx)
	status = doRequest(t, http.HandlerFunc(srv.handleQuery), req, &result)
	if status != http.StatusOK || !result.Success {
		t.Errorf("Expected a match despite cancellation, got %d %+v", status, result)
	}

	input := fmt.Sprintf(`[{"code":%q,"metadata":{"version":"4.12"}}]`, code)
	var report DebugResponse
	req = postForm("/debug", url.Values{"json": {input}}).WithContext(ctx)
	status = doRequest(t, http.HandlerFunc(srv.handleDebug), req, &report)
	if status != http.StatusOK {
		t.Errorf("Expected debug report despite cancellation, got %d", status)
	}
}

func TestIngestRejectsMissingFields(t *testing.T) {
	h := setupTestServer(t)
	code := encodedFingerprint(t, 50, 1)

	tests := []struct {
		name string
		form url.Values
	}{
		{"no length", url.Values{"code": {code}, "version": {"4.12"}, "track": {"T"}, "artist": {"A"}}},
		{"bad version", url.Values{"code": {code}, "version": {"4"}, "length": {"10"}, "track": {"T"}, "artist": {"A"}}},
		{"no artist", url.Values{"code": {code}, "version": {"4.12"}, "length": {"10"}, "track": {"T"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body ErrorResponse
			status := doRequest(t, h, postForm("/ingest", tt.form), &body)
			if status != http.StatusInternalServerError || body.Error == "" {
				t.Errorf("Expected 500 with error, got %d %+v", status, body)
			}
		})
	}
}

func TestDebugEndpoint(t *testing.T) {
	h := setupTestServer(t)
	code := encodedFingerprint(t, 200, 1)

	doRequest(t, h, postForm("/ingest", url.Values{
		"code": {code}, "version": {"4.12"}, "length": {"30"}, "track": {"T"}, "artist": {"A"},
	}), nil)

	input := fmt.Sprintf(`[{"code":%q,"metadata":{"version":4.12}}]`, code)
	var report DebugResponse
	status := doRequest(t, h, postForm("/debug", url.Values{"json": {input}}), &report)
	if status != http.StatusOK {
		t.Fatalf("Debug returned %d", status)
	}
	if !report.Success || report.QueryLen != 200 || len(report.Matches) != 1 {
		t.Fatalf("Unexpected debug report %+v", report)
	}
	if len(report.Matches[0].Contributors) != 200 || len(report.Matches[0].Histogram) == 0 {
		t.Errorf("Expected contributors and histogram, got %+v", report.Matches[0])
	}

	var body ErrorResponse
	status = doRequest(t, h, postForm("/debug", url.Values{"json": {"not json"}}), &body)
	if status != http.StatusInternalServerError || body.Error != "Unrecognized input" {
		t.Errorf("Expected unrecognized input error, got %d %+v", status, body)
	}
}

func TestUnknownEndpoint(t *testing.T) {
	h := setupTestServer(t)

	var body ErrorResponse
	status := doRequest(t, h, httptest.NewRequest(http.MethodGet, "/nope", nil), &body)
	if status != http.StatusNotFound || body.Error != "Invalid API endpoint" {
		t.Errorf("Unexpected response %d %+v", status, body)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := setupTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://example.com")
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Missing CORS header")
	}
}
