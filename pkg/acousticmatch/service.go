package acousticmatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch/fingerprint"
	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch/matcher"
	"github.com/himanishpuri/acousticmatch/pkg/logger"
	"github.com/himanishpuri/acousticmatch/pkg/models"
)

// matchService is the default implementation of the Service interface.
type matchService struct {
	storage Storage
	log     Logger
	config  *Config
	params  matcher.Params
	ingest  ingestLock
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	// Set default logger if none provided
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}

	// Create or use provided storage
	var stor Storage
	var err error
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	params := matcher.DefaultParams()
	params.CodeThreshold = cfg.CodeThreshold

	return &matchService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
		params:  params,
	}, nil
}

// Query finds the closest catalog track to fp. It never takes the ingest lock.
func (s *matchService) Query(ctx context.Context, fp models.Fingerprint) (*models.MatchResult, error) {
	result, _, err := s.bestMatch(ctx, fp)
	return result, err
}

// bestMatch runs retrieval, alignment and the decision policy for fp, and
// attaches metadata to an accepted match. It also returns the ranked
// candidates that survived alignment.
func (s *matchService) bestMatch(ctx context.Context, fp models.Fingerprint) (*models.MatchResult, []models.ScoredCandidate, error) {
	fp = fingerprint.ClampLength(fp, s.config.MaxQuerySeconds)
	if fp.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: no valid fingerprint codes specified", ErrInvalidFingerprint)
	}

	s.log.Debugf("Starting query with %d codes (%s)", fp.Len(), fp.CodeVersion)

	candidates, err := s.storage.FindCandidatesByCode(ctx, fp.Codes, fp.CodeVersion, s.config.MaxCandidates)
	if err != nil {
		return nil, nil, fmt.Errorf("candidate lookup failed: %w", err)
	}
	if len(candidates) > 0 {
		s.log.Debugf("Matched %d tracks, top code overlap is %d", len(candidates), candidates[0].RawScore)
	}

	decision := matcher.Decide(fp, candidates, s.params)
	if !decision.Accepted() {
		s.log.Debugf("No match for %d codes, status %s", fp.Len(), decision.Status)
		return &models.MatchResult{Status: decision.Status}, decision.Ranked, nil
	}

	winner := decision.Winner
	s.log.Debugf("Accepted track %s with aligned score %d/%d (%s)", winner.TrackID, winner.AlignedScore, fp.Len(), decision.Status)

	match, err := s.attachMetadata(ctx, *winner)
	if err != nil {
		return nil, decision.Ranked, err
	}
	return &models.MatchResult{Success: true, Status: decision.Status, Match: match}, decision.Ranked, nil
}

// attachMetadata fetches the track and artist details of a scored candidate.
func (s *matchService) attachMetadata(ctx context.Context, scored models.ScoredCandidate) (*models.Match, error) {
	track, err := s.storage.GetTrack(ctx, scored.TrackID)
	if err != nil {
		return nil, fmt.Errorf("metadata lookup failed: %w", err)
	}
	if track == nil {
		return nil, &MissingTrackError{TrackID: scored.TrackID}
	}
	return &models.Match{
		ScoredCandidate: scored,
		TrackName:       track.Name,
		ArtistID:        track.ArtistID,
		ArtistName:      track.ArtistName,
		LengthSeconds:   track.LengthSeconds,
		ImportDate:      track.ImportDate,
	}, nil
}

// Debug runs a query and returns every ranked candidate with metadata and the
// query codes that contributed to its score.
func (s *matchService) Debug(ctx context.Context, fp models.Fingerprint) (*models.DebugReport, error) {
	start := time.Now()
	fp = fingerprint.ClampLength(fp, s.config.MaxQuerySeconds)

	result, ranked, err := s.bestMatch(ctx, fp)
	if err != nil {
		return nil, err
	}

	report := &models.DebugReport{
		Success:     result.Success,
		Status:      result.Status,
		QueryLength: fp.Len(),
		Matches:     make([]models.DebugMatch, 0, len(ranked)),
	}
	for _, scored := range ranked {
		match, err := s.attachMetadata(ctx, scored)
		if err != nil {
			var missing *MissingTrackError
			if errors.As(err, &missing) {
				s.log.Warnf("Skipping debug candidate: %v", err)
				continue
			}
			return nil, err
		}
		report.Matches = append(report.Matches, models.DebugMatch{
			Match:        *match,
			CodeLength:   int(math.Ceil(float64(match.LengthSeconds) * models.FramesPerSecond)),
			Contributors: fingerprint.Contributors(fp, scored, s.params.CodeThreshold, s.params.Slop),
		})
	}
	report.QueryTime = time.Since(start)
	return report, nil
}

func (s *matchService) GetTrack(ctx context.Context, trackID string) (*models.Track, error) {
	return s.storage.GetTrack(ctx, trackID)
}

func (s *matchService) Stats(ctx context.Context) (models.CatalogStats, error) {
	return s.storage.Stats(ctx)
}

// Close releases all resources held by the service.
func (s *matchService) Close() error {
	return s.storage.Close()
}
