package acousticmatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch/fingerprint"
	"github.com/himanishpuri/acousticmatch/pkg/models"
	"golang.org/x/text/unicode/norm"
)

// Ingest adds fp to the catalog unless its content already matches a track,
// in which case missing names on the existing track and artist are filled in.
// Ingests are serialized so that the duplicate probe and the following write
// see each other's effects.
func (s *matchService) Ingest(ctx context.Context, fp models.Fingerprint) (*models.IngestResult, error) {
	fp, err := validateIngest(fp)
	if err != nil {
		return nil, err
	}
	fp = fingerprint.ClampLength(fp, fingerprint.MaxIngestSeconds)

	s.log.Infof("Ingesting track %q by artist %q, %d seconds, %s codes (%s)",
		fp.Track, fp.Artist, fp.LengthSeconds, humanize.Comma(int64(fp.Len())), fp.CodeVersion)

	var result *models.IngestResult
	err = s.ingest.withLock(func() error {
		var err error
		result, err = s.ingestLocked(ctx, fp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ingestLocked probes for existing content and then reconciles or creates.
// The caller holds the ingest lock.
func (s *matchService) ingestLocked(ctx context.Context, fp models.Fingerprint) (*models.IngestResult, error) {
	probe, _, err := s.bestMatch(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("duplicate probe failed: %w", err)
	}

	if probe.Success {
		m := probe.Match
		s.log.Infof("Found existing match with status %s, track %s (%q) by %q",
			probe.Status, m.TrackID, m.TrackName, m.ArtistName)
		return s.reconcile(ctx, fp, m)
	}

	s.log.Debugf("Track does not exist in the database yet, status %s", probe.Status)
	return s.create(ctx, fp)
}

// reconcile fills in names on an existing track. Names are only treated as
// provisional while they are unset.
func (s *matchService) reconcile(ctx context.Context, fp models.Fingerprint, m *models.Match) (*models.IngestResult, error) {
	result := &models.IngestResult{
		TrackID:    m.TrackID,
		TrackName:  m.TrackName,
		ArtistID:   m.ArtistID,
		ArtistName: m.ArtistName,
	}

	if result.TrackName == "" && fp.Track != "" {
		s.log.Debugf("Updating track name to %q", fp.Track)
		ok, err := s.storage.UpdateTrack(ctx, result.TrackID, fp.Track, result.ArtistID)
		if err != nil {
			return nil, err
		}
		s.warnIfUnchanged(ok, "track", result.TrackID)
		result.TrackName = fp.Track
	}

	switch {
	case result.ArtistName == "":
		artist, err := s.storage.GetArtistByName(ctx, fp.Artist)
		if err != nil {
			return nil, err
		}
		if artist != nil {
			s.log.Debugf("Setting track artist_id to %s", artist.ID)
			ok, err := s.storage.UpdateTrack(ctx, result.TrackID, result.TrackName, artist.ID)
			if err != nil {
				return nil, err
			}
			s.warnIfUnchanged(ok, "track", result.TrackID)
			result.ArtistID = artist.ID
			result.ArtistName = artist.Name
		} else {
			s.log.Debugf("Setting artist %s name to %q", result.ArtistID, fp.Artist)
			ok, err := s.storage.UpdateArtist(ctx, result.ArtistID, fp.Artist)
			if err != nil {
				return nil, err
			}
			s.warnIfUnchanged(ok, "artist", result.ArtistID)
			result.ArtistName = fp.Artist
		}
	case result.ArtistName != fp.Artist:
		s.log.Warnf("New artist name %q does not match existing artist name %q for track %s",
			fp.Artist, result.ArtistName, result.TrackID)
	default:
		s.log.Debugf("Skipping artist update")
	}

	s.log.Infof("Track update complete for %s", result.TrackID)
	return result, nil
}

// create stores fp as a new track, creating its artist if needed.
func (s *matchService) create(ctx context.Context, fp models.Fingerprint) (*models.IngestResult, error) {
	artist, err := s.storage.GetArtistByName(ctx, fp.Artist)
	if err != nil {
		return nil, err
	}

	result := &models.IngestResult{TrackName: fp.Track, Created: true}
	if artist != nil {
		result.ArtistID, result.ArtistName = artist.ID, artist.Name
	} else {
		s.log.Debugf("Adding artist %q", fp.Artist)
		id, err := s.storage.AddArtist(ctx, fp.Artist)
		if err != nil {
			return nil, err
		}
		s.log.Infof("Created artist %s (%q)", id, fp.Artist)
		result.ArtistID, result.ArtistName = id, fp.Artist
	}

	s.log.Debugf("Adding track %q for artist %q (%s)", fp.Track, result.ArtistName, result.ArtistID)
	trackID, err := s.storage.AddTrack(ctx, result.ArtistID, fp)
	if err != nil {
		return nil, err
	}
	result.TrackID = trackID

	s.log.Infof("Created track %s (%q) with %s codes", trackID, fp.Track, humanize.Comma(int64(fp.Len())))
	return result, nil
}

func (s *matchService) warnIfUnchanged(changed bool, kind, id string) {
	if !changed {
		s.log.Warnf("Update of %s %s affected no rows", kind, id)
	}
}

// validateIngest checks the required ingest fields and normalises names.
func validateIngest(fp models.Fingerprint) (models.Fingerprint, error) {
	fp.Track = normalizeName(fp.Track)
	fp.Artist = normalizeName(fp.Artist)

	switch {
	case fp.Len() == 0:
		return fp, &ValidationError{Field: "codes", Reason: "no codes"}
	case len(fp.Codes) != len(fp.Times):
		return fp, &ValidationError{Field: "codes", Reason: "codes and times differ in length"}
	case fp.LengthSeconds < 0:
		return fp, &ValidationError{Field: "length", Reason: "must not be negative"}
	case len(fp.CodeVersion) != 4:
		return fp, &ValidationError{Field: "version", Reason: "must be 4 characters"}
	case fp.Track == "":
		return fp, &ValidationError{Field: "track", Reason: "required"}
	case fp.Artist == "":
		return fp, &ValidationError{Field: "artist", Reason: "required"}
	}
	return fp, nil
}

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
