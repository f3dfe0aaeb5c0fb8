package acousticmatch

import (
	"context"

	"github.com/himanishpuri/acousticmatch/pkg/models"
)

type Service interface {
	Query(ctx context.Context, fp models.Fingerprint) (*models.MatchResult, error)
	Ingest(ctx context.Context, fp models.Fingerprint) (*models.IngestResult, error)
	Debug(ctx context.Context, fp models.Fingerprint) (*models.DebugReport, error)
	GetTrack(ctx context.Context, trackID string) (*models.Track, error)
	Stats(ctx context.Context) (models.CatalogStats, error)
	Close() error
}

// Storage is the catalog backend. Lookups return nil, nil when nothing matches.
type Storage interface {
	FindCandidatesByCode(ctx context.Context, codes []uint32, codeVersion string, maxRows int) ([]models.Candidate, error)
	GetTrack(ctx context.Context, trackID string) (*models.Track, error)
	GetArtistByName(ctx context.Context, name string) (*models.Artist, error)
	AddArtist(ctx context.Context, name string) (string, error)
	AddTrack(ctx context.Context, artistID string, fp models.Fingerprint) (string, error)
	UpdateTrack(ctx context.Context, trackID, name, artistID string) (bool, error)
	UpdateArtist(ctx context.Context, artistID, name string) (bool, error)
	Stats(ctx context.Context) (models.CatalogStats, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
