package acousticmatch

import (
	"context"

	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch/storage"
	"github.com/himanishpuri/acousticmatch/pkg/models"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
// Every backend error is reported as a *StorageError.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	return &storageAdapter{db: db}, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (s *storageAdapter) FindCandidatesByCode(ctx context.Context, codes []uint32, codeVersion string, maxRows int) ([]models.Candidate, error) {
	cands, err := s.db.FindCandidates(ctx, codes, codeVersion, maxRows)
	return cands, wrap("find candidates", err)
}

func (s *storageAdapter) GetTrack(ctx context.Context, trackID string) (*models.Track, error) {
	track, err := s.db.GetTrack(ctx, trackID)
	return track, wrap("get track", err)
}

func (s *storageAdapter) GetArtistByName(ctx context.Context, name string) (*models.Artist, error) {
	artist, err := s.db.GetArtistByName(ctx, name)
	return artist, wrap("get artist by name", err)
}

func (s *storageAdapter) AddArtist(ctx context.Context, name string) (string, error) {
	id, err := s.db.AddArtist(ctx, name)
	return id, wrap("add artist", err)
}

func (s *storageAdapter) AddTrack(ctx context.Context, artistID string, fp models.Fingerprint) (string, error) {
	id, err := s.db.AddTrack(ctx, artistID, fp)
	return id, wrap("add track", err)
}

func (s *storageAdapter) UpdateTrack(ctx context.Context, trackID, name, artistID string) (bool, error) {
	ok, err := s.db.UpdateTrack(ctx, trackID, name, artistID)
	return ok, wrap("update track", err)
}

func (s *storageAdapter) UpdateArtist(ctx context.Context, artistID, name string) (bool, error) {
	ok, err := s.db.UpdateArtist(ctx, artistID, name)
	return ok, wrap("update artist", err)
}

func (s *storageAdapter) Stats(ctx context.Context) (models.CatalogStats, error) {
	stats, err := s.db.Stats(ctx)
	return stats, wrap("stats", err)
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}
