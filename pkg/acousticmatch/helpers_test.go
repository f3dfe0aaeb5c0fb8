package acousticmatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/himanishpuri/acousticmatch/pkg/models"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
func (nopLogger) Debugf(string, ...any) {}

// newTestService opens a service on a fresh SQLite file.
func newTestService(t *testing.T) (Service, Storage) {
	t.Helper()

	stor, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.sqlite3"))
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}
	svc, err := NewService(WithStorage(stor), WithLogger(nopLogger{}))
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc, stor
}

// testFingerprint builds n distinct codes four frames apart, starting at seed.
func testFingerprint(n int, seed uint32, track, artist string) models.Fingerprint {
	fp := models.Fingerprint{
		CodeVersion:   "4.12",
		Track:         track,
		Artist:        artist,
		LengthSeconds: 200,
	}
	for i := 0; i < n; i++ {
		fp.Codes = append(fp.Codes, seed+uint32(i)*13)
		fp.Times = append(fp.Times, uint32(i)*4)
	}
	return fp
}

type event struct {
	op  string
	key uint32
}

// fakeStorage is an in-memory Storage that records the order of probe and
// insert calls. It never reports candidates unless tracks are preloaded.
type fakeStorage struct {
	mu     sync.Mutex
	events []event

	probeDelay   time.Duration
	failAddTrack int // number of AddTrack calls that fail before succeeding

	candidates []models.Candidate
	tracks     map[string]*models.Track
	nextID     int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{tracks: make(map[string]*models.Track)}
}

func (f *fakeStorage) record(op string, key uint32) {
	f.mu.Lock()
	f.events = append(f.events, event{op: op, key: key})
	f.mu.Unlock()
}

func (f *fakeStorage) id() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("%016X", f.nextID)
}

func (f *fakeStorage) FindCandidatesByCode(ctx context.Context, codes []uint32, codeVersion string, maxRows int) ([]models.Candidate, error) {
	f.record("probe", codes[0])
	if f.probeDelay > 0 {
		time.Sleep(f.probeDelay)
	}
	return f.candidates, nil
}

func (f *fakeStorage) GetTrack(ctx context.Context, trackID string) (*models.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracks[trackID], nil
}

func (f *fakeStorage) GetArtistByName(ctx context.Context, name string) (*models.Artist, error) {
	return nil, nil
}

func (f *fakeStorage) AddArtist(ctx context.Context, name string) (string, error) {
	return f.id(), nil
}

func (f *fakeStorage) AddTrack(ctx context.Context, artistID string, fp models.Fingerprint) (string, error) {
	f.mu.Lock()
	if f.failAddTrack > 0 {
		f.failAddTrack--
		f.mu.Unlock()
		return "", &StorageError{Op: "add track", Err: fmt.Errorf("disk full")}
	}
	f.mu.Unlock()

	f.record("insert", fp.Codes[0])
	return f.id(), nil
}

func (f *fakeStorage) UpdateTrack(ctx context.Context, trackID, name, artistID string) (bool, error) {
	return true, nil
}

func (f *fakeStorage) UpdateArtist(ctx context.Context, artistID, name string) (bool, error) {
	return true, nil
}

func (f *fakeStorage) Stats(ctx context.Context) (models.CatalogStats, error) {
	return models.CatalogStats{}, nil
}

func (f *fakeStorage) Close() error { return nil }
