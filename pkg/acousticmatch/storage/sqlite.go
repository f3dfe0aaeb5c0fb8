//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/acousticmatch/pkg/models"
	"github.com/himanishpuri/acousticmatch/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "acousticmatch.sqlite3"
const errDBClientNil = "db client is nil"

const (
	// queryChunkSize keeps IN lists well under SQLite's bound parameter limit.
	queryChunkSize = 500
	// insertBatchSize is the number of code rows per INSERT statement.
	insertBatchSize = 500
	// idLength is the length of generated track and artist IDs.
	idLength = 16
)

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Artist struct {
	ID        string `gorm:"primaryKey;type:varchar(16)"`
	Name      string `gorm:"index:idx_artist_name"`
	CreatedAt time.Time
}

type Track struct {
	ID          string    `gorm:"primaryKey;type:varchar(16)"`
	CodeVersion string    `gorm:"type:varchar(4);index:idx_track_codever"`
	Name        string    `gorm:"index:idx_track_name"`
	ArtistID    string    `gorm:"type:varchar(16);index:idx_track_artist"`
	Length      int       `json:"length"`
	ImportDate  time.Time `json:"import_date"`
}

// Code is one (code, time) occurrence within a track. The composite key makes
// re-loading the same rows a no-op.
type Code struct {
	Code    uint32 `gorm:"primaryKey;autoIncrement:false;index:idx_code"`
	Time    uint32 `gorm:"primaryKey;autoIncrement:false"`
	TrackID string `gorm:"primaryKey;type:varchar(16);index:idx_code_track"`
}

// trackRow is a track joined with its artist's name.
type trackRow struct {
	Track
	ArtistName string
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("ACOUSTIC_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Artist{}, &Track{}, &Code{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) ready() error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return nil
}

// FindCandidates returns up to maxRows tracks of the given code version ranked
// by how many of their code rows match one of codes, together with those rows.
// Ties are broken by track ID.
func (c *DBClient) FindCandidates(ctx context.Context, codes []uint32, codeVersion string, maxRows int) ([]models.Candidate, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	unique := dedupeCodes(codes)
	if len(unique) == 0 || maxRows <= 0 {
		return nil, nil
	}

	type scoreRow struct {
		TrackID string
		Score   int
	}

	scores := make(map[string]int)
	for _, chunk := range chunkCodes(unique, queryChunkSize) {
		var rows []scoreRow
		err := c.DB.WithContext(ctx).
			Table("codes").
			Select("codes.track_id AS track_id, COUNT(*) AS score").
			Joins("JOIN tracks ON tracks.id = codes.track_id").
			Where("codes.code IN ? AND tracks.code_version = ?", chunk, codeVersion).
			Group("codes.track_id").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("counting matched codes: %w", err)
		}
		for _, r := range rows {
			scores[r.TrackID] += r.Score
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	ranked := make([]models.Candidate, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, models.Candidate{TrackID: id, RawScore: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].RawScore != ranked[j].RawScore {
			return ranked[i].RawScore > ranked[j].RawScore
		}
		return ranked[i].TrackID < ranked[j].TrackID
	})
	if len(ranked) > maxRows {
		ranked = ranked[:maxRows]
	}

	index := make(map[string]int, len(ranked))
	trackIDs := make([]string, len(ranked))
	for i, cand := range ranked {
		index[cand.TrackID] = i
		trackIDs[i] = cand.TrackID
	}

	for _, chunk := range chunkCodes(unique, queryChunkSize) {
		var rows []Code
		err := c.DB.WithContext(ctx).
			Where("code IN ? AND track_id IN ?", chunk, trackIDs).
			Order("track_id, time, code").
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("fetching matched codes: %w", err)
		}
		for _, r := range rows {
			i, ok := index[r.TrackID]
			if !ok {
				continue
			}
			ranked[i].Codes = append(ranked[i].Codes, r.Code)
			ranked[i].Times = append(ranked[i].Times, r.Time)
		}
	}

	return ranked, nil
}

// GetTrack returns the track with its artist name, or nil if it does not exist.
func (c *DBClient) GetTrack(ctx context.Context, trackID string) (*models.Track, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var rows []trackRow
	err := c.DB.WithContext(ctx).
		Table("tracks").
		Select("tracks.*, artists.name AS artist_name").
		Joins("JOIN artists ON artists.id = tracks.artist_id").
		Where("tracks.id = ?", trackID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying track %s: %w", trackID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toModel(), nil
}

// GetTrackByName returns the first track of an artist whose name matches
// case-insensitively, or nil.
func (c *DBClient) GetTrackByName(ctx context.Context, name, artistID string) (*models.Track, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var rows []trackRow
	err := c.DB.WithContext(ctx).
		Table("tracks").
		Select("tracks.*, artists.name AS artist_name").
		Joins("JOIN artists ON artists.id = tracks.artist_id").
		Where("tracks.name LIKE ? ESCAPE '\\' AND tracks.artist_id = ?", escapeLike(name), artistID).
		Order("tracks.import_date").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying track by name: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toModel(), nil
}

func (c *DBClient) GetArtist(ctx context.Context, artistID string) (*models.Artist, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var artist Artist
	err := c.DB.WithContext(ctx).Where("id = ?", artistID).First(&artist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying artist %s: %w", artistID, err)
	}
	return &models.Artist{ID: artist.ID, Name: artist.Name}, nil
}

// GetArtistByName returns the oldest artist whose name matches
// case-insensitively, or nil.
func (c *DBClient) GetArtistByName(ctx context.Context, name string) (*models.Artist, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}
	var artist Artist
	err := c.DB.WithContext(ctx).
		Where("name LIKE ? ESCAPE '\\'", escapeLike(name)).
		Order("created_at, id").
		First(&artist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying artist by name: %w", err)
	}
	return &models.Artist{ID: artist.ID, Name: artist.Name}, nil
}

func (c *DBClient) AddArtist(ctx context.Context, name string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	artist := Artist{ID: utils.GenerateID(), Name: name}
	if err := c.DB.WithContext(ctx).Create(&artist).Error; err != nil {
		return "", fmt.Errorf("creating artist: %w", err)
	}
	return artist.ID, nil
}

// AddTrack inserts a track and bulk-loads all of its codes in one transaction.
func (c *DBClient) AddTrack(ctx context.Context, artistID string, fp models.Fingerprint) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	if len(artistID) != idLength || len(fp.CodeVersion) != 4 || fp.LengthSeconds < 0 {
		return "", errors.New("attempted to add track with missing fields")
	}
	if len(fp.Codes) != len(fp.Times) {
		return "", fmt.Errorf("codes/times length mismatch: %d != %d", len(fp.Codes), len(fp.Times))
	}

	track := Track{
		ID:          utils.GenerateID(),
		CodeVersion: fp.CodeVersion,
		Name:        fp.Track,
		ArtistID:    artistID,
		Length:      fp.LengthSeconds,
		ImportDate:  time.Now().UTC(),
	}

	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&track).Error; err != nil {
			return fmt.Errorf("creating track: %w", err)
		}

		entries := make([]Code, 0, insertBatchSize*2)
		flush := func() error {
			if len(entries) == 0 {
				return nil
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(entries, insertBatchSize).Error; err != nil {
				return fmt.Errorf("batch insert codes: %w", err)
			}
			entries = entries[:0]
			return nil
		}
		for i, code := range fp.Codes {
			entries = append(entries, Code{Code: code, Time: fp.Times[i], TrackID: track.ID})
			if len(entries) >= insertBatchSize*2 {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})
	if err != nil {
		return "", err
	}
	return track.ID, nil
}

// UpdateTrack sets a track's name and artist and reports whether a row changed.
func (c *DBClient) UpdateTrack(ctx context.Context, trackID, name, artistID string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	res := c.DB.WithContext(ctx).Model(&Track{}).
		Where("id = ?", trackID).
		Updates(map[string]any{"name": name, "artist_id": artistID})
	if res.Error != nil {
		return false, fmt.Errorf("updating track %s: %w", trackID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UpdateArtist renames an artist and reports whether a row changed.
func (c *DBClient) UpdateArtist(ctx context.Context, artistID, name string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	res := c.DB.WithContext(ctx).Model(&Artist{}).
		Where("id = ?", artistID).
		Update("name", name)
	if res.Error != nil {
		return false, fmt.Errorf("updating artist %s: %w", artistID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Stats counts the rows of each catalog table.
func (c *DBClient) Stats(ctx context.Context) (models.CatalogStats, error) {
	var stats models.CatalogStats
	if err := c.ready(); err != nil {
		return stats, err
	}
	db := c.DB.WithContext(ctx)
	if err := db.Model(&Track{}).Count(&stats.Tracks).Error; err != nil {
		return stats, fmt.Errorf("counting tracks: %w", err)
	}
	if err := db.Model(&Artist{}).Count(&stats.Artists).Error; err != nil {
		return stats, fmt.Errorf("counting artists: %w", err)
	}
	if err := db.Model(&Code{}).Count(&stats.Codes).Error; err != nil {
		return stats, fmt.Errorf("counting codes: %w", err)
	}
	return stats, nil
}

func (r trackRow) toModel() *models.Track {
	return &models.Track{
		ID:            r.ID,
		CodeVersion:   r.CodeVersion,
		Name:          r.Name,
		ArtistID:      r.ArtistID,
		ArtistName:    r.ArtistName,
		LengthSeconds: r.Length,
		ImportDate:    r.ImportDate,
	}
}

func dedupeCodes(codes []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(codes))
	out := make([]uint32, 0, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func chunkCodes(codes []uint32, size int) [][]uint32 {
	var chunks [][]uint32
	for start := 0; start < len(codes); start += size {
		end := min(start+size, len(codes))
		chunks = append(chunks, codes[start:end])
	}
	return chunks
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
