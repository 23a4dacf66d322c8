package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleArticles() []*types.Article {
	published := time.Date(2025, 12, 28, 10, 30, 0, 0, time.UTC)
	fetched := time.Date(2025, 12, 28, 12, 0, 0, 0, time.UTC)
	return []*types.Article{
		{
			SourceID:    "sanjuan8",
			URL:         "https://www.sanjuan8.com/sociedad/nota-1",
			Title:       "Obras en Rivadavia",
			Subtitle:    "Comienzan el lunes",
			Body:        "El municipio anunció obras de pavimento <en> tres barrios.",
			PublishedAt: &published,
			FetchedAt:   fetched,
			ContentHash: "abc",
		},
		{
			SourceID:    "telesol",
			URL:         "https://www.telesol.com.ar/nota-2",
			Title:       "Corte de agua, \"programado\"",
			Body:        "Obras Sanitarias informó un corte.",
			FetchedAt:   fetched,
			ContentHash: "def",
		},
	}
}

func TestJSONStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "articles.json")
	s, err := NewJSONStorage(path, testLogger)
	require.NoError(t, err)

	arts := sampleArticles()
	require.NoError(t, s.Store(arts[:1]))
	require.NoError(t, s.Store(arts[1:]))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<en>")

	var got []types.Article
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "sanjuan8", got[0].SourceID)
	assert.Nil(t, got[1].PublishedAt)
}

func TestJSONLStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.jsonl")
	s, err := NewJSONLStorage(path, testLogger)
	require.NoError(t, err)
	require.NoError(t, s.Store(sampleArticles()))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var a types.Article
		require.NoError(t, json.Unmarshal(sc.Bytes(), &a))
		urls = append(urls, a.URL)
	}
	assert.Equal(t, []string{
		"https://www.sanjuan8.com/sociedad/nota-1",
		"https://www.telesol.com.ar/nota-2",
	}, urls)
}

func TestCSVStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.csv")
	s, err := NewCSVStorage(path, testLogger)
	require.NoError(t, err)

	arts := sampleArticles()
	require.NoError(t, s.Store(arts[:1]))
	require.NoError(t, s.Store(arts[1:]))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvColumns, rows[0])
	assert.Equal(t, "2025-12-28T10:30:00Z", rows[1][5])
	assert.Equal(t, `Corte de agua, "programado"`, rows[2][2])
	assert.Empty(t, rows[2][5])
}

func TestNewBuildsConfiguredSinks(t *testing.T) {
	dir := t.TempDir()
	s, err := New(config.StorageConfig{Type: "json, csv", OutputPath: dir}, testLogger)
	require.NoError(t, err)

	assert.IsType(t, &MultiStorage{}, s)
	assert.Equal(t, "json,csv", s.Name())
	require.NoError(t, s.Store(sampleArticles()))
	require.NoError(t, s.Close())

	assert.FileExists(t, filepath.Join(dir, "articles.json"))
	assert.FileExists(t, filepath.Join(dir, "articles.csv"))

	single, err := New(config.StorageConfig{Type: "jsonl", OutputPath: dir}, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "jsonl", single.Name())
	require.NoError(t, single.Close())
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(config.StorageConfig{Type: "xml", OutputPath: t.TempDir()}, testLogger)
	var serr *types.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "xml", serr.Backend)
}

type failingStorage struct {
	stored int
}

func (f *failingStorage) Store(articles []*types.Article) error {
	f.stored += len(articles)
	return errors.New("disk full")
}
func (f *failingStorage) Close() error { return nil }
func (f *failingStorage) Name() string { return "failing" }

func TestMultiStorageContinuesPastFailures(t *testing.T) {
	bad := &failingStorage{}
	good, err := NewJSONStorage(filepath.Join(t.TempDir(), "a.json"), testLogger)
	require.NoError(t, err)

	m := NewMultiStorage([]Storage{bad, good}, testLogger)
	err = m.Store(sampleArticles())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 2, bad.stored)
	assert.Len(t, good.articles, 2)
	require.NoError(t, m.Close())
}

func TestSQLiteStorageCountsDuplicates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS news").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewSQLiteStorageDB(db, testLogger)
	require.NoError(t, err)

	arts := sampleArticles()
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT OR IGNORE INTO news")
	prep.ExpectExec().
		WithArgs(arts[0].URL, "sanjuan8", arts[0].Title, arts[0].Subtitle, arts[0].Body,
			"2025-12-28T10:30:00Z", "2025-12-28T12:00:00Z", "abc").
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs(arts[1].URL, "telesol", arts[1].Title, "", arts[1].Body,
			nil, sqlmock.AnyArg(), "def").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, s.Store(arts))
	inserted, dups := s.Counts()
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 1, dups)

	mock.ExpectClose()
	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStorageRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewSQLiteStorageDB(db, testLogger)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT OR IGNORE").ExpectExec().WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	err = s.Store(sampleArticles()[:1])
	var serr *types.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "sqlite", serr.Backend)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertModelsKeyOnURL(t *testing.T) {
	arts := sampleArticles()
	models := upsertModels(arts)
	require.Len(t, models, 2)

	m, ok := models[1].(*mongo.ReplaceOneModel)
	require.True(t, ok)
	assert.Equal(t, bson.D{{Key: "url", Value: arts[1].URL}}, m.Filter)
	assert.Same(t, arts[1], m.Replacement)
	require.NotNil(t, m.Upsert)
	assert.True(t, *m.Upsert)
}
