package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/IshaanNene/NewsGoat/internal/types"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS news (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT UNIQUE NOT NULL,
	source TEXT NOT NULL,
	title TEXT NOT NULL,
	subtitle TEXT,
	body TEXT,
	published_at TEXT,
	scraped_at TEXT NOT NULL,
	content_hash TEXT
)`

const sqliteInsert = `INSERT OR IGNORE INTO news
	(url, source, title, subtitle, body, published_at, scraped_at, content_hash)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteStorage keeps articles in a SQLite table keyed by URL. Articles
// already stored by an earlier run are skipped and counted as duplicates.
type SQLiteStorage struct {
	db         *sql.DB
	mu         sync.Mutex
	inserted   int
	duplicates int
	logger     *slog.Logger
}

// NewSQLiteStorage opens (or creates) the database at path.
func NewSQLiteStorage(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s, err := NewSQLiteStorageDB(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStorageDB uses an already opened database and creates the schema.
func NewSQLiteStorageDB(db *sql.DB, logger *slog.Logger) (*SQLiteStorage, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStorage{
		db:     db,
		logger: logger.With("component", "sqlite_storage"),
	}, nil
}

func (s *SQLiteStorage) Name() string { return "sqlite" }

// Store inserts the batch in one transaction.
func (s *SQLiteStorage) Store(articles []*types.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("begin: %w", err)}
	}
	stmt, err := tx.Prepare(sqliteInsert)
	if err != nil {
		tx.Rollback()
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("prepare: %w", err)}
	}
	defer stmt.Close()

	inserted, duplicates := 0, 0
	for _, a := range articles {
		var published any
		if a.PublishedAt != nil {
			published = a.PublishedAt.Format(time.RFC3339)
		}
		res, err := stmt.Exec(a.URL, a.SourceID, a.Title, a.Subtitle, a.Body,
			published, a.FetchedAt.Format(time.RFC3339), a.ContentHash)
		if err != nil {
			tx.Rollback()
			return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("insert %s: %w", a.URL, err)}
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			duplicates++
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("commit: %w", err)}
	}

	s.inserted += inserted
	s.duplicates += duplicates
	s.logger.Debug("articles stored", "inserted", inserted, "duplicates", duplicates)
	return nil
}

// Counts returns how many articles were inserted and how many were already
// present.
func (s *SQLiteStorage) Counts() (inserted, duplicates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserted, s.duplicates
}

func (s *SQLiteStorage) Close() error {
	s.logger.Info("sqlite storage closing", "inserted", s.inserted, "duplicates", s.duplicates)
	return s.db.Close()
}
