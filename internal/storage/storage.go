// Package storage persists the articles of a run. Sinks sit outside the
// scraping core and only ever see the final, deduplicated records.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/types"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists a batch of articles.
	Store(articles []*types.Article) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New builds the sinks named in cfg.Type, a comma-separated list such as
// "json,sqlite". Several sinks are combined into a MultiStorage.
func New(cfg config.StorageConfig, logger *slog.Logger) (Storage, error) {
	var backends []Storage
	closeAll := func() {
		for _, b := range backends {
			_ = b.Close()
		}
	}

	for _, kind := range strings.Split(cfg.Type, ",") {
		kind = strings.ToLower(strings.TrimSpace(kind))
		var (
			s   Storage
			err error
		)
		switch kind {
		case "json", "jsonl", "csv":
			s, err = NewFileStorage(kind, cfg.OutputPath, logger)
		case "sqlite":
			s, err = NewSQLiteStorage(cfg.SQLitePath, logger)
		case "mongo", "mongodb":
			s, err = NewMongoStorage(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
		default:
			err = fmt.Errorf("unsupported storage type: %s", kind)
		}
		if err != nil {
			closeAll()
			return nil, &types.StorageError{Backend: kind, Err: err}
		}
		backends = append(backends, s)
	}

	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMultiStorage(backends, logger), nil
}

// NewFileStorage creates the appropriate file-based storage by type.
func NewFileStorage(storageType, outputDir string, logger *slog.Logger) (Storage, error) {
	switch storageType {
	case "json":
		return NewJSONStorage(filepath.Join(outputDir, "articles.json"), logger)
	case "jsonl":
		return NewJSONLStorage(filepath.Join(outputDir, "articles.jsonl"), logger)
	case "csv":
		return NewCSVStorage(filepath.Join(outputDir, "articles.csv"), logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// MultiStorage writes articles to multiple backends.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string {
	names := make([]string, len(s.backends))
	for i, b := range s.backends {
		names[i] = b.Name()
	}
	return strings.Join(names, ",")
}

// Store writes to every backend even when one fails; the failures are
// joined in the returned error.
func (s *MultiStorage) Store(articles []*types.Article) error {
	var errs []error
	for _, backend := range s.backends {
		if err := backend.Store(articles); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *MultiStorage) Close() error {
	var errs []error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
