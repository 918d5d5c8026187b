package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
)

var (
	// ErrFileNotFound indicates the stored attachment does not exist
	ErrFileNotFound = errors.New("file not found")
	// ErrFileWriteFailed indicates a failure while writing an attachment
	ErrFileWriteFailed = errors.New("failed to write file")
	// ErrFileReadFailed indicates a failure while reading an attachment
	ErrFileReadFailed = errors.New("failed to read file")
	// ErrInvalidLocation indicates a location outside the store
	ErrInvalidLocation = errors.New("invalid storage location")
)

// Store keeps fetched attachments. Attachments are grouped by the mailbox
// message id so re-fetching a message overwrites instead of duplicating.
// index is the attachment's position in its message; it keeps same-named
// attachments apart.
type Store interface {
	Save(ctx context.Context, group string, index int, filename string, content []byte) (models.AttachmentRef, error)
	Open(ctx context.Context, location string) ([]byte, error)
}

// New builds the store selected by cfg.Backend
func New(ctx context.Context, cfg config.StorageConfig, localDir string) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return NewLocalStore(localDir), nil
	case "minio":
		s, err := NewMinioStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// storedName is the on-disk or object name of the index-th attachment
func storedName(index int, filename string) string {
	return fmt.Sprintf("%d_%s", index, sanitizeFilename(filename))
}

// sanitizeFilename removes or replaces unsafe characters from filenames
func sanitizeFilename(name string) string {
	result := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, name)
	// Use filepath.Base to prevent directory traversal
	result = filepath.Base(result)
	if result == "." || result == ".." || result == "" {
		return "_"
	}
	return result
}
