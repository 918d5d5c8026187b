package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
)

// LocalStore keeps attachments under a directory on disk
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a store rooted at baseDir
func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{baseDir: baseDir}
}

// Save writes content to <base>/<group>/<index>_<filename>
func (s *LocalStore) Save(ctx context.Context, group string, index int, filename string, content []byte) (models.AttachmentRef, error) {
	dir := filepath.Join(s.baseDir, sanitizeFilename(group))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.AttachmentRef{}, fmt.Errorf("%w: %s", ErrFileWriteFailed, err.Error())
	}

	filePath := filepath.Join(dir, storedName(index, filename))
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return models.AttachmentRef{}, fmt.Errorf("%w: %s", ErrFileWriteFailed, err.Error())
	}

	return models.AttachmentRef{Filename: filename, Location: filePath, Size: int64(len(content))}, nil
}

// Open reads a previously saved attachment
func (s *LocalStore) Open(ctx context.Context, location string) ([]byte, error) {
	if err := s.validate(location); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(location)
	if os.IsNotExist(err) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileReadFailed, err.Error())
	}
	return content, nil
}

// validate rejects locations outside the base directory
func (s *LocalStore) validate(location string) error {
	base, err := filepath.Abs(s.baseDir)
	if err != nil {
		return err
	}
	target, err := filepath.Abs(location)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(target, base+string(filepath.Separator)) {
		return ErrInvalidLocation
	}
	return nil
}
