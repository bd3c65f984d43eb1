package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const sessionFileName = "session.json"

// FileStore keeps the session record in a single JSON file on the local filesystem.
type FileStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileStore creates a new file-backed store.
// If baseDir is empty, uses ~/.reflections/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".reflections")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("session store initialized")

	return &FileStore{baseDir: baseDir}, nil
}

// Path returns the location of the session file.
func (s *FileStore) Path() string {
	return filepath.Join(s.baseDir, sessionFileName)
}

// Read loads the session record, purging the file if it is corrupt.
func (s *FileStore) Read(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		log.Debug().Err(err).Str("path", s.Path()).Msg("discarding unreadable session")
		if err := s.remove(); err != nil {
			log.Warn().Err(err).Msg("failed to purge session file")
		}
		return nil, nil
	}

	return rec, nil
}

// Write saves the session record atomically.
func (s *FileStore) Write(ctx context.Context, rec *Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write to temp file first
	path := s.Path()
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save session: %w", err)
	}

	log.Debug().
		Str("user", rec.User.ID).
		Str("access", Fingerprint(rec.AccessToken)).
		Msg("session saved")

	return nil
}

// Clear removes the session file.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.remove(); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

func (s *FileStore) remove() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
