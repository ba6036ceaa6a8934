/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Store keeps every location's media files under its own directory below the
// media root. Filenames are unique within a location; saving an existing name
// overwrites it.
type Store struct {
	rootDir string
	logger  zerolog.Logger
}

// NewStore creates a filesystem media store rooted at rootDir.
func NewStore(rootDir string, logger zerolog.Logger) *Store {
	return &Store{
		rootDir: rootDir,
		logger:  logger.With().Str("component", "media").Logger(),
	}
}

// Dir returns the directory that holds a location's media.
func (s *Store) Dir(location string) string {
	return filepath.Join(s.rootDir, location)
}

// Path returns the full path of a media file within a location.
func (s *Store) Path(location, filename string) string {
	return filepath.Join(s.rootDir, location, filepath.Base(filename))
}

// Exists reports whether a media file is present on disk.
func (s *Store) Exists(location, filename string) bool {
	_, err := os.Stat(s.Path(location, filename))
	return err == nil
}

// Save writes a media file under the location directory. The write goes to a
// temp file first so a torn upload never leaves a half-written file behind the
// scheduler's back.
func (s *Store) Save(location, filename string, src io.Reader) (string, error) {
	dir := s.Dir(location)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	finalPath := s.Path(location, filename)
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close media file: %w", err)
	}

	if err := os.Rename(tmpName, finalPath); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("finalize media file: %w", err)
	}

	s.logger.Debug().Str("location", location).Str("path", finalPath).Msg("media file stored")
	return finalPath, nil
}

// Remove deletes a media file. Removing an already-missing file is not an
// error.
func (s *Store) Remove(location, filename string) error {
	path := s.Path(location, filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}

// Open opens a media file for reading.
func (s *Store) Open(location, filename string) (*os.File, error) {
	return os.Open(s.Path(location, filename))
}
