package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ipbeacon/internal/utils"

	"go.uber.org/zap"
)

// Store persists the last successfully pushed address in a single text file
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore creates a store backed by the given file path
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
	}
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Read returns the cached address, or "" when the file is missing,
// unreadable, or holds something that is not a valid IPv4 address.
// Read failures never surface as errors; the loop treats them as
// "no previous state"
func (s *Store) Read() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read cache file",
				zap.String("path", s.path),
				zap.Error(err))
		}
		return ""
	}

	ip := strings.TrimSpace(string(data))
	if !utils.IsValidIPv4(ip) {
		s.logger.Warn("Cache file holds invalid address, ignoring",
			zap.String("path", s.path))
		return ""
	}

	return ip
}

// Write records the address, creating parent directories as needed.
// The file is written to a temporary name and renamed into place so a
// partial write never clobbers the previous value
func (s *Store) Write(ip string) error {
	if !utils.IsValidIPv4(ip) {
		return fmt.Errorf("refusing to cache invalid address: %q", ip)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	tmpFile := s.path + ".tmp"
	if err := os.WriteFile(tmpFile, []byte(ip), 0644); err != nil {
		return fmt.Errorf("failed to write temporary cache file: %w", err)
	}

	if err := os.Rename(tmpFile, s.path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to save cache file: %w", err)
	}

	return nil
}
