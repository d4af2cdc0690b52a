package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrFileNotFound is returned by Load when the requested path does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrEmptyPayload is returned when a save is attempted with no data.
var ErrEmptyPayload = errors.New("empty payload")

// SupportedAudioExtensions lists the audio formats accepted for transcription.
// Non-WAV formats are converted before upload.
var SupportedAudioExtensions = []string{".wav", ".mp3", ".ogg", ".flac", ".m4a", ".aac"}

// Store persists byte and text payloads under a download directory.
// Saved files are immutable; every save produces a new timestamped name.
type Store struct {
	dir    string
	logger *slog.Logger

	now func() time.Time // test hook
}

// NewStore creates a file store rooted at dir. When dir cannot be created
// or is not a usable directory, the store falls back to a subdirectory of
// the system temp dir so that saves keep working.
func NewStore(dir string, logger *slog.Logger) *Store {
	resolved, err := ensureDir(dir)
	if err != nil {
		fallback := filepath.Join(os.TempDir(), "record-transcribe")
		logger.Warn("Download directory not usable, falling back to temp dir",
			slog.String("download_dir", dir),
			slog.String("fallback", fallback),
			slog.String("error", err.Error()),
		)

		if resolved, err = ensureDir(fallback); err != nil {
			// Last resort: the temp dir itself always exists.
			resolved = os.TempDir()
		}
	}

	return &Store{
		dir:    resolved,
		logger: logger,
		now:    time.Now,
	}
}

func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}

	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}

	return dir, nil
}

// Dir returns the resolved download directory.
func (s *Store) Dir() string {
	return s.dir
}

// SaveBytes writes a binary payload under a timestamped unique name
// derived from filename and returns the full path.
func (s *Store) SaveBytes(data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPayload
	}

	path := s.uniquePath(filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}

	s.logger.Info("File saved",
		slog.String("path", path),
		slog.Int("size", len(data)),
	)

	return path, nil
}

// SaveText writes a text payload under a timestamped unique name
// derived from filename and returns the full path.
func (s *Store) SaveText(text string, filename string) (string, error) {
	if text == "" {
		return "", ErrEmptyPayload
	}

	return s.SaveBytes([]byte(text), filename)
}

// Load reads a file from disk. Returns ErrFileNotFound when the path
// does not exist.
func (s *Store) Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return data, nil
}

// Exists reports whether the given path is an existing regular file.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// uniquePath builds a download path <stem>_<YYYYMMDD-HHMMSS><ext>.
// When two saves land in the same second a numeric suffix keeps the
// name unique.
func (s *Store) uniquePath(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	timestamp := s.now().Format("20060102-150405")
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s%s", stem, timestamp, ext))

	for n := 2; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(s.dir, fmt.Sprintf("%s_%s_%d%s", stem, timestamp, n, ext))
	}
}

// IsSupportedAudio reports whether the file extension is an accepted
// audio format for transcription.
func IsSupportedAudio(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range SupportedAudioExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
