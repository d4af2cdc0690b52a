package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FFmpegTranscoder converts audio files to WAV by shelling out to ffmpeg.
type FFmpegTranscoder struct {
	ffmpegPath string
	logger     *slog.Logger
}

// NewFFmpegTranscoder creates a transcoder using the given ffmpeg binary.
// An empty path resolves to "ffmpeg" on PATH.
func NewFFmpegTranscoder(ffmpegPath string, logger *slog.Logger) *FFmpegTranscoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	return &FFmpegTranscoder{
		ffmpegPath: ffmpegPath,
		logger:     logger,
	}
}

// ToWAV converts the file at path to a 16-bit mono WAV in the temp dir
// and returns the converted file's path. The caller owns the temp file
// and must remove it when done.
func (t *FFmpegTranscoder) ToWAV(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return path, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", err
	}

	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("transcode_%s.wav", uuid.New().String()))

	start := time.Now()
	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-y",
		"-i", path,
		"-acodec", "pcm_s16le",
		"-ac", "1",
		outPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("ffmpeg conversion of %s failed: %w: %s",
			path, err, truncateOutput(output))
	}

	t.logger.Info("Audio converted to WAV",
		slog.String("source", path),
		slog.String("output", outPath),
		slog.Duration("duration", time.Since(start)),
	)

	return outPath, nil
}

func truncateOutput(output []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(output))
	if len(s) > maxLen {
		return s[len(s)-maxLen:]
	}
	return s
}
