package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoSpeech is returned when the recognition API produced no text
// for the recording.
var ErrNoSpeech = errors.New("no speech recognized")

// NoSpeechMessage is the user-facing text for recordings without
// recognizable speech.
const NoSpeechMessage = "Kon geen spraak herkennen in de opname."

// Recognizer performs a single recognition request.
type Recognizer interface {
	Recognize(ctx context.Context, request *Request) (*Response, error)
}

// Transcoder converts an audio file to WAV and returns the converted
// path. Returning the input path means no conversion was needed.
type Transcoder interface {
	ToWAV(ctx context.Context, path string) (string, error)
}

// Loader reads a stored file from disk.
type Loader interface {
	Load(path string) ([]byte, error)
}

// Result holds the outcome of a file transcription.
type Result struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Service transcribes stored audio files: it converts non-WAV input,
// picks or detects the language and calls the recognition API.
type Service struct {
	recognizer Recognizer
	transcoder Transcoder
	loader     Loader
	logger     *slog.Logger

	defaultLanguage string
	detectLanguages []string
}

// NewService creates a transcription service. detectLanguages are the
// candidates probed when no language is requested; when empty, the
// popular languages are probed.
func NewService(recognizer Recognizer, transcoder Transcoder, loader Loader, defaultLanguage string, detectLanguages []string, logger *slog.Logger) *Service {
	if defaultLanguage == "" || !IsSupported(defaultLanguage) {
		defaultLanguage = DefaultLanguageCode
	}

	if len(detectLanguages) == 0 {
		for _, lang := range Popular() {
			detectLanguages = append(detectLanguages, lang.Code)
		}
	}

	return &Service{
		recognizer:      recognizer,
		transcoder:      transcoder,
		loader:          loader,
		logger:          logger,
		defaultLanguage: defaultLanguage,
		detectLanguages: detectLanguages,
	}
}

// TranscribeFile transcribes the audio file at path. An empty language
// triggers auto-detection over the configured candidate languages; an
// unsupported language falls back to the default. Returns ErrNoSpeech
// when the recording contains no recognizable speech.
func (s *Service) TranscribeFile(ctx context.Context, path string, language string) (*Result, error) {
	wavPath, err := s.transcoder.ToWAV(ctx, path)
	if err != nil {
		return nil, err
	}

	// Converted files are temporary and cleaned up after upload.
	if wavPath != path {
		defer os.Remove(wavPath)
	}

	audio, err := s.loader.Load(wavPath)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(wavPath)

	if language == "" {
		return s.detect(ctx, audio, filename)
	}

	if !IsSupported(language) {
		s.logger.Warn("Unsupported language requested, using default",
			slog.String("language", language),
			slog.String("default", s.defaultLanguage),
		)
		language = s.defaultLanguage
	}

	return s.recognize(ctx, audio, filename, language)
}

// recognize performs one recognition call in a fixed language.
func (s *Service) recognize(ctx context.Context, audio []byte, filename, language string) (*Result, error) {
	resp, err := s.recognizer.Recognize(ctx, &Request{
		Audio:    audio,
		Filename: filename,
		Language: language,
	})
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, ErrNoSpeech
	}

	detected := resp.Language
	if detected == "" {
		detected = language
	}

	s.logger.Info("Transcription completed",
		slog.String("filename", filename),
		slog.String("language", detected),
		slog.Int("text_length", len(text)),
	)

	return &Result{Text: text, Language: detected}, nil
}

// detect probes the candidate languages and keeps the result with the
// highest confidence. The default language is tried first so a tie
// resolves in its favor.
func (s *Service) detect(ctx context.Context, audio []byte, filename string) (*Result, error) {
	candidates := s.detectCandidates()

	var (
		best           *Result
		bestConfidence float32 = -1
		lastErr        error
	)

	for _, language := range candidates {
		resp, err := s.recognizer.Recognize(ctx, &Request{
			Audio:    audio,
			Filename: filename,
			Language: language,
		})
		if err != nil {
			lastErr = err
			continue
		}

		text := strings.TrimSpace(resp.Text)
		if text == "" {
			continue
		}

		if resp.Confidence > bestConfidence {
			detected := resp.Language
			if detected == "" {
				detected = language
			}
			best = &Result{Text: text, Language: detected}
			bestConfidence = resp.Confidence
		}
	}

	if best == nil {
		if lastErr != nil {
			return nil, fmt.Errorf("language detection failed: %w", lastErr)
		}
		return nil, ErrNoSpeech
	}

	s.logger.Info("Language detected",
		slog.String("filename", filename),
		slog.String("language", best.Language),
		slog.Float64("confidence", float64(bestConfidence)),
	)

	return best, nil
}

// detectCandidates puts the default language first and drops
// unsupported or duplicate codes.
func (s *Service) detectCandidates() []string {
	candidates := make([]string, 0, len(s.detectLanguages)+1)
	seen := map[string]bool{s.defaultLanguage: true}
	candidates = append(candidates, s.defaultLanguage)

	for _, code := range s.detectLanguages {
		if seen[code] || !IsSupported(code) {
			continue
		}
		seen[code] = true
		candidates = append(candidates, code)
	}

	return candidates
}
