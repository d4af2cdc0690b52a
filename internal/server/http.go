package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Fbeunder/RecordingTranscribe/internal/capture"
	"github.com/Fbeunder/RecordingTranscribe/internal/config"
	"github.com/Fbeunder/RecordingTranscribe/internal/metrics"
	"github.com/Fbeunder/RecordingTranscribe/internal/recorder"
	"github.com/Fbeunder/RecordingTranscribe/internal/storage"
	"github.com/Fbeunder/RecordingTranscribe/internal/transcription"
)

// Dutch user-facing error messages.
const (
	msgNoAudioRecorded    = "Geen audio opgenomen"
	msgNoAudioFile        = "Geen audiobestand opgegeven"
	msgUnsupportedFormat  = "Audioformaat wordt niet ondersteund"
	msgFileNotFound       = "Audiobestand niet gevonden"
	msgUnsupportedLang    = "Taal wordt niet ondersteund"
	msgServiceUnavailable = "Transcriptieservice niet bereikbaar"
	msgInvalidRequest     = "Ongeldige aanvraag"
)

// RecordingController drives the recording session.
type RecordingController interface {
	ListDevices() []capture.Device
	Start(deviceID int) error
	Stop() ([]byte, error)
	Save(wav []byte, filename string) (string, error)
	Status() recorder.Status
}

// TranscriptionService transcribes stored audio files.
type TranscriptionService interface {
	TranscribeFile(ctx context.Context, path string, language string) (*transcription.Result, error)
}

// TextStore persists transcription text and checks stored files.
type TextStore interface {
	SaveText(text string, filename string) (string, error)
	Exists(path string) bool
}

// StatsProvider reports recognition client statistics for /health.
type StatsProvider interface {
	GetStats() transcription.ClientStats
}

// HTTPServer provides the HTTP JSON API for recording and transcription
type HTTPServer struct {
	server        *http.Server
	logger        *slog.Logger
	recorder      RecordingController
	transcriber   TranscriptionService
	store         TextStore
	statsProvider StatsProvider
	metrics       *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	rec RecordingController, transcriber TranscriptionService,
	store TextStore, statsProvider StatsProvider, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:        logger,
		recorder:      rec,
		transcriber:   transcriber,
		store:         store,
		statsProvider: statsProvider,
		metrics:       m,
		startTime:     time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // transcription of long recordings is slow
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/devices", h.withMetrics("/api/devices", h.handleDevices))
	mux.HandleFunc("/api/record/start", h.withMetrics("/api/record/start", h.handleRecordStart))
	mux.HandleFunc("/api/record/stop", h.withMetrics("/api/record/stop", h.handleRecordStop))
	mux.HandleFunc("/api/record/status", h.withMetrics("/api/record/status", h.handleRecordStatus))
	mux.HandleFunc("/api/transcribe", h.withMetrics("/api/transcribe", h.handleTranscribe))
	mux.HandleFunc("/api/languages", h.withMetrics("/api/languages", h.handleLanguages))

	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (h *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// handleDevices implements GET /api/devices
func (h *HTTPServer) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	devices := h.recorder.ListDevices()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
	})
}

type recordStartRequest struct {
	DeviceID int `json:"device_id"`
}

// handleRecordStart implements POST /api/record/start
func (h *HTTPServer) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req recordStartRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, msgInvalidRequest)
			return
		}
	}

	if err := h.recorder.Start(req.DeviceID); err != nil {
		h.logger.Error("Failed to start recording",
			slog.Int("device_id", req.DeviceID),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, "Opname starten mislukt")
		return
	}

	h.metrics.RecordRecordingStarted()

	status := h.recorder.Status()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "recording",
		"device_id": status.DeviceID,
	})
}

type recordStopRequest struct {
	Filename string `json:"filename"`
}

// handleRecordStop implements POST /api/record/stop. The captured audio
// is saved as a WAV file in the download directory.
func (h *HTTPServer) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req recordStopRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, msgInvalidRequest)
			return
		}
	}

	status := h.recorder.Status()

	wav, err := h.recorder.Stop()
	if err != nil {
		h.logger.Error("Failed to stop recording", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "Opname stoppen mislukt")
		return
	}

	if len(wav) == 0 {
		// The session is gone either way; the active gauge must not
		// stay raised for a recording that produced nothing.
		h.metrics.RecordRecordingStopped(status.Duration.Seconds())
		h.writeError(w, http.StatusBadRequest, msgNoAudioRecorded)
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = "opname.wav"
	}

	path, err := h.recorder.Save(wav, filename)
	if err != nil {
		h.logger.Error("Failed to save recording", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "Opname opslaan mislukt")
		return
	}

	h.metrics.RecordRecordingStopped(status.Duration.Seconds())
	h.metrics.RecordFileSaved(len(wav))

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "stopped",
		"filename":  filepath.Base(path),
		"file_path": path,
		"file_size": len(wav),
	})
}

// handleRecordStatus implements GET /api/record/status
func (h *HTTPServer) handleRecordStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, h.recorder.Status())
}

type transcribeRequest struct {
	AudioFile string `json:"audio_file"`
	Language  string `json:"language"`
}

// handleTranscribe implements POST /api/transcribe. The resulting text
// is saved as a .txt file in the download directory; a recording with
// no recognizable speech yields a fixed message instead of an error.
func (h *HTTPServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	if req.AudioFile == "" {
		h.writeError(w, http.StatusBadRequest, msgNoAudioFile)
		return
	}

	if !storage.IsSupportedAudio(req.AudioFile) {
		h.writeError(w, http.StatusBadRequest, msgUnsupportedFormat)
		return
	}

	if req.Language != "" && !transcription.IsSupported(req.Language) {
		h.writeError(w, http.StatusBadRequest, msgUnsupportedLang)
		return
	}

	if !h.store.Exists(req.AudioFile) {
		h.writeError(w, http.StatusNotFound, msgFileNotFound)
		return
	}

	startTime := time.Now()
	h.metrics.RecordTranscriptionRequest()

	result, err := h.transcriber.TranscribeFile(r.Context(), req.AudioFile, req.Language)
	if err != nil {
		if errors.Is(err, transcription.ErrNoSpeech) {
			// Not an error for the caller: the recording simply holds
			// no recognizable speech.
			result = &transcription.Result{
				Text:     transcription.NoSpeechMessage,
				Language: req.Language,
			}
		} else if errors.Is(err, storage.ErrFileNotFound) {
			h.writeError(w, http.StatusNotFound, msgFileNotFound)
			return
		} else {
			h.metrics.RecordTranscriptionFailure(time.Since(startTime).Seconds())
			h.logger.Error("Transcription failed",
				slog.String("audio_file", req.AudioFile),
				slog.String("error", err.Error()),
			)
			h.writeError(w, http.StatusBadGateway, msgServiceUnavailable)
			return
		}
	} else {
		h.metrics.RecordTranscriptionSuccess(time.Since(startTime).Seconds())
	}

	textName := strings.TrimSuffix(filepath.Base(req.AudioFile), filepath.Ext(req.AudioFile)) + ".txt"
	textPath, err := h.store.SaveText(result.Text, textName)
	textFilename := filepath.Base(textPath)
	if err != nil {
		h.logger.Warn("Failed to save transcription text",
			slog.String("filename", textName),
			slog.String("error", err.Error()),
		)
		textPath = ""
		textFilename = ""
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"text":      result.Text,
		"filename":  textFilename,
		"file_path": textPath,
		"language":  result.Language,
	})
}

// handleLanguages implements GET /api/languages. The grouped query
// parameter returns the popular/other split used by language pickers.
func (h *HTTPServer) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch {
	case r.URL.Query().Get("grouped") == "true":
		grouped := make(map[string]map[string]string)
		for group, languages := range transcription.Grouped() {
			grouped[group] = languageMap(languages)
		}
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"languages": grouped,
		})
	case r.URL.Query().Get("popular") == "true":
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"languages": languageMap(transcription.Popular()),
		})
	default:
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"languages": languageMap(transcription.Supported()),
			"default":   transcription.DefaultLanguageCode,
		})
	}
}

// languageMap flattens a language list into the code→name object the
// API exposes.
func languageMap(languages []transcription.Language) map[string]string {
	m := make(map[string]string, len(languages))
	for _, lang := range languages {
		m[lang.Code] = lang.Name
	}
	return m
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	recordingStatus := h.recorder.Status()
	transcriptionStats := h.statsProvider.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "record-transcribe",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"recorder": map[string]interface{}{
				"status":    "running",
				"active":    recordingStatus.Active,
				"device_id": recordingStatus.DeviceID,
				"frames":    recordingStatus.Frames,
			},
			"transcription": map[string]interface{}{
				"status":          "running",
				"total_requests":  transcriptionStats.TotalRequests,
				"success_rate":    transcriptionStats.SuccessRate,
				"active_requests": transcriptionStats.ActiveRequests,
			},
		},
	}

	h.writeJSON(w, http.StatusOK, health)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Record & Transcribe Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":                  "API documentation",
			"GET /api/devices":       "List audio input devices",
			"POST /api/record/start": "Start a recording session",
			"POST /api/record/stop":  "Stop recording and save the WAV file",
			"GET /api/record/status": "Current recording session status",
			"POST /api/transcribe":   "Transcribe a saved audio file",
			"GET /api/languages":     "Supported transcription languages",
			"GET /health":            "Service health check",
			"GET /metrics":           "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	h.writeJSON(w, http.StatusOK, apiDoc)
}
