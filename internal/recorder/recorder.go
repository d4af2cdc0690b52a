package recorder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Fbeunder/RecordingTranscribe/internal/audio"
	"github.com/Fbeunder/RecordingTranscribe/internal/capture"
	"github.com/Fbeunder/RecordingTranscribe/internal/config"
)

// ErrNoAudio is returned by Save when the payload is empty.
var ErrNoAudio = errors.New("no audio recorded")

// Saver persists a binary payload and returns the resulting path.
type Saver interface {
	SaveBytes(data []byte, filename string) (string, error)
}

// DefaultDevice is reported when enumeration fails or yields no usable
// input device, so clients always have something to record from.
var DefaultDevice = capture.Device{
	ID:       0,
	Name:     "Default Microphone",
	Channels: 1,
}

// Status describes the current recording session.
type Status struct {
	Active   bool          `json:"active"`
	DeviceID int           `json:"device_id"`
	Duration time.Duration `json:"duration"`
	Frames   int           `json:"frames"`
	Bytes    int           `json:"bytes"`
}

// session holds the state owned by one start/stop cycle. The capture
// worker only ever touches its own session, so a stuck worker from a
// previous session cannot write into a restarted one.
type session struct {
	stream    capture.Stream
	frames    *audio.FrameBuffer
	done      chan struct{}
	stop      atomic.Bool
	deviceID  int
	startedAt time.Time
}

// Recorder owns the single recording session. All state transitions are
// serialized through mu; the capture worker is the only writer of its
// session's frame buffer.
type Recorder struct {
	backend capture.Backend
	store   Saver
	logger  *slog.Logger
	cfg     config.AudioConfig

	mu      sync.Mutex
	current *session
}

// NewRecorder creates a recorder using the given capture backend and store.
func NewRecorder(backend capture.Backend, store Saver, cfg config.AudioConfig, logger *slog.Logger) *Recorder {
	return &Recorder{
		backend: backend,
		store:   store,
		logger:  logger,
		cfg:     cfg,
	}
}

// ListDevices enumerates input devices. Devices without input channels
// are filtered out. When enumeration fails or no input device remains,
// a single synthetic default device is returned so recording can still
// be attempted.
func (r *Recorder) ListDevices() []capture.Device {
	devices, err := r.backend.Devices()
	if err != nil {
		r.logger.Warn("Device enumeration failed, using default device",
			slog.String("error", err.Error()),
		)
		return []capture.Device{DefaultDevice}
	}

	inputs := make([]capture.Device, 0, len(devices))
	for _, d := range devices {
		if d.Channels > 0 {
			inputs = append(inputs, d)
		}
	}

	if len(inputs) == 0 {
		r.logger.Warn("No input devices found, using default device")
		return []capture.Device{DefaultDevice}
	}

	return inputs
}

// Start begins a new recording session on the given device. An active
// session is stopped and discarded first. When the requested device
// cannot be opened, the backend default (device 0) is tried before
// giving up.
func (r *Recorder) Start(deviceID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.logger.Info("Recording already active, restarting",
			slog.Int("device_id", r.current.deviceID),
		)
		if _, err := r.stopLocked(); err != nil {
			r.logger.Warn("Failed to stop previous recording",
				slog.String("error", err.Error()),
			)
		}
	}

	streamCfg := capture.StreamConfig{
		SampleRate: r.cfg.SampleRate,
		Channels:   r.cfg.Channels,
		ChunkSize:  r.cfg.ChunkSize,
	}

	stream, err := r.backend.OpenInputStream(deviceID, streamCfg)
	if err != nil && deviceID != 0 {
		r.logger.Warn("Failed to open requested device, falling back to default",
			slog.Int("device_id", deviceID),
			slog.String("error", err.Error()),
		)
		deviceID = 0
		stream, err = r.backend.OpenInputStream(deviceID, streamCfg)
	}
	if err != nil {
		return fmt.Errorf("failed to open input stream on device %d: %w", deviceID, err)
	}

	sess := &session{
		stream:    stream,
		frames:    audio.NewFrameBuffer(r.cfg.SampleRate),
		done:      make(chan struct{}),
		deviceID:  deviceID,
		startedAt: time.Now(),
	}
	r.current = sess

	go r.captureLoop(sess)

	r.logger.Info("Recording started",
		slog.Int("device_id", deviceID),
		slog.Int("sample_rate", r.cfg.SampleRate),
		slog.Int("chunk_size", r.cfg.ChunkSize),
	)

	return nil
}

// captureLoop reads chunks from the stream into the session's frame
// buffer until the session is stopped or the stream errors out.
func (r *Recorder) captureLoop(sess *session) {
	defer close(sess.done)

	for !sess.stop.Load() {
		chunk, err := sess.stream.Read()
		if err != nil {
			if !sess.stop.Load() && !errors.Is(err, io.EOF) {
				r.logger.Warn("Capture read failed, stopping worker",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		sess.frames.Append(chunk)
	}
}

// Stop ends the active session and returns the captured audio encoded
// as WAV. Returns empty bytes without error when no session is active
// or the session produced no frames.
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked()
}

func (r *Recorder) stopLocked() ([]byte, error) {
	sess := r.current
	if sess == nil {
		return nil, nil
	}
	r.current = nil

	sess.stop.Store(true)

	timeout := r.cfg.GetStopTimeoutDuration()

	// Give the worker a bounded window to observe the stop flag. A
	// worker stuck in a blocking read is unblocked by closing the
	// stream; cleanup proceeds even if it never exits.
	select {
	case <-sess.done:
	case <-time.After(timeout):
	}

	if err := sess.stream.Close(); err != nil {
		r.logger.Warn("Failed to close capture stream",
			slog.String("error", err.Error()),
		)
	}

	select {
	case <-sess.done:
	case <-time.After(timeout):
		r.logger.Warn("Capture worker did not stop in time",
			slog.Int("device_id", sess.deviceID),
		)
	}

	pcm := sess.frames.Bytes()
	duration := time.Since(sess.startedAt)

	r.logger.Info("Recording stopped",
		slog.Int("device_id", sess.deviceID),
		slog.Duration("duration", duration),
		slog.Int("bytes", len(pcm)),
	)

	if len(pcm) == 0 {
		return nil, nil
	}

	wav, err := audio.EncodeWAV(pcm, audio.Format{
		SampleRate: r.cfg.SampleRate,
		Channels:   r.cfg.Channels,
		BitDepth:   r.cfg.BitDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode recording: %w", err)
	}

	return wav, nil
}

// Save persists a WAV payload through the store under the given name.
// The extension is forced to .wav regardless of what was requested.
func (r *Recorder) Save(wav []byte, filename string) (string, error) {
	if len(wav) == 0 {
		return "", ErrNoAudio
	}

	if filename == "" {
		filename = "opname"
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".wav") {
		if idx := strings.LastIndex(filename, "."); idx > 0 {
			filename = filename[:idx]
		}
		filename += ".wav"
	}

	path, err := r.store.SaveBytes(wav, filename)
	if err != nil {
		return "", fmt.Errorf("failed to save recording: %w", err)
	}

	return path, nil
}

// Status reports the current session state.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return Status{}
	}

	// A worker that died on a read error has closed done; the session
	// still holds its frames but is no longer recording.
	active := true
	select {
	case <-r.current.done:
		active = false
	default:
	}

	stats := r.current.frames.Stats()
	return Status{
		Active:   active,
		DeviceID: r.current.deviceID,
		Duration: time.Since(r.current.startedAt),
		Frames:   stats.Frames,
		Bytes:    stats.Bytes,
	}
}

// Close stops any active session and releases the capture backend.
func (r *Recorder) Close() error {
	if _, err := r.Stop(); err != nil {
		r.logger.Warn("Failed to stop recording during shutdown",
			slog.String("error", err.Error()),
		)
	}

	return r.backend.Terminate()
}
