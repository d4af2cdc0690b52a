package recorder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Fbeunder/RecordingTranscribe/internal/audio"
	"github.com/Fbeunder/RecordingTranscribe/internal/capture"
	"github.com/Fbeunder/RecordingTranscribe/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAudioConfig() config.AudioConfig {
	return config.AudioConfig{
		SampleRate:  44100,
		Channels:    1,
		BitDepth:    16,
		ChunkSize:   1024,
		StopTimeout: 1,
	}
}

// fakeStream hands out a fixed set of chunks. After the last chunk a
// read returns readErr when set, otherwise io.EOF, or blocks until
// Close when blockAfter is set.
type fakeStream struct {
	chunks     [][]byte
	blockAfter bool
	readErr    error

	mu     sync.Mutex
	next   int
	closed chan struct{}
}

func newFakeStream(blockAfter bool, chunks ...[]byte) *fakeStream {
	return &fakeStream{
		chunks:     chunks,
		blockAfter: blockAfter,
		closed:     make(chan struct{}),
	}
}

func (s *fakeStream) Read() ([]byte, error) {
	s.mu.Lock()
	if s.next < len(s.chunks) {
		chunk := s.chunks[s.next]
		s.next++
		s.mu.Unlock()
		return chunk, nil
	}
	s.mu.Unlock()

	if !s.blockAfter {
		if s.readErr != nil {
			return nil, s.readErr
		}
		return nil, io.EOF
	}

	<-s.closed
	return nil, errors.New("stream closed")
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

type fakeBackend struct {
	devices    []capture.Device
	devicesErr error
	streams    map[int]*fakeStream
	openErr    map[int]error
	opened     []int
	terminated bool
}

func (b *fakeBackend) Devices() ([]capture.Device, error) {
	return b.devices, b.devicesErr
}

func (b *fakeBackend) OpenInputStream(deviceID int, cfg capture.StreamConfig) (capture.Stream, error) {
	b.opened = append(b.opened, deviceID)
	if err, ok := b.openErr[deviceID]; ok {
		return nil, err
	}
	if stream, ok := b.streams[deviceID]; ok {
		return stream, nil
	}
	return nil, fmt.Errorf("no stream for device %d", deviceID)
}

func (b *fakeBackend) Terminate() error {
	b.terminated = true
	return nil
}

type fakeStore struct {
	saved    map[string][]byte
	saveErr  error
	lastName string
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string][]byte)}
}

func (s *fakeStore) SaveBytes(data []byte, filename string) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	path := "/downloads/" + filename
	s.saved[path] = data
	s.lastName = filename
	return path, nil
}

func waitInactive(t *testing.T, r *Recorder) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !r.Status().Active {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("recorder still active")
}

func TestListDevices(t *testing.T) {
	tests := []struct {
		name       string
		devices    []capture.Device
		devicesErr error
		want       []capture.Device
	}{
		{
			name: "filters output-only devices",
			devices: []capture.Device{
				{ID: 0, Name: "Speakers", Channels: 0},
				{ID: 1, Name: "USB Microphone", Channels: 2},
				{ID: 2, Name: "Line In", Channels: 1},
			},
			want: []capture.Device{
				{ID: 1, Name: "USB Microphone", Channels: 2},
				{ID: 2, Name: "Line In", Channels: 1},
			},
		},
		{
			name:       "enumeration failure yields default",
			devicesErr: errors.New("host api unavailable"),
			want:       []capture.Device{DefaultDevice},
		},
		{
			name: "no input devices yields default",
			devices: []capture.Device{
				{ID: 0, Name: "Speakers", Channels: 0},
			},
			want: []capture.Device{DefaultDevice},
		},
		{
			name:    "empty list yields default",
			devices: nil,
			want:    []capture.Device{DefaultDevice},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{devices: tt.devices, devicesErr: tt.devicesErr}
			r := NewRecorder(backend, newFakeStore(), testAudioConfig(), testLogger())

			got := r.ListDevices()
			if len(got) != len(tt.want) {
				t.Fatalf("ListDevices() returned %d devices, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("device[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStartStopCapturesChunks(t *testing.T) {
	chunk := bytes.Repeat([]byte{0x00}, 2048) // 1024 samples of silence
	stream := newFakeStream(false, chunk, chunk, chunk)
	backend := &fakeBackend{streams: map[int]*fakeStream{1: stream}}

	r := NewRecorder(backend, newFakeStore(), testAudioConfig(), testLogger())

	if err := r.Start(1); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Wait for the worker to drain the fake stream.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && r.Status().Frames < 3 {
		time.Sleep(5 * time.Millisecond)
	}

	wav, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	wantLen := audio.HeaderSize + 3*2048
	if len(wav) != wantLen {
		t.Errorf("Stop() returned %d bytes, want %d", len(wav), wantLen)
	}

	samples, format, err := audio.DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if format.SampleRate != 44100 || format.Channels != 1 || format.BitDepth != 16 {
		t.Errorf("decoded format = %+v, want 44100/1/16", format)
	}
	if len(samples) != 3*1024 {
		t.Errorf("decoded %d samples, want %d", len(samples), 3*1024)
	}
}

func TestStopWithoutStart(t *testing.T) {
	backend := &fakeBackend{}
	r := NewRecorder(backend, newFakeStore(), testAudioConfig(), testLogger())

	wav, err := r.Stop()
	if err != nil {
		t.Errorf("Stop() error = %v, want nil", err)
	}
	if wav != nil {
		t.Errorf("Stop() = %d bytes, want nil", len(wav))
	}
}

func TestStopWithoutFrames(t *testing.T) {
	stream := newFakeStream(true)
	backend := &fakeBackend{streams: map[int]*fakeStream{0: stream}}
	r := NewRecorder(backend, newFakeStore(), testAudioConfig(), testLogger())

	if err := r.Start(0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	wav, err := r.Stop()
	if err != nil {
		t.Errorf("Stop() error = %v, want nil for empty session", err)
	}
	if len(wav) != 0 {
		t.Errorf("Stop() = %d bytes, want empty", len(wav))
	}
}

func TestStopUnblocksStuckWorker(t *testing.T) {
	chunk := bytes.Repeat([]byte{0x01}, 2048)
	// blockAfter keeps the worker stuck in Read until the stream closes.
	stream := newFakeStream(true, chunk)
	backend := &fakeBackend{streams: map[int]*fakeStream{0: stream}}

	r := NewRecorder(backend, newFakeStore(), testAudioConfig(), testLogger())

	if err := r.Start(0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && r.Status().Frames < 1 {
		time.Sleep(5 * time.Millisecond)
	}

	wav, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if len(wav) != audio.HeaderSize+2048 {
		t.Errorf("Stop() returned %d bytes, want %d", len(wav), audio.HeaderSize+2048)
	}
}

func TestStatusClearsAfterWorkerReadError(t *testing.T) {
	chunk := bytes.Repeat([]byte{0x03}, 2048)
	stream := newFakeStream(false, chunk)
	stream.readErr = errors.New("device disconnected")
	backend := &fakeBackend{streams: map[int]*fakeStream{0: stream}}

	r := NewRecorder(backend, newFakeStore(), testAudioConfig(), testLogger())

	if err := r.Start(0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// The worker dies on the read error; Status must stop reporting an
	// active session even though nobody called Stop.
	waitInactive(t, r)

	status := r.Status()
	if status.Frames != 1 {
		t.Errorf("Status().Frames = %d, want 1 chunk captured before the error", status.Frames)
	}

	// The captured audio is still retrievable through Stop.
	wav, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(wav) != audio.HeaderSize+2048 {
		t.Errorf("Stop() returned %d bytes, want %d", len(wav), audio.HeaderSize+2048)
	}
}

func TestStartFallsBackToDefaultDevice(t *testing.T) {
	chunk := bytes.Repeat([]byte{0x00}, 2048)
	stream := newFakeStream(false, chunk)
	backend := &fakeBackend{
		streams: map[int]*fakeStream{0: stream},
		openErr: map[int]error{5: errors.New("device unavailable")},
	}

	r := NewRecorder(backend, newFakeStore(), testAudioConfig(), testLogger())

	if err := r.Start(5); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	if r.Status().DeviceID != 0 {
		t.Errorf("recording on device %d, want fallback device 0", r.Status().DeviceID)
	}

	want := []int{5, 0}
	if len(backend.opened) != len(want) {
		t.Fatalf("opened devices %v, want %v", backend.opened, want)
	}
	for i := range want {
		if backend.opened[i] != want[i] {
			t.Errorf("opened devices %v, want %v", backend.opened, want)
		}
	}
}

func TestStartFailsWhenDefaultUnavailable(t *testing.T) {
	backend := &fakeBackend{
		openErr: map[int]error{
			0: errors.New("device unavailable"),
			3: errors.New("device unavailable"),
		},
	}

	r := NewRecorder(backend, newFakeStore(), testAudioConfig(), testLogger())

	if err := r.Start(3); err == nil {
		t.Error("Start() error = nil, want open failure")
	}
	if r.Status().Active {
		t.Error("recorder active after failed Start")
	}
}

func TestStartWhileActiveRestarts(t *testing.T) {
	chunk := bytes.Repeat([]byte{0x02}, 2048)
	first := newFakeStream(false, chunk)
	second := newFakeStream(false, chunk, chunk)
	backend := &fakeBackend{streams: map[int]*fakeStream{0: first, 1: second}}

	r := NewRecorder(backend, newFakeStore(), testAudioConfig(), testLogger())

	if err := r.Start(0); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if err := r.Start(1); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	// The restart must not leak the first session's stream handle.
	select {
	case <-first.closed:
	default:
		t.Error("first stream not closed after restart")
	}

	if got := r.Status().DeviceID; got != 1 {
		t.Errorf("active device = %d, want 1", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && r.Status().Frames < 2 {
		time.Sleep(5 * time.Millisecond)
	}

	wav, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// Only the second session's two chunks survive the restart.
	if len(wav) != audio.HeaderSize+2*2048 {
		t.Errorf("Stop() returned %d bytes, want %d", len(wav), audio.HeaderSize+2*2048)
	}
}

func TestSave(t *testing.T) {
	store := newFakeStore()
	r := NewRecorder(&fakeBackend{}, store, testAudioConfig(), testLogger())

	wav, err := audio.EncodeSamples([]int16{0, 100, -100, 0}, 44100)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		filename string
		wantName string
	}{
		{"plain name", "opname", "opname.wav"},
		{"already wav", "opname.wav", "opname.wav"},
		{"uppercase extension", "opname.WAV", "opname.WAV"},
		{"foreign extension forced to wav", "opname.mp3", "opname.wav"},
		{"empty name gets default", "", "opname.wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Save(wav, tt.filename); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if store.lastName != tt.wantName {
				t.Errorf("saved as %q, want %q", store.lastName, tt.wantName)
			}
		})
	}
}

func TestSaveEmpty(t *testing.T) {
	r := NewRecorder(&fakeBackend{}, newFakeStore(), testAudioConfig(), testLogger())

	if _, err := r.Save(nil, "opname.wav"); !errors.Is(err, ErrNoAudio) {
		t.Errorf("Save(nil) error = %v, want ErrNoAudio", err)
	}
}

func TestStatus(t *testing.T) {
	chunk := bytes.Repeat([]byte{0x00}, 2048)
	stream := newFakeStream(true, chunk)
	backend := &fakeBackend{streams: map[int]*fakeStream{2: stream}}

	r := NewRecorder(backend, newFakeStore(), testAudioConfig(), testLogger())

	if r.Status().Active {
		t.Error("Status().Active = true before Start")
	}

	if err := r.Start(2); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	status := r.Status()
	if !status.Active {
		t.Error("Status().Active = false after Start")
	}
	if status.DeviceID != 2 {
		t.Errorf("Status().DeviceID = %d, want 2", status.DeviceID)
	}

	if _, err := r.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	waitInactive(t, r)
}

func TestCloseTerminatesBackend(t *testing.T) {
	backend := &fakeBackend{}
	r := NewRecorder(backend, newFakeStore(), testAudioConfig(), testLogger())

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !backend.terminated {
		t.Error("backend not terminated on Close")
	}
}
