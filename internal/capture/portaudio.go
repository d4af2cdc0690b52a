package capture

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioBackend implements Backend on top of the PortAudio host API.
// Initialization is lazy so that construction never fails: enumeration
// errors surface per call and the recorder degrades to its default device.
type PortAudioBackend struct {
	mu          sync.Mutex
	initialized bool
}

// NewPortAudioBackend creates an uninitialized PortAudio backend.
func NewPortAudioBackend() *PortAudioBackend {
	return &PortAudioBackend{}
}

func (b *PortAudioBackend) ensureInitialized() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	b.initialized = true
	return nil
}

// Devices lists all host audio devices. The device ID is the index in
// PortAudio's device table.
func (b *PortAudioBackend) Devices() ([]Device, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, Device{
			ID:       i,
			Name:     info.Name,
			Channels: info.MaxInputChannels,
		})
	}

	return devices, nil
}

// OpenInputStream opens and starts a blocking input stream on the given device.
func (b *PortAudioBackend) OpenInputStream(deviceID int, cfg StreamConfig) (Stream, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	if deviceID < 0 || deviceID >= len(infos) {
		return nil, fmt.Errorf("unknown device id %d", deviceID)
	}

	info := infos[deviceID]
	if info.MaxInputChannels < cfg.Channels {
		return nil, fmt.Errorf("device %q has no input channels", info.Name)
	}

	s := &paStream{
		buf: make([]int16, cfg.ChunkSize*cfg.Channels),
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: cfg.Channels,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: cfg.ChunkSize,
	}

	stream, err := portaudio.OpenStream(params, s.buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream on device %q: %w", info.Name, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start input stream on device %q: %w", info.Name, err)
	}

	s.stream = stream
	return s, nil
}

// Terminate releases the PortAudio host API.
func (b *PortAudioBackend) Terminate() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil
	}

	b.initialized = false
	return portaudio.Terminate()
}

// paStream wraps a started PortAudio stream with its registered buffer.
type paStream struct {
	stream *portaudio.Stream
	buf    []int16
}

// Read blocks until one chunk is available and returns it as
// little-endian PCM-16 bytes.
func (s *paStream) Read() ([]byte, error) {
	if err := s.stream.Read(); err != nil {
		return nil, fmt.Errorf("stream read failed: %w", err)
	}

	out := make([]byte, len(s.buf)*2)
	for i, v := range s.buf {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}

	return out, nil
}

// Close stops and releases the stream.
func (s *paStream) Close() error {
	// Stop before Close so a blocked Read returns.
	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		return fmt.Errorf("failed to stop input stream: %w", err)
	}

	return s.stream.Close()
}
