package audio

import (
	"sync"
	"time"
)

// FrameBuffer accumulates fixed-size PCM frames read from the capture device.
// The capture worker is the only writer while a session is active; readers
// take a snapshot via Bytes after the worker has been joined.
type FrameBuffer struct {
	data       []byte
	frames     int
	lastUpdate time.Time

	mu sync.RWMutex
}

// FrameStats represents frame buffer statistics for monitoring
type FrameStats struct {
	Frames     int       `json:"frames"`
	Bytes      int       `json:"bytes"`
	LastUpdate time.Time `json:"last_update"`
}

// NewFrameBuffer creates a frame buffer pre-sized for roughly two seconds
// of 16-bit mono audio at the given sample rate.
func NewFrameBuffer(sampleRate int) *FrameBuffer {
	capacity := sampleRate * 4
	if capacity <= 0 {
		capacity = 0
	}

	return &FrameBuffer{
		data:       make([]byte, 0, capacity),
		lastUpdate: time.Now(),
	}
}

// Append adds one captured frame to the buffer.
func (b *FrameBuffer) Append(frame []byte) {
	if len(frame) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, frame...)
	b.frames++
	b.lastUpdate = time.Now()
}

// Bytes returns a copy of the accumulated PCM data.
func (b *FrameBuffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Reset discards all accumulated frames while keeping the underlying capacity.
func (b *FrameBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = b.data[:0]
	b.frames = 0
	b.lastUpdate = time.Now()
}

// Frames returns the number of frames appended since the last reset.
func (b *FrameBuffer) Frames() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frames
}

// Size returns the number of accumulated PCM bytes.
func (b *FrameBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Duration returns the buffered audio length for 16-bit mono PCM
// at the given sample rate.
func (b *FrameBuffer) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	samples := len(b.data) / 2
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// Stats returns current buffer statistics
func (b *FrameBuffer) Stats() FrameStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return FrameStats{
		Frames:     b.frames,
		Bytes:      len(b.data),
		LastUpdate: b.lastUpdate,
	}
}
