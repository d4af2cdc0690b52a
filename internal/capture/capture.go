package capture

// Device is a read-only snapshot of an input-capable audio device
// at enumeration time.
type Device struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Channels int    `json:"channels"`
}

// StreamConfig holds the fixed parameters an input stream is opened with.
type StreamConfig struct {
	SampleRate int
	Channels   int
	ChunkSize  int // samples per Read
}

// Stream is an open input stream. Read blocks until one chunk of
// ChunkSize samples is available and returns it as little-endian
// PCM-16 bytes. Close releases the underlying device handle; a Read
// blocked on the device returns an error once the stream is closed.
type Stream interface {
	Read() ([]byte, error)
	Close() error
}

// Backend enumerates host audio devices and opens input streams.
type Backend interface {
	// Devices lists all host audio devices, including output-only ones.
	// Callers filter on Channels > 0 for input capability.
	Devices() ([]Device, error)

	// OpenInputStream opens and starts an input stream on the given
	// device. Implementations must not leave a half-open handle behind
	// on failure.
	OpenInputStream(deviceID int, cfg StreamConfig) (Stream, error)

	// Terminate releases the host audio subsystem.
	Terminate() error
}
