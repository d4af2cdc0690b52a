// Package capture abstracts the host audio subsystem behind a small
// backend interface: device enumeration and blocking input streams.
// The PortAudio implementation is the production backend; tests inject
// fakes so the recorder never needs real hardware.
package capture
