// Package recorder manages the single global recording session: device
// selection, the capture worker, start/stop transitions and saving the
// captured audio as a WAV file.
package recorder
