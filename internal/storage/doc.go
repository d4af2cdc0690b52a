// Package storage persists recordings and transcriptions under the
// download directory with timestamped unique names, and converts
// non-WAV audio to WAV through an external codec.
package storage
