// Package server exposes the HTTP JSON API: recording control, device
// listing, transcription, supported languages, health and Prometheus
// metrics.
package server
