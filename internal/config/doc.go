// Package config provides configuration loading and validation for the
// record-and-transcribe service. It handles YAML-based configuration with
// per-section struct validation.
package config
