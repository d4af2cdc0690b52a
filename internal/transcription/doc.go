// Package transcription turns recorded audio into text through a cloud
// speech recognition API: the HTTP client with retries and rate limiting,
// the supported language table and the file-level transcription service
// with format conversion and language auto-detection.
package transcription
