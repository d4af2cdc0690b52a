// Package audio handles PCM frame buffering and WAV container encoding.
// It accumulates fixed-size capture frames under a single-writer invariant
// and wraps them in an uncompressed RIFF/WAVE container at stop time.
package audio
