package audio

import (
	"math"
	"testing"
)

func TestEncodeSamples(t *testing.T) {
	// Generate a 440Hz sine wave, 0.1 seconds at 44.1kHz
	sampleRate := 44100
	duration := 0.1
	frequency := 440.0

	numSamples := int(float64(sampleRate) * duration)
	samples := make([]int16, numSamples)

	for i := 0; i < numSamples; i++ {
		ts := float64(i) / float64(sampleRate)
		amplitude := 16383.0 // Half of max int16 to avoid clipping
		samples[i] = int16(amplitude * math.Sin(2*math.Pi*frequency*ts))
	}

	wavData, err := EncodeSamples(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeSamples failed: %v", err)
	}

	expectedSize := HeaderSize + len(samples)*2
	if len(wavData) != expectedSize {
		t.Errorf("Expected WAV size %d, got %d", expectedSize, len(wavData))
	}

	if err := ValidateWAV(wavData); err != nil {
		t.Errorf("Generated WAV is invalid: %v", err)
	}

	info, err := GetInfo(wavData)
	if err != nil {
		t.Fatalf("Failed to get WAV info: %v", err)
	}

	if info.SampleRate != uint32(sampleRate) {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, info.SampleRate)
	}

	if info.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", info.Channels)
	}

	if info.BitsPerSample != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", info.BitsPerSample)
	}

	expectedDuration := float64(numSamples) / float64(sampleRate)
	if math.Abs(info.Duration-expectedDuration) > 0.001 {
		t.Errorf("Expected duration %.3f, got %.3f", expectedDuration, info.Duration)
	}
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	originalSamples := []int16{100, -200, 300, -400, 500}
	sampleRate := 44100

	wavData, err := EncodeSamples(originalSamples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeSamples failed: %v", err)
	}

	decodedSamples, format, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if format.SampleRate != sampleRate {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, format.SampleRate)
	}

	if format.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", format.Channels)
	}

	if format.BitDepth != 16 {
		t.Errorf("Expected 16-bit depth, got %d", format.BitDepth)
	}

	if len(decodedSamples) != len(originalSamples) {
		t.Fatalf("Expected %d samples, got %d", len(originalSamples), len(decodedSamples))
	}

	for i, original := range originalSamples {
		if decodedSamples[i] != original {
			t.Errorf("Sample %d: expected %d, got %d", i, original, decodedSamples[i])
		}
	}
}

func TestEncodeWAVValidation(t *testing.T) {
	format := Format{SampleRate: 44100, Channels: 1, BitDepth: 16}

	if _, err := EncodeWAV(nil, format); err == nil {
		t.Error("Expected error for empty payload")
	}

	if _, err := EncodeWAV([]byte{1, 2, 3}, format); err == nil {
		t.Error("Expected error for odd payload length")
	}

	if _, err := EncodeWAV([]byte{1, 2}, Format{SampleRate: 0, Channels: 1, BitDepth: 16}); err == nil {
		t.Error("Expected error for zero sample rate")
	}

	if _, err := EncodeWAV([]byte{1, 2}, Format{SampleRate: 44100, Channels: 0, BitDepth: 16}); err == nil {
		t.Error("Expected error for zero channels")
	}

	if _, err := EncodeWAV([]byte{1, 2}, Format{SampleRate: 44100, Channels: 1, BitDepth: 8}); err == nil {
		t.Error("Expected error for unsupported bit depth")
	}
}

func TestValidateWAV(t *testing.T) {
	if err := ValidateWAV([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for too short WAV data")
	}

	invalidWAV := make([]byte, 50)
	copy(invalidWAV[0:4], []byte("FAKE"))
	if err := ValidateWAV(invalidWAV); err == nil {
		t.Error("Expected error for invalid RIFF header")
	}
}

func TestGetInfoDuration(t *testing.T) {
	// One second of audio at 44.1kHz
	sampleRate := 44100
	samples := make([]int16, sampleRate)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}

	wavData, err := EncodeSamples(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeSamples failed: %v", err)
	}

	info, err := GetInfo(wavData)
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}

	if math.Abs(info.Duration-1.0) > 0.001 {
		t.Errorf("Expected duration 1.000, got %.3f", info.Duration)
	}
}
