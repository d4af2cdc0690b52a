package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testClientConfig(endpoint string) Config {
	return Config{
		Endpoint:      endpoint,
		APIKey:        "test-key",
		Timeout:       5 * time.Second,
		MaxRetries:    2,
		MaxConcurrent: 4,
	}
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }, true},
		{"missing api key", func(c *Config) { c.APIKey = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testClientConfig("http://localhost:9999/v1/recognize")
			tt.mutate(&cfg)

			_, err := NewClient(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClientRecognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}

		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}

		if lang := r.FormValue("language"); lang != "nl-NL" {
			t.Errorf("language field = %q, want nl-NL", lang)
		}
		if r.FormValue("request_id") == "" {
			t.Error("request_id field missing")
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		defer file.Close()

		if !strings.HasSuffix(header.Filename, ".wav") {
			t.Errorf("uploaded filename = %q", header.Filename)
		}

		json.NewEncoder(w).Encode(Response{
			Text:       "dit is een test",
			Confidence: 0.93,
			Language:   "nl-NL",
		})
	}))
	defer server.Close()

	client, err := NewClient(testClientConfig(server.URL))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	resp, err := client.Recognize(context.Background(), &Request{
		Audio:    []byte{0x52, 0x49, 0x46, 0x46},
		Filename: "opname.wav",
		Language: "nl-NL",
	})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}

	if resp.Text != "dit is een test" {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.ProcessedAt.IsZero() {
		t.Error("ProcessedAt not set")
	}

	stats := client.GetStats()
	if stats.TotalRequests != 1 || stats.SuccessRequests != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Response{Text: "herstel gelukt", Confidence: 0.8})
	}))
	defer server.Close()

	var retries atomic.Int32
	cfg := testClientConfig(server.URL)
	cfg.OnRetry = func() { retries.Add(1) }

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	resp, err := client.Recognize(context.Background(), &Request{
		Audio:    []byte{0x01},
		Language: "nl-NL",
	})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}

	if resp.Text != "herstel gelukt" {
		t.Errorf("Text = %q", resp.Text)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}

	if stats := client.GetStats(); stats.TotalRetries != 1 {
		t.Errorf("TotalRetries = %d, want 1", stats.TotalRetries)
	}
	if retries.Load() != 1 {
		t.Errorf("OnRetry called %d times, want 1", retries.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewClient(testClientConfig(server.URL))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	_, err = client.Recognize(context.Background(), &Request{
		Audio:    []byte{0x01},
		Language: "nl-NL",
	})
	if err == nil {
		t.Fatal("Recognize() error = nil, want HTTP 400 failure")
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}

	if stats := client.GetStats(); stats.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", stats.FailedRequests)
	}
}

func TestClientContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	client, err := NewClient(testClientConfig(server.URL))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = client.Recognize(ctx, &Request{Audio: []byte{0x01}, Language: "nl-NL"})
	if err == nil {
		t.Fatal("Recognize() error = nil, want context error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Recognize() did not respect context deadline")
	}
}
