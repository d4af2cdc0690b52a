package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

type RecognitionResponse struct {
	Text        string    `json:"text"`
	Confidence  float32   `json:"confidence"`
	Language    string    `json:"language"`
	Duration    float64   `json:"duration"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Canned transcriptions per language so language auto-detection can be
// exercised against this server.
var cannedText = map[string]string{
	"nl-NL": "Dit is een testtranscriptie van de opname in het Nederlands",
	"en-US": "This is a test transcription of the recording in English",
	"de-DE": "Dies ist eine Testtranskription der Aufnahme auf Deutsch",
	"fr-FR": "Ceci est une transcription de test de l'enregistrement en français",
}

func recognizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	err := r.ParseMultipartForm(50 << 20) // 50 MB
	if err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	requestID := r.FormValue("request_id")
	language := r.FormValue("language")

	// Get audio file
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("🎤 RECOGNITION REQUEST RECEIVED:")
	log.Printf("    Request ID: %s", requestID)
	log.Printf("    Language: %s", language)
	log.Printf("    Filename: %s", header.Filename)
	log.Printf("    Audio Size: %d bytes", len(audioData))

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	text, ok := cannedText[language]
	confidence := float32(0.95)
	if !ok {
		// Unknown languages get a low-confidence result so detection
		// prefers the canned ones.
		text = "onherkenbare spraak"
		confidence = 0.25
	}

	response := RecognitionResponse{
		Text:        text,
		Confidence:  confidence,
		Language:    language,
		Duration:    float64(len(audioData)) / (44100 * 2),
		ProcessedAt: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ RECOGNITION RESPONSE SENT: '%s'", response.Text)
	log.Println("---")
}

func main() {
	http.HandleFunc("/recognize", recognizeHandler)

	port := ":9000"
	log.Printf("🚀 Test Speech Recognition Server starting on port %s", port)
	log.Printf("📡 Endpoint: http://localhost%s/recognize", port)
	log.Println("💡 Update your config to use: http://localhost:9000/recognize")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
