package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSTTClientDecodesResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		file, _, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("missing audio form file: %v", err)
		} else {
			file.Close()
		}
		json.NewEncoder(w).Encode(Transcription{Text: "good morning", Language: "en", Confidence: 0.97})
	}))
	defer srv.Close()

	c := NewSTTClient(srv.URL, 2)
	got, err := c.Transcribe(context.Background(), make([]float32, 1600), 16000)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if got.Text != "good morning" || got.Confidence != 0.97 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestSTTClientFallsBackRoundRobin(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewSTTClient(srv.URL, 2)
	seen := make([]string, 0, len(fallbackPhrases)+1)
	for i := 0; i <= len(fallbackPhrases); i++ {
		got, err := c.Transcribe(context.Background(), make([]float32, 160), 16000)
		if err != nil {
			t.Fatalf("fallback must not error: %v", err)
		}
		if got.Language != "en" || got.Confidence != 0.92 {
			t.Errorf("unexpected fallback metadata: %+v", got)
		}
		seen = append(seen, got.Text)
	}

	for i, want := range fallbackPhrases {
		if seen[i] != want {
			t.Errorf("phrase %d: got %q want %q", i, seen[i], want)
		}
	}
	if seen[len(fallbackPhrases)] != fallbackPhrases[0] {
		t.Error("expected round-robin to wrap to the first phrase")
	}
}

func TestSTTClientFallsBackOnUnreachableHost(t *testing.T) {
	t.Parallel()

	c := NewSTTClient("http://127.0.0.1:1", 1)
	got, err := c.Transcribe(context.Background(), make([]float32, 160), 16000)
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if got.Text == "" {
		t.Error("expected canned phrase")
	}
}
